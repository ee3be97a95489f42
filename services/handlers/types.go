package handlers

import (
	"mime/multipart"

	"github.com/assurea/courtier_api/dto"
	"github.com/assurea/courtier_api/model"
)

type LeadServiceInterface interface {
	SubmitContact(req *dto.ContactRequest) (*dto.FormSubmissionResponse, error)
	SubmitDevis(req *dto.DevisRequest) (*dto.FormSubmissionResponse, error)
	SubmitRappel(req *dto.RappelRequest) (*dto.FormSubmissionResponse, error)
	SubscribeNewsletter(email string) (*dto.FormSubmissionResponse, error)
}

type ContentServiceInterface interface {
	ListArticles() (*dto.ArticleListResponse, error)
	GetArticle(slug string) (*dto.Article, error)
	InvalidateCache() error
}

type MediaServiceInterface interface {
	UploadQuoteDocument(file *multipart.FileHeader) (*dto.DocumentUploadResponse, error)
}

type JWTServiceInterface interface {
	Authenticate(secret string) (*dto.TokenPair, error)
}

type RateLimitServiceInterface interface {
	Stats() *dto.RateLimitStats
	Reset(reqCtx dto.RequestContext)
	ThreatStateFor(ip string) (model.ThreatState, bool)
	IsBlocked(ip string) bool
	ResetIP(ip string)
}

type SecurityEventServiceInterface interface {
	RecentSecurityEvents(limit int) ([]model.SecurityEvent, error)
	Emit(event string, details map[string]interface{}, reqCtx dto.RequestContext)
}
