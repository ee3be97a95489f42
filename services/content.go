package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/assurea/courtier_api/dto"
	"github.com/assurea/courtier_api/shared"
)

// ContentService serves the public blog. Articles come from the headless
// CMS and are cached in Redis so the CMS is not hit on every page view.
type ContentService struct {
	appContext.DefaultService

	httpClient *http.Client
	cmsBaseURL string
	cmsToken   string
	redisSvc   *RedisService

	listCacheExpiry    time.Duration
	articleCacheExpiry time.Duration
}

const CONTENT_SVC = "content_svc"

const (
	blogListCacheKey   = "blog:articles"
	blogArticleCacheFm = "blog:article:%s"
)

func (svc ContentService) Id() string {
	return CONTENT_SVC
}

func (svc *ContentService) Configure(ctx *appContext.Context) error {
	svc.httpClient = &http.Client{
		Timeout: 10 * time.Second,
	}
	svc.cmsBaseURL = os.Getenv("CMS_BASE_URL")
	svc.cmsToken = os.Getenv("CMS_API_TOKEN")
	svc.listCacheExpiry = 5 * time.Minute
	svc.articleCacheExpiry = 15 * time.Minute
	return svc.DefaultService.Configure(ctx)
}

func (svc *ContentService) Start() error {
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)

	if svc.cmsBaseURL == "" {
		log.Warn("CMS_BASE_URL not configured, blog endpoints will return empty content")
	}
	return nil
}

// cmsArticle is the raw CMS payload before normalization.
type cmsArticle struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	Category    string `json:"category"`
	CoverURL    string `json:"cover_url"`
	PublishedAt string `json:"published_at"`
}

func (a *cmsArticle) normalize(withBody bool) dto.Article {
	publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		publishedAt = time.Time{}
	}

	article := dto.Article{
		Slug:        a.Slug,
		Title:       a.Title,
		Excerpt:     a.Excerpt,
		Author:      a.Author,
		Category:    a.Category,
		CoverURL:    a.CoverURL,
		PublishedAt: publishedAt,
	}
	if withBody {
		article.Body = a.Content
	}
	return article
}

// ListArticles returns the published articles, newest first.
func (svc *ContentService) ListArticles() (*dto.ArticleListResponse, error) {
	ctx := context.Background()

	if svc.redisSvc != nil {
		var cached dto.ArticleListResponse
		hit, err := svc.redisSvc.GetJSON(ctx, blogListCacheKey, &cached)
		if err == nil && hit {
			log.Debug("Blog article list cache hit")
			return &cached, nil
		}
	}

	if svc.cmsBaseURL == "" {
		return &dto.ArticleListResponse{Articles: []dto.Article{}, Total: 0}, nil
	}

	var raw []cmsArticle
	if err := svc.fetchCMS("/articles?status=published&sort=-published_at", &raw); err != nil {
		log.WithError(err).Error("Failed to fetch articles from CMS")
		return nil, shared.NewInternalError(err, "Le blog est momentanément indisponible.")
	}

	articles := make([]dto.Article, 0, len(raw))
	for i := range raw {
		articles = append(articles, raw[i].normalize(false))
	}

	response := &dto.ArticleListResponse{
		Articles: articles,
		Total:    len(articles),
	}

	if svc.redisSvc != nil {
		if err := svc.redisSvc.Set(ctx, blogListCacheKey, response, svc.listCacheExpiry); err != nil {
			log.WithError(err).Warn("Failed to cache blog article list")
		}
	}

	return response, nil
}

// GetArticle returns one published article by slug, body included.
func (svc *ContentService) GetArticle(slug string) (*dto.Article, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf(blogArticleCacheFm, slug)

	if svc.redisSvc != nil {
		var cached dto.Article
		hit, err := svc.redisSvc.GetJSON(ctx, cacheKey, &cached)
		if err == nil && hit {
			log.WithField("slug", slug).Debug("Blog article cache hit")
			return &cached, nil
		}
	}

	if svc.cmsBaseURL == "" {
		return nil, shared.NewNotFoundError(nil, "Article introuvable.")
	}

	var raw cmsArticle
	path := fmt.Sprintf("/articles/%s", url.PathEscape(slug))
	if err := svc.fetchCMS(path, &raw); err != nil {
		if err == errCMSNotFound {
			return nil, shared.NewNotFoundError(err, "Article introuvable.")
		}
		log.WithError(err).WithField("slug", slug).Error("Failed to fetch article from CMS")
		return nil, shared.NewInternalError(err, "Le blog est momentanément indisponible.")
	}

	article := raw.normalize(true)

	if svc.redisSvc != nil {
		if err := svc.redisSvc.Set(ctx, cacheKey, &article, svc.articleCacheExpiry); err != nil {
			log.WithError(err).WithField("slug", slug).Warn("Failed to cache blog article")
		}
	}

	return &article, nil
}

// InvalidateCache drops the cached blog content so the next read hits
// the CMS again.
func (svc *ContentService) InvalidateCache() error {
	if svc.redisSvc == nil {
		return fmt.Errorf("redis service not available")
	}

	ctx := context.Background()
	keys, err := svc.redisSvc.Keys(ctx, "blog:*")
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return svc.redisSvc.Delete(ctx, keys...)
	}
	return nil
}

var errCMSNotFound = fmt.Errorf("cms: not found")

func (svc *ContentService) fetchCMS(path string, dest interface{}) error {
	req, err := http.NewRequest(http.MethodGet, svc.cmsBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if svc.cmsToken != "" {
		req.Header.Set("Authorization", "Bearer "+svc.cmsToken)
	}

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errCMSNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cms returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
