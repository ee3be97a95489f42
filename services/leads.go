package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/assurea/courtier_api/dto"
	"github.com/assurea/courtier_api/model"
	"github.com/assurea/courtier_api/shared"
)

// LeadService records form submissions and notifies the brokerage.
// Notification mail is fire-and-forget; a lead row is never lost to an
// SMTP outage.
type LeadService struct {
	context.DefaultService

	sqlSvc   *SqliteService
	emailSvc *EmailService
}

const LEAD_SVC = "lead_svc"

func (svc LeadService) Id() string {
	return LEAD_SVC
}

func (svc *LeadService) Configure(ctx *context.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *LeadService) Start() error {
	svc.sqlSvc = svc.Service(SQLITE_SVC).(*SqliteService)
	svc.emailSvc = svc.Service(EMAIL_SVC).(*EmailService)
	return nil
}

// reference derives the customer-facing dossier number from the row id.
func reference(id string) string {
	return "ASR-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:8])
}

// validateRequest is the structural backstop behind the sanitizer. The
// middleware already rejected malformed fields, so a failure here means
// a route was registered without its gate.
func validateRequest(req interface{}) error {
	if err := dto.GetValidator().Struct(req); err != nil {
		appErr := shared.NewBadRequestError(err, "Certains champs sont invalides.")
		appErr.Data = dto.FormatValidationErrors(err)
		return appErr
	}
	return nil
}

func (svc *LeadService) saveLead(lead *model.Lead) error {
	if err := svc.sqlSvc.SaveLead(lead); err != nil {
		return shared.NewInternalError(err, "Votre demande n'a pas pu être enregistrée. Veuillez réessayer.")
	}
	return nil
}

func (svc *LeadService) notify(send func() error, source string) {
	go func() {
		if err := send(); err != nil {
			log.WithError(err).WithField("source", source).Error("Lead notification failed")
		}
	}()
}

func (svc *LeadService) SubmitContact(req *dto.ContactRequest) (*dto.FormSubmissionResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	lead := &model.Lead{
		ID:        uuid.New().String(),
		Source:    string(model.EndpointContact),
		Prenom:    req.Prenom,
		Nom:       req.Nom,
		Email:     req.Email,
		Telephone: req.Telephone,
		Message:   req.Message,
		CreatedAt: time.Now(),
	}
	if err := svc.saveLead(lead); err != nil {
		return nil, err
	}

	svc.notify(func() error { return svc.emailSvc.SendContactNotification(req) }, lead.Source)

	return &dto.FormSubmissionResponse{
		Reference: reference(lead.ID),
		Message:   "Votre message a bien été envoyé. Nous vous recontacterons sous 24 heures ouvrées.",
	}, nil
}

func (svc *LeadService) SubmitDevis(req *dto.DevisRequest) (*dto.FormSubmissionResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	lead := &model.Lead{
		ID:            uuid.New().String(),
		Source:        string(model.EndpointDevis),
		Prenom:        req.Prenom,
		Nom:           req.Nom,
		Email:         req.Email,
		Telephone:     req.Telephone,
		Entreprise:    req.Entreprise,
		TypeAssurance: req.TypeAssurance,
		Message:       req.Message,
		CreatedAt:     time.Now(),
	}
	if err := svc.saveLead(lead); err != nil {
		return nil, err
	}

	svc.notify(func() error { return svc.emailSvc.SendDevisNotification(req) }, lead.Source)

	return &dto.FormSubmissionResponse{
		Reference: reference(lead.ID),
		Message:   "Votre demande de devis a bien été enregistrée. Un conseiller vous contactera rapidement.",
	}, nil
}

func (svc *LeadService) SubmitRappel(req *dto.RappelRequest) (*dto.FormSubmissionResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	message := ""
	if req.Creneau != "" {
		message = fmt.Sprintf("Créneau souhaité : %s", req.Creneau)
	}

	lead := &model.Lead{
		ID:        uuid.New().String(),
		Source:    string(model.EndpointRappel),
		Prenom:    req.Prenom,
		Nom:       req.Nom,
		Telephone: req.Telephone,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := svc.saveLead(lead); err != nil {
		return nil, err
	}

	svc.notify(func() error { return svc.emailSvc.SendRappelNotification(req) }, lead.Source)

	return &dto.FormSubmissionResponse{
		Reference: reference(lead.ID),
		Message:   "Votre demande de rappel a bien été enregistrée.",
	}, nil
}

func (svc *LeadService) SubscribeNewsletter(email string) (*dto.FormSubmissionResponse, error) {
	if err := validateRequest(&dto.NewsletterRequest{Email: email}); err != nil {
		return nil, err
	}

	lead := &model.Lead{
		ID:        uuid.New().String(),
		Source:    string(model.EndpointNewsletter),
		Email:     email,
		CreatedAt: time.Now(),
	}
	if err := svc.saveLead(lead); err != nil {
		return nil, err
	}

	return &dto.FormSubmissionResponse{
		Reference: reference(lead.ID),
		Message:   "Votre inscription à la newsletter est confirmée.",
	}, nil
}
