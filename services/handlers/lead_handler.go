package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assurea/courtier_api/dto"
	"github.com/assurea/courtier_api/shared"
)

// LeadHandler terminates the form endpoints. It reads the field map the
// security middleware left in locals, so raw request bodies never reach
// this code.
type LeadHandler struct {
	leadSvc LeadServiceInterface
}

func NewLeadHandler(leadSvc LeadServiceInterface) *LeadHandler {
	return &LeadHandler{
		leadSvc: leadSvc,
	}
}

func sanitizedFields(c *fiber.Ctx) map[string]string {
	fields, ok := c.Locals(shared.SanitizedData).(map[string]string)
	if !ok {
		return map[string]string{}
	}
	return fields
}

func (h *LeadHandler) SubmitContact(c *fiber.Ctx) error {
	fields := sanitizedFields(c)
	req := &dto.ContactRequest{
		Prenom:    fields["prenom"],
		Nom:       fields["nom"],
		Email:     fields["email"],
		Telephone: fields["telephone"],
		Message:   fields["message"],
	}

	response, err := h.leadSvc.SubmitContact(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, response.Message, response)
}

func (h *LeadHandler) SubmitDevis(c *fiber.Ctx) error {
	fields := sanitizedFields(c)
	req := &dto.DevisRequest{
		Prenom:        fields["prenom"],
		Nom:           fields["nom"],
		Email:         fields["email"],
		Telephone:     fields["telephone"],
		TypeAssurance: fields["typeAssurance"],
		Entreprise:    fields["entreprise"],
		Message:       fields["message"],
	}

	response, err := h.leadSvc.SubmitDevis(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, response.Message, response)
}

func (h *LeadHandler) SubmitRappel(c *fiber.Ctx) error {
	fields := sanitizedFields(c)
	req := &dto.RappelRequest{
		Prenom:    fields["prenom"],
		Nom:       fields["nom"],
		Telephone: fields["telephone"],
		Creneau:   fields["creneau"],
	}

	response, err := h.leadSvc.SubmitRappel(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, response.Message, response)
}

func (h *LeadHandler) SubscribeNewsletter(c *fiber.Ctx) error {
	fields := sanitizedFields(c)

	response, err := h.leadSvc.SubscribeNewsletter(fields["email"])
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, response.Message, response)
}
