package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assurea/courtier_api/dto"
	"github.com/assurea/courtier_api/shared"
)

type MediaHandler struct {
	mediaSvc MediaServiceInterface
	eventSvc SecurityEventServiceInterface
}

func NewMediaHandler(mediaSvc MediaServiceInterface, eventSvc SecurityEventServiceInterface) *MediaHandler {
	return &MediaHandler{
		mediaSvc: mediaSvc,
		eventSvc: eventSvc,
	}
}

func (h *MediaHandler) UploadQuoteDocument(c *fiber.Ctx) error {
	file, err := c.FormFile("document")
	if err != nil {
		return shared.NewBadRequestError(err, "Aucun document fourni.")
	}

	response, err := h.mediaSvc.UploadQuoteDocument(file)
	if err != nil {
		h.eventSvc.Emit(shared.EventUploadRejected, map[string]interface{}{
			"file_name": file.Filename,
			"file_size": file.Size,
			"reason":    err.Error(),
		}, requestContext(c))
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Document enregistré.", response)
}

func requestContext(c *fiber.Ctx) dto.RequestContext {
	ip, _ := c.Locals(shared.ClientIP).(string)
	return dto.RequestContext{
		IP:        ip,
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Endpoint:  c.Path(),
	}
}
