package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assurea/courtier_api/shared"
)

type ContentHandler struct {
	contentSvc ContentServiceInterface
}

func NewContentHandler(contentSvc ContentServiceInterface) *ContentHandler {
	return &ContentHandler{
		contentSvc: contentSvc,
	}
}

func (h *ContentHandler) ListArticles(c *fiber.Ctx) error {
	articles, err := h.contentSvc.ListArticles()
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", articles)
}

func (h *ContentHandler) GetArticle(c *fiber.Ctx) error {
	slug := c.Params("slug")

	article, err := h.contentSvc.GetArticle(slug)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", article)
}

func (h *ContentHandler) InvalidateCache(c *fiber.Ctx) error {
	if err := h.contentSvc.InvalidateCache(); err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Cache invalidé", nil)
}
