package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assurea/courtier_api/dto"
	"github.com/assurea/courtier_api/shared"
)

type GeolocationServiceInterface interface {
	GetLocationByIP(ip string) (string, error)
}

// AdminHandler exposes the defense console: limiter stats, per-IP threat
// state and the audit trail. Everything except Login sits behind auth.
type AdminHandler struct {
	jwtSvc       JWTServiceInterface
	rateLimitSvc RateLimitServiceInterface
	eventSvc     SecurityEventServiceInterface
	geoSvc       GeolocationServiceInterface
}

func NewAdminHandler(jwtSvc JWTServiceInterface, rateLimitSvc RateLimitServiceInterface, eventSvc SecurityEventServiceInterface, geoSvc GeolocationServiceInterface) *AdminHandler {
	return &AdminHandler{
		jwtSvc:       jwtSvc,
		rateLimitSvc: rateLimitSvc,
		eventSvc:     eventSvc,
		geoSvc:       geoSvc,
	}
}

func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Le format des données est invalide.")
	}

	tokens, err := h.jwtSvc.Authenticate(req.Secret)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Authentifié", tokens)
}

func (h *AdminHandler) GetStats(c *fiber.Ctx) error {
	return shared.ResponseOK(c, h.rateLimitSvc.Stats())
}

func (h *AdminHandler) ResetStore(c *fiber.Ctx) error {
	h.rateLimitSvc.Reset(requestContext(c))
	return shared.ResponseJSON(c, fiber.StatusOK, "Compteurs réinitialisés", nil)
}

func (h *AdminHandler) GetIPState(c *fiber.Ctx) error {
	ip := c.Params("ip")

	state, ok := h.rateLimitSvc.ThreatStateFor(ip)
	if !ok {
		return shared.ResponseJSON(c, fiber.StatusOK, "Success", fiber.Map{
			"ip":      ip,
			"tracked": false,
		})
	}

	location := "Unknown"
	if loc, err := h.geoSvc.GetLocationByIP(ip); err == nil {
		location = loc
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", fiber.Map{
		"ip":       ip,
		"tracked":  true,
		"blocked":  h.rateLimitSvc.IsBlocked(ip),
		"location": location,
		"state":    state,
	})
}

func (h *AdminHandler) ResetIP(c *fiber.Ctx) error {
	ip := c.Params("ip")
	h.rateLimitSvc.ResetIP(ip)
	return shared.ResponseJSON(c, fiber.StatusOK, "Adresse IP réinitialisée", nil)
}

func (h *AdminHandler) GetSecurityEvents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	events, err := h.eventSvc.RecentSecurityEvents(limit)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, events)
}
