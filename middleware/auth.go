package middleware

import (
	"net/http"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"

	"github.com/assurea/courtier_api/services"
	"github.com/assurea/courtier_api/shared"
)

// AuthMiddleware gates the security-admin routes behind the admin JWT.
type AuthMiddleware struct {
	context.DefaultService

	jwtSvc *services.JWTService
}

const AUTH_MIDDLEWARE_SVC = "auth"

func (svc AuthMiddleware) Id() string {
	return AUTH_MIDDLEWARE_SVC
}

func (svc *AuthMiddleware) Configure(ctx *context.Context) error {
	svc.jwtSvc = ctx.Service(services.JWT_SVC).(*services.JWTService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthMiddleware) Start() error {
	return nil
}

func (svc *AuthMiddleware) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		token, err := svc.jwtSvc.ExtractTokenFromHeader(authHeader)
		if err != nil {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Non autorisé", nil)
		}

		adminID, err := svc.jwtSvc.VerifyJWTToken(token)
		if err != nil || adminID == "" {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Non autorisé", nil)
		}

		c.Locals(shared.AdminID, adminID)
		return c.Next()
	}
}
