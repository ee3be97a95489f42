package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	log "github.com/sirupsen/logrus"

	"github.com/assurea/courtier_api/model"
	"github.com/assurea/courtier_api/services/handlers"
	"github.com/assurea/courtier_api/shared"
)

// SecurityGate is the slice of the security middleware the router needs.
// Declared here so the middleware package can depend on services without
// a cycle.
type SecurityGate interface {
	Protect(endpoint model.Endpoint) fiber.Handler
	PublicContent(endpoint model.Endpoint) fiber.Handler
}

// AuthGate guards the admin console routes.
type AuthGate interface {
	RequiredAuth() fiber.Handler
}

type HttpService struct {
	context.DefaultService

	port   int
	server *fiber.App

	leadHandler    *handlers.LeadHandler
	contentHandler *handlers.ContentHandler
	mediaHandler   *handlers.MediaHandler
	adminHandler   *handlers.AdminHandler
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	leadSvc := svc.Service(LEAD_SVC).(*LeadService)
	contentSvc := svc.Service(CONTENT_SVC).(*ContentService)
	mediaSvc := svc.Service(MEDIA_SVC).(*MediaService)
	jwtSvc := svc.Service(JWT_SVC).(*JWTService)
	rateLimitSvc := svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	eventSvc := svc.Service(SECURITY_EVENT_SVC).(*SecurityEventService)
	geoSvc := svc.Service(GEOLOCATION_SVC).(*GeolocationService)
	monitoringSvc := svc.Service(MONITORING_SVC).(*MonitoringService)

	sec := svc.Service("security").(SecurityGate)
	auth := svc.Service("auth").(AuthGate)

	svc.leadHandler = handlers.NewLeadHandler(leadSvc)
	svc.contentHandler = handlers.NewContentHandler(contentSvc)
	svc.mediaHandler = handlers.NewMediaHandler(mediaSvc, eventSvc)
	svc.adminHandler = handlers.NewAdminHandler(jwtSvc, rateLimitSvc, eventSvc, geoSvc)

	app := fiber.New(fiber.Config{
		AppName: "Assurea Courtier API",
		// The 413 gate in the security middleware must fire before
		// fiber's own limit does.
		BodyLimit:    model.MaxUploadSize + 1024*1024,
		ErrorHandler: svc.handleError,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(MonitoringMiddleware(monitoringSvc))

	app.Get("/ping", svc.ping)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", svc.ping)

	v1.Post("/contact", sec.Protect(model.EndpointContact), svc.leadHandler.SubmitContact)
	v1.Post("/devis", sec.Protect(model.EndpointDevis), svc.leadHandler.SubmitDevis)
	v1.Post("/devis/documents", sec.Protect(model.EndpointDevisDocuments), svc.mediaHandler.UploadQuoteDocument)
	v1.Post("/rappel", sec.Protect(model.EndpointRappel), svc.leadHandler.SubmitRappel)
	v1.Post("/newsletter", sec.Protect(model.EndpointNewsletter), svc.leadHandler.SubscribeNewsletter)

	v1.Get("/blog", sec.PublicContent(model.EndpointBlog), svc.contentHandler.ListArticles)
	v1.Get("/blog/:slug", sec.PublicContent(model.EndpointBlog), svc.contentHandler.GetArticle)

	v1.Post("/admin/login", sec.Protect(model.Endpoint("admin_login")), svc.adminHandler.Login)

	admin := v1.Group("/admin/security", auth.RequiredAuth())
	admin.Get("/stats", svc.adminHandler.GetStats)
	admin.Post("/reset", svc.adminHandler.ResetStore)
	admin.Get("/limits/:ip", svc.adminHandler.GetIPState)
	admin.Delete("/limits/:ip", svc.adminHandler.ResetIP)
	admin.Get("/events", svc.adminHandler.GetSecurityEvents)
	admin.Post("/cache/blog/invalidate", svc.contentHandler.InvalidateCache)

	svc.server = app

	log.WithField("port", svc.port).Info("HTTP service listening")
	return app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

func allowedOrigins() string {
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		return origins
	}
	return "*"
}

func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")
	return shared.ResponseJSON(c, fiber.StatusOK, "Success", "pong")
}

func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	return shared.ResponseInternalError(c, err)
}
