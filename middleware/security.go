package middleware

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/assurea/courtier_api/dto"
	"github.com/assurea/courtier_api/model"
	"github.com/assurea/courtier_api/security"
	"github.com/assurea/courtier_api/services"
	"github.com/assurea/courtier_api/shared"
)

// SecurityMiddleware is the composition root of the defense pipeline.
// Every protected form route runs the same gate chain, terminal at the
// first failing gate:
//
//	BotCheck -> IPReputation -> RateLimit -> Method -> ContentType ->
//	Size -> BodyParse -> Sanitize -> handler -> header decoration
type SecurityMiddleware struct {
	context.DefaultService

	rateLimitSvc  *services.RateLimitService
	eventSvc      *services.SecurityEventService
	monitoringSvc *services.MonitoringService
}

const SECURITY_MIDDLEWARE_SVC = "security"

func (svc SecurityMiddleware) Id() string {
	return SECURITY_MIDDLEWARE_SVC
}

func (svc *SecurityMiddleware) Configure(ctx *context.Context) error {
	svc.rateLimitSvc = ctx.Service(services.RATE_LIMIT_SVC).(*services.RateLimitService)
	svc.eventSvc = ctx.Service(services.SECURITY_EVENT_SVC).(*services.SecurityEventService)
	svc.monitoringSvc = ctx.Service(services.MONITORING_SVC).(*services.MonitoringService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *SecurityMiddleware) Start() error {
	return nil
}

func headerLookup(c *fiber.Ctx) security.HeaderLookup {
	return func(key string) string {
		return c.Get(key)
	}
}

// Protect wraps one form endpoint with the full gate chain. The business
// handler behind it only ever sees requests that passed every gate, with
// the sanitized field map available in locals.
func (svc *SecurityMiddleware) Protect(endpoint model.Endpoint) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("Panic in request pipeline")
				err = shared.ResponseSecurityError(c, http.StatusInternalServerError, shared.SecurityError{
					Error: "Une erreur interne est survenue. Veuillez réessayer plus tard.",
					Type:  shared.ErrTypeInternalError,
				})
			}
		}()

		ip := security.ResolveClientIP(headerLookup(c))
		c.Locals(shared.ClientIP, ip)

		reqCtx := dto.RequestContext{
			IP:        ip,
			UserAgent: c.Get("User-Agent"),
			Endpoint:  string(endpoint),
		}

		// Bot check
		verdict := security.ClassifyBot(headerLookup(c))
		if verdict.IsBot {
			svc.monitoringSvc.RecordBotClassification(string(verdict.BotType))
			if verdict.BotType == security.BotTypeMalicious {
				svc.eventSvc.Emit(shared.EventBotDetected, map[string]interface{}{
					"bot_type":   verdict.BotType,
					"confidence": verdict.Confidence,
				}, reqCtx)
				svc.monitoringSvc.RecordBlockedRequest("bot_check", string(endpoint))
				return shared.ResponseSecurityError(c, http.StatusForbidden, shared.SecurityError{
					Error: "Accès refusé.",
					Type:  shared.ErrTypeBotDetection,
				})
			}
		}

		// IP reputation and rate limit share one store lookup
		result := svc.rateLimitSvc.CheckRateLimit(ip, endpoint, reqCtx)
		if !result.Allowed {
			if result.Blocked {
				svc.monitoringSvc.RecordBlockedRequest("ip_reputation", string(endpoint))
				return shared.ResponseSecurityError(c, http.StatusForbidden, shared.SecurityError{
					Error: "Votre adresse IP est temporairement bloquée.",
					Type:  shared.ErrTypeIPBlocked,
				})
			}

			svc.monitoringSvc.RecordBlockedRequest("rate_limit", string(endpoint))
			svc.monitoringSvc.RecordRateLimitViolation(result.Scope)
			retryAfter := result.RetryAfterSeconds(time.Now())
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			svc.setRateLimitHeaders(c, result.Limit, 0, result.ResetTime.Unix())
			return shared.ResponseSecurityError(c, http.StatusTooManyRequests, shared.SecurityError{
				Error:      "Trop de requêtes. Veuillez patienter avant de réessayer.",
				Type:       shared.ErrTypeRateLimit,
				RetryAfter: retryAfter,
			})
		}

		// Method check
		if c.Method() != fiber.MethodPost {
			svc.emitRejected(reqCtx, "method_not_allowed")
			return shared.ResponseSecurityError(c, http.StatusMethodNotAllowed, shared.SecurityError{
				Error: "Méthode non autorisée.",
				Type:  shared.ErrTypeMethodNotAllowed,
			})
		}

		// Content type check
		contentType := strings.ToLower(c.Get(fiber.HeaderContentType))
		isJSON := strings.HasPrefix(contentType, fiber.MIMEApplicationJSON)
		isMultipart := strings.HasPrefix(contentType, fiber.MIMEMultipartForm)
		if !isJSON && !isMultipart {
			svc.emitRejected(reqCtx, "unsupported_content_type")
			return shared.ResponseSecurityError(c, http.StatusUnsupportedMediaType, shared.SecurityError{
				Error: "Format de contenu non supporté.",
				Type:  shared.ErrTypeUnsupportedContent,
			})
		}

		// Size check, before any body read
		if c.Request().Header.ContentLength() > model.MaxUploadSize {
			svc.emitRejected(reqCtx, "request_too_large")
			return shared.ResponseSecurityError(c, http.StatusRequestEntityTooLarge, shared.SecurityError{
				Error: "La requête est trop volumineuse.",
				Type:  shared.ErrTypeRequestTooLarge,
			})
		}

		// Multipart bodies skip the JSON sanitization stage; the upload
		// handler validates its own parts.
		if isJSON {
			var fields map[string]interface{}
			if err := sonic.Unmarshal(c.Body(), &fields); err != nil {
				svc.emitRejected(reqCtx, "invalid_data_format")
				return shared.ResponseSecurityError(c, http.StatusBadRequest, shared.SecurityError{
					Error: "Le format des données est invalide.",
					Type:  shared.ErrTypeInvalidDataFormat,
				})
			}

			sanitized := SanitizeRequest(c.Body(), fields, endpoint)
			if sanitized.Suspicious {
				svc.eventSvc.Emit(shared.EventSuspiciousPayload, map[string]interface{}{
					"endpoint": endpoint,
				}, reqCtx)
				svc.monitoringSvc.RecordSuspiciousPayload(string(endpoint))
				svc.monitoringSvc.RecordBlockedRequest("sanitize", string(endpoint))
				return shared.ResponseSecurityError(c, http.StatusBadRequest, shared.SecurityError{
					Error: "Le contenu de la requête n'a pas pu être traité.",
					Type:  shared.ErrTypeValidationError,
				})
			}
			if !sanitized.Valid {
				svc.eventSvc.Emit(shared.EventValidationFailed, map[string]interface{}{
					"errors": sanitized.Errors,
				}, reqCtx)
				return shared.ResponseSecurityError(c, http.StatusBadRequest, shared.SecurityError{
					Error:   "Certains champs sont invalides.",
					Type:    shared.ErrTypeValidationError,
					Details: sanitized.Errors,
				})
			}

			c.Locals(shared.SanitizedData, sanitized.Data)
		}

		err = c.Next()

		svc.eventSvc.Emit(shared.EventRequestAllowed, map[string]interface{}{
			"status": c.Response().StatusCode(),
		}, reqCtx)

		svc.decorateResponse(c)
		svc.setRateLimitHeaders(c, result.Limit, result.Remaining, result.ResetTime.Unix())
		return err
	}
}

// PublicContent wraps the read-only blog routes. Counting is bypassed
// inside the limiter; blocked IPs and malicious bots are still turned
// away.
func (svc *SecurityMiddleware) PublicContent(endpoint model.Endpoint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := security.ResolveClientIP(headerLookup(c))
		c.Locals(shared.ClientIP, ip)

		reqCtx := dto.RequestContext{
			IP:        ip,
			UserAgent: c.Get("User-Agent"),
			Endpoint:  string(endpoint),
		}

		verdict := security.ClassifyBot(headerLookup(c))
		if verdict.IsBot && verdict.BotType == security.BotTypeMalicious {
			svc.eventSvc.Emit(shared.EventBotDetected, map[string]interface{}{
				"bot_type":   verdict.BotType,
				"confidence": verdict.Confidence,
			}, reqCtx)
			return shared.ResponseSecurityError(c, http.StatusForbidden, shared.SecurityError{
				Error: "Accès refusé.",
				Type:  shared.ErrTypeBotDetection,
			})
		}

		result := svc.rateLimitSvc.CheckRateLimit(ip, endpoint, reqCtx)
		if !result.Allowed {
			return shared.ResponseSecurityError(c, http.StatusForbidden, shared.SecurityError{
				Error: "Votre adresse IP est temporairement bloquée.",
				Type:  shared.ErrTypeIPBlocked,
			})
		}

		err := c.Next()
		svc.decorateResponse(c)
		return err
	}
}

func (svc *SecurityMiddleware) emitRejected(reqCtx dto.RequestContext, reason string) {
	svc.eventSvc.Emit(shared.EventRequestRejected, map[string]interface{}{
		"reason": reason,
	}, reqCtx)
	svc.monitoringSvc.RecordBlockedRequest(reason, reqCtx.Endpoint)
}

func (svc *SecurityMiddleware) setRateLimitHeaders(c *fiber.Ctx, limit, remaining int, resetUnix int64) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(resetUnix, 10))
}

// decorateResponse applies the fixed security header bundle.
func (svc *SecurityMiddleware) decorateResponse(c *fiber.Ctx) {
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("X-Frame-Options", "DENY")
	c.Set("X-XSS-Protection", "1; mode=block")
	c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	c.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
	c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Set("Pragma", "no-cache")
}
