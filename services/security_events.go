package services

import (
	"encoding/json"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/assurea/courtier_api/dto"
	"github.com/assurea/courtier_api/model"
	"github.com/assurea/courtier_api/shared"
)

// SecurityEventService is the write-only sink behind the defense
// pipeline. Emit never fails and never blocks the caller on persistence.
type SecurityEventService struct {
	context.DefaultService

	sqlSvc *SqliteService
}

const SECURITY_EVENT_SVC = "security_event_svc"

func (svc SecurityEventService) Id() string {
	return SECURITY_EVENT_SVC
}

func (svc *SecurityEventService) Configure(ctx *context.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *SecurityEventService) Start() error {
	svc.sqlSvc = svc.Service(SQLITE_SVC).(*SqliteService)
	return nil
}

func severityFor(event string) string {
	switch event {
	case shared.EventSuspiciousPayload, shared.EventBlockedIPAttempt:
		return "high"
	case shared.EventRateLimitViolation, shared.EventBotDetected, shared.EventUploadRejected:
		return "medium"
	case shared.EventValidationFailed, shared.EventRequestRejected:
		return "low"
	default:
		return "info"
	}
}

// Emit logs the event and persists it in the background. Any failure is
// swallowed after logging: the sink must never propagate an error into
// the request path.
func (svc *SecurityEventService) Emit(event string, details map[string]interface{}, reqCtx dto.RequestContext) {
	severity := severityFor(event)

	entry := log.WithFields(log.Fields{
		"event":      event,
		"ip":         reqCtx.IP,
		"user_agent": reqCtx.UserAgent,
		"endpoint":   reqCtx.Endpoint,
		"severity":   severity,
	})
	for k, v := range details {
		entry = entry.WithField(k, v)
	}

	switch severity {
	case "high":
		entry.Warn("Security event")
	case "medium":
		entry.Info("Security event")
	default:
		entry.Debug("Security event")
	}

	detailsJSON := "{}"
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			detailsJSON = string(b)
		}
	}

	record := &model.SecurityEvent{
		ID:        uuid.New().String(),
		Event:     event,
		IP:        reqCtx.IP,
		UserAgent: reqCtx.UserAgent,
		Endpoint:  reqCtx.Endpoint,
		Severity:  severity,
		Details:   detailsJSON,
		CreatedAt: time.Now(),
	}

	if svc.sqlSvc == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Security event persistence panicked")
			}
		}()
		if err := svc.sqlSvc.SaveSecurityEvent(record); err != nil {
			log.WithError(err).Debug("Failed to persist security event")
		}
	}()
}

// RecentSecurityEvents returns the newest audit rows for the admin console.
func (svc *SecurityEventService) RecentSecurityEvents(limit int) ([]model.SecurityEvent, error) {
	return svc.sqlSvc.RecentSecurityEvents(limit)
}
