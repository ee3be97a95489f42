package handlers

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assurea/courtier_api/dto"
	"github.com/assurea/courtier_api/model"
	"github.com/assurea/courtier_api/shared"
)

type stubJWTService struct {
	secretSeen string
	err        error
}

func (s *stubJWTService) Authenticate(secret string) (*dto.TokenPair, error) {
	s.secretSeen = secret
	if s.err != nil {
		return nil, s.err
	}
	return &dto.TokenPair{AccessToken: "token", ExpiresIn: 3600}, nil
}

type stubRateLimitService struct {
	resetCalled   bool
	resetIPCalled string
	state         *model.ThreatState
}

func (s *stubRateLimitService) Stats() *dto.RateLimitStats {
	return &dto.RateLimitStats{ActiveCounters: 3, TrackedIPs: 2, BlockedIPs: 1, Timestamp: time.Now()}
}

func (s *stubRateLimitService) Reset(reqCtx dto.RequestContext) {
	s.resetCalled = true
}

func (s *stubRateLimitService) ThreatStateFor(ip string) (model.ThreatState, bool) {
	if s.state == nil {
		return model.ThreatState{}, false
	}
	return *s.state, true
}

func (s *stubRateLimitService) IsBlocked(ip string) bool {
	return s.state != nil && s.state.Blocked(time.Now())
}

func (s *stubRateLimitService) ResetIP(ip string) {
	s.resetIPCalled = ip
}

type stubEventService struct {
	events []model.SecurityEvent
}

func (s *stubEventService) RecentSecurityEvents(limit int) ([]model.SecurityEvent, error) {
	if limit < len(s.events) {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *stubEventService) Emit(event string, details map[string]interface{}, reqCtx dto.RequestContext) {
}

type stubGeoService struct{}

func (s *stubGeoService) GetLocationByIP(ip string) (string, error) {
	return "Paris, France", nil
}

func reqBody(body string) *strings.Reader {
	return strings.NewReader(body)
}

func newAdminApp(jwt *stubJWTService, rl *stubRateLimitService, ev *stubEventService) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := shared.GetAppError(err); ok {
				return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
			}
			return shared.ResponseInternalError(c, err)
		},
	})
	h := NewAdminHandler(jwt, rl, ev, &stubGeoService{})

	app.Post("/login", h.Login)
	app.Get("/stats", h.GetStats)
	app.Post("/reset", h.ResetStore)
	app.Get("/limits/:ip", h.GetIPState)
	app.Delete("/limits/:ip", h.ResetIP)
	app.Get("/events", h.GetSecurityEvents)
	return app
}

func TestAdminHandler_LoginPassesSecret(t *testing.T) {
	jwt := &stubJWTService{}
	app := newAdminApp(jwt, &stubRateLimitService{}, &stubEventService{})

	req := httptest.NewRequest("POST", "/login", reqBody(`{"secret":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "s3cret", jwt.secretSeen)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "access_token")
}

func TestAdminHandler_LoginRejectsBadCredentials(t *testing.T) {
	jwt := &stubJWTService{err: shared.NewUnauthorizedError(nil, "Non autorisé")}
	app := newAdminApp(jwt, &stubRateLimitService{}, &stubEventService{})

	req := httptest.NewRequest("POST", "/login", reqBody(`{"secret":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminHandler_StatsReturned(t *testing.T) {
	app := newAdminApp(&stubJWTService{}, &stubRateLimitService{}, &stubEventService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "active_counters")
}

func TestAdminHandler_ResetStore(t *testing.T) {
	rl := &stubRateLimitService{}
	app := newAdminApp(&stubJWTService{}, rl, &stubEventService{})

	resp, err := app.Test(httptest.NewRequest("POST", "/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, rl.resetCalled)
}

func TestAdminHandler_IPStateTracked(t *testing.T) {
	rl := &stubRateLimitService{state: &model.ThreatState{
		SuspiciousAttempts: 4,
		RiskScore:          50,
		BlockedUntil:       time.Now().Add(time.Hour),
	}}
	app := newAdminApp(&stubJWTService{}, rl, &stubEventService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/limits/203.0.113.9", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Paris, France")
	assert.Contains(t, string(body), `"tracked":true`)
	assert.Contains(t, string(body), `"blocked":true`)
}

func TestAdminHandler_IPStateUntracked(t *testing.T) {
	app := newAdminApp(&stubJWTService{}, &stubRateLimitService{}, &stubEventService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/limits/203.0.113.9", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"tracked":false`)
}

func TestAdminHandler_ResetIP(t *testing.T) {
	rl := &stubRateLimitService{}
	app := newAdminApp(&stubJWTService{}, rl, &stubEventService{})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/limits/203.0.113.9", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "203.0.113.9", rl.resetIPCalled)
}

func TestAdminHandler_EventsLimitClamped(t *testing.T) {
	ev := &stubEventService{events: []model.SecurityEvent{
		{ID: "1", Event: shared.EventRateLimitViolation},
		{ID: "2", Event: shared.EventBotDetected},
	}}
	app := newAdminApp(&stubJWTService{}, &stubRateLimitService{}, ev)

	resp, err := app.Test(httptest.NewRequest("GET", "/events?limit=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), shared.EventRateLimitViolation)
	assert.NotContains(t, string(body), shared.EventBotDetected)
}
