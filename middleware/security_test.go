package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assurea/courtier_api/model"
	"github.com/assurea/courtier_api/services"
	"github.com/assurea/courtier_api/shared"
)

type testHarness struct {
	app     *fiber.App
	invoked *bool
}

func newTestHarness(endpoint model.Endpoint) *testHarness {
	svc := &SecurityMiddleware{
		rateLimitSvc:  services.NewRateLimitService(),
		eventSvc:      &services.SecurityEventService{},
		monitoringSvc: &services.MonitoringService{},
	}

	invoked := false
	// Body limit above the pipeline's own size gate so the 413 decision
	// stays with the middleware under test.
	app := fiber.New(fiber.Config{BodyLimit: model.MaxUploadSize + 1024*1024})
	app.All("/submit", svc.Protect(endpoint), func(c *fiber.Ctx) error {
		invoked = true
		data, _ := c.Locals(shared.SanitizedData).(map[string]string)
		return shared.ResponseOK(c, data)
	})

	return &testHarness{app: app, invoked: &invoked}
}

func contactBody() string {
	return `{"prenom":"Jean","nom":"Dupont","email":"jean@example.com","telephone":"0612345678"}`
}

func postJSON(ip, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/json")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("X-Forwarded-For", ip)
	return req
}

func decodeError(t *testing.T, resp *http.Response) shared.SecurityError {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var secErr shared.SecurityError
	require.NoError(t, json.Unmarshal(body, &secErr))
	return secErr
}

func TestProtect_CleanSubmissionPasses(t *testing.T) {
	h := newTestHarness(model.EndpointContact)

	resp, err := h.app.Test(postJSON("203.0.113.50", contactBody()))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, *h.invoked)

	// Security header bundle plus rate-limit telemetry on success.
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.NotEmpty(t, resp.Header.Get("Strict-Transport-Security"))
	assert.Equal(t, "5", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var wrapped shared.Response
	require.NoError(t, json.Unmarshal(body, &wrapped))
	data, ok := wrapped.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Jean", data["prenom"])
	assert.Equal(t, "0612345678", data["telephone"])
}

func TestProtect_SuspiciousFieldRejected(t *testing.T) {
	h := newTestHarness(model.EndpointContact)
	body := `{"prenom":"<script>alert(1)</script>","nom":"Dupont","email":"jean@example.com","telephone":"0612345678"}`

	resp, err := h.app.Test(postJSON("203.0.113.51", body))
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, *h.invoked)

	secErr := decodeError(t, resp)
	assert.Equal(t, shared.ErrTypeValidationError, secErr.Type)
	assert.NotEmpty(t, secErr.Error)
	// The message never names the matched signature.
	assert.NotContains(t, strings.ToLower(secErr.Error), "script")
}

func TestProtect_ValidationErrorsReturned(t *testing.T) {
	h := newTestHarness(model.EndpointContact)
	body := `{"prenom":"Jean","nom":"Dupont","email":"pas-un-email","telephone":"0612345678"}`

	resp, err := h.app.Test(postJSON("203.0.113.52", body))
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	secErr := decodeError(t, resp)
	assert.Equal(t, shared.ErrTypeValidationError, secErr.Type)
	assert.NotEmpty(t, secErr.Details)
}

func TestProtect_RateLimitExceeded(t *testing.T) {
	h := newTestHarness(model.EndpointContact)

	for i := 0; i < 5; i++ {
		resp, err := h.app.Test(postJSON("203.0.113.53", contactBody()))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
	}

	resp, err := h.app.Test(postJSON("203.0.113.53", contactBody()))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	secErr := decodeError(t, resp)
	assert.Equal(t, shared.ErrTypeRateLimit, secErr.Type)
	assert.Greater(t, secErr.RetryAfter, 0)
}

func TestProtect_RepeatOffenderBlocked(t *testing.T) {
	h := newTestHarness(model.EndpointContact)

	for i := 0; i < 5; i++ {
		resp, err := h.app.Test(postJSON("203.0.113.54", contactBody()))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// Three violations escalate into a block.
	for i := 0; i < 3; i++ {
		resp, err := h.app.Test(postJSON("203.0.113.54", contactBody()))
		require.NoError(t, err)
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	}

	resp, err := h.app.Test(postJSON("203.0.113.54", contactBody()))
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	secErr := decodeError(t, resp)
	assert.Equal(t, shared.ErrTypeIPBlocked, secErr.Type)
}

func TestProtect_MethodNotAllowed(t *testing.T) {
	h := newTestHarness(model.EndpointContact)

	req := httptest.NewRequest(http.MethodGet, "/submit", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0")
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Language", "fr-FR")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("X-Forwarded-For", "203.0.113.55")

	resp, err := h.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	secErr := decodeError(t, resp)
	assert.Equal(t, shared.ErrTypeMethodNotAllowed, secErr.Type)
}

func TestProtect_UnsupportedContentType(t *testing.T) {
	h := newTestHarness(model.EndpointContact)

	req := postJSON("203.0.113.56", "prenom=Jean")
	req.Header.Set("Content-Type", "text/plain")

	resp, err := h.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	secErr := decodeError(t, resp)
	assert.Equal(t, shared.ErrTypeUnsupportedContent, secErr.Type)
}

func TestProtect_OversizedRequest(t *testing.T) {
	h := newTestHarness(model.EndpointContact)

	big := bytes.Repeat([]byte("a"), model.MaxUploadSize+1)
	req := httptest.NewRequest(http.MethodPost, "/submit", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "fr-FR")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("X-Forwarded-For", "203.0.113.57")

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.False(t, *h.invoked)
	secErr := decodeError(t, resp)
	assert.Equal(t, shared.ErrTypeRequestTooLarge, secErr.Type)
}

func TestProtect_MalformedJSON(t *testing.T) {
	h := newTestHarness(model.EndpointContact)

	resp, err := h.app.Test(postJSON("203.0.113.58", `{"prenom": `))
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	secErr := decodeError(t, resp)
	assert.Equal(t, shared.ErrTypeInvalidDataFormat, secErr.Type)
}

func TestProtect_MaliciousBotBlocked(t *testing.T) {
	h := newTestHarness(model.EndpointContact)

	req := postJSON("203.0.113.59", contactBody())
	req.Header.Set("User-Agent", "sqlmap/1.7-dev")

	resp, err := h.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, *h.invoked)
	secErr := decodeError(t, resp)
	assert.Equal(t, shared.ErrTypeBotDetection, secErr.Type)
}

func TestProtect_SearchBotNotHardBlocked(t *testing.T) {
	h := newTestHarness(model.EndpointContact)

	req := postJSON("203.0.113.60", contactBody())
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1)")

	resp, err := h.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, *h.invoked)
}

func TestProtect_MultipartSkipsJSONSanitization(t *testing.T) {
	h := newTestHarness(model.EndpointDevisDocuments)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("reference", "DOC-123"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/submit", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "fr-FR")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("X-Forwarded-For", "203.0.113.61")

	resp, err := h.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, *h.invoked)
}

func TestProtect_WhitelistedIPNeverLimited(t *testing.T) {
	h := newTestHarness(model.EndpointContact)

	for i := 0; i < 30; i++ {
		resp, err := h.app.Test(postJSON("10.0.0.5", contactBody()))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
	}
}
