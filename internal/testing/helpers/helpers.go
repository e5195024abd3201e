// Package helpers provides common test utilities for e2e testing.
//
// This package includes HTTP request builders, response validators,
// and assertion helpers for testing API endpoints.
package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/pkg/jwt"
)

// ============================================================================
// JWT Helpers
// ============================================================================

// TestSecret signs every token issued by NewTestJWTService
const TestSecret = "test-secret-that-is-at-least-32-characters"

// TestIssuer is the issuer of test tokens
const TestIssuer = "tours-test"

// JWTHelper signs identity tokens for tests
type JWTHelper struct {
	service *jwt.Service
	now     func() time.Time
}

// NewJWTHelper creates a JWT helper sharing the secret of NewTestJWTService
func NewJWTHelper(t *testing.T) *JWTHelper {
	t.Helper()
	return &JWTHelper{service: NewTestJWTService(t), now: time.Now}
}

// GenerateToken creates a valid token for user
func (h *JWTHelper) GenerateToken(user *model.User) string {
	token, err := h.service.Sign(user.ID)
	if err != nil {
		panic("helpers: sign token: " + err.Error())
	}
	return token
}

// GenerateTokenAt creates a token that looks issued at the given time and
// expires after ttl.
func GenerateTokenAt(t *testing.T, user *model.User, issuedAt time.Time, ttl time.Duration) string {
	t.Helper()
	svc := jwt.NewTestService(TestSecret, TestIssuer, ttl, func() time.Time { return issuedAt })
	token, err := svc.Sign(user.ID)
	if err != nil {
		t.Fatalf("helpers: sign token: %v", err)
	}
	return token
}

// GenerateExpiredToken creates a token that expired an hour ago
func (h *JWTHelper) GenerateExpiredToken(t *testing.T, user *model.User) string {
	t.Helper()
	return GenerateTokenAt(t, user, h.now().Add(-2*time.Hour), time.Hour)
}

// NewTestJWTService creates a JWT service with the shared test secret
func NewTestJWTService(t *testing.T) *jwt.Service {
	t.Helper()
	return jwt.NewTestService(TestSecret, TestIssuer, time.Hour, nil)
}

// ============================================================================
// Request Helpers
// ============================================================================

// RequestBuilder helps construct HTTP requests for testing
type RequestBuilder struct {
	t       *testing.T
	method  string
	path    string
	body    interface{}
	raw     []byte
	cookies []*http.Cookie
	token   string
}

// NewRequest creates a new request builder
func NewRequest(t *testing.T, method, path string) *RequestBuilder {
	t.Helper()
	return &RequestBuilder{
		t:      t,
		method: method,
		path:   path,
	}
}

// WithBody sets the request body (will be JSON encoded)
func (rb *RequestBuilder) WithBody(body interface{}) *RequestBuilder {
	rb.body = body
	return rb
}

// WithRawBody sets the request body verbatim
func (rb *RequestBuilder) WithRawBody(body string) *RequestBuilder {
	rb.raw = []byte(body)
	return rb
}

// WithAuth sends a freshly signed bearer token for user
func (rb *RequestBuilder) WithAuth(h *JWTHelper, user *model.User) *RequestBuilder {
	rb.token = h.GenerateToken(user)
	return rb
}

// WithToken sends token as a bearer token
func (rb *RequestBuilder) WithToken(token string) *RequestBuilder {
	rb.token = token
	return rb
}

// WithCookie attaches a cookie, usually the token cookie from a login
func (rb *RequestBuilder) WithCookie(c *http.Cookie) *RequestBuilder {
	rb.cookies = append(rb.cookies, c)
	return rb
}

// Build creates the HTTP request
func (rb *RequestBuilder) Build() *http.Request {
	rb.t.Helper()

	var bodyReader io.Reader
	switch {
	case rb.raw != nil:
		bodyReader = bytes.NewReader(rb.raw)
	case rb.body != nil:
		bodyBytes, err := json.Marshal(rb.body)
		if err != nil {
			rb.t.Fatalf("helpers: failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(rb.method, rb.path, bodyReader)
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range rb.cookies {
		req.AddCookie(c)
	}
	if rb.token != "" {
		req.Header.Set("Authorization", "Bearer "+rb.token)
	}
	return req
}

// Do builds the request and serves it with h
func (rb *RequestBuilder) Do(h http.Handler) *httptest.ResponseRecorder {
	rb.t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, rb.Build())
	return rr
}

// ============================================================================
// Response Assertion Helpers
// ============================================================================

// Envelope is the decoded body of a success response
type Envelope struct {
	Status  string                     `json:"status"`
	Results *int                       `json:"results"`
	Token   string                     `json:"token"`
	Message string                     `json:"message"`
	Data    map[string]json.RawMessage `json:"data"`
}

// ErrorBody is the decoded body of an error response
type ErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, resp *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if resp.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, resp.Code, resp.Body.String())
	}
}

// AssertError validates the status, status class and message of an error
// response. The message is matched as a substring.
func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedStatus int, message string) {
	t.Helper()
	AssertStatus(t, resp, expectedStatus)

	var body ErrorBody
	DecodeResponse(t, resp, &body)

	wantClass := model.StatusError
	if expectedStatus >= 400 && expectedStatus < 500 {
		wantClass = model.StatusFail
	}
	if body.Status != wantClass {
		t.Errorf("expected status class %q, got %q", wantClass, body.Status)
	}
	if !strings.Contains(body.Message, message) {
		t.Errorf("expected message containing %q, got %q", message, body.Message)
	}
}

// DecodeResponse decodes a JSON response body into v
func DecodeResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), v); err != nil {
		t.Fatalf("helpers: failed to decode response: %v. Body: %s", err, resp.Body.String())
	}
}

// DecodeEnvelope decodes a success response
func DecodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	DecodeResponse(t, resp, &env)
	if env.Status != "success" {
		t.Errorf("expected status success, got %q", env.Status)
	}
	return env
}

// DataField decodes data[key] of a success response into v
func DataField(t *testing.T, resp *httptest.ResponseRecorder, key string, v interface{}) {
	t.Helper()
	env := DecodeEnvelope(t, resp)
	raw, ok := env.Data[key]
	if !ok {
		t.Fatalf("helpers: response data has no %q. Body: %s", key, resp.Body.String())
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("helpers: failed to decode data.%s: %v", key, err)
	}
}

// TokenCookie returns the identity token cookie set by the response
func TokenCookie(t *testing.T, resp *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range resp.Result().Cookies() {
		if c.Name == "jwt" {
			return c
		}
	}
	t.Fatalf("helpers: no jwt cookie in response")
	return nil
}

// ============================================================================
// Utility Helpers
// ============================================================================

// Float64Ptr returns a pointer to f
func Float64Ptr(f float64) *float64 {
	return &f
}

// NewTestContext returns a context that times out after ten seconds and is
// cancelled when the test finishes
func NewTestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
