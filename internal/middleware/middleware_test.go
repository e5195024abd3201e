package middleware

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/forgo/tours/api/internal/model"
)

// ============================================================================
// Chain Tests
// ============================================================================

func TestChain_WrapsOutermostFirst(t *testing.T) {
	t.Parallel()

	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(name))
				next.ServeHTTP(w, r)
				_, _ = w.Write([]byte(name))
			})
		}
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("H"))
	})

	tests := []struct {
		name string
		mws  []Middleware
		want string
	}{
		{"none", nil, "H"},
		{"one", []Middleware{tag("1")}, "1H1"},
		{"three", []Middleware{tag("1"), tag("2"), tag("3")}, "123H321"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rr := httptest.NewRecorder()
			Chain(handler, tt.mws...).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			if rr.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.want)
			}
		})
	}
}

// ============================================================================
// RequestID Tests
// ============================================================================

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
	}{
		{"generated when absent", ""},
		{"kept when supplied", "req-from-gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler := &captureHandler{}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			rr := httptest.NewRecorder()
			RequestID(handler).ServeHTTP(rr, req)

			id := GetRequestID(handler.ctx)
			if rr.Header().Get("X-Request-ID") != id {
				t.Errorf("response header %q does not match context id %q", rr.Header().Get("X-Request-ID"), id)
			}
			if tt.incoming != "" {
				if id != tt.incoming {
					t.Errorf("id = %q, want %q", id, tt.incoming)
				}
				return
			}
			if _, err := uuid.Parse(id); err != nil {
				t.Errorf("generated id %q is not a UUID: %v", id, err)
			}
		})
	}
}

func TestGetRequestID_MissingOrWrongType(t *testing.T) {
	t.Parallel()

	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
	if id := GetRequestID(context.WithValue(context.Background(), RequestIDKey, 12345)); id != "" {
		t.Errorf("expected empty id for a non-string value, got %q", id)
	}
}

// ============================================================================
// Recovery Tests
// ============================================================================

func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantErr    string
	}{
		{
			name: "no panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "panic value reaches the error writer",
			handler:    func(http.ResponseWriter, *http.Request) { panic("tour index corrupt") },
			wantStatus: http.StatusInternalServerError,
			wantErr:    "panic: tour index corrupt",
		},
		{
			name:       "nil panic",
			handler:    func(http.ResponseWriter, *http.Request) { panic(nil) },
			wantStatus: http.StatusInternalServerError,
			wantErr:    "panic:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got error
			writer := func(w http.ResponseWriter, r *http.Request, err error) {
				got = err
				writeTestError(w, r, err)
			}

			rr := httptest.NewRecorder()
			Recovery(writer)(tt.handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			switch {
			case tt.wantErr == "" && got != nil:
				t.Errorf("unexpected error %v", got)
			case tt.wantErr != "" && (got == nil || !strings.Contains(got.Error(), tt.wantErr)):
				t.Errorf("error = %v, want it to contain %q", got, tt.wantErr)
			}
		})
	}
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(http.ErrAbortHandler) })

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	Recovery(writeTestError)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("ErrAbortHandler should not be swallowed")
}

func TestRecovery_BehindRequestID_SanitizedBody(t *testing.T) {
	t.Parallel()

	var seenID string
	writer := func(w http.ResponseWriter, r *http.Request, err error) {
		seenID = GetRequestID(r.Context())
		model.NewInternalError(err).WriteJSON(w, model.ErrorModeSanitized)
	}
	handler := Chain(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("secret detail") }),
		RequestID,
		Recovery(writer),
	)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil))

	if seenID == "" || seenID != rr.Header().Get("X-Request-ID") {
		t.Errorf("error writer saw request id %q, response header %q", seenID, rr.Header().Get("X-Request-ID"))
	}
	if strings.Contains(rr.Body.String(), "secret detail") {
		t.Errorf("panic text leaked into body: %q", rr.Body.String())
	}
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "error" || body.Message != model.GenericErrorMessage {
		t.Errorf("body = %+v, want status error with the generic message", body)
	}
}

// ============================================================================
// CORS Tests
// ============================================================================

func TestCORS_Origins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		allowed   []string
		origin    string
		wantAllow string
	}{
		{"listed origin", []string{"https://natours.dev", "https://admin.natours.dev"}, "https://admin.natours.dev", "https://admin.natours.dev"},
		{"unlisted origin", []string{"https://natours.dev"}, "https://evil.example", ""},
		{"wildcard echoes origin", []string{"*"}, "https://any.example", "https://any.example"},
		{"no origin header", []string{"*"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			CORS(tt.allowed)(&captureHandler{}).ServeHTTP(rr, req)

			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			wantCreds := ""
			if tt.wantAllow != "" {
				wantCreds = "true"
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != wantCreds {
				t.Errorf("Allow-Credentials = %q, want %q", got, wantCreds)
			}
			if rr.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rr.Code)
			}
		})
	}
}

func TestCORS_PreflightAdvertisesApiSurface(t *testing.T) {
	t.Parallel()
	handler := &captureHandler{}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tours/abc", nil)
	req.Header.Set("Origin", "https://natours.dev")
	rr := httptest.NewRecorder()
	CORS([]string{"https://natours.dev"})(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rr.Code)
	}
	if handler.called {
		t.Error("preflight should not reach the handler")
	}
	for header, want := range map[string][]string{
		"Access-Control-Allow-Methods":  {"PATCH", "DELETE"},
		"Access-Control-Allow-Headers":  {"Authorization"},
		"Access-Control-Expose-Headers": {"X-RateLimit-Remaining", "Retry-After"},
	} {
		for _, w := range want {
			if !strings.Contains(rr.Header().Get(header), w) {
				t.Errorf("%s = %q, missing %s", header, rr.Header().Get(header), w)
			}
		}
	}
}

// ============================================================================
// Compress Tests
// ============================================================================

func TestCompress(t *testing.T) {
	t.Parallel()

	const payload = `{"status":"success","results":1,"data":{"tours":[{"name":"The Forest Hiker"}]}}`
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	})

	tests := []struct {
		name     string
		accept   string
		wantGzip bool
	}{
		{"gzip accepted", "gzip, deflate, br", true},
		{"no accept-encoding", "", false},
		{"other encoding only", "br", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Encoding", tt.accept)
			}
			rr := httptest.NewRecorder()
			Compress(handler).ServeHTTP(rr, req)

			body := rr.Body.Bytes()
			if tt.wantGzip {
				if rr.Header().Get("Content-Encoding") != "gzip" {
					t.Fatalf("Content-Encoding = %q, want gzip", rr.Header().Get("Content-Encoding"))
				}
				zr, err := gzip.NewReader(bytes.NewReader(body))
				if err != nil {
					t.Fatalf("gzip reader: %v", err)
				}
				if body, err = io.ReadAll(zr); err != nil {
					t.Fatalf("decompress: %v", err)
				}
			} else if rr.Header().Get("Content-Encoding") != "" {
				t.Errorf("unexpected Content-Encoding %q", rr.Header().Get("Content-Encoding"))
			}
			if string(body) != payload {
				t.Errorf("body = %q, want %q", body, payload)
			}
		})
	}
}

// ============================================================================
// Logger Tests
// ============================================================================

func TestLogger_RecordsRequest(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}),
		RequestID,
		Logger(logger),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	want := map[string]interface{}{
		"msg":        "request",
		"method":     http.MethodPost,
		"path":       "/api/v1/reviews",
		"status":     float64(http.StatusCreated),
		"request_id": "req-42",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("log %s = %v, want %v", k, entry[k], v)
		}
	}
}

// ============================================================================
// SecureHeaders / MaxBody Tests
// ============================================================================

func TestSecureHeaders_SetsHeaders(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	SecureHeaders(&captureHandler{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "SAMEORIGIN",
		"Referrer-Policy":        "no-referrer",
	}
	for h, v := range want {
		if got := rr.Header().Get(h); got != v {
			t.Errorf("%s = %q, want %q", h, got, v)
		}
	}
}

func TestMaxBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"within limit", `{"rating":5}`, false},
		{"over limit", `{"review":"` + strings.Repeat("a", 64) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var (
				read    []byte
				readErr error
			)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				read, readErr = io.ReadAll(r.Body)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(tt.body))
			MaxBody(16)(handler).ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantErr {
				var maxErr *http.MaxBytesError
				if !errors.As(readErr, &maxErr) {
					t.Errorf("err = %v, want *http.MaxBytesError", readErr)
				}
				return
			}
			if readErr != nil || string(read) != tt.body {
				t.Errorf("read %q, %v; want %q", read, readErr, tt.body)
			}
		})
	}
}
