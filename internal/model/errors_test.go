package model

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ============================================================================
// Constructor Tests
// ============================================================================

func TestNewAppError_StatusClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        *AppError
		wantCode   int
		wantStatus string
	}{
		{"bad request", NewBadRequestError("bad"), http.StatusBadRequest, StatusFail},
		{"unauthorized", NewUnauthorizedError("no"), http.StatusUnauthorized, StatusFail},
		{"forbidden", NewForbiddenError("no"), http.StatusForbidden, StatusFail},
		{"not found", NewNotFoundError("gone"), http.StatusNotFound, StatusFail},
		{"conflict", NewConflictError("dup"), http.StatusBadRequest, StatusFail},
		{"rate limit", NewRateLimitError(60), http.StatusTooManyRequests, StatusFail},
		{"internal", NewInternalError(errors.New("boom")), http.StatusInternalServerError, StatusError},
		{"operational internal", NewOperationalInternalError("mail down", nil), http.StatusInternalServerError, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.err.StatusCode != tt.wantCode {
				t.Errorf("expected status code %d, got %d", tt.wantCode, tt.err.StatusCode)
			}
			if tt.err.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, tt.err.Status)
			}
		})
	}
}

func TestNewInternalError_IsNotOperational(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := NewInternalError(cause)

	if err.Operational {
		t.Error("internal error should not be operational")
	}
	if !errors.Is(err, cause) {
		t.Error("internal error should unwrap to its cause")
	}
}

func TestNewAppError_CapturesStack(t *testing.T) {
	t.Parallel()

	err := NewNotFoundError("gone")

	if !strings.Contains(err.Stack, "TestNewAppError_CapturesStack") {
		t.Errorf("stack should include the calling test, got: %s", err.Stack)
	}
}

func TestValidationError_JoinsFieldMessages(t *testing.T) {
	t.Parallel()

	v := &ValidationError{}
	v.Add("name", "A tour name must have less or equal than 40 characters")
	v.Add("difficulty", "Difficulty is either: easy, medium, hard, difficult")

	msg := v.Error()

	want := "Invalid input data. A tour name must have less or equal than 40 characters / Difficulty is either: easy, medium, hard, difficult"
	if msg != want {
		t.Errorf("expected %q, got %q", want, msg)
	}
	if !v.HasErrors() {
		t.Error("expected HasErrors to be true")
	}
}

// ============================================================================
// Rendering Tests
// ============================================================================

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestWriteJSON_Sanitized_OperationalEchoesMessage(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewNotFoundError("No tour found with that ID").WriteJSON(rec, ErrorModeSanitized)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	body := decodeBody(t, rec)
	if body["status"] != "fail" {
		t.Errorf("expected status fail, got %v", body["status"])
	}
	if body["message"] != "No tour found with that ID" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	if _, ok := body["stack"]; ok {
		t.Error("sanitized response should not include a stack")
	}
	if _, ok := body["error"]; ok {
		t.Error("sanitized response should not include the error object")
	}
}

func TestWriteJSON_Sanitized_NonOperationalHidesCause(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewInternalError(errors.New("surrealdb: table tour does not exist")).WriteJSON(rec, ErrorModeSanitized)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	raw := rec.Body.String()
	if strings.Contains(raw, "surrealdb") {
		t.Errorf("sanitized body leaked internal text: %s", raw)
	}

	var body map[string]interface{}
	_ = json.Unmarshal([]byte(raw), &body)
	if body["status"] != "error" {
		t.Errorf("expected status error, got %v", body["status"])
	}
	if body["message"] != GenericErrorMessage {
		t.Errorf("expected generic message, got %v", body["message"])
	}
}

func TestWriteJSON_Verbose_IncludesErrorAndStack(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewInternalError(errors.New("boom")).WriteJSON(rec, ErrorModeVerbose)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["message"] != "boom" {
		t.Errorf("verbose response should echo the message, got %v", body["message"])
	}
	if stack, _ := body["stack"].(string); stack == "" {
		t.Error("verbose response should include a stack")
	}

	detail, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("verbose response should include the error object, got %v", body["error"])
	}
	if detail["isOperational"] != false {
		t.Errorf("expected isOperational false, got %v", detail["isOperational"])
	}
	if detail["cause"] != "boom" {
		t.Errorf("expected cause boom, got %v", detail["cause"])
	}
}

func TestWriteJSON_Verbose_OperationalKeepsStatusCode(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewFieldsError([]FieldError{{Field: "rating", Message: "Rating must be below 5.0"}}).WriteJSON(rec, ErrorModeVerbose)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	detail := body["error"].(map[string]interface{})
	fields, ok := detail["fields"].([]interface{})
	if !ok || len(fields) != 1 {
		t.Errorf("expected one field error, got %v", detail["fields"])
	}
}

// ============================================================================
// Rating Tests
// ============================================================================

func TestRatingFromStats(t *testing.T) {
	t.Parallel()

	empty := RatingFromStats(0, 0)
	if empty.Quantity != 0 || empty.Average != DefaultRatingsAverage {
		t.Errorf("expected defaults for no reviews, got %+v", empty)
	}

	got := RatingFromStats(3, 4.666666)
	if got.Quantity != 3 || got.Average != 4.67 {
		t.Errorf("expected 3 reviews averaging 4.67, got %+v", got)
	}
}
