package model

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Status classes carried by every error response
const (
	StatusFail  = "fail"  // 4xx
	StatusError = "error" // everything else
)

// GenericErrorMessage replaces the text of non-operational errors in
// sanitized mode.
const GenericErrorMessage = "Something went wrong, please try again later."

// ErrorMode selects how much of an error is rendered to the client
type ErrorMode int

const (
	// ErrorModeSanitized echoes operational errors and hides everything else
	ErrorModeSanitized ErrorMode = iota
	// ErrorModeVerbose echoes the full error object and the stack
	ErrorModeVerbose
)

// AppError is the single error shape written to clients.
// Operational errors are expected, client-caused failures; anything else is
// treated as an internal fault.
type AppError struct {
	StatusCode  int
	Status      string
	Message     string
	Operational bool
	Fields      []FieldError
	Err         error
	Stack       string
}

// FieldError represents a validation error on a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil && !e.Operational {
		return fmt.Sprintf("[%d] %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
}

// Unwrap exposes the underlying cause
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an operational error for the given status
func NewAppError(statusCode int, message string) *AppError {
	return &AppError{
		StatusCode:  statusCode,
		Status:      statusClass(statusCode),
		Message:     message,
		Operational: true,
		Stack:       captureStack(3),
	}
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, message)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message)
}

// NewConflictError reports a uniqueness violation. Conflicts are client input
// errors and use 400.
func NewConflictError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message)
}

func NewRateLimitError(retryAfter int) *AppError {
	return NewAppError(http.StatusTooManyRequests,
		fmt.Sprintf("Too many requests from this IP, please try again in %d seconds!", retryAfter))
}

// NewFieldsError reports one or more invalid input fields. The message joins
// every field message.
func NewFieldsError(fields []FieldError) *AppError {
	e := NewAppError(http.StatusBadRequest, joinFieldMessages(fields))
	e.Fields = fields
	return e
}

// NewInternalError wraps an unexpected failure. It is never operational.
func NewInternalError(err error) *AppError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		StatusCode: http.StatusInternalServerError,
		Status:     StatusError,
		Message:    msg,
		Err:        err,
		Stack:      captureStack(3),
	}
}

// NewOperationalInternalError is a 500 whose message is safe to show, such as
// a failed outbound email.
func NewOperationalInternalError(message string, err error) *AppError {
	e := NewAppError(http.StatusInternalServerError, message)
	e.Err = err
	return e
}

// ValidationError collects schema-level failures for an input document
type ValidationError struct {
	Fields []FieldError
}

// Error joins all field messages with " / "
func (v *ValidationError) Error() string {
	return joinFieldMessages(v.Fields)
}

// Add appends a field failure
func (v *ValidationError) Add(field, message string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any field failed
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// Response bodies

type errorBody struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Error   *errorDetail `json:"error,omitempty"`
	Stack   string       `json:"stack,omitempty"`
}

type errorDetail struct {
	StatusCode    int          `json:"statusCode"`
	Status        string       `json:"status"`
	IsOperational bool         `json:"isOperational"`
	Cause         string       `json:"cause,omitempty"`
	Fields        []FieldError `json:"fields,omitempty"`
}

// Body returns the response status and JSON body for the given mode.
// A non-operational error in sanitized mode always collapses to a generic
// 500 with no original text.
func (e *AppError) Body(mode ErrorMode) (int, interface{}) {
	if mode == ErrorModeVerbose {
		detail := &errorDetail{
			StatusCode:    e.StatusCode,
			Status:        e.Status,
			IsOperational: e.Operational,
			Fields:        e.Fields,
		}
		if e.Err != nil {
			detail.Cause = e.Err.Error()
		}
		return e.StatusCode, errorBody{
			Status:  e.Status,
			Message: e.Message,
			Error:   detail,
			Stack:   e.Stack,
		}
	}

	if !e.Operational {
		return http.StatusInternalServerError, errorBody{
			Status:  StatusError,
			Message: GenericErrorMessage,
		}
	}
	return e.StatusCode, errorBody{Status: e.Status, Message: e.Message}
}

// WriteJSON writes the error as a JSON response
func (e *AppError) WriteJSON(w http.ResponseWriter, mode ErrorMode) {
	status, body := e.Body(mode)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusClass(code int) string {
	if code >= 400 && code < 500 {
		return StatusFail
	}
	return StatusError
}

func joinFieldMessages(fields []FieldError) string {
	if len(fields) == 0 {
		return "Invalid input data."
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Message)
	}
	return "Invalid input data. " + strings.Join(msgs, " / ")
}

func captureStack(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}
