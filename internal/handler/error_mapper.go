package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/forgo/tours/api/internal/database"
	"github.com/forgo/tours/api/internal/middleware"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
	"github.com/forgo/tours/api/internal/service"
	"github.com/forgo/tours/api/pkg/jwt"
)

// MapServiceError converts any error returned below the handlers into the
// AppError rendered to the client. Unrecognized errors become
// non-operational 500s.
func MapServiceError(err error) *model.AppError {
	if err == nil {
		return nil
	}

	var appErr *model.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	// ===== Storage Errors → 400 =====
	var castErr *database.CastError
	if errors.As(err, &castErr) {
		return wrap(model.NewBadRequestError("Invalid id: "+castErr.Value), err)
	}
	var dupErr *database.DuplicateError
	if errors.As(err, &dupErr) {
		return wrap(model.NewConflictError(
			fmt.Sprintf("Duplicate field value for %s: %s. Please use another value!", dupErr.Field, dupErr.Value)), err)
	}
	var valErr *model.ValidationError
	if errors.As(err, &valErr) {
		return wrap(model.NewFieldsError(valErr.Fields), err)
	}

	switch {
	// ===== Query Errors → 400 =====
	case errors.Is(err, query.ErrInvalidField):
		return wrap(model.NewBadRequestError("Invalid field name in query"), err)

	// ===== Authentication Errors → 400/401 =====
	case errors.Is(err, service.ErrMissingCredentials):
		return model.NewBadRequestError("Please provide email and password!")
	case errors.Is(err, service.ErrInvalidCredentials):
		return model.NewUnauthorizedError("Incorrect email or password")
	case errors.Is(err, service.ErrWrongPassword):
		return model.NewUnauthorizedError("Your current password is wrong.")
	case errors.Is(err, service.ErrInvalidResetToken):
		return model.NewBadRequestError("Token is invalid or has expired")
	case errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrPasswordTooLong):
		return model.NewBadRequestError(capitalize(err.Error()))
	case errors.Is(err, service.ErrPasswordNotAllowed):
		return model.NewBadRequestError("This route is not for password updates. Please use /update-password.")
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.NewUnauthorizedError(middleware.MsgTokenExpired)
	case errors.Is(err, jwt.ErrInvalidToken):
		return model.NewUnauthorizedError(middleware.MsgTokenInvalid)

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrTourNotFound),
		errors.Is(err, service.ErrReviewTourNotFound):
		return model.NewNotFoundError("No tour found with that ID")
	case errors.Is(err, service.ErrUserNotFound):
		return model.NewNotFoundError("No user found with that ID")
	case errors.Is(err, service.ErrNoUserWithEmail):
		return model.NewNotFoundError("There is no user with email address.")

	// ===== Tour Input Errors → 400 =====
	case errors.Is(err, service.ErrUnknownTourField):
		return wrap(model.NewBadRequestError(capitalize(err.Error())), err)
	case errors.Is(err, service.ErrInvalidYear):
		return model.NewBadRequestError("Please provide a valid year.")
	case errors.Is(err, service.ErrInvalidLatLng):
		return model.NewBadRequestError("Please provide latitude and longitude in the format lat,lng.")
	case errors.Is(err, service.ErrInvalidDistance):
		return model.NewBadRequestError("Please provide a positive distance.")
	case errors.Is(err, service.ErrInvalidUnit):
		return model.NewBadRequestError("Please provide a unit of mi or km.")

	// ===== Outbound Failures → 500 (operational) =====
	case errors.Is(err, service.ErrResetEmailFailed):
		return model.NewOperationalInternalError("There was an error sending the email. Try again later!", err)

	// ===== Default → 500 =====
	default:
		return model.NewInternalError(err)
	}
}

func wrap(e *model.AppError, cause error) *model.AppError {
	e.Err = cause
	return e
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// ErrorWriter is the single place errors become responses
type ErrorWriter struct {
	mode   model.ErrorMode
	logger *slog.Logger
}

// NewErrorWriter creates an error writer for the given mode
func NewErrorWriter(mode model.ErrorMode, logger *slog.Logger) *ErrorWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorWriter{mode: mode, logger: logger}
}

// ErrorModeFor selects verbose errors in development
func ErrorModeFor(env string) model.ErrorMode {
	if env == "development" {
		return model.ErrorModeVerbose
	}
	return model.ErrorModeSanitized
}

// Write maps err and writes it. Non-operational errors are logged with
// their original text.
func (e *ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	appErr := MapServiceError(err)
	if appErr == nil {
		return
	}

	if !appErr.Operational || appErr.StatusCode >= http.StatusInternalServerError {
		e.logger.Error("request failed",
			slog.String("error", err.Error()),
			slog.Int("status", appErr.StatusCode),
			slog.Bool("operational", appErr.Operational),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
	}

	appErr.WriteJSON(w, e.mode)
}

// NotFound is the catch-all for unmatched routes
func (e *ErrorWriter) NotFound(w http.ResponseWriter, r *http.Request) {
	e.Write(w, r, model.NewNotFoundError(fmt.Sprintf("Can't find %s on this server!", r.URL.RequestURI())))
}
