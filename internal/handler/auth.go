package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/forgo/tours/api/internal/middleware"
	"github.com/forgo/tours/api/internal/model"
)

// AuthService is the authentication behavior the handler depends on
type AuthService interface {
	Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResult, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.AuthResult, error)
	ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest, resetURLBase string) error
	ResetPassword(ctx context.Context, rawToken string, req model.ResetPasswordRequest) (*model.AuthResult, error)
	UpdatePassword(ctx context.Context, userID string, req model.UpdatePasswordRequest) (*model.AuthResult, error)
}

// AuthHandler handles signup, login and password endpoints
type AuthHandler struct {
	authService  AuthService
	writeError   middleware.ErrorWriter
	cookie       CookieConfig
	resetURLBase string
	now          func() time.Time
}

// AuthHandlerConfig holds dependencies for the auth handler
type AuthHandlerConfig struct {
	AuthService AuthService
	WriteError  middleware.ErrorWriter
	Cookie      CookieConfig
	// ResetURLBase is prefixed to the raw reset token in emails. When empty
	// it is derived from the request host.
	ResetURLBase string
	Now          func() time.Time
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AuthHandler{
		authService:  cfg.AuthService,
		writeError:   cfg.WriteError,
		cookie:       cfg.Cookie,
		resetURLBase: cfg.ResetURLBase,
		now:          cfg.Now,
	}
}

// Signup handles POST /api/v1/users/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.sendToken(w, http.StatusCreated, result)
}

// Login handles POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.sendToken(w, http.StatusOK, result)
}

// Logout handles GET /api/v1/users/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookie.Clear(w, h.now())
	WriteJSON(w, http.StatusOK, map[string]string{"status": StatusSuccess})
}

// ForgotPassword handles POST /api/v1/users/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ForgotPasswordRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req, h.resetBase(r)); err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  StatusSuccess,
		"message": "Token sent to email!",
	})
}

// ResetPassword handles PATCH /api/v1/users/reset-password/{token}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ResetPasswordRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.authService.ResetPassword(r.Context(), r.PathValue("token"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.sendToken(w, http.StatusOK, result)
}

// UpdatePassword handles PATCH /api/v1/users/update-password
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req model.UpdatePasswordRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.authService.UpdatePassword(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.sendToken(w, http.StatusOK, result)
}

func (h *AuthHandler) sendToken(w http.ResponseWriter, status int, result *model.AuthResult) {
	h.cookie.Set(w, result.Token, h.now())
	WriteJSON(w, status, Envelope{
		Status: StatusSuccess,
		Token:  result.Token,
		Data:   map[string]interface{}{"user": result.User},
	})
}

func (h *AuthHandler) resetBase(r *http.Request) string {
	if h.resetURLBase != "" {
		return h.resetURLBase
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/api/v1/users/reset-password"
}
