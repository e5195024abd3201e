package handler

import (
	"context"
	"net/http"

	"github.com/forgo/tours/api/internal/middleware"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// UserService is the account behavior the handler depends on
type UserService interface {
	Get(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, q query.Query) ([]*model.User, error)
	UpdateMe(ctx context.Context, userID string, req model.UpdateMeRequest) (*model.User, error)
}

// UserHandler handles account endpoints for logged in users
type UserHandler struct {
	userService UserService
	writeError  middleware.ErrorWriter
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService UserService, writeError middleware.ErrorWriter) *UserHandler {
	return &UserHandler{userService: userService, writeError: writeError}
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, "user", user)
}

// UpdateMe handles PATCH /api/v1/users/update-me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateMeRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.userService.UpdateMe(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, "user", user)
}

// List handles GET /api/v1/users (admin)
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := query.FromValues(query.Query{}, r.URL.Query())
	if err := q.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	users, err := h.userService.List(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := WriteCollection(w, "users", users, len(users), q.Fields); err != nil {
		h.writeError(w, r, err)
	}
}
