package service

import (
	"context"
	"strings"

	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// UserService handles profile reads and updates
type UserService struct {
	userRepo UserRepository
}

// UserServiceConfig holds configuration for the user service
type UserServiceConfig struct {
	UserRepo UserRepository
}

// NewUserService creates a new user service
func NewUserService(cfg UserServiceConfig) *UserService {
	return &UserService{userRepo: cfg.UserRepo}
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List returns users matching q
func (s *UserService) List(ctx context.Context, q query.Query) ([]*model.User, error) {
	return s.userRepo.List(ctx, q)
}

// UpdateMe changes the whitelisted profile fields of the caller. Password
// fields are rejected; they go through AuthService.UpdatePassword.
func (s *UserService) UpdateMe(ctx context.Context, userID string, req model.UpdateMeRequest) (*model.User, error) {
	if req.Password != nil || req.PasswordConfirm != nil {
		return nil, ErrPasswordNotAllowed
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	update := model.UserUpdate{Name: req.Name, Email: req.Email, Photo: req.Photo}
	if update.IsEmpty() {
		return s.Get(ctx, userID)
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
