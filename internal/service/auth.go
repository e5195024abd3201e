package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forgo/tours/api/internal/database"
	"github.com/forgo/tours/api/internal/mail"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	List(ctx context.Context, q query.Query) ([]*model.User, error)
	UpdateProfile(ctx context.Context, id string, update model.UserUpdate) (*model.User, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error
}

// AuthService handles signup, login and password management
type AuthService struct {
	userRepo     UserRepository
	tokenService *TokenService
	hasher       PasswordHasher
	mailer       mail.Mailer
	now          func() time.Time
	logger       *slog.Logger
}

// AuthServiceConfig holds configuration for the auth service
type AuthServiceConfig struct {
	UserRepo     UserRepository
	TokenService *TokenService
	Hasher       PasswordHasher
	Mailer       mail.Mailer
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	if cfg.Hasher == nil {
		cfg.Hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	if cfg.Mailer == nil {
		cfg.Mailer = mail.LogMailer{Logger: cfg.Logger}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AuthService{
		userRepo:     cfg.UserRepo,
		tokenService: cfg.TokenService,
		hasher:       cfg.Hasher,
		mailer:       cfg.Mailer,
		now:          cfg.Now,
		logger:       cfg.Logger,
	}
}

// Signup creates a standard user and logs them in. The role is always
// model.UserRoleUser regardless of the request.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &database.DuplicateError{Field: "email", Value: req.Email}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		Photo:        req.Photo,
		Role:         model.UserRoleUser,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Login verifies email and password and issues a token
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// Same error for unknown email and wrong password
	if user == nil || !s.hasher.Compare(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// ForgotPassword stores a reset token hash and emails the raw token as part
// of resetURLBase. If the email cannot be sent the token is cleared again.
func (s *AuthService) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest, resetURLBase string) error {
	email := normalizeEmail(req.Email)
	if email == "" {
		return ErrNoUserWithEmail
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNoUserWithEmail
	}

	token, err := s.tokenService.NewResetToken()
	if err != nil {
		return err
	}
	if err := s.userRepo.SetResetToken(ctx, user.ID, token.Hash, token.Expires); err != nil {
		return err
	}

	resetURL := strings.TrimRight(resetURLBase, "/") + "/" + token.Raw
	msg := mail.PasswordResetMessage(user.Email, user.Name, resetURL)
	if err := s.mailer.Send(ctx, msg); err != nil {
		if clearErr := s.userRepo.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.ErrorContext(ctx, "failed to clear reset token",
				"user_id", user.ID,
				"error", clearErr,
			)
		}
		return fmt.Errorf("%w: %v", ErrResetEmailFailed, err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of an unexpired reset
// token. The token is cleared so it cannot be used twice.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken string, req model.ResetPasswordRequest) (*model.AuthResult, error) {
	if rawToken == "" {
		return nil, ErrInvalidResetToken
	}

	now := s.now()
	user, err := s.userRepo.GetByResetToken(ctx, HashResetToken(rawToken), now)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidResetToken
	}

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.setPassword(ctx, user, req.Password, now); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// UpdatePassword changes the password of a logged in user after checking
// the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, userID string, req model.UpdatePasswordRequest) (*model.AuthResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !s.hasher.Compare(user.PasswordHash, req.PasswordCurrent) {
		return nil, ErrWrongPassword
	}

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.setPassword(ctx, user, req.Password, s.now()); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// setPassword hashes and stores password. passwordChangedAt is kept at
// millisecond precision, which MongoDB also stores, so the token issued
// right after compares equal or later.
func (s *AuthService) setPassword(ctx context.Context, user *model.User, password string, now time.Time) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	changedAt := now.UTC().Truncate(time.Millisecond)
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash, changedAt); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetToken = ""
	user.PasswordResetExpires = nil
	return nil
}

func (s *AuthService) issue(user *model.User) (*model.AuthResult, error) {
	token, err := s.tokenService.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &model.AuthResult{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
