package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/forgo/tours/api/pkg/jwt"
)

const (
	// DefaultResetTokenTTL bounds how long a password reset link stays valid
	DefaultResetTokenTTL = 10 * time.Minute

	resetTokenBytes = 32
)

// TokenService issues identity tokens and password reset tokens
type TokenService struct {
	jwtService *jwt.Service
	resetTTL   time.Duration
	now        func() time.Time
}

// TokenServiceConfig holds configuration for the token service
type TokenServiceConfig struct {
	JWTService *jwt.Service
	ResetTTL   time.Duration // Default: 10 minutes
	Now        func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(cfg TokenServiceConfig) *TokenService {
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenService{
		jwtService: cfg.JWTService,
		resetTTL:   cfg.ResetTTL,
		now:        cfg.Now,
	}
}

// IssueToken signs an identity token for userID
func (s *TokenService) IssueToken(userID string) (string, error) {
	return s.jwtService.Sign(userID)
}

// VerifyToken checks signature and expiry and returns the claims
func (s *TokenService) VerifyToken(token string) (*jwt.Claims, error) {
	return s.jwtService.Validate(token)
}

// Expiration returns the identity token lifetime
func (s *TokenService) Expiration() time.Duration {
	return s.jwtService.GetExpiration()
}

// ResetToken is a freshly generated password reset token. Raw is handed to
// the user once; only Hash is stored.
type ResetToken struct {
	Raw     string
	Hash    string
	Expires time.Time
}

// NewResetToken generates a random reset token with its storage hash
func (s *TokenService) NewResetToken() (*ResetToken, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	raw := hex.EncodeToString(buf)
	return &ResetToken{
		Raw:     raw,
		Hash:    HashResetToken(raw),
		Expires: s.now().Add(s.resetTTL).UTC(),
	}, nil
}

// HashResetToken returns the SHA-256 hex digest used to look a token up
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
