package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

// DefaultExpiration is used when Config.Expiration is zero
const DefaultExpiration = 90 * 24 * time.Hour

// Issued-at and expiry are encoded with millisecond fractions so an iat can
// be ordered against a password change in the same second.
func init() {
	gojwt.TimePrecision = time.Millisecond
}

// Claims represents JWT claims
type Claims struct {
	// ID is the user the token was issued to
	ID string `json:"id"`
	gojwt.RegisteredClaims
}

// IssuedAtTime returns the issued-at time, or the zero time if absent
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// Service handles JWT operations
type Service struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

// Config holds JWT service configuration
type Config struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

// NewService creates a new JWT service. An empty secret is accepted here and
// reported by Sign and Validate so that misconfiguration surfaces as a 500.
func NewService(cfg Config) *Service {
	if cfg.Expiration <= 0 {
		cfg.Expiration = DefaultExpiration
	}
	return &Service{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: cfg.Expiration,
		now:        time.Now,
	}
}

// NewTestService creates a JWT service with a fixed clock.
// This should only be used in tests, not in production code
func NewTestService(secret, issuer string, expiration time.Duration, now func() time.Time) *Service {
	s := NewService(Config{Secret: secret, Issuer: issuer, Expiration: expiration})
	if now != nil {
		s.now = now
	}
	return s
}

// Sign creates an HS256 token for userID
func (s *Service) Sign(userID string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := s.now()
	claims := Claims{
		ID: userID,
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(s.expiration)),
		},
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate validates a JWT token and returns the claims
func (s *Service) Validate(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithExpirationRequired(),
		gojwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := gojwt.ParseWithClaims(tokenString, claims, func(t *gojwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetExpiration returns the token expiration duration
func (s *Service) GetExpiration() time.Duration {
	return s.expiration
}
