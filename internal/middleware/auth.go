package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/forgo/tours/api/internal/database"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/pkg/jwt"
)

// DefaultTokenCookie is the cookie that carries the identity token
const DefaultTokenCookie = "jwt"

// Authentication failure messages
const (
	MsgNotLoggedIn     = "You are not logged in! Please log in to get access."
	MsgTokenExpired    = "Your token has expired! Please log in again."
	MsgTokenInvalid    = "Invalid token. Please log in again!"
	MsgUserGone        = "The user belonging to this token no longer exists."
	MsgPasswordChanged = "User recently changed password! Please log in again."
	MsgForbidden       = "You do not have permission to perform this action"
)

// TokenVerifier checks an identity token
type TokenVerifier interface {
	VerifyToken(token string) (*jwt.Claims, error)
}

// UserLoader loads the owner of a token
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// AuthConfig holds what Protect needs to authenticate a request
type AuthConfig struct {
	Tokens     TokenVerifier
	Users      UserLoader
	WriteError ErrorWriter
	CookieName string // Default: jwt
}

// Protect requires a valid identity token, read from the token cookie or
// an "Authorization: Bearer" header. The loaded user is put in the context.
func Protect(cfg AuthConfig) Middleware {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultTokenCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, cfg.CookieName)
			if token == "" {
				cfg.WriteError(w, r, model.NewUnauthorizedError(MsgNotLoggedIn))
				return
			}

			claims, err := cfg.Tokens.VerifyToken(token)
			if err != nil {
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					cfg.WriteError(w, r, model.NewUnauthorizedError(MsgTokenExpired))
				case errors.Is(err, jwt.ErrMissingSecret):
					cfg.WriteError(w, r, err)
				default:
					cfg.WriteError(w, r, model.NewUnauthorizedError(MsgTokenInvalid))
				}
				return
			}

			user, err := cfg.Users.GetByID(r.Context(), claims.ID)
			if err != nil {
				var cast *database.CastError
				if errors.As(err, &cast) {
					cfg.WriteError(w, r, model.NewUnauthorizedError(MsgUserGone))
					return
				}
				cfg.WriteError(w, r, err)
				return
			}
			if user == nil {
				cfg.WriteError(w, r, model.NewUnauthorizedError(MsgUserGone))
				return
			}

			if user.ChangedPasswordAfter(claims.IssuedAtTime()) {
				cfg.WriteError(w, r, model.NewUnauthorizedError(MsgPasswordChanged))
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RestrictTo allows only users whose role is one of roles. It must run
// after Protect.
func RestrictTo(writeError ErrorWriter, roles ...model.UserRole) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				writeError(w, r, model.NewUnauthorizedError(MsgNotLoggedIn))
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, model.NewForbiddenError(MsgForbidden))
		})
	}
}

func extractToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" && c.Value != "loggedout" {
		return c.Value
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser extracts the authenticated user from context
func GetUser(ctx context.Context) *model.User {
	if user, ok := ctx.Value(UserKey).(*model.User); ok {
		return user
	}
	return nil
}

// GetUserID extracts the authenticated user ID from context
func GetUserID(ctx context.Context) string {
	if user := GetUser(ctx); user != nil {
		return user.ID
	}
	return ""
}

// GetClaims extracts the JWT claims from context
func GetClaims(ctx context.Context) *jwt.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}
