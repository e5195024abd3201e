package handler

import (
	"net/http"

	"github.com/forgo/tours/api/internal/middleware"
	"github.com/forgo/tours/api/internal/model"
)

// APIPrefix is the mount point of every resource route
const APIPrefix = "/api/v1"

// RouterConfig holds everything the route table needs
type RouterConfig struct {
	Tours   *TourHandler
	Auth    *AuthHandler
	Users   *UserHandler
	Reviews *ReviewHandler
	Health  *HealthHandler
	Errors  *ErrorWriter

	// Protect authenticates the request; it usually comes from
	// middleware.Protect.
	Protect middleware.Middleware
}

// NewRouter registers every route on a new ServeMux. Unmatched paths get
// the catch-all 404.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		return cfg.Protect(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return cfg.Protect(middleware.RestrictTo(cfg.Errors.Write, model.UserRoleAdmin)(h))
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", cfg.Health.Health)

	// Tour endpoints
	mux.Handle("GET "+APIPrefix+"/tours", protect(cfg.Tours.List))
	mux.HandleFunc("GET "+APIPrefix+"/tours/top", cfg.Tours.Top)
	mux.HandleFunc("GET "+APIPrefix+"/tours/stats", cfg.Tours.Stats)
	mux.Handle("GET "+APIPrefix+"/tours/monthly-plan/{year}", protect(cfg.Tours.MonthlyPlan))
	mux.HandleFunc("GET "+APIPrefix+"/tours/within/{distance}/{latlng}/{unit}", cfg.Tours.Within)
	mux.HandleFunc("GET "+APIPrefix+"/tours/{id}", cfg.Tours.Get)
	mux.Handle("POST "+APIPrefix+"/tours", admin(cfg.Tours.Create))
	mux.Handle("PATCH "+APIPrefix+"/tours/{id}", admin(cfg.Tours.Update))
	mux.Handle("DELETE "+APIPrefix+"/tours/{id}", admin(cfg.Tours.Delete))

	// A nested GET would collide with monthly-plan/{year}; list a tour's
	// reviews with GET /reviews?tour={id}.
	mux.Handle("POST "+APIPrefix+"/tours/{id}/reviews", protect(cfg.Reviews.Create))

	// Auth endpoints (public)
	mux.HandleFunc("POST "+APIPrefix+"/users/signup", cfg.Auth.Signup)
	mux.HandleFunc("POST "+APIPrefix+"/users/login", cfg.Auth.Login)
	mux.HandleFunc("GET "+APIPrefix+"/users/logout", cfg.Auth.Logout)
	mux.HandleFunc("POST "+APIPrefix+"/users/forgot-password", cfg.Auth.ForgotPassword)
	mux.HandleFunc("PATCH "+APIPrefix+"/users/reset-password/{token}", cfg.Auth.ResetPassword)

	// Account endpoints
	mux.Handle("PATCH "+APIPrefix+"/users/update-password", protect(cfg.Auth.UpdatePassword))
	mux.Handle("GET "+APIPrefix+"/users/me", protect(cfg.Users.Me))
	mux.Handle("PATCH "+APIPrefix+"/users/update-me", protect(cfg.Users.UpdateMe))
	mux.Handle("GET "+APIPrefix+"/users", admin(cfg.Users.List))

	// Review endpoints
	mux.Handle("GET "+APIPrefix+"/reviews", protect(cfg.Reviews.List))
	mux.Handle("POST "+APIPrefix+"/reviews", protect(cfg.Reviews.Create))

	mux.HandleFunc("/", cfg.Errors.NotFound)

	return mux
}
