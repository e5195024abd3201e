// Package middleware provides HTTP middleware for the Tours API.
//
// # Available Middleware
//
//   - RequestID, Logger: request ids and access logs
//   - Recovery: turns a panic into a 500
//   - CORS, SecureHeaders, MaxBody, Compress: edge concerns
//   - Protect, RestrictTo: authentication and role checks
//   - RateLimit: per user or client address limits
//
// Middleware never formats error bodies. Anything that rejects a request
// hands the error to an ErrorWriter supplied by the handler package.
//
// # Authentication
//
// Protect reads the identity token from the jwt cookie, falling back to an
// "Authorization: Bearer" header, verifies it, loads the owning user and
// rejects tokens issued before the user's last password change:
//
//	protect := middleware.Protect(middleware.AuthConfig{
//	    Tokens:     tokenService,
//	    Users:      userRepo,
//	    WriteError: errorWriter.Write,
//	})
//	adminOnly := middleware.RestrictTo(errorWriter.Write, model.UserRoleAdmin)
//
// Handlers read the user with GetUser(ctx) or GetUserID(ctx).
//
// # Rate Limiting
//
// RateLimit takes a LimiterStore. RateLimiter keeps token buckets in memory;
// RedisLimiterStore keeps a fixed window counter in Redis so several
// instances share one budget. A failing store lets requests through.
package middleware
