// Package config manages application configuration for the Tours API.
//
// Configuration is read from environment variables. When the file named by
// CONFIG_FILE (default config.env) exists it is loaded first with godotenv;
// variables already present in the environment are not overwritten.
//
//	cfg, err := config.Load()
//	if err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - ServerConfig: port, environment, timeouts, CORS origins, body limit
//   - DatabaseConfig: driver selection plus SurrealDB and MongoDB settings
//   - JWTConfig: signing secret, token lifetime, cookie lifetime
//   - MailConfig: SMTP relay for password reset mail
//   - RateLimitConfig: requests per window, optional Redis store
//   - LogConfig: level and optional rotated log file
//
// # Environment Variables
//
//	PORT                   - HTTP server port (default: 4000)
//	NODE_ENV               - development, production or test
//	DB_DRIVER              - surrealdb (default) or mongodb
//	DB_HOST, DB_PORT       - SurrealDB address
//	MONGO_URI              - MongoDB connection string
//	JWT_SECRET             - HMAC signing secret
//	JWT_EXPIRES_IN         - token lifetime, e.g. 90d or 24h
//	JWT_COOKIE_EXPIRES_IN  - cookie lifetime in days
//	EMAIL_HOST, EMAIL_PORT - SMTP relay; unset logs mail instead
//	RATE_LIMIT_MAX         - requests per window per client (default: 100)
//	REDIS_URL              - shares the rate limit window across instances
//	LOG_LEVEL, LOG_FILE    - log level and rotated log file
//	RESET_TOKEN_SWEEP_INTERVAL - how often expired reset tokens are cleared
package config
