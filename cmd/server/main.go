package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/forgo/tours/api/internal/config"
	"github.com/forgo/tours/api/internal/database"
	"github.com/forgo/tours/api/internal/handler"
	"github.com/forgo/tours/api/internal/jobs"
	"github.com/forgo/tours/api/internal/mail"
	"github.com/forgo/tours/api/internal/middleware"
	"github.com/forgo/tours/api/internal/repository"
	"github.com/forgo/tours/api/internal/repository/mongostore"
	"github.com/forgo/tours/api/internal/service"
	"github.com/forgo/tours/api/pkg/jwt"
)

// userStore is what the services, Protect and the sweeper need from users
type userStore interface {
	service.UserRepository
	middleware.UserLoader
	jobs.ExpiredResetTokenStore
}

// stores bundles the repositories of the selected driver
type stores struct {
	users   userStore
	tours   service.TourRepository
	reviews service.ReviewRepository
	pinger  handler.Pinger
	close   func() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logging
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	// Initialize database connection
	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = st.close() }()

	slog.Info("connected to database",
		slog.String("driver", cfg.Database.Driver),
	)

	// Initialize services
	jwtService := jwt.NewService(jwt.Config{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: cfg.JWT.Expiration,
	})
	if cfg.JWT.Secret == "" {
		slog.Warn("JWT_SECRET is empty; protected routes will fail until it is set")
	}

	tokenService := service.NewTokenService(service.TokenServiceConfig{JWTService: jwtService})

	var mailer mail.Mailer = mail.LogMailer{Logger: logger}
	if cfg.Mail.Enabled() {
		mailer = mail.NewSMTPMailer(mail.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			User:     cfg.Mail.User,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	}

	authService := service.NewAuthService(service.AuthServiceConfig{
		UserRepo:     st.users,
		TokenService: tokenService,
		Hasher:       service.NewBcryptHasher(service.DefaultBcryptCost),
		Mailer:       mailer,
		Logger:       logger,
	})
	userService := service.NewUserService(service.UserServiceConfig{UserRepo: st.users})
	tourService := service.NewTourService(service.TourServiceConfig{
		TourRepo:   st.tours,
		UserRepo:   st.users,
		ReviewRepo: st.reviews,
	})
	reviewService := service.NewReviewService(service.ReviewServiceConfig{
		ReviewRepo: st.reviews,
		TourRepo:   st.tours,
	})

	// Initialize handlers
	errW := handler.NewErrorWriter(handler.ErrorModeFor(cfg.Server.Env), logger)

	mux := handler.NewRouter(handler.RouterConfig{
		Tours: handler.NewTourHandler(tourService, errW.Write),
		Auth: handler.NewAuthHandler(handler.AuthHandlerConfig{
			AuthService: authService,
			WriteError:  errW.Write,
			Cookie: handler.CookieConfig{
				Name:   middleware.DefaultTokenCookie,
				TTL:    cfg.JWT.CookieTTL(),
				Secure: cfg.IsProduction(),
			},
			ResetURLBase: cfg.Mail.ResetURLBase,
		}),
		Users:   handler.NewUserHandler(userService, errW.Write),
		Reviews: handler.NewReviewHandler(reviewService, errW.Write),
		Health:  handler.NewHealthHandler(st.pinger),
		Errors:  errW,
		Protect: middleware.Protect(middleware.AuthConfig{
			Tokens:     tokenService,
			Users:      st.users,
			WriteError: errW.Write,
		}),
	})

	// Background jobs
	sweeper := jobs.NewResetTokenSweeper(jobs.ResetTokenSweeperConfig{
		Store:    st.users,
		Interval: cfg.Jobs.ResetTokenSweepInterval,
		Logger:   logger,
	})
	sweeper.Start()
	defer sweeper.Stop()

	// Rate limiting
	limiter, stopLimiter := newLimiter(ctx, cfg.RateLimit)
	defer stopLimiter()

	// Apply global middleware
	wrapped := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(errW.Write),
		middleware.SecureHeaders,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.MaxBody(cfg.Server.MaxBodyBytes),
		middleware.RateLimit(limiter, errW.Write),
		middleware.Compress,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server stopped")
}

// newLogger writes JSON logs to stdout and, when a file is configured, to a
// rotated log file as well.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == config.DriverMongo {
		db := database.NewMongoDB(database.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		})
		if err := db.Connect(ctx); err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db.Database()); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &stores{
			users:   mongostore.NewUserRepository(db.Database()),
			tours:   mongostore.NewTourRepository(db.Database()),
			reviews: mongostore.NewReviewRepository(db.Database()),
			pinger:  db,
			close:   db.Close,
		}, nil
	}

	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Host,
		Port:      cfg.Port,
		User:      cfg.User,
		Password:  cfg.Password,
		Namespace: cfg.Namespace,
		Database:  cfg.Database,
	})
	if err := db.Connect(ctx); err != nil {
		return nil, err
	}
	return &stores{
		users:   repository.NewUserRepository(db),
		tours:   repository.NewTourRepository(db),
		reviews: repository.NewReviewRepository(db),
		pinger:  db,
		close:   db.Close,
	}, nil
}

// newLimiter returns the Redis-backed limiter when REDIS_URL is set and the
// in-memory one otherwise. The returned func releases its resources.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig) (middleware.LimiterStore, func()) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err == nil {
			rdb := redis.NewClient(opts)
			if err = rdb.Ping(ctx).Err(); err == nil {
				slog.Info("rate limiting with redis", slog.String("addr", opts.Addr))
				return middleware.NewRedisLimiterStore(rdb, cfg.Rate, cfg.Window), func() { _ = rdb.Close() }
			}
			_ = rdb.Close()
		}
		slog.Warn("redis unavailable, rate limiting in memory", slog.String("error", err.Error()))
	}

	rl := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate:   cfg.Rate,
		Window: cfg.Window,
		Burst:  cfg.Burst,
	})
	return rl, rl.Stop
}
