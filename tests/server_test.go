// Package tests contains end-to-end acceptance tests for the Tours API.
//
// These tests run the full router, real services and real repositories
// against a SurrealDB instance, and against MongoDB when TEST_MONGO_URI is
// set. Tests are skipped when the database is unreachable.
//
// To run tests:
//  1. Start SurrealDB: surreal start memory -A --user root --pass root
//  2. Optionally start MongoDB and export TEST_MONGO_URI=mongodb://localhost:27017
//  3. Run tests: go test ./tests/...
//
// Environment variables:
//
//	TEST_DB_HOST     - SurrealDB host (default: localhost)
//	TEST_DB_PORT     - SurrealDB port (default: 8000)
//	TEST_DB_USER     - SurrealDB username (default: root)
//	TEST_DB_PASSWORD - SurrealDB password (default: root)
//	TEST_MONGO_URI   - MongoDB connection string (mongo tests only)
package tests

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/tours/api/internal/handler"
	"github.com/forgo/tours/api/internal/jobs"
	"github.com/forgo/tours/api/internal/mail"
	"github.com/forgo/tours/api/internal/middleware"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/repository"
	"github.com/forgo/tours/api/internal/repository/mongostore"
	"github.com/forgo/tours/api/internal/service"
	"github.com/forgo/tours/api/internal/testing/fixtures"
	"github.com/forgo/tours/api/internal/testing/helpers"
	"github.com/forgo/tours/api/internal/testing/testdb"
)

// userStore is what the services, Protect and the sweeper need from users
type userStore interface {
	service.UserRepository
	middleware.UserLoader
	jobs.ExpiredResetTokenStore
}

// stores bundles the repositories of one driver
type stores struct {
	users   userStore
	tours   service.TourRepository
	reviews service.ReviewRepository
	pinger  handler.Pinger
}

// app is a running router with its fixtures
type app struct {
	router  http.Handler
	fx      *fixtures.Factory
	jwt     *helpers.JWTHelper
	mailbox *mailbox
	stores  stores
}

// mailbox records every message instead of sending it
type mailbox struct {
	mu   sync.Mutex
	msgs []mail.Message
	err  error
}

func (m *mailbox) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msg)
	return nil
}

// last returns the most recent message
func (m *mailbox) last(t *testing.T) mail.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.msgs) == 0 {
		t.Fatal("no mail sent")
	}
	return m.msgs[len(m.msgs)-1]
}

// resetToken extracts the raw reset token from the last reset email
func (m *mailbox) resetToken(t *testing.T) string {
	t.Helper()
	body := m.last(t).Body
	idx := strings.Index(body, resetURLBase+"/")
	if idx < 0 {
		t.Fatalf("reset url not found in mail body: %s", body)
	}
	rest := body[idx+len(resetURLBase)+1:]
	if end := strings.IndexAny(rest, " \n\r\t"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

const resetURLBase = "http://tours.test/api/v1/users/reset-password"

func surrealStores(t *testing.T) stores {
	t.Helper()
	tdb := testdb.New(t)
	return stores{
		users:   repository.NewUserRepository(tdb.DB),
		tours:   repository.NewTourRepository(tdb.DB),
		reviews: repository.NewReviewRepository(tdb.DB),
		pinger:  tdb.DB,
	}
}

func mongoStores(t *testing.T) stores {
	t.Helper()
	mdb := testdb.NewMongo(t)
	return stores{
		users:   mongostore.NewUserRepository(mdb.DB),
		tours:   mongostore.NewTourRepository(mdb.DB),
		reviews: mongostore.NewReviewRepository(mdb.DB),
		pinger:  mdb.Client,
	}
}

// newApp wires the production router over st with a sanitized error
// writer, a recording mailer and a cheap bcrypt cost.
func newApp(t *testing.T, st stores) *app {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := service.NewTokenService(service.TokenServiceConfig{JWTService: helpers.NewTestJWTService(t)})
	box := &mailbox{}

	authService := service.NewAuthService(service.AuthServiceConfig{
		UserRepo:     st.users,
		TokenService: tokens,
		Hasher:       service.NewBcryptHasher(bcrypt.MinCost),
		Mailer:       box,
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

	errW := handler.NewErrorWriter(model.ErrorModeSanitized, logger)
	mux := handler.NewRouter(handler.RouterConfig{
		Tours: handler.NewTourHandler(tourService, errW.Write),
		Auth: handler.NewAuthHandler(handler.AuthHandlerConfig{
			AuthService:  authService,
			WriteError:   errW.Write,
			Cookie:       handler.CookieConfig{Name: middleware.DefaultTokenCookie, TTL: 90 * 24 * time.Hour},
			ResetURLBase: resetURLBase,
		}),
		Users:   handler.NewUserHandler(userService, errW.Write),
		Reviews: handler.NewReviewHandler(reviewService, errW.Write),
		Health:  handler.NewHealthHandler(st.pinger),
		Errors:  errW,
		Protect: middleware.Protect(middleware.AuthConfig{
			Tokens:     tokens,
			Users:      st.users,
			WriteError: errW.Write,
		}),
	})

	return &app{
		router: middleware.Chain(
			mux,
			middleware.RequestID,
			middleware.Recovery(errW.Write),
		),
		fx: fixtures.New(fixtures.Stores{
			Users:   st.users,
			Tours:   st.tours,
			Reviews: st.reviews,
		}),
		jwt:     helpers.NewJWTHelper(t),
		mailbox: box,
		stores:  st,
	}
}

// newSurrealApp runs the router over SurrealDB
func newSurrealApp(t *testing.T) *app {
	t.Helper()
	return newApp(t, surrealStores(t))
}

// login logs in with the fixture password and returns the token cookie
func (a *app) login(t *testing.T, user *model.User) *http.Cookie {
	t.Helper()
	resp := helpers.NewRequest(t, http.MethodPost, "/api/v1/users/login").
		WithBody(map[string]string{"email": user.Email, "password": fixtures.DefaultPassword}).
		Do(a.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	return helpers.TokenCookie(t, resp)
}

// forEachStore runs fn once per storage driver. Drivers whose database is
// unreachable are skipped.
func forEachStore(t *testing.T, fn func(t *testing.T, a *app)) {
	t.Helper()
	drivers := []struct {
		name string
		open func(t *testing.T) stores
	}{
		{"surrealdb", surrealStores},
		{"mongodb", mongoStores},
	}
	for _, d := range drivers {
		t.Run(d.name, func(t *testing.T) {
			fn(t, newApp(t, d.open(t)))
		})
	}
}
