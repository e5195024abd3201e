// Package fixtures provides test data factories for e2e testing.
//
// Each factory method creates entities with sensible defaults while allowing
// customization via option structs. Factories insert through the same
// repositories the server uses, so they work against either store.
//
// Usage:
//
//	f := fixtures.New(fixtures.Stores{
//	    Users:   repository.NewUserRepository(tdb.DB),
//	    Tours:   repository.NewTourRepository(tdb.DB),
//	    Reviews: repository.NewReviewRepository(tdb.DB),
//	})
//	guide := f.CreateUser(t, fixtures.UserOpts{Role: model.UserRoleAdmin})
//	tour := f.CreateTour(t, fixtures.TourOpts{Guides: []string{guide.ID}})
//	f.CreateReview(t, tour, guide, 5)
package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/tours/api/internal/model"
)

// DefaultPassword is the plaintext password of every fixture user
const DefaultPassword = "test1234"

// UserStore stores users
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
}

// TourStore stores tours
type TourStore interface {
	Create(ctx context.Context, tour *model.Tour) error
}

// ReviewStore stores reviews and returns the recomputed tour rating
type ReviewStore interface {
	Create(ctx context.Context, review *model.Review) (*model.RatingSummary, error)
}

// Stores holds the repositories the factory writes through
type Stores struct {
	Users   UserStore
	Tours   TourStore
	Reviews ReviewStore
}

// Factory creates test entities in the database
type Factory struct {
	stores Stores
}

// New creates a new fixture factory
func New(stores Stores) *Factory {
	return &Factory{stores: stores}
}

// randomID generates a random hex suffix for unique names and emails
func randomID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// passwordHash is computed once at the minimum cost; fixture users all
// share DefaultPassword.
var passwordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// ============================================================================
// User Fixtures
// ============================================================================

// UserOpts customizes user creation
type UserOpts struct {
	Name              string
	Email             string
	Role              model.UserRole
	PasswordChangedAt *time.Time
}

// CreateUser creates a user whose password is DefaultPassword
func (f *Factory) CreateUser(t *testing.T, opts ...UserOpts) *model.User {
	t.Helper()

	var o UserOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	id := randomID()
	if o.Name == "" {
		o.Name = "Test User " + id
	}
	if o.Email == "" {
		o.Email = "user-" + id + "@example.com"
	}
	if o.Role == "" {
		o.Role = model.UserRoleUser
	}

	user := &model.User{
		Name:              o.Name,
		Email:             o.Email,
		Role:              o.Role,
		PasswordHash:      passwordHash,
		PasswordChangedAt: o.PasswordChangedAt,
	}
	if err := f.stores.Users.Create(testCtx(t), user); err != nil {
		t.Fatalf("fixtures: create user: %v", err)
	}
	return user
}

// CreateAdmin creates an administrator
func (f *Factory) CreateAdmin(t *testing.T) *model.User {
	t.Helper()
	return f.CreateUser(t, UserOpts{Role: model.UserRoleAdmin})
}

// ============================================================================
// Tour Fixtures
// ============================================================================

// TourOpts customizes tour creation. Zero fields take defaults.
type TourOpts struct {
	Name          string
	Duration      int
	Difficulty    string
	Price         float64
	StartDates    []time.Time
	StartLocation *model.GeoPoint
	Guides        []string
}

// CreateTour creates a tour with the default rating aggregate
func (f *Factory) CreateTour(t *testing.T, opts ...TourOpts) *model.Tour {
	t.Helper()

	var o TourOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Name == "" {
		o.Name = "Tour " + randomID()
	}
	if o.Duration == 0 {
		o.Duration = 5
	}
	if o.Difficulty == "" {
		o.Difficulty = model.DifficultyEasy
	}
	if o.Price == 0 {
		o.Price = 497
	}
	if o.StartDates == nil {
		o.StartDates = []time.Time{time.Date(2021, 6, 19, 9, 0, 0, 0, time.UTC)}
	}
	if o.StartLocation == nil {
		p := model.NewGeoPoint(-80.185942, 25.774772)
		p.Description = "Miami, USA"
		o.StartLocation = &p
	}

	tour := &model.Tour{
		Name:            o.Name,
		Duration:        o.Duration,
		DurationWeeks:   model.DurationInWeeks(o.Duration),
		MaxGroupSize:    15,
		Difficulty:      o.Difficulty,
		RatingsAverage:  model.DefaultRatingsAverage,
		RatingsQuantity: model.DefaultRatingsQuantity,
		Price:           o.Price,
		Summary:         "A fixture tour",
		ImageCover:      "tour-cover.jpg",
		Images:          []string{},
		StartDates:      o.StartDates,
		StartLocation:   o.StartLocation,
		Locations:       []model.Location{},
		Guides:          o.Guides,
	}
	if tour.Guides == nil {
		tour.Guides = []string{}
	}
	if err := f.stores.Tours.Create(testCtx(t), tour); err != nil {
		t.Fatalf("fixtures: create tour: %v", err)
	}
	return tour
}

// ============================================================================
// Review Fixtures
// ============================================================================

// CreateReview creates a review by author on tour and returns it with the
// tour's recomputed rating.
func (f *Factory) CreateReview(t *testing.T, tour *model.Tour, author *model.User, rating int) (*model.Review, *model.RatingSummary) {
	t.Helper()

	review := &model.Review{
		Review: "Fixture review " + randomID(),
		Rating: rating,
		TourID: tour.ID,
		UserID: author.ID,
	}
	summary, err := f.stores.Reviews.Create(testCtx(t), review)
	if err != nil {
		t.Fatalf("fixtures: create review: %v", err)
	}
	return review, summary
}
