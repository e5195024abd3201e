package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/tours/api/internal/database"
	"github.com/forgo/tours/api/internal/mail"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
	"github.com/forgo/tours/api/pkg/jwt"
)

// ============================================================================
// Users
// ============================================================================

type mockUserRepo struct {
	mu         sync.Mutex
	users      map[string]*model.User
	nextID     int
	getErr     error
	createErr  error
	passwordAt time.Time
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) add(u *model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		m.nextID++
		u.ID = fmt.Sprintf("u%d", m.nextID)
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepo) copyOf(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.CreatedAt = time.Now().UTC()
	m.add(user)
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyOf(m.users[id]), nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return m.copyOf(u), nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PasswordResetToken == tokenHash && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return m.copyOf(u), nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, m.copyOf(u))
		}
	}
	return out, nil
}

func (m *mockUserRepo) List(ctx context.Context, q query.Query) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.User{}
	for _, u := range m.users {
		out = append(out, m.copyOf(u))
	}
	return out, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Photo != nil {
		u.Photo = *update.Photo
	}
	return m.copyOf(u), nil
}

func (m *mockUserRepo) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.PasswordResetToken = tokenHash
	u.PasswordResetExpires = &expires
	return nil
}

func (m *mockUserRepo) ClearResetToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	m.passwordAt = changedAt
	return nil
}

// ============================================================================
// Tours
// ============================================================================

type mockTourRepo struct {
	tours       map[string]*model.Tour
	replaced    *model.Tour
	createErr   error
	statsMin    float64
	plannedYear int
	within      *model.WithinQuery
}

func newMockTourRepo(tours ...*model.Tour) *mockTourRepo {
	m := &mockTourRepo{tours: make(map[string]*model.Tour)}
	for _, t := range tours {
		m.tours[t.ID] = t
	}
	return m
}

func (m *mockTourRepo) Create(ctx context.Context, tour *model.Tour) error {
	if m.createErr != nil {
		return m.createErr
	}
	tour.ID = fmt.Sprintf("t%d", len(m.tours)+1)
	tour.CreatedAt = time.Now().UTC()
	c := *tour
	m.tours[tour.ID] = &c
	return nil
}

func (m *mockTourRepo) GetByID(ctx context.Context, id string) (*model.Tour, error) {
	if id == "bad-id" {
		return nil, &database.CastError{Value: id}
	}
	t, ok := m.tours[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (m *mockTourRepo) List(ctx context.Context, q query.Query) ([]*model.Tour, error) {
	out := []*model.Tour{}
	for _, t := range m.tours {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTourRepo) Replace(ctx context.Context, tour *model.Tour) error {
	if _, ok := m.tours[tour.ID]; !ok {
		return database.ErrNotFound
	}
	tour.Version++
	c := *tour
	m.tours[tour.ID] = &c
	m.replaced = &c
	return nil
}

func (m *mockTourRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.tours[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.tours, id)
	return nil
}

func (m *mockTourRepo) Stats(ctx context.Context, minRating float64) ([]model.TourStats, error) {
	m.statsMin = minRating
	return []model.TourStats{}, nil
}

func (m *mockTourRepo) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error) {
	m.plannedYear = year
	return []model.MonthlyPlan{}, nil
}

func (m *mockTourRepo) Within(ctx context.Context, w model.WithinQuery) ([]*model.Tour, error) {
	m.within = &w
	return []*model.Tour{}, nil
}

// ============================================================================
// Reviews
// ============================================================================

type mockReviewRepo struct {
	mu      sync.Mutex
	reviews []model.Review
	listErr error
}

func (m *mockReviewRepo) Create(ctx context.Context, review *model.Review) (*model.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	review.ID = fmt.Sprintf("r%d", len(m.reviews)+1)
	review.CreatedAt = time.Now().UTC()
	m.reviews = append(m.reviews, *review)

	var n, sum int
	for _, r := range m.reviews {
		if r.TourID == review.TourID {
			n++
			sum += r.Rating
		}
	}
	summary := model.RatingFromStats(n, float64(sum)/float64(n))
	return &summary, nil
}

func (m *mockReviewRepo) List(ctx context.Context, q query.Query) ([]*model.ReviewDetail, error) {
	return []*model.ReviewDetail{}, nil
}

func (m *mockReviewRepo) ListByTour(ctx context.Context, tourID string) ([]model.Review, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Review{}
	for _, r := range m.reviews {
		if r.TourID == tourID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ============================================================================
// Collaborators
// ============================================================================

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

var errMailDown = errors.New("smtp: connection refused")

func newTestTokenService(now func() time.Time) *TokenService {
	return NewTokenService(TokenServiceConfig{
		JWTService: jwt.NewTestService("test-secret-that-is-long-enough-123", "tours-test", time.Hour, now),
		Now:        now,
	})
}

func newTestAuthService(users *mockUserRepo, mailer *fakeMailer, now func() time.Time) *AuthService {
	return NewAuthService(AuthServiceConfig{
		UserRepo:     users,
		TokenService: newTestTokenService(now),
		Hasher:       NewBcryptHasher(bcrypt.MinCost),
		Mailer:       mailer,
		Now:          now,
	})
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
