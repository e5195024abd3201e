package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgo/tours/api/internal/middleware"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// ============================================================================
// Mock Services
// ============================================================================

type mockTourService struct {
	listFunc        func(ctx context.Context, q query.Query) ([]*model.Tour, error)
	getFunc         func(ctx context.Context, id string) (*model.TourDetail, error)
	createFunc      func(ctx context.Context, input model.TourInput) (*model.Tour, error)
	updateFunc      func(ctx context.Context, id string, patch []byte) (*model.Tour, error)
	deleteFunc      func(ctx context.Context, id string) error
	statsFunc       func(ctx context.Context) ([]model.TourStats, error)
	monthlyPlanFunc func(ctx context.Context, year string) ([]model.MonthlyPlan, error)
	withinFunc      func(ctx context.Context, distance, latlng, unit string) ([]*model.Tour, error)
}

func (m *mockTourService) List(ctx context.Context, q query.Query) ([]*model.Tour, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, q)
	}
	return []*model.Tour{}, nil
}

func (m *mockTourService) Get(ctx context.Context, id string) (*model.TourDetail, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &model.TourDetail{Tour: model.Tour{ID: id}}, nil
}

func (m *mockTourService) Create(ctx context.Context, input model.TourInput) (*model.Tour, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, input)
	}
	return &model.Tour{ID: "new", Name: input.Name}, nil
}

func (m *mockTourService) Update(ctx context.Context, id string, patch []byte) (*model.Tour, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, patch)
	}
	return &model.Tour{ID: id}, nil
}

func (m *mockTourService) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockTourService) Stats(ctx context.Context) ([]model.TourStats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx)
	}
	return []model.TourStats{}, nil
}

func (m *mockTourService) MonthlyPlan(ctx context.Context, year string) ([]model.MonthlyPlan, error) {
	if m.monthlyPlanFunc != nil {
		return m.monthlyPlanFunc(ctx, year)
	}
	return []model.MonthlyPlan{}, nil
}

func (m *mockTourService) Within(ctx context.Context, distance, latlng, unit string) ([]*model.Tour, error) {
	if m.withinFunc != nil {
		return m.withinFunc(ctx, distance, latlng, unit)
	}
	return []*model.Tour{}, nil
}

type mockAuthService struct {
	signupFunc         func(ctx context.Context, req model.SignupRequest) (*model.AuthResult, error)
	loginFunc          func(ctx context.Context, req model.LoginRequest) (*model.AuthResult, error)
	forgotPasswordFunc func(ctx context.Context, req model.ForgotPasswordRequest, resetURLBase string) error
	resetPasswordFunc  func(ctx context.Context, rawToken string, req model.ResetPasswordRequest) (*model.AuthResult, error)
	updatePasswordFunc func(ctx context.Context, userID string, req model.UpdatePasswordRequest) (*model.AuthResult, error)
}

func (m *mockAuthService) Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResult, error) {
	if m.signupFunc != nil {
		return m.signupFunc(ctx, req)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResult, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, req)
	}
	return nil, nil
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest, resetURLBase string) error {
	if m.forgotPasswordFunc != nil {
		return m.forgotPasswordFunc(ctx, req, resetURLBase)
	}
	return nil
}

func (m *mockAuthService) ResetPassword(ctx context.Context, rawToken string, req model.ResetPasswordRequest) (*model.AuthResult, error) {
	if m.resetPasswordFunc != nil {
		return m.resetPasswordFunc(ctx, rawToken, req)
	}
	return nil, nil
}

func (m *mockAuthService) UpdatePassword(ctx context.Context, userID string, req model.UpdatePasswordRequest) (*model.AuthResult, error) {
	if m.updatePasswordFunc != nil {
		return m.updatePasswordFunc(ctx, userID, req)
	}
	return nil, nil
}

type mockUserService struct {
	getFunc      func(ctx context.Context, id string) (*model.User, error)
	listFunc     func(ctx context.Context, q query.Query) ([]*model.User, error)
	updateMeFunc func(ctx context.Context, userID string, req model.UpdateMeRequest) (*model.User, error)
}

func (m *mockUserService) Get(ctx context.Context, id string) (*model.User, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &model.User{ID: id}, nil
}

func (m *mockUserService) List(ctx context.Context, q query.Query) ([]*model.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, q)
	}
	return []*model.User{}, nil
}

func (m *mockUserService) UpdateMe(ctx context.Context, userID string, req model.UpdateMeRequest) (*model.User, error) {
	if m.updateMeFunc != nil {
		return m.updateMeFunc(ctx, userID, req)
	}
	return &model.User{ID: userID}, nil
}

type mockReviewService struct {
	listFunc   func(ctx context.Context, q query.Query) ([]*model.ReviewDetail, error)
	createFunc func(ctx context.Context, userID string, req model.CreateReviewRequest) (*model.Review, *model.RatingSummary, error)
}

func (m *mockReviewService) List(ctx context.Context, q query.Query) ([]*model.ReviewDetail, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, q)
	}
	return []*model.ReviewDetail{}, nil
}

func (m *mockReviewService) Create(ctx context.Context, userID string, req model.CreateReviewRequest) (*model.Review, *model.RatingSummary, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, req)
	}
	return &model.Review{ID: "r1", TourID: req.Tour, UserID: userID}, &model.RatingSummary{Quantity: 1, Average: float64(req.Rating)}, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.err
}

// ============================================================================
// Test Router
// ============================================================================

type testServer struct {
	tours   *mockTourService
	auth    *mockAuthService
	users   *mockUserService
	reviews *mockReviewService
	db      *mockPinger
	mux     *http.ServeMux
}

// newTestServer wires the router with mock services. Protect logs in the
// user passed to the request with asUser; requests without one get a 401.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		tours:   &mockTourService{},
		auth:    &mockAuthService{},
		users:   &mockUserService{},
		reviews: &mockReviewService{},
		db:      &mockPinger{},
	}

	errW := NewErrorWriter(model.ErrorModeSanitized, slog.New(slog.NewTextHandler(io.Discard, nil)))
	protect := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if middleware.GetUser(r.Context()) == nil {
				errW.Write(w, r, model.NewUnauthorizedError(middleware.MsgNotLoggedIn))
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	ts.mux = NewRouter(RouterConfig{
		Tours: NewTourHandler(ts.tours, errW.Write),
		Auth: NewAuthHandler(AuthHandlerConfig{
			AuthService: ts.auth,
			WriteError:  errW.Write,
			Cookie:      CookieConfig{TTL: 90 * 24 * time.Hour},
		}),
		Users:   NewUserHandler(ts.users, errW.Write),
		Reviews: NewReviewHandler(ts.reviews, errW.Write),
		Health:  NewHealthHandler(ts.db),
		Errors:  errW,
		Protect: protect,
	})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.mux.ServeHTTP(rr, req)
	return rr
}

func newRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, user *model.User) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), user))
}

var (
	testUser  = &model.User{ID: "u1", Name: "Laura", Email: "laura@example.com", Role: model.UserRoleUser}
	testAdmin = &model.User{ID: "a1", Name: "Admin", Email: "admin@example.com", Role: model.UserRoleAdmin}
)

type successBody struct {
	Status  string                     `json:"status"`
	Results *int                       `json:"results"`
	Token   string                     `json:"token"`
	Message string                     `json:"message"`
	Data    map[string]json.RawMessage `json:"data"`
}

func decodeSuccess(t *testing.T, rr *httptest.ResponseRecorder) successBody {
	t.Helper()
	var body successBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}
