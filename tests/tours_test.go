package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/testing/fixtures"
	"github.com/forgo/tours/api/internal/testing/helpers"
)

/*
FEATURE: Tours
DOMAIN: Tours

ACCEPTANCE CRITERIA:
===================

AC-TOUR-001: Create Tour
  GIVEN an administrator
  WHEN they create a valid tour
  THEN it is stored with default ratings and a derived durationWeeks
  AND a duplicate name fails with 400

AC-TOUR-002: List With Query Features
  GIVEN several tours
  WHEN a logged in user lists with filter, sort, projection and paging
  THEN only matching tours come back in the requested order and shape

AC-TOUR-003: Top Tours
  GIVEN more than five tours
  WHEN /tours/top is requested
  THEN the five best rated come back, cheapest first on ties

AC-TOUR-004: Get Tour
  GIVEN a tour with a guide and a review
  WHEN it is fetched by id
  THEN guides and reviews are populated
  AND an unknown id fails with 404

AC-TOUR-005: Update and Delete
  GIVEN an administrator and a tour
  WHEN they patch it
  THEN the patch is validated and stored
  AND deleting returns 204 and the tour is gone

AC-TOUR-006: Statistics
  GIVEN tours of several difficulties
  WHEN /tours/stats is requested
  THEN tours rated 4.5 or more are grouped by difficulty

AC-TOUR-007: Monthly Plan
  GIVEN tours with start dates in a year
  WHEN /tours/monthly-plan/{year} is requested
  THEN months are listed with their tour counts and names

AC-TOUR-008: Tours Within Distance
  GIVEN tours in Miami and Los Angeles
  WHEN tours within 100 miles of Miami are requested
  THEN only the Miami tour is returned
*/

func TestTours_Create(t *testing.T) {
	// AC-TOUR-001: Create Tour
	forEachStore(t, func(t *testing.T, a *app) {
		admin := a.fx.CreateAdmin(t)
		body := map[string]interface{}{
			"name":         "The Forest Hiker",
			"duration":     5,
			"maxGroupSize": 25,
			"difficulty":   "easy",
			"price":        397,
			"summary":      "Breathtaking hike through the Canadian Banff National Park",
		}

		resp := helpers.NewRequest(t, http.MethodPost, "/api/v1/tours").
			WithAuth(a.jwt, admin).
			WithBody(body).
			Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusCreated)

		var tour model.Tour
		helpers.DataField(t, resp, "tour", &tour)
		assert.NotEmpty(t, tour.ID)
		assert.Equal(t, model.DefaultRatingsAverage, tour.RatingsAverage)
		assert.Equal(t, 0, tour.RatingsQuantity)
		assert.InDelta(t, 5.0/7.0, tour.DurationWeeks, 0.0001)

		resp = helpers.NewRequest(t, http.MethodPost, "/api/v1/tours").
			WithAuth(a.jwt, admin).
			WithBody(body).
			Do(a.router)
		helpers.AssertError(t, resp, http.StatusBadRequest, "Duplicate field value for name: The Forest Hiker")
	})
}

func TestTours_ListWithQueryFeatures(t *testing.T) {
	// AC-TOUR-002: List With Query Features
	forEachStore(t, func(t *testing.T, a *app) {
		user := a.fx.CreateUser(t)
		a.fx.CreateTour(t, fixtures.TourOpts{Name: "Cheap Easy", Price: 300, Duration: 3})
		a.fx.CreateTour(t, fixtures.TourOpts{Name: "Mid Easy", Price: 500, Duration: 7})
		a.fx.CreateTour(t, fixtures.TourOpts{Name: "Cheap Hard", Price: 200, Duration: 9, Difficulty: model.DifficultyDifficult})
		a.fx.CreateTour(t, fixtures.TourOpts{Name: "Pricey Easy", Price: 1500, Duration: 10})

		var tours []map[string]interface{}
		resp := helpers.NewRequest(t, http.MethodGet,
			"/api/v1/tours?difficulty=easy&price[lt]=1000&sort=-price&fields=name,price").
			WithAuth(a.jwt, user).
			Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusOK)
		helpers.DataField(t, resp, "tours", &tours)

		require.Len(t, tours, 2)
		assert.Equal(t, "Mid Easy", tours[0]["name"])
		assert.Equal(t, "Cheap Easy", tours[1]["name"])
		assert.Contains(t, tours[0], "id")
		assert.NotContains(t, tours[0], "summary")

		// Paging
		resp = helpers.NewRequest(t, http.MethodGet, "/api/v1/tours?sort=price&limit=2&page=2").
			WithAuth(a.jwt, user).
			Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusOK)
		helpers.DataField(t, resp, "tours", &tours)
		require.Len(t, tours, 2)
		assert.Equal(t, "Mid Easy", tours[0]["name"])
		assert.Equal(t, "Pricey Easy", tours[1]["name"])

		// Unknown field operators are rejected
		resp = helpers.NewRequest(t, http.MethodGet, "/api/v1/tours?na$me=x").
			WithAuth(a.jwt, user).
			Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusBadRequest)
	})
}

func TestTours_Top(t *testing.T) {
	// AC-TOUR-003: Top Tours
	forEachStore(t, func(t *testing.T, a *app) {
		for _, p := range []float64{900, 100, 700, 300, 500, 800} {
			a.fx.CreateTour(t, fixtures.TourOpts{Price: p})
		}

		resp := helpers.NewRequest(t, http.MethodGet, "/api/v1/tours/top").Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusOK)

		var tours []map[string]interface{}
		helpers.DataField(t, resp, "tours", &tours)
		require.Len(t, tours, 5)
		prices := make([]float64, 0, len(tours))
		for _, tour := range tours {
			prices = append(prices, tour["price"].(float64))
			assert.NotContains(t, tour, "startDates")
		}
		assert.Equal(t, []float64{100, 300, 500, 700, 800}, prices)
	})
}

func TestTours_Get(t *testing.T) {
	// AC-TOUR-004: Get Tour
	forEachStore(t, func(t *testing.T, a *app) {
		guide := a.fx.CreateUser(t, fixtures.UserOpts{Name: "Lead Guide"})
		reviewer := a.fx.CreateUser(t)
		tour := a.fx.CreateTour(t, fixtures.TourOpts{Guides: []string{guide.ID}})
		a.fx.CreateReview(t, tour, reviewer, 4)

		resp := helpers.NewRequest(t, http.MethodGet, "/api/v1/tours/"+tour.ID).Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusOK)

		var detail model.TourDetail
		helpers.DataField(t, resp, "tour", &detail)
		assert.Equal(t, tour.ID, detail.ID)
		require.Len(t, detail.Guides, 1)
		assert.Equal(t, "Lead Guide", detail.Guides[0].Name)
		require.Len(t, detail.Reviews, 1)
		assert.Equal(t, 4, detail.Reviews[0].Rating)
		assert.Equal(t, 4.0, detail.RatingsAverage)
		assert.Equal(t, 1, detail.RatingsQuantity)

		// Remove the tour, then its id no longer resolves
		admin := a.fx.CreateAdmin(t)
		resp = helpers.NewRequest(t, http.MethodDelete, "/api/v1/tours/"+tour.ID).WithAuth(a.jwt, admin).Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusNoContent)

		resp = helpers.NewRequest(t, http.MethodGet, "/api/v1/tours/"+tour.ID).Do(a.router)
		helpers.AssertError(t, resp, http.StatusNotFound, "No tour found with that ID")
	})
}

func TestTours_UpdateAndDelete(t *testing.T) {
	// AC-TOUR-005: Update and Delete
	forEachStore(t, func(t *testing.T, a *app) {
		admin := a.fx.CreateAdmin(t)
		tour := a.fx.CreateTour(t, fixtures.TourOpts{Duration: 7})

		resp := helpers.NewRequest(t, http.MethodPatch, "/api/v1/tours/"+tour.ID).
			WithAuth(a.jwt, admin).
			WithBody(map[string]interface{}{"duration": 14, "price": 1200, "priceDiscount": 200}).
			Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusOK)

		var updated model.Tour
		helpers.DataField(t, resp, "tour", &updated)
		assert.Equal(t, 14, updated.Duration)
		assert.Equal(t, 2.0, updated.DurationWeeks)
		assert.Equal(t, 1200.0, updated.Price)
		assert.Equal(t, helpers.Float64Ptr(200), updated.PriceDiscount)
		assert.Equal(t, tour.Name, updated.Name)

		// Validators run on update
		resp = helpers.NewRequest(t, http.MethodPatch, "/api/v1/tours/"+tour.ID).
			WithAuth(a.jwt, admin).
			WithBody(map[string]interface{}{"difficulty": "extreme"}).
			Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusBadRequest)

		resp = helpers.NewRequest(t, http.MethodDelete, "/api/v1/tours/"+tour.ID).
			WithAuth(a.jwt, admin).
			Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusNoContent)
		assert.Empty(t, resp.Body.String())

		resp = helpers.NewRequest(t, http.MethodDelete, "/api/v1/tours/"+tour.ID).
			WithAuth(a.jwt, admin).
			Do(a.router)
		helpers.AssertError(t, resp, http.StatusNotFound, "No tour found with that ID")
	})
}

func TestTours_Stats(t *testing.T) {
	// AC-TOUR-006: Statistics
	forEachStore(t, func(t *testing.T, a *app) {
		reviewer := a.fx.CreateUser(t)
		a.fx.CreateTour(t, fixtures.TourOpts{Price: 400})
		a.fx.CreateTour(t, fixtures.TourOpts{Price: 600})
		hard := a.fx.CreateTour(t, fixtures.TourOpts{Price: 2000, Difficulty: model.DifficultyDifficult})
		a.fx.CreateReview(t, hard, reviewer, 2) // drops below the 4.5 cut

		resp := helpers.NewRequest(t, http.MethodGet, "/api/v1/tours/stats").Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusOK)

		var stats []model.TourStats
		helpers.DataField(t, resp, "stats", &stats)
		require.Len(t, stats, 1)
		assert.Equal(t, model.DifficultyEasy, stats[0].Difficulty)
		assert.Equal(t, 2, stats[0].NumTours)
		assert.Equal(t, 500.0, stats[0].AvgPrice)
		assert.Equal(t, 400.0, stats[0].MinPrice)
		assert.Equal(t, 600.0, stats[0].MaxPrice)
	})
}

func TestTours_MonthlyPlan(t *testing.T) {
	// AC-TOUR-007: Monthly Plan
	forEachStore(t, func(t *testing.T, a *app) {
		user := a.fx.CreateUser(t)
		july := func(day int) time.Time { return time.Date(2021, 7, day, 9, 0, 0, 0, time.UTC) }
		a.fx.CreateTour(t, fixtures.TourOpts{Name: "Summer One", StartDates: []time.Time{july(1), july(20)}})
		a.fx.CreateTour(t, fixtures.TourOpts{Name: "Summer Two", StartDates: []time.Time{july(5)}})
		a.fx.CreateTour(t, fixtures.TourOpts{Name: "Spring", StartDates: []time.Time{time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)}})
		a.fx.CreateTour(t, fixtures.TourOpts{Name: "Next Year", StartDates: []time.Time{time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC)}})

		resp := helpers.NewRequest(t, http.MethodGet, "/api/v1/tours/monthly-plan/2021").
			WithAuth(a.jwt, user).
			Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusOK)

		var plan []model.MonthlyPlan
		helpers.DataField(t, resp, "plan", &plan)
		require.Len(t, plan, 2)
		assert.Equal(t, 7, plan[0].Month)
		assert.Equal(t, 3, plan[0].NumTours)
		assert.ElementsMatch(t, []string{"Summer One", "Summer One", "Summer Two"}, plan[0].Tours)
		assert.Equal(t, 3, plan[1].Month)
		assert.Equal(t, 1, plan[1].NumTours)

		resp = helpers.NewRequest(t, http.MethodGet, "/api/v1/tours/monthly-plan/abc").
			WithAuth(a.jwt, user).
			Do(a.router)
		helpers.AssertError(t, resp, http.StatusBadRequest, "Please provide a valid year.")
	})
}

func TestTours_Within(t *testing.T) {
	// AC-TOUR-008: Tours Within Distance
	forEachStore(t, func(t *testing.T, a *app) {
		la := model.NewGeoPoint(-118.2437, 34.0522)
		a.fx.CreateTour(t, fixtures.TourOpts{Name: "Miami Walk"})
		a.fx.CreateTour(t, fixtures.TourOpts{Name: "LA Walk", StartLocation: &la})

		resp := helpers.NewRequest(t, http.MethodGet, "/api/v1/tours/within/100/25.77,-80.19/mi").Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusOK)

		var tours []model.Tour
		helpers.DataField(t, resp, "tours", &tours)
		require.Len(t, tours, 1)
		assert.Equal(t, "Miami Walk", tours[0].Name)

		resp = helpers.NewRequest(t, http.MethodGet, "/api/v1/tours/within/5000/25.77,-80.19/km").Do(a.router)
		helpers.AssertStatus(t, resp, http.StatusOK)
		helpers.DataField(t, resp, "tours", &tours)
		assert.Len(t, tours, 2)
	})
}
