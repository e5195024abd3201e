package handler

import (
	"context"
	"net/http"

	"github.com/forgo/tours/api/internal/middleware"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// TourService is the tour behavior the handler depends on
type TourService interface {
	List(ctx context.Context, q query.Query) ([]*model.Tour, error)
	Get(ctx context.Context, id string) (*model.TourDetail, error)
	Create(ctx context.Context, input model.TourInput) (*model.Tour, error)
	Update(ctx context.Context, id string, patch []byte) (*model.Tour, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) ([]model.TourStats, error)
	MonthlyPlan(ctx context.Context, year string) ([]model.MonthlyPlan, error)
	Within(ctx context.Context, distance, latlng, unit string) ([]*model.Tour, error)
}

// TourHandler handles tour endpoints
type TourHandler struct {
	tourService TourService
	writeError  middleware.ErrorWriter
}

// NewTourHandler creates a new tour handler
func NewTourHandler(tourService TourService, writeError middleware.ErrorWriter) *TourHandler {
	return &TourHandler{
		tourService: tourService,
		writeError:  writeError,
	}
}

// List handles GET /api/v1/tours
func (h *TourHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, query.FromValues(query.Query{}, r.URL.Query()))
}

// Top handles GET /api/v1/tours/top: the five best rated, cheapest first
// on ties
func (h *TourHandler) Top(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	values.Set(query.KeyLimit, model.TopToursLimit)
	values.Set(query.KeySort, model.TopToursSort)
	values.Set(query.KeyFields, model.TopToursFields)
	values.Del(query.KeyPage)

	h.list(w, r, query.FromValues(query.Query{}, values))
}

func (h *TourHandler) list(w http.ResponseWriter, r *http.Request, q query.Query) {
	if err := q.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	tours, err := h.tourService.List(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := WriteCollection(w, "tours", tours, len(tours), q.Fields); err != nil {
		h.writeError(w, r, err)
	}
}

// Get handles GET /api/v1/tours/{id}
func (h *TourHandler) Get(w http.ResponseWriter, r *http.Request) {
	tour, err := h.tourService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, "tour", tour)
}

// Create handles POST /api/v1/tours
func (h *TourHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input model.TourInput
	if err := DecodeJSON(r, &input); err != nil {
		h.writeError(w, r, err)
		return
	}

	tour, err := h.tourService.Create(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteData(w, http.StatusCreated, "tour", tour)
}

// Update handles PATCH /api/v1/tours/{id}
func (h *TourHandler) Update(w http.ResponseWriter, r *http.Request) {
	patch, err := ReadBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tour, err := h.tourService.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, "tour", tour)
}

// Delete handles DELETE /api/v1/tours/{id}
func (h *TourHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tourService.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteNoContent(w)
}

// Stats handles GET /api/v1/tours/stats
func (h *TourHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tourService.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, "stats", stats)
}

// MonthlyPlan handles GET /api/v1/tours/monthly-plan/{year}
func (h *TourHandler) MonthlyPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.tourService.MonthlyPlan(r.Context(), r.PathValue("year"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, "plan", plan)
}

// Within handles GET /api/v1/tours/within/{distance}/{latlng}/{unit}
func (h *TourHandler) Within(w http.ResponseWriter, r *http.Request) {
	tours, err := h.tourService.Within(r.Context(), r.PathValue("distance"), r.PathValue("latlng"), r.PathValue("unit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := WriteCollection(w, "tours", tours, len(tours), query.Projection{}); err != nil {
		h.writeError(w, r, err)
	}
}
