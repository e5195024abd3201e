package handler

import (
	"context"
	"net/http"

	"github.com/forgo/tours/api/internal/middleware"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// ReviewService is the review behavior the handler depends on
type ReviewService interface {
	List(ctx context.Context, q query.Query) ([]*model.ReviewDetail, error)
	Create(ctx context.Context, userID string, req model.CreateReviewRequest) (*model.Review, *model.RatingSummary, error)
}

// ReviewHandler handles review endpoints. Routes nested under a tour take
// the tour from the path.
type ReviewHandler struct {
	reviewService ReviewService
	writeError    middleware.ErrorWriter
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService ReviewService, writeError middleware.ErrorWriter) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		writeError:    writeError,
	}
}

// List handles GET /api/v1/reviews; ?tour={id} narrows to one tour
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	q := query.FromValues(query.Query{}, r.URL.Query())
	if err := q.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	reviews, err := h.reviewService.List(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := WriteCollection(w, "reviews", reviews, len(reviews), q.Fields); err != nil {
		h.writeError(w, r, err)
	}
}

// Create handles POST /api/v1/reviews and POST /api/v1/tours/{id}/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReviewRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if tourID := r.PathValue("id"); tourID != "" {
		req.Tour = tourID
	}

	review, ratings, err := h.reviewService.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, Envelope{
		Status: StatusSuccess,
		Data: map[string]interface{}{
			"review":  review,
			"ratings": ratings,
		},
	})
}
