package service

import (
	"context"
	"strings"

	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// ReviewRepository defines the interface for review storage. Create must
// recompute the owning tour's rating aggregate from all of its reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) (*model.RatingSummary, error)
	List(ctx context.Context, q query.Query) ([]*model.ReviewDetail, error)
	ListByTour(ctx context.Context, tourID string) ([]model.Review, error)
}

// ReviewService handles review business logic
type ReviewService struct {
	reviewRepo ReviewRepository
	tourRepo   TourRepository
}

// ReviewServiceConfig holds configuration for the review service
type ReviewServiceConfig struct {
	ReviewRepo ReviewRepository
	TourRepo   TourRepository
}

// NewReviewService creates a new review service
func NewReviewService(cfg ReviewServiceConfig) *ReviewService {
	return &ReviewService{
		reviewRepo: cfg.ReviewRepo,
		tourRepo:   cfg.TourRepo,
	}
}

// List returns reviews matching q with tour and author populated
func (s *ReviewService) List(ctx context.Context, q query.Query) ([]*model.ReviewDetail, error) {
	return s.reviewRepo.List(ctx, q)
}

// Create stores a review by userID and returns it with the tour's
// recomputed rating aggregate.
func (s *ReviewService) Create(ctx context.Context, userID string, req model.CreateReviewRequest) (*model.Review, *model.RatingSummary, error) {
	req.Review = strings.TrimSpace(req.Review)
	req.Tour = strings.TrimSpace(req.Tour)
	if err := validateStruct(req); err != nil {
		return nil, nil, err
	}

	tour, err := s.tourRepo.GetByID(ctx, req.Tour)
	if err != nil {
		return nil, nil, err
	}
	if tour == nil {
		return nil, nil, ErrReviewTourNotFound
	}

	review := &model.Review{
		Review: req.Review,
		Rating: req.Rating,
		TourID: tour.ID,
		UserID: userID,
	}
	summary, err := s.reviewRepo.Create(ctx, review)
	if err != nil {
		return nil, nil, err
	}
	return review, summary, nil
}
