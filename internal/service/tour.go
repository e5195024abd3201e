package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/forgo/tours/api/internal/database"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// TourRepository defines the interface for tour storage
type TourRepository interface {
	Create(ctx context.Context, tour *model.Tour) error
	GetByID(ctx context.Context, id string) (*model.Tour, error)
	List(ctx context.Context, q query.Query) ([]*model.Tour, error)
	Replace(ctx context.Context, tour *model.Tour) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, minRating float64) ([]model.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error)
	Within(ctx context.Context, w model.WithinQuery) ([]*model.Tour, error)
}

// TourService handles tour business logic
type TourService struct {
	tourRepo   TourRepository
	userRepo   UserRepository
	reviewRepo ReviewRepository
}

// TourServiceConfig holds configuration for the tour service
type TourServiceConfig struct {
	TourRepo   TourRepository
	UserRepo   UserRepository
	ReviewRepo ReviewRepository
}

// NewTourService creates a new tour service
func NewTourService(cfg TourServiceConfig) *TourService {
	return &TourService{
		tourRepo:   cfg.TourRepo,
		userRepo:   cfg.UserRepo,
		reviewRepo: cfg.ReviewRepo,
	}
}

// List returns tours matching q
func (s *TourService) List(ctx context.Context, q query.Query) ([]*model.Tour, error) {
	return s.tourRepo.List(ctx, q)
}

// Get returns a tour with its guides and reviews populated
func (s *TourService) Get(ctx context.Context, id string) (*model.TourDetail, error) {
	tour, err := s.tourRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tour == nil {
		return nil, ErrTourNotFound
	}

	detail := &model.TourDetail{
		Tour:    *tour,
		Guides:  []model.UserSummary{},
		Reviews: []model.Review{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		guides, err := s.userRepo.GetByIDs(gctx, tour.Guides)
		if err != nil {
			return fmt.Errorf("load guides: %w", err)
		}
		detail.Guides = orderedSummaries(tour.Guides, guides)
		return nil
	})
	g.Go(func() error {
		reviews, err := s.reviewRepo.ListByTour(gctx, tour.ID)
		if err != nil {
			return fmt.Errorf("load reviews: %w", err)
		}
		detail.Reviews = reviews
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return detail, nil
}

// orderedSummaries keeps the tour's guide order and drops deleted users
func orderedSummaries(ids []string, users []*model.User) []model.UserSummary {
	byID := make(map[string]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]model.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u.Summary())
		}
	}
	return out
}

// Create validates input and stores a new tour with default ratings
func (s *TourService) Create(ctx context.Context, input model.TourInput) (*model.Tour, error) {
	normalizeTourInput(&input)
	if err := validateTour(input); err != nil {
		return nil, err
	}

	tour := &model.Tour{
		RatingsAverage:  model.DefaultRatingsAverage,
		RatingsQuantity: model.DefaultRatingsQuantity,
	}
	applyTourInput(tour, input)

	if err := s.tourRepo.Create(ctx, tour); err != nil {
		return nil, err
	}
	return tour, nil
}

// Update merges a JSON patch onto the stored tour, validates the merged
// document and replaces it. Fields outside model.TourInput are rejected.
func (s *TourService) Update(ctx context.Context, id string, patch []byte) (*model.Tour, error) {
	tour, err := s.tourRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tour == nil {
		return nil, ErrTourNotFound
	}

	input := tour.Input()
	if err := decodeTourPatch(patch, &input); err != nil {
		return nil, err
	}
	normalizeTourInput(&input)
	if err := validateTour(input); err != nil {
		return nil, err
	}

	applyTourInput(tour, input)
	if err := s.tourRepo.Replace(ctx, tour); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrTourNotFound
		}
		return nil, err
	}
	return tour, nil
}

// Delete removes a tour
func (s *TourService) Delete(ctx context.Context, id string) error {
	if err := s.tourRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrTourNotFound
		}
		return err
	}
	return nil
}

// Stats groups highly rated tours by difficulty
func (s *TourService) Stats(ctx context.Context) ([]model.TourStats, error) {
	return s.tourRepo.Stats(ctx, model.StatsMinRating)
}

// MonthlyPlan counts tour starts per month of the given year
func (s *TourService) MonthlyPlan(ctx context.Context, yearParam string) ([]model.MonthlyPlan, error) {
	year, err := strconv.Atoi(strings.TrimSpace(yearParam))
	if err != nil || year < 1 || year > 9999 {
		return nil, ErrInvalidYear
	}
	return s.tourRepo.MonthlyPlan(ctx, year)
}

// Within returns tours starting inside the circle described by the path
// parameters of /tours/within/{distance}/{latlng}/{unit}
func (s *TourService) Within(ctx context.Context, distance, latlng, unit string) ([]*model.Tour, error) {
	w, err := ParseWithinQuery(distance, latlng, unit)
	if err != nil {
		return nil, err
	}
	return s.tourRepo.Within(ctx, w)
}

// ParseWithinQuery parses distance, "lat,lng" and unit
func ParseWithinQuery(distance, latlng, unit string) (model.WithinQuery, error) {
	var w model.WithinQuery

	parts := strings.Split(latlng, ",")
	if len(parts) != 2 {
		return w, ErrInvalidLatLng
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lngErr != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return w, ErrInvalidLatLng
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(distance), 64)
	if err != nil || d <= 0 {
		return w, ErrInvalidDistance
	}

	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit != model.UnitMiles && unit != model.UnitKilometers {
		return w, ErrInvalidUnit
	}

	return model.WithinQuery{Lat: lat, Lng: lng, Distance: d, Unit: unit}, nil
}

func decodeTourPatch(patch []byte, input *model.TourInput) error {
	dec := json.NewDecoder(bytes.NewReader(patch))
	dec.DisallowUnknownFields()
	if err := dec.Decode(input); err != nil {
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return fmt.Errorf("%w: %s", ErrUnknownTourField, field)
		}
		return err
	}
	return nil
}

func normalizeTourInput(in *model.TourInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Summary = strings.TrimSpace(in.Summary)
	in.Description = strings.TrimSpace(in.Description)
	in.Difficulty = strings.ToLower(strings.TrimSpace(in.Difficulty))
	if in.StartLocation != nil && in.StartLocation.Type == "" {
		in.StartLocation.Type = "Point"
	}
	for i := range in.Locations {
		if in.Locations[i].Type == "" {
			in.Locations[i].Type = "Point"
		}
	}
}

func validateTour(in model.TourInput) error {
	err := validateStruct(in)
	var verr *model.ValidationError
	if err != nil && !errors.As(err, &verr) {
		return err
	}
	if verr == nil {
		verr = &model.ValidationError{}
	}

	if in.PriceDiscount != nil && *in.PriceDiscount >= in.Price {
		verr.Add("priceDiscount", fmt.Sprintf("Discount price (%v) should be below regular price", *in.PriceDiscount))
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func applyTourInput(t *model.Tour, in model.TourInput) {
	t.Name = in.Name
	t.Duration = in.Duration
	t.DurationWeeks = model.DurationInWeeks(in.Duration)
	t.MaxGroupSize = in.MaxGroupSize
	t.Difficulty = in.Difficulty
	t.Price = in.Price
	t.PriceDiscount = in.PriceDiscount
	t.Summary = in.Summary
	t.Description = in.Description
	t.ImageCover = in.ImageCover
	t.Images = nonNil(in.Images)
	t.StartDates = in.StartDates
	t.StartLocation = in.StartLocation
	t.Locations = in.Locations
	t.Guides = nonNil(in.Guides)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
