package repository

import (
	"context"
	"errors"

	"github.com/forgo/tours/api/internal/database"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// ReviewRepository handles review data access
type ReviewRepository struct {
	db database.Database
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db database.Database) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create stores a review and recomputes the owning tour's rating aggregate
// in the same transaction.
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) (*model.RatingSummary, error) {
	tourKey, err := recordKey(tableTour, review.TourID)
	if err != nil {
		return nil, err
	}
	userKey, err := recordKey(tableUser, review.UserID)
	if err != nil {
		return nil, err
	}
	key := newRecordKey()

	batch := database.NewAtomicBatch()
	batch.Add(`
		CREATE type::thing("review", $key) CONTENT {
			review: $review,
			rating: $rating,
			tour: type::thing("tour", $tour),
			user: type::thing("user", $user),
			createdAt: time::now()
		}
	`, map[string]interface{}{
		"key":    key,
		"review": review.Review,
		"rating": review.Rating,
		"tour":   tourKey,
		"user":   userKey,
	})
	batch.Add(`
		LET $stats = (
			SELECT count() AS n, math::mean(rating) AS avg
			FROM review WHERE tour = type::thing("tour", $tour)
			GROUP ALL
		)
	`, map[string]interface{}{"tour": tourKey})
	batch.Add(`
		UPDATE type::thing("tour", $tour) SET
			ratingsQuantity = $stats[0].n ?? 0,
			ratingsAverage = IF ($stats[0].n ?? 0) > 0 THEN math::fixed($stats[0].avg, 2) ELSE $default END
	`, map[string]interface{}{"tour": tourKey, "default": model.DefaultRatingsAverage})
	batch.Add(`
		SELECT *, (SELECT ratingsQuantity, ratingsAverage FROM ONLY type::thing("tour", $tour)) AS ratings
		FROM type::thing("review", $key)
	`, map[string]interface{}{"tour": tourKey, "key": key})

	result, err := batch.Execute(ctx, r.db)
	if err != nil {
		return nil, err
	}

	records := extractRecords(result)
	if len(records) == 0 {
		return nil, errors.New("no result returned")
	}
	*review = *parseReview(records[0])

	ratings := getMap(records[0], "ratings")
	summary := model.RatingFromStats(getInt(ratings, "ratingsQuantity"), getFloat(ratings, "ratingsAverage"))
	return &summary, nil
}

// List returns reviews matching q with tour and author populated
func (r *ReviewRepository) List(ctx context.Context, q query.Query) ([]*model.ReviewDetail, error) {
	sel, err := buildSelect(reviewSchema, q, "FETCH tour, user")
	if err != nil {
		return nil, err
	}

	result, err := r.db.Query(ctx, sel.SQL, sel.Vars)
	if err != nil {
		return nil, err
	}

	records := extractRecords(result)
	reviews := make([]*model.ReviewDetail, 0, len(records))
	for _, rec := range records {
		reviews = append(reviews, parseReviewDetail(rec))
	}
	return reviews, nil
}

// ListByTour returns every review of a tour, oldest first
func (r *ReviewRepository) ListByTour(ctx context.Context, tourID string) ([]model.Review, error) {
	key, err := recordKey(tableTour, tourID)
	if err != nil {
		return nil, err
	}

	query := `SELECT * FROM review WHERE tour = type::thing("tour", $key) ORDER BY createdAt ASC`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"key": key})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return []model.Review{}, nil
		}
		return nil, err
	}

	records := extractRecords(result)
	reviews := make([]model.Review, 0, len(records))
	for _, rec := range records {
		reviews = append(reviews, *parseReview(rec))
	}
	return reviews, nil
}

func parseReview(data map[string]interface{}) *model.Review {
	return &model.Review{
		ID:        convertSurrealID(data["id"]),
		Review:    getString(data, "review"),
		Rating:    getInt(data, "rating"),
		TourID:    convertSurrealID(data["tour"]),
		UserID:    convertSurrealID(data["user"]),
		CreatedAt: getTime(data, "createdAt"),
	}
}

func parseReviewDetail(data map[string]interface{}) *model.ReviewDetail {
	d := &model.ReviewDetail{
		ID:        convertSurrealID(data["id"]),
		Review:    getString(data, "review"),
		Rating:    getInt(data, "rating"),
		CreatedAt: getTime(data, "createdAt"),
	}
	if data["tour"] != nil {
		d.Tour = &model.TourSummary{ID: convertSurrealID(data["tour"])}
		if m := getMap(data, "tour"); m != nil {
			d.Tour.Name = getString(m, "name")
		}
	}
	if data["user"] != nil {
		d.User = &model.UserSummary{ID: convertSurrealID(data["user"])}
		if m := getMap(data, "user"); m != nil {
			d.User.Name = getString(m, "name")
			d.User.Photo = getString(m, "photo")
		}
	}
	return d
}
