package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

type reviewDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Review    string             `bson:"review"`
	Rating    int                `bson:"rating"`
	Tour      primitive.ObjectID `bson:"tour"`
	User      primitive.ObjectID `bson:"user"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// reviewDetailDoc is a review after the tour and user lookups
type reviewDetailDoc struct {
	reviewDoc `bson:",inline"`
	TourDocs  []struct {
		ID   primitive.ObjectID `bson:"_id"`
		Name string             `bson:"name"`
	} `bson:"tourDocs"`
	UserDocs []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Name  string             `bson:"name"`
		Photo string             `bson:"photo"`
	} `bson:"userDocs"`
}

// ReviewRepository stores reviews in MongoDB
type ReviewRepository struct {
	reviews *mongo.Collection
	tours   *TourRepository
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{
		reviews: db.Collection(ReviewsCollection),
		tours:   NewTourRepository(db),
	}
}

// Create stores a review and recomputes the owning tour's rating aggregate.
// Concurrent creates for one tour each recompute from the collection, so the
// last writer stores a complete aggregate.
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) (*model.RatingSummary, error) {
	tourID, err := objectID(review.TourID)
	if err != nil {
		return nil, err
	}
	userID, err := objectID(review.UserID)
	if err != nil {
		return nil, err
	}

	doc := &reviewDoc{
		ID:        primitive.NewObjectID(),
		Review:    review.Review,
		Rating:    review.Rating,
		Tour:      tourID,
		User:      userID,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.reviews.InsertOne(ctx, doc); err != nil {
		return nil, duplicateFromError(err)
	}
	*review = *fromReviewDoc(doc)

	summary, err := r.ratings(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if err := r.tours.SetRatings(ctx, review.TourID, summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *ReviewRepository) ratings(ctx context.Context, tourID primitive.ObjectID) (model.RatingSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tour": tourID}}},
		{{Key: "$group", Value: bson.M{
			"_id": "$tour",
			"n":   bson.M{"$sum": 1},
			"avg": bson.M{"$avg": "$rating"},
		}}},
	}

	cursor, err := r.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return model.RatingSummary{}, err
	}

	var rows []struct {
		N   int     `bson:"n"`
		Avg float64 `bson:"avg"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return model.RatingSummary{}, err
	}
	if len(rows) == 0 {
		return model.RatingFromStats(0, 0), nil
	}
	return model.RatingFromStats(rows[0].N, rows[0].Avg), nil
}

// List returns reviews matching q with tour and author populated
func (r *ReviewRepository) List(ctx context.Context, q query.Query) ([]*model.ReviewDetail, error) {
	fq, err := buildFind(reviewSchema, q)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{{{Key: "$match", Value: fq.Filter}}}
	pipeline = append(pipeline, findStages(fq.Options)...)
	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         ToursCollection,
			"localField":   "tour",
			"foreignField": "_id",
			"as":           "tourDocs",
		}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         UsersCollection,
			"localField":   "user",
			"foreignField": "_id",
			"as":           "userDocs",
		}}},
	)

	cursor, err := r.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var docs []reviewDetailDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	reviews := make([]*model.ReviewDetail, 0, len(docs))
	for i := range docs {
		reviews = append(reviews, fromReviewDetailDoc(&docs[i]))
	}
	return reviews, nil
}

// ListByTour returns every review of a tour, oldest first
func (r *ReviewRepository) ListByTour(ctx context.Context, tourID string) ([]model.Review, error) {
	oid, err := objectID(tourID)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.reviews.Find(ctx, bson.M{"tour": oid}, opts)
	if err != nil {
		return nil, err
	}

	var docs []reviewDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	reviews := make([]model.Review, 0, len(docs))
	for i := range docs {
		reviews = append(reviews, *fromReviewDoc(&docs[i]))
	}
	return reviews, nil
}

// findStages turns find options into the equivalent aggregation stages
func findStages(opts *options.FindOptions) []bson.D {
	stages := []bson.D{}
	if opts.Sort != nil {
		stages = append(stages, bson.D{{Key: "$sort", Value: opts.Sort}})
	}
	if opts.Skip != nil && *opts.Skip > 0 {
		stages = append(stages, bson.D{{Key: "$skip", Value: *opts.Skip}})
	}
	if opts.Limit != nil {
		stages = append(stages, bson.D{{Key: "$limit", Value: *opts.Limit}})
	}
	if opts.Projection != nil {
		stages = append(stages, bson.D{{Key: "$project", Value: opts.Projection}})
	}
	return stages
}

func fromReviewDoc(d *reviewDoc) *model.Review {
	return &model.Review{
		ID:        d.ID.Hex(),
		Review:    d.Review,
		Rating:    d.Rating,
		TourID:    d.Tour.Hex(),
		UserID:    d.User.Hex(),
		CreatedAt: d.CreatedAt.UTC(),
	}
}

func fromReviewDetailDoc(d *reviewDetailDoc) *model.ReviewDetail {
	detail := &model.ReviewDetail{
		ID:        d.ID.Hex(),
		Review:    d.Review,
		Rating:    d.Rating,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if len(d.TourDocs) > 0 {
		detail.Tour = &model.TourSummary{ID: d.TourDocs[0].ID.Hex(), Name: d.TourDocs[0].Name}
	} else if !d.Tour.IsZero() {
		detail.Tour = &model.TourSummary{ID: d.Tour.Hex()}
	}
	if len(d.UserDocs) > 0 {
		detail.User = &model.UserSummary{ID: d.UserDocs[0].ID.Hex(), Name: d.UserDocs[0].Name, Photo: d.UserDocs[0].Photo}
	} else if !d.User.IsZero() {
		detail.User = &model.UserSummary{ID: d.User.Hex()}
	}
	return detail
}
