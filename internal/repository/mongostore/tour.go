package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/forgo/tours/api/internal/database"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// Collection names
const (
	ToursCollection   = "tours"
	UsersCollection   = "users"
	ReviewsCollection = "reviews"
)

type pointDoc struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
	Address     string    `bson:"address,omitempty"`
	Description string    `bson:"description,omitempty"`
	Day         int       `bson:"day,omitempty"`
}

type tourDoc struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	Name            string               `bson:"name"`
	Duration        int                  `bson:"duration"`
	MaxGroupSize    int                  `bson:"maxGroupSize"`
	Difficulty      string               `bson:"difficulty"`
	RatingsAverage  float64              `bson:"ratingsAverage"`
	RatingsQuantity int                  `bson:"ratingsQuantity"`
	Price           float64              `bson:"price"`
	PriceDiscount   *float64             `bson:"priceDiscount,omitempty"`
	Summary         string               `bson:"summary"`
	Description     string               `bson:"description,omitempty"`
	ImageCover      string               `bson:"imageCover,omitempty"`
	Images          []string             `bson:"images"`
	StartDates      []time.Time          `bson:"startDates"`
	StartLocation   *pointDoc            `bson:"startLocation,omitempty"`
	Locations       []pointDoc           `bson:"locations"`
	Guides          []primitive.ObjectID `bson:"guides"`
	CreatedAt       time.Time            `bson:"createdAt"`
	Version         int                  `bson:"__v"`
}

// TourRepository stores tours in MongoDB
type TourRepository struct {
	tours *mongo.Collection
}

// NewTourRepository creates a new tour repository
func NewTourRepository(db *mongo.Database) *TourRepository {
	return &TourRepository{tours: db.Collection(ToursCollection)}
}

// Create creates a new tour
func (r *TourRepository) Create(ctx context.Context, tour *model.Tour) error {
	doc, err := toTourDoc(tour)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	doc.Version = 0

	if _, err := r.tours.InsertOne(ctx, doc); err != nil {
		return duplicateFromError(err)
	}
	*tour = *fromTourDoc(doc)
	return nil
}

// GetByID retrieves a tour by ID
func (r *TourRepository) GetByID(ctx context.Context, id string) (*model.Tour, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc tourDoc
	if err := r.tours.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return fromTourDoc(&doc), nil
}

// List returns the tours matching q
func (r *TourRepository) List(ctx context.Context, q query.Query) ([]*model.Tour, error) {
	fq, err := buildFind(tourSchema, q)
	if err != nil {
		return nil, err
	}

	cursor, err := r.tours.Find(ctx, fq.Filter, fq.Options)
	if err != nil {
		return nil, err
	}

	var docs []tourDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	tours := make([]*model.Tour, 0, len(docs))
	for i := range docs {
		tours = append(tours, fromTourDoc(&docs[i]))
	}
	return tours, nil
}

// Replace overwrites the stored document and bumps its version.
// Returns database.ErrNotFound if the tour does not exist.
func (r *TourRepository) Replace(ctx context.Context, tour *model.Tour) error {
	oid, err := objectID(tour.ID)
	if err != nil {
		return err
	}
	doc, err := toTourDoc(tour)
	if err != nil {
		return err
	}
	doc.ID = oid
	doc.Version = tour.Version + 1

	res, err := r.tours.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return duplicateFromError(err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	*tour = *fromTourDoc(doc)
	return nil
}

// Delete removes a tour. Returns database.ErrNotFound if it does not exist.
func (r *TourRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := r.tours.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

// SetRatings stores a recomputed rating aggregate
func (r *TourRepository) SetRatings(ctx context.Context, id string, summary model.RatingSummary) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"ratingsQuantity": summary.Quantity,
		"ratingsAverage":  summary.Average,
	}}
	_, err = r.tours.UpdateByID(ctx, oid, update)
	return err
}

// Stats groups tours rated at least minRating by difficulty
func (r *TourRepository) Stats(ctx context.Context, minRating float64) ([]model.TourStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ratingsAverage": bson.M{"$gte": minRating}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$difficulty"},
			{Key: "numTours", Value: bson.M{"$sum": 1}},
			{Key: "numRatings", Value: bson.M{"$sum": "$ratingsQuantity"}},
			{Key: "avgRating", Value: bson.M{"$avg": "$ratingsAverage"}},
			{Key: "avgPrice", Value: bson.M{"$avg": "$price"}},
			{Key: "minPrice", Value: bson.M{"$min": "$price"}},
			{Key: "maxPrice", Value: bson.M{"$max": "$price"}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "numRatings", Value: -1},
			{Key: "avgRating", Value: -1},
			{Key: "_id", Value: 1},
		}}},
	}

	cursor, err := r.tours.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Difficulty string  `bson:"_id"`
		NumTours   int     `bson:"numTours"`
		NumRatings int     `bson:"numRatings"`
		AvgRating  float64 `bson:"avgRating"`
		AvgPrice   float64 `bson:"avgPrice"`
		MinPrice   float64 `bson:"minPrice"`
		MaxPrice   float64 `bson:"maxPrice"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	stats := make([]model.TourStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, model.TourStats(row))
	}
	return stats, nil
}

// MonthlyPlan counts tour starts per month of year (UTC)
func (r *TourRepository) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.M{"startDates": bson.M{"$gte": from, "$lt": to}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.M{"$month": "$startDates"}},
			{Key: "numTours", Value: bson.M{"$sum": 1}},
			{Key: "tours", Value: bson.M{"$push": "$name"}},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "numTours", Value: -1}, {Key: "month", Value: 1}}}},
	}

	cursor, err := r.tours.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Month    int      `bson:"month"`
		NumTours int      `bson:"numTours"`
		Tours    []string `bson:"tours"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	plans := make([]model.MonthlyPlan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, model.MonthlyPlan(row))
	}
	return plans, nil
}

// Within returns tours whose start location lies inside the circle.
// Requires the 2dsphere index created by EnsureIndexes.
func (r *TourRepository) Within(ctx context.Context, w model.WithinQuery) ([]*model.Tour, error) {
	filter := bson.M{"startLocation": bson.M{
		"$geoWithin": bson.M{
			"$centerSphere": bson.A{bson.A{w.Lng, w.Lat}, w.Radians()},
		},
	}}

	cursor, err := r.tours.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	var docs []tourDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	tours := make([]*model.Tour, 0, len(docs))
	for i := range docs {
		tours = append(tours, fromTourDoc(&docs[i]))
	}
	return tours, nil
}

func toPointDoc(p model.GeoPoint, day int) pointDoc {
	return pointDoc{
		Type:        "Point",
		Coordinates: []float64{p.Lng(), p.Lat()},
		Address:     p.Address,
		Description: p.Description,
		Day:         day,
	}
}

func fromPointDoc(d pointDoc) model.GeoPoint {
	p := model.NewGeoPoint(0, 0)
	if len(d.Coordinates) == 2 {
		p = model.NewGeoPoint(d.Coordinates[0], d.Coordinates[1])
	}
	p.Address = d.Address
	p.Description = d.Description
	return p
}

func toTourDoc(t *model.Tour) (*tourDoc, error) {
	guides, err := objectIDs(t.Guides)
	if err != nil {
		return nil, err
	}

	doc := &tourDoc{
		Name:            t.Name,
		Duration:        t.Duration,
		MaxGroupSize:    t.MaxGroupSize,
		Difficulty:      t.Difficulty,
		RatingsAverage:  t.RatingsAverage,
		RatingsQuantity: t.RatingsQuantity,
		Price:           t.Price,
		PriceDiscount:   t.PriceDiscount,
		Summary:         t.Summary,
		Description:     t.Description,
		ImageCover:      t.ImageCover,
		Images:          t.Images,
		StartDates:      t.StartDates,
		Locations:       make([]pointDoc, 0, len(t.Locations)),
		Guides:          guides,
		CreatedAt:       t.CreatedAt,
		Version:         t.Version,
	}
	if doc.Images == nil {
		doc.Images = []string{}
	}
	if doc.StartDates == nil {
		doc.StartDates = []time.Time{}
	}
	if t.StartLocation != nil {
		p := toPointDoc(*t.StartLocation, 0)
		doc.StartLocation = &p
	}
	for _, loc := range t.Locations {
		doc.Locations = append(doc.Locations, toPointDoc(loc.GeoPoint, loc.Day))
	}
	return doc, nil
}

func fromTourDoc(d *tourDoc) *model.Tour {
	t := &model.Tour{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Duration:        d.Duration,
		DurationWeeks:   model.DurationInWeeks(d.Duration),
		MaxGroupSize:    d.MaxGroupSize,
		Difficulty:      d.Difficulty,
		RatingsAverage:  d.RatingsAverage,
		RatingsQuantity: d.RatingsQuantity,
		Price:           d.Price,
		PriceDiscount:   d.PriceDiscount,
		Summary:         d.Summary,
		Description:     d.Description,
		ImageCover:      d.ImageCover,
		Images:          d.Images,
		StartDates:      make([]time.Time, 0, len(d.StartDates)),
		Locations:       make([]model.Location, 0, len(d.Locations)),
		Guides:          hexIDs(d.Guides),
		CreatedAt:       d.CreatedAt.UTC(),
		Version:         d.Version,
	}
	if t.Images == nil {
		t.Images = []string{}
	}
	for _, sd := range d.StartDates {
		t.StartDates = append(t.StartDates, sd.UTC())
	}
	if d.StartLocation != nil {
		p := fromPointDoc(*d.StartLocation)
		t.StartLocation = &p
	}
	for _, loc := range d.Locations {
		t.Locations = append(t.Locations, model.Location{GeoPoint: fromPointDoc(loc), Day: loc.Day})
	}
	return t
}
