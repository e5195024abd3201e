package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/forgo/tours/api/internal/database"
	"github.com/forgo/tours/api/internal/geo"
	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// TourRepository handles tour data access
type TourRepository struct {
	db database.Database
}

// NewTourRepository creates a new tour repository
func NewTourRepository(db database.Database) *TourRepository {
	return &TourRepository{db: db}
}

const tourContent = `{
	name: $name,
	duration: $duration,
	maxGroupSize: $maxGroupSize,
	difficulty: $difficulty,
	ratingsAverage: $ratingsAverage,
	ratingsQuantity: $ratingsQuantity,
	price: $price,
	priceDiscount: $priceDiscount,
	summary: $summary,
	description: $description,
	imageCover: $imageCover,
	images: $images,
	startDates: <array<datetime>> $startDates,
	startLocation: $startLocation,
	locations: $locations,
	guides: $guides.map(|$g| type::thing("user", $g)),
	createdAt: %s,
	__v: $version
}`

// Create creates a new tour
func (r *TourRepository) Create(ctx context.Context, tour *model.Tour) error {
	guides, err := recordKeys(tableUser, tour.Guides)
	if err != nil {
		return err
	}

	key := newRecordKey()
	query := `CREATE type::thing("tour", $key) CONTENT ` + fmt.Sprintf(tourContent, "time::now()")

	vars := tourVars(tour, guides)
	vars["key"] = key
	vars["version"] = 0

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return duplicateFromError(err)
	}

	records := extractRecords(result)
	if len(records) == 0 {
		return errors.New("no result returned")
	}
	*tour = *parseTour(records[0])
	return nil
}

// GetByID retrieves a tour by ID
func (r *TourRepository) GetByID(ctx context.Context, id string) (*model.Tour, error) {
	key, err := recordKey(tableTour, id)
	if err != nil {
		return nil, err
	}

	query := `SELECT * FROM type::thing("tour", $key)`
	result, err := r.db.QueryOne(ctx, query, map[string]interface{}{"key": key})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected result format")
	}
	return parseTour(data), nil
}

// List returns the tours matching q
func (r *TourRepository) List(ctx context.Context, q query.Query) ([]*model.Tour, error) {
	sel, err := buildSelect(tourSchema, q, "")
	if err != nil {
		return nil, err
	}

	result, err := r.db.Query(ctx, sel.SQL, sel.Vars)
	if err != nil {
		return nil, err
	}

	records := extractRecords(result)
	tours := make([]*model.Tour, 0, len(records))
	for _, rec := range records {
		tours = append(tours, parseTour(rec))
	}
	return tours, nil
}

// Replace overwrites the stored document and bumps its version.
// Returns database.ErrNotFound if the tour does not exist.
func (r *TourRepository) Replace(ctx context.Context, tour *model.Tour) error {
	key, err := recordKey(tableTour, tour.ID)
	if err != nil {
		return err
	}
	guides, err := recordKeys(tableUser, tour.Guides)
	if err != nil {
		return err
	}

	query := `UPDATE tour CONTENT ` + fmt.Sprintf(tourContent, "<datetime> $createdAt") +
		` WHERE id = type::thing("tour", $key) RETURN AFTER`

	vars := tourVars(tour, guides)
	vars["key"] = key
	vars["createdAt"] = tour.CreatedAt.UTC().Format(time.RFC3339Nano)
	vars["version"] = tour.Version + 1

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return duplicateFromError(err)
	}

	records := extractRecords(result)
	if len(records) == 0 {
		return database.ErrNotFound
	}
	*tour = *parseTour(records[0])
	return nil
}

// Delete removes a tour. Returns database.ErrNotFound if it does not exist.
func (r *TourRepository) Delete(ctx context.Context, id string) error {
	key, err := recordKey(tableTour, id)
	if err != nil {
		return err
	}

	query := `DELETE tour WHERE id = type::thing("tour", $key) RETURN BEFORE`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"key": key})
	if err != nil {
		return err
	}
	if len(extractRecords(result)) == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Stats groups tours rated at least minRating by difficulty
func (r *TourRepository) Stats(ctx context.Context, minRating float64) ([]model.TourStats, error) {
	query := `
		SELECT
			difficulty,
			count() AS numTours,
			math::sum(ratingsQuantity) AS numRatings,
			math::mean(ratingsAverage) AS avgRating,
			math::mean(price) AS avgPrice,
			math::min(price) AS minPrice,
			math::max(price) AS maxPrice
		FROM tour
		WHERE ratingsAverage >= $minRating
		GROUP BY difficulty
	`

	result, err := r.db.Query(ctx, query, map[string]interface{}{"minRating": minRating})
	if err != nil {
		return nil, err
	}

	records := extractRecords(result)
	stats := make([]model.TourStats, 0, len(records))
	for _, rec := range records {
		stats = append(stats, model.TourStats{
			Difficulty: getString(rec, "difficulty"),
			NumTours:   getInt(rec, "numTours"),
			NumRatings: getInt(rec, "numRatings"),
			AvgRating:  getFloat(rec, "avgRating"),
			AvgPrice:   getFloat(rec, "avgPrice"),
			MinPrice:   getFloat(rec, "minPrice"),
			MaxPrice:   getFloat(rec, "maxPrice"),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].NumRatings != stats[j].NumRatings {
			return stats[i].NumRatings > stats[j].NumRatings
		}
		if stats[i].AvgRating != stats[j].AvgRating {
			return stats[i].AvgRating > stats[j].AvgRating
		}
		return stats[i].Difficulty < stats[j].Difficulty
	})
	return stats, nil
}

// MonthlyPlan counts tour starts per month of year (UTC)
func (r *TourRepository) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	// Superset filter; exact month bucketing happens below
	query := `
		SELECT name, startDates FROM tour
		WHERE array::len(startDates) > 0
			AND array::max(startDates) >= <datetime> $from
			AND array::min(startDates) < <datetime> $to
	`
	vars := map[string]interface{}{
		"from": from.Format(time.RFC3339),
		"to":   to.Format(time.RFC3339),
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	records := extractRecords(result)
	starts := make([]tourStart, 0, len(records))
	for _, rec := range records {
		for _, d := range getTimeSlice(rec, "startDates") {
			starts = append(starts, tourStart{name: getString(rec, "name"), date: d})
		}
	}
	return groupByMonth(starts, from, to), nil
}

type tourStart struct {
	name string
	date time.Time
}

// groupByMonth buckets starts in [from, to) by month, sorted by number of
// tours descending then month ascending.
func groupByMonth(starts []tourStart, from, to time.Time) []model.MonthlyPlan {
	byMonth := map[int]*model.MonthlyPlan{}
	for _, s := range starts {
		if s.date.Before(from) || !s.date.Before(to) {
			continue
		}
		month := int(s.date.UTC().Month())
		plan, ok := byMonth[month]
		if !ok {
			plan = &model.MonthlyPlan{Month: month, Tours: []string{}}
			byMonth[month] = plan
		}
		plan.NumTours++
		plan.Tours = append(plan.Tours, s.name)
	}

	plans := make([]model.MonthlyPlan, 0, len(byMonth))
	for _, p := range byMonth {
		plans = append(plans, *p)
	}
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].NumTours != plans[j].NumTours {
			return plans[i].NumTours > plans[j].NumTours
		}
		return plans[i].Month < plans[j].Month
	})
	return plans
}

// Within returns tours whose start location lies inside the circle.
// A bounding box narrows candidates in the query; the haversine check is exact.
func (r *TourRepository) Within(ctx context.Context, w model.WithinQuery) ([]*model.Tour, error) {
	radiusKm := w.RadiusKm()
	box := geo.GetBoundingBox(w.Lat, w.Lng, radiusKm)

	query := `
		SELECT * OMIT __v FROM tour
		WHERE startLocation.lat >= $minLat AND startLocation.lat <= $maxLat
	`
	vars := map[string]interface{}{
		"minLat": box.MinLat,
		"maxLat": box.MaxLat,
	}
	if !box.WrapsLng {
		query += ` AND startLocation.lng >= $minLng AND startLocation.lng <= $maxLng`
		vars["minLng"] = box.MinLng
		vars["maxLng"] = box.MaxLng
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	tours := make([]*model.Tour, 0)
	for _, rec := range extractRecords(result) {
		t := parseTour(rec)
		if t.StartLocation == nil {
			continue
		}
		if geo.IsWithinRadius(w.Lat, w.Lng, t.StartLocation.Lat(), t.StartLocation.Lng(), radiusKm) {
			tours = append(tours, t)
		}
	}
	return tours, nil
}

func tourVars(t *model.Tour, guides []string) map[string]interface{} {
	images := t.Images
	if images == nil {
		images = []string{}
	}

	var discount interface{}
	if t.PriceDiscount != nil {
		discount = *t.PriceDiscount
	}

	var start interface{}
	if t.StartLocation != nil {
		start = pointContent(*t.StartLocation, 0)
	}

	locations := make([]map[string]interface{}, 0, len(t.Locations))
	for _, loc := range t.Locations {
		locations = append(locations, pointContent(loc.GeoPoint, loc.Day))
	}

	return map[string]interface{}{
		"name":            t.Name,
		"duration":        t.Duration,
		"maxGroupSize":    t.MaxGroupSize,
		"difficulty":      t.Difficulty,
		"ratingsAverage":  t.RatingsAverage,
		"ratingsQuantity": t.RatingsQuantity,
		"price":           t.Price,
		"priceDiscount":   discount,
		"summary":         t.Summary,
		"description":     t.Description,
		"imageCover":      t.ImageCover,
		"images":          images,
		"startDates":      formatTimes(t.StartDates),
		"startLocation":   start,
		"locations":       locations,
		"guides":          guides,
	}
}

// Points are stored flat so range filters can use plain fields
func pointContent(p model.GeoPoint, day int) map[string]interface{} {
	m := map[string]interface{}{
		"lng":         p.Lng(),
		"lat":         p.Lat(),
		"address":     p.Address,
		"description": p.Description,
	}
	if day > 0 {
		m["day"] = day
	}
	return m
}

func parsePoint(m map[string]interface{}) model.GeoPoint {
	p := model.NewGeoPoint(getFloat(m, "lng"), getFloat(m, "lat"))
	p.Address = getString(m, "address")
	p.Description = getString(m, "description")
	return p
}

func parseTour(data map[string]interface{}) *model.Tour {
	t := &model.Tour{
		ID:              convertSurrealID(data["id"]),
		Name:            getString(data, "name"),
		Duration:        getInt(data, "duration"),
		MaxGroupSize:    getInt(data, "maxGroupSize"),
		Difficulty:      getString(data, "difficulty"),
		RatingsAverage:  getFloat(data, "ratingsAverage"),
		RatingsQuantity: getInt(data, "ratingsQuantity"),
		Price:           getFloat(data, "price"),
		PriceDiscount:   getFloatPtr(data, "priceDiscount"),
		Summary:         getString(data, "summary"),
		Description:     getString(data, "description"),
		ImageCover:      getString(data, "imageCover"),
		Images:          getStringSlice(data, "images"),
		StartDates:      getTimeSlice(data, "startDates"),
		Locations:       []model.Location{},
		Guides:          []string{},
		CreatedAt:       getTime(data, "createdAt"),
		Version:         getInt(data, "__v"),
	}
	t.DurationWeeks = model.DurationInWeeks(t.Duration)

	if start := getMap(data, "startLocation"); start != nil {
		p := parsePoint(start)
		t.StartLocation = &p
	}
	if locs, ok := data["locations"].([]interface{}); ok {
		for _, l := range locs {
			if m, ok := l.(map[string]interface{}); ok {
				t.Locations = append(t.Locations, model.Location{GeoPoint: parsePoint(m), Day: getInt(m, "day")})
			}
		}
	}
	if guides, ok := data["guides"].([]interface{}); ok {
		for _, g := range guides {
			if id := convertSurrealID(g); id != "" {
				t.Guides = append(t.Guides, id)
			}
		}
	}
	return t
}
