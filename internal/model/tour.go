package model

import "time"

// Tour difficulty levels
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyHard      = "hard"
	DifficultyDifficult = "difficult"
)

// Rating defaults applied to a tour with no reviews
const (
	DefaultRatingsAverage  = 4.5
	DefaultRatingsQuantity = 0
)

// Top tours preset
const (
	TopToursLimit  = "5"
	TopToursSort   = "-ratingsAverage,price"
	TopToursFields = "name,price,ratingsAverage,summary,difficulty"
)

// StatsMinRating is the minimum ratingsAverage included in tour stats
const StatsMinRating = 4.5

// GeoPoint is a GeoJSON point. Coordinates are [lng, lat].
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates" validate:"len=2"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Lng returns the longitude, or 0 for an incomplete point
func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

// Lat returns the latitude, or 0 for an incomplete point
func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// NewGeoPoint builds a point from longitude and latitude
func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Location is a stop on a tour itinerary
type Location struct {
	GeoPoint
	Day int `json:"day,omitempty"`
}

// Tour represents a bookable tour
type Tour struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Duration        int         `json:"duration"`
	DurationWeeks   float64     `json:"durationWeeks"`
	MaxGroupSize    int         `json:"maxGroupSize"`
	Difficulty      string      `json:"difficulty"`
	RatingsAverage  float64     `json:"ratingsAverage"`
	RatingsQuantity int         `json:"ratingsQuantity"`
	Price           float64     `json:"price"`
	PriceDiscount   *float64    `json:"priceDiscount,omitempty"`
	Summary         string      `json:"summary"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"imageCover,omitempty"`
	Images          []string    `json:"images"`
	StartDates      []time.Time `json:"startDates"`
	StartLocation   *GeoPoint   `json:"startLocation,omitempty"`
	Locations       []Location  `json:"locations"`
	Guides          []string    `json:"guides"`
	CreatedAt       time.Time   `json:"createdAt"`
	Version         int         `json:"__v"`
}

// DurationInWeeks derives the week count shown alongside the duration
func DurationInWeeks(days int) float64 {
	return float64(days) / 7
}

// TourInput is the client-authored part of a tour. Derived rating fields
// are not accepted.
type TourInput struct {
	Name          string      `json:"name" validate:"required,min=5,max=40"`
	Duration      int         `json:"duration" validate:"required,min=1,max=30"`
	MaxGroupSize  int         `json:"maxGroupSize" validate:"required,min=1,max=50"`
	Difficulty    string      `json:"difficulty" validate:"required,oneof=easy medium hard difficult"`
	Price         float64     `json:"price" validate:"required,gt=0"`
	PriceDiscount *float64    `json:"priceDiscount,omitempty" validate:"omitempty,gte=0"`
	Summary       string      `json:"summary" validate:"required"`
	Description   string      `json:"description,omitempty"`
	ImageCover    string      `json:"imageCover,omitempty"`
	Images        []string    `json:"images,omitempty"`
	StartDates    []time.Time `json:"startDates,omitempty"`
	StartLocation *GeoPoint   `json:"startLocation,omitempty"`
	Locations     []Location  `json:"locations,omitempty" validate:"omitempty,dive"`
	Guides        []string    `json:"guides,omitempty"`
}

// Input returns the client-authored fields of t
func (t *Tour) Input() TourInput {
	return TourInput{
		Name:          t.Name,
		Duration:      t.Duration,
		MaxGroupSize:  t.MaxGroupSize,
		Difficulty:    t.Difficulty,
		Price:         t.Price,
		PriceDiscount: t.PriceDiscount,
		Summary:       t.Summary,
		Description:   t.Description,
		ImageCover:    t.ImageCover,
		Images:        t.Images,
		StartDates:    t.StartDates,
		StartLocation: t.StartLocation,
		Locations:     t.Locations,
		Guides:        t.Guides,
	}
}

// TourDetail is a tour with its guides and reviews populated
type TourDetail struct {
	Tour
	Guides  []UserSummary `json:"guides"`
	Reviews []Review      `json:"reviews"`
}

// TourStats is one difficulty bucket of the tour statistics report
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthlyPlan lists the tours starting in one month of a year
type MonthlyPlan struct {
	Month    int      `json:"month"`
	NumTours int      `json:"numTours"`
	Tours    []string `json:"tours"`
}

// Distance units accepted by the within query
const (
	UnitMiles      = "mi"
	UnitKilometers = "km"
)

// Earth radius used to turn a distance into radians
const (
	EarthRadiusMiles = 3963.2
	EarthRadiusKm    = 6378.1
)

// WithinQuery finds tours whose start location lies inside a circle
type WithinQuery struct {
	Lat      float64
	Lng      float64
	Distance float64
	Unit     string
}

// Radians returns the circle radius in radians
func (q WithinQuery) Radians() float64 {
	if q.Unit == UnitMiles {
		return q.Distance / EarthRadiusMiles
	}
	return q.Distance / EarthRadiusKm
}

// RadiusKm returns the circle radius in kilometers
func (q WithinQuery) RadiusKm() float64 {
	return q.Radians() * EarthRadiusKm
}
