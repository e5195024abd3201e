package model

import "time"

// Rating bounds
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a rating left by a user on a tour
type Review struct {
	ID        string    `json:"id"`
	Review    string    `json:"review"`
	Rating    int       `json:"rating"`
	TourID    string    `json:"tour"`
	UserID    string    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReviewDetail is a review with its author and tour populated
type ReviewDetail struct {
	ID        string       `json:"id"`
	Review    string       `json:"review"`
	Rating    int          `json:"rating"`
	Tour      *TourSummary `json:"tour"`
	User      *UserSummary `json:"user"`
	CreatedAt time.Time    `json:"createdAt"`
}

// TourSummary is the populated view of a tour referenced from a review
type TourSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateReviewRequest is the body of POST /reviews. The author always comes
// from the authenticated user.
type CreateReviewRequest struct {
	Review string `json:"review" validate:"required,max=2000"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Tour   string `json:"tour" validate:"required"`
}

// RatingSummary is the recomputed rating aggregate of a tour
type RatingSummary struct {
	Quantity int     `json:"ratingsQuantity"`
	Average  float64 `json:"ratingsAverage"`
}

// RatingFromStats applies the no-review defaults and rounds to 2 decimals
func RatingFromStats(count int, avg float64) RatingSummary {
	if count == 0 {
		return RatingSummary{Quantity: DefaultRatingsQuantity, Average: DefaultRatingsAverage}
	}
	return RatingSummary{Quantity: count, Average: RoundRating(avg)}
}

// RoundRating rounds to two decimals
func RoundRating(v float64) float64 {
	if v < 0 {
		return -RoundRating(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
