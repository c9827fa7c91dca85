package domain

import "time"

const (
	// MinRating and MaxRating bound a user's star rating.
	MinRating = 1
	MaxRating = 5

	// NoRating is returned when a user has not rated a movie.
	NoRating = 0
)

// Rating represents a single user's rating for a movie.
type Rating struct {
	UserID    string    `json:"userId"`
	MovieID   int       `json:"movieId"`
	Value     int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RatingAggregate provides average and count for a movie's ratings.
type RatingAggregate struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
