// Package ratings persists per-user movie ratings in a document collection and aggregates them.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-discovery/internal/docstore"
	"github.com/Clark-Hu/movie-discovery/internal/domain"
	"github.com/Clark-Hu/movie-discovery/internal/logging"
	"github.com/Clark-Hu/movie-discovery/internal/metrics"
	"github.com/Clark-Hu/movie-discovery/internal/validation"
)

// CollectionName is the document collection holding ratings.
const CollectionName = "ratings"

var (
	// ErrNotConfigured is returned when no document store is available.
	ErrNotConfigured = errors.New("ratings: document store is not configured")
	// ErrInvalidRating is returned by Save for values outside 1..5 or missing keys.
	ErrInvalidRating = errors.New("ratings: invalid rating")
)

// DocumentID builds the composite key "<userId>_<movieId>".
func DocumentID(userID string, movieID int) string {
	return userID + "_" + strconv.Itoa(movieID)
}

type ratingDoc struct {
	UserID    string    `json:"userId" bson:"userId"`
	MovieID   int       `json:"movieId" bson:"movieId"`
	Rating    int       `json:"rating" bson:"rating"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type saveRequest struct {
	UserID  string `validate:"required"`
	MovieID int    `validate:"gt=0"`
	Rating  int    `validate:"gte=1,lte=5"`
}

// Store reads and writes ratings. A nil collection leaves it unconfigured.
type Store struct {
	coll   docstore.Collection
	logger *zap.Logger
	now    func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(coll docstore.Collection, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{coll: coll, logger: logging.OrNop(logger), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a collection is attached.
func (s *Store) Configured() bool {
	return s.coll != nil
}

// Save upserts the user's rating. Both timestamps are stamped on every save, so re-rating
// replaces the original createdAt.
func (s *Store) Save(ctx context.Context, userID string, movieID, rating int) (domain.Rating, error) {
	if s.coll == nil {
		return domain.Rating{}, ErrNotConfigured
	}
	if err := validation.Struct(saveRequest{UserID: userID, MovieID: movieID, Rating: rating}); err != nil {
		return domain.Rating{}, fmt.Errorf("%w: %v", ErrInvalidRating, err)
	}

	now := s.now().UTC()
	doc := ratingDoc{
		UserID:    userID,
		MovieID:   movieID,
		Rating:    rating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.coll.Set(ctx, DocumentID(userID, movieID), doc); err != nil {
		metrics.RatingStoreErrors.WithLabelValues("save").Inc()
		s.logger.Error("ratings: error saving rating",
			zap.String("user_id", userID), zap.Int("movie_id", movieID), zap.Error(err))
		return domain.Rating{}, fmt.Errorf("save rating: %w", err)
	}
	return doc.toDomain(), nil
}

// Get returns the user's rating, or domain.NoRating when there is none. Store failures also
// yield domain.NoRating; the failure is returned alongside for callers that care.
func (s *Store) Get(ctx context.Context, userID string, movieID int) (int, error) {
	if s.coll == nil {
		return domain.NoRating, ErrNotConfigured
	}
	var doc ratingDoc
	err := s.coll.Get(ctx, DocumentID(userID, movieID), &doc)
	switch {
	case err == nil:
		return doc.Rating, nil
	case errors.Is(err, docstore.ErrNotFound):
		return domain.NoRating, nil
	default:
		metrics.RatingStoreErrors.WithLabelValues("get").Inc()
		s.logger.Warn("ratings: error getting rating",
			zap.String("user_id", userID), zap.Int("movie_id", movieID), zap.Error(err))
		return domain.NoRating, fmt.Errorf("get rating: %w", err)
	}
}

// Average is the mean over every rating of movieID. With no ratings, no store, or a failed
// query it is {0, 0}; only the error tells those apart.
func (s *Store) Average(ctx context.Context, movieID int) (domain.RatingAggregate, error) {
	if s.coll == nil {
		return domain.RatingAggregate{}, ErrNotConfigured
	}
	docs, err := s.coll.Where(ctx, "movieId", movieID)
	if err != nil {
		metrics.RatingStoreErrors.WithLabelValues("average").Inc()
		s.logger.Warn("ratings: error getting average rating", zap.Int("movie_id", movieID), zap.Error(err))
		return domain.RatingAggregate{}, fmt.Errorf("average rating: %w", err)
	}
	if len(docs) == 0 {
		return domain.RatingAggregate{}, nil
	}

	total, count := 0, 0
	for _, d := range docs {
		var doc ratingDoc
		if err := d.Decode(&doc); err != nil {
			metrics.RatingStoreErrors.WithLabelValues("average").Inc()
			s.logger.Warn("ratings: undecodable rating document", zap.String("id", d.ID), zap.Error(err))
			return domain.RatingAggregate{}, fmt.Errorf("decode rating %s: %w", d.ID, err)
		}
		total += doc.Rating
		count++
	}
	return domain.RatingAggregate{Average: float64(total) / float64(count), Count: count}, nil
}

func (d ratingDoc) toDomain() domain.Rating {
	return domain.Rating{
		UserID:    d.UserID,
		MovieID:   d.MovieID,
		Value:     d.Rating,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
