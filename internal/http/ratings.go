package httpserver

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
)

type ratingRequest struct {
	Rating int `json:"rating"`
}

// Reads never fail the request; Degraded says the value is a fallback.
type userRatingResponse struct {
	MovieID  int  `json:"movieId"`
	Rating   int  `json:"rating"`
	Degraded bool `json:"degraded,omitempty"`
}

type averageRatingResponse struct {
	MovieID  int     `json:"movieId"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
	Degraded bool    `json:"degraded,omitempty"`
}

func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	movieID, err := intParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	user := s.currentUser(w)
	if user == nil {
		return
	}

	rating, err := s.app.Ratings.Get(r.Context(), user.UID, movieID)
	if err != nil {
		s.logger.Debug("http: serving fallback rating", zap.Int("movie_id", movieID), zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, userRatingResponse{MovieID: movieID, Rating: rating, Degraded: err != nil})
}

func (s *Server) handleSaveRating(w http.ResponseWriter, r *http.Request) {
	movieID, err := intParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	user := s.currentUser(w)
	if user == nil {
		return
	}

	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	saved, err := s.app.Ratings.Save(r.Context(), user.UID, movieID, req.Rating)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleAverageRating(w http.ResponseWriter, r *http.Request) {
	movieID, err := intParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	agg, err := s.app.Ratings.Average(r.Context(), movieID)
	if err != nil {
		s.logger.Debug("http: serving fallback average", zap.Int("movie_id", movieID), zap.Error(err))
		agg = domain.RatingAggregate{}
	}
	s.respondJSON(w, http.StatusOK, averageRatingResponse{
		MovieID:  movieID,
		Average:  agg.Average,
		Count:    agg.Count,
		Degraded: err != nil,
	})
}
