package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-discovery/internal/identity"
	"github.com/Clark-Hu/movie-discovery/internal/ratings"
	"github.com/Clark-Hu/movie-discovery/internal/tmdb"
	"github.com/Clark-Hu/movie-discovery/internal/validation"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// decodeJSONBody reads the whole body up front; the stream decoder reports a truncated read as
// malformed JSON, which would hide *http.MaxBytesError.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Warn("http: failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{Code: code, Message: message})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		s.respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Unable to parse request body")
	}
}

// respondFailure maps component errors onto status codes.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	var apiErr *tmdb.APIError
	var vErr *validation.Error
	switch {
	case errors.Is(err, tmdb.ErrNotConfigured),
		errors.Is(err, ratings.ErrNotConfigured),
		errors.Is(err, identity.ErrNotConfigured):
		s.respondError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", err.Error())
	case errors.As(err, &vErr):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: vErr.Error(),
			Details: vErr.Fields,
		})
	case errors.Is(err, ratings.ErrInvalidRating):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials):
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, identity.ErrEmailInUse):
		s.respondError(w, http.StatusConflict, "CONFLICT", err.Error())
	case tmdb.IsNotFound(err):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.As(err, &apiErr):
		s.respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
	default:
		s.logger.Error("http: request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// respondUpstream is respondFailure for catalog calls, where any unmapped error is the upstream's.
func (s *Server) respondUpstream(w http.ResponseWriter, err error) {
	var apiErr *tmdb.APIError
	if errors.Is(err, tmdb.ErrNotConfigured) || errors.As(err, &apiErr) {
		s.respondFailure(w, err)
		return
	}
	s.logger.Warn("http: catalog request failed", zap.Error(err))
	s.respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
}

func intParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return id, nil
}

// pageQuery defaults to 1; anything else must be a positive integer.
func pageQuery(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page <= 0 {
		return 0, fmt.Errorf("invalid page value")
	}
	return page, nil
}
