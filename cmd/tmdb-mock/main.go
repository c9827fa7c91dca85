// Command tmdb-mock serves a small fixed catalog with the same paths and payloads as the
// metadata API, for local development without an API key.
package main

import (
	_ "embed"
	"flag"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
	"github.com/Clark-Hu/movie-discovery/internal/logging"
)

//go:embed catalog.json
var defaultCatalog []byte

const pageSize = 20

type catalogFile struct {
	Genres     []domain.Genre            `json:"genres"`
	Movies     []domain.MovieDetails     `json:"movies"`
	Categories map[domain.Category][]int `json:"categories"`
}

type mockServer struct {
	data   catalogFile
	byID   map[int]domain.MovieDetails
	apiKey string
	logger *zap.Logger
}

func main() {
	var (
		port     = flag.String("port", "9099", "port to listen on")
		data     = flag.String("data", "", "path to a catalog file, defaults to the built-in one")
		apiKey   = flag.String("api-key", "", "require this api_key query value when set")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger, err := logging.New(*logLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	raw := defaultCatalog
	if *data != "" {
		if raw, err = os.ReadFile(*data); err != nil {
			logger.Fatal("read mock data", zap.Error(err))
		}
	}
	srv, err := newMockServer(raw, *apiKey, logger)
	if err != nil {
		logger.Fatal("parse mock data", zap.Error(err))
	}

	addr := ":" + *port
	logger.Info("mock tmdb listening", zap.String("addr", addr), zap.Int("movies", len(srv.byID)))
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newMockServer(raw []byte, apiKey string, logger *zap.Logger) (*mockServer, error) {
	var data catalogFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	s := &mockServer{data: data, byID: make(map[int]domain.MovieDetails, len(data.Movies)), apiKey: apiKey, logger: logger}
	for _, m := range data.Movies {
		s.byID[m.ID] = m
	}
	return s, nil
}

func (s *mockServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.checkKey)
	r.Get("/genre/movie/list", s.handleGenres)
	r.Get("/search/movie", s.handleSearch)
	r.Get("/discover/movie", s.handleDiscover)
	r.Get("/movie/{ref}", s.handleMovie)
	return r
}

func (s *mockServer) checkKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request", zap.String("path", r.URL.Path))
		if s.apiKey != "" && r.URL.Query().Get("api_key") != s.apiKey {
			writeStatus(w, http.StatusUnauthorized, 7, "Invalid API key: You must be granted a valid key.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *mockServer) handleGenres(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.Genre{"genres": s.data.Genres})
}

func (s *mockServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("query")))
	var matches []domain.Movie
	for _, m := range s.data.Movies {
		if query != "" && strings.Contains(strings.ToLower(m.Title), query) {
			matches = append(matches, m.Movie)
		}
	}
	writeJSON(w, http.StatusOK, paginate(matches, r))
}

func (s *mockServer) handleDiscover(w http.ResponseWriter, r *http.Request) {
	genreID, _ := strconv.Atoi(r.URL.Query().Get("with_genres"))
	var matches []domain.Movie
	for _, m := range s.data.Movies {
		for _, g := range m.Genres {
			if g.ID == genreID {
				matches = append(matches, summary(m))
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, paginate(matches, r))
}

// handleMovie serves both category lists and details, which share the /movie/ prefix upstream.
func (s *mockServer) handleMovie(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if category := domain.Category(ref); category.Valid() {
		var movies []domain.Movie
		for _, id := range s.data.Categories[category] {
			if m, ok := s.byID[id]; ok {
				movies = append(movies, summary(m))
			}
		}
		writeJSON(w, http.StatusOK, paginate(movies, r))
		return
	}

	id, err := strconv.Atoi(ref)
	details, ok := s.byID[id]
	if err != nil || !ok {
		writeStatus(w, http.StatusNotFound, 34, "The resource you requested could not be found.")
		return
	}
	writeJSON(w, http.StatusOK, detailsPayload(details))
}

func summary(m domain.MovieDetails) domain.Movie {
	movie := m.Movie
	if len(movie.GenreIDs) == 0 {
		for _, g := range m.Genres {
			movie.GenreIDs = append(movie.GenreIDs, g.ID)
		}
	}
	return movie
}

// detailsPayload reshapes details into the appended-response layout the gateway decodes.
func detailsPayload(d domain.MovieDetails) map[string]any {
	return map[string]any{
		"id":            d.ID,
		"title":         d.Title,
		"overview":      d.Overview,
		"poster_path":   d.PosterPath,
		"backdrop_path": d.BackdropPath,
		"release_date":  d.ReleaseDate,
		"vote_average":  d.VoteAverage,
		"vote_count":    d.VoteCount,
		"popularity":    d.Popularity,
		"runtime":       d.Runtime,
		"tagline":       d.Tagline,
		"status":        d.Status,
		"genres":        d.Genres,
		"credits":       d.Credits,
		"videos":        map[string]any{"results": d.Videos},
		"similar":       domain.MoviePage{Page: 1, Results: []domain.Movie{}, TotalPages: 1},
	}
}

func paginate(movies []domain.Movie, r *http.Request) domain.MoviePage {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	totalPages := (len(movies) + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	start := (page - 1) * pageSize
	results := []domain.Movie{}
	if start < len(movies) {
		end := start + pageSize
		if end > len(movies) {
			end = len(movies)
		}
		results = append(results, movies[start:end]...)
	}
	return domain.MoviePage{Page: page, Results: results, TotalPages: totalPages, TotalResults: len(movies)}
}

func writeStatus(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, map[string]any{"status_code": code, "status_message": message, "success": false})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
