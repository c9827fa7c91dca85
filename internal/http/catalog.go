package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
)

// movieView is a list item with its artwork resolved to CDN URLs.
type movieView struct {
	domain.Movie
	PosterURL   string `json:"poster_url,omitempty"`
	BackdropURL string `json:"backdrop_url,omitempty"`
}

type castView struct {
	domain.CastMember
	ProfileURL string `json:"profile_url,omitempty"`
}

type homeResponse struct {
	Popular    []movieView `json:"popular"`
	TopRated   []movieView `json:"top_rated"`
	NowPlaying []movieView `json:"now_playing"`
	Upcoming   []movieView `json:"upcoming"`
	Loading    bool        `json:"loading"`
	Error      string      `json:"error,omitempty"`
}

// listResponse reports the page just fetched plus the accumulated list for its slot.
type listResponse struct {
	Page         int         `json:"page"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
	Results      []movieView `json:"results"`
}

type detailsResponse struct {
	domain.MovieDetails
	PosterURL       string        `json:"poster_url,omitempty"`
	BackdropURL     string        `json:"backdrop_url,omitempty"`
	RuntimeText     string        `json:"runtime_text"`
	ReleaseDateText string        `json:"release_date_text"`
	Cast            []castView    `json:"cast"`
	Directors       []string      `json:"directors"`
	Trailer         *domain.Video `json:"trailer,omitempty"`
}

func newMovieViews(movies []domain.Movie) []movieView {
	out := make([]movieView, 0, len(movies))
	for _, m := range movies {
		out = append(out, movieView{
			Movie:       m,
			PosterURL:   domain.ImageURL(m.PosterPath, domain.PosterSize),
			BackdropURL: domain.ImageURL(m.BackdropPath, domain.BackdropSize),
		})
	}
	return out
}

func newDetailsResponse(details domain.MovieDetails) detailsResponse {
	resp := detailsResponse{
		MovieDetails:    details,
		PosterURL:       domain.ImageURL(details.PosterPath, domain.PosterSize),
		BackdropURL:     domain.ImageURL(details.BackdropPath, domain.BackdropSize),
		RuntimeText:     domain.FormatDuration(details.Runtime),
		ReleaseDateText: domain.FormatReleaseDate(details.ReleaseDate),
		Cast:            make([]castView, 0, len(details.Credits.Cast)),
		Directors:       details.Directors(),
	}
	for _, member := range details.Credits.Cast {
		resp.Cast = append(resp.Cast, castView{
			CastMember: member,
			ProfileURL: domain.ImageURL(member.ProfilePath, domain.ProfileSize),
		})
	}
	if resp.Directors == nil {
		resp.Directors = []string{}
	}
	if trailer, ok := details.Trailer(); ok {
		resp.Trailer = &trailer
	}
	return resp
}

func newListResponse(page domain.MoviePage, merged []domain.Movie) listResponse {
	return listResponse{
		Page:         page.Page,
		TotalPages:   page.TotalPages,
		TotalResults: page.TotalResults,
		Results:      newMovieViews(merged),
	}
}

// handleHome fills the home categories on first use. Fetch failures land in the error field.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.app.Loader.EnsureHomeData(r.Context())
	snap := s.app.Catalog.Snapshot()
	s.respondJSON(w, http.StatusOK, homeResponse{
		Popular:    newMovieViews(snap.Popular),
		TopRated:   newMovieViews(snap.TopRated),
		NowPlaying: newMovieViews(snap.NowPlaying),
		Upcoming:   newMovieViews(snap.Upcoming),
		Loading:    snap.Loading,
		Error:      snap.Error,
	})
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown category")
		return
	}
	page, err := pageQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.app.Catalog.FetchCategory(r.Context(), category, page)
	if err != nil {
		s.respondUpstream(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newListResponse(result, s.app.Catalog.Category(category)))
}

func (s *Server) handleMovieDetails(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	details, err := s.app.Catalog.FetchMovieDetails(r.Context(), id)
	if err != nil {
		s.respondUpstream(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newDetailsResponse(details))
}

func (s *Server) handleClearCurrentMovie(w http.ResponseWriter, r *http.Request) {
	s.app.Catalog.ClearCurrentMovie()
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch treats a blank query as a request to clear the results.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.app.Catalog.ClearSearchResults()
		s.respondJSON(w, http.StatusOK, listResponse{Page: 1, Results: []movieView{}})
		return
	}
	page, err := pageQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.app.Catalog.SearchMovies(r.Context(), query, page)
	if err != nil {
		s.respondUpstream(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newListResponse(result, s.app.Catalog.SearchResults()))
}

func (s *Server) handleClearSearch(w http.ResponseWriter, r *http.Request) {
	s.app.Catalog.ClearSearchResults()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.app.Catalog.FetchGenres(r.Context())
	if err != nil {
		s.respondUpstream(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string][]domain.Genre{"genres": genres})
}

func (s *Server) handleGenreMovies(w http.ResponseWriter, r *http.Request) {
	genreID, err := intParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	page, err := pageQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.app.Catalog.FetchByGenre(r.Context(), genreID, page)
	if err != nil {
		s.respondUpstream(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newListResponse(result, s.app.Catalog.GenreMovies(genreID)))
}
