// Package catalog keeps fetched catalog data in memory for the UI: one list per home category,
// search results, per-genre lists, the movie being viewed and the genre table.
package catalog

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
	"github.com/Clark-Hu/movie-discovery/internal/logging"
	"github.com/Clark-Hu/movie-discovery/internal/metrics"
	"github.com/Clark-Hu/movie-discovery/internal/tmdb"
)

// Event is emitted after every state change. Slot names the part that changed.
type Event struct {
	Slot string `json:"slot"`
}

// Slots reported in events.
const (
	SlotLoading = "loading"
	SlotError   = "error"
	SlotSearch  = "search"
	SlotCurrent = "current_movie"
	SlotGenres  = "genres"
)

// GenreSlot names the per-genre list slot.
func GenreSlot(genreID int) string {
	return "genre:" + strconv.Itoa(genreID)
}

type opError struct {
	op      string
	message string
}

// Store caches catalog state. Reads are safe from any goroutine; no lock is held while the
// gateway is called, so concurrent fetches of one slot resolve last-writer-wins.
type Store struct {
	gateway tmdb.Client
	logger  *zap.Logger

	mu           sync.RWMutex
	categories   map[domain.Category][]domain.Movie
	search       []domain.Movie
	byGenre      map[int][]domain.Movie
	current      *domain.MovieDetails
	genres       []domain.Genre
	genresLoaded bool
	inflight     int
	lastErr      *opError

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// NewStore builds an empty cache over gateway.
func NewStore(gateway tmdb.Client, logger *zap.Logger) *Store {
	s := &Store{
		gateway:    gateway,
		logger:     logging.OrNop(logger),
		categories: make(map[domain.Category][]domain.Movie, len(domain.HomeCategories)),
		byGenre:    make(map[int][]domain.Movie),
		subs:       make(map[int]func(Event)),
	}
	for _, c := range domain.HomeCategories {
		s.categories[c] = []domain.Movie{}
	}
	return s
}

// FetchCategory loads one page of a home category. Page 1 replaces the list; later pages append.
func (s *Store) FetchCategory(ctx context.Context, category domain.Category, page int) (domain.MoviePage, error) {
	page = normalizePage(page)
	op := "category:" + string(category)
	s.begin()
	defer s.end()

	result, err := s.gateway.ListCategory(ctx, category, page)
	if err != nil {
		s.fail(op, err)
		return domain.MoviePage{}, err
	}

	s.mu.Lock()
	s.categories[category] = merge(s.categories[category], result.Results, page)
	s.clearErrorLocked(op)
	s.mu.Unlock()
	s.emit(Event{Slot: string(category)})
	return result, nil
}

// FetchMovieDetails replaces the current movie.
func (s *Store) FetchMovieDetails(ctx context.Context, movieID int) (domain.MovieDetails, error) {
	const op = "details"
	s.begin()
	defer s.end()

	details, err := s.gateway.MovieDetails(ctx, movieID)
	if err != nil {
		s.fail(op, err)
		return domain.MovieDetails{}, err
	}

	s.mu.Lock()
	s.current = &details
	s.clearErrorLocked(op)
	s.mu.Unlock()
	s.emit(Event{Slot: SlotCurrent})
	return details, nil
}

// SearchMovies runs a title search into the search slot.
func (s *Store) SearchMovies(ctx context.Context, query string, page int) (domain.MoviePage, error) {
	const op = "search"
	page = normalizePage(page)
	s.begin()
	defer s.end()

	result, err := s.gateway.SearchMovies(ctx, query, page)
	if err != nil {
		s.fail(op, err)
		return domain.MoviePage{}, err
	}

	s.mu.Lock()
	s.search = merge(s.search, result.Results, page)
	s.clearErrorLocked(op)
	s.mu.Unlock()
	s.emit(Event{Slot: SlotSearch})
	return result, nil
}

// FetchByGenre loads one page of a genre's discovery list.
func (s *Store) FetchByGenre(ctx context.Context, genreID, page int) (domain.MoviePage, error) {
	op := GenreSlot(genreID)
	page = normalizePage(page)
	s.begin()
	defer s.end()

	result, err := s.gateway.DiscoverByGenre(ctx, genreID, page)
	if err != nil {
		s.fail(op, err)
		return domain.MoviePage{}, err
	}

	s.mu.Lock()
	s.byGenre[genreID] = merge(s.byGenre[genreID], result.Results, page)
	s.clearErrorLocked(op)
	s.mu.Unlock()
	s.emit(Event{Slot: op})
	return result, nil
}

// FetchGenres loads the genre table once. It does not affect the loading flag.
func (s *Store) FetchGenres(ctx context.Context) ([]domain.Genre, error) {
	const op = "genres"
	s.mu.RLock()
	if s.genresLoaded {
		cached := append([]domain.Genre(nil), s.genres...)
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	genres, err := s.gateway.Genres(ctx)
	if err != nil {
		s.fail(op, err)
		return nil, err
	}

	s.mu.Lock()
	s.genres = append([]domain.Genre(nil), genres...)
	s.genresLoaded = true
	s.clearErrorLocked(op)
	s.mu.Unlock()
	s.emit(Event{Slot: SlotGenres})
	return genres, nil
}

// ClearSearchResults empties the search slot.
func (s *Store) ClearSearchResults() {
	s.mu.Lock()
	s.search = nil
	s.mu.Unlock()
	s.emit(Event{Slot: SlotSearch})
}

// ClearCurrentMovie empties the current movie slot.
func (s *Store) ClearCurrentMovie() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.emit(Event{Slot: SlotCurrent})
}

// ClearError empties the error slot.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	s.emit(Event{Slot: SlotError})
}

// HasMovies reports whether any home category holds at least one movie.
func (s *Store) HasMovies() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range domain.HomeCategories {
		if len(s.categories[c]) > 0 {
			return true
		}
	}
	return false
}

// Category returns a copy of a home category list.
func (s *Store) Category(category domain.Category) []domain.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMovies(s.categories[category])
}

func (s *Store) SearchResults() []domain.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMovies(s.search)
}

func (s *Store) GenreMovies(genreID int) []domain.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMovies(s.byGenre[genreID])
}

// CurrentMovie returns the movie being viewed, if any.
func (s *Store) CurrentMovie() (domain.MovieDetails, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.MovieDetails{}, false
	}
	return *s.current, true
}

func (s *Store) Genres() []domain.Genre {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Genre{}, s.genres...)
}

// Loading reports whether any tracked fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Err returns the recorded failure message, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastErr == nil {
		return ""
	}
	return s.lastErr.message
}

// Snapshot is a consistent copy of the whole cache.
type Snapshot struct {
	Popular       []domain.Movie       `json:"popular"`
	TopRated      []domain.Movie       `json:"top_rated"`
	NowPlaying    []domain.Movie       `json:"now_playing"`
	Upcoming      []domain.Movie       `json:"upcoming"`
	SearchResults []domain.Movie       `json:"search_results"`
	CurrentMovie  *domain.MovieDetails `json:"current_movie"`
	Genres        []domain.Genre       `json:"genres"`
	Loading       bool                 `json:"loading"`
	Error         string               `json:"error,omitempty"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Popular:       cloneMovies(s.categories[domain.CategoryPopular]),
		TopRated:      cloneMovies(s.categories[domain.CategoryTopRated]),
		NowPlaying:    cloneMovies(s.categories[domain.CategoryNowPlaying]),
		Upcoming:      cloneMovies(s.categories[domain.CategoryUpcoming]),
		SearchResults: cloneMovies(s.search),
		Genres:        append([]domain.Genre{}, s.genres...),
		Loading:       s.inflight > 0,
	}
	if s.current != nil {
		current := *s.current
		snap.CurrentMovie = &current
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.message
	}
	return snap
}

// Subscribe registers fn for change events and returns its unsubscribe handle.
// fn runs on the goroutine that made the change and must not block.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) emit(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Store) begin() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
	s.emit(Event{Slot: SlotLoading})
}

func (s *Store) end() {
	s.mu.Lock()
	if s.inflight > 0 {
		s.inflight--
	}
	s.mu.Unlock()
	s.emit(Event{Slot: SlotLoading})
}

func (s *Store) fail(op string, err error) {
	metrics.CatalogFetchErrors.WithLabelValues(opLabel(op)).Inc()
	s.logger.Debug("catalog: fetch failed", zap.String("op", op), zap.Error(err))
	s.mu.Lock()
	s.lastErr = &opError{op: op, message: err.Error()}
	s.mu.Unlock()
	s.emit(Event{Slot: SlotError})
}

// clearErrorLocked drops the error only when op is the one that recorded it. Starting a fetch
// does not reset it, unlike the browser store this cache replaced; the Store is shared by
// concurrent requests.
func (s *Store) clearErrorLocked(op string) {
	if s.lastErr != nil && s.lastErr.op == op {
		s.lastErr = nil
	}
}

func opLabel(op string) string {
	if len(op) > 6 && op[:6] == "genre:" {
		return "genre"
	}
	return op
}

func merge(existing, incoming []domain.Movie, page int) []domain.Movie {
	if page <= 1 {
		return cloneMovies(incoming)
	}
	out := make([]domain.Movie, 0, len(existing)+len(incoming))
	out = append(out, existing...)
	return append(out, incoming...)
}

func cloneMovies(in []domain.Movie) []domain.Movie {
	return append([]domain.Movie{}, in...)
}

func normalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
