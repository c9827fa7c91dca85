package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
)

type fakeGateway struct {
	mu       sync.Mutex
	pages    map[string]domain.MoviePage
	errs     map[string]error
	gate     map[string]chan struct{}
	details  domain.MovieDetails
	genres   []domain.Genre
	genreHit int32
	blocked  chan string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pages: make(map[string]domain.MoviePage),
		errs:  make(map[string]error),
		gate:  make(map[string]chan struct{}),
	}
}

func pageKey(kind string, page int) string {
	return kind + "#" + string(rune('0'+page))
}

func (f *fakeGateway) lookup(ctx context.Context, key string) (domain.MoviePage, error) {
	f.mu.Lock()
	gate := f.gate[key]
	f.mu.Unlock()
	if gate != nil {
		if f.blocked != nil {
			f.blocked <- key
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.MoviePage{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[key]; err != nil {
		return domain.MoviePage{}, err
	}
	return f.pages[key], nil
}

func (f *fakeGateway) ListCategory(ctx context.Context, c domain.Category, page int) (domain.MoviePage, error) {
	return f.lookup(ctx, pageKey(string(c), page))
}

func (f *fakeGateway) MovieDetails(ctx context.Context, id int) (domain.MovieDetails, error) {
	if _, err := f.lookup(ctx, "details"); err != nil {
		return domain.MovieDetails{}, err
	}
	d := f.details
	d.ID = id
	return d, nil
}

func (f *fakeGateway) SearchMovies(ctx context.Context, query string, page int) (domain.MoviePage, error) {
	return f.lookup(ctx, pageKey("search:"+query, page))
}

func (f *fakeGateway) Genres(ctx context.Context) ([]domain.Genre, error) {
	atomic.AddInt32(&f.genreHit, 1)
	if _, err := f.lookup(ctx, "genres"); err != nil {
		return nil, err
	}
	return f.genres, nil
}

func (f *fakeGateway) DiscoverByGenre(ctx context.Context, genreID, page int) (domain.MoviePage, error) {
	return f.lookup(ctx, pageKey("genre", page))
}

func movies(ids ...int) []domain.Movie {
	out := make([]domain.Movie, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Movie{ID: id})
	}
	return out
}

func ids(list []domain.Movie) []int {
	out := make([]int, 0, len(list))
	for _, m := range list {
		out = append(out, m.ID)
	}
	return out
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFetchCategoryPageMerge(t *testing.T) {
	gw := newFakeGateway()
	gw.pages[pageKey("popular", 1)] = domain.MoviePage{Page: 1, Results: movies(1, 2)}
	gw.pages[pageKey("popular", 2)] = domain.MoviePage{Page: 2, Results: movies(3, 4)}
	store := NewStore(gw, nil)
	ctx := context.Background()

	if _, err := store.FetchCategory(ctx, domain.CategoryPopular, 1); err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if _, err := store.FetchCategory(ctx, domain.CategoryPopular, 2); err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if got := ids(store.Category(domain.CategoryPopular)); !equalIDs(got, []int{1, 2, 3, 4}) {
		t.Fatalf("after page 2 = %v, want [1 2 3 4]", got)
	}

	if _, err := store.FetchCategory(ctx, domain.CategoryPopular, 1); err != nil {
		t.Fatalf("page 1 again: %v", err)
	}
	if got := ids(store.Category(domain.CategoryPopular)); !equalIDs(got, []int{1, 2}) {
		t.Fatalf("page 1 should replace, got %v", got)
	}
	if got := store.Category(domain.CategoryTopRated); len(got) != 0 {
		t.Fatalf("other categories must stay empty, got %v", got)
	}
}

func TestSearchMergeAndClear(t *testing.T) {
	gw := newFakeGateway()
	gw.pages[pageKey("search:alien", 1)] = domain.MoviePage{Results: movies(10)}
	gw.pages[pageKey("search:alien", 2)] = domain.MoviePage{Results: movies(11)}
	gw.pages[pageKey("search:heat", 1)] = domain.MoviePage{Results: movies(20)}
	store := NewStore(gw, nil)
	ctx := context.Background()

	store.SearchMovies(ctx, "alien", 0)
	store.SearchMovies(ctx, "alien", 2)
	if got := ids(store.SearchResults()); !equalIDs(got, []int{10, 11}) {
		t.Fatalf("search = %v", got)
	}
	store.SearchMovies(ctx, "heat", 1)
	if got := ids(store.SearchResults()); !equalIDs(got, []int{20}) {
		t.Fatalf("new search page 1 should replace, got %v", got)
	}

	gw.details = domain.MovieDetails{Runtime: 100}
	if _, err := store.FetchMovieDetails(ctx, 5); err != nil {
		t.Fatalf("details: %v", err)
	}

	store.ClearSearchResults()
	if len(store.SearchResults()) != 0 {
		t.Fatal("search results not cleared")
	}
	if _, ok := store.CurrentMovie(); !ok {
		t.Fatal("ClearSearchResults must not touch the current movie")
	}

	store.ClearCurrentMovie()
	if _, ok := store.CurrentMovie(); ok {
		t.Fatal("current movie not cleared")
	}
}

func TestHasMovies(t *testing.T) {
	gw := newFakeGateway()
	gw.pages[pageKey("upcoming", 1)] = domain.MoviePage{Results: movies(7)}
	gw.pages[pageKey("search:x", 1)] = domain.MoviePage{Results: movies(8)}
	store := NewStore(gw, nil)
	ctx := context.Background()

	if store.HasMovies() {
		t.Fatal("empty store reports movies")
	}
	store.SearchMovies(ctx, "x", 1)
	if store.HasMovies() {
		t.Fatal("search results are not a home category")
	}
	store.FetchCategory(ctx, domain.CategoryUpcoming, 1)
	if !store.HasMovies() {
		t.Fatal("HasMovies() = false with upcoming populated")
	}
}

func TestErrorSlot(t *testing.T) {
	gw := newFakeGateway()
	gw.pages[pageKey("popular", 1)] = domain.MoviePage{Results: movies(1)}
	gw.pages[pageKey("now_playing", 1)] = domain.MoviePage{Results: movies(2)}
	store := NewStore(gw, nil)
	ctx := context.Background()

	store.FetchCategory(ctx, domain.CategoryPopular, 1)

	boom := errors.New("upstream exploded")
	gw.errs[pageKey("popular", 1)] = boom
	if _, err := store.FetchCategory(ctx, domain.CategoryPopular, 1); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want propagated", err)
	}
	if store.Err() != boom.Error() {
		t.Fatalf("Err() = %q", store.Err())
	}
	if got := ids(store.Category(domain.CategoryPopular)); !equalIDs(got, []int{1}) {
		t.Fatalf("stale data should remain, got %v", got)
	}
	if store.Loading() {
		t.Fatal("loading not reset after failure")
	}

	store.FetchCategory(ctx, domain.CategoryNowPlaying, 1)
	if store.Err() == "" {
		t.Fatal("success of a different operation must not clear the error")
	}

	delete(gw.errs, pageKey("popular", 1))
	store.FetchCategory(ctx, domain.CategoryPopular, 1)
	if store.Err() != "" {
		t.Fatalf("retry success should clear its own error, got %q", store.Err())
	}

	gw.errs["details"] = boom
	store.FetchMovieDetails(ctx, 3)
	store.ClearError()
	if store.Err() != "" {
		t.Fatal("ClearError() did not clear")
	}
}

func TestLoadingTracksInFlight(t *testing.T) {
	gw := newFakeGateway()
	release := make(chan struct{})
	gw.gate[pageKey("top_rated", 1)] = release
	gw.pages[pageKey("top_rated", 1)] = domain.MoviePage{Results: movies(1)}
	gw.genres = []domain.Genre{{ID: 1, Name: "Action"}}
	store := NewStore(gw, nil)

	done := make(chan struct{})
	go func() {
		store.FetchCategory(context.Background(), domain.CategoryTopRated, 1)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !store.Loading() {
		if time.Now().After(deadline) {
			t.Fatal("loading never became true")
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(release)
	<-done
	if store.Loading() {
		t.Fatal("loading not reset")
	}
}

func TestFetchGenresOnceWithoutLoading(t *testing.T) {
	gw := newFakeGateway()
	gw.genres = []domain.Genre{{ID: 28, Name: "Action"}}
	store := NewStore(gw, nil)

	var sawLoading int32
	unsubscribe := store.Subscribe(func(ev Event) {
		if ev.Slot == SlotLoading {
			atomic.AddInt32(&sawLoading, 1)
		}
	})
	defer unsubscribe()

	for i := 0; i < 3; i++ {
		genres, err := store.FetchGenres(context.Background())
		if err != nil || len(genres) != 1 {
			t.Fatalf("FetchGenres = %v, %v", genres, err)
		}
	}
	if hits := atomic.LoadInt32(&gw.genreHit); hits != 1 {
		t.Fatalf("gateway called %d times, want 1", hits)
	}
	if atomic.LoadInt32(&sawLoading) != 0 {
		t.Fatal("FetchGenres must not touch loading")
	}
}

func TestFetchByGenre(t *testing.T) {
	gw := newFakeGateway()
	gw.pages[pageKey("genre", 1)] = domain.MoviePage{Results: movies(1)}
	gw.pages[pageKey("genre", 2)] = domain.MoviePage{Results: movies(2)}
	store := NewStore(gw, nil)
	ctx := context.Background()

	store.FetchByGenre(ctx, 28, 1)
	store.FetchByGenre(ctx, 28, 2)
	if got := ids(store.GenreMovies(28)); !equalIDs(got, []int{1, 2}) {
		t.Fatalf("genre 28 = %v", got)
	}
	if len(store.GenreMovies(35)) != 0 {
		t.Fatal("untouched genre should be empty")
	}
}

func TestConcurrentFetchLastWriterWins(t *testing.T) {
	gw := newFakeGateway()
	gw.blocked = make(chan string, 1)
	slow := make(chan struct{})
	key := pageKey("popular", 1)
	gw.gate[key] = slow
	gw.pages[key] = domain.MoviePage{Results: movies(1)}
	store := NewStore(gw, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		store.FetchCategory(ctx, domain.CategoryPopular, 1)
		close(done)
	}()
	<-gw.blocked

	gw.mu.Lock()
	delete(gw.gate, key)
	gw.pages[key] = domain.MoviePage{Results: movies(2)}
	gw.mu.Unlock()
	store.FetchCategory(ctx, domain.CategoryPopular, 1)
	if got := ids(store.Category(domain.CategoryPopular)); !equalIDs(got, []int{2}) {
		t.Fatalf("second fetch = %v", got)
	}

	gw.mu.Lock()
	gw.pages[key] = domain.MoviePage{Results: movies(3)}
	gw.mu.Unlock()
	close(slow)
	<-done

	if got := ids(store.Category(domain.CategoryPopular)); !equalIDs(got, []int{3}) {
		t.Fatalf("last call to resume should win, got %v", got)
	}
	if store.Loading() {
		t.Fatal("loading counter unbalanced")
	}
}

func TestSubscribeAndSnapshot(t *testing.T) {
	gw := newFakeGateway()
	gw.pages[pageKey("popular", 1)] = domain.MoviePage{Results: movies(1)}
	store := NewStore(gw, nil)

	var mu sync.Mutex
	var slots []string
	unsubscribe := store.Subscribe(func(ev Event) {
		mu.Lock()
		slots = append(slots, ev.Slot)
		mu.Unlock()
	})

	store.FetchCategory(context.Background(), domain.CategoryPopular, 1)
	unsubscribe()
	unsubscribe()
	store.ClearSearchResults()

	mu.Lock()
	got := append([]string(nil), slots...)
	mu.Unlock()
	want := []string{SlotLoading, string(domain.CategoryPopular), SlotLoading}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	snap := store.Snapshot()
	if len(snap.Popular) != 1 || snap.Loading || snap.CurrentMovie != nil || snap.TopRated == nil {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
