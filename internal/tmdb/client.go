package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
	"github.com/Clark-Hu/movie-discovery/internal/logging"
	"github.com/Clark-Hu/movie-discovery/internal/metrics"
)

// DefaultBaseURL is used when no override is configured.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// PlaceholderAPIKey is the value shipped in sample env files; it counts as unconfigured.
const PlaceholderAPIKey = "your_tmdb_api_key_here"

// ErrNotConfigured is returned by every call when the API key is missing.
var ErrNotConfigured = errors.New("tmdb: API key is not configured, set TMDB_API_KEY")

// APIError is a non-2xx response from the catalog API.
type APIError struct {
	StatusCode    int
	StatusMessage string
}

func (e *APIError) Error() string {
	if e.StatusMessage == "" {
		return fmt.Sprintf("tmdb: upstream returned %d", e.StatusCode)
	}
	return fmt.Sprintf("tmdb: upstream returned %d: %s", e.StatusCode, e.StatusMessage)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client defines the read-only catalog queries.
type Client interface {
	ListCategory(ctx context.Context, category domain.Category, page int) (domain.MoviePage, error)
	MovieDetails(ctx context.Context, id int) (domain.MovieDetails, error)
	SearchMovies(ctx context.Context, query string, page int) (domain.MoviePage, error)
	Genres(ctx context.Context) ([]domain.Genre, error)
	DiscoverByGenre(ctx context.Context, genreID, page int) (domain.MoviePage, error)
}

// Options controls the HTTP client.
type Options struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	RateBurst int
	Logger    *zap.Logger
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL    *url.URL
	apiKey     string
	configured bool
	client     *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *zap.Logger
}

// Configured reports whether key is usable.
func Configured(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderAPIKey
}

// NewHTTPClient constructs a new HTTP-backed catalog client. A missing key is not an error here;
// calls fail with ErrNotConfigured instead.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	logger := logging.OrNop(opts.Logger)
	base := opts.BaseURL
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &HTTPClient{
		baseURL:    parsed,
		apiKey:     strings.TrimSpace(opts.APIKey),
		configured: Configured(opts.APIKey),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	c.breaker = newBreaker("tmdb", logger)
	if !c.configured {
		logger.Warn("tmdb: api key not configured, catalog calls will fail")
	}
	return c, nil
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// Client errors are answers, not outages.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("tmdb: circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// ListCategory fetches one page of a home category.
func (c *HTTPClient) ListCategory(ctx context.Context, category domain.Category, page int) (domain.MoviePage, error) {
	if !category.Valid() {
		return domain.MoviePage{}, fmt.Errorf("tmdb: unknown category %q", category)
	}
	return c.page(ctx, string(category), "/movie/"+string(category), pageParams(page))
}

// MovieDetails fetches a movie with videos, credits and similar titles embedded.
func (c *HTTPClient) MovieDetails(ctx context.Context, id int) (domain.MovieDetails, error) {
	params := url.Values{}
	params.Set("append_to_response", "videos,credits,similar")

	var payload detailsPayload
	if err := c.get(ctx, "details", "/movie/"+strconv.Itoa(id), params, &payload); err != nil {
		return domain.MovieDetails{}, err
	}
	return convertDetails(payload), nil
}

// SearchMovies runs a title search.
func (c *HTTPClient) SearchMovies(ctx context.Context, query string, page int) (domain.MoviePage, error) {
	params := pageParams(page)
	params.Set("query", query)
	return c.page(ctx, "search", "/search/movie", params)
}

// Genres fetches the movie genre table.
func (c *HTTPClient) Genres(ctx context.Context) ([]domain.Genre, error) {
	var payload genresPayload
	if err := c.get(ctx, "genres", "/genre/movie/list", nil, &payload); err != nil {
		return nil, err
	}
	if payload.Genres == nil {
		return []domain.Genre{}, nil
	}
	return payload.Genres, nil
}

// DiscoverByGenre lists movies tagged with genreID.
func (c *HTTPClient) DiscoverByGenre(ctx context.Context, genreID, page int) (domain.MoviePage, error) {
	params := pageParams(page)
	params.Set("with_genres", strconv.Itoa(genreID))
	return c.page(ctx, "discover", "/discover/movie", params)
}

func (c *HTTPClient) page(ctx context.Context, endpoint, path string, params url.Values) (domain.MoviePage, error) {
	var payload domain.MoviePage
	if err := c.get(ctx, endpoint, path, params, &payload); err != nil {
		return domain.MoviePage{}, err
	}
	return normalizePage(payload), nil
}

// get is the single request path; the configuration check runs here before any I/O.
func (c *HTTPClient) get(ctx context.Context, endpoint, path string, params url.Values, dst any) error {
	if !c.configured {
		metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "not_configured").Inc()
		return ErrNotConfigured
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	target := c.baseURL.JoinPath(path)
	target.RawQuery = params.Encode()

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, target.String())
	})
	metrics.TMDBRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TMDBRequestsTotal.WithLabelValues(endpoint, outcome(err)).Inc()
		return err
	}
	metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "ok").Inc()

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode tmdb %s response: %w", endpoint, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tmdb response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	default:
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload errorPayload
		if json.Unmarshal(body, &payload) == nil {
			apiErr.StatusMessage = payload.StatusMessage
		}
		if resp.StatusCode != http.StatusNotFound {
			c.logger.Warn("tmdb: unexpected status",
				zap.Int("status", resp.StatusCode), zap.String("message", apiErr.StatusMessage))
		}
		return nil, apiErr
	}
}

func outcome(err error) string {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return strconv.Itoa(apiErr.StatusCode)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	default:
		return "transport"
	}
}

func pageParams(page int) url.Values {
	if page <= 0 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	return params
}
