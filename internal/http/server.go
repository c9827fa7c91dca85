package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-discovery/internal/app"
	"github.com/Clark-Hu/movie-discovery/internal/config"
	"github.com/Clark-Hu/movie-discovery/internal/logging"
)

// Server wires HTTP routing, middleware, and handlers over one application context.
type Server struct {
	cfg      config.Config
	app      *app.App
	logger   *zap.Logger
	router   chi.Router
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, a *app.App, logger *zap.Logger) *Server {
	logger = logging.OrNop(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOriginList(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s := &Server{
		cfg:    cfg,
		app:    a,
		logger: logger,
		router: r,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      s.checkOrigin,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(instrument)

		r.Get("/home", s.handleHome)
		r.Get("/movies/{category}", s.handleCategory)
		r.Route("/movie", func(r chi.Router) {
			r.Delete("/current", s.handleClearCurrentMovie)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleMovieDetails)
				r.Get("/rating", s.handleGetRating)
				r.Put("/rating", s.handleSaveRating)
				r.Get("/rating/average", s.handleAverageRating)
			})
		})
		r.Get("/search", s.handleSearch)
		r.Delete("/search", s.handleClearSearch)
		r.Get("/genres", s.handleGenres)
		r.Get("/genres/{id}/movies", s.handleGenreMovies)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/session", s.handleSession)
			r.Group(func(r chi.Router) {
				if s.cfg.AuthRateLimit > 0 {
					r.Use(httprate.LimitByIP(s.cfg.AuthRateLimit, time.Minute))
				}
				r.Post("/login", s.handleLogin)
				r.Post("/register", s.handleRegister)
				r.Post("/logout", s.handleLogout)
			})
		})

		r.Get("/events", s.handleEvents)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx ends or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http: listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

type healthResponse struct {
	Status     string     `json:"status"`
	Components app.Status `json:"components"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Components: s.app.Status()}
	if err := s.app.HealthCheck(ctx); err != nil {
		s.logger.Warn("http: health check failed", zap.Error(err))
		resp.Status = "unavailable"
		s.respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}
