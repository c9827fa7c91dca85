// Package bootstrap fills the home view's category lists on first use.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
	"github.com/Clark-Hu/movie-discovery/internal/logging"
	"github.com/Clark-Hu/movie-discovery/internal/metrics"
)

// HomeStore is the part of the catalog cache the loader drives.
type HomeStore interface {
	FetchCategory(ctx context.Context, category domain.Category, page int) (domain.MoviePage, error)
	HasMovies() bool
}

// Loader fetches the home categories.
type Loader struct {
	store  HomeStore
	logger *zap.Logger
}

func NewLoader(store HomeStore, logger *zap.Logger) *Loader {
	return &Loader{store: store, logger: logging.OrNop(logger)}
}

// InitializeHomeData fetches page 1 of every home category concurrently and waits for all of them.
// A failed category does not cancel the others; failures are logged and never returned.
func (l *Loader) InitializeHomeData(ctx context.Context) {
	var g errgroup.Group
	for _, category := range domain.HomeCategories {
		category := category
		g.Go(func() error {
			if _, err := l.store.FetchCategory(ctx, category, 1); err != nil {
				l.logger.Warn("bootstrap: category fetch failed",
					zap.String("category", string(category)), zap.Error(err))
				return fmt.Errorf("fetch %s: %w", category, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.BootstrapFailures.Inc()
		l.logger.Error("bootstrap: error initializing home data", zap.Error(err))
	}
}

// EnsureHomeData initializes only when no home category holds data. It reports whether it fetched.
func (l *Loader) EnsureHomeData(ctx context.Context) bool {
	if l.store.HasMovies() {
		return false
	}
	l.InitializeHomeData(ctx)
	return true
}
