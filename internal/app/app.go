// Package app builds the single set of components a process runs with.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-discovery/internal/bootstrap"
	"github.com/Clark-Hu/movie-discovery/internal/catalog"
	"github.com/Clark-Hu/movie-discovery/internal/config"
	"github.com/Clark-Hu/movie-discovery/internal/docstore"
	"github.com/Clark-Hu/movie-discovery/internal/identity"
	"github.com/Clark-Hu/movie-discovery/internal/logging"
	"github.com/Clark-Hu/movie-discovery/internal/ratings"
	"github.com/Clark-Hu/movie-discovery/internal/session"
	"github.com/Clark-Hu/movie-discovery/internal/store"
	"github.com/Clark-Hu/movie-discovery/internal/tmdb"
)

// App holds exactly one instance of each component.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Gateway tmdb.Client
	Catalog *catalog.Store
	Loader  *bootstrap.Loader
	Ratings *ratings.Store
	Session *session.Manager

	db       *store.Store
	mongo    *docstore.MongoStore
	bus      *identity.NATSBus
	provider *identity.CredentialProvider
}

// New wires gateway → catalog → bootstrap, docstore → ratings and users → identity → session.
// Missing credentials leave the matching component unconfigured; unreachable backends that were
// configured are an error.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	a := &App{Config: cfg, Logger: logger}

	gateway, err := tmdb.NewHTTPClient(tmdb.Options{
		BaseURL:   cfg.TMDBBaseURL,
		APIKey:    cfg.TMDBAPIKey,
		Timeout:   time.Duration(cfg.TMDBTimeoutSecs) * time.Second,
		RateLimit: cfg.TMDBRateLimit,
		RateBurst: cfg.TMDBRateBurst,
		Logger:    logger.Named("tmdb"),
	})
	if err != nil {
		return nil, fmt.Errorf("init tmdb client: %w", err)
	}
	a.Gateway = gateway
	a.Catalog = catalog.NewStore(gateway, logger.Named("catalog"))
	a.Loader = bootstrap.NewLoader(a.Catalog, logger.Named("bootstrap"))

	if strings.TrimSpace(cfg.DBURL) != "" {
		a.db, err = store.New(ctx, cfg.DBURL, store.Options{
			MaxConns:               int32(cfg.DBMaxConns),
			MinConns:               int32(cfg.DBMinConns),
			MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
			MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
			ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
			StatementCacheCapacity: cfg.DBStatementCache,
			Logger:                 logger.Named("store"),
		})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
	}

	docs, err := a.openDocstore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	var ratingsColl docstore.Collection
	if docs != nil {
		ratingsColl = docs.Collection(ratings.CollectionName)
	} else {
		logger.Warn("app: document store not configured, ratings are disabled",
			zap.String("driver", cfg.DocstoreDriver))
	}
	a.Ratings = ratings.NewStore(ratingsColl, logger.Named("ratings"))

	var provider identity.Provider
	p := a.openIdentity()
	if p != nil {
		provider = p
	}
	a.Session = session.NewManager(provider, logger.Named("session"))
	// Start after the manager subscribes so a restored session reaches it.
	if p != nil {
		if err := p.Start(ctx); err != nil {
			a.Logger.Warn("app: identity event subscription failed", zap.Error(err))
		}
	}
	return a, nil
}

func (a *App) openDocstore(ctx context.Context) (docstore.Store, error) {
	switch a.Config.DocstoreDriver {
	case config.DriverMemory:
		return docstore.NewMemoryStore(), nil
	case config.DriverMongo:
		if strings.TrimSpace(a.Config.MongoURI) == "" {
			return nil, nil
		}
		ms, err := docstore.ConnectMongo(ctx, a.Config.MongoURI, a.Config.MongoDatabase)
		if err != nil {
			return nil, err
		}
		a.mongo = ms
		if err := ms.EnsureIndex(ctx, ratings.CollectionName, "movieId"); err != nil {
			a.Logger.Warn("app: error creating ratings index", zap.Error(err))
		}
		return ms, nil
	default:
		if a.db == nil {
			return nil, nil
		}
		return docstore.NewPostgresStore(a.db.Pool()), nil
	}
}

// openIdentity returns an unstarted provider, or nil when users or the signing secret are missing.
func (a *App) openIdentity() *identity.CredentialProvider {
	if !a.Config.IdentityConfigured() {
		a.Logger.Warn("app: identity provider not configured, sign-in is disabled")
		return nil
	}
	var users identity.UserStore = identity.NewMemoryUsers()
	if a.db != nil {
		users = identity.NewPostgresUsers(a.db.Pool())
	}

	var bus identity.EventBus
	if url := strings.TrimSpace(a.Config.NATSURL); url != "" {
		nb, err := identity.ConnectNATS(url)
		if err != nil {
			a.Logger.Warn("app: identity events unavailable", zap.Error(err))
		} else {
			a.bus = nb
			bus = nb
		}
	}

	p, err := identity.NewCredentialProvider(identity.Options{
		Users:       users,
		Secret:      a.Config.JWTSecret,
		SessionTTL:  time.Duration(a.Config.SessionTTLHours) * time.Hour,
		SessionFile: a.Config.SessionFile,
		Bus:         bus,
		Logger:      a.Logger.Named("identity"),
	})
	if err != nil {
		a.Logger.Warn("app: identity provider disabled", zap.Error(err))
		return nil
	}
	a.provider = p
	return p
}

// Status reports which optional components are usable.
type Status struct {
	Catalog  bool `json:"catalog"`
	Ratings  bool `json:"ratings"`
	Identity bool `json:"identity"`
	Database bool `json:"database"`
}

func (a *App) Status() Status {
	return Status{
		Catalog:  tmdb.Configured(a.Config.TMDBAPIKey),
		Ratings:  a.Ratings.Configured(),
		Identity: a.Session.Configured(),
		Database: a.db != nil,
	}
}

// HealthCheck pings the database when one is in use.
func (a *App) HealthCheck(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.HealthCheck(ctx)
}

// Close releases every connection New opened. It is safe on a partially built App.
func (a *App) Close() {
	if a.Session != nil {
		a.Session.Close()
	}
	if a.provider != nil {
		a.provider.Close()
	}
	a.bus.Close()
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Close(ctx); err != nil {
			a.Logger.Warn("app: error disconnecting mongo", zap.Error(err))
		}
	}
	a.db.Close()
}
