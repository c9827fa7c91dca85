package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar names the optional YAML config file. Environment variables win over the file.
const PathEnvVar = "CONFIG_PATH"

// Docstore drivers accepted by DOCSTORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config captures all runtime configuration. Keys mirror the environment variable names.
//
// Credentials (TMDB key, database URLs, JWT secret) are optional: a missing credential
// degrades the component that needs it instead of failing startup.
type Config struct {
	Port             string `koanf:"port"`
	LogLevel         string `koanf:"log_level"`
	ReadTimeoutSecs  int    `koanf:"server_read_timeout"`
	WriteTimeoutSecs int    `koanf:"server_write_timeout"`
	IdleTimeoutSecs  int    `koanf:"server_idle_timeout"`
	CORSOrigins      string `koanf:"cors_origins"`
	AuthRateLimit    int    `koanf:"auth_rate_limit"`

	TMDBAPIKey      string  `koanf:"tmdb_api_key"`
	TMDBBaseURL     string  `koanf:"tmdb_base_url"`
	TMDBTimeoutSecs int     `koanf:"tmdb_timeout_secs"`
	TMDBRateLimit   float64 `koanf:"tmdb_rate_limit"`
	TMDBRateBurst   int     `koanf:"tmdb_rate_burst"`

	DocstoreDriver    string `koanf:"docstore_driver"`
	DBURL             string `koanf:"db_url"`
	DBMaxConns        int    `koanf:"db_max_conns"`
	DBMinConns        int    `koanf:"db_min_conns"`
	DBMaxIdleSecs     int    `koanf:"db_max_conn_idle_secs"`
	DBMaxLifeSecs     int    `koanf:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs int    `koanf:"db_conn_timeout_secs"`
	DBStatementCache  int    `koanf:"db_statement_cache_capacity"`
	MongoURI          string `koanf:"mongo_uri"`
	MongoDatabase     string `koanf:"mongo_database"`

	JWTSecret       string `koanf:"jwt_secret"`
	SessionTTLHours int    `koanf:"session_ttl_hours"`
	SessionFile     string `koanf:"session_file"`
	NATSURL         string `koanf:"nats_url"`
}

func defaults() Config {
	return Config{
		Port:              "8080",
		LogLevel:          "info",
		ReadTimeoutSecs:   15,
		WriteTimeoutSecs:  15,
		IdleTimeoutSecs:   60,
		CORSOrigins:       "*",
		AuthRateLimit:     20,
		TMDBBaseURL:       "https://api.themoviedb.org/3",
		TMDBTimeoutSecs:   10,
		TMDBRateLimit:     40,
		TMDBRateBurst:     20,
		DocstoreDriver:    DriverPostgres,
		DBMaxConns:        10,
		DBMinConns:        1,
		DBMaxIdleSecs:     300,
		DBMaxLifeSecs:     3600,
		DBConnTimeoutSecs: 10,
		DBStatementCache:  256,
		MongoDatabase:     "movies",
		SessionTTLHours:   24 * 7,
	}
}

// Load layers defaults, the optional config file and environment variables, then validates.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv(PathEnvVar)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Empty variables are skipped so they fall back to defaults.
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return strings.ToLower(key), strings.TrimSpace(value)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.DocstoreDriver = strings.ToLower(cfg.DocstoreDriver)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects malformed values. Absent credentials are not an error.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.TMDBTimeoutSecs <= 0 {
		return fmt.Errorf("TMDB_TIMEOUT_SECS must be positive")
	}
	if c.TMDBRateLimit < 0 {
		return fmt.Errorf("TMDB_RATE_LIMIT must be non-negative")
	}
	if c.TMDBRateLimit > 0 && c.TMDBRateBurst <= 0 {
		return fmt.Errorf("TMDB_RATE_BURST must be positive when TMDB_RATE_LIMIT is set")
	}
	switch c.DocstoreDriver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("DOCSTORE_DRIVER must be one of %s, %s, %s", DriverPostgres, DriverMongo, DriverMemory)
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if c.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if c.AuthRateLimit < 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT must be non-negative")
	}
	return nil
}

// IdentityConfigured reports whether the credential provider can run: it needs a signing secret
// and somewhere to keep users, either the database or the in-memory driver.
func (c Config) IdentityConfigured() bool {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return false
	}
	return strings.TrimSpace(c.DBURL) != "" || c.DocstoreDriver == DriverMemory
}

// CORSOriginList splits CORS_ORIGINS on commas.
func (c Config) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
