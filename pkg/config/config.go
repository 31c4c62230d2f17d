// Package config loads the tripfetch configuration from environment
// variables, with an optional .env file for development.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full application configuration.
type Config struct {
	// DataDir is where per-source store files live.
	DataDir string `env:"TRIPFETCH_DATA_DIR" envDefault:"./data"`

	// Timeout is the per-call HTTP timeout.
	Timeout time.Duration `env:"TRIPFETCH_TIMEOUT" envDefault:"30s"`

	// Pace is the minimum delay between consecutive calls.
	Pace time.Duration `env:"TRIPFETCH_PACE" envDefault:"350ms"`

	// Backoff is the long sleep after a rate-limit response.
	Backoff time.Duration `env:"TRIPFETCH_BACKOFF" envDefault:"30m"`

	// PersistEvery persists the store after every Nth committed item.
	PersistEvery int `env:"TRIPFETCH_PERSIST_EVERY" envDefault:"1"`

	// UserAgent identifies the fetcher to upstream APIs.
	UserAgent string `env:"TRIPFETCH_USER_AGENT" envDefault:"tripfetch/0.1.0"`

	// CountriesCSV is the country catalog used by the per-country
	// sources. RoutesCSV feeds the amadeus route catalog.
	CountriesCSV string `env:"TRIPFETCH_COUNTRIES_CSV"`
	RoutesCSV    string `env:"TRIPFETCH_ROUTES_CSV"`

	// RouteOrigins are the origin hub IATA codes the flight route
	// catalog fans out from.
	RouteOrigins []string `env:"TRIPFETCH_ROUTE_ORIGINS" envDefault:"FRA"`

	// WarningsDB is the SQLite file the travelwarning export writes to.
	WarningsDB string `env:"TRIPFETCH_WARNINGS_DB" envDefault:"./data/travel_warnings.db"`

	// WarningsMinRows refuses travelwarning exports smaller than this.
	WarningsMinRows int `env:"TRIPFETCH_WARNINGS_MIN_ROWS" envDefault:"150"`

	Log    LogConfig   `envPrefix:"TRIPFETCH_LOG_"`
	Redis  RedisConfig `envPrefix:"TRIPFETCH_REDIS_"`
	Source SourceConfig
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// RedisConfig is the optional shared cache / quota backend. An empty
// address disables both.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// SourceConfig carries per-source credentials and endpoint overrides.
// Credentials are only required for the source actually being run;
// each source constructor validates its own.
type SourceConfig struct {
	HoroscopeToken   string `env:"TRIPFETCH_HOROSCOPE_TOKEN"`
	HoroscopeBaseURL string `env:"TRIPFETCH_HOROSCOPE_BASE_URL"`

	UnsplashAccessKey string `env:"TRIPFETCH_UNSPLASH_ACCESS_KEY"`
	UnsplashBaseURL   string `env:"TRIPFETCH_UNSPLASH_BASE_URL"`

	TravelWarningBaseURL string `env:"TRIPFETCH_TRAVELWARNING_BASE_URL"`

	NumbeoAPIKey  string `env:"TRIPFETCH_NUMBEO_API_KEY"`
	NumbeoBaseURL string `env:"TRIPFETCH_NUMBEO_BASE_URL"`

	EqualdexAPIKey  string `env:"TRIPFETCH_EQUALDEX_API_KEY"`
	EqualdexBaseURL string `env:"TRIPFETCH_EQUALDEX_BASE_URL"`

	AmadeusClientID     string `env:"TRIPFETCH_AMADEUS_CLIENT_ID"`
	AmadeusClientSecret string `env:"TRIPFETCH_AMADEUS_CLIENT_SECRET"`
	AmadeusBaseURL      string `env:"TRIPFETCH_AMADEUS_BASE_URL"`
}

// Load reads the configuration from the environment. envFile, when
// non-empty, is loaded first; a missing default .env file is not an
// error, a missing explicitly named one is.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate applies guardrails to values loaded from the environment.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive (got %v)", c.Timeout)
	}
	if c.Pace < 0 {
		return fmt.Errorf("pace must not be negative (got %v)", c.Pace)
	}
	if c.Backoff < 0 {
		return fmt.Errorf("backoff must not be negative (got %v)", c.Backoff)
	}
	if c.PersistEvery < 1 {
		c.PersistEvery = 1
	}
	if c.WarningsMinRows < 0 {
		c.WarningsMinRows = 0
	}
	return nil
}

// StorePath returns the store file for a source within the data dir.
func (c *Config) StorePath(source string) string {
	return c.DataDir + "/" + source + ".json"
}
