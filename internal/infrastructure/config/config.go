package config

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store backends.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
	StoreMongo = "mongo"
)

type Config struct {
	Port     string `env:"PORT,      default=8090"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	API     APIConfig
	Console ConsoleConfig
	Store   StoreConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

// APIConfig points at the admin API the console drives.
type APIConfig struct {
	BaseURL string        `env:"CONSOLE_API_URL,     default=http://localhost:8080/api"`
	Timeout time.Duration `env:"CONSOLE_API_TIMEOUT, default=15s"`
}

// ConsoleConfig tunes the list views and routing.
type ConsoleConfig struct {
	SearchDebounce time.Duration `env:"CONSOLE_SEARCH_DEBOUNCE, default=300ms"`
	PageSize       int           `env:"CONSOLE_PAGE_SIZE,       default=10"`
	LandingRoute   string        `env:"CONSOLE_LANDING_ROUTE,   default=/dashboard"`
	Workers        int           `env:"CONSOLE_WORKERS,         default=4"`
}

// StoreConfig selects where credentials and preferences live.
type StoreConfig struct {
	Backend    string `env:"CONSOLE_STORE,            default=file"`
	Path       string `env:"CONSOLE_STORE_PATH"`
	Passphrase string `env:"CONSOLE_STORE_PASSPHRASE"`
	Profile    string `env:"CONSOLE_PROFILE,          default=default"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=admin_console"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CONSOLE_API_URL %q is not an absolute URL", c.API.BaseURL)
	}
	switch c.Store.Backend {
	case StoreFile, StoreRedis, StoreMongo:
	default:
		return fmt.Errorf("CONSOLE_STORE %q is not one of file, redis, mongo", c.Store.Backend)
	}
	if c.Store.Profile == "" {
		return fmt.Errorf("CONSOLE_PROFILE must not be empty")
	}
	if c.Console.PageSize <= 0 {
		return fmt.Errorf("CONSOLE_PAGE_SIZE must be positive, got %d", c.Console.PageSize)
	}
	return nil
}
