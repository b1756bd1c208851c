package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dfryer1193/blogapi/blog/persistence"
	"github.com/dfryer1193/blogapi/shared/db"
	"github.com/dfryer1193/blogapi/shared/db/mysql"
	"github.com/dfryer1193/blogapi/shared/db/sqlite"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Port     int    `env:"PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`

	MaxPageSize int `env:"MAX_PAGE_SIZE" envDefault:"100"`

	// CORSOrigins may contain wildcard hosts such as "https://*.vercel.app".
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000,http://127.0.0.1:5173,https://*.vercel.app,https://*.netlify.app"`

	// WriteRateLimit is requests per second per client on POST, PUT and DELETE. 0 disables it.
	WriteRateLimit  float64       `env:"WRITE_RATE_LIMIT" envDefault:"5"`
	WriteRateBurst  int           `env:"WRITE_RATE_BURST" envDefault:"10"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	SQLite sqlite.SQLiteConfig
	MySQL  mysql.MySQLConfig
	Images persistence.ImageStoreConfig
}

// IsProduction reports whether APP_ENV is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Database returns the unconnected database selected by DB_DRIVER.
func (c Config) Database() db.Database {
	if c.DBDriver == DriverMySQL {
		return mysql.NewMySQLDB(&c.MySQL)
	}
	return sqlite.NewSQLiteDB(&c.SQLite)
}

// LoadDotEnv loads variables from the given files (".env" if none) without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverMySQL:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverMySQL, c.DBDriver)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be positive, got %d", c.MaxPageSize)
	}
	if c.Images.MaxBytes < 1 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.Images.MaxBytes)
	}
	if c.WriteRateLimit < 0 {
		return fmt.Errorf("WRITE_RATE_LIMIT cannot be negative")
	}
	if c.WriteRateLimit > 0 && c.WriteRateBurst < 1 {
		return fmt.Errorf("WRITE_RATE_BURST must be positive when rate limiting is enabled")
	}
	if c.DBDriver == DriverMySQL && c.MySQL.User == "" {
		return fmt.Errorf("DB_USER is required for the mysql driver")
	}

	return nil
}
