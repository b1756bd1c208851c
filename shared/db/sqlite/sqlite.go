package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dfryer1193/blogapi/shared/db"
)

// SQLiteConfig is populated from the environment by the config package.
type SQLiteConfig struct {
	Path         string `env:"SQLITE_DB_PATH" envDefault:"./blog.db"`
	MaxOpenConns int    `env:"DB_CONNECTION_LIMIT" envDefault:"10"`
}

var _ db.Database = (*SQLiteDB)(nil)

// SQLiteDB implements the db.Database interface for SQLite
type SQLiteDB struct {
	cfg SQLiteConfig
	db  *sql.DB
}

// NewSQLiteDB creates a new, unconnected SQLite database.
func NewSQLiteDB(cfg *SQLiteConfig) *SQLiteDB {
	return &SQLiteDB{cfg: *cfg}
}

// Pragmas are passed through the DSN so every pooled connection gets them,
// not only the first one.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"busy_timeout(5000)",
	"cache_size(-64000)",
}

// dsn builds a modernc.org/sqlite DSN with pragmas and a sortable time format.
func (s *SQLiteDB) dsn() string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	q.Set("_time_format", "sqlite")
	return "file:" + s.cfg.Path + "?" + q.Encode()
}

// Connect opens a connection to the SQLite database
func (s *SQLiteDB) Connect() error {
	if s.db != nil {
		return fmt.Errorf("database already connected")
	}

	if dir := filepath.Dir(s.cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", s.dsn())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if s.cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(s.cfg.MaxOpenConns)
		conn.SetMaxIdleConns(s.cfg.MaxOpenConns)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.RunMigrations(conn, migrations); err != nil {
		conn.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.db = conn
	return nil
}

// Ping verifies the pool can still reach the database file.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not connected")
	}
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	return err
}

// DB returns the underlying *sql.DB instance
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}
