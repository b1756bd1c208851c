package db

import (
	"context"
	"database/sql"
)

// Database owns a pooled connection and the schema living behind it.
type Database interface {
	// Connect opens the pool, verifies it and brings the schema up to date.
	Connect() error
	Close() error
	// Ping checks the pool can still reach the database.
	Ping(ctx context.Context) error
	DB() *sql.DB
}
