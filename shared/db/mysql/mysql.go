package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/dfryer1193/blogapi/shared/db"
)

// MySQLConfig is populated from the environment by the config package.
type MySQLConfig struct {
	Host         string `env:"DB_HOST" envDefault:"localhost"`
	Port         int    `env:"DB_PORT" envDefault:"3306"`
	User         string `env:"DB_USER"`
	Password     string `env:"DB_PASSWORD"`
	Name         string `env:"DB_NAME" envDefault:"blog"`
	MaxOpenConns int    `env:"DB_CONNECTION_LIMIT" envDefault:"10"`
}

// DSN renders the config as a go-sql-driver DSN. Times are parsed into
// time.Time in UTC and affected-row counts report matched rows, so an
// UPDATE that rewrites identical values still counts as a hit.
func (c *MySQLConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.DBName = c.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

var _ db.Database = (*MySQLDB)(nil)

// MySQLDB implements db.Database on top of a MySQL connection pool.
type MySQLDB struct {
	cfg MySQLConfig
	db  *sql.DB
}

func NewMySQLDB(cfg *MySQLConfig) *MySQLDB {
	return &MySQLDB{cfg: *cfg}
}

// Connect opens the pool, checks the server is reachable and runs migrations.
func (m *MySQLDB) Connect() error {
	if m.db != nil {
		return fmt.Errorf("database already connected")
	}

	conn, err := sql.Open("mysql", m.cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if m.cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(m.cfg.MaxOpenConns)
		conn.SetMaxIdleConns(m.cfg.MaxOpenConns)
	}
	conn.SetConnMaxLifetime(30 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(conn, migrations); err != nil {
		conn.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.db = conn
	return nil
}

func (m *MySQLDB) Ping(ctx context.Context) error {
	if m.db == nil {
		return fmt.Errorf("database not connected")
	}
	return m.db.PingContext(ctx)
}

func (m *MySQLDB) Close() error {
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

func (m *MySQLDB) DB() *sql.DB {
	return m.db
}
