package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLConfig_DSN(t *testing.T) {
	cfg := &MySQLConfig{
		Host:     "db.internal",
		Port:     3307,
		User:     "blog",
		Password: "s3cr3t",
		Name:     "blogs",
	}

	parsed, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)

	assert.Equal(t, "blog", parsed.User)
	assert.Equal(t, "s3cr3t", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.internal:3307", parsed.Addr)
	assert.Equal(t, "blogs", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.True(t, parsed.ClientFoundRows)
	assert.Equal(t, time.UTC, parsed.Loc)
}

func TestMySQLDB_NotConnected(t *testing.T) {
	database := NewMySQLDB(&MySQLConfig{Host: "localhost", Port: 3306})

	assert.Nil(t, database.DB())
	assert.NoError(t, database.Close())
	assert.Error(t, database.Ping(context.Background()))
}

func TestMigrations_Ordered(t *testing.T) {
	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].Version, migrations[i-1].Version)
	}
}
