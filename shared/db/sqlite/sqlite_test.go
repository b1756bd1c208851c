package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	database := NewSQLiteDB(&SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db"), MaxOpenConns: 4})
	require.NoError(t, database.Connect())
	t.Cleanup(func() { database.Close() })
	return database
}

func TestSQLiteDB_Connect(t *testing.T) {
	database := connectTestDB(t)

	require.NotNil(t, database.DB())
	assert.NoError(t, database.Ping(context.Background()))

	err := database.Connect()
	assert.Error(t, err, "Connect() should fail when already connected")
}

func TestSQLiteDB_ConnectCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "blog.db")
	database := NewSQLiteDB(&SQLiteConfig{Path: path})
	require.NoError(t, database.Connect())
	defer database.Close()

	assert.FileExists(t, path)
}

func TestSQLiteDB_Close(t *testing.T) {
	database := NewSQLiteDB(&SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")})

	assert.NoError(t, database.Close(), "Close without Connect should not error")

	require.NoError(t, database.Connect())
	assert.NoError(t, database.Close())
	assert.Nil(t, database.DB())
	assert.Error(t, database.Ping(context.Background()))
}

func TestMigrations_CreateBlogsTable(t *testing.T) {
	conn := connectTestDB(t).DB()

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='blogs'").Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_blogs_created_at'").Scan(&count))
	assert.Equal(t, 1, count)

	var name string
	require.NoError(t, conn.QueryRow("SELECT name FROM schema_migrations WHERE version = 1").Scan(&name))
	assert.Equal(t, "create_blogs_table", name)
}

func TestMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	first := NewSQLiteDB(&SQLiteConfig{Path: path})
	require.NoError(t, first.Connect())
	require.NoError(t, first.Close())

	second := NewSQLiteDB(&SQLiteConfig{Path: path})
	require.NoError(t, second.Connect())
	defer second.Close()

	var count int
	require.NoError(t, second.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrations), count)
}

func TestBlogsTableSchema(t *testing.T) {
	conn := connectTestDB(t).DB()

	now := time.Date(2025, 3, 1, 12, 30, 0, 123456000, time.UTC)
	res, err := conn.Exec(`
		INSERT INTO blogs (title, author, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, "Test Post", "Ada", "Body", now, now)
	require.NoError(t, err)

	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	var title string
	var cover sql.NullString
	var createdAt time.Time
	err = conn.QueryRow("SELECT title, cover_image, created_at FROM blogs WHERE id = ?", id).
		Scan(&title, &cover, &createdAt)
	require.NoError(t, err)

	assert.Equal(t, "Test Post", title)
	assert.False(t, cover.Valid, "cover_image should default to NULL")
	assert.True(t, now.Equal(createdAt), "created_at = %v, want %v", createdAt, now)
}

func TestBlogsTableRequiresTitle(t *testing.T) {
	conn := connectTestDB(t).DB()

	_, err := conn.Exec(`INSERT INTO blogs (author, content) VALUES (?, ?)`, "Ada", "Body")
	assert.Error(t, err)
}

func TestLowerFoldsUnicode(t *testing.T) {
	conn := connectTestDB(t).DB()

	tests := []struct {
		in   any
		want sql.NullString
	}{
		{"ÉLAN Vital", sql.NullString{String: "élan vital", Valid: true}},
		{"ÀÖß ΣΑΣ", sql.NullString{String: "àöß σασ", Valid: true}},
		{"plain ASCII", sql.NullString{String: "plain ascii", Valid: true}},
		{nil, sql.NullString{}},
	}

	for _, tt := range tests {
		var got sql.NullString
		require.NoError(t, conn.QueryRow(`SELECT LOWER(?)`, tt.in).Scan(&got))
		assert.Equal(t, tt.want, got)
	}
}
