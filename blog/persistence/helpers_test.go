package persistence

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dfryer1193/blogapi/blog/domain"
	"github.com/dfryer1193/blogapi/shared/db/sqlite"
)

// setupTestRepo connects a migrated SQLite database in a temp directory.
func setupTestRepo(t *testing.T) *SQLBlogRepository {
	t.Helper()
	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: filepath.Join(t.TempDir(), "blog.db"), MaxOpenConns: 4})
	require.NoError(t, database.Connect())
	t.Cleanup(func() { database.Close() })
	return NewBlogRepository(database.DB())
}

// pngBytes encodes a w×h PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngUpload(t *testing.T, name string) *domain.Upload {
	t.Helper()
	data := pngBytes(t, 4, 3)
	return &domain.Upload{Filename: name, Size: int64(len(data)), Content: bytes.NewReader(data)}
}

func mustCreate(t *testing.T, repo *SQLBlogRepository, p *domain.BlogPost) int64 {
	t.Helper()
	id, err := repo.CreateBlog(context.Background(), p)
	require.NoError(t, err)
	return id
}
