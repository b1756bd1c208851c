package application

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dfryer1193/blogapi/blog/domain"
	"github.com/dfryer1193/blogapi/blog/persistence"
	"github.com/dfryer1193/blogapi/shared/db/sqlite"
)

type testEnv struct {
	repo   *persistence.SQLBlogRepository
	images *persistence.FileImageStore
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: filepath.Join(dir, "blog.db"), MaxOpenConns: 4})
	require.NoError(t, database.Connect())
	t.Cleanup(func() { database.Close() })

	images, err := persistence.NewFileImageStore(persistence.ImageStoreConfig{
		Root:         filepath.Join(dir, "uploads"),
		PublicPrefix: "uploads",
	})
	require.NoError(t, err)

	return &testEnv{
		repo:   persistence.NewBlogRepository(database.DB()),
		images: images,
	}
}

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

func pngUpload(t *testing.T, name string) *domain.Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(0, 0, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &domain.Upload{Filename: name, Size: int64(buf.Len()), Content: bytes.NewReader(buf.Bytes())}
}

func storedFiles(t *testing.T, store *persistence.FileImageStore) []string {
	t.Helper()
	entries, err := os.ReadDir(store.Root())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func ptr(s string) *string {
	return &s
}

// failingRepo wraps a repository and fails the chosen write.
type failingRepo struct {
	domain.BlogRepository
	failCreate bool
	failUpdate bool
}

var errInjected = &domain.Error{Kind: domain.KindStorage, Message: "injected failure"}

func (r *failingRepo) CreateBlog(ctx context.Context, p *domain.BlogPost) (int64, error) {
	if r.failCreate {
		return 0, errInjected
	}
	return r.BlogRepository.CreateBlog(ctx, p)
}

func (r *failingRepo) UpdateBlog(ctx context.Context, id int64, changes domain.BlogChanges) error {
	if r.failUpdate {
		return errInjected
	}
	return r.BlogRepository.UpdateBlog(ctx, id, changes)
}
