package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_Sweep(t *testing.T) {
	env := setupTestEnv(t)
	svc := NewBlogService(env.repo, env.images)
	ctx := context.Background()

	in := validInput()
	in.Image = pngUpload(t, "kept.png")
	kept, err := svc.Create(ctx, in)
	require.NoError(t, err)

	in.Image = pngUpload(t, "gone.png")
	dangling, err := svc.Create(ctx, in)
	require.NoError(t, err)
	require.NoError(t, os.Remove(dangling.CoverImage.FilePath(env.images.Root())))

	old := filepath.Join(env.images.Root(), "1-old-orphan.png")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	young := filepath.Join(env.images.Root(), "2-young-orphan.png")
	require.NoError(t, os.WriteFile(young, []byte("young"), 0o644))

	sweeper := NewSweeper(env.repo, env.images)

	t.Run("dry run touches nothing", func(t *testing.T) {
		report, err := sweeper.Sweep(ctx, SweepOptions{DryRun: true, MinAge: time.Hour})
		require.NoError(t, err)

		assert.Equal(t, 1, report.Referenced)
		assert.Equal(t, []string{"1-old-orphan.png"}, report.Removed)
		assert.Equal(t, []string{"2-young-orphan.png"}, report.Young)
		require.Len(t, report.Dangling, 1)
		assert.Equal(t, dangling.CoverImage, report.Dangling[0])
		assert.FileExists(t, old)
	})

	t.Run("removes old orphans only", func(t *testing.T) {
		report, err := sweeper.Sweep(ctx, SweepOptions{MinAge: time.Hour})
		require.NoError(t, err)

		assert.Equal(t, []string{"1-old-orphan.png"}, report.Removed)
		assert.Empty(t, report.Failed)
		assert.NoFileExists(t, old)
		assert.FileExists(t, young)
		assert.FileExists(t, kept.CoverImage.FilePath(env.images.Root()))
	})

	t.Run("zero min age removes every orphan", func(t *testing.T) {
		report, err := sweeper.Sweep(ctx, SweepOptions{})
		require.NoError(t, err)

		assert.Equal(t, []string{"2-young-orphan.png"}, report.Removed)
		assert.Equal(t, []string{kept.CoverImage.Name()}, storedFiles(t, env.images))
	})
}

func TestSweeper_SweepRemovesStaleTempFiles(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	stale := filepath.Join(env.images.Root(), "1-interrupted.png.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	fresh := filepath.Join(env.images.Root(), "2-in-flight.png.tmp")
	require.NoError(t, os.WriteFile(fresh, []byte("partial"), 0o644))

	sweeper := NewSweeper(env.repo, env.images)

	report, err := sweeper.Sweep(ctx, SweepOptions{DryRun: true, MinAge: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, []string{"1-interrupted.png.tmp"}, report.Removed)
	assert.Equal(t, []string{"2-in-flight.png.tmp"}, report.Young)
	assert.FileExists(t, stale)

	report, err = sweeper.Sweep(ctx, SweepOptions{MinAge: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, []string{"1-interrupted.png.tmp"}, report.Removed)
	assert.Empty(t, report.Failed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.Empty(t, report.Dangling)
}
