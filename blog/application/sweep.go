package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dfryer1193/blogapi/blog/domain"
)

// SweepOptions controls an orphan sweep.
type SweepOptions struct {
	// DryRun reports what would be removed without touching any file.
	DryRun bool
	// MinAge protects files written by requests that have not yet inserted
	// their row.
	MinAge time.Duration
}

// SweepReport summarizes a sweep.
type SweepReport struct {
	Referenced int
	Removed    []string
	Young      []string
	Failed     []string
	// Dangling lists cover images referenced by a post whose file is gone.
	Dangling []domain.AssetRef
}

// Sweeper reconciles the upload directory with the blogs table.
type Sweeper struct {
	repo   domain.BlogRepository
	images domain.ImageStore
	now    func() time.Time
}

func NewSweeper(repo domain.BlogRepository, images domain.ImageStore) *Sweeper {
	return &Sweeper{
		repo:   repo,
		images: images,
		now:    time.Now,
	}
}

// Sweep removes stored images no post references and temp files from
// interrupted uploads, both only when older than opts.MinAge, and reports posts
// pointing at missing files.
func (s *Sweeper) Sweep(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	refs, err := s.repo.ListCoverImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cover images: %w", err)
	}

	files, err := s.images.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored images: %w", err)
	}

	partial, err := s.images.ListPartial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list partial uploads: %w", err)
	}

	referenced := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		referenced[ref.Name()] = struct{}{}
	}

	report := &SweepReport{}
	cutoff := s.now().Add(-opts.MinAge)

	for _, f := range files {
		if _, ok := referenced[f.Ref.Name()]; ok {
			report.Referenced++
			continue
		}
		s.reap(ctx, report, f, cutoff, opts.DryRun)
	}

	for _, f := range partial {
		s.reap(ctx, report, f, cutoff, opts.DryRun)
	}

	for _, ref := range refs {
		ok, err := s.images.Exists(ctx, ref)
		if err != nil {
			log.Warn().Err(err).Str("image", ref.Name()).Msg("Failed to check cover image")
			continue
		}
		if !ok {
			report.Dangling = append(report.Dangling, ref)
		}
	}

	return report, nil
}

// reap removes f unless it is newer than cutoff, recording the outcome.
func (s *Sweeper) reap(ctx context.Context, report *SweepReport, f *domain.ImageInfo, cutoff time.Time, dryRun bool) {
	name := f.Ref.Name()

	if f.CreatedAt.After(cutoff) {
		report.Young = append(report.Young, name)
		return
	}

	if dryRun {
		report.Removed = append(report.Removed, name)
		return
	}

	if err := s.images.Delete(ctx, f.Ref); err != nil {
		log.Warn().Err(err).Str("image", name).Msg("Failed to remove orphaned image")
		report.Failed = append(report.Failed, name)
		return
	}
	log.Info().Str("image", name).Msg("Removed orphaned image")
	report.Removed = append(report.Removed, name)
}
