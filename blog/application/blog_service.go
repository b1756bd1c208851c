package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dfryer1193/blogapi/blog/domain"
)

const (
	DefaultPage        = 1
	DefaultLimit       = 10
	DefaultMaxPageSize = 100

	// maxOffset keeps page*limit inside what every SQL dialect accepts.
	maxOffset = 1<<31 - 1
)

// BlogService implements the blog record operations on top of a repository and
// an image store.
type BlogService struct {
	repo        domain.BlogRepository
	images      domain.ImageStore
	maxPageSize int
	now         func() time.Time
}

type Option func(*BlogService)

// WithMaxPageSize caps the limit a caller may ask for.
func WithMaxPageSize(n int) Option {
	return func(s *BlogService) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *BlogService) {
		s.now = now
	}
}

func NewBlogService(repo domain.BlogRepository, images domain.ImageStore, opts ...Option) *BlogService {
	s := &BlogService{
		repo:        repo,
		images:      images,
		maxPageSize: DefaultMaxPageSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListParams are the raw list inputs. Page and Limit below 1 fall back to the defaults.
type ListParams struct {
	Search string
	Page   int
	Limit  int
}

// CreateInput carries a new post. Image is nil when no cover was uploaded.
type CreateInput struct {
	Title   string
	Author  string
	Content string
	Image   *domain.Upload
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title   *string
	Author  *string
	Content *string
	Image   *domain.Upload
}

// List returns one page of posts, newest first, with pagination metadata.
func (s *BlogService) List(ctx context.Context, params ListParams) (*domain.Page, error) {
	page, limit := s.normalizePaging(params.Page, params.Limit)
	search := strings.TrimSpace(params.Search)

	total, err := s.repo.CountBlogs(ctx, search)
	if err != nil {
		return nil, s.repoError(err, "Error fetching blogs")
	}

	blogs, err := s.repo.ListBlogs(ctx, domain.ListQuery{
		Search: search,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, s.repoError(err, "Error fetching blogs")
	}

	totalPages := (total + limit - 1) / limit

	return &domain.Page{
		Blogs: blogs,
		Pagination: domain.Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalBlogs:  total,
			HasNextPage: page < totalPages,
			HasPrevPage: page > 1,
		},
	}, nil
}

func (s *BlogService) normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	if page > maxOffset/limit {
		page = maxOffset / limit
	}
	return page, limit
}

// Get returns the post with the given id.
func (s *BlogService) Get(ctx context.Context, id int64) (*domain.BlogPost, error) {
	post, err := s.repo.GetBlog(ctx, id)
	if err != nil {
		return nil, s.repoError(err, "Error fetching blog")
	}
	return post, nil
}

// Create validates in, stores the cover image if there is one and inserts the
// row. The stored image is removed again if the insert fails.
func (s *BlogService) Create(ctx context.Context, in CreateInput) (*domain.BlogPost, error) {
	title := strings.TrimSpace(in.Title)
	author := strings.TrimSpace(in.Author)

	if err := validateFields(blogFields{Title: &title, Author: &author, Content: &in.Content}); err != nil {
		return nil, err
	}

	cover, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	post := &domain.BlogPost{
		Title:      title,
		Author:     author,
		CoverImage: cover,
		Content:    in.Content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var created *domain.BlogPost
	err = s.repo.RunInTx(ctx, func(ctx context.Context) error {
		id, err := s.repo.CreateBlog(ctx, post)
		if err != nil {
			return err
		}
		created, err = s.repo.GetBlog(ctx, id)
		return err
	})
	if err != nil {
		s.discardImage(ctx, cover)
		return nil, s.repoError(err, "Error creating blog")
	}

	log.Info().Int64("id", created.ID).Str("coverImage", cover.URL()).Msg("Blog created")
	return created, nil
}

// Update applies the supplied fields of in to the post. A new image replaces
// the old one, which is deleted once the row points at the new file.
func (s *BlogService) Update(ctx context.Context, id int64, in UpdateInput) (*domain.BlogPost, error) {
	existing, err := s.repo.GetBlog(ctx, id)
	if err != nil {
		return nil, s.repoError(err, "Error updating blog")
	}

	changes := domain.BlogChanges{
		Title:   trimmedPtr(in.Title),
		Author:  trimmedPtr(in.Author),
		Content: in.Content,
	}
	if changes.Empty() && in.Image == nil {
		return nil, domain.ValidationError("", "No fields to update")
	}

	if err := validateFields(blogFields{Title: changes.Title, Author: changes.Author, Content: changes.Content}); err != nil {
		return nil, err
	}

	cover, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}
	if !cover.IsZero() {
		changes.CoverImage = &cover
	}
	changes.UpdatedAt = s.nextUpdatedAt(existing.UpdatedAt)

	var updated *domain.BlogPost
	err = s.repo.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateBlog(ctx, id, changes); err != nil {
			return err
		}
		post, err := s.repo.GetBlog(ctx, id)
		updated = post
		return err
	})
	if err != nil {
		s.discardImage(ctx, cover)
		return nil, s.repoError(err, "Error updating blog")
	}

	if !cover.IsZero() && existing.CoverImage != cover {
		s.discardImage(ctx, existing.CoverImage)
	}

	log.Info().Int64("id", id).Msg("Blog updated")
	return updated, nil
}

// Delete removes the post's cover image and then its row. A cover image that
// cannot be removed is logged and does not stop the delete.
func (s *BlogService) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.GetBlog(ctx, id)
	if err != nil {
		return s.repoError(err, "Error deleting blog")
	}

	s.discardImage(ctx, existing.CoverImage)

	if err := s.repo.DeleteBlog(ctx, id); err != nil {
		return s.repoError(err, "Error deleting blog")
	}

	log.Info().Int64("id", id).Msg("Blog deleted")
	return nil
}

func (s *BlogService) saveImage(ctx context.Context, up *domain.Upload) (domain.AssetRef, error) {
	if up == nil {
		return domain.AssetRef{}, nil
	}

	ref, err := s.images.Save(ctx, up)
	if err == nil {
		return ref, nil
	}

	var derr *domain.Error
	if errors.As(err, &derr) {
		if derr.Kind == domain.KindStorage {
			log.Error().Err(err).Str("filename", up.Filename).Msg("Failed to store cover image")
		}
		return domain.AssetRef{}, derr
	}

	log.Error().Err(err).Str("filename", up.Filename).Msg("Failed to store cover image")
	return domain.AssetRef{}, domain.StorageError("Error saving cover image", err)
}

// discardImage removes ref without failing the caller.
func (s *BlogService) discardImage(ctx context.Context, ref domain.AssetRef) {
	if ref.IsZero() {
		return
	}
	if err := s.images.Delete(context.WithoutCancel(ctx), ref); err != nil {
		log.Warn().Err(err).Str("image", ref.URL()).Msg("Failed to remove cover image")
	}
}

// repoError converts a repository error into a service error. Anything but a
// missing row is logged and reported as a storage failure.
func (s *BlogService) repoError(err error, message string) error {
	if errors.Is(err, domain.ErrBlogNotFound) {
		return &domain.Error{Kind: domain.KindNotFound, Message: "Blog not found", Err: err}
	}
	log.Error().Err(err).Msg(message)
	return domain.StorageError(message, err)
}

// timestamp is the service clock in UTC at the precision every backend stores.
func (s *BlogService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// nextUpdatedAt returns a timestamp strictly after prev.
func (s *BlogService) nextUpdatedAt(prev time.Time) time.Time {
	t := s.timestamp()
	if !t.After(prev) {
		t = prev.Add(time.Microsecond)
	}
	return t
}
