package domain

import (
	"context"
	"time"
)

// BlogPost represents a single blog record.
// CoverImage is the zero AssetRef when no image was uploaded.
type BlogPost struct {
	ID         int64
	Title      string
	Author     string
	CoverImage AssetRef
	Content    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ListQuery selects one page of posts. Search is matched case-insensitively
// against title and author.
type ListQuery struct {
	Search string
	Limit  int
	Offset int
}

// BlogChanges carries the columns an update writes. Nil fields are left untouched.
type BlogChanges struct {
	Title      *string
	Author     *string
	Content    *string
	CoverImage *AssetRef
	UpdatedAt  time.Time
}

// Empty reports whether no content column is being changed.
func (c BlogChanges) Empty() bool {
	return c.Title == nil && c.Author == nil && c.Content == nil && c.CoverImage == nil
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalBlogs  int
	HasNextPage bool
	HasPrevPage bool
}

// Page is the result of a list call.
type Page struct {
	Blogs      []*BlogPost
	Pagination Pagination
}

type BlogRepository interface {
	CreateBlog(ctx context.Context, p *BlogPost) (int64, error)
	GetBlog(ctx context.Context, id int64) (*BlogPost, error)
	UpdateBlog(ctx context.Context, id int64, changes BlogChanges) error
	DeleteBlog(ctx context.Context, id int64) error

	ListBlogs(ctx context.Context, q ListQuery) ([]*BlogPost, error)
	CountBlogs(ctx context.Context, search string) (int, error)

	// ListCoverImages returns every non-null cover image reference.
	ListCoverImages(ctx context.Context) ([]AssetRef, error)

	// RunInTx runs fn so that repository calls made with its ctx share one transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
