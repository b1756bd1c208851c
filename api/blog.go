package api

import (
	"time"

	"github.com/dfryer1193/blogapi/blog/domain"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Field   string `json:"field,omitempty"`
	Path    string `json:"path,omitempty"`
}

type Blog struct {
	ID         int64           `json:"id"`
	Title      string          `json:"title"`
	Author     string          `json:"author"`
	CoverImage domain.AssetRef `json:"cover_image"`
	Content    string          `json:"content"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	// Set only when rendering was requested.
	ContentHTML *string `json:"content_html,omitempty"`
	Excerpt     *string `json:"excerpt,omitempty"`
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalBlogs  int  `json:"totalBlogs"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

type BlogList struct {
	Blogs      []Blog     `json:"blogs"`
	Pagination Pagination `json:"pagination"`
}

// BlogProto is the JSON body accepted by create and update. Absent fields are nil.
type BlogProto struct {
	Title   *string `json:"title"`
	Author  *string `json:"author"`
	Content *string `json:"content"`
}

type ImageInfo struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	Type     string    `json:"type"`
	URL      string    `json:"url"`
	Width    int       `json:"width,omitempty"`
	Height   int       `json:"height,omitempty"`
}

type Health struct {
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

func FromBlog(p *domain.BlogPost) Blog {
	return Blog{
		ID:         p.ID,
		Title:      p.Title,
		Author:     p.Author,
		CoverImage: p.CoverImage,
		Content:    p.Content,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func FromPage(page *domain.Page) BlogList {
	blogs := make([]Blog, 0, len(page.Blogs))
	for _, p := range page.Blogs {
		blogs = append(blogs, FromBlog(p))
	}
	return BlogList{
		Blogs: blogs,
		Pagination: Pagination{
			CurrentPage: page.Pagination.CurrentPage,
			TotalPages:  page.Pagination.TotalPages,
			TotalBlogs:  page.Pagination.TotalBlogs,
			HasNextPage: page.Pagination.HasNextPage,
			HasPrevPage: page.Pagination.HasPrevPage,
		},
	}
}

func FromImageInfo(info *domain.ImageInfo) ImageInfo {
	return ImageInfo{
		Filename: info.Ref.Name(),
		Size:     info.Size,
		Created:  info.CreatedAt,
		Type:     info.MimeType,
		URL:      info.Ref.URL(),
		Width:    info.Width,
		Height:   info.Height,
	}
}
