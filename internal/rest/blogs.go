package rest

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dfryer1193/blogapi/api"
	"github.com/dfryer1193/blogapi/blog/application"
	"github.com/dfryer1193/blogapi/blog/domain"
)

// imageFields are the multipart field names accepted for the cover image, in order.
var imageFields = []string{"coverImage", "image"}

func (h *Handler) ListBlogs(c *gin.Context) {
	page, err := h.blogs.List(c.Request.Context(), application.ListParams{
		Search: c.Query("search"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.ok(c, http.StatusOK, "", api.FromPage(page))
}

func (h *Handler) GetBlog(c *gin.Context) {
	id, ok := h.blogID(c)
	if !ok {
		return
	}

	post, err := h.blogs.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	blog := api.FromBlog(post)
	if c.Query("render") == "html" && h.renderer != nil {
		rendered, err := h.renderer.Render(post.Content)
		if err != nil {
			h.fail(c, domain.StorageError("Error rendering blog", err))
			return
		}
		blog.ContentHTML = &rendered.HTML
		blog.Excerpt = &rendered.Excerpt
	}

	h.ok(c, http.StatusOK, "", blog)
}

func (h *Handler) CreateBlog(c *gin.Context) {
	fields, upload, closeUpload, err := h.readBlogBody(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer closeUpload()

	post, err := h.blogs.Create(c.Request.Context(), application.CreateInput{
		Title:   deref(fields.Title),
		Author:  deref(fields.Author),
		Content: deref(fields.Content),
		Image:   upload,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.ok(c, http.StatusCreated, "Blog created successfully", api.FromBlog(post))
}

func (h *Handler) UpdateBlog(c *gin.Context) {
	id, ok := h.blogID(c)
	if !ok {
		return
	}

	fields, upload, closeUpload, err := h.readBlogBody(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer closeUpload()

	post, err := h.blogs.Update(c.Request.Context(), id, application.UpdateInput{
		Title:   fields.Title,
		Author:  fields.Author,
		Content: fields.Content,
		Image:   upload,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.ok(c, http.StatusOK, "Blog updated successfully", api.FromBlog(post))
}

func (h *Handler) DeleteBlog(c *gin.Context) {
	id, ok := h.blogID(c)
	if !ok {
		return
	}

	if err := h.blogs.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}

	h.ok(c, http.StatusOK, "Blog deleted successfully", nil)
}

// blogID parses the :id path parameter, answering 400 when it is not a number.
func (h *Handler) blogID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, domain.ValidationError("id", "Invalid blog id"))
		return 0, false
	}
	return id, true
}

// readBlogBody reads title, author, content and an optional cover image from a
// JSON, multipart or urlencoded body. Fields absent from the body stay nil.
// The returned func releases the upload and must always be called.
func (h *Handler) readBlogBody(c *gin.Context) (api.BlogProto, *domain.Upload, func(), error) {
	noop := func() {}
	var fields api.BlogProto

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes+formOverhead)

	switch c.ContentType() {
	case gin.MIMEJSON:
		if err := c.ShouldBindJSON(&fields); err != nil {
			if isTooLarge(err) {
				return fields, nil, noop, h.tooLarge()
			}
			return fields, nil, noop, domain.ValidationError("", "Invalid JSON body")
		}
		return fields, nil, noop, nil

	case gin.MIMEMultipartPOSTForm:
		if _, err := c.MultipartForm(); err != nil {
			if isTooLarge(err) {
				return fields, nil, noop, h.tooLarge()
			}
			return fields, nil, noop, domain.ValidationError("", "Invalid form data")
		}

	default:
		if err := c.Request.ParseForm(); err != nil {
			if isTooLarge(err) {
				return fields, nil, noop, h.tooLarge()
			}
			return fields, nil, noop, domain.ValidationError("", "Invalid form data")
		}
	}

	fields.Title = postForm(c, "title")
	fields.Author = postForm(c, "author")
	fields.Content = postForm(c, "content")

	fh := formFile(c)
	if fh == nil {
		return fields, nil, noop, nil
	}

	f, err := fh.Open()
	if err != nil {
		return fields, nil, noop, domain.UploadError("Failed to read uploaded file", err)
	}

	return fields, &domain.Upload{Filename: fh.Filename, Size: fh.Size, Content: f}, func() { f.Close() }, nil
}

func (h *Handler) tooLarge() error {
	return domain.UploadError(fmt.Sprintf("Request exceeds maximum upload size of %d bytes", h.cfg.MaxUploadBytes), nil)
}

func postForm(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

func formFile(c *gin.Context) *multipart.FileHeader {
	if c.Request.MultipartForm == nil {
		return nil
	}
	for _, name := range imageFields {
		if files := c.Request.MultipartForm.File[name]; len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge)
}

// queryInt returns the integer value of a query parameter, or 0 when it is
// missing or not a number.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
