package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dfryer1193/blogapi/api"
	"github.com/dfryer1193/blogapi/blog/application"
	"github.com/dfryer1193/blogapi/blog/domain"
)

const apiVersion = "1.0.0"

// formOverhead is the room allowed for non-file fields on top of the image limit.
const formOverhead = 1 << 20

// BlogService is the set of blog operations the HTTP layer calls.
type BlogService interface {
	List(ctx context.Context, params application.ListParams) (*domain.Page, error)
	Get(ctx context.Context, id int64) (*domain.BlogPost, error)
	Create(ctx context.Context, in application.CreateInput) (*domain.BlogPost, error)
	Update(ctx context.Context, id int64, in application.UpdateInput) (*domain.BlogPost, error)
	Delete(ctx context.Context, id int64) error
}

// ImageInspector describes stored images.
type ImageInspector interface {
	Stat(ctx context.Context, name string) (*domain.ImageInfo, error)
}

// Pinger checks that the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	// UploadDir is served read-only under UploadPrefix.
	UploadDir      string
	UploadPrefix   string
	MaxUploadBytes int64
	// ExposeErrors includes internal error detail in responses.
	ExposeErrors bool
}

type Handler struct {
	blogs    BlogService
	images   ImageInspector
	renderer application.MarkdownRenderer
	db       Pinger
	cfg      Config
}

func NewHandler(blogs BlogService, images ImageInspector, renderer application.MarkdownRenderer, db Pinger, cfg Config) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 << 20
	}
	cfg.UploadPrefix = "/" + strings.Trim(cfg.UploadPrefix, "/")
	return &Handler{
		blogs:    blogs,
		images:   images,
		renderer: renderer,
		db:       db,
		cfg:      cfg,
	}
}

// NewApi registers every route on router.
func NewApi(router *gin.Engine, h *Handler) {
	router.GET("/", h.Root)
	router.GET("/api/health", h.Health)
	router.GET("/api/image/:filename", h.GetImageInfo)

	if h.cfg.UploadDir != "" {
		router.Static(h.cfg.UploadPrefix, h.cfg.UploadDir)
	}

	for _, prefix := range []string{"/api/blogs", "/blogs"} {
		blogs := router.Group(prefix)
		{
			blogs.GET("", h.ListBlogs)
			blogs.GET("/:id", h.GetBlog)
			blogs.POST("", h.CreateBlog)
			blogs.PUT("/:id", h.UpdateBlog)
			blogs.DELETE("/:id", h.DeleteBlog)
		}
	}

	router.NoRoute(h.NotFound)
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, api.Response{
		Success: true,
		Message: "Welcome to Blog API",
		Data: gin.H{
			"version": apiVersion,
			"endpoints": gin.H{
				"health":      "/api/health",
				"blogs":       "/api/blogs",
				"single blog": "/api/blogs/:id",
				"image info":  "/api/image/:filename",
				"uploads":     h.cfg.UploadPrefix + "/:filename",
			},
		},
	})
}

func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, api.Response{
		Success: false,
		Message: "Route not found",
		Path:    c.Request.URL.Path,
	})
}
