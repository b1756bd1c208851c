package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dfryer1193/blogapi/api"
	"github.com/dfryer1193/blogapi/blog/domain"
)

// GetImageInfo describes a stored cover image.
func (h *Handler) GetImageInfo(c *gin.Context) {
	info, err := h.images.Stat(c.Request.Context(), c.Param("filename"))
	if errors.Is(err, domain.ErrImageNotFound) {
		h.fail(c, domain.NotFoundError("Image not found"))
		return
	}
	if err != nil {
		h.fail(c, domain.StorageError("Error reading image", err))
		return
	}

	h.ok(c, http.StatusOK, "", api.FromImageInfo(info))
}
