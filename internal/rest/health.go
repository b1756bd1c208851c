package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dfryer1193/blogapi/api"
)

const healthTimeout = 2 * time.Second

// Health reports whether the API can reach its database.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	now := time.Now().UTC()
	if err := h.db.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		resp := api.Response{
			Success: false,
			Message: "Database unavailable",
			Data:    api.Health{Database: "unavailable", Timestamp: now},
		}
		if h.cfg.ExposeErrors {
			resp.Error = err.Error()
		}
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	h.ok(c, http.StatusOK, "Blog API is running successfully", api.Health{Database: "ok", Timestamp: now})
}
