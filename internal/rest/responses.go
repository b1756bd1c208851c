package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dfryer1193/blogapi/api"
	"github.com/dfryer1193/blogapi/blog/domain"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindUpload:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, api.Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// fail writes err as an error envelope. Storage failures get a generic message
// and carry detail only when the handler exposes errors.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	kind := domain.KindOf(err)
	resp := api.Response{Success: false}

	var derr *domain.Error
	if errors.As(err, &derr) {
		resp.Message = derr.Message
		resp.Field = derr.Field
	}

	switch kind {
	case domain.KindNotFound:
		if resp.Message == "" {
			resp.Message = "Not found"
		}
	case domain.KindStorage:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		if resp.Message == "" {
			resp.Message = "Internal server error"
		}
		if h.cfg.ExposeErrors {
			resp.Error = err.Error()
		}
	}

	c.AbortWithStatusJSON(statusFor(kind), resp)
}
