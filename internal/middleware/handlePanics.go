package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dfryer1193/blogapi/api"
)

// HandlePanics answers a recovered panic with a 500 envelope. The panic value
// is included in the body only when exposeDetail is set.
func HandlePanics(exposeDetail bool) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		log.Error().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Msg("Recovered from panic")

		resp := api.Response{Success: false, Message: "Internal server error"}
		if exposeDetail {
			if err, ok := recovered.(error); ok {
				resp.Error = err.Error()
			} else {
				resp.Error = fmt.Sprint(recovered)
			}
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
	}
}
