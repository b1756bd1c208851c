package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows credentialed requests from the given origins. Entries may use a
// single wildcard, e.g. "https://*.vercel.app". A lone "*" allows any origin
// without credentials. With no origins no CORS headers are sent.
func CORS(origins []string) (gin.HandlerFunc, error) {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowWildcard:    true,
		MaxAge:           12 * time.Hour,
	}

	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
		case o == "*":
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
		case strings.Count(o, "*") > 1:
			return nil, fmt.Errorf("cors origin %q: only one wildcard is allowed", o)
		default:
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}

	if cfg.AllowAllOrigins {
		cfg.AllowOrigins = nil
	} else if len(cfg.AllowOrigins) == 0 {
		return func(c *gin.Context) { c.Next() }, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cors configuration: %w", err)
	}

	return cors.New(cfg), nil
}
