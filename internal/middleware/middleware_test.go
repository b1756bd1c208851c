package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfryer1193/blogapi/api"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) api.Response {
	t.Helper()
	var resp api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandlePanics(t *testing.T) {
	tests := []struct {
		name      string
		expose    bool
		panicWith any
		wantError string
	}{
		{name: "error value exposed", expose: true, panicWith: errors.New("boom"), wantError: "boom"},
		{name: "string value exposed", expose: true, panicWith: "kaput", wantError: "kaput"},
		{name: "detail hidden", expose: false, panicWith: errors.New("boom"), wantError: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(gin.CustomRecovery(HandlePanics(tt.expose)))
			r.GET("/panic", func(c *gin.Context) { panic(tt.panicWith) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, "Internal server error", resp.Message)
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusTeapot, "tea") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok?x=1", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "tea", w.Body.String())
}

func newRateLimitedRouter(rps float64, burst int) *gin.Engine {
	r := gin.New()
	r.Use(WriteRateLimit(rps, burst))
	r.GET("/blogs", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/blogs", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func doRequest(r http.Handler, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWriteRateLimit(t *testing.T) {
	// A very low rate means no token is refilled during the test.
	r := newRateLimitedRouter(0.001, 2)

	assert.Equal(t, http.StatusCreated, doRequest(r, http.MethodPost, "/blogs", "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusCreated, doRequest(r, http.MethodPost, "/blogs", "10.0.0.1:1234").Code)

	w := doRequest(r, http.MethodPost, "/blogs", "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/blogs", "10.0.0.1:1234").Code, "reads are not limited")
	assert.Equal(t, http.StatusCreated, doRequest(r, http.MethodPost, "/blogs", "10.0.0.2:1234").Code, "clients are limited separately")
}

func TestWriteRateLimitDisabled(t *testing.T) {
	r := newRateLimitedRouter(0, 0)
	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusCreated, doRequest(r, http.MethodPost, "/blogs", "10.0.0.1:1234").Code)
	}
}

func TestLimiterCacheReuse(t *testing.T) {
	cache := newLimiterCache(1, 1)
	assert.Same(t, cache.get("a"), cache.get("a"))
	assert.NotSame(t, cache.get("a"), cache.get("b"))
}

func TestCORS(t *testing.T) {
	handler, err := CORS([]string{"http://localhost:5173", "https://*.vercel.app"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(handler)
	r.GET("/api/blogs", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{name: "listed origin", method: http.MethodGet, origin: "http://localhost:5173", wantStatus: http.StatusOK, wantAllow: "http://localhost:5173"},
		{name: "wildcard origin", method: http.MethodGet, origin: "https://my-app.vercel.app", wantStatus: http.StatusOK, wantAllow: "https://my-app.vercel.app"},
		{name: "unknown origin", method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusForbidden},
		{name: "no origin", method: http.MethodGet, origin: "", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "http://localhost:5173", wantStatus: http.StatusNoContent, wantAllow: "http://localhost:5173"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/blogs", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSConfigErrors(t *testing.T) {
	_, err := CORS([]string{"example.com"})
	assert.Error(t, err, "origin without scheme")

	_, err = CORS([]string{"https://*.*.example.com"})
	assert.Error(t, err, "more than one wildcard")

	handler, err := CORS(nil)
	require.NoError(t, err)
	assert.NotNil(t, handler)

	handler, err = CORS([]string{"*"})
	require.NoError(t, err)
	assert.NotNil(t, handler)
}
