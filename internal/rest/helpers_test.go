package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dfryer1193/blogapi/api"
	"github.com/dfryer1193/blogapi/blog/application"
	"github.com/dfryer1193/blogapi/blog/persistence"
	"github.com/dfryer1193/blogapi/shared/db/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	images *persistence.FileImageStore
}

func newRouter(h *Handler) *gin.Engine {
	router := gin.New()
	NewApi(router, h)
	return router
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: filepath.Join(dir, "blog.db"), MaxOpenConns: 4})
	require.NoError(t, database.Connect())
	t.Cleanup(func() { database.Close() })

	images, err := persistence.NewFileImageStore(persistence.ImageStoreConfig{
		Root:         filepath.Join(dir, "uploads"),
		PublicPrefix: "uploads",
		MaxBytes:     1 << 20,
	})
	require.NoError(t, err)

	svc := application.NewBlogService(persistence.NewBlogRepository(database.DB()), images)
	h := NewHandler(svc, images, application.NewMarkdownRenderer("uploads"), database, Config{
		UploadDir:      images.Root(),
		UploadPrefix:   "uploads",
		MaxUploadBytes: 1 << 20,
		ExposeErrors:   true,
	})

	return &testServer{router: newRouter(h), images: images}
}

// envelope mirrors api.Response with the payload left undecoded.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Field   string          `json:"field"`
	Path    string          `json:"path"`
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	}
	return w, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 6, 2))
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type formFileSpec struct {
	field    string
	filename string
	data     []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, file *formFileSpec) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile(file.field, file.filename)
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader(file.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (s *testServer) createBlog(t *testing.T, fields map[string]string, file *formFileSpec) api.Blog {
	t.Helper()
	w, env := s.do(t, multipartRequest(t, http.MethodPost, "/api/blogs", fields, file))
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	return decodeData[api.Blog](t, env)
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}
