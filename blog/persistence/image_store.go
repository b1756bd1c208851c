package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/dfryer1193/blogapi/blog/domain"
)

var _ domain.ImageStore = (*FileImageStore)(nil)

const (
	defaultMaxUploadBytes = 5 << 20
	// sniffLen is how much of the payload is buffered for MIME detection.
	sniffLen = 3072
	tmpSuffix = ".tmp"
)

// DefaultAllowedImageTypes is used when no allow-list is configured.
var DefaultAllowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// ImageStoreConfig is populated from the environment by the config package.
type ImageStoreConfig struct {
	// Root is the directory files are written to.
	Root string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	// PublicPrefix is the URL prefix Root is served under.
	PublicPrefix string   `env:"UPLOAD_PATH" envDefault:"uploads"`
	MaxBytes     int64    `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`
	AllowedTypes []string `env:"ALLOWED_IMAGE_TYPES" envSeparator:"," envDefault:"image/jpeg,image/png,image/gif,image/webp"`
}

// FileImageStore keeps one file per cover image under a single root directory.
type FileImageStore struct {
	root     string
	prefix   string
	maxBytes int64
	allowed  []string
	now      func() time.Time
}

// NewFileImageStore creates the root directory if needed and resolves it to an
// absolute path so containment checks stay stable.
func NewFileImageStore(cfg ImageStoreConfig) (*FileImageStore, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("image store root cannot be empty")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %q: %w", cfg.Root, err)
	}
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload directory: %w", err)
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	allowed := cfg.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedImageTypes
	}

	return &FileImageStore{
		root:     absRoot,
		prefix:   cfg.PublicPrefix,
		maxBytes: maxBytes,
		allowed:  allowed,
		now:      time.Now,
	}, nil
}

// Root returns the absolute upload directory.
func (s *FileImageStore) Root() string {
	return s.root
}

// PublicPrefix returns the URL prefix files are served under.
func (s *FileImageStore) PublicPrefix() string {
	return "/" + strings.Trim(s.prefix, "/")
}

// abs resolves a file name to a path under root, rejecting anything that escapes it.
func (s *FileImageStore) abs(name string) (string, error) {
	joined := filepath.Join(s.root, filepath.Clean(filepath.FromSlash(name)))
	rel, err := filepath.Rel(s.root, joined)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return "", fmt.Errorf("image name %q escapes upload directory", name)
	}
	return joined, nil
}

// Save validates the upload's size and sniffed MIME type and writes it under a
// new name via a temp file and rename, so a reader never sees a partial file.
func (s *FileImageStore) Save(ctx context.Context, up *domain.Upload) (domain.AssetRef, error) {
	if up == nil || up.Content == nil {
		return domain.AssetRef{}, fmt.Errorf("upload cannot be nil")
	}
	if up.Size > s.maxBytes {
		return domain.AssetRef{}, s.tooLarge()
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.AssetRef{}, domain.UploadError("failed to read uploaded file", err)
	}
	head = head[:n]
	if n == 0 {
		return domain.AssetRef{}, domain.UploadError("uploaded file is empty", nil)
	}

	mtype := mimetype.Detect(head)
	if !mimetype.EqualsAny(mtype.String(), s.allowed...) {
		return domain.AssetRef{}, domain.UploadError(
			fmt.Sprintf("file type %s is not allowed; allowed types: %s", mtype.String(), strings.Join(s.allowed, ", ")), nil)
	}

	if err := ctx.Err(); err != nil {
		return domain.AssetRef{}, err
	}

	name := s.newName(up.Filename, mtype)
	dest, err := s.abs(name)
	if err != nil {
		return domain.AssetRef{}, domain.StorageError("failed to resolve image path", err)
	}

	tmp := dest + tmpSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return domain.AssetRef{}, domain.StorageError("failed to create image file", err)
	}

	// One extra byte lets an oversized stream be detected without trusting up.Size.
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), up.Content), s.maxBytes+1)
	written, werr := io.Copy(f, body)
	cerr := f.Close()

	switch {
	case werr != nil:
		_ = os.Remove(tmp)
		return domain.AssetRef{}, domain.UploadError("failed to read uploaded file", werr)
	case cerr != nil:
		_ = os.Remove(tmp)
		return domain.AssetRef{}, domain.StorageError("failed to write image file", cerr)
	case written > s.maxBytes:
		_ = os.Remove(tmp)
		return domain.AssetRef{}, s.tooLarge()
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return domain.AssetRef{}, domain.StorageError("failed to write image file", err)
	}

	ref, err := domain.NewAssetRef(s.prefix, name)
	if err != nil {
		_ = os.Remove(dest)
		return domain.AssetRef{}, domain.StorageError("failed to reference image file", err)
	}
	return ref, nil
}

// newName returns "<unix-millis>-<uuid><ext>". The client's extension is kept
// when it agrees with the sniffed type; otherwise the type's canonical one is used.
func (s *FileImageStore) newName(original string, mtype *mimetype.MIME) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" || !mtype.Is(mime.TypeByExtension(ext)) {
		ext = mtype.Extension()
	}
	return fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString(), ext)
}

func (s *FileImageStore) tooLarge() error {
	return domain.UploadError(fmt.Sprintf("file exceeds maximum size of %d bytes", s.maxBytes), nil)
}

// Delete removes the referenced file. Silently succeeds if it does not exist.
func (s *FileImageStore) Delete(ctx context.Context, ref domain.AssetRef) error {
	if ref.IsZero() {
		return nil
	}
	path, err := s.abs(ref.Name())
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}

// Exists reports whether the referenced file is present under root.
func (s *FileImageStore) Exists(ctx context.Context, ref domain.AssetRef) (bool, error) {
	if ref.IsZero() {
		return false, nil
	}
	path, err := s.abs(ref.Name())
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Stat describes the stored file called name, or returns domain.ErrImageNotFound.
func (s *FileImageStore) Stat(ctx context.Context, name string) (*domain.ImageInfo, error) {
	path, err := s.abs(name)
	if err != nil {
		return nil, fmt.Errorf("image %q: %w", name, domain.ErrImageNotFound)
	}
	if strings.HasSuffix(name, tmpSuffix) {
		return nil, fmt.Errorf("image %q: %w", name, domain.ErrImageNotFound)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.IsDir()) {
		return nil, fmt.Errorf("image %q: %w", name, domain.ErrImageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}

	return s.describe(name, path, info)
}

func (s *FileImageStore) describe(name, path string, info os.FileInfo) (*domain.ImageInfo, error) {
	ref, err := domain.NewAssetRef(s.prefix, name)
	if err != nil {
		return nil, err
	}

	out := &domain.ImageInfo{
		Ref:       ref,
		Size:      info.Size(),
		CreatedAt: info.ModTime().UTC(),
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to detect image type: %w", err)
	}
	out.MimeType = mtype.String()

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind image: %w", err)
	}
	// Dimensions are best-effort; a file we cannot decode still has a size and type.
	if cfg, _, err := image.DecodeConfig(f); err == nil {
		out.Width = cfg.Width
		out.Height = cfg.Height
	}

	return out, nil
}

// List returns every finished file in the upload directory, oldest first.
func (s *FileImageStore) List(ctx context.Context) ([]*domain.ImageInfo, error) {
	return s.list(false)
}

// ListPartial returns the temp files left behind by writes that never reached
// the rename, oldest first.
func (s *FileImageStore) ListPartial(ctx context.Context) ([]*domain.ImageInfo, error) {
	return s.list(true)
}

func (s *FileImageStore) list(partial bool) ([]*domain.ImageInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	var out []*domain.ImageInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || strings.HasSuffix(e.Name(), tmpSuffix) != partial {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		ref, err := domain.NewAssetRef(s.prefix, e.Name())
		if err != nil {
			continue
		}
		out = append(out, &domain.ImageInfo{
			Ref:       ref,
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
