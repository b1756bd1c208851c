package domain

import (
	"context"
	"io"
	"time"
)

// Upload is an image payload received from a client.
type Upload struct {
	// Filename is the client-supplied name; only its extension is used.
	Filename string
	// Size is the declared size in bytes, or -1 if unknown.
	Size    int64
	Content io.Reader
}

// ImageInfo describes a stored image file.
type ImageInfo struct {
	Ref       AssetRef
	Size      int64
	MimeType  string
	Width     int
	Height    int
	CreatedAt time.Time
}

type ImageStore interface {
	// Save writes the upload under a new unique name and returns its reference.
	// Rejected payloads (type, size) are reported as KindUpload errors.
	Save(ctx context.Context, up *Upload) (AssetRef, error)

	// Delete removes the referenced file. A missing file is not an error.
	Delete(ctx context.Context, ref AssetRef) error

	// Exists reports whether the referenced file is present.
	Exists(ctx context.Context, ref AssetRef) (bool, error)

	// Stat describes the stored file with the given name.
	Stat(ctx context.Context, name string) (*ImageInfo, error)

	// List returns every stored image.
	List(ctx context.Context) ([]*ImageInfo, error)

	// ListPartial returns files from writes that never completed. Delete
	// accepts their references.
	ListPartial(ctx context.Context) ([]*ImageInfo, error)
}
