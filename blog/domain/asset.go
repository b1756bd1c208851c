package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// AssetRef points at a stored cover image. It keeps the public prefix the file
// was served under and the bare file name inside the upload root, so callers
// never have to slice URLs to find files on disk.
//
// The zero value means "no image".
type AssetRef struct {
	prefix string
	name   string
}

// NewAssetRef builds a reference for a file served under prefix (e.g. "uploads").
func NewAssetRef(prefix, name string) (AssetRef, error) {
	if !validAssetName(name) {
		return AssetRef{}, fmt.Errorf("invalid asset name %q", name)
	}
	return AssetRef{prefix: cleanPrefix(prefix), name: name}, nil
}

// ParseAssetRef parses a public URL such as "/uploads/123-abc.png".
// An empty string yields the zero reference.
func ParseAssetRef(s string) (AssetRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AssetRef{}, nil
	}
	clean := path.Clean("/" + filepath.ToSlash(s))
	dir, name := path.Split(clean)
	return NewAssetRef(dir, name)
}

func (a AssetRef) IsZero() bool {
	return a.name == ""
}

// Name is the file name relative to the upload root.
func (a AssetRef) Name() string {
	return a.name
}

// URL is the public path the file is served under, e.g. "/uploads/x.png".
func (a AssetRef) URL() string {
	if a.IsZero() {
		return ""
	}
	if a.prefix == "" {
		return "/" + a.name
	}
	return "/" + a.prefix + "/" + a.name
}

func (a AssetRef) String() string {
	return a.URL()
}

// FilePath resolves the reference to a file under root.
func (a AssetRef) FilePath(root string) string {
	return filepath.Join(root, a.name)
}

// Scan implements sql.Scanner. NULL scans to the zero reference.
func (a *AssetRef) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = AssetRef{}
		return nil
	case string:
		ref, err := ParseAssetRef(v)
		if err != nil {
			return err
		}
		*a = ref
		return nil
	case []byte:
		ref, err := ParseAssetRef(string(v))
		if err != nil {
			return err
		}
		*a = ref
		return nil
	default:
		return fmt.Errorf("cannot scan %T into AssetRef", src)
	}
}

// Value implements driver.Valuer. The zero reference is stored as NULL.
func (a AssetRef) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil
	}
	return a.URL(), nil
}

func (a AssetRef) MarshalJSON() ([]byte, error) {
	if a.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(a.URL())
}

func (a *AssetRef) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*a = AssetRef{}
		return nil
	}
	ref, err := ParseAssetRef(*s)
	if err != nil {
		return err
	}
	*a = ref
	return nil
}

func cleanPrefix(prefix string) string {
	return strings.Trim(path.Clean("/"+filepath.ToSlash(prefix)), "/")
}

func validAssetName(name string) bool {
	return name != "" &&
		name != "." &&
		name != ".." &&
		!strings.ContainsAny(name, `/\`)
}
