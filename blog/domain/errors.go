package domain

import (
	"errors"
	"fmt"
)

// ErrBlogNotFound is returned by repositories when no row matches an id.
var ErrBlogNotFound = errors.New("blog not found")

// ErrImageNotFound is returned by image stores when a file does not exist.
var ErrImageNotFound = errors.New("image not found")

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindStorage Kind = iota
	KindValidation
	KindNotFound
	KindUpload
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUpload:
		return "upload"
	default:
		return "storage"
	}
}

// Error is the error type returned across the service boundary.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func NotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func UploadError(message string, err error) *Error {
	return &Error{Kind: KindUpload, Message: message, Err: err}
}

func StorageError(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// KindOf reports the kind of err. Unclassified errors are storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrBlogNotFound) || errors.Is(err, ErrImageNotFound) {
		return KindNotFound
	}
	return KindStorage
}
