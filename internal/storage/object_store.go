package storage

import (
	"context"
	"io"
)

type Object struct {
	Name string
	Size int64
}

type ObjectIterator func(yield func(obj Object, err error) bool)

// ObjectStore is a blob store scoped to a single bucket or base directory.
// Keys are slash separated and relative to that scope.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data io.Reader) error

	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	DownloadObject(ctx context.Context, key, filename string) error

	ListObjects(ctx context.Context, prefix string) ([]Object, error)

	DeleteObjects(ctx context.Context, prefix string) error

	UploadDir(ctx context.Context, src, prefix string) error

	DownloadDir(ctx context.Context, prefix, dest string, overwrite bool) error

	// Location returns the absolute form of a key, e.g. s3://bucket/key or
	// an absolute filesystem path.
	Location(key string) string
}
