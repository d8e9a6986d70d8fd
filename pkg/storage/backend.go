// Package storage gives the engine a uniform view of both sides of a sync
// pair: a local directory or an S3 prefix.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned (wrapped) when a path does not exist on a backend
var ErrNotFound = errors.New("not found")

// ErrDirectoryNotEmpty is returned (wrapped) by Delete when a directory still
// holds entries, such as excluded or unlisted files
var ErrDirectoryNotEmpty = errors.New("directory not empty")

// FileInfo is an entry as a backend reports it, before Collect turns it
// into inventory metadata
type FileInfo struct {
	// Path is where the backend keeps the entry (absolute path or object key)
	Path string

	// RelativePath is relative to the backend root, with forward slashes
	RelativePath string

	Size    int64
	ModTime time.Time
	IsDir   bool

	// Permissions are the Unix permission bits; 0 when the backend has none
	Permissions uint32

	// Checksum is a digest the backend supplies for free (S3 ETag), if any
	Checksum string
}

// Backend is one side of a sync pair. Paths are relative to the backend
// root and use forward slashes; the empty path is the root itself.
type Backend interface {
	// List walks path recursively. Whether path itself is listed depends on
	// the backend.
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Read opens a file's content
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write stores content at path, replacing what is there. size is the
	// expected length (negative when unknown). A non-nil metadata carries
	// the modification time to keep.
	Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// Delete removes a file or an empty directory. It never recurses: a
	// directory with anything left in it fails with ErrDirectoryNotEmpty.
	// Missing paths are not an error.
	Delete(ctx context.Context, path string) error

	// Stat describes a single entry
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// MkdirAll makes sure a directory exists
	MkdirAll(ctx context.Context, path string) error

	Close() error

	// String names the backend root in logs and reports
	String() string
}
