package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Partial writes live next to their destination under this prefix until
// they are complete, and are never listed.
const tempPrefix = ".syncverdict-"

const defaultFileMode fs.FileMode = 0644

// Local is a filesystem-based storage backend rooted at one directory
type Local struct {
	root string
}

// NewLocal creates a new local filesystem backend
func NewLocal(root string) (*Local, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", wrapNotExist(err))
	}

	// The walk does not follow links, so a linked root is resolved up front
	if info.Mode()&fs.ModeSymlink != 0 {
		if absRoot, err = filepath.EvalSymlinks(absRoot); err != nil {
			return nil, fmt.Errorf("failed to resolve link: %w", wrapNotExist(err))
		}
		if info, err = os.Stat(absRoot); err != nil {
			return nil, fmt.Errorf("failed to access path: %w", wrapNotExist(err))
		}
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absRoot)
	}

	return &Local{root: absRoot}, nil
}

// Root returns the absolute root directory of the backend
func (l *Local) Root() string {
	return l.root
}

func (l *Local) String() string {
	return l.root
}

// resolve maps a forward-slash relative path onto the filesystem
func (l *Local) resolve(rel string) string {
	return filepath.Join(l.root, filepath.FromSlash(rel))
}

// entry builds the backend view of one filesystem object
func (l *Local) entry(full string, info fs.FileInfo) (FileInfo, error) {
	rel, err := filepath.Rel(l.root, full)
	if err != nil {
		return FileInfo{}, err
	}
	if rel == "." {
		rel = ""
	}

	return FileInfo{
		Path:         full,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
		Permissions:  uint32(info.Mode().Perm()),
		RelativePath: filepath.ToSlash(rel),
	}, nil
}

// List walks path recursively. The walked directory itself comes first
// with its own relative path. Symlinks, devices, sockets and in-progress
// writes are left out.
func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	var entries []FileInfo

	walkErr := filepath.WalkDir(l.resolve(path), func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		e, err := l.entry(full, info)
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to list files: %w", wrapNotExist(walkErr))
	}

	return entries, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(l.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", wrapNotExist(err))
	}
	return file, nil
}

// Write replaces path with the content of reader. The data goes to a
// temporary file in the destination directory which is renamed into place
// once complete, so an interrupted transfer never leaves a truncated file.
// A negative size skips the length check. Metadata, when given, supplies the
// modification time and permissions to apply.
func (l *Local) Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	target := l.resolve(path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	mode := defaultFileMode
	if metadata != nil && metadata.Permissions != 0 {
		mode = fs.FileMode(metadata.Permissions)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	// Keep the source mtime so the next comparison sees both sides as equal
	if metadata != nil && !metadata.ModTime.IsZero() {
		if err := os.Chtimes(tmpName, metadata.ModTime, metadata.ModTime); err != nil {
			return fmt.Errorf("failed to set modification time: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	committed = true

	return nil
}

// Delete removes a file or an empty directory. Missing paths are not an error.
func (l *Local) Delete(ctx context.Context, path string) error {
	target := l.resolve(path)
	if target == l.root {
		return fmt.Errorf("refusing to delete backend root: %s", l.root)
	}

	info, err := os.Lstat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete: %w", err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(target)
		if err != nil {
			return fmt.Errorf("failed to delete: %w", err)
		}
		if len(entries) > 0 {
			return fmt.Errorf("%w: %s still holds %d entries", ErrDirectoryNotEmpty, path, len(entries))
		}
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	full := l.resolve(path)

	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", wrapNotExist(err))
	}

	e, err := l.entry(full, info)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	if err := os.MkdirAll(l.resolve(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Close is a no-op for the local filesystem
func (l *Local) Close() error {
	return nil
}

// wrapNotExist joins ErrNotFound onto filesystem "does not exist" errors
func wrapNotExist(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
