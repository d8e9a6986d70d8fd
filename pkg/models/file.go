package models

import (
	"time"
)

// FileInfo is an immutable metadata snapshot of one file or directory,
// produced once per run by an inventory collector
type FileInfo struct {
	// Name is the base name of the entry
	Name string `json:"name"`

	// Path is the backend-specific location (absolute path or object key)
	Path string `json:"path"`

	// Size in bytes
	Size uint64 `json:"size"`

	// ModTime is the last modification time. The zero value means the
	// backend did not report one.
	ModTime time.Time `json:"modified,omitzero"`

	// IsDir indicates if this is a directory
	IsDir bool `json:"is_dir"`

	// Checksum is an optional content digest, empty when not computed
	Checksum string `json:"checksum,omitempty"`
}

// HasModTime reports whether a modification time is available
func (f *FileInfo) HasModTime() bool {
	return !f.ModTime.IsZero()
}

// Inventory maps a relative path to the metadata of one side of a sync pair
type Inventory map[string]FileInfo

// Lookup returns a pointer to a copy of the entry at path, or nil if absent
func (inv Inventory) Lookup(path string) *FileInfo {
	info, ok := inv[path]
	if !ok {
		return nil
	}
	return &info
}

// Counts returns the number of files and directories in the inventory
func (inv Inventory) Counts() (files, dirs int) {
	for _, info := range inv {
		if info.IsDir {
			dirs++
		} else {
			files++
		}
	}
	return files, dirs
}
