package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/sdejongh/syncverdict/pkg/models"
)

// CollectOptions controls inventory collection
type CollectOptions struct {
	// Checksums requests a SHA-256 digest for files the backend did not
	// already provide a digest for
	Checksums bool
}

// Collect lists a backend and builds the inventory used for comparison.
// The backend root itself is not part of the inventory, keys use forward
// slashes, and directories always report a size of zero.
func Collect(ctx context.Context, backend Backend, opts CollectOptions) (models.Inventory, error) {
	entries, err := backend.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to collect inventory of %s: %w", backend, err)
	}

	inventory := make(models.Inventory, len(entries))
	for _, entry := range entries {
		rel := strings.Trim(strings.ReplaceAll(entry.RelativePath, "\\", "/"), "/")
		if rel == "" {
			continue
		}

		info := models.FileInfo{
			Name:     path.Base(rel),
			Path:     entry.Path,
			ModTime:  entry.ModTime,
			IsDir:    entry.IsDir,
			Checksum: entry.Checksum,
		}
		if !entry.IsDir && entry.Size > 0 {
			info.Size = uint64(entry.Size)
		}

		if opts.Checksums && !entry.IsDir && info.Checksum == "" {
			sum, err := checksum(ctx, backend, rel)
			if err != nil {
				return nil, err
			}
			info.Checksum = sum
		}

		inventory[rel] = info
	}

	return inventory, nil
}

func checksum(ctx context.Context, backend Backend, rel string) (string, error) {
	reader, err := backend.Read(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for checksum: %w", rel, err)
	}
	defer reader.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("failed to compute checksum of %s: %w", rel, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
