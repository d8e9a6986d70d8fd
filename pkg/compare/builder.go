// Package compare reconciles a local and a remote inventory into a sorted
// list of per-path comparisons. Everything in this package is pure: no I/O,
// no shared state, and the same inputs always give the same output.
package compare

import (
	"sort"

	"github.com/sdejongh/syncverdict/pkg/models"
)

// Build compares every path found in either inventory.
// Excluded paths are dropped before classification. Identical files are
// omitted, but directories are always kept so callers see the tree
// structure. The result is sorted by relative path in byte order.
func Build(local, remote models.Inventory, opts models.CompareOptions) []models.FileComparison {
	paths := make(map[string]struct{}, len(local)+len(remote))
	for path := range local {
		paths[path] = struct{}{}
	}
	for path := range remote {
		paths[path] = struct{}{}
	}

	results := make([]models.FileComparison, 0, len(paths))

	for path := range paths {
		if ShouldExclude(path, opts.ExcludePatterns) {
			continue
		}

		localInfo := local.Lookup(path)
		remoteInfo := remote.Lookup(path)

		status := Classify(localInfo, remoteInfo, opts)
		isDir := (localInfo != nil && localInfo.IsDir) || (remoteInfo != nil && remoteInfo.IsDir)

		if status == models.StatusIdentical && !isDir {
			continue
		}

		results = append(results, models.FileComparison{
			RelativePath: path,
			Status:       status,
			Local:        localInfo,
			Remote:       remoteInfo,
			IsDir:        isDir,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].RelativePath < results[j].RelativePath
	})

	return results
}
