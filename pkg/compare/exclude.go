package compare

import (
	"strings"
)

// ShouldExclude checks if a path should be excluded based on the given patterns.
// Matching is case-insensitive and supports two forms:
//   - Extension patterns starting with '*': *.pyc matches any path ending in .pyc
//   - Anything else is a substring match anywhere in the path: node_modules
//     matches node_modules/pkg/file.js, and also lib/node_modules_old.txt
//
// Substring matching is coarse and not aware of path segments.
func ShouldExclude(relativePath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	lowerPath := strings.ToLower(relativePath)

	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}

		lowerPattern := strings.ToLower(pattern)

		if suffix, ok := strings.CutPrefix(lowerPattern, "*"); ok {
			if strings.HasSuffix(lowerPath, suffix) {
				return true
			}
			continue
		}

		if strings.Contains(lowerPath, lowerPattern) {
			return true
		}
	}

	return false
}
