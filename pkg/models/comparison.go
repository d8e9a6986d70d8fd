package models

// CompareOptions controls how a pair of inventories is compared.
// It is read-only for the duration of a run.
type CompareOptions struct {
	// CompareTimestamp enables modification time comparison
	CompareTimestamp bool `json:"compare_timestamp"`

	// CompareSize enables size comparison
	CompareSize bool `json:"compare_size"`

	// CompareChecksum asks collectors to populate checksums; the
	// classifier does not use it
	CompareChecksum bool `json:"compare_checksum"`

	// ExcludePatterns are matched against every relative path
	ExcludePatterns []string `json:"exclude_patterns"`

	// Direction selects how statuses are resolved into actions
	Direction SyncDirection `json:"direction"`
}

// DefaultExcludePatterns are the patterns excluded when nothing else is configured
func DefaultExcludePatterns() []string {
	return []string{
		"node_modules",
		".git",
		".DS_Store",
		"Thumbs.db",
		"__pycache__",
		"*.pyc",
		".env",
		"target",
	}
}

// DefaultCompareOptions compares size and timestamp in both directions
func DefaultCompareOptions() CompareOptions {
	return CompareOptions{
		CompareTimestamp: true,
		CompareSize:      true,
		CompareChecksum:  false,
		ExcludePatterns:  DefaultExcludePatterns(),
		Direction:        DirectionBidirectional,
	}
}

// FileComparison is the outcome of comparing one relative path across
// both inventories. At least one of Local and Remote is set.
type FileComparison struct {
	// RelativePath is unique within one comparison run
	RelativePath string `json:"relative_path"`

	// Status is the derived synchronization status
	Status SyncStatus `json:"status"`

	// Local is the local metadata, nil if the path is absent locally
	Local *FileInfo `json:"local_info,omitempty"`

	// Remote is the remote metadata, nil if the path is absent remotely
	Remote *FileInfo `json:"remote_info,omitempty"`

	// IsDir is true if either side is a directory
	IsDir bool `json:"is_dir"`
}

// SyncOperation pairs a comparison with the action resolved for it
type SyncOperation struct {
	Comparison FileComparison `json:"comparison"`
	Action     SyncAction     `json:"action"`
}

// Size returns the number of bytes the operation would move, zero for
// directories and non-transfer actions
func (op *SyncOperation) Size() uint64 {
	if op.Comparison.IsDir || !op.Action.IsTransfer() {
		return 0
	}
	switch op.Action {
	case ActionUpload:
		if op.Comparison.Local != nil {
			return op.Comparison.Local.Size
		}
	case ActionDownload:
		if op.Comparison.Remote != nil {
			return op.Comparison.Remote.Size
		}
	}
	return 0
}
