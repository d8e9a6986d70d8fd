package models

import (
	"time"
)

// SyncReport represents the results of a sync run
type SyncReport struct {
	// Run details
	RunID     string        `json:"run_id"`
	LocalRoot string        `json:"local_root"`
	Remote    string        `json:"remote"`
	Direction SyncDirection `json:"direction"`
	DryRun    bool          `json:"dry_run"`

	// Timing
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	// Inventory sizes as collected at run start
	Stats Statistics `json:"stats"`

	// Operations is the resolved plan, sorted by relative path
	Operations []SyncOperation `json:"operations"`

	// Result is the executor tally (zero for dry runs)
	Result ResultSummary `json:"result"`

	// Overall status
	Status RunStatus `json:"status"`
}

// Statistics holds inventory metrics for a run
type Statistics struct {
	LocalFiles  int `json:"local_files"`
	LocalDirs   int `json:"local_dirs"`
	RemoteFiles int `json:"remote_files"`
	RemoteDirs  int `json:"remote_dirs"`

	// Conflicts is the number of records the journal marked as conflicting
	Conflicts int `json:"conflicts"`

	// BytesPlanned is the total size of planned uploads and downloads
	BytesPlanned uint64 `json:"bytes_planned"`
}

// RunStatus represents the overall result
type RunStatus string

const (
	// RunSuccess indicates all operations completed successfully
	RunSuccess RunStatus = "success"
	// RunPartial indicates some operations failed
	RunPartial RunStatus = "partial"
	// RunFailed indicates the run failed before any operation could execute
	RunFailed RunStatus = "failed"
	// RunCancelled indicates the run was cancelled; completed operations stand
	RunCancelled RunStatus = "cancelled"
)

// ExitCode returns the appropriate exit code for the run status
func (s RunStatus) ExitCode() int {
	switch s {
	case RunSuccess:
		return 0
	case RunPartial:
		return 1
	case RunFailed:
		return 2
	case RunCancelled:
		return 3
	default:
		return 2
	}
}

// CountActions returns how many planned operations resolved to each action
func (r *SyncReport) CountActions() map[SyncAction]int {
	counts := make(map[SyncAction]int)
	for _, op := range r.Operations {
		counts[op.Action]++
	}
	return counts
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
