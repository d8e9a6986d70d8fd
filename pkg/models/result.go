package models

import (
	"fmt"
	"sync"
)

// SyncResult tallies the outcomes reported by the executor during a run.
// It is created zeroed and is safe for concurrent use. Failures never
// stop other operations from being reported.
type SyncResult struct {
	mu         sync.Mutex
	uploaded   uint64
	downloaded uint64
	deleted    uint64
	skipped    uint64
	errors     []string
}

// ResultSummary is a point-in-time copy of a SyncResult
type ResultSummary struct {
	Uploaded   uint64   `json:"uploaded"`
	Downloaded uint64   `json:"downloaded"`
	Deleted    uint64   `json:"deleted"`
	Skipped    uint64   `json:"skipped"`
	Errors     []string `json:"errors"`
}

// NewSyncResult returns an empty accumulator
func NewSyncResult() *SyncResult {
	return &SyncResult{errors: []string{}}
}

// Record counts one successfully completed action
func (r *SyncResult) Record(action SyncAction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch action {
	case ActionUpload:
		r.uploaded++
	case ActionDownload:
		r.downloaded++
	case ActionDeleteLocal, ActionDeleteRemote:
		r.deleted++
	case ActionSkip, ActionAskUser:
		r.skipped++
	}
}

// RecordError appends a description of one failed action
func (r *SyncResult) RecordError(path string, action SyncAction, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, fmt.Sprintf("%s %s: %v", action, path, err))
}

// Snapshot returns an independent copy of the current tally
func (r *SyncResult) Snapshot() ResultSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	errs := make([]string, len(r.errors))
	copy(errs, r.errors)

	return ResultSummary{
		Uploaded:   r.uploaded,
		Downloaded: r.downloaded,
		Deleted:    r.deleted,
		Skipped:    r.skipped,
		Errors:     errs,
	}
}

// Completed returns the number of operations reported so far, including failures
func (s ResultSummary) Completed() uint64 {
	return s.Uploaded + s.Downloaded + s.Deleted + s.Skipped + uint64(len(s.Errors))
}

// HasErrors reports whether any operation failed
func (s ResultSummary) HasErrors() bool {
	return len(s.Errors) > 0
}
