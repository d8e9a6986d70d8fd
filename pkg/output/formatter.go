package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/syncverdict/pkg/models"
)

// Progress update types sent by the executor
const (
	UpdateOperationComplete = "operation_complete"
	UpdateOperationError    = "operation_error"
	UpdateOperationDeferred = "operation_deferred"
)

// ProgressUpdate represents a progress notification during execution
type ProgressUpdate struct {
	Type   string
	Path   string
	Action models.SyncAction
	Bytes  uint64
	Error  error
}

// Formatter defines the interface for output formatting
// Implementations include human-readable and JSON formatters
type Formatter interface {
	// Start initializes the formatter once the plan is known
	Start(writer io.Writer, totalOperations int, totalBytes uint64) error

	// Progress reports the outcome of one operation. Calls may come from
	// several goroutines.
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays summary
	Complete(report *models.SyncReport) error

	// Error reports an error that ended the run
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// NewFormatter returns the formatter registered under name
func NewFormatter(name string, quiet bool) (Formatter, error) {
	switch name {
	case "human", "":
		return NewHumanFormatter(quiet), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", name)
	}
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
