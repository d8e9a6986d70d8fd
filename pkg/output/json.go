package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/sdejongh/syncverdict/pkg/models"
)

// JSONFormatter writes a single JSON document at the end of the run, for
// automation and scripting
type JSONFormatter struct {
	mu     sync.Mutex
	writer io.Writer
	errors []string
}

// JSONDocument is the document written by the JSON formatter
type JSONDocument struct {
	*models.SyncReport
	DurationMs int64          `json:"duration_ms"`
	Actions    map[string]int `json:"actions"`
	Fatal      []string       `json:"fatal_errors,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, totalOperations int, totalBytes uint64) error {
	if writer == nil {
		writer = os.Stdout
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.writer = writer
	return nil
}

// Progress is not streamed so the output stays a single parseable document
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the report
func (f *JSONFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil {
		f.writer = os.Stdout
	}

	actions := make(map[string]int)
	for action, count := range report.CountActions() {
		actions[action.String()] = count
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(JSONDocument{
		SyncReport: report,
		DurationMs: report.Duration.Milliseconds(),
		Actions:    actions,
		Fatal:      f.errors,
	})
}

// Error records an error for the final document
func (f *JSONFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.errors = append(f.errors, err.Error())
	return nil
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
