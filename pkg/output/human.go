package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/sdejongh/syncverdict/pkg/models"
)

const defaultWidth = 100

// actionOrder is the order in which plan sections are printed
var actionOrder = []models.SyncAction{
	models.ActionUpload,
	models.ActionDownload,
	models.ActionDeleteLocal,
	models.ActionDeleteRemote,
	models.ActionAskUser,
}

var actionLabels = map[models.SyncAction]string{
	models.ActionUpload:       "Upload",
	models.ActionDownload:     "Download",
	models.ActionDeleteLocal:  "Delete locally",
	models.ActionDeleteRemote: "Delete remotely",
	models.ActionAskUser:      "Needs a decision",
}

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	quiet bool

	mu         sync.Mutex
	writer     io.Writer
	width      int
	total      int
	totalBytes uint64
	done       int
	startTime  time.Time
}

// NewHumanFormatter creates a new human-readable formatter.
// A quiet formatter prints only the final summary.
func NewHumanFormatter(quiet bool) *HumanFormatter {
	return &HumanFormatter{quiet: quiet, width: defaultWidth}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, totalOperations int, totalBytes uint64) error {
	if writer == nil {
		writer = os.Stdout
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.writer = writer
	f.width = terminalWidth(writer)
	f.total = totalOperations
	f.totalBytes = totalBytes
	f.done = 0
	f.startTime = time.Now()

	if !f.quiet {
		fmt.Fprintf(writer, "Planned %d operations, %s to transfer\n", totalOperations, formatBytes(totalBytes))
	}

	return nil
}

// Progress prints one line per finished operation
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil {
		return nil
	}

	f.done++
	if f.quiet {
		return nil
	}

	prefix := fmt.Sprintf("[%d/%d] ", f.done, f.total)
	switch update.Type {
	case UpdateOperationComplete:
		line := fmt.Sprintf("✓ %s %s", update.Action, update.Path)
		fmt.Fprintln(f.writer, f.truncate(prefix+line))
	case UpdateOperationDeferred:
		line := fmt.Sprintf("? %s %s (skipped, no decision)", update.Action, update.Path)
		fmt.Fprintln(f.writer, f.truncate(prefix+line))
	case UpdateOperationError:
		line := fmt.Sprintf("✗ %s %s", update.Action, update.Path)
		fmt.Fprintf(f.writer, "%s: %v\n", f.truncate(prefix+line), update.Error)
	}

	return nil
}

// Complete prints the plan grouped by action, then the run summary
func (f *HumanFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil {
		f.writer = os.Stdout
		f.width = terminalWidth(f.writer)
	}
	w := f.writer

	if !f.quiet {
		writePlanHuman(w, report, f.width)
	}

	fmt.Fprintf(w, "\n")
	if report.DryRun {
		fmt.Fprintf(w, "Dry run completed in %s (nothing was changed)\n", report.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "Sync completed in %s\n", report.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Scanned:\n")
	fmt.Fprintf(w, "    Local:          %d files, %d dirs\n", report.Stats.LocalFiles, report.Stats.LocalDirs)
	fmt.Fprintf(w, "    Remote:         %d files, %d dirs\n", report.Stats.RemoteFiles, report.Stats.RemoteDirs)
	fmt.Fprintf(w, "    Conflicts:      %d\n", report.Stats.Conflicts)
	fmt.Fprintf(w, "    To transfer:    %s\n", formatBytes(report.Stats.BytesPlanned))

	if !report.DryRun {
		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "  Operations:\n")
		fmt.Fprintf(w, "    Uploaded:       %d\n", report.Result.Uploaded)
		fmt.Fprintf(w, "    Downloaded:     %d\n", report.Result.Downloaded)
		fmt.Fprintf(w, "    Deleted:        %d\n", report.Result.Deleted)
		fmt.Fprintf(w, "    Skipped:        %d\n", report.Result.Skipped)
		fmt.Fprintf(w, "    Errors:         %d\n", len(report.Result.Errors))
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", report.Status)

	if len(report.Result.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, msg := range report.Result.Errors {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}

	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	w := f.writer
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func (f *HumanFormatter) truncate(line string) string {
	return truncatePath(line, f.width)
}

// writePlanHuman lists every non-skip operation, grouped by action
func writePlanHuman(w io.Writer, report *models.SyncReport, width int) {
	byAction := make(map[models.SyncAction][]models.SyncOperation)
	for _, op := range report.Operations {
		byAction[op.Action] = append(byAction[op.Action], op)
	}

	for _, action := range actionOrder {
		ops := byAction[action]
		if len(ops) == 0 {
			continue
		}

		label := fmt.Sprintf("%s (%d)", actionLabels[action], len(ops))
		fmt.Fprintf(w, "\n%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))

		for _, op := range ops {
			path := op.Comparison.RelativePath
			if op.Comparison.IsDir {
				path += "/"
			}
			line := fmt.Sprintf("  %-13s %s", op.Comparison.Status, path)
			fmt.Fprintln(w, truncatePath(line, width))
		}
	}
}

// truncatePath shortens s to width runes, keeping the end of the line where
// the file name is
func truncatePath(s string, width int) string {
	runes := []rune(s)
	if width <= 3 || len(runes) <= width {
		return s
	}
	return "..." + string(runes[len(runes)-width+3:])
}

// terminalWidth returns the width of w when it is a terminal
func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return defaultWidth
	}
	if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
		return width
	}
	return defaultWidth
}
