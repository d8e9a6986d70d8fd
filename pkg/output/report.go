package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/syncverdict/pkg/models"
)

// WritePlanReport writes the resolved plan of a run to a file.
// Format can be "human" or "json". Nothing is written when every
// operation is a skip.
func WritePlanReport(report *models.SyncReport, path string, format string) error {
	pending := pendingOperations(report.Operations)
	if len(pending) == 0 {
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	switch format {
	case "json":
		err = writePlanJSON(report, pending, file)
	default:
		err = writePlanReportHuman(report, pending, file)
	}

	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

func pendingOperations(ops []models.SyncOperation) []models.SyncOperation {
	pending := make([]models.SyncOperation, 0, len(ops))
	for _, op := range ops {
		if op.Action != models.ActionSkip {
			pending = append(pending, op)
		}
	}
	return pending
}

func writePlanReportHuman(report *models.SyncReport, pending []models.SyncOperation, w io.Writer) error {
	fmt.Fprintf(w, "Sync Plan Report\n")
	fmt.Fprintf(w, "================\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Run: %s\n", report.RunID)
	fmt.Fprintf(w, "Local: %s\n", report.LocalRoot)
	fmt.Fprintf(w, "Remote: %s\n", report.Remote)
	fmt.Fprintf(w, "Direction: %s\n", report.Direction)
	fmt.Fprintf(w, "Dry Run: %v\n\n", report.DryRun)
	fmt.Fprintf(w, "Pending Operations: %d\n", len(pending))

	byAction := make(map[models.SyncAction][]models.SyncOperation)
	for _, op := range pending {
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
			fmt.Fprintf(w, "  %s [%s]\n", op.Comparison.RelativePath, op.Comparison.Status)
			if info := op.Comparison.Local; info != nil {
				fmt.Fprintf(w, "    Local:   %s%s\n", formatBytes(info.Size), describeModTime(info))
			}
			if info := op.Comparison.Remote; info != nil {
				fmt.Fprintf(w, "    Remote:  %s%s\n", formatBytes(info.Size), describeModTime(info))
			}
		}
	}

	return nil
}

func describeModTime(info *models.FileInfo) string {
	if !info.HasModTime() {
		return ", modified: unknown"
	}
	return ", modified: " + info.ModTime.Format(time.RFC3339)
}

func writePlanJSON(report *models.SyncReport, pending []models.SyncOperation, w io.Writer) error {
	doc := struct {
		Generated  string                 `json:"generated"`
		RunID      string                 `json:"run_id"`
		LocalRoot  string                 `json:"local_root"`
		Remote     string                 `json:"remote"`
		Direction  models.SyncDirection   `json:"direction"`
		DryRun     bool                   `json:"dry_run"`
		TotalCount int                    `json:"total_count"`
		Operations []models.SyncOperation `json:"operations"`
	}{
		Generated:  time.Now().Format(time.RFC3339),
		RunID:      report.RunID,
		LocalRoot:  report.LocalRoot,
		Remote:     report.Remote,
		Direction:  report.Direction,
		DryRun:     report.DryRun,
		TotalCount: len(pending),
		Operations: pending,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}
