// Package sync turns comparisons into actions and carries them out.
// Resolve and Plan are pure; the Executor and Engine do the I/O.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/syncverdict/pkg/compare"
	"github.com/sdejongh/syncverdict/pkg/logging"
	"github.com/sdejongh/syncverdict/pkg/models"
	"github.com/sdejongh/syncverdict/pkg/output"
	"github.com/sdejongh/syncverdict/pkg/storage"
)

// Options configures one engine run
type Options struct {
	Compare    models.CompareOptions
	DryRun     bool
	MaxWorkers int

	// BandwidthLimit caps transfers in bytes per second (0 = unlimited)
	BandwidthLimit int64

	// Stateful enables the journal used for conflict detection
	Stateful bool
	// StateDir overrides the journal directory
	StateDir string

	// Prompter resolves ask_user operations during execution
	Prompter Prompter

	// Output receives formatter output (stdout when nil)
	Output io.Writer
}

// Engine orchestrates a sync run: collect, compare, plan, execute
type Engine struct {
	local     storage.Backend
	remote    storage.Backend
	options   Options
	formatter output.Formatter
	logger    logging.Logger
}

// NewEngine creates a new sync engine
func NewEngine(
	local, remote storage.Backend,
	options Options,
	formatter output.Formatter,
	logger logging.Logger,
) *Engine {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Engine{
		local:     local,
		remote:    remote,
		options:   options,
		formatter: formatter,
		logger:    logger,
	}
}

// Run executes one sync run. The returned report is never nil; when err is
// not nil its status tells whether the run failed or was cancelled.
func (e *Engine) Run(ctx context.Context) (*models.SyncReport, error) {
	report := &models.SyncReport{
		RunID:      uuid.New().String(),
		LocalRoot:  e.local.String(),
		Remote:     e.remote.String(),
		Direction:  e.options.Compare.Direction,
		DryRun:     e.options.DryRun,
		StartTime:  time.Now(),
		Operations: []models.SyncOperation{},
		Result:     models.NewSyncResult().Snapshot(),
		Status:     models.RunSuccess,
	}
	logger := e.logger.WithFields(logging.Fields{"run_id": report.RunID})

	logger.Info(ctx, "Starting sync run", logging.Fields{
		"local":     report.LocalRoot,
		"remote":    report.Remote,
		"direction": report.Direction.String(),
		"dry_run":   report.DryRun,
	})

	var state *SyncState
	if e.options.Stateful {
		var err error
		state, err = LoadState(e.options.StateDir, report.LocalRoot, report.Remote)
		if err != nil {
			return e.fail(ctx, logger, report, fmt.Errorf("failed to load sync state: %w", err))
		}
	}

	local, remote, err := e.collect(ctx)
	if err != nil {
		return e.fail(ctx, logger, report, err)
	}

	report.Stats.LocalFiles, report.Stats.LocalDirs = local.Counts()
	report.Stats.RemoteFiles, report.Stats.RemoteDirs = remote.Counts()

	comparisons := compare.Build(local, remote, e.options.Compare)
	if state != nil {
		comparisons = DetectConflicts(comparisons, state)
	}

	report.Operations = Plan(comparisons, e.options.Compare.Direction)

	pending := 0
	for i := range report.Operations {
		op := &report.Operations[i]
		if op.Comparison.Status == models.StatusConflict {
			report.Stats.Conflicts++
		}
		if op.Action != models.ActionSkip {
			pending++
		}
		report.Stats.BytesPlanned += op.Size()
	}

	logger.Info(ctx, "Plan resolved", logging.Fields{
		"operations": len(report.Operations),
		"pending":    pending,
		"conflicts":  report.Stats.Conflicts,
	})

	if e.formatter != nil {
		e.formatter.Start(e.options.Output, pending, report.Stats.BytesPlanned)
	}

	if !e.options.DryRun {
		result := models.NewSyncResult()
		executor := NewExecutor(e.local, e.remote, ExecutorConfig{
			MaxWorkers:     e.options.MaxWorkers,
			Prompter:       e.options.Prompter,
			BandwidthLimit: e.options.BandwidthLimit,
			Logger:         logger,
			Formatter:      e.formatter,
		})

		execErr := executor.Execute(ctx, report.Operations, result)
		report.Result = result.Snapshot()

		switch {
		case execErr != nil:
			report.Status = models.RunCancelled
			err = execErr
		case report.Result.HasErrors():
			report.Status = models.RunPartial
		}

		if state != nil && report.Status != models.RunCancelled {
			e.checkpoint(ctx, logger, state, executor.Unresolved())
		}
	}

	e.finish(ctx, logger, report)
	return report, err
}

// collect gathers both inventories concurrently. Either failure cancels the other.
func (e *Engine) collect(ctx context.Context) (models.Inventory, models.Inventory, error) {
	var local, remote models.Inventory
	opts := storage.CollectOptions{Checksums: e.options.Compare.CompareChecksum}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		inv, err := storage.Collect(gctx, e.local, opts)
		if err != nil {
			return fmt.Errorf("local: %w", err)
		}
		local = inv
		return nil
	})
	g.Go(func() error {
		inv, err := storage.Collect(gctx, e.remote, opts)
		if err != nil {
			return fmt.Errorf("remote: %w", err)
		}
		remote = inv
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return local, remote, nil
}

// checkpoint records the post-run inventories in the journal. Deferred and
// failed paths keep their previous entry.
func (e *Engine) checkpoint(ctx context.Context, logger logging.Logger, state *SyncState, unresolved []string) {
	local, remote, err := e.collect(ctx)
	if err == nil {
		state.RecordCheckpoint(local, remote, unresolved)
		err = state.Save()
	}
	if err != nil {
		logger.Error(ctx, "Failed to save sync state", err, logging.Fields{"local": state.LocalRoot})
		return
	}
	logger.Debug(ctx, "Sync state saved", logging.Fields{"files": len(state.Files), "unresolved": len(unresolved)})
}

func (e *Engine) fail(ctx context.Context, logger logging.Logger, report *models.SyncReport, err error) (*models.SyncReport, error) {
	report.Status = models.RunFailed
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		report.Status = models.RunCancelled
	}

	logger.Error(ctx, "Sync run aborted", err, nil)
	if e.formatter != nil {
		e.formatter.Error(err)
	}

	e.finish(ctx, logger, report)
	return report, err
}

func (e *Engine) finish(ctx context.Context, logger logging.Logger, report *models.SyncReport) {
	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)

	logger.Info(ctx, "Sync run completed", logging.Fields{
		"status":      string(report.Status),
		"duration_ms": report.Duration.Milliseconds(),
		"uploaded":    report.Result.Uploaded,
		"downloaded":  report.Result.Downloaded,
		"deleted":     report.Result.Deleted,
		"skipped":     report.Result.Skipped,
		"errors":      len(report.Result.Errors),
	})

	if e.formatter != nil {
		e.formatter.Complete(report)
	}
}
