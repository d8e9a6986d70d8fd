package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sdejongh/syncverdict/pkg/logging"
	"github.com/sdejongh/syncverdict/pkg/models"
	"github.com/sdejongh/syncverdict/pkg/output"
	"github.com/sdejongh/syncverdict/pkg/ratelimit"
	"github.com/sdejongh/syncverdict/pkg/storage"
)

// Prompter decides what to do with an operation that needs a user decision.
// It returns the action to perform instead; ask_user or skip leaves the path alone.
type Prompter interface {
	Ask(ctx context.Context, op models.SyncOperation) (models.SyncAction, error)
}

// ExecutorConfig holds the optional collaborators of an Executor
type ExecutorConfig struct {
	// MaxWorkers bounds the number of operations running at once
	MaxWorkers int

	// Prompter resolves ask_user operations. Without one they are skipped.
	Prompter Prompter

	// BandwidthLimit caps the combined transfer rate in bytes per second (0 = unlimited)
	BandwidthLimit int64

	Logger    logging.Logger
	Formatter output.Formatter
}

// Executor performs planned operations against a local and a remote backend
type Executor struct {
	local     storage.Backend
	remote    storage.Backend
	semaphore chan struct{}
	prompter  Prompter
	promptMu  sync.Mutex
	limiter   *ratelimit.Limiter
	logger    logging.Logger
	formatter output.Formatter
	reportMu  sync.Mutex

	unresolvedMu sync.Mutex
	unresolved   []string
}

// NewExecutor creates a new executor
func NewExecutor(local, remote storage.Backend, config ExecutorConfig) *Executor {
	maxWorkers := config.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	return &Executor{
		local:     local,
		remote:    remote,
		semaphore: make(chan struct{}, maxWorkers),
		prompter:  config.Prompter,
		limiter:   ratelimit.NewLimiter(config.BandwidthLimit),
		logger:    logger,
		formatter: config.Formatter,
	}
}

// Execute runs every operation and reports each outcome to result.
// A failed operation never stops the others. When ctx is cancelled no new
// operation is started; operations already running finish and are
// reported, and ctx.Err() is returned.
//
// Directory deletes run after everything else, deepest first and one at a
// time, so a directory is only removed once its planned children are gone.
func (e *Executor) Execute(ctx context.Context, operations []models.SyncOperation, result *models.SyncResult) error {
	e.unresolvedMu.Lock()
	e.unresolved = nil
	e.unresolvedMu.Unlock()

	if e.limiter != nil {
		e.logger.Debug(ctx, "Bandwidth limited", logging.Fields{"bytes_per_second": e.limiter.BytesPerSecond()})
	}

	files, dirDeletes := splitDirectoryDeletes(operations)
	if err := e.dispatch(ctx, files, result); err != nil {
		return err
	}

	for _, op := range dirDeletes {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.run(ctx, op, result)
	}
	return nil
}

// Unresolved returns the paths whose operation was deferred or failed during
// the last Execute
func (e *Executor) Unresolved() []string {
	e.unresolvedMu.Lock()
	defer e.unresolvedMu.Unlock()
	return append([]string(nil), e.unresolved...)
}

// splitDirectoryDeletes separates directory deletes from the other
// operations and orders them deepest first
func splitDirectoryDeletes(operations []models.SyncOperation) (rest, dirDeletes []models.SyncOperation) {
	for _, op := range operations {
		if op.Comparison.IsDir && op.Action.IsDelete() {
			dirDeletes = append(dirDeletes, op)
			continue
		}
		rest = append(rest, op)
	}

	sort.SliceStable(dirDeletes, func(i, j int) bool {
		a, b := dirDeletes[i].Comparison.RelativePath, dirDeletes[j].Comparison.RelativePath
		if da, db := strings.Count(a, "/"), strings.Count(b, "/"); da != db {
			return da > db
		}
		return a > b
	})
	return rest, dirDeletes
}

// dispatch runs operations on the worker pool
func (e *Executor) dispatch(ctx context.Context, operations []models.SyncOperation, result *models.SyncResult) error {
	var wg sync.WaitGroup

	for i := range operations {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case e.semaphore <- struct{}{}:
		}

		// Cancellation wins over a free slot
		if ctx.Err() != nil {
			<-e.semaphore
			wg.Wait()
			return ctx.Err()
		}

		wg.Add(1)
		go func(op models.SyncOperation) {
			defer wg.Done()
			defer func() { <-e.semaphore }()

			e.run(ctx, op, result)
		}(operations[i])
	}

	wg.Wait()
	return nil
}

// run performs a single operation and records its outcome
func (e *Executor) run(ctx context.Context, op models.SyncOperation, result *models.SyncResult) {
	path := op.Comparison.RelativePath
	action := op.Action

	if action == models.ActionSkip {
		result.Record(action)
		return
	}

	if action == models.ActionAskUser {
		decided, deferred := e.decide(ctx, op)
		if deferred {
			e.markUnresolved(path)
			result.Record(models.ActionAskUser)
			e.progress(output.ProgressUpdate{Type: output.UpdateOperationDeferred, Path: path, Action: action})
			return
		}
		action = decided
	}

	startTime := time.Now()
	err := e.apply(ctx, op, action)

	if err != nil {
		e.markUnresolved(path)
		result.RecordError(path, action, err)
		e.logger.Error(ctx, "Operation failed", err, logging.Fields{
			"path":   path,
			"action": action.String(),
		})
		e.progress(output.ProgressUpdate{Type: output.UpdateOperationError, Path: path, Action: action, Error: err})
		return
	}

	result.Record(action)
	e.logger.Debug(ctx, "Operation completed", logging.Fields{
		"path":        path,
		"action":      action.String(),
		"duration_ms": time.Since(startTime).Milliseconds(),
	})
	e.progress(output.ProgressUpdate{
		Type:   output.UpdateOperationComplete,
		Path:   path,
		Action: action,
		Bytes:  (&models.SyncOperation{Comparison: op.Comparison, Action: action}).Size(),
	})
}

func (e *Executor) markUnresolved(path string) {
	e.unresolvedMu.Lock()
	defer e.unresolvedMu.Unlock()
	e.unresolved = append(e.unresolved, path)
}

// decide asks the prompter, one question at a time. deferred is true when
// the path should be left alone.
func (e *Executor) decide(ctx context.Context, op models.SyncOperation) (action models.SyncAction, deferred bool) {
	fields := logging.Fields{
		"path":   op.Comparison.RelativePath,
		"status": op.Comparison.Status.String(),
	}

	if e.prompter == nil {
		e.logger.Warn(ctx, "Operation needs a decision, skipping", fields)
		return models.ActionAskUser, true
	}

	e.promptMu.Lock()
	decided, err := e.prompter.Ask(ctx, op)
	e.promptMu.Unlock()

	if err != nil {
		e.logger.Error(ctx, "Prompt failed, skipping", err, fields)
		return models.ActionAskUser, true
	}
	if decided == models.ActionAskUser || decided == models.ActionSkip {
		e.logger.Info(ctx, "Left unchanged by user decision", fields)
		return models.ActionAskUser, true
	}

	fields["action"] = decided.String()
	e.logger.Info(ctx, "User decision", fields)
	return decided, false
}

func (e *Executor) apply(ctx context.Context, op models.SyncOperation, action models.SyncAction) error {
	path := op.Comparison.RelativePath

	switch action {
	case models.ActionSkip:
		return nil
	case models.ActionUpload:
		if op.Comparison.IsDir {
			return e.remote.MkdirAll(ctx, path)
		}
		return e.transfer(ctx, e.local, e.remote, path, op.Comparison.Local)
	case models.ActionDownload:
		if op.Comparison.IsDir {
			return e.local.MkdirAll(ctx, path)
		}
		return e.transfer(ctx, e.remote, e.local, path, op.Comparison.Remote)
	case models.ActionDeleteLocal:
		return e.local.Delete(ctx, path)
	case models.ActionDeleteRemote:
		return e.remote.Delete(ctx, path)
	default:
		return fmt.Errorf("unsupported action: %s", action)
	}
}

// transfer copies one file, carrying over its modification time. All
// transfers draw from the same bandwidth budget.
//
// The destination gets the time the source was listed with, which can differ
// from what Stat reports (S3 lists upload times unless head metadata is on).
// Only the listed time makes the next comparison see both sides as equal.
func (e *Executor) transfer(ctx context.Context, src, dst storage.Backend, path string, listed *models.FileInfo) error {
	sourceInfo, err := src.Stat(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to get source metadata: %w", err)
	}
	if listed != nil && !listed.ModTime.IsZero() {
		sourceInfo.ModTime = listed.ModTime
	}

	reader, err := src.Read(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}
	reader = ratelimit.NewReadCloser(ctx, reader, e.limiter)
	defer reader.Close()

	if err := dst.Write(ctx, path, reader, sourceInfo.Size, sourceInfo); err != nil {
		return fmt.Errorf("failed to write destination: %w", err)
	}

	return nil
}

func (e *Executor) progress(update output.ProgressUpdate) {
	if e.formatter == nil {
		return
	}
	e.reportMu.Lock()
	defer e.reportMu.Unlock()
	e.formatter.Progress(update)
}
