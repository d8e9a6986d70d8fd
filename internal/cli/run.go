package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sdejongh/syncverdict/pkg/config"
	"github.com/sdejongh/syncverdict/pkg/models"
	"github.com/sdejongh/syncverdict/pkg/output"
	"github.com/sdejongh/syncverdict/pkg/storage"
	"github.com/sdejongh/syncverdict/pkg/sync"
)

// ExitError ends the process with Code once the run output is printed
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// runRequest holds the per-invocation choices that are not configuration
type runRequest struct {
	dryRun   bool
	prompter sync.Prompter
	out      io.Writer
}

// prepareRun builds the effective configuration of a run and checks the targets
func prepareRun(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	applyFlagsToConfig(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := validateTargets(runFlags.Local, cfg.RemoteTarget()); err != nil {
		return nil, err
	}

	return cfg, nil
}

// runOnce opens both sides and performs one engine run. The report is nil
// only when the run could not be set up.
func runOnce(ctx context.Context, cfg *config.Config, req runRequest) (*models.SyncReport, error) {
	compareOpts, err := cfg.CompareOptions()
	if err != nil {
		return nil, err
	}

	bandwidth, err := cfg.BandwidthBytes()
	if err != nil {
		return nil, err
	}

	logger, err := createLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	local, err := storage.NewLocal(runFlags.Local)
	if err != nil {
		return nil, fmt.Errorf("failed to create local backend: %w", err)
	}
	defer local.Close()

	remote, err := storage.Open(ctx, cfg.RemoteTarget(), cfg.RemoteOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create remote backend: %w", err)
	}
	defer remote.Close()

	formatter, err := output.NewFormatter(cfg.Output.Format, cfg.Output.Quiet)
	if err != nil {
		return nil, err
	}

	engine := sync.NewEngine(local, remote, sync.Options{
		Compare:        compareOpts,
		DryRun:         req.dryRun,
		MaxWorkers:     cfg.Performance.MaxWorkers,
		BandwidthLimit: bandwidth,
		Stateful:       cfg.State.Enabled,
		StateDir:       cfg.State.Dir,
		Prompter:       req.prompter,
		Output:         req.out,
	}, formatter, logger)

	report, runErr := engine.Run(ctx)

	if runFlags.Report != "" {
		if err := output.WritePlanReport(report, runFlags.Report, runFlags.ReportFormat); err != nil {
			return report, err
		}
	}

	return report, runErr
}

// exitStatus converts a finished run into the command result
func exitStatus(report *models.SyncReport, err error) error {
	if report == nil {
		return err
	}
	if code := report.Status.ExitCode(); code != 0 {
		return &ExitError{Code: code, Err: err}
	}
	return err
}
