package cli

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/sdejongh/syncverdict/pkg/models"
)

// NewScheduleCommand creates the schedule command
func NewScheduleCommand() *cobra.Command {
	var every string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run sync periodically until interrupted",
		Long: `Run sync immediately and then at a fixed interval. A run that is still
going when the next one is due delays it instead of overlapping.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd, every)
		},
	}

	addRunFlags(cmd)
	addExecutionFlags(cmd)
	cmd.Flags().StringVar(&every, "every", "", "interval between runs, e.g. 15m (default: schedule.interval from config)")

	return cmd
}

func runSchedule(cmd *cobra.Command, every string) error {
	ctx := cmd.Context()

	cfg, err := prepareRun(cmd)
	if err != nil {
		return err
	}

	if every != "" {
		cfg.Schedule.Interval = every
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid --every: %w", err)
		}
	}

	interval, err := cfg.ScheduleInterval()
	if err != nil {
		return err
	}

	// Held by the job while it runs so shutdown can wait for it
	running := make(chan struct{}, 1)
	runs := 0

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	_, err = scheduler.Every(interval).Do(func() {
		running <- struct{}{}
		defer func() { <-running }()

		if ctx.Err() != nil {
			return
		}

		runs++
		report, err := runOnce(ctx, cfg, runRequest{
			dryRun: runFlags.DryRun,
			out:    cmd.OutOrStdout(),
		})
		logScheduledRun(cmd, runs, report, err, interval)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Syncing %s with %s every %s (Ctrl+C to stop)\n", runFlags.Local, cfg.RemoteTarget(), interval)
	scheduler.StartAsync()

	<-ctx.Done()
	scheduler.Stop()

	// Wait for a run in progress to wind down
	running <- struct{}{}

	fmt.Fprintf(cmd.ErrOrStderr(), "Stopped after %d runs\n", runs)
	return nil
}

func logScheduledRun(cmd *cobra.Command, n int, report *models.SyncReport, err error, interval time.Duration) {
	w := cmd.ErrOrStderr()
	next := time.Now().Add(interval).Format(time.TimeOnly)

	if report == nil {
		fmt.Fprintf(w, "Run %d could not start: %v (next at %s)\n", n, err, next)
		return
	}
	fmt.Fprintf(w, "Run %d (%s) finished with status %s (next at %s)\n", n, report.RunID, report.Status, next)
}
