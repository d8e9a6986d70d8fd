package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sdejongh/syncverdict/pkg/sync"
)

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize a local directory with a remote",
		Long: `Compare a local directory with a remote directory or S3 prefix, resolve
an action for every difference and carry the actions out.

Differences that need a human decision (size mismatches and conflicts) are
skipped unless --interactive is given.`,
		RunE: runSync,
	}

	addRunFlags(cmd)
	addExecutionFlags(cmd)
	cmd.Flags().BoolVarP(&runFlags.Interactive, "interactive", "i", false, "ask what to do with files that need a decision")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := prepareRun(cmd)
	if err != nil {
		return err
	}

	var prompter sync.Prompter
	if runFlags.Interactive && !runFlags.DryRun {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("--interactive needs a terminal on stdin")
		}
		prompter = newPrompter(os.Stdin, cmd.OutOrStdout())
	}

	report, err := runOnce(ctx, cfg, runRequest{
		dryRun:   runFlags.DryRun,
		prompter: prompter,
		out:      cmd.OutOrStdout(),
	})

	return exitStatus(report, err)
}
