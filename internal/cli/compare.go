package cli

import (
	"github.com/spf13/cobra"
)

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Show what a sync would do without changing anything",
		Long: `Compare a local directory with a remote and print the resolved plan
without performing any file operations. This is equivalent to sync --dry-run.`,
		RunE: runCompare,
	}

	addRunFlags(cmd)

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := prepareRun(cmd)
	if err != nil {
		return err
	}

	report, err := runOnce(cmd.Context(), cfg, runRequest{
		dryRun: true,
		out:    cmd.OutOrStdout(),
	})

	return exitStatus(report, err)
}
