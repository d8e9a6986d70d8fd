package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the syncverdict command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "syncverdict",
		Short: "Reconcile a local directory with a remote and sync the differences",
		Long: `syncverdict compares the inventory of a local directory with a remote
directory or S3 prefix, decides what each difference calls for (upload,
download, delete or a human decision) and carries the plan out.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewCompareCommand())
	rootCmd.AddCommand(NewScheduleCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
