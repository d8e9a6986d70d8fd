package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/syncverdict/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or create the syncverdict configuration file.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			remote := cfg.RemoteTarget()
			if remote == "" {
				remote = "(not set)"
			}

			fmt.Fprintf(w, "Direction: %s\n", cfg.Compare.Direction)
			fmt.Fprintf(w, "Compare: size=%v timestamp=%v checksum=%v\n", cfg.Compare.Size, cfg.Compare.Timestamp, cfg.Compare.Checksum)
			fmt.Fprintf(w, "Exclude: %v\n", cfg.Exclude)
			fmt.Fprintf(w, "Remote: %s\n", remote)
			fmt.Fprintf(w, "Max Workers: %d\n", cfg.Performance.MaxWorkers)
			fmt.Fprintf(w, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(w, "Journal: %v\n", cfg.State.Enabled)
			fmt.Fprintf(w, "Schedule Interval: %s\n", cfg.Schedule.Interval)
			fmt.Fprintf(w, "Logging: %v (format %s, level %s)\n", cfg.Logging.Enabled, cfg.Logging.Format, cfg.Logging.Level)

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
			}

			if err := config.SaveToFile(config.Default(), path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
