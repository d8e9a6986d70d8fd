package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/syncverdict/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"log debug messages to stderr",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"print only the final summary",
	)
}

// RunFlags holds the flags shared by compare, sync and schedule
type RunFlags struct {
	Local       string
	Remote      string
	Direction   string
	Exclude     []string
	NoSize      bool
	NoTimestamp bool
	Checksum    bool
	DryRun      bool
	Parallel    int
	Bandwidth   string
	Interactive bool
	Stateful    bool
	StateDir    string
	// Object store flags
	Region       string
	Profile      string
	Endpoint     string
	HeadMetadata bool
	// Output flags
	Output       string
	Report       string
	ReportFormat string
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var runFlags RunFlags

// addRunFlags registers the flags that select and compare a pair
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&runFlags.Local, "local", "l", "", "local directory path (required)")
	cmd.Flags().StringVarP(&runFlags.Remote, "remote", "r", "", "remote directory or s3://bucket/prefix (default: remote section of the config)")
	cmd.MarkFlagRequired("local")

	cmd.Flags().StringVar(&runFlags.Direction, "direction", "", "sync direction: bidirectional, local_to_remote, remote_to_local")
	cmd.Flags().StringSliceVar(&runFlags.Exclude, "exclude", []string{}, "patterns to exclude (replaces the configured list)")
	cmd.Flags().BoolVar(&runFlags.NoSize, "no-size", false, "do not compare file sizes")
	cmd.Flags().BoolVar(&runFlags.NoTimestamp, "no-timestamp", false, "do not compare modification times")
	cmd.Flags().BoolVar(&runFlags.Checksum, "checksum", false, "collect SHA-256 checksums")
	cmd.Flags().BoolVar(&runFlags.Stateful, "stateful", false, "keep a sync journal to detect conflicts between runs")
	cmd.Flags().StringVar(&runFlags.StateDir, "state-dir", "", "sync journal directory")

	cmd.Flags().StringVar(&runFlags.Region, "region", "", "AWS region of the bucket")
	cmd.Flags().StringVar(&runFlags.Profile, "profile", "", "AWS shared config profile")
	cmd.Flags().StringVar(&runFlags.Endpoint, "endpoint", "", "S3-compatible endpoint URL")
	cmd.Flags().BoolVar(&runFlags.HeadMetadata, "head-metadata", false, "read stored modification times of objects (one request per object)")

	cmd.Flags().StringVarP(&runFlags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().StringVar(&runFlags.Report, "report", "", "write the plan to a file")
	cmd.Flags().StringVar(&runFlags.ReportFormat, "report-format", "human", "plan report format: human, json")

	cmd.Flags().StringVar(&runFlags.LogFile, "log-file", "", "write logs to file (enables logging)")
	cmd.Flags().StringVar(&runFlags.LogFormat, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(&runFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error (enables logging)")
}

// addExecutionFlags registers the flags that only matter when operations run
func addExecutionFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runFlags.DryRun, "dry-run", false, "plan only, change nothing")
	cmd.Flags().IntVarP(&runFlags.Parallel, "parallel", "p", 0, "number of parallel workers (default: 5)")
	cmd.Flags().StringVarP(&runFlags.Bandwidth, "bandwidth", "b", "", "limit transfer bandwidth, e.g. 10M, 512K (default: unlimited)")
}
