package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sdejongh/syncverdict/internal/platform"
	"github.com/sdejongh/syncverdict/pkg/config"
	"github.com/sdejongh/syncverdict/pkg/logging"
	"github.com/sdejongh/syncverdict/pkg/storage"
)

// validateTargets checks the local directory and, when the remote is a
// directory too, that the two do not overlap
func validateTargets(local, remote string) error {
	if err := platform.ValidatePath(local); err != nil {
		return err
	}

	info, err := os.Stat(local)
	if os.IsNotExist(err) {
		return fmt.Errorf("local path does not exist: %s", local)
	} else if err != nil {
		return fmt.Errorf("failed to access local path: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("local path is not a directory: %s", local)
	}

	if remote == "" {
		return fmt.Errorf("no remote given: use --remote or set remote in the config file")
	}
	if storage.IsS3Target(remote) {
		_, _, err := storage.ParseS3URL(remote)
		return err
	}

	if err := platform.ValidatePath(remote); err != nil {
		return err
	}

	remoteInfo, err := os.Stat(remote)
	if os.IsNotExist(err) {
		return fmt.Errorf("remote path does not exist: %s", remote)
	} else if err != nil {
		return fmt.Errorf("failed to access remote path: %w", err)
	} else if !remoteInfo.IsDir() {
		return fmt.Errorf("remote path is not a directory: %s", remote)
	}

	localAbs, err := filepath.Abs(platform.NormalizePath(local))
	if err != nil {
		return fmt.Errorf("failed to resolve local path: %w", err)
	}
	remoteAbs, err := filepath.Abs(platform.NormalizePath(remote))
	if err != nil {
		return fmt.Errorf("failed to resolve remote path: %w", err)
	}

	if localAbs == remoteAbs {
		return fmt.Errorf("local and remote cannot be the same: %s", localAbs)
	}
	if platform.IsWithin(remoteAbs, localAbs) {
		return fmt.Errorf("remote cannot be inside the local directory")
	}
	if platform.IsWithin(localAbs, remoteAbs) {
		return fmt.Errorf("local cannot be inside the remote directory")
	}

	return nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	return config.Load(globalFlags.ConfigFile)
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	// Remote target
	if runFlags.Remote != "" {
		if storage.IsS3Target(runFlags.Remote) {
			bucket, prefix, _ := storage.ParseS3URL(runFlags.Remote)
			cfg.Remote.Type = "s3"
			cfg.Remote.Bucket = bucket
			cfg.Remote.Prefix = prefix
		} else {
			cfg.Remote.Type = "local"
			cfg.Remote.Path = runFlags.Remote
		}
	}
	if runFlags.Region != "" {
		cfg.Remote.Region = runFlags.Region
	}
	if runFlags.Profile != "" {
		cfg.Remote.Profile = runFlags.Profile
	}
	if runFlags.Endpoint != "" {
		cfg.Remote.Endpoint = runFlags.Endpoint
	}
	if runFlags.HeadMetadata {
		cfg.Remote.HeadMetadata = true
	}

	// Comparison
	if runFlags.Direction != "" {
		cfg.Compare.Direction = runFlags.Direction
	}
	if runFlags.NoSize {
		cfg.Compare.Size = false
	}
	if runFlags.NoTimestamp {
		cfg.Compare.Timestamp = false
	}
	if runFlags.Checksum {
		cfg.Compare.Checksum = true
	}
	if flags.Changed("exclude") {
		cfg.Exclude = runFlags.Exclude
	}

	// Journal
	if runFlags.Stateful {
		cfg.State.Enabled = true
	}
	if runFlags.StateDir != "" {
		cfg.State.Dir = runFlags.StateDir
	}

	// Parallel workers (default: 5)
	if runFlags.Parallel > 0 {
		cfg.Performance.MaxWorkers = runFlags.Parallel
	} else if cfg.Performance.MaxWorkers == 0 {
		cfg.Performance.MaxWorkers = 5
	}
	if runFlags.Bandwidth != "" {
		cfg.Performance.BandwidthLimit = runFlags.Bandwidth
	}

	// Output format
	if runFlags.Output != "" {
		cfg.Output.Format = runFlags.Output
	}
	if globalFlags.Quiet {
		cfg.Output.Quiet = true
	}

	// Logging
	if runFlags.LogFile != "" {
		cfg.Logging.File = runFlags.LogFile
		cfg.Logging.Enabled = true
	}
	if runFlags.LogFormat != "" {
		cfg.Logging.Format = runFlags.LogFormat
	}
	if runFlags.LogLevel != "" {
		cfg.Logging.Level = runFlags.LogLevel
		cfg.Logging.Enabled = true
	}
	if globalFlags.Verbose {
		cfg.Logging.Level = logging.DebugLevel.String()
		cfg.Logging.Enabled = true
	}
}

// createLogger creates a logger based on configuration
func createLogger(cfg config.LoggingConfig) (logging.Logger, error) {
	if !cfg.Enabled && cfg.File == "" {
		return logging.NewNullLogger(), nil
	}

	var format logging.Format
	switch cfg.Format {
	case "json":
		format = logging.FormatJSON
	default:
		format = logging.FormatText
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.File,
		Format:     format,
		Level:      logging.ParseLevel(cfg.Level),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
	})
}
