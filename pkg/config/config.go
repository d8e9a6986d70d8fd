package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sdejongh/syncverdict/pkg/models"
	"github.com/sdejongh/syncverdict/pkg/ratelimit"
	"github.com/sdejongh/syncverdict/pkg/storage"
)

// Config represents the application configuration
type Config struct {
	Compare     CompareConfig     `yaml:"compare"`
	Exclude     []string          `yaml:"exclude"`
	Remote      RemoteConfig      `yaml:"remote"`
	Performance PerformanceConfig `yaml:"performance"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
	State       StateConfig       `yaml:"state"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
}

// CompareConfig holds the signals used to compare both sides
type CompareConfig struct {
	Timestamp bool   `yaml:"timestamp"`
	Size      bool   `yaml:"size"`
	Checksum  bool   `yaml:"checksum"`
	Direction string `yaml:"direction"` // "bidirectional", "local_to_remote", "remote_to_local"
}

// RemoteConfig describes the remote side of the pair
type RemoteConfig struct {
	Type     string `yaml:"type"` // "local" or "s3"
	Path     string `yaml:"path,omitempty"`
	Bucket   string `yaml:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Profile  string `yaml:"profile,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`

	// HeadMetadata reads the stored mtime of every object (one HEAD request each)
	HeadMetadata bool `yaml:"head_metadata"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers int `yaml:"max_workers"`

	// BandwidthLimit caps transfers, e.g. "10M" (empty = unlimited)
	BandwidthLimit string `yaml:"bandwidth_limit"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format string `yaml:"format"` // "human" or "json"
	Quiet  bool   `yaml:"quiet"`  // Print only the summary
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path (empty = stderr)
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// StateConfig controls the sync journal
type StateConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir,omitempty"` // empty = user config dir
}

// ScheduleConfig holds settings for periodic runs
type ScheduleConfig struct {
	Interval string `yaml:"interval"` // Go duration, e.g. "15m"
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Compare: CompareConfig{
			Timestamp: true,
			Size:      true,
			Checksum:  false,
			Direction: models.DirectionBidirectional.String(),
		},
		Exclude: models.DefaultExcludePatterns(),
		Remote: RemoteConfig{
			Type: "local",
		},
		Performance: PerformanceConfig{
			MaxWorkers: 5,
		},
		Output: OutputConfig{
			Format: "human",
			Quiet:  false,
		},
		Logging: LoggingConfig{
			Enabled:    false,
			Format:     "text",
			Level:      "info",
			File:       "",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 5,
		},
		State: StateConfig{
			Enabled: false,
		},
		Schedule: ScheduleConfig{
			Interval: "1h",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := models.ParseDirection(c.Compare.Direction); err != nil {
		return &models.ValidationError{
			Field:   "compare.direction",
			Message: "must be 'bidirectional', 'local_to_remote' or 'remote_to_local'",
		}
	}

	switch c.Remote.Type {
	case "", "local":
	case "s3":
		if c.Remote.Bucket == "" {
			return &models.ValidationError{
				Field:   "remote.bucket",
				Message: "is required when remote.type is 's3'",
			}
		}
	default:
		return &models.ValidationError{
			Field:   "remote.type",
			Message: "must be 'local' or 's3'",
		}
	}

	if c.Performance.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "performance.max_workers",
			Message: "must be at least 1",
		}
	}

	if _, err := ratelimit.ParseRate(c.Performance.BandwidthLimit); err != nil {
		return &models.ValidationError{
			Field:   "performance.bandwidth_limit",
			Message: "must be a rate such as '512K', '10M' or '1G'",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSize < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging.max_size",
			Message: "rotation limits cannot be negative",
		}
	}

	if c.Schedule.Interval != "" {
		interval, err := time.ParseDuration(c.Schedule.Interval)
		if err != nil || interval < time.Second {
			return &models.ValidationError{
				Field:   "schedule.interval",
				Message: "must be a duration of at least 1s (e.g. \"15m\")",
			}
		}
	}

	return nil
}

// CompareOptions returns the comparison settings of a run
func (c *Config) CompareOptions() (models.CompareOptions, error) {
	direction, err := models.ParseDirection(c.Compare.Direction)
	if err != nil {
		return models.CompareOptions{}, err
	}

	patterns := make([]string, len(c.Exclude))
	copy(patterns, c.Exclude)

	return models.CompareOptions{
		CompareTimestamp: c.Compare.Timestamp,
		CompareSize:      c.Compare.Size,
		CompareChecksum:  c.Compare.Checksum,
		ExcludePatterns:  patterns,
		Direction:        direction,
	}, nil
}

// RemoteTarget returns the remote as accepted by storage.Open: a
// directory path or an s3://bucket/prefix URL. Empty when unset.
func (c *Config) RemoteTarget() string {
	if c.Remote.Type != "s3" {
		return c.Remote.Path
	}
	target := "s3://" + c.Remote.Bucket
	if prefix := strings.Trim(c.Remote.Prefix, "/"); prefix != "" {
		target += "/" + prefix
	}
	return target
}

// RemoteOptions returns the object store connection settings
func (c *Config) RemoteOptions() storage.RemoteOptions {
	return storage.RemoteOptions{
		Region:       c.Remote.Region,
		Profile:      c.Remote.Profile,
		Endpoint:     c.Remote.Endpoint,
		HeadMetadata: c.Remote.HeadMetadata,
	}
}

// ScheduleInterval returns the parsed schedule interval
func (c *Config) ScheduleInterval() (time.Duration, error) {
	interval, err := time.ParseDuration(c.Schedule.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule interval %q: %w", c.Schedule.Interval, err)
	}
	return interval, nil
}

// BandwidthBytes returns the transfer limit in bytes per second (0 = unlimited)
func (c *Config) BandwidthBytes() (int64, error) {
	return ratelimit.ParseRate(c.Performance.BandwidthLimit)
}
