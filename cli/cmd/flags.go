// Package cmd provides the commands of the agharvest binary.
package cmd

import (
	"time"

	"github.com/urfave/cli/v2"
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for inspect and runs.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, runs only)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// configFlag names the optional agharvest.yaml.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to agharvest.yaml (default: ./agharvest.yaml when present)",
		EnvVars: []string{"AGHARVEST_CONFIG"},
	}
}

// storageFlags locate the run archive.
func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "lode-backend",
			Usage: "Archive backend: fs or s3",
		},
		&cli.StringFlag{
			Name:  "lode-path",
			Usage: "Archive location (fs: directory, s3: bucket/prefix). Unset disables archiving",
		},
		&cli.StringFlag{
			Name:  "lode-dataset",
			Usage: "Archive dataset ID",
		},
		&cli.StringFlag{
			Name:  "lode-s3-region",
			Usage: "AWS region for the s3 backend (default: AWS chain)",
		},
		&cli.StringFlag{
			Name:  "lode-s3-endpoint",
			Usage: "Custom S3 endpoint for S3-compatible providers",
		},
		&cli.BoolFlag{
			Name:  "lode-s3-path-style",
			Usage: "Use path-style S3 addressing",
		},
	}
}

// runFlags are shared by every command that executes a run.
func runFlags() []cli.Flag {
	flags := []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress the run summary",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON run report to this path (- for stderr)",
		},
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Completion notification: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Webhook endpoint or redis:// URL",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Timeout per notification attempt",
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Notification retries after the first attempt",
		},
	}
	return append(flags, storageFlags()...)
}

// proxyFlags select an endpoint from the configured pools.
func proxyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "proxy-pool",
			Usage: "Proxy pool from the config file",
		},
		&cli.StringFlag{
			Name:  "proxy-strategy",
			Usage: "Strategy override: round_robin or random",
		},
	}
}

// resolveString returns the flag value when set on the command line, the
// config value when non-empty, and the flag default otherwise.
func resolveString(c *cli.Context, name, configValue string) string {
	if c.IsSet(name) || configValue == "" {
		return c.String(name)
	}
	return configValue
}

func resolveInt(c *cli.Context, name string, configValue int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	return configValue
}

func resolveBool(c *cli.Context, name string, configValue bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return configValue
}

func resolveDuration(c *cli.Context, name string, configValue time.Duration) time.Duration {
	if c.IsSet(name) || configValue == 0 {
		return c.Duration(name)
	}
	return configValue
}
