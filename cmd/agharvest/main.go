// Package main provides the agharvest CLI entrypoint.
//
// Usage:
//
//	agharvest <command> [subcommand] [options]
//
// Exit codes:
//   - 0: success
//   - 1: the run failed (step, download or output failure)
//   - 2: usage error before a run started
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/agharvest/cli/cmd"
	"github.com/pithecene-io/agharvest/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	// A .env file in the working directory supplies
	// credentials such as EARTHDATA_LOGIN_PASS and NASS_API_KEY.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "agharvest",
		Usage:          "Harvest agricultural and climate data from NASA Giovanni and USDA QuickStats",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.GiovanniCommand(),
			cmd.QuickStatsCommand(),
			cmd.ParquetCommand(),
			cmd.RunsCommand(),
			cmd.InspectCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler prints err and exits with its code.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(reportExit(os.Stderr, err))
}

// reportExit writes the message of err to w and returns the exit code.
// cli.Exit codes pass through; anything else, including urfave's own
// flag errors, is a usage error.
func reportExit(w io.Writer, err error) int {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		// cli.Exit("", N).Error() returns "exit status N"; skip those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(w, msg)
		}
		return code
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return 2
}
