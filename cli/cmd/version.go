package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/agharvest/cli/render"
	"github.com/pithecene-io/agharvest/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
}

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: ReadOnlyFlags(),
		Action: func(c *cli.Context) error {
			if c.Bool("tui") {
				return usageError("--tui is not supported for version command")
			}
			r, err := render.NewRenderer(c)
			if err != nil {
				return usageError("%v", err)
			}
			return r.Render(VersionResponse{Version: types.Version, Commit: commit})
		},
	}
}
