package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/agharvest/cli/reader"
	"github.com/pithecene-io/agharvest/cli/render"
)

// InspectCommand returns the inspect command. It shows the metadata
// saved with an output file: the Parquet key/value metadata, or the
// <csv>.metadata sidecar.
func InspectCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "file",
			Usage:    "Parquet file or CSV file with a .metadata sidecar",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "csv-separator",
			Usage: "Separator of the sidecar",
			Value: ",",
		},
	}
	return &cli.Command{
		Name:   "inspect",
		Usage:  "Show the metadata of an output file",
		Flags:  append(flags, ReadOnlyFlags()...),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError("%v", err)
	}
	sep, err := parseSeparator(c.String("csv-separator"))
	if err != nil {
		return usageError("%v", err)
	}

	view, err := reader.ReadMetadata(c.String("file"), sep)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if c.Bool("tui") {
		return r.RenderTUI("inspect", view)
	}
	return r.Render(view)
}
