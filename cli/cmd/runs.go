package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/agharvest/cli/reader"
	"github.com/pithecene-io/agharvest/cli/render"
	"github.com/pithecene-io/agharvest/lode"
)

// RunsCommand returns the runs command: list archived runs, or show the
// metrics of one run.
func RunsCommand() *cli.Command {
	flags := []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:  "source",
			Usage: "Only runs of this source (giovanni, nass, local)",
		},
		&cli.StringFlag{
			Name:  "command",
			Usage: "Only runs of this command",
		},
		&cli.StringFlag{
			Name:  "status",
			Usage: "Only runs with this outcome",
		},
		&cli.StringFlag{
			Name:  "day",
			Usage: "Only runs archived on this day (YYYY-MM-DD)",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Show at most this many runs",
		},
		&cli.StringFlag{
			Name:  "metrics",
			Usage: "Show the metrics of this run ID instead (latest run when \"latest\")",
		},
	}
	flags = append(flags, ReadOnlyFlags()...)
	return &cli.Command{
		Name:   "runs",
		Usage:  "List archived runs",
		Flags:  append(flags, storageFlags()...),
		Action: runsAction,
	}
}

func runsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError("%v", err)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	storage, err := parseStorage(c, cfg)
	if err != nil {
		return usageError("%v", err)
	}
	if !storage.enabled() {
		return usageError("--lode-path (or storage.path) is required")
	}
	ds, err := storage.openDataset(c.Context)
	if err != nil {
		return cli.Exit("open archive: "+err.Error(), 1)
	}
	rd := reader.New(ds)

	if c.IsSet("metrics") {
		runID := c.String("metrics")
		if runID == "latest" {
			runID = ""
		}
		view, err := rd.Metrics(c.Context, runID, c.String("source"))
		if errors.Is(err, lode.ErrNoMetricsFound) {
			return cli.Exit("no metrics found", 1)
		}
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		if c.Bool("tui") {
			return r.RenderTUI("runs_metrics", view)
		}
		return r.Render(view)
	}

	view, err := rd.Runs(c.Context, lode.RunFilter{
		Source:  c.String("source"),
		Command: c.String("command"),
		Status:  c.String("status"),
		Day:     c.String("day"),
		Limit:   c.Int("limit"),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if c.Bool("tui") {
		return r.RenderTUI("runs", view)
	}
	return r.Render(view)
}
