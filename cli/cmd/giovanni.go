package cmd

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/agharvest/cli/config"
	"github.com/pithecene-io/agharvest/fetch"
	"github.com/pithecene-io/agharvest/portal"
	"github.com/pithecene-io/agharvest/portal/chrome"
	"github.com/pithecene-io/agharvest/runtime"
	"github.com/pithecene-io/agharvest/types"
)

// GiovanniCommand returns the giovanni command: plot a selection on the
// portal, download the CSV artifact and save it.
func GiovanniCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "plot-type",
			Usage: "Plot type code (ArAvTs) or title",
		},
		&cli.StringFlag{
			Name:  "plot-start-date",
			Usage: "First day of the plot, YYYY-MM-DD",
		},
		&cli.StringFlag{
			Name:  "plot-end-date",
			Usage: "Last day of the plot, YYYY-MM-DD",
		},
		&cli.StringFlag{
			Name:    "earthdata-login-name",
			Usage:   "Earthdata login user name",
			EnvVars: []string{"EARTHDATA_LOGIN_NAME"},
		},
		&cli.StringFlag{
			Name:    "earthdata-login-pass",
			Usage:   "Earthdata login password",
			EnvVars: []string{"EARTHDATA_LOGIN_PASS"},
		},
		&cli.StringFlag{
			Name:  "plot-area-bbox",
			Usage: "Region bounding box: West,South,East,North",
		},
		&cli.StringFlag{
			Name:  "plot-area-shape",
			Usage: "Shape: group label in exact spelling, one separator character, then the shape name",
		},
		&cli.StringFlag{
			Name:  "plot-variable",
			Usage: "Variable keywords; the first match is used",
		},
		&cli.StringFlag{
			Name:  "csv-separator",
			Usage: "Separator of the downloaded CSV",
			Value: ",",
		},
		&cli.StringFlag{
			Name:  "rename-column",
			Usage: "New name of the column at --rename-column-index",
		},
		&cli.IntFlag{
			Name:  "rename-column-index",
			Usage: "Index of the column to rename",
			Value: fetch.DefaultRenameIndex,
		},
		&cli.StringFlag{
			Name:  "rename-column-old-name",
			Usage: "Name of the column to rename; takes precedence over the index",
		},
		&cli.StringFlag{
			Name:  "save-to-csv-file",
			Usage: "Write the data to this CSV file",
		},
		&cli.BoolFlag{
			Name:  "save-to-csv-file-metadata",
			Usage: "Write the preamble to <csv>.metadata and into the Parquet metadata",
		},
		&cli.IntFlag{
			Name:  "csv-skip-rows",
			Usage: "Number of lines before the header",
			Value: -1,
		},
		&cli.StringFlag{
			Name:  "csv-skip-signature",
			Usage: "Text contained in the header line, used when --csv-skip-rows is unset",
		},
		&cli.StringFlag{
			Name:  "save-to-parquet-file",
			Usage: "Write the data to this Parquet file",
		},
		&cli.BoolFlag{
			Name:  "headless",
			Usage: "Run Chrome without a window",
			Value: true,
		},
		&cli.StringFlag{
			Name:  "chrome-path",
			Usage: "Chrome binary (default: search PATH)",
		},
		&cli.StringFlag{
			Name:  "cdp-url",
			Usage: "Attach to a running browser at this DevTools URL",
		},
	}
	flags = append(flags, runFlags()...)
	return &cli.Command{
		Name:   "giovanni",
		Usage:  "Plot a Giovanni time series and save it as CSV and/or Parquet",
		Flags:  append(flags, proxyFlags()...),
		Action: giovanniAction,
	}
}

func giovanniAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	browser := "chrome"
	if resolveString(c, "cdp-url", cfg.Portal.CDPURL) != "" {
		browser = "cdp"
	}
	env, err := newRunEnv(c, cfg, "giovanni", "giovanni", browser)
	if err != nil {
		return err
	}

	job, err := buildGiovanniJob(c, cfg, env)
	if err != nil {
		// Bad selection values still count as a run so they are archived
		// and reported like any other failure.
		return env.execute(c, runtime.JobFunc(func(context.Context, *runtime.RunContext) (*runtime.JobResult, error) {
			return nil, fmt.Errorf("%w: %w", runtime.ErrUsage, err)
		}))
	}
	return env.execute(c, job)
}

// buildGiovanniJob maps flags and config onto a job. The browser is
// launched only when the job runs.
func buildGiovanniJob(c *cli.Context, cfg *config.Config, env *runEnv) (*runtime.GiovanniJob, error) {
	sel, err := parseSelection(c)
	if err != nil {
		return nil, err
	}
	sep, err := parseSeparator(c.String("csv-separator"))
	if err != nil {
		return nil, err
	}

	headless := true
	if cfg.Portal.Headless != nil {
		headless = *cfg.Portal.Headless
	}
	job := &runtime.GiovanniJob{
		Driver: runtime.ChromeDriver(chrome.Options{
			RemoteURL:           resolveString(c, "cdp-url", cfg.Portal.CDPURL),
			ExecPath:            resolveString(c, "chrome-path", cfg.Portal.ChromePath),
			Headless:            resolveBool(c, "headless", headless),
			UserAgent:           cfg.Portal.UserAgent,
			Proxy:               env.proxy,
			ManualOverlayScroll: cfg.Portal.ManualOverlayScroll,
			Logger:              env.logger.Named("chrome"),
		}),
		Portal: []portal.Option{
			portal.WithTimeouts(cfg.Portal.Timeouts.Apply(portal.DefaultTimeouts())),
		},
		Credentials: portal.Credentials{
			Username: c.String("earthdata-login-name"),
			Password: c.String("earthdata-login-pass"),
		},
		Selection: sel,
		Prepare: fetch.PrepareOptions{
			Separator:     sep,
			SkipRows:      c.Int("csv-skip-rows"),
			SkipSignature: c.String("csv-skip-signature"),
			RenameTo:      c.String("rename-column"),
			RenameFrom:    c.String("rename-column-old-name"),
			RenameIndex:   c.Int("rename-column-index"),
		},
		Outputs: fetch.Outputs{
			CSVPath:     c.String("save-to-csv-file"),
			CSVMetadata: c.Bool("save-to-csv-file-metadata"),
			ParquetPath: c.String("save-to-parquet-file"),
		},
	}
	if cfg.Portal.URL != "" {
		job.Portal = append(job.Portal, portal.WithPortalURL(cfg.Portal.URL))
	}
	job.Download = downloadOptions(cfg, env.proxy)
	return job, nil
}

func downloadOptions(cfg *config.Config, ep *types.ProxyEndpoint) []fetch.Option {
	var opts []fetch.Option
	if cfg.Portal.AuthHost != "" {
		opts = append(opts, fetch.WithAuthHost(cfg.Portal.AuthHost))
	}
	if d := cfg.Portal.DownloadTimeout.Duration; d > 0 {
		opts = append(opts, fetch.WithTimeout(d))
	}
	if ep != nil {
		opts = append(opts, fetch.WithProxy(ep))
	}
	return opts
}

func parseSelection(c *cli.Context) (portal.Selection, error) {
	var sel portal.Selection
	var errs []error
	var err error

	if sel.PlotType, err = portal.ParsePlotType(c.String("plot-type")); err != nil {
		errs = append(errs, fmt.Errorf("--plot-type: %w", err))
	}
	if sel.Start, err = portal.ParseDate(c.String("plot-start-date")); err != nil {
		errs = append(errs, fmt.Errorf("--plot-start-date: %w", err))
	}
	if sel.End, err = portal.ParseDate(c.String("plot-end-date")); err != nil {
		errs = append(errs, fmt.Errorf("--plot-end-date: %w", err))
	}

	bbox, shape := c.String("plot-area-bbox"), c.String("plot-area-shape")
	switch {
	case bbox != "" && shape != "":
		errs = append(errs, errors.New("--plot-area-bbox and --plot-area-shape are mutually exclusive"))
	case bbox != "":
		b, err := portal.ParseBBox(bbox)
		if err != nil {
			errs = append(errs, fmt.Errorf("--plot-area-bbox: %w", err))
		} else {
			sel.BBox = &b
		}
	case shape != "":
		ref := portal.ParseShape(shape)
		sel.Shape = &ref
	}
	sel.Variable = c.String("plot-variable")
	return sel, errors.Join(errs...)
}

// parseSeparator accepts one character or the escape \t.
func parseSeparator(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if s == "" || size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("--csv-separator must be a single character, got %q", s)
	}
	return r, nil
}
