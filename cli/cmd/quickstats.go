package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/agharvest/cli/config"
	"github.com/pithecene-io/agharvest/cli/render"
	"github.com/pithecene-io/agharvest/log"
	"github.com/pithecene-io/agharvest/quickstats"
	"github.com/pithecene-io/agharvest/runtime"
	"github.com/pithecene-io/agharvest/types"
)

// QuickStats operations.
const (
	opData          = "data"
	opCount         = "count"
	opParameters    = "parameters"
	opParameterDesc = "parameter_desc"
)

// QuickStatsCommand returns the quickstats command. Conditions are
// positional "field;operator;value" tokens.
func QuickStatsCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "NASS QuickStats API key (https://quickstats.nass.usda.gov/api)",
			EnvVars: []string{"NASS_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "operation",
			Usage: "data, count, parameters, or parameter_desc",
			Value: opData,
		},
		&cli.StringFlag{
			Name:  "parameter",
			Usage: "Parameter described by parameter_desc",
		},
		&cli.StringFlag{
			Name:  "output-columns",
			Usage: "Columns to keep, separated by semicolons",
		},
		&cli.StringFlag{
			Name:  "output-column-names",
			Usage: "New names for --output-columns, separated by semicolons",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Write records to this file (.csv, else Parquet); unset prints them",
		},
		FormatFlag,
		NoColorFlag,
	}
	flags = append(flags, runFlags()...)
	return &cli.Command{
		Name:      "quickstats",
		Usage:     "Query the USDA NASS QuickStats API",
		ArgsUsage: "[field;operator;value ...]",
		Flags:     append(flags, proxyFlags()...),
		Action:    quickStatsAction,
	}
}

func quickStatsAction(c *cli.Context) error {
	op := c.String("operation")
	switch op {
	case opParameters:
		return renderValue(c, parameterNames())
	case opData, opCount, opParameterDesc:
	default:
		return usageError("invalid --operation %q: must be data, count, parameters, or parameter_desc", op)
	}

	conds, err := quickstats.ParseConditions(c.Args().Slice())
	if err != nil {
		return usageError("condition: %v", err)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if op != opData {
		return quickStatsQuery(c, cfg, op, conds)
	}

	env, err := newRunEnv(c, cfg, "quickstats", "nass", "")
	if err != nil {
		return err
	}
	job := &runtime.QuickStatsJob{
		Client:      newQuickStatsClient(c, cfg, env.proxy, env.logger),
		Conditions:  conds,
		Columns:     splitList(c.String("output-columns")),
		ColumnNames: splitList(c.String("output-column-names")),
		Output:      c.String("output"),
	}
	if job.Output == "" {
		r, err := render.NewRenderer(c)
		if err != nil {
			return usageError("%v", err)
		}
		env.show = func(res *runtime.RunResult) error { return r.Render(res.Table) }
	}
	return env.execute(c, job)
}

// quickStatsQuery runs the read-only count and parameter_desc operations.
func quickStatsQuery(c *cli.Context, cfg *config.Config, op string, conds []quickstats.Condition) error {
	ep, _, err := resolveProxy(c, cfg)
	if err != nil {
		return usageError("%v", err)
	}
	logger := log.NewLogger(nil, log.ParseLevel(resolveString(c, "log-level", cfg.LogLevel)))
	client := newQuickStatsClient(c, cfg, ep, logger)

	if op == opCount {
		n, err := client.Count(c.Context, conds)
		if err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeFailure)
		}
		return renderValue(c, map[string]string{"count": fmt.Sprint(n)})
	}

	param, err := quickstats.ParseParameter(c.String("parameter"))
	if err != nil {
		return usageError("--parameter: %v", err)
	}
	values, err := client.ParamValues(c.Context, param, conds)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFailure)
	}
	return renderValue(c, values)
}

func newQuickStatsClient(c *cli.Context, cfg *config.Config, ep *types.ProxyEndpoint, logger *log.Logger) *quickstats.Client {
	opts := []quickstats.Option{
		quickstats.WithBaseURL(cfg.QuickStats.BaseURL),
		quickstats.WithTimeout(cfg.QuickStats.Timeout.Duration),
		quickstats.WithLogger(logger.Named("quickstats")),
	}
	if ep != nil {
		opts = append(opts, quickstats.WithProxy(ep))
	}
	return quickstats.NewClient(resolveString(c, "api-key", cfg.QuickStats.APIKey), opts...)
}

func renderValue(c *cli.Context, v any) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError("%v", err)
	}
	return r.Render(v)
}

func parameterNames() []string {
	params := quickstats.Parameters()
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = string(p)
	}
	return out
}

// splitList splits a semicolon separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ";") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
