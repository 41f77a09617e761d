package cmd

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/agharvest/runtime"
	"github.com/pithecene-io/agharvest/tabular"
)

// ParquetCommand returns the parquet command with join and aggregate
// subcommands. Inputs and outputs are .csv or Parquet by extension.
func ParquetCommand() *cli.Command {
	return &cli.Command{
		Name:  "parquet",
		Usage: "Join and aggregate tabular files",
		Subcommands: []*cli.Command{
			joinCommand(),
			aggregateCommand(),
		},
	}
}

func joinCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "output",
			Usage:    "Joined file",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "join-field",
			Usage:    "Column to join on",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "join-method",
			Usage: "inner, outer, left, or right",
			Value: string(tabular.JoinInner),
		},
		&cli.StringFlag{
			Name:  "new-column",
			Usage: "Add a column holding a value extracted from each input file name",
		},
		&cli.StringFlag{
			Name:  "new-column-value-extractor",
			Usage: "Regular expression whose first group is the --new-column value",
			Value: tabular.DefaultSourcePattern,
		},
	}
	return &cli.Command{
		Name:      "join",
		Usage:     "Join files on a column",
		ArgsUsage: "<file or glob> ...",
		Flags:     append(flags, runFlags()...),
		Action:    joinAction,
	}
}

func joinAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return usageError("at least one input file required")
	}
	method, err := tabular.ParseJoinMethod(c.String("join-method"))
	if err != nil {
		return usageError("--join-method: %v", err)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	env, err := newRunEnv(c, cfg, "parquet_join", "local", "")
	if err != nil {
		return err
	}
	job := &runtime.JoinJob{
		Inputs: c.Args().Slice(),
		Field:  c.String("join-field"),
		Method: method,
		Output: c.String("output"),
	}
	if name := c.String("new-column"); name != "" {
		job.Source = &tabular.SourceColumn{Name: name, Pattern: c.String("new-column-value-extractor")}
	}
	return env.execute(c, job)
}

func aggregateCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Usage:    "File to aggregate",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "output",
			Usage:    "Aggregated file",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "time-string-field",
			Usage:    "Column holding dates",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "time-aggregate-level",
			Usage: "year, month, or day",
			Value: string(tabular.LevelYear),
		},
		&cli.StringFlag{
			Name:  "aggregate-method",
			Usage: "mean, sum, median, min, max, std, var, count, and other reductions",
			Value: "mean",
		},
		&cli.StringFlag{
			Name:  "aggregate-fields",
			Usage: "Comma separated columns to aggregate (default: every numeric column)",
		},
	}
	return &cli.Command{
		Name:   "aggregate",
		Usage:  "Aggregate a file per calendar period",
		Flags:  append(flags, runFlags()...),
		Action: aggregateAction,
	}
}

func aggregateAction(c *cli.Context) error {
	level, err := tabular.ParseLevel(c.String("time-aggregate-level"))
	if err != nil {
		return usageError("--time-aggregate-level: %v", err)
	}
	method, err := tabular.ParseAggregateMethod(c.String("aggregate-method"))
	if err != nil {
		return usageError("--aggregate-method: %v", err)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	env, err := newRunEnv(c, cfg, "parquet_aggregate", "local", "")
	if err != nil {
		return err
	}
	var fields []string
	for _, f := range strings.Split(c.String("aggregate-fields"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return env.execute(c, &runtime.AggregateJob{
		Input:  c.String("input"),
		Output: c.String("output"),
		Options: tabular.AggregateOptions{
			TimeField: c.String("time-string-field"),
			Level:     level,
			Method:    method,
			Fields:    fields,
		},
	})
}
