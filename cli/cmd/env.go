package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	lodelib "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/agharvest/adapter"
	"github.com/pithecene-io/agharvest/adapter/redis"
	"github.com/pithecene-io/agharvest/adapter/webhook"
	"github.com/pithecene-io/agharvest/cli/config"
	"github.com/pithecene-io/agharvest/lode"
	"github.com/pithecene-io/agharvest/log"
	"github.com/pithecene-io/agharvest/metrics"
	"github.com/pithecene-io/agharvest/proxy"
	"github.com/pithecene-io/agharvest/runtime"
	"github.com/pithecene-io/agharvest/types"
)

// usageError aborts a command before any run starts.
func usageError(format string, args ...any) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(format, args...), runtime.ExitCodeUsage)
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadOptional(c.String("config"))
	if err != nil {
		return nil, usageError("config: %v", err)
	}
	return cfg, nil
}

// storageChoice holds the resolved archive location.
type storageChoice struct {
	backend   string
	path      string
	dataset   string
	region    string
	endpoint  string
	pathStyle bool
}

func parseStorage(c *cli.Context, cfg *config.Config) (storageChoice, error) {
	s := storageChoice{
		backend:   resolveString(c, "lode-backend", cfg.Storage.Backend),
		path:      resolveString(c, "lode-path", cfg.Storage.Path),
		dataset:   resolveString(c, "lode-dataset", cfg.Storage.Dataset),
		region:    resolveString(c, "lode-s3-region", cfg.Storage.Region),
		endpoint:  resolveString(c, "lode-s3-endpoint", cfg.Storage.Endpoint),
		pathStyle: resolveBool(c, "lode-s3-path-style", cfg.Storage.S3PathStyle),
	}
	if s.backend == "" {
		s.backend = "fs"
	}
	if s.dataset == "" {
		s.dataset = lode.DefaultDataset
	}
	switch s.backend {
	case "fs", "s3":
	default:
		return s, fmt.Errorf("invalid --lode-backend %q: must be fs or s3", s.backend)
	}
	return s, nil
}

func (s storageChoice) enabled() bool { return s.path != "" }

func (s storageChoice) s3Config() lode.S3Config {
	bucket, prefix := lode.ParseS3Path(s.path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       s.region,
		Endpoint:     s.endpoint,
		UsePathStyle: s.pathStyle,
	}
}

func (s storageChoice) openArchive(ctx context.Context, cfg lode.Config) (*lode.Archive, error) {
	if s.backend == "s3" {
		return lode.NewS3Archive(ctx, cfg, s.s3Config())
	}
	return lode.NewFSArchive(cfg, s.path)
}

func (s storageChoice) openDataset(ctx context.Context) (lodelib.Dataset, error) {
	if s.backend == "s3" {
		return lode.OpenS3(ctx, s.dataset, s.s3Config())
	}
	return lode.OpenFS(s.dataset, s.path)
}

// location renders where an archive prefix lives, for notifications.
func (s storageChoice) location(prefix string) string {
	if s.backend == "s3" {
		sc := s.s3Config()
		parts := []string{sc.Bucket}
		if sc.Prefix != "" {
			parts = append(parts, sc.Prefix)
		}
		return "s3://" + strings.Join(append(parts, prefix), "/")
	}
	return filepath.Join(s.path, filepath.FromSlash(prefix))
}

// adapterChoice holds the resolved notification settings.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	headers     map[string]string
	timeout     time.Duration
	retries     int
}

// parseAdapterConfig returns nil when no adapter is configured.
func parseAdapterConfig(c *cli.Context, cfg *config.Config) (*adapterChoice, error) {
	ac := &adapterChoice{
		adapterType: resolveString(c, "adapter", cfg.Adapter.Type),
		url:         resolveString(c, "adapter-url", cfg.Adapter.URL),
		channel:     resolveString(c, "adapter-channel", cfg.Adapter.Channel),
		headers:     cfg.Adapter.Headers,
		timeout:     resolveDuration(c, "adapter-timeout", cfg.Adapter.Timeout.Duration),
	}
	if ac.adapterType == "" {
		if c.IsSet("adapter-url") {
			return nil, fmt.Errorf("--adapter-url needs --adapter webhook or redis")
		}
		return nil, nil
	}

	defaultRetries := webhook.DefaultRetries
	if ac.adapterType == "redis" {
		defaultRetries = redis.DefaultRetries
	}
	if cfg.Adapter.Retries != nil {
		defaultRetries = *cfg.Adapter.Retries
	}
	ac.retries = resolveInt(c, "adapter-retries", defaultRetries)

	switch ac.adapterType {
	case "webhook", "redis":
	default:
		return nil, fmt.Errorf("invalid --adapter %q: must be webhook or redis", ac.adapterType)
	}
	if ac.url == "" {
		return nil, fmt.Errorf("--adapter-url is required for the %s adapter", ac.adapterType)
	}
	return ac, nil
}

func (ac *adapterChoice) build() (adapter.Adapter, error) {
	if ac.adapterType == "redis" {
		return redis.New(redis.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	}
	return webhook.New(webhook.Config{
		URL:     ac.url,
		Headers: ac.headers,
		Timeout: ac.timeout,
		Retries: ac.retries,
	})
}

// resolveProxy selects an endpoint when a pool is named. Warnings of the
// selected endpoint are returned for the operator.
func resolveProxy(c *cli.Context, cfg *config.Config) (*types.ProxyEndpoint, []string, error) {
	pool := resolveString(c, "proxy-pool", cfg.Proxy.Pool)
	if pool == "" {
		if c.IsSet("proxy-strategy") {
			return nil, nil, fmt.Errorf("--proxy-strategy needs --proxy-pool")
		}
		return nil, nil, nil
	}
	strategy := types.ProxyStrategy(resolveString(c, "proxy-strategy", cfg.Proxy.Strategy))
	ep, _, err := proxy.Resolve(cfg.ProxyPools(), pool, strategy)
	if err != nil {
		return nil, nil, fmt.Errorf("proxy selection failed: %w", err)
	}
	return ep, ep.Warnings(), nil
}

// runEnv is everything a run needs besides its job.
type runEnv struct {
	cfg       *config.Config
	meta      *types.RunMeta
	logger    *log.Logger
	collector *metrics.Collector
	storage   storageChoice
	archive   *lode.Archive
	adapter   adapter.Adapter
	proxy     *types.ProxyEndpoint
	day       string
	// show prints the result of a successful run, when set.
	show func(*runtime.RunResult) error
}

// newRunEnv resolves logging, archive, notifications and proxy for one
// run. browser names the browser mode recorded in metrics.
func newRunEnv(c *cli.Context, cfg *config.Config, command, source, browser string) (*runEnv, error) {
	var err error
	env := &runEnv{
		cfg:  cfg,
		meta: types.NewRunMeta(command, source),
		day:  lode.DeriveDay(time.Now()),
	}
	env.logger = log.NewLogger(env.meta, log.ParseLevel(resolveString(c, "log-level", cfg.LogLevel)))

	if env.storage, err = parseStorage(c, cfg); err != nil {
		return nil, usageError("%v", err)
	}
	backend := ""
	if env.storage.enabled() {
		backend = env.storage.backend
	}
	env.collector = metrics.NewCollector(command, browser, backend, env.meta.RunID)

	if env.storage.enabled() {
		env.archive, err = env.storage.openArchive(c.Context, lode.Config{
			Dataset:  env.storage.dataset,
			Source:   source,
			Category: command,
			Day:      env.day,
			RunID:    env.meta.RunID,
		})
		if err != nil {
			return nil, usageError("archive: %v", err)
		}
		env.archive.SetMetrics(env.collector)
	}

	ac, err := parseAdapterConfig(c, cfg)
	if err != nil {
		return nil, usageError("%v", err)
	}
	if ac != nil {
		if env.adapter, err = ac.build(); err != nil {
			return nil, usageError("adapter: %v", err)
		}
	}

	var warnings []string
	env.proxy, warnings, err = resolveProxy(c, cfg)
	if err != nil {
		return nil, usageError("%v", err)
	}
	for _, w := range warnings {
		env.logger.Warn("proxy warning", map[string]any{"warning": w})
	}
	return env, nil
}

// execute runs job, prints the summary and maps the outcome to the exit
// code.
func (env *runEnv) execute(c *cli.Context, job runtime.Job) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = env.logger.Sync() }()

	rc := runtime.RunConfig{
		RunMeta:   env.meta,
		Logger:    env.logger,
		Collector: env.collector,
		Adapter:   env.adapter,
		Day:       env.day,
	}
	if env.archive != nil {
		rc.Recorder = env.archive
		rc.StoragePath = env.storage.location(env.archive.Location())
	}
	res, err := runtime.Execute(ctx, rc, job)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFailure)
	}

	w := c.App.Writer
	if env.show != nil && res.Outcome.Succeeded() {
		if err := env.show(res); err != nil {
			env.logger.Warn("result not printed", map[string]any{"error": err.Error()})
		}
	}
	if !c.Bool("quiet") {
		printRunResult(w, res, env.proxy)
	}
	if path := c.String("report"); path != "" {
		if err := runtime.WriteRunReport(runtime.BuildRunReport(res, env.proxy), path); err != nil {
			env.logger.Warn("report not written", map[string]any{"error": err.Error()})
		}
	}
	if res.Outcome.Succeeded() {
		fmt.Fprintln(w, "Success!")
	} else {
		fmt.Fprintln(w, "Failed.")
	}
	return cli.Exit("", runtime.ExitCode(res.Outcome))
}

func printRunResult(w io.Writer, res *runtime.RunResult, ep *types.ProxyEndpoint) {
	fmt.Fprintf(w, "run_id=%s, command=%s, outcome=%s, duration=%s\n",
		res.RunMeta.RunID,
		res.RunMeta.Command,
		res.Outcome.Status,
		res.Duration.Round(time.Millisecond),
	)
	if !res.Outcome.Succeeded() {
		if res.Outcome.Step != "" {
			fmt.Fprintf(w, "Failed step:  %s\n", res.Outcome.Step)
		}
		fmt.Fprintf(w, "Error:        %s\n", res.Outcome.Message)
	}
	for _, out := range res.Outputs {
		fmt.Fprintf(w, "Output:       %s\n", out)
	}
	m := res.Metrics
	fmt.Fprintf(w, "Metrics:      downloads=%d bytes=%d files=%d rows=%d steps_failed=%d\n",
		m.Downloads, m.BytesDownloaded, m.FilesWritten, m.RowsWritten, m.StepsFailed)
	if len(res.Archived) > 0 {
		fmt.Fprintf(w, "Archived:     %d file(s)\n", len(res.Archived))
	}
	if ep != nil {
		fmt.Fprintf(w, "Proxy:        %s\n", ep.ServerAddr())
	}
	if res.ArchiveErr != nil {
		fmt.Fprintf(w, "Warning:      archive: %v\n", res.ArchiveErr)
	}
	if res.NotifyErr != nil {
		fmt.Fprintf(w, "Warning:      notify: %v\n", res.NotifyErr)
	}
}
