package portal

import (
	"context"

	"github.com/pithecene-io/agharvest/await"
	"github.com/pithecene-io/agharvest/log"
	"github.com/pithecene-io/agharvest/metrics"
)

// Step names a unit of the workflow in errors, logs and metrics.
type Step string

const (
	StepOpen           Step = "open"
	StepLogin          Step = "login"
	StepLogout         Step = "logout"
	StepPlotType       Step = "select_plot_type"
	StepDateRange      Step = "select_date_range"
	StepSpatialExtent  Step = "select_spatial_extent"
	StepVariable       Step = "select_variable"
	StepTrigger        Step = "trigger_computation"
	StepLocateArtifact Step = "locate_artifact"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	portalURL string
	timeouts  Timeouts
	logger    *log.Logger
	metrics   *metrics.Collector
	poller    await.Poller
}

func defaultOptions() options {
	return options{
		portalURL: DefaultPortalURL,
		timeouts:  DefaultTimeouts(),
		logger:    log.NewNop(),
	}
}

// WithPortalURL overrides the portal landing page.
func WithPortalURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.portalURL = url
		}
	}
}

// WithTimeouts sets wait bounds. Zero fields keep their defaults.
func WithTimeouts(t Timeouts) Option {
	return func(o *options) { o.timeouts = t.WithDefaults() }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records step and wait counters into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithPoller sets the poll interval used by every wait.
func WithPoller(p await.Poller) Option {
	return func(o *options) { o.poller = p }
}

func (o *options) resolvedPoller() await.Poller {
	p := o.poller
	next := p.OnDone
	m := o.metrics
	p.OnDone = func(what string, timedOut bool) {
		m.IncWait(timedOut)
		if next != nil {
			next(what, timedOut)
		}
	}
	return p
}

// run executes fn as step, wrapping its error in a *StepError.
func (o *options) run(ctx context.Context, step Step, fn func(context.Context) error) error {
	o.metrics.IncStepStarted()
	o.logger.Debug("step started", map[string]any{"step": string(step)})
	if err := fn(ctx); err != nil {
		o.metrics.IncStepFailed(string(step))
		o.logger.Error("step failed", map[string]any{
			"step":  string(step),
			"error": err.Error(),
		})
		return &StepError{Step: step, Err: err}
	}
	o.metrics.IncStepCompleted()
	o.logger.Debug("step completed", map[string]any{"step": string(step)})
	return nil
}
