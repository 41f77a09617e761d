package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/agharvest/fetch"
	"github.com/pithecene-io/agharvest/portal"
	"github.com/pithecene-io/agharvest/portal/chrome"
)

// DriverFactory opens the browser behind a portal session. The session
// takes ownership of the returned driver.
type DriverFactory func(ctx context.Context) (portal.Driver, error)

// ChromeDriver launches, or attaches to, Chrome with opts.
func ChromeDriver(opts chrome.Options) DriverFactory {
	return func(ctx context.Context) (portal.Driver, error) {
		return chrome.Launch(ctx, opts)
	}
}

// GiovanniJob plots a selection on the portal, downloads the CSV artifact
// and writes the requested outputs.
type GiovanniJob struct {
	Driver      DriverFactory
	Portal      []portal.Option
	Credentials portal.Credentials
	Selection   portal.Selection
	// Download configures the artifact download; credentials, logger and
	// metrics are added by the job.
	Download []fetch.Option
	Prepare  fetch.PrepareOptions
	Outputs  fetch.Outputs
}

// Params is the selection as recorded in the run archive.
func (j *GiovanniJob) Params() map[string]string {
	sel := j.Selection
	p := map[string]string{
		"plot_type":  string(sel.PlotType),
		"start_date": sel.Start.String(),
		"end_date":   sel.End.String(),
	}
	if sel.BBox != nil {
		p["bbox"] = sel.BBox.String()
	}
	if sel.Shape != nil {
		p["shape"] = sel.Shape.String()
	}
	if sel.Variable != "" {
		p["variable"] = sel.Variable
	}
	return p
}

func (j *GiovanniJob) validate() error {
	var errs []error
	if j.Driver == nil {
		errs = append(errs, errors.New("no browser configured"))
	}
	if err := j.Credentials.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := j.Selection.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(j.Outputs.Files()) == 0 {
		errs = append(errs, errors.New("no output file requested"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return nil
}

// Run implements Job.
func (j *GiovanniJob) Run(ctx context.Context, rc *RunContext) (*JobResult, error) {
	res := &JobResult{Params: j.Params()}
	if err := j.validate(); err != nil {
		return res, err
	}

	d, err := j.Driver(ctx)
	if err != nil {
		return res, &portal.StepError{Step: portal.StepOpen, Err: err}
	}
	opts := append([]portal.Option{
		portal.WithLogger(rc.Logger.Named("portal")),
		portal.WithMetrics(rc.Collector),
	}, j.Portal...)
	s := portal.NewSession(d, opts...)
	defer func() {
		if err := s.Close(); err != nil {
			rc.Logger.Warn("browser close failed", map[string]any{"error": err.Error()})
		}
	}()

	if err := s.Open(ctx); err != nil {
		return res, err
	}
	if err := s.Login(ctx, j.Credentials); err != nil {
		return res, err
	}
	art, err := portal.NewController(s).Run(ctx, j.Selection)
	if err != nil {
		return res, err
	}
	res.ArtifactURL = art.URL
	if !art.Deleted {
		rc.Logger.Warn("plot left in workspace", map[string]any{"plot_id": art.PlotID})
	}
	if err := s.Logout(ctx); err != nil {
		rc.Logger.Warn("logout failed", map[string]any{"error": err.Error()})
	}

	creds := fetch.Credentials{Username: j.Credentials.Username, Password: j.Credentials.Password}
	dl := fetch.NewDownloader(creds, append(j.Download,
		fetch.WithLogger(rc.Logger.Named("fetch")),
		fetch.WithMetrics(rc.Collector),
	)...)
	payload, err := dl.Download(ctx, art.URL)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	outputs, err := writeOutputs(rc, payload, j.Prepare, j.Outputs)
	res.Outputs = outputs
	return res, err
}

// writeOutputs prepares payload and saves it, returning the files
// written.
func writeOutputs(rc *RunContext, payload []byte, prep fetch.PrepareOptions, out fetch.Outputs) ([]string, error) {
	table, plan, err := fetch.Prepare(payload, prep)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutput, err)
	}
	if err := fetch.Save(table, plan, out); err != nil {
		return existing(out.Files()), fmt.Errorf("%w: %w", ErrOutput, err)
	}
	rows := int64(len(table.Rows))
	if out.CSVPath != "" {
		rc.Collector.AddFileWritten(rows)
	}
	if out.ParquetPath != "" {
		rc.Collector.AddFileWritten(rows)
	}
	rc.Logger.Info("outputs written", map[string]any{
		"files": out.Files(),
		"rows":  rows,
		"skip":  plan.Skip,
	})
	return out.Files(), nil
}
