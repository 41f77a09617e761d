package portal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pithecene-io/agharvest/await"
)

type stage int

const (
	stageIdle stage = iota
	stagePlotType
	stageDates
	stageExtent
	stageVariable
	stageTriggered
	stageLocated
	stageFailed
)

func (s stage) String() string {
	switch s {
	case stageIdle:
		return "idle"
	case stagePlotType:
		return "plot type selected"
	case stageDates:
		return "dates selected"
	case stageExtent:
		return "extent selected"
	case stageVariable:
		return "variable selected"
	case stageTriggered:
		return "computation triggered"
	case stageLocated:
		return "artifact located"
	case stageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ArtifactHandle points at a finished plot's CSV download.
type ArtifactHandle struct {
	URL    string
	PlotID string
	// Deleted reports whether the plot was removed from the workspace.
	Deleted bool
}

// Controller walks the plot wizard of a logged-in Session. Steps must run
// in order: plot type, date range, optional extent, optional variable,
// trigger, artifact. The first failure aborts every later step.
type Controller struct {
	s     *Session
	stage stage
}

// NewController binds a controller to s.
func NewController(s *Session) *Controller {
	return &Controller{s: s}
}

// Run executes the whole wizard for sel and returns the located artifact.
func (c *Controller) Run(ctx context.Context, sel Selection) (ArtifactHandle, error) {
	if err := sel.Validate(); err != nil {
		return ArtifactHandle{}, fmt.Errorf("invalid selection: %w", err)
	}
	if err := c.SelectPlotType(ctx, sel.PlotType); err != nil {
		return ArtifactHandle{}, err
	}
	if err := c.SelectDateRange(ctx, sel.Start, sel.End); err != nil {
		return ArtifactHandle{}, err
	}
	switch {
	case sel.BBox != nil:
		if err := c.SelectBBox(ctx, *sel.BBox); err != nil {
			return ArtifactHandle{}, err
		}
	case sel.Shape != nil:
		if err := c.SelectShape(ctx, *sel.Shape); err != nil {
			return ArtifactHandle{}, err
		}
	}
	if sel.Variable != "" {
		if err := c.SelectVariable(ctx, sel.Variable); err != nil {
			return ArtifactHandle{}, err
		}
	}
	if err := c.TriggerComputation(ctx); err != nil {
		return ArtifactHandle{}, err
	}
	return c.LocateArtifact(ctx)
}

func (c *Controller) step(ctx context.Context, step Step, from []stage, to stage, fn func(context.Context) error) error {
	if c.stage == stageFailed {
		return &StepError{Step: step, Err: ErrAborted}
	}
	if !slices.Contains(from, c.stage) {
		return &StepError{Step: step, Err: fmt.Errorf("%w: %s after %s", ErrOutOfOrder, step, c.stage)}
	}
	if err := c.s.opts.run(ctx, step, fn); err != nil {
		c.stage = stageFailed
		return err
	}
	c.stage = to
	return nil
}

// SelectPlotType opens the plot-type picker and chooses p.
func (c *Controller) SelectPlotType(ctx context.Context, p PlotType) error {
	if !p.Valid() {
		return &StepError{Step: StepPlotType, Err: fmt.Errorf("%w: %q", ErrUnsupportedPlotType, string(p))}
	}
	return c.step(ctx, StepPlotType, []stage{stageIdle}, stagePlotType, func(ctx context.Context) error {
		if c.s.State() != AuthLoggedIn {
			return ErrNotLoggedIn
		}
		t := c.s.opts.timeouts
		if err := c.s.res.WaitInvisible(ctx, progressOverlay, t.Widget); err != nil {
			return err
		}
		picker, err := c.s.res.WaitClickable(ctx, plotTypePicker, t.Widget)
		if err != nil {
			return err
		}
		if err := c.s.driver.Click(ctx, picker); err != nil {
			return fmt.Errorf("open plot type picker: %w", err)
		}
		opt, err := c.s.res.WaitClickable(ctx, plotTypeOption(p), t.Widget)
		if err != nil {
			return err
		}
		if err := c.s.driver.Click(ctx, opt); err != nil {
			return fmt.Errorf("choose plot type %s: %w", p, err)
		}
		return nil
	})
}

// SelectDateRange sets the start and end calendars.
func (c *Controller) SelectDateRange(ctx context.Context, start, end Date) error {
	for _, d := range []Date{start, end} {
		if err := d.Validate(); err != nil {
			return &StepError{Step: StepDateRange, Err: err}
		}
	}
	return c.step(ctx, StepDateRange, []stage{stagePlotType}, stageDates, func(ctx context.Context) error {
		if err := c.picker("start").pick(ctx, start); err != nil {
			return fmt.Errorf("start date %s: %w", start, err)
		}
		if err := c.picker("end").pick(ctx, end); err != nil {
			return fmt.Errorf("end date %s: %w", end, err)
		}
		return nil
	})
}

// SelectBBox writes b into the extent field, keeping any primary part
// the field already holds.
func (c *Controller) SelectBBox(ctx context.Context, b BBox) error {
	return c.step(ctx, StepSpatialExtent, []stage{stageDates}, stageExtent, func(ctx context.Context) error {
		d := c.s.driver
		field, err := c.s.res.FindAfterWait(ctx, extentField, c.s.opts.timeouts.Widget)
		if err != nil {
			return err
		}
		current, _, err := d.Attribute(ctx, field, "value")
		if err != nil {
			return err
		}
		if current != "" {
			if err := d.Clear(ctx, field); err != nil {
				return fmt.Errorf("clear extent: %w", err)
			}
		}
		return d.SendKeys(ctx, field, CombineExtentField(current, b.String()))
	})
}

// SelectShape picks ref in the shape popup.
func (c *Controller) SelectShape(ctx context.Context, ref ShapeReference) error {
	return c.step(ctx, StepSpatialExtent, []stage{stageDates}, stageExtent, func(ctx context.Context) (err error) {
		if !ref.Resolved() {
			return fmt.Errorf("%w: %q", ErrUnresolvedShapeGroup, ref.Name)
		}
		t := c.s.opts.timeouts
		link, err := c.s.res.WaitVisible(ctx, shapePickerLink, t.Widget)
		if err != nil {
			return err
		}
		popup, err := c.s.driver.OpenPopup(ctx, link)
		if err != nil {
			return fmt.Errorf("open shape picker: %w", err)
		}
		defer func() {
			if cerr := popup.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("leave shape picker: %w", cerr))
			}
		}()
		return c.pickShape(ctx, popup, ref)
	})
}

func (c *Controller) pickShape(ctx context.Context, popup Driver, ref ShapeReference) error {
	t := c.s.opts.timeouts
	res := NewResolver(popup, c.s.res.poller)

	group, err := res.WaitVisible(ctx, shapeGroupToggle(ref.Group), t.Widget)
	if err != nil {
		return err
	}
	if err := popup.HoverClick(ctx, group); err != nil {
		return fmt.Errorf("expand group %s: %w", ref.Group, err)
	}
	opt, err := res.FindAfterWait(ctx, shapeOption(ref.Name), t.Widget)
	if err != nil {
		return err
	}
	if !popup.AutoScrollsOverlays() {
		if err := popup.ScrollIntoView(ctx, opt); err != nil {
			return fmt.Errorf("scroll to shape: %w", err)
		}
	}
	if err := popup.HoverClick(ctx, opt); err != nil {
		return fmt.Errorf("choose shape %s: %w", ref.Name, err)
	}
	closeLink, err := res.WaitVisible(ctx, popupClose, t.Widget)
	if err != nil {
		return err
	}
	return popup.Click(ctx, closeLink)
}

// SelectVariable searches for keyword and selects the first result.
func (c *Controller) SelectVariable(ctx context.Context, keyword string) error {
	return c.step(ctx, StepVariable, []stage{stageDates, stageExtent}, stageVariable, func(ctx context.Context) error {
		t := c.s.opts.timeouts
		d := c.s.driver
		input, err := c.s.res.FindAfterWait(ctx, variableSearch, t.Widget)
		if err != nil {
			return err
		}
		if err := d.SendKeys(ctx, input, keyword); err != nil {
			return fmt.Errorf("type variable keyword: %w", err)
		}
		search, err := c.s.res.FindAfterWait(ctx, variableSearchButton, t.Widget)
		if err != nil {
			return err
		}
		if err := d.Click(ctx, search); err != nil {
			return fmt.Errorf("search variables: %w", err)
		}

		header, err := c.s.res.FindAfterWait(ctx, variableSortHeader, t.SearchResults)
		if err != nil {
			return err
		}
		title, _, err := d.Attribute(ctx, header, "title")
		if err != nil {
			return err
		}
		if title == sortAscendingTitle {
			if err := d.Click(ctx, header); err != nil {
				return fmt.Errorf("sort variables: %w", err)
			}
		}

		box, err := c.s.res.WaitVisible(ctx, variableCheckbox.Nth(1), t.SearchResults)
		if await.IsTimeout(err) {
			return fmt.Errorf("%w: no variable matches %q", ErrElementNotFound, keyword)
		}
		if err != nil {
			return err
		}
		return d.Click(ctx, box)
	})
}

// TriggerComputation starts the plot. Any dialog raised by the portal in
// response is a failure.
func (c *Controller) TriggerComputation(ctx context.Context) error {
	from := []stage{stageDates, stageExtent, stageVariable}
	return c.step(ctx, StepTrigger, from, stageTriggered, func(ctx context.Context) error {
		t := c.s.opts.timeouts
		btn, err := c.s.res.FindAfterWait(ctx, plotButton, t.PlotButton)
		if err != nil {
			return err
		}
		if err := c.s.driver.HoverClick(ctx, btn); err != nil {
			return fmt.Errorf("click plot: %w", err)
		}
		text, err := c.s.res.WaitAlert(ctx, t.Alert)
		if errors.Is(err, await.ErrTimeout) {
			return nil
		}
		if err != nil {
			return err
		}
		c.s.opts.metrics.IncAlert(false)
		if aerr := c.s.driver.AcceptAlert(ctx); aerr != nil {
			c.s.opts.logger.Warn("accept plot alert failed", map[string]any{"error": aerr.Error()})
		}
		return fmt.Errorf("%w: %q", ErrUnexpectedAlert, text)
	})
}

// LocateArtifact waits for the computation to finish, reads the CSV link
// of the newest result and deletes the plot from the workspace. A failed
// delete is logged and reported through ArtifactHandle.Deleted.
func (c *Controller) LocateArtifact(ctx context.Context) (ArtifactHandle, error) {
	var art ArtifactHandle
	err := c.step(ctx, StepLocateArtifact, []stage{stageTriggered}, stageLocated, func(ctx context.Context) error {
		var err error
		art, err = c.locate(ctx)
		return err
	})
	return art, err
}

func (c *Controller) locate(ctx context.Context) (ArtifactHandle, error) {
	t := c.s.opts.timeouts
	d := c.s.driver
	res := c.s.res

	if err := res.WaitInvisible(ctx, progressOverlay, t.Computation); err != nil {
		return ArtifactHandle{}, err
	}
	if err := res.WaitInvisible(ctx, progressBar, t.ProgressBar); err != nil {
		return ArtifactHandle{}, err
	}
	expand, err := res.FindAfterWait(ctx, workspaceExpand, t.Results)
	if err != nil {
		return ArtifactHandle{}, err
	}
	if err := d.HoverClick(ctx, expand); err != nil {
		return ArtifactHandle{}, fmt.Errorf("expand workspace: %w", err)
	}
	node, err := res.FindAfterWait(ctx, resultNode, t.Computation)
	if err != nil {
		if await.IsTimeout(err) {
			return ArtifactHandle{}, fmt.Errorf("%w: %w", ErrArtifactNotFound, err)
		}
		return ArtifactHandle{}, err
	}
	plotID, _, err := d.Attribute(ctx, node, "id")
	if err != nil {
		return ArtifactHandle{}, err
	}

	downloads, err := res.WaitVisible(ctx, downloadsToggle, t.Results)
	if err != nil {
		return ArtifactHandle{}, err
	}
	if err := d.HoverClick(ctx, downloads); err != nil {
		return ArtifactHandle{}, fmt.Errorf("open downloads: %w", err)
	}
	link, err := res.WaitVisible(ctx, csvLink, t.Results)
	if err != nil {
		return ArtifactHandle{}, err
	}
	href, _, err := d.Attribute(ctx, link, "href")
	if err != nil {
		return ArtifactHandle{}, err
	}
	c.s.opts.logger.Info("artifact located", map[string]any{"plot_id": plotID, "url": href})

	art := ArtifactHandle{URL: href, PlotID: plotID}
	art.Deleted = c.deletePlot(ctx)
	if href == "" {
		return art, fmt.Errorf("%w: CSV link has no target", ErrArtifactNotFound)
	}
	c.s.opts.metrics.IncArtifactLocated()
	return art, nil
}

func (c *Controller) deletePlot(ctx context.Context) bool {
	d := c.s.driver
	logger := c.s.opts.logger

	h, ok, err := c.s.res.Find(ctx, deletePlot)
	if err != nil || !ok {
		logger.Warn("plot delete control missing", map[string]any{"error": fmt.Sprint(err)})
		return false
	}
	if err := d.HoverClick(ctx, h); err != nil {
		logger.Warn("plot delete click failed", map[string]any{"error": err.Error()})
		return false
	}
	text, err := c.s.res.WaitAlert(ctx, c.s.opts.timeouts.Alert)
	if err != nil {
		logger.Warn("plot delete confirmation missing", map[string]any{"error": err.Error()})
		return false
	}
	if !strings.Contains(text, deleteConfirmText) {
		c.s.opts.metrics.IncAlert(false)
		logger.Warn("unexpected delete confirmation", map[string]any{"text": text})
		if err := d.DismissAlert(ctx); err != nil {
			logger.Warn("dismiss alert failed", map[string]any{"error": err.Error()})
		}
		return false
	}
	c.s.opts.metrics.IncAlert(true)
	if err := d.AcceptAlert(ctx); err != nil {
		logger.Warn("confirm plot delete failed", map[string]any{"error": err.Error()})
		return false
	}
	c.s.opts.metrics.IncArtifactDeleted()
	return true
}
