package portal

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pithecene-io/agharvest/await"
)

type pickerStage int

const (
	pickerClosed pickerStage = iota
	pickerOpen
	pickerYearSet
	pickerMonthSet
)

// datePicker drives one calendar widget. Year and month must be set
// before a day can be chosen; choosing the day closes the widget.
type datePicker struct {
	c      *Controller
	prefix string
	stage  pickerStage
}

func (c *Controller) picker(prefix string) *datePicker {
	return &datePicker{c: c, prefix: prefix}
}

func (p *datePicker) pick(ctx context.Context, d Date) error {
	if err := p.open(ctx); err != nil {
		return err
	}
	if err := p.setYear(ctx, d.Year); err != nil {
		return err
	}
	if err := p.setMonth(ctx, d); err != nil {
		return err
	}
	return p.setDay(ctx, d.Day)
}

func (p *datePicker) require(want pickerStage, action string) error {
	if p.stage != want {
		return fmt.Errorf("%w: %s calendar cannot %s yet", ErrOutOfOrder, p.prefix, action)
	}
	return nil
}

func (p *datePicker) open(ctx context.Context) error {
	if err := p.require(pickerClosed, "open"); err != nil {
		return err
	}
	s := p.c.s
	t := s.opts.timeouts
	trigger, err := s.res.WaitClickable(ctx, calendarTrigger(p.prefix), t.Widget)
	if err != nil {
		return err
	}
	if err := s.driver.HoverClick(ctx, trigger); err != nil {
		return fmt.Errorf("open %s calendar: %w", p.prefix, err)
	}
	if _, err := s.res.FindAfterWait(ctx, calendarContainer(p.prefix), t.Calendar); err != nil {
		return err
	}
	p.stage = pickerOpen
	return nil
}

func (p *datePicker) setYear(ctx context.Context, year int) error {
	if err := p.require(pickerOpen, "set year"); err != nil {
		return err
	}
	s := p.c.s
	sel, err := s.res.FindAfterWait(ctx, yearSelect(p.prefix), s.opts.timeouts.Widget)
	if err != nil {
		return err
	}
	ok, err := s.driver.SelectByText(ctx, sel, strconv.Itoa(year))
	if err != nil {
		return fmt.Errorf("select year %d: %w", year, err)
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrYearOutOfRange, year)
	}
	p.stage = pickerYearSet
	return nil
}

func (p *datePicker) setMonth(ctx context.Context, d Date) error {
	if err := p.require(pickerYearSet, "set month"); err != nil {
		return err
	}
	s := p.c.s
	sel, err := s.res.FindAfterWait(ctx, monthSelect(p.prefix), s.opts.timeouts.Widget)
	if err != nil {
		return err
	}
	ok, err := s.driver.SelectByValue(ctx, sel, d.MonthValue())
	if err != nil {
		return fmt.Errorf("select month %s: %w", d.MonthValue(), err)
	}
	if !ok {
		return fmt.Errorf("%w: month %s not offered", ErrElementNotFound, d.MonthValue())
	}
	p.stage = pickerMonthSet
	return nil
}

func (p *datePicker) setDay(ctx context.Context, day int) error {
	if err := p.require(pickerMonthSet, "set day"); err != nil {
		return err
	}
	s := p.c.s
	if _, err := s.res.FindAfterWait(ctx, dayCell(p.prefix, day), s.opts.timeouts.Widget); err != nil {
		if await.IsTimeout(err) {
			return fmt.Errorf("%w: day %d: %w", ErrInvalidDay, day, err)
		}
		return err
	}
	link, ok, err := s.res.Find(ctx, dayLink(p.prefix, day))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: day %d has no link", ErrInvalidDay, day)
	}
	if err := s.driver.HoverClick(ctx, link); err != nil {
		return fmt.Errorf("choose day %d: %w", day, err)
	}
	p.stage = pickerClosed
	return nil
}
