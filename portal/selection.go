package portal

import (
	"errors"
	"fmt"
	"strings"
)

// Selection is everything the wizard needs for one plot.
type Selection struct {
	PlotType PlotType
	Start    Date
	End      Date
	// Exactly one of BBox and Shape is set, or neither to keep the
	// portal's default extent.
	BBox     *BBox
	Shape    *ShapeReference
	Variable string
}

// Validate checks the selection before any UI interaction.
func (s Selection) Validate() error {
	var errs []error
	if !s.PlotType.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedPlotType, string(s.PlotType)))
	}
	if err := s.Start.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("start date: %w", err))
	}
	if err := s.End.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("end date: %w", err))
	}
	if s.End.Before(s.Start) {
		errs = append(errs, fmt.Errorf("end date %s before start date %s", s.End, s.Start))
	}
	if s.BBox != nil && s.Shape != nil {
		errs = append(errs, errors.New("bbox and shape are mutually exclusive"))
	}
	if s.BBox != nil {
		if err := s.BBox.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Shape != nil && !s.Shape.Resolved() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnresolvedShapeGroup, s.Shape.Name))
	}
	if s.Shape != nil && s.Shape.Resolved() && strings.TrimSpace(s.Shape.Name) == "" {
		errs = append(errs, fmt.Errorf("shape in group %q has no name", s.Shape.Group))
	}
	if s.Variable != "" && strings.TrimSpace(s.Variable) == "" {
		errs = append(errs, errors.New("variable keyword is blank"))
	}
	return errors.Join(errs...)
}
