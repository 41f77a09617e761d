package portal

import (
	"errors"
	"fmt"
)

var (
	// ErrElementNotFound is returned when a required element never shows up.
	ErrElementNotFound = errors.New("element not found")
	// ErrInvalidCredentials is returned before any UI interaction when the
	// username or password is empty.
	ErrInvalidCredentials = errors.New("username and password are required")
	// ErrSubmitUnavailable is returned when the login submit control is
	// present but not displayed.
	ErrSubmitUnavailable = errors.New("login submit control is not displayed")
	// ErrUnresolvedShapeGroup is returned when a shape string names no
	// known group.
	ErrUnresolvedShapeGroup = errors.New("shape group could not be resolved")
	// ErrUnexpectedAlert is returned when a native dialog interrupts a step
	// that expects none.
	ErrUnexpectedAlert = errors.New("unexpected alert")
	// ErrArtifactNotFound is returned when the results tree never lists a
	// finished plot.
	ErrArtifactNotFound = errors.New("result artifact not found")
	// ErrYearOutOfRange is returned when the date picker does not offer the
	// requested year.
	ErrYearOutOfRange = errors.New("year not offered by date picker")
	// ErrInvalidDay is returned for calendar days that do not exist or that
	// the picker never renders.
	ErrInvalidDay = errors.New("invalid calendar day")
	// ErrUnsupportedPlotType is returned for unknown plot-type identifiers.
	ErrUnsupportedPlotType = errors.New("unsupported plot type")
	// ErrOutOfOrder is returned when a workflow step runs before its
	// predecessor has completed.
	ErrOutOfOrder = errors.New("workflow step out of order")
	// ErrAborted is returned for any step after a step has failed.
	ErrAborted = errors.New("workflow aborted by earlier failure")
	// ErrNotLoggedIn is returned when the workflow starts without an
	// authenticated session.
	ErrNotLoggedIn = errors.New("session is not logged in")
)

// StepError records which workflow step failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FailedStep extracts the failing step from err, if any.
func FailedStep(err error) (Step, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return "", false
}
