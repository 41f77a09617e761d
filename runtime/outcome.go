package runtime

import (
	"errors"

	"github.com/pithecene-io/agharvest/fetch"
	"github.com/pithecene-io/agharvest/portal"
	"github.com/pithecene-io/agharvest/quickstats"
	"github.com/pithecene-io/agharvest/types"
)

// Process exit codes. ExitCodeUsage is reserved for invocations rejected
// while parsing flags; a run that started always ends in 0 or 1.
const (
	ExitCodeSuccess = 0
	ExitCodeFailure = 1
	ExitCodeUsage   = 2
)

// Failure classes a job attaches to its errors with %w.
var (
	// ErrUsage marks input rejected before any work started.
	ErrUsage = errors.New("invalid input")
	// ErrDownload marks a failed artifact or API fetch.
	ErrDownload = errors.New("download failed")
	// ErrOutput marks a failed output write.
	ErrOutput = errors.New("output failed")
)

// DetermineOutcome classifies a job error. Portal step errors carry their
// step; unclassified errors count as output failures since every other
// phase wraps its own.
func DetermineOutcome(err error) types.RunOutcome {
	if err == nil {
		return types.RunOutcome{Status: types.OutcomeSuccess, Message: "run completed successfully"}
	}
	out := types.RunOutcome{Message: err.Error()}

	var (
		statusErr *fetch.StatusError
		apiErr    *quickstats.APIError
	)
	switch step, isStep := portal.FailedStep(err); {
	case errors.Is(err, ErrUsage):
		out.Status = types.OutcomeUsageError
	case isStep:
		out.Status = types.OutcomeStepFailure
		out.Step = string(step)
	case errors.Is(err, ErrDownload), errors.As(err, &statusErr), errors.As(err, &apiErr):
		out.Status = types.OutcomeDownloadFailure
	default:
		out.Status = types.OutcomeOutputFailure
	}
	return out
}

// ExitCode maps an outcome to the process exit code.
func ExitCode(o types.RunOutcome) int {
	if o.Succeeded() {
		return ExitCodeSuccess
	}
	return ExitCodeFailure
}
