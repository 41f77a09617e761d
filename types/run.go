// Package types defines core domain types shared across agharvest packages.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RunMeta identifies a single CLI invocation.
// Every invocation is its own run; nothing is shared across runs.
type RunMeta struct {
	// RunID is the canonical run identifier. Must be globally unique.
	RunID string
	// Command is the CLI command that started the run (giovanni, quickstats, ...).
	Command string
	// Source is the upstream system the run talks to (giovanni, nass, local).
	Source string
}

// NewRunMeta builds run metadata with a fresh random run ID.
func NewRunMeta(command, source string) *RunMeta {
	return &RunMeta{
		RunID:   NewRunID(),
		Command: command,
		Source:  source,
	}
}

// NewRunID returns a new run identifier of the form run-<uuid>.
func NewRunID() string {
	return "run-" + uuid.NewString()
}

// Validate checks that run identity fields are usable as partition keys.
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	if r.Command == "" {
		return errors.New("command must be non-empty")
	}
	for name, v := range map[string]string{"run_id": r.RunID, "command": r.Command, "source": r.Source} {
		if strings.ContainsAny(v, "/=") {
			return fmt.Errorf("%s %q must not contain '/' or '='", name, v)
		}
	}
	return nil
}

// OutcomeStatus is the final status of a run.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates every step completed.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeStepFailure indicates a portal workflow step failed.
	OutcomeStepFailure OutcomeStatus = "step_failure"
	// OutcomeDownloadFailure indicates the artifact could not be fetched.
	OutcomeDownloadFailure OutcomeStatus = "download_failure"
	// OutcomeOutputFailure indicates an output file could not be written.
	OutcomeOutputFailure OutcomeStatus = "output_failure"
	// OutcomeUsageError indicates the invocation was rejected before any work.
	OutcomeUsageError OutcomeStatus = "usage_error"
)

// RunOutcome is the final outcome of a run.
type RunOutcome struct {
	// Status is the outcome classification.
	Status OutcomeStatus
	// Message is a human-readable description.
	Message string
	// Step names the workflow step that failed, if any.
	Step string
}

// Succeeded reports whether the outcome is a success.
func (o RunOutcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}
