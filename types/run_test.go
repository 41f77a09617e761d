package types

import (
	"strings"
	"testing"
)

func TestNewRunMeta(t *testing.T) {
	a := NewRunMeta("giovanni", "giovanni")
	b := NewRunMeta("giovanni", "giovanni")

	if !strings.HasPrefix(a.RunID, "run-") {
		t.Errorf("RunID = %q, want run- prefix", a.RunID)
	}
	if a.RunID == b.RunID {
		t.Errorf("expected distinct run IDs, both were %q", a.RunID)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestRunMeta_Validate(t *testing.T) {
	tests := []struct {
		name    string
		meta    RunMeta
		wantErr bool
	}{
		{"valid", RunMeta{RunID: "run-1", Command: "giovanni", Source: "giovanni"}, false},
		{"missing run id", RunMeta{Command: "giovanni"}, true},
		{"missing command", RunMeta{RunID: "run-1"}, true},
		{"slash in source", RunMeta{RunID: "run-1", Command: "x", Source: "a/b"}, true},
		{"equals in run id", RunMeta{RunID: "run=1", Command: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.meta.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunOutcome_Succeeded(t *testing.T) {
	if !(RunOutcome{Status: OutcomeSuccess}).Succeeded() {
		t.Error("success outcome should report Succeeded")
	}
	if (RunOutcome{Status: OutcomeStepFailure}).Succeeded() {
		t.Error("step failure should not report Succeeded")
	}
}
