package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

func TestReportExit(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{
			name:     "success no message",
			err:      cli.Exit("", 0),
			wantCode: 0,
		},
		{
			name:     "run failure",
			err:      cli.Exit("", 1),
			wantCode: 1,
		},
		{
			name:     "usage error with message",
			err:      cli.Exit("--lode-path (or storage.path) is required", 2),
			wantCode: 2,
			wantOut:  "--lode-path (or storage.path) is required\n",
		},
		{
			name:     "wrapped exit coder",
			err:      errors.Join(errors.New("context"), cli.Exit("inner error", 1)),
			wantCode: 1,
			wantOut:  "inner error\n",
		},
		{
			name:     "plain error",
			err:      errors.New(`Required flag "file" not set`),
			wantCode: 2,
			wantOut:  "Error: Required flag \"file\" not set\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if code := reportExit(&buf, tt.err); code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if buf.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", buf.String(), tt.wantOut)
			}
		})
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	want := []string{"giovanni", "quickstats", "parquet", "runs", "inspect", "version"}
	if len(app.Commands) != len(want) {
		t.Fatalf("got %d commands, want %d", len(app.Commands), len(want))
	}
	for i, name := range want {
		if app.Commands[i].Name != name {
			t.Errorf("command %d = %q, want %q", i, app.Commands[i].Name, name)
		}
	}
}
