package portal_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/pithecene-io/agharvest/await"
	"github.com/pithecene-io/agharvest/metrics"
	"github.com/pithecene-io/agharvest/portal"
	"github.com/pithecene-io/agharvest/portal/portaltest"
)

func fastTimeouts() portal.Timeouts {
	d := 40 * time.Millisecond
	return portal.Timeouts{
		Alert: d, Overlay: d, LoginForm: d, LoginSubmit: d, Logout: d, Widget: d,
		Calendar: d, SearchResults: d, PlotButton: d, Computation: d, ProgressBar: d, Results: d,
	}
}

func newSession(t *testing.T, cfg portaltest.Config, opts ...portal.Option) (*portal.Session, *portaltest.Portal) {
	t.Helper()
	sim := portaltest.New(cfg)
	base := []portal.Option{
		portal.WithTimeouts(fastTimeouts()),
		portal.WithPoller(await.Poller{Interval: time.Millisecond}),
	}
	s := portal.NewSession(sim, append(base, opts...)...)
	t.Cleanup(func() { _ = s.Close() })
	return s, sim
}

var creds = portal.Credentials{Username: "alice", Password: "s3cret"}

func TestLogin(t *testing.T) {
	cfg := portaltest.DefaultConfig()
	cfg.OverlayChecks = 3
	s, sim := newSession(t, cfg)

	if err := s.Login(t.Context(), creds); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.State() != portal.AuthLoggedIn {
		t.Fatalf("State() = %s, want logged_in", s.State())
	}
	if sim.StaySignedIn() {
		t.Fatal("stay signed in left selected")
	}
	if !slices.Equal(sim.Events(), []string{"login alice"}) {
		t.Fatalf("events = %v", sim.Events())
	}
}

func TestLoginKeepsUnselectedStaySignedIn(t *testing.T) {
	cfg := portaltest.DefaultConfig()
	cfg.StaySignedIn = false
	s, sim := newSession(t, cfg)

	if err := s.Login(t.Context(), creds); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if slices.Contains(sim.Calls(), "click id=stay_in") {
		t.Fatal("clicked an unselected stay-signed-in box")
	}
}

func TestLoginIsIdempotent(t *testing.T) {
	cfg := portaltest.DefaultConfig()
	cfg.LoggedIn = true
	s, sim := newSession(t, cfg)

	for i := range 2 {
		if err := s.Login(t.Context(), creds); err != nil {
			t.Fatalf("Login #%d: %v", i+1, err)
		}
	}
	want := []string{"logout", "login alice", "logout", "login alice"}
	if !slices.Equal(sim.Events(), want) {
		t.Fatalf("events = %v, want %v", sim.Events(), want)
	}
	if s.State() != portal.AuthLoggedIn {
		t.Fatalf("State() = %s", s.State())
	}
}

func TestLoginRejectsEmptyCredentialsWithoutUI(t *testing.T) {
	cfg := portaltest.DefaultConfig()
	cfg.LoggedIn = true
	s, sim := newSession(t, cfg)

	for _, c := range []portal.Credentials{{Username: "alice"}, {Password: "x"}, {}} {
		err := s.Login(t.Context(), c)
		if !errors.Is(err, portal.ErrInvalidCredentials) {
			t.Fatalf("Login(%+v) error = %v, want ErrInvalidCredentials", c, err)
		}
		if step, ok := portal.FailedStep(err); !ok || step != portal.StepLogin {
			t.Fatalf("FailedStep = %q, %v", step, ok)
		}
	}
	if calls := sim.Calls(); len(calls) != 0 {
		t.Fatalf("UI touched: %v", calls)
	}
	if !sim.LoggedIn() {
		t.Fatal("existing session was logged out")
	}
}

func TestLoginSubmitUnavailable(t *testing.T) {
	cfg := portaltest.DefaultConfig()
	cfg.HideSubmit = true
	s, _ := newSession(t, cfg)

	err := s.Login(t.Context(), creds)
	if !errors.Is(err, portal.ErrSubmitUnavailable) {
		t.Fatalf("error = %v, want ErrSubmitUnavailable", err)
	}
	if s.State() != portal.AuthLoggedOut {
		t.Fatalf("State() = %s, want logged_out", s.State())
	}
}

func TestLoginWrongPasswordTimesOut(t *testing.T) {
	cfg := portaltest.DefaultConfig()
	cfg.Username, cfg.Password = "alice", "other"
	s, _ := newSession(t, cfg)

	err := s.Login(t.Context(), creds)
	if !await.IsTimeout(err) {
		t.Fatalf("error = %v, want timeout", err)
	}
}

func TestLoginAlerts(t *testing.T) {
	tests := []struct {
		name           string
		alert          string
		wantAccepted   int64
		wantUnexpected int64
	}{
		{"expected greeting", "Welcome to Giovanni, alice", 1, 0},
		{"unexpected text", "Scheduled maintenance tonight", 0, 1},
		{"no alert", "", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := portaltest.DefaultConfig()
			cfg.LoginAlert = tt.alert
			m := metrics.NewCollector("giovanni", "sim", "", "run-1")
			s, _ := newSession(t, cfg, portal.WithMetrics(m))

			if err := s.Login(t.Context(), creds); err != nil {
				t.Fatalf("Login: %v", err)
			}
			snap := m.Snapshot()
			if snap.AlertsAccepted != tt.wantAccepted || snap.AlertsUnexpected != tt.wantUnexpected {
				t.Fatalf("alerts accepted=%d unexpected=%d, want %d/%d",
					snap.AlertsAccepted, snap.AlertsUnexpected, tt.wantAccepted, tt.wantUnexpected)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	cfg := portaltest.DefaultConfig()
	cfg.LoggedIn = true
	s, sim := newSession(t, cfg)

	if err := s.Logout(t.Context()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if sim.LoggedIn() || s.State() != portal.AuthLoggedOut {
		t.Fatal("still logged in")
	}
	if err := s.Logout(t.Context()); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

func TestSessionCloseOnce(t *testing.T) {
	s, sim := newSession(t, portaltest.DefaultConfig())
	for range 3 {
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if n := sim.CloseCalls(); n != 1 {
		t.Fatalf("driver closed %d times, want 1", n)
	}
}
