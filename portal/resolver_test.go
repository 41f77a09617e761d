package portal_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/agharvest/await"
	"github.com/pithecene-io/agharvest/portal"
	"github.com/pithecene-io/agharvest/portal/portaltest"
)

func TestWaitAllPresentNamesLocators(t *testing.T) {
	res := portal.NewResolver(portaltest.New(portaltest.DefaultConfig()), await.Poller{Interval: time.Millisecond})
	user, pass := portal.ByID("username"), portal.ByID("password")

	_, err := res.WaitAllPresent(t.Context(), 5*time.Millisecond, user, pass)

	var te *await.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("WaitAllPresent() = %v, want *await.TimeoutError", err)
	}
	for _, loc := range []portal.Locator{user, pass} {
		if !strings.Contains(te.What, loc.String()) {
			t.Errorf("What = %q, missing %s", te.What, loc)
		}
	}
	if strings.Contains(te.What, "login") {
		t.Errorf("What = %q names a fixed form", te.What)
	}
}

func TestWaitAllPresentFindsEvery(t *testing.T) {
	cfg := portaltest.DefaultConfig()
	cfg.LoggedIn = true
	res := portal.NewResolver(portaltest.New(cfg), await.Poller{Interval: time.Millisecond})

	hs, err := res.WaitAllPresent(t.Context(), 5*time.Millisecond, portal.ByID("logoutLink"), portal.ByID("loginButton"))
	if err != nil {
		t.Fatalf("WaitAllPresent: %v", err)
	}
	if len(hs) != 2 || hs[0] == "" || hs[1] == "" {
		t.Fatalf("handles = %v", hs)
	}
}
