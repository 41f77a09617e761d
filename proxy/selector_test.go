package proxy

import (
	"testing"

	"github.com/pithecene-io/agharvest/types"
)

func testPool(strategy types.ProxyStrategy) types.ProxyPool {
	return types.ProxyPool{
		Name:     "test",
		Strategy: strategy,
		Endpoints: []types.ProxyEndpoint{
			{Protocol: types.ProxyProtocolHTTP, Host: "p1.example.com", Port: 8080},
			{Protocol: types.ProxyProtocolHTTP, Host: "p2.example.com", Port: 8080},
			{Protocol: types.ProxyProtocolHTTP, Host: "p3.example.com", Port: 8080},
		},
	}
}

func TestSelector_RoundRobin(t *testing.T) {
	s := NewSelector()
	if _, err := s.RegisterPool(testPool(types.ProxyStrategyRoundRobin)); err != nil {
		t.Fatalf("RegisterPool failed: %v", err)
	}

	expected := []string{
		"p1.example.com",
		"p2.example.com",
		"p3.example.com",
		"p1.example.com",
	}
	for i, want := range expected {
		ep, err := s.Select(SelectRequest{Pool: "test", Commit: true})
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if ep.Host != want {
			t.Errorf("selection %d = %q, want %q", i, ep.Host, want)
		}
	}
}

func TestSelector_DryRunDoesNotAdvance(t *testing.T) {
	s := NewSelector()
	if _, err := s.RegisterPool(testPool(types.ProxyStrategyRoundRobin)); err != nil {
		t.Fatalf("RegisterPool failed: %v", err)
	}

	for range 3 {
		ep, err := s.Select(SelectRequest{Pool: "test"})
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if ep.Host != "p1.example.com" {
			t.Errorf("dry select = %q, want p1.example.com", ep.Host)
		}
	}
}

func TestSelector_Random(t *testing.T) {
	s := NewSelector()
	if _, err := s.RegisterPool(testPool(types.ProxyStrategyRandom)); err != nil {
		t.Fatalf("RegisterPool failed: %v", err)
	}

	valid := map[string]bool{"p1.example.com": true, "p2.example.com": true, "p3.example.com": true}
	for range 20 {
		ep, err := s.Select(SelectRequest{Pool: "test", Commit: true})
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if !valid[ep.Host] {
			t.Errorf("unexpected host %q", ep.Host)
		}
	}
}

func TestSelector_StrategyOverride(t *testing.T) {
	s := NewSelector()
	if _, err := s.RegisterPool(testPool(types.ProxyStrategyRandom)); err != nil {
		t.Fatalf("RegisterPool failed: %v", err)
	}

	ep, err := s.Select(SelectRequest{Pool: "test", StrategyOverride: types.ProxyStrategyRoundRobin, Commit: true})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if ep.Host != "p1.example.com" {
		t.Errorf("override select = %q, want p1.example.com", ep.Host)
	}

	if _, err := s.Select(SelectRequest{Pool: "test", StrategyOverride: "sticky"}); err == nil {
		t.Error("expected error for unknown strategy override")
	}
}

func TestSelector_UnknownPool(t *testing.T) {
	s := NewSelector()
	if _, err := s.Select(SelectRequest{Pool: "missing"}); err == nil {
		t.Error("expected error for unknown pool")
	}
}

func TestSelector_RegisterInvalidPool(t *testing.T) {
	s := NewSelector()
	pool := testPool(types.ProxyStrategyRoundRobin)
	pool.Endpoints = nil
	if _, err := s.RegisterPool(pool); err == nil {
		t.Error("expected validation error for empty pool")
	}
}

func TestResolve(t *testing.T) {
	socks := types.ProxyPool{
		Name:     "socks",
		Strategy: types.ProxyStrategyRoundRobin,
		Endpoints: []types.ProxyEndpoint{
			{Protocol: types.ProxyProtocolSOCKS5, Host: "s1", Port: 1080, Username: "u", Password: "p"},
		},
	}

	ep, warnings, err := Resolve([]types.ProxyPool{testPool(types.ProxyStrategyRoundRobin), socks}, "socks", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ep.Host != "s1" {
		t.Errorf("Resolve host = %q, want s1", ep.Host)
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", warnings)
	}

	if _, _, err := Resolve(nil, "socks", ""); err == nil {
		t.Error("expected error when pool is not configured")
	}
}
