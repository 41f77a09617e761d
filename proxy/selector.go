// Package proxy selects the egress proxy shared by the browser session and
// the artifact download client.
package proxy

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/pithecene-io/agharvest/types"
)

// Selector picks endpoints from registered pools.
// Safe for concurrent use.
type Selector struct {
	mu    sync.Mutex
	pools map[string]*poolState
}

type poolState struct {
	pool    types.ProxyPool
	rrIndex int64
}

// NewSelector creates an empty selector.
func NewSelector() *Selector {
	return &Selector{pools: make(map[string]*poolState)}
}

// RegisterPool validates and registers a pool, returning its soft warnings.
func (s *Selector) RegisterPool(pool types.ProxyPool) ([]string, error) {
	if err := pool.Validate(); err != nil {
		return nil, fmt.Errorf("pool validation failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[pool.Name] = &poolState{pool: pool}

	return pool.Warnings(), nil
}

// SelectRequest describes one selection.
type SelectRequest struct {
	// Pool is the pool name to select from.
	Pool string
	// StrategyOverride replaces the pool's strategy when non-empty.
	StrategyOverride types.ProxyStrategy
	// Commit advances the round-robin counter. A dry selection leaves it alone.
	Commit bool
}

// Select returns a copy of the chosen endpoint.
func (s *Selector) Select(req SelectRequest) (*types.ProxyEndpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.pools[req.Pool]
	if !ok {
		return nil, fmt.Errorf("pool %q not found", req.Pool)
	}

	strategy := state.pool.Strategy
	if req.StrategyOverride != "" {
		strategy = req.StrategyOverride
	}

	var idx int
	switch strategy {
	case types.ProxyStrategyRoundRobin:
		idx = int(state.rrIndex % int64(len(state.pool.Endpoints)))
		if req.Commit {
			state.rrIndex++
		}
	case types.ProxyStrategyRandom:
		var err error
		if idx, err = randomIndex(len(state.pool.Endpoints)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}

	ep := state.pool.Endpoints[idx]
	return &ep, nil
}

func randomIndex(n int) (int, error) {
	if n == 1 {
		return 0, nil
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random selection failed: %w", err)
	}
	return int(v.Int64()), nil
}

// Resolve registers pools and selects one endpoint from the named pool.
// The CLI is one-shot, so rotation state never outlives a run.
func Resolve(pools []types.ProxyPool, poolName string, strategy types.ProxyStrategy) (*types.ProxyEndpoint, []string, error) {
	s := NewSelector()
	var warnings []string
	for _, pool := range pools {
		w, err := s.RegisterPool(pool)
		if err != nil {
			return nil, nil, fmt.Errorf("pool %q: %w", pool.Name, err)
		}
		warnings = append(warnings, w...)
	}

	ep, err := s.Select(SelectRequest{Pool: poolName, StrategyOverride: strategy, Commit: true})
	if err != nil {
		return nil, warnings, err
	}
	return ep, warnings, nil
}
