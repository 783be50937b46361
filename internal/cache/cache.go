// Package cache implements the memoization store the evaluator consults
// before invoking a handler, with per-node version counters and DATA_FLOW
// cascading invalidation (spec.md §4.9), grounded on the sync.RWMutex-
// protected status cache in the Streamy example (internal/registry/cache.go).
package cache

import (
	"sync"

	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/thunk"
)

// DataFlowGraph is the read interface the cache needs for cascading
// invalidation; both depgraph.Graph (compile time) and depgraph.Overlay
// (request time) satisfy it.
type DataFlowGraph interface {
	ReachableDataFlow(id ids.ID) []ids.ID
}

// Manager is a per-request (or, for the instrumentation hooks, per-evaluator)
// memoization store. It is owned exclusively by one evaluator and is never
// shared across requests (spec.md §5 "Shared resource policy").
type Manager struct {
	mu       sync.Mutex
	results  map[ids.ID]thunk.Result
	versions map[ids.ID]int
	graph    DataFlowGraph
}

// New returns an empty cache backed by graph for cascading invalidation.
func New(graph DataFlowGraph) *Manager {
	return &Manager{
		results:  make(map[ids.ID]thunk.Result),
		versions: make(map[ids.ID]int),
		graph:    graph,
	}
}

// Get returns the memoized result for id, if any.
func (m *Manager) Get(id ids.ID) (thunk.Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[id]
	return r, ok
}

// Set memoizes result for id.
func (m *Manager) Set(id ids.ID, result thunk.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[id] = result
}

// Delete removes any memoized result for id without touching its version.
func (m *Manager) Delete(id ids.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.results, id)
}

// GetVersion returns id's current version counter (0 if never bumped).
func (m *Manager) GetVersion(id ids.ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[id]
}

// bumpLocked increments id's version and drops its memoized result. Caller
// must hold m.mu.
func (m *Manager) bumpLocked(id ids.ID) {
	m.versions[id]++
	delete(m.results, id)
}

// InvalidateCascading bumps id's version and, transitively, the version of
// every node reachable from id via outgoing DATA_FLOW edges, removing their
// memoized results (spec.md §4.9, invariant 5).
func (m *Manager) InvalidateCascading(id ids.ID) []ids.ID {
	affected := append([]ids.ID{id}, m.graph.ReachableDataFlow(id)...)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range affected {
		m.bumpLocked(a)
	}
	return affected
}
