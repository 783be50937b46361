// Package depgraph implements the directed multigraph of STRUCTURAL and
// DATA_FLOW edges that wiring modules populate and the cache manager walks
// for cascading invalidation (spec.md §3.1, §4.5). Enriched beyond the
// teacher's own scope with the adjacency-list shape used by the Streamy
// example's internal/engine/dag.go, since the teacher itself has no graph
// package; no topological sort is implemented here.
package depgraph

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cwbudde/go-formengine/internal/ids"
)

// EdgeKind distinguishes structural parent/child edges from data-flow
// producer/consumer edges.
type EdgeKind string

const (
	Structural EdgeKind = "STRUCTURAL"
	DataFlow   EdgeKind = "DATA_FLOW"
)

// EdgeMetadata annotates a DATA_FLOW edge so the cache invalidator and
// debugging tools can explain why it exists (spec.md §4.6).
type EdgeMetadata struct {
	Type          string // e.g. "child-parent" for STRUCTURAL edges
	Property      string
	Index         int
	HasIndex      bool
	ReferenceType string
	BaseProperty  string
	FieldCode     string
}

// Edge is a single directed edge from From to To.
type Edge struct {
	From     ids.ID
	To       ids.ID
	Kind     EdgeKind
	Metadata EdgeMetadata
}

func (m EdgeMetadata) key() string {
	idx := ""
	if m.HasIndex {
		idx = fmt.Sprintf("%d", m.Index)
	}
	return strings.Join([]string{m.Type, m.Property, idx, m.ReferenceType, m.BaseProperty, m.FieldCode}, "\x00")
}

// Graph is a directed multigraph over node IDs.
type Graph struct {
	mu  sync.RWMutex
	out map[ids.ID][]Edge
	in  map[ids.ID][]Edge
	// seen tracks (from,to,kind,metadata-key) tuples already inserted, so
	// addEdge stays idempotent except when metadata genuinely differs
	// (spec.md §4.5 "duplicate pairs permitted only when metadata differs").
	seen  map[string]struct{}
	nodes map[ids.ID]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		out:   make(map[ids.ID][]Edge),
		in:    make(map[ids.ID][]Edge),
		seen:  make(map[string]struct{}),
		nodes: make(map[ids.ID]struct{}),
	}
}

// AddNode registers id with no edges, if not already present (idempotent).
func (g *Graph) AddNode(id ids.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[id] = struct{}{}
}

// HasNode reports whether id has been registered.
func (g *Graph) HasNode(id ids.ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// AddEdge inserts from->to. Both endpoints are auto-registered as nodes.
// A duplicate (from, to, kind) pair with identical metadata is a no-op.
func (g *Graph) AddEdge(from, to ids.ID, kind EdgeKind, metadata EdgeMetadata) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[from] = struct{}{}
	g.nodes[to] = struct{}{}
	sig := string(from) + "\x01" + string(to) + "\x01" + string(kind) + "\x01" + metadata.key()
	if _, dup := g.seen[sig]; dup {
		return
	}
	g.seen[sig] = struct{}{}
	e := Edge{From: from, To: to, Kind: kind, Metadata: metadata}
	g.out[from] = append(g.out[from], e)
	g.in[to] = append(g.in[to], e)
}

// GetOutEdges returns edges leaving id.
func (g *Graph) GetOutEdges(id ids.ID) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Edge(nil), g.out[id]...)
}

// GetInEdges returns edges entering id.
func (g *Graph) GetInEdges(id ids.ID) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Edge(nil), g.in[id]...)
}

// ReachableDataFlow returns every node reachable from id by following
// outgoing DATA_FLOW edges, not including id itself (used by cache
// cascading invalidation, spec.md §4.9).
func (g *Graph) ReachableDataFlow(id ids.ID) []ids.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	visited := map[ids.ID]bool{id: true}
	var result []ids.ID
	queue := []ids.ID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.out[cur] {
			if e.Kind != DataFlow || visited[e.To] {
				continue
			}
			visited[e.To] = true
			result = append(result, e.To)
			queue = append(queue, e.To)
		}
	}
	return result
}

// Stats summarises node/edge counts by kind, as reported by the
// `formsctl compile` command (SPEC_FULL.md §12).
type Stats struct {
	Nodes      int
	Structural int
	DataFlow   int
}

func (g *Graph) Stat() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := Stats{Nodes: len(g.nodes)}
	for _, edges := range g.out {
		for _, e := range edges {
			if e.Kind == Structural {
				s.Structural++
			} else {
				s.DataFlow++
			}
		}
	}
	return s
}

// DOT renders the graph as Graphviz dot source, for debugging wiring
// (SPEC_FULL.md §12).
func (g *Graph) DOT() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var b strings.Builder
	b.WriteString("digraph depgraph {\n")
	ordered := make([]ids.ID, 0, len(g.nodes))
	for id := range g.nodes {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	for _, id := range ordered {
		fmt.Fprintf(&b, "  %q;\n", string(id))
		for _, e := range g.out[id] {
			style := "solid"
			if e.Kind == DataFlow {
				style = "dashed"
			}
			label := e.Metadata.Property
			if label == "" {
				label = e.Metadata.Type
			}
			fmt.Fprintf(&b, "  %q -> %q [style=%s, label=%q];\n", string(e.From), string(e.To), style, label)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
