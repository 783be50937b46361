package depgraph

import "github.com/cwbudde/go-formengine/internal/ids"

// Overlay layers a request-scoped delta graph over a read-only compiled
// base graph: writes (AddEdge/AddNode) go only to the delta; reads union
// both (spec.md §3.1 Overlay "DependencyGraph delta").
type Overlay struct {
	base  *Graph
	delta *Graph
}

// NewOverlay wraps base with a fresh, empty delta.
func NewOverlay(base *Graph) *Overlay {
	return &Overlay{base: base, delta: New()}
}

// AddNode registers id in the delta only.
func (o *Overlay) AddNode(id ids.ID) { o.delta.AddNode(id) }

// AddEdge inserts an edge into the delta only.
func (o *Overlay) AddEdge(from, to ids.ID, kind EdgeKind, metadata EdgeMetadata) {
	o.delta.AddEdge(from, to, kind, metadata)
}

// GetOutEdges returns the union of base and delta out-edges for id.
func (o *Overlay) GetOutEdges(id ids.ID) []Edge {
	return append(o.base.GetOutEdges(id), o.delta.GetOutEdges(id)...)
}

// GetInEdges returns the union of base and delta in-edges for id.
func (o *Overlay) GetInEdges(id ids.ID) []Edge {
	return append(o.base.GetInEdges(id), o.delta.GetInEdges(id)...)
}

// HasNode reports whether id is registered in either layer.
func (o *Overlay) HasNode(id ids.ID) bool {
	return o.base.HasNode(id) || o.delta.HasNode(id)
}

// ReachableDataFlow walks DATA_FLOW edges across both layers.
func (o *Overlay) ReachableDataFlow(id ids.ID) []ids.ID {
	visited := map[ids.ID]bool{id: true}
	var result []ids.ID
	queue := []ids.ID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range o.GetOutEdges(cur) {
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

// Delta returns the request-scoped delta graph, e.g. for wiring's
// wireNodes(ids) scoped pass to write into directly.
func (o *Overlay) Delta() *Graph { return o.delta }

// Base returns the read-only compiled base graph.
func (o *Overlay) Base() *Graph { return o.base }
