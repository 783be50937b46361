// Package registry implements the three compiled-program indices
// (NodeRegistry, MetadataRegistry, ThunkHandlerRegistry) and their overlay
// variants, grounded on the teacher's scope/symbol-table design
// (internal/semantic/symbol_table.go): a base map plus, at request time, a
// delta map consulted first.
package registry

import (
	"sync"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// Handler is the minimal shape the registry needs to store a thunk handler
// without importing the thunk package (which itself depends on evalctx,
// which depends on this package).
// Concrete handlers (internal/handlers) satisfy the richer thunk.Handler
// interface, which is a structural superset of this one.
type Handler interface {
	NodeID() ids.ID
}

// NodeLookup is the read interface every node registry (base or overlay)
// satisfies, used by packages that only need to resolve IDs to nodes.
type NodeLookup interface {
	Get(id ids.ID) (ast.Node, bool)
	Path(id ids.ID) ([]string, bool)
}

// NodeRegistry maps node IDs to nodes, with a path breadcrumb and a reverse
// index by kind (spec.md §3.1).
type NodeRegistry struct {
	mu       sync.RWMutex
	nodes    map[ids.ID]ast.Node
	paths    map[ids.ID][]string
	byKind   map[ast.Kind][]ids.ID
	order    []ids.ID
}

// NewNodeRegistry returns an empty registry.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{
		nodes:  make(map[ids.ID]ast.Node),
		paths:  make(map[ids.ID][]string),
		byKind: make(map[ast.Kind][]ids.ID),
	}
}

// Register adds node at the given declarative path breadcrumb. Returns
// DuplicateId if the node's ID is already registered (spec.md invariant 1).
func (r *NodeRegistry) Register(node ast.Node, path []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := node.ID()
	if _, exists := r.nodes[id]; exists {
		return engineerr.New(engineerr.DuplicateId, "node %s already registered", id).WithNode(id)
	}
	r.nodes[id] = node
	r.paths[id] = path
	r.byKind[node.Kind()] = append(r.byKind[node.Kind()], id)
	r.order = append(r.order, id)
	return nil
}

// Get returns the node for id.
func (r *NodeRegistry) Get(id ids.ID) (ast.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	return n, ok
}

// Path returns the declarative breadcrumb for id.
func (r *NodeRegistry) Path(id ids.ID) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.paths[id]
	return p, ok
}

// All returns every registered node, in registration order.
func (r *NodeRegistry) All() []ast.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ast.Node, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.nodes[id])
	}
	return out
}

// ByKind returns every registered node of the given kind.
func (r *NodeRegistry) ByKind(kind ast.Kind) []ast.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byKind[kind]
	out := make([]ast.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.nodes[id])
	}
	return out
}

// Len reports how many nodes are registered.
func (r *NodeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// MetadataRegistry maps (node ID, key) -> value (spec.md §3.1: isCurrentStep,
// isAncestorOfStep, fieldNodeId, ...).
type MetadataRegistry struct {
	mu   sync.RWMutex
	data map[ids.ID]map[string]any
}

// NewMetadataRegistry returns an empty metadata registry.
func NewMetadataRegistry() *MetadataRegistry {
	return &MetadataRegistry{data: make(map[ids.ID]map[string]any)}
}

// Set stores value under (id, key).
func (m *MetadataRegistry) Set(id ids.ID, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.data[id]
	if !ok {
		bucket = make(map[string]any)
		m.data[id] = bucket
	}
	bucket[key] = value
}

// Get returns the value stored under (id, key).
func (m *MetadataRegistry) Get(id ids.ID, key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket, ok := m.data[id]
	if !ok {
		return nil, false
	}
	v, ok := bucket[key]
	return v, ok
}

// GetBool is a convenience accessor defaulting to false.
func (m *MetadataRegistry) GetBool(id ids.ID, key string) bool {
	v, ok := m.Get(id, key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// All returns every key/value pair stored for id.
func (m *MetadataRegistry) All(id ids.ID) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket, ok := m.data[id]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(bucket))
	for k, v := range bucket {
		out[k] = v
	}
	return out
}

// ThunkHandlerRegistry maps node ID -> handler.
type ThunkHandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[ids.ID]Handler
}

// NewThunkHandlerRegistry returns an empty handler registry.
func NewThunkHandlerRegistry() *ThunkHandlerRegistry {
	return &ThunkHandlerRegistry{handlers: make(map[ids.ID]Handler)}
}

// Register adds a handler for id. Returns DuplicateId if one is already
// registered for that ID.
func (h *ThunkHandlerRegistry) Register(id ids.ID, handler Handler) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.handlers[id]; exists {
		return engineerr.New(engineerr.DuplicateId, "handler for %s already registered", id).WithNode(id)
	}
	h.handlers[id] = handler
	return nil
}

// Get returns the handler registered for id.
func (h *ThunkHandlerRegistry) Get(id ids.ID) (Handler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.handlers[id]
	return v, ok
}

// Len reports how many handlers are registered.
func (h *ThunkHandlerRegistry) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}
