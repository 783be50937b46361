package registry

import (
	"sync"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// OverlayNodeRegistry layers a request-scoped delta map over a read-only
// base NodeRegistry: lookups check the delta first, writes go only to the
// delta, iteration produces the union (spec.md §3.1 Overlay).
type OverlayNodeRegistry struct {
	base  *NodeRegistry
	mu    sync.RWMutex
	delta map[ids.ID]ast.Node
	paths map[ids.ID][]string
	order []ids.ID
}

// NewOverlayNodeRegistry wraps base with an empty delta.
func NewOverlayNodeRegistry(base *NodeRegistry) *OverlayNodeRegistry {
	return &OverlayNodeRegistry{
		base:  base,
		delta: make(map[ids.ID]ast.Node),
		paths: make(map[ids.ID][]string),
	}
}

// Register adds a runtime node to the delta. It is an error for a runtime
// node to reuse a compile-time ID or to collide with an existing delta ID.
func (o *OverlayNodeRegistry) Register(node ast.Node, path []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := node.ID()
	if cat := id.Category(); !cat.IsRuntime() {
		return engineerr.New(engineerr.Invalid, "overlay node %s must use a runtime ID category", id).WithNode(id)
	}
	if _, exists := o.delta[id]; exists {
		return engineerr.New(engineerr.DuplicateId, "runtime node %s already registered", id).WithNode(id)
	}
	if o.base != nil {
		if _, exists := o.base.Get(id); exists {
			return engineerr.New(engineerr.DuplicateId, "runtime node %s collides with a compiled node", id).WithNode(id)
		}
	}
	o.delta[id] = node
	o.paths[id] = path
	o.order = append(o.order, id)
	return nil
}

// Get checks the delta first, then the base.
func (o *OverlayNodeRegistry) Get(id ids.ID) (ast.Node, bool) {
	o.mu.RLock()
	n, ok := o.delta[id]
	o.mu.RUnlock()
	if ok {
		return n, true
	}
	if o.base != nil {
		return o.base.Get(id)
	}
	return nil, false
}

// Path checks the delta first, then the base.
func (o *OverlayNodeRegistry) Path(id ids.ID) ([]string, bool) {
	o.mu.RLock()
	p, ok := o.paths[id]
	o.mu.RUnlock()
	if ok {
		return p, true
	}
	if o.base != nil {
		return o.base.Path(id)
	}
	return nil, false
}

// All returns the union of base and delta nodes, base first.
func (o *OverlayNodeRegistry) All() []ast.Node {
	var out []ast.Node
	if o.base != nil {
		out = append(out, o.base.All()...)
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, id := range o.order {
		out = append(out, o.delta[id])
	}
	return out
}

// RuntimeNodes returns only the delta-registered nodes, in registration
// order — used by wiring's wireNodes(ids) scoped pass.
func (o *OverlayNodeRegistry) RuntimeNodes() []ast.Node {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]ast.Node, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.delta[id])
	}
	return out
}

// OverlayMetadataRegistry layers a delta over a base MetadataRegistry.
type OverlayMetadataRegistry struct {
	base  *MetadataRegistry
	mu    sync.RWMutex
	delta map[ids.ID]map[string]any
}

// NewOverlayMetadataRegistry wraps base with an empty delta.
func NewOverlayMetadataRegistry(base *MetadataRegistry) *OverlayMetadataRegistry {
	return &OverlayMetadataRegistry{base: base, delta: make(map[ids.ID]map[string]any)}
}

// Set writes to the delta, leaving base untouched.
func (o *OverlayMetadataRegistry) Set(id ids.ID, key string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	bucket, ok := o.delta[id]
	if !ok {
		bucket = make(map[string]any)
		o.delta[id] = bucket
	}
	bucket[key] = value
}

// Get checks the delta first, then the base.
func (o *OverlayMetadataRegistry) Get(id ids.ID, key string) (any, bool) {
	o.mu.RLock()
	bucket, ok := o.delta[id]
	if ok {
		if v, ok := bucket[key]; ok {
			o.mu.RUnlock()
			return v, true
		}
	}
	o.mu.RUnlock()
	if o.base != nil {
		return o.base.Get(id, key)
	}
	return nil, false
}

// GetBool is a convenience accessor defaulting to false.
func (o *OverlayMetadataRegistry) GetBool(id ids.ID, key string) bool {
	v, ok := o.Get(id, key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// OverlayThunkHandlerRegistry layers a delta over a base handler registry.
type OverlayThunkHandlerRegistry struct {
	base  *ThunkHandlerRegistry
	mu    sync.RWMutex
	delta map[ids.ID]Handler
}

// NewOverlayThunkHandlerRegistry wraps base with an empty delta.
func NewOverlayThunkHandlerRegistry(base *ThunkHandlerRegistry) *OverlayThunkHandlerRegistry {
	return &OverlayThunkHandlerRegistry{base: base, delta: make(map[ids.ID]Handler)}
}

// Register adds a handler to the delta only.
func (o *OverlayThunkHandlerRegistry) Register(id ids.ID, handler Handler) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.delta[id]; exists {
		return engineerr.New(engineerr.DuplicateId, "handler for %s already registered", id).WithNode(id)
	}
	o.delta[id] = handler
	return nil
}

// Get checks the delta first, then the base.
func (o *OverlayThunkHandlerRegistry) Get(id ids.ID) (Handler, bool) {
	o.mu.RLock()
	h, ok := o.delta[id]
	o.mu.RUnlock()
	if ok {
		return h, true
	}
	if o.base != nil {
		return o.base.Get(id)
	}
	return nil, false
}
