// Package overlay implements the per-request RuntimeOverlay: cloned-on-top
// registries, a graph delta, and a runtime node generator, so handlers
// (notably IterateHandler) can extend the compiled program for the
// duration of one request without ever mutating it (spec.md §3.1 Overlay,
// C11, invariant 6 "overlay purity").
package overlay

import (
	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/cache"
	"github.com/cwbudde/go-formengine/internal/depgraph"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/registry"
)

// WireFunc wires newly registered runtime nodes into the overlay graph —
// bound by the compiler to the wiring package's scoped wireNodes(ids) entry
// points (spec.md §4.6 "wireNodes(ids) scoped pass").
type WireFunc func(o *Overlay, newIDs []ids.ID) error

// Overlay bundles the request-scoped extension of every compiled-program
// index (spec.md §3.1). It is owned exclusively by one evaluator.
type Overlay struct {
	Nodes    *registry.OverlayNodeRegistry
	Metadata *registry.OverlayMetadataRegistry
	Handlers *registry.OverlayThunkHandlerRegistry
	Graph    *depgraph.Overlay
	Cache    *cache.Manager
	Gen      *ids.Generator

	wire WireFunc
}

// New builds a fresh overlay over the given compiled-program base indices,
// with its own fresh Generator for the runtime nodes it mints.
func New(baseNodes *registry.NodeRegistry, baseMetadata *registry.MetadataRegistry, baseHandlers *registry.ThunkHandlerRegistry, baseGraph *depgraph.Graph, wire WireFunc) *Overlay {
	graphOverlay := depgraph.NewOverlay(baseGraph)
	o := &Overlay{
		Nodes:    registry.NewOverlayNodeRegistry(baseNodes),
		Metadata: registry.NewOverlayMetadataRegistry(baseMetadata),
		Handlers: registry.NewOverlayThunkHandlerRegistry(baseHandlers),
		Graph:    graphOverlay,
		Gen:      ids.NewGenerator(),
		wire:     wire,
	}
	o.Cache = cache.New(graphOverlay)
	return o
}

// RegisterRuntimeNodesBatch registers nodes (with their breadcrumb paths and
// handlers) into the overlay's delta registries, wires them via the bound
// WireFunc, and bumps the cache version of every node whose in-edges
// changed as a result — restoring consistency for invokeWithRetry
// (spec.md §4.7.2 IterateHandler, §5 "Runtime-node expansion discipline").
func (o *Overlay) RegisterRuntimeNodesBatch(nodes []ast.Node, paths [][]string, handlers map[ids.ID]registry.Handler) error {
	if len(nodes) != len(paths) {
		return engineerr.New(engineerr.Invalid, "nodes/paths length mismatch registering runtime batch")
	}
	newIDs := make([]ids.ID, 0, len(nodes))
	for i, n := range nodes {
		if err := o.Nodes.Register(n, paths[i]); err != nil {
			return err
		}
		newIDs = append(newIDs, n.ID())
	}
	for id, h := range handlers {
		if err := o.Handlers.Register(id, h); err != nil {
			return err
		}
	}
	if o.wire != nil {
		if err := o.wire(o, newIDs); err != nil {
			return err
		}
	}
	// Any node the new batch now feeds into (via DATA_FLOW) may have been
	// memoized already; invalidate it so invokeWithRetry recomputes it.
	seen := map[ids.ID]bool{}
	for _, id := range newIDs {
		for _, e := range o.Graph.GetOutEdges(id) {
			if e.Kind != depgraph.DataFlow || seen[e.To] {
				continue
			}
			seen[e.To] = true
			o.Cache.InvalidateCascading(e.To)
		}
	}
	return nil
}
