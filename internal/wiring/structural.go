package wiring

import (
	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// AllNodes is satisfied by registry.NodeRegistry/OverlayNodeRegistry; wiring
// passes that need a full iteration (rather than single-ID lookup) require
// it in addition to the narrower NodeLookup embedded in Context.
type AllNodes interface {
	All() []ast.Node
}

// StructuralWiring emits child->parent STRUCTURAL edges for every node
// whose parentNode is itself a structural node (journey/step/block/field),
// per spec.md §4.6.
type StructuralWiring struct {
	Source AllNodes
}

func (w StructuralWiring) Wire(ctx *Context) error {
	for _, n := range w.Source.All() {
		structuralChildParent(ctx, n.ID())
	}
	return nil
}

func (StructuralWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		structuralChildParent(ctx, id)
	}
	return nil
}
