// Package wiring implements the per-node-family dependency-graph wiring
// modules (spec.md §4.6): each module contributes STRUCTURAL or DATA_FLOW
// edges for one family of AST/pseudo-nodes, and can be re-run scoped to a
// set of freshly introduced runtime node IDs (wireNodes) when the overlay
// grows during evaluation.
package wiring

import (
	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/depgraph"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/registry"
)

// GraphWriter is the subset of depgraph.Graph/depgraph.Overlay wiring needs.
type GraphWriter interface {
	AddNode(id ids.ID)
	AddEdge(from, to ids.ID, kind depgraph.EdgeKind, metadata depgraph.EdgeMetadata)
}

// Context bundles read-only registry views with mutable graph access
// (spec.md §4.6 "WiringContext").
type Context struct {
	Nodes registry.NodeLookup
	Graph GraphWriter
}

// Module is the contract every wiring module implements: wire() is the
// global compile-time pass; wireNodes(ids) is the scoped pass the overlay
// invokes for newly registered runtime nodes.
type Module interface {
	Wire(ctx *Context) error
	WireNodes(ctx *Context, newIDs []ids.ID) error
}

func structuralChildParent(ctx *Context, childID ids.ID) {
	child, ok := ctx.Nodes.Get(childID)
	if !ok {
		return
	}
	parentID := child.ParentID()
	if parentID == "" {
		return
	}
	parent, ok := ctx.Nodes.Get(parentID)
	if !ok {
		return
	}
	if !parent.Kind().IsStructural() {
		return
	}
	ctx.Graph.AddEdge(childID, parentID, depgraph.Structural, depgraph.EdgeMetadata{Type: "child-parent"})
}

// astEdge emits a DATA_FLOW edge for an operand link, skipping
// primitive (non-AST-node) operands (spec.md §4.6 "skip primitive
// operands").
func astEdge(ctx *Context, from, to ids.ID, property string, index int, hasIndex bool) {
	if from == "" || to == "" {
		return
	}
	ctx.Graph.AddEdge(from, to, depgraph.DataFlow, depgraph.EdgeMetadata{
		Property: property,
		Index:    index,
		HasIndex: hasIndex,
	})
}

func nodesOfKind(nodes []ast.Node, kind ast.Kind) []ast.Node {
	var out []ast.Node
	for _, n := range nodes {
		if n.Kind() == kind {
			out = append(out, n)
		}
	}
	return out
}

func idSet(newIDs []ids.ID) map[ids.ID]bool {
	m := make(map[ids.ID]bool, len(newIDs))
	for _, id := range newIDs {
		m[id] = true
	}
	return m
}
