package wiring

import (
	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// FunctionWiring wires arg_i -> Function [DATA_FLOW, property=arguments,
// index=i] edges for AST-node arguments only (spec.md §4.6).
type FunctionWiring struct{ Source AllNodes }

func (w FunctionWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindFunction) {
		wireFunction(ctx, n.(*ast.Function))
	}
	return nil
}

func (w FunctionWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if f, ok := n.(*ast.Function); ok {
				wireFunction(ctx, f)
			}
		}
	}
	return nil
}

func wireFunction(ctx *Context, f *ast.Function) {
	for i, arg := range f.Arguments {
		astEdge(ctx, arg, f.ID(), "arguments", i, true)
	}
}

// FormatWiring mirrors FunctionWiring for Format templates' arguments.
type FormatWiring struct{ Source AllNodes }

func (w FormatWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindFormat) {
		wireFormat(ctx, n.(*ast.Format))
	}
	return nil
}

func (w FormatWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if f, ok := n.(*ast.Format); ok {
				wireFormat(ctx, f)
			}
		}
	}
	return nil
}

func wireFormat(ctx *Context, f *ast.Format) {
	for i, arg := range f.Arguments {
		astEdge(ctx, arg, f.ID(), "arguments", i, true)
	}
}

// NextWiring wires `when` (if present) and `goto` (if an AST node) into the
// Next node (spec.md §4.6).
type NextWiring struct{ Source AllNodes }

func (w NextWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindNext) {
		wireNext(ctx, n.(*ast.Next))
	}
	return nil
}

func (w NextWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if nx, ok := n.(*ast.Next); ok {
				wireNext(ctx, nx)
			}
		}
	}
	return nil
}

func wireNext(ctx *Context, n *ast.Next) {
	astEdge(ctx, n.When, n.ID(), "when", 0, false)
	if n.Goto.IsNode() {
		astEdge(ctx, n.Goto.NodeID, n.ID(), "goto", 0, false)
	}
}

// IterateWiring wires the `input` producer into the Iterate node. The yield
// template's own nodes are wired by every other module's normal Wire pass
// once registered (their parentNode already points at the Iterate node, or
// — for runtime per-element instantiations — are wired by WireNodes when
// the overlay registers them).
type IterateWiring struct{ Source AllNodes }

func (w IterateWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindIterate) {
		wireIterate(ctx, n.(*ast.Iterate))
	}
	return nil
}

func (w IterateWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if it, ok := n.(*ast.Iterate); ok {
				wireIterate(ctx, it)
			}
		}
	}
	return nil
}

func wireIterate(ctx *Context, it *ast.Iterate) {
	astEdge(ctx, it.Input, it.ID(), "input", 0, false)
}

// ValidationWiring wires `when`, `message` and `details` into the
// Validation node.
type ValidationWiring struct{ Source AllNodes }

func (w ValidationWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindValidation) {
		wireValidation(ctx, n.(*ast.Validation))
	}
	return nil
}

func (w ValidationWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if v, ok := n.(*ast.Validation); ok {
				wireValidation(ctx, v)
			}
		}
	}
	return nil
}

func wireValidation(ctx *Context, v *ast.Validation) {
	astEdge(ctx, v.When, v.ID(), "when", 0, false)
	if v.Message.IsNode() {
		astEdge(ctx, v.Message.NodeID, v.ID(), "message", 0, false)
	}
	if v.Details.IsNode() {
		astEdge(ctx, v.Details.NodeID, v.ID(), "details", 0, false)
	}
}
