package wiring

import (
	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// AndWiring emits operand_i -> And [DATA_FLOW, property=operands, index=i]
// edges for AST-node operands, skipping primitives (spec.md §4.6).
type AndWiring struct{ Source AllNodes }

func (w AndWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindAnd) {
		wireAnd(ctx, n.(*ast.And))
	}
	return nil
}

func (w AndWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if a, ok := n.(*ast.And); ok {
				wireAnd(ctx, a)
			}
		}
	}
	return nil
}

func wireAnd(ctx *Context, a *ast.And) {
	for i, op := range a.Operands {
		astEdge(ctx, op, a.ID(), "operands", i, true)
	}
}

// OrWiring mirrors AndWiring for Or nodes.
type OrWiring struct{ Source AllNodes }

func (w OrWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindOr) {
		wireOr(ctx, n.(*ast.Or))
	}
	return nil
}

func (w OrWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if o, ok := n.(*ast.Or); ok {
				wireOr(ctx, o)
			}
		}
	}
	return nil
}

func wireOr(ctx *Context, o *ast.Or) {
	for i, op := range o.Operands {
		astEdge(ctx, op, o.ID(), "operands", i, true)
	}
}

// NotWiring wires the single operand of a Not node.
type NotWiring struct{ Source AllNodes }

func (w NotWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindNot) {
		wireNot(ctx, n.(*ast.Not))
	}
	return nil
}

func (w NotWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if not, ok := n.(*ast.Not); ok {
				wireNot(ctx, not)
			}
		}
	}
	return nil
}

func wireNot(ctx *Context, n *ast.Not) {
	astEdge(ctx, n.Operand, n.ID(), "operand", 0, false)
}

// TestWiring wires subject and condition operands of a Test node, gated on
// AST-nodeness (spec.md §4.6).
type TestWiring struct{ Source AllNodes }

func (w TestWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindTest) {
		wireTest(ctx, n.(*ast.Test))
	}
	return nil
}

func (w TestWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if t, ok := n.(*ast.Test); ok {
				wireTest(ctx, t)
			}
		}
	}
	return nil
}

func wireTest(ctx *Context, t *ast.Test) {
	astEdge(ctx, t.Subject, t.ID(), "subject", 0, false)
	astEdge(ctx, t.Condition, t.ID(), "condition", 0, false)
}
