package wiring

import (
	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// LoadWiring wires effects and next-outcomes into a Load transition.
type LoadWiring struct{ Source AllNodes }

func (w LoadWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindLoad) {
		wireLoad(ctx, n.(*ast.Load))
	}
	return nil
}

func (w LoadWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if l, ok := n.(*ast.Load); ok {
				wireLoad(ctx, l)
			}
		}
	}
	return nil
}

func wireLoad(ctx *Context, l *ast.Load) {
	for i, eff := range l.Effects {
		astEdge(ctx, eff, l.ID(), "effects", i, true)
	}
	for i, nx := range l.Next {
		astEdge(ctx, nx, l.ID(), "next", i, true)
	}
}

// AccessWiring wires guards/effects/next/redirect/message into an Access
// transition.
type AccessWiring struct{ Source AllNodes }

func (w AccessWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindAccess) {
		wireAccess(ctx, n.(*ast.Access))
	}
	return nil
}

func (w AccessWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if a, ok := n.(*ast.Access); ok {
				wireAccess(ctx, a)
			}
		}
	}
	return nil
}

func wireAccess(ctx *Context, a *ast.Access) {
	astEdge(ctx, a.Guards, a.ID(), "guards", 0, false)
	for i, eff := range a.Effects {
		astEdge(ctx, eff, a.ID(), "effects", i, true)
	}
	for i, nx := range a.Next {
		astEdge(ctx, nx, a.ID(), "next", i, true)
	}
	for i, r := range a.Redirect {
		astEdge(ctx, r, a.ID(), "redirect", i, true)
	}
	if a.Message.IsNode() {
		astEdge(ctx, a.Message.NodeID, a.ID(), "message", 0, false)
	}
}

// SubmitWiring wires `when` plus both onValid/onInvalid branches into a
// Submit transition.
type SubmitWiring struct{ Source AllNodes }

func (w SubmitWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindSubmit) {
		wireSubmit(ctx, n.(*ast.Submit))
	}
	return nil
}

func (w SubmitWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if s, ok := n.(*ast.Submit); ok {
				wireSubmit(ctx, s)
			}
		}
	}
	return nil
}

func wireSubmit(ctx *Context, s *ast.Submit) {
	astEdge(ctx, s.When, s.ID(), "when", 0, false)
	for i, eff := range s.OnValid.Effects {
		astEdge(ctx, eff, s.ID(), "onValid.effects", i, true)
	}
	for i, nx := range s.OnValid.Next {
		astEdge(ctx, nx, s.ID(), "onValid.next", i, true)
	}
	for i, eff := range s.OnInvalid.Effects {
		astEdge(ctx, eff, s.ID(), "onInvalid.effects", i, true)
	}
	for i, nx := range s.OnInvalid.Next {
		astEdge(ctx, nx, s.ID(), "onInvalid.next", i, true)
	}
}

// ActionWiring wires `when` and `effects` into an Action transition.
type ActionWiring struct{ Source AllNodes }

func (w ActionWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindAction) {
		wireActionNode(ctx, n.(*ast.Action))
	}
	return nil
}

func (w ActionWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if a, ok := n.(*ast.Action); ok {
				wireActionNode(ctx, a)
			}
		}
	}
	return nil
}

func wireActionNode(ctx *Context, a *ast.Action) {
	astEdge(ctx, a.When, a.ID(), "when", 0, false)
	for i, eff := range a.Effects {
		astEdge(ctx, eff, a.ID(), "effects", i, true)
	}
}
