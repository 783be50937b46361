package wiring

import (
	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/depgraph"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// ReferenceWiring connects each pseudo-node as a producer to every
// Reference node whose resolved Root matches it (spec.md §4.6 "connect it
// as producer to every reference node whose path's ... base code matches
// the pseudo-node's base code"). Root is resolved once by the factory at
// construction time (internal/factory), deduplicating pseudo-nodes by
// (kind, base code/name) so multiple references share one producer.
type ReferenceWiring struct{ Source AllNodes }

func (w ReferenceWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindReference) {
		wireReference(ctx, n.(*ast.Reference))
	}
	return nil
}

func (w ReferenceWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if r, ok := n.(*ast.Reference); ok {
				wireReference(ctx, r)
			}
		}
	}
	return nil
}

func wireReference(ctx *Context, r *ast.Reference) {
	if r.Root == "" {
		return
	}
	root, ok := ctx.Nodes.Get(r.Root)
	if !ok {
		return
	}
	meta := referenceMetadata(root)
	ctx.Graph.AddEdge(r.Root, r.ID(), depgraph.DataFlow, meta)
	for i, seg := range r.Path {
		if seg.IsNode() {
			astEdge(ctx, seg.NodeID, r.ID(), "path", i, true)
		}
	}
}

func referenceMetadata(root ast.Node) depgraph.EdgeMetadata {
	switch root.Kind() {
	case ast.KindPseudoAnswer:
		return depgraph.EdgeMetadata{ReferenceType: "answer", FieldCode: root.(*ast.Answer).BaseFieldCode}
	case ast.KindPseudoAnswerRemote:
		return depgraph.EdgeMetadata{ReferenceType: "answerRemote", FieldCode: root.(*ast.AnswerRemote).BaseFieldCode}
	case ast.KindPseudoData:
		return depgraph.EdgeMetadata{ReferenceType: "data", BaseProperty: root.(*ast.Data).BaseProperty}
	case ast.KindPseudoPost:
		return depgraph.EdgeMetadata{ReferenceType: "post", FieldCode: root.(*ast.Post).BaseFieldCode}
	case ast.KindPseudoQuery:
		return depgraph.EdgeMetadata{ReferenceType: "query", BaseProperty: root.(*ast.Query).ParamName}
	case ast.KindPseudoParams:
		return depgraph.EdgeMetadata{ReferenceType: "params", BaseProperty: root.(*ast.Params).ParamName}
	default:
		return depgraph.EdgeMetadata{ReferenceType: "unknown"}
	}
}

// TransitionSourceWiring wires the nearest onAccess transition up a Data
// pseudo-node's consuming reference's scope chain as its producer, and the
// nearest onSubmission transition for Post (spec.md §4.6). Query/Params
// have no producer — they are read directly from the request.
type TransitionSourceWiring struct{ Source AllNodes }

func (w TransitionSourceWiring) Wire(ctx *Context) error {
	for _, n := range nodesOfKind(w.Source.All(), ast.KindReference) {
		wireTransitionSource(ctx, n.(*ast.Reference))
	}
	return nil
}

func (w TransitionSourceWiring) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, id := range newIDs {
		if n, ok := ctx.Nodes.Get(id); ok {
			if r, ok := n.(*ast.Reference); ok {
				wireTransitionSource(ctx, r)
			}
		}
	}
	return nil
}

func wireTransitionSource(ctx *Context, r *ast.Reference) {
	if r.Root == "" {
		return
	}
	root, ok := ctx.Nodes.Get(r.Root)
	if !ok {
		return
	}
	var onLoadKind ast.Kind
	switch root.Kind() {
	case ast.KindPseudoData:
		onLoadKind = ast.KindAccess
	case ast.KindPseudoPost:
		onLoadKind = ast.KindSubmit
	default:
		return
	}
	step := nearestStep(ctx, r.ID())
	if step == nil {
		return
	}
	var transitionIDs []ids.ID
	if onLoadKind == ast.KindAccess {
		transitionIDs = step.OnAccess
	} else {
		transitionIDs = step.OnSubmission
	}
	if len(transitionIDs) == 0 {
		return
	}
	ctx.Graph.AddEdge(transitionIDs[0], root.ID(), depgraph.DataFlow, depgraph.EdgeMetadata{
		Type: "transition-source",
	})
}

func nearestStep(ctx *Context, id ids.ID) *ast.Step {
	cur := id
	seen := map[ids.ID]bool{}
	for cur != "" && !seen[cur] {
		seen[cur] = true
		n, ok := ctx.Nodes.Get(cur)
		if !ok {
			return nil
		}
		if s, ok := n.(*ast.Step); ok {
			return s
		}
		cur = n.ParentID()
	}
	return nil
}
