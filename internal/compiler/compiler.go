// Package compiler implements the top-level Compile entry point (spec.md
// §4.1): it runs the declarative JSON through the transformer, the
// normalization passes, the dependency-graph wiring modules, and finally
// builds the thunk handler registry every node needs before an Evaluator can
// walk it. The result is a Program: the immutable base every per-request
// Overlay clones on top of (spec.md §4.9, §5 "overlay never mutates base").
package compiler

import (
	"path"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/declarative"
	"github.com/cwbudde/go-formengine/internal/depgraph"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/factory"
	"github.com/cwbudde/go-formengine/internal/handlers"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/normalize"
	"github.com/cwbudde/go-formengine/internal/registry"
	"github.com/cwbudde/go-formengine/internal/transform"
	"github.com/cwbudde/go-formengine/internal/wiring"
)

// Program bundles everything a compiled declarative journey tree produces:
// the base registries an Overlay clones over, the dependency graph, and the
// handler registry the Evaluator dispatches through (spec.md component C1).
type Program struct {
	Root     ids.ID
	Gen      *ids.Generator
	Nodes    *registry.NodeRegistry
	Metadata *registry.MetadataRegistry
	Handlers *registry.ThunkHandlerRegistry
	Graph    *depgraph.Graph
	Wiring   *wiring.Manager
}

// Compile runs the full pipeline over raw declarative JSON: transform,
// normalize (self-value synthesis, self-reference resolution, scope
// indexing), wire the dependency graph, then build one handler per node
// (spec.md §4.1-§4.9).
func Compile(raw string) (*Program, error) {
	gen := ids.NewGenerator()
	arena := declarative.NewArena()
	nodes := registry.NewNodeRegistry()
	metadata := registry.NewMetadataRegistry()
	f := factory.New(gen, arena, nodes, metadata)

	root, err := transform.Transform(f, raw)
	if err != nil {
		return nil, err
	}

	if err := normalize.AddSelfValueToFields(nodes, gen); err != nil {
		return nil, err
	}
	if err := normalize.ResolveSelfReferences(nodes, f); err != nil {
		return nil, err
	}
	normalize.ScopeIndex(nodes, metadata)

	stampPostFieldNodeIDs(nodes, metadata)

	graph := depgraph.New()
	manager := wiring.NewManager(nodes)
	wctx := &wiring.Context{Nodes: nodes, Graph: graph}
	if err := manager.WireAll(wctx); err != nil {
		return nil, err
	}

	if err := rejectDuplicateRoutes(nodes); err != nil {
		return nil, err
	}

	handlerRegistry := registry.NewThunkHandlerRegistry()
	if err := buildHandlers(nodes, handlerRegistry); err != nil {
		return nil, err
	}

	return &Program{
		Root:     root,
		Gen:      gen,
		Nodes:    nodes,
		Metadata: metadata,
		Handlers: handlerRegistry,
		Graph:    graph,
		Wiring:   manager,
	}, nil
}

// stampPostFieldNodeIDs links every Post pseudo-node back to the field it
// submits for, so PostHandler can consult that field's `multiple` property
// without a registry scan on every request (spec.md §3.1 "fieldNodeId").
func stampPostFieldNodeIDs(nodes *registry.NodeRegistry, metadata *registry.MetadataRegistry) {
	byCode := make(map[string]ids.ID)
	for _, n := range nodes.ByKind(ast.KindField) {
		field := n.(*ast.FieldBlock)
		// A Post.BaseFieldCode segment is always a literal string, so a
		// field with a dynamic (AST-node) code can never be its target.
		code, ok := fieldCodeString(field.Code)
		if !ok {
			continue
		}
		if _, exists := byCode[code]; !exists {
			byCode[code] = field.ID()
		}
	}
	for _, n := range nodes.ByKind(ast.KindPseudoPost) {
		post := n.(*ast.Post)
		if fieldID, ok := byCode[post.BaseFieldCode]; ok {
			metadata.Set(post.ID(), handlers.FieldNodeIDMetaKey, fieldID)
		}
	}
}

// fieldCodeString extracts a field's code as a literal string, when it is
// one — code is scalar-or-node (spec.md §4.4 step 3), and call sites that
// need a literal map key skip fields whose code is a dynamic AST node.
func fieldCodeString(code ast.PropValue) (string, bool) {
	if code.IsNode() {
		return "", false
	}
	s, ok := code.Scalar.(string)
	return s, ok
}

// rejectDuplicateRoutes walks every Step, computes its effective path (the
// joined path of every ancestor Journey plus its own), and rejects the
// program at compile time if two steps collide (SPEC_FULL.md §12 adopting
// spec.md §9's duplicate-route open question as "reject, don't warn").
func rejectDuplicateRoutes(nodes *registry.NodeRegistry) error {
	seen := make(map[string]ids.ID)
	for _, n := range nodes.ByKind(ast.KindStep) {
		step := n.(*ast.Step)
		effective := effectivePath(nodes, step)
		if prior, dup := seen[effective]; dup {
			return engineerr.New(engineerr.DuplicateRoute, "step %s and %s both resolve to route %q", prior, step.ID(), effective).
				WithNode(step.ID())
		}
		seen[effective] = step.ID()
	}
	return nil
}

// EffectivePath is the exported form of effectivePath, so the lifecycle
// coordinator can resolve a requested URL to a compiled Step using the same
// route-joining rule the compiler used to reject duplicates.
func EffectivePath(nodes *registry.NodeRegistry, step *ast.Step) string {
	return effectivePath(nodes, step)
}

func effectivePath(nodes *registry.NodeRegistry, step *ast.Step) string {
	segs := []string{step.Path}
	for parentID := step.ParentID(); parentID != ""; {
		parent, ok := nodes.Get(parentID)
		if !ok {
			break
		}
		if journey, ok := parent.(*ast.Journey); ok {
			segs = append([]string{journey.Path}, segs...)
		}
		parentID = parent.ParentID()
	}
	return path.Join(segs...)
}

// buildHandlers walks every compiled node and registers the matching
// internal/handlers type, dispatching on its concrete Go type rather than
// Kind() so the compiler fails to build (not silently skips) if a node
// family is ever added without a handler (spec.md §4.2 "one handler per
// node kind").
func buildHandlers(nodes *registry.NodeRegistry, reg *registry.ThunkHandlerRegistry) error {
	for _, n := range nodes.All() {
		h, err := handlerFor(nodes, n)
		if err != nil {
			return err
		}
		if err := reg.Register(n.ID(), h); err != nil {
			return err
		}
	}
	return nil
}

func handlerFor(nodes *registry.NodeRegistry, n ast.Node) (registry.Handler, error) {
	switch t := n.(type) {
	case *ast.Journey:
		return &handlers.JourneyHandler{Node: t}, nil
	case *ast.Step:
		return &handlers.StepHandler{Node: t}, nil
	case *ast.FieldBlock:
		return &handlers.FieldHandler{Node: t}, nil
	case *ast.Block:
		return &handlers.BlockHandler{Node: t}, nil
	case *ast.Reference:
		return &handlers.ReferenceHandler{Node: t}, nil
	case *ast.Format:
		return &handlers.FormatHandler{Node: t}, nil
	case *ast.Next:
		return &handlers.NextHandler{Node: t}, nil
	case *ast.Iterate:
		return &handlers.IterateHandler{Node: t}, nil
	case *ast.Validation:
		return &handlers.ValidationHandler{Node: t}, nil
	case *ast.Function:
		return &handlers.FunctionHandler{Node: t}, nil
	case *ast.And:
		return &handlers.AndHandler{Node: t}, nil
	case *ast.Or:
		return &handlers.OrHandler{Node: t}, nil
	case *ast.Not:
		return &handlers.NotHandler{Node: t}, nil
	case *ast.Test:
		return &handlers.TestHandler{Node: t}, nil
	case *ast.Load:
		return &handlers.LoadHandler{Node: t}, nil
	case *ast.Access:
		return &handlers.AccessHandler{Node: t}, nil
	case *ast.Submit:
		return &handlers.SubmitHandler{Node: t, Validators: submitValidators(nodes, t)}, nil
	case *ast.Action:
		return &handlers.ActionHandler{Node: t}, nil
	case *ast.Post:
		return &handlers.PostHandler{Node: t}, nil
	case *ast.Query:
		return &handlers.QueryHandler{Node: t}, nil
	case *ast.Params:
		return &handlers.ParamsHandler{Node: t}, nil
	case *ast.Data:
		return &handlers.DataHandler{Node: t}, nil
	case *ast.Answer:
		return &handlers.AnswerHandler{Node: t, Code: t.BaseFieldCode}, nil
	case *ast.AnswerRemote:
		return &handlers.AnswerHandler{Node: t, Code: t.BaseFieldCode}, nil
	default:
		return nil, engineerr.New(engineerr.UnknownNodeType, "no handler for node kind %q", n.Kind()).WithNode(n.ID())
	}
}

// submitValidators collects every FieldBlock.Validate chain reachable under
// the Submit node's enclosing Step, recursing through nested Blocks
// (spec.md §4.7.4: "validate runs every field's Validate chain in the
// current step").
func submitValidators(nodes *registry.NodeRegistry, submit *ast.Submit) []ids.ID {
	step := enclosingStep(nodes, submit.ParentID())
	if step == nil {
		return nil
	}
	return collectValidators(nodes, step.Blocks)
}

func enclosingStep(nodes *registry.NodeRegistry, id ids.ID) *ast.Step {
	for id != "" {
		n, ok := nodes.Get(id)
		if !ok {
			return nil
		}
		if step, ok := n.(*ast.Step); ok {
			return step
		}
		id = n.ParentID()
	}
	return nil
}

func collectValidators(nodes *registry.NodeRegistry, blockIDs []ids.ID) []ids.ID {
	var out []ids.ID
	for _, id := range blockIDs {
		n, ok := nodes.Get(id)
		if !ok {
			continue
		}
		switch b := n.(type) {
		case *ast.FieldBlock:
			out = append(out, b.Validate...)
		case *ast.Block:
			out = append(out, collectValidators(nodes, b.Children)...)
		}
	}
	return out
}
