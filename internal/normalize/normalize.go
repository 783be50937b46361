// Package normalize implements the structural AST passes that run after
// transformation and before dependency-graph wiring (spec.md §4.4):
// ResolveSelfReferences, AddSelfValueToFields, and ScopeIndex.
package normalize

import (
	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/factory"
	"github.com/cwbudde/go-formengine/internal/handlers"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/registry"
)

// ScopeChainMetaKey holds a node's root-first ancestor chain (self last).
const ScopeChainMetaKey = "scopeChain"

// OnLoadChainMetaKey holds the root-first concatenation of every
// Journey/Step ancestor's onLoad transition IDs (spec.md invariant 4).
const OnLoadChainMetaKey = "onLoadChain"

// nearestField walks parent links starting at id (inclusive of id's
// immediate parent) looking for the nearest enclosing field block.
func nearestField(nodes registry.NodeLookup, id ids.ID) (*ast.FieldBlock, bool) {
	cur := id
	seen := map[ids.ID]bool{}
	for cur != "" && !seen[cur] {
		seen[cur] = true
		n, ok := nodes.Get(cur)
		if !ok {
			return nil, false
		}
		if fb, ok := n.(*ast.FieldBlock); ok {
			return fb, true
		}
		cur = n.ParentID()
	}
	return nil, false
}

// ResolveSelfReferences rewrites every `answers/@self` reference path into
// a pointer at the enclosing field's own `code` (spec.md §4.4, invariant
// 3), and re-resolves its pseudo-node root through the same interning
// table the factory used at transform time, so a direct `answers.<code>`
// reference and a `@self` reference to the same field share one Answer
// pseudo-node — provided `code` is itself a literal string; a field whose
// `code` is a dynamic AST node has no compile-time-known base code to
// intern against, so its rewritten reference keeps an unresolved Root
// (same as any other reference with a dynamic second path segment), and
// ReferenceHandler evaluates such a rootless `answers` reference to nil.
//
// `code` is scalar-or-node, exactly like `value`/`label`/`hint` (spec.md
// §4.4 step 3: "an AST node or string"), so the `@self` segment it
// replaces is built by deep-cloning whichever form `code` takes:
// cloneFieldCode below mirrors handlers.CloneSubtree, the same
// fresh-ID-per-clone machinery IterateHandler uses to give each loop
// element its own identity (spec.md §4.7.2), so the clone never aliases
// the field's own code subtree.
func ResolveSelfReferences(nodes *registry.NodeRegistry, f *factory.Factory) error {
	for _, n := range nodes.All() {
		ref, ok := n.(*ast.Reference)
		if !ok {
			continue
		}
		if len(ref.Path) < 2 || ref.Path[0].IsNode() || ref.Path[1].IsNode() {
			continue
		}
		if ref.Path[0].Literal != "answers" || ref.Path[1].Literal != "@self" {
			continue
		}

		field, ok := nearestField(nodes, ref.ParentID())
		if !ok {
			return engineerr.New(engineerr.SelfOutsideField, "answers.@self used outside a field block").WithNode(ref.ID())
		}
		if s, ok := fieldCodeString(field.Code); field.Code.IsZero() || (ok && s == "") {
			return engineerr.New(engineerr.MissingFieldCode, "field has no code to resolve @self against").WithNode(field.ID())
		}
		if selfInsideCodeSubtree(nodes, ref.ParentID(), field) {
			return engineerr.New(engineerr.SelfInsideCode, "answers.@self cannot occur inside its own field's code").WithNode(ref.ID())
		}

		seg, err := cloneFieldCode(nodes, f.Gen, field)
		if err != nil {
			return engineerr.New(engineerr.Invalid, "cloning field %s code for @self resolution", field.ID()).WithCause(err).WithNode(ref.ID())
		}

		newPath := append([]ast.PathSegment{}, ref.Path...)
		newPath[1] = seg
		ref.Path = newPath
		ref.Root = f.ResolveRoot(newPath)
	}
	return nil
}

// selfInsideCodeSubtree reports whether refParentID is reached from field
// only by descending through field's own Code subtree — the "@self occurs
// inside that field's own code subtree" failure spec.md §4.4 step 2 names.
// A scalar (string) code has no subtree to be inside, so it never matches.
func selfInsideCodeSubtree(nodes registry.NodeLookup, refParentID ids.ID, field *ast.FieldBlock) bool {
	if !field.Code.IsNode() {
		return false
	}
	cur := refParentID
	seen := map[ids.ID]bool{}
	for cur != "" && cur != field.ID() && !seen[cur] {
		if cur == field.Code.NodeID {
			return true
		}
		seen[cur] = true
		n, ok := nodes.Get(cur)
		if !ok {
			return false
		}
		cur = n.ParentID()
	}
	return false
}

// cloneFieldCode builds the path segment that replaces `@self`: a literal
// copy of field.Code's string, or, when code is a dynamic AST node, a
// fresh-ID clone of its subtree registered alongside the original so the
// two never alias (spec.md §4.4 step 3).
func cloneFieldCode(nodes *registry.NodeRegistry, gen *ids.Generator, field *ast.FieldBlock) (ast.PathSegment, error) {
	if !field.Code.IsNode() {
		s, _ := field.Code.Scalar.(string)
		return ast.PathSegment{Literal: s}, nil
	}
	newRoot, created, err := handlers.CloneSubtree(nodes, gen, field.Code.NodeID, field.ID())
	if err != nil {
		return ast.PathSegment{}, err
	}
	for _, cloned := range created {
		if err := nodes.Register(cloned, []string{"$selfCode", string(field.ID())}); err != nil {
			return ast.PathSegment{}, err
		}
	}
	return ast.PathSegment{NodeID: newRoot}, nil
}

// fieldCodeString extracts a field's code as a literal string, when it is
// one (code is scalar-or-node per spec.md §4.4 step 3); call sites that
// need a literal key rather than a full path segment skip fields whose
// code is a dynamic AST node.
func fieldCodeString(code ast.PropValue) (string, bool) {
	if code.IsNode() {
		return "", false
	}
	s, ok := code.Scalar.(string)
	return s, ok
}

// AddSelfValueToFields replaces every field block's `value` property with a
// fresh `Reference(['answers', '@self'])` node, including fields reached
// through an Iterate yield template (already present in the registry by
// the time this pass runs, since the factory registers yield templates
// during transformation) (spec.md §4.4).
func AddSelfValueToFields(nodes *registry.NodeRegistry, gen *ids.Generator) error {
	for _, n := range nodes.All() {
		field, ok := n.(*ast.FieldBlock)
		if !ok {
			continue
		}
		ref := &ast.Reference{
			Path: []ast.PathSegment{{Literal: "answers"}, {Literal: "@self"}},
		}
		ref.IDValue = gen.Next(ids.CategoryCompileAST)
		ref.Parent = field.ID()
		ref.Raw = -1
		ref.PropsValue = map[string]ast.PropValue{}
		codeLabel, ok := fieldCodeString(field.Code)
		if !ok {
			codeLabel = string(field.ID())
		}
		if err := nodes.Register(ref, []string{"$selfValue", codeLabel}); err != nil {
			return err
		}
		field.Value = ast.NodeValue(ref.ID())
	}
	return nil
}

// ScopeIndex precomputes, for every node, its root-first ancestor chain and
// the concatenated onLoad transition list of every Journey/Step ancestor in
// that chain, storing both in metadata for the lifecycle coordinator and
// scope-aware handlers to consult without re-walking parent links per
// request (spec.md §4.4, invariant 4). Pseudo-nodes get an empty chain,
// never an error.
func ScopeIndex(nodes *registry.NodeRegistry, metadata *registry.MetadataRegistry) {
	for _, n := range nodes.All() {
		if n.Kind().IsPseudo() {
			metadata.Set(n.ID(), ScopeChainMetaKey, []ids.ID{})
			metadata.Set(n.ID(), OnLoadChainMetaKey, []ids.ID(nil))
			continue
		}
		chain := scopeChain(nodes, n.ID())
		chainIDs := make([]ids.ID, len(chain))
		var onLoad []ids.ID
		for i, anc := range chain {
			chainIDs[i] = anc.ID()
			switch t := anc.(type) {
			case *ast.Journey:
				onLoad = append(onLoad, t.OnLoad...)
			case *ast.Step:
				onLoad = append(onLoad, t.OnLoad...)
			}
		}
		metadata.Set(n.ID(), ScopeChainMetaKey, chainIDs)
		metadata.Set(n.ID(), OnLoadChainMetaKey, onLoad)
	}
}

// scopeChain returns id's ancestors root-first, including id itself last.
func scopeChain(nodes registry.NodeLookup, id ids.ID) []ast.Node {
	var reverse []ast.Node
	cur := id
	seen := map[ids.ID]bool{}
	for cur != "" && !seen[cur] {
		seen[cur] = true
		n, ok := nodes.Get(cur)
		if !ok {
			break
		}
		reverse = append(reverse, n)
		cur = n.ParentID()
	}
	for i, j := 0, len(reverse)-1; i < j; i, j = i+1, j-1 {
		reverse[i], reverse[j] = reverse[j], reverse[i]
	}
	return reverse
}
