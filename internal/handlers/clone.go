package handlers

import (
	"fmt"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/registry"
)

// cloneSubtree deep-clones an already-compiled AST subtree rooted at
// rootID, assigning each clone a fresh runtime ID, the way
// ResolveSelfReferences clones a field's `code` subtree at compile time
// (spec.md §4.4). IterateHandler uses this to give every loop element its
// own identity for memoization and @item scoping (spec.md §4.7.2), instead
// of re-parsing the declarative yield template from raw JSON per element.
//
// Parent links on the clones are not reconstructed (only the caller-supplied
// newParent is set on the root) — runtime clones are reached directly by ID
// from the Iterate result, not by a registry scan of their ancestry, so the
// simplification costs nothing observable; see DESIGN.md.
// CloneSubtree is the exported entry point internal/evaluator binds into
// thunk.RuntimeHooks.RegisterYieldInstance so IterateHandler can materialise
// one loop element's yield template per iteration (spec.md §4.7.2).
func CloneSubtree(nodes registry.NodeLookup, gen *ids.Generator, rootID ids.ID, newParent ids.ID) (ids.ID, []ast.Node, error) {
	return cloneSubtree(nodes, gen, rootID, newParent)
}

// HandlerForClone builds the thunk handler for a node kind cloneSubtree can
// produce, so a freshly cloned yield instance is immediately evaluable
// through the overlay's handler registry once RegisterRuntimeNodesBatch
// wires it in.
func HandlerForClone(n ast.Node) (registry.Handler, error) {
	switch t := n.(type) {
	case *ast.FieldBlock:
		return &FieldHandler{Node: t}, nil
	case *ast.Block:
		return &BlockHandler{Node: t}, nil
	case *ast.Validation:
		return &ValidationHandler{Node: t}, nil
	case *ast.Reference:
		return &ReferenceHandler{Node: t}, nil
	case *ast.Format:
		return &FormatHandler{Node: t}, nil
	case *ast.Function:
		return &FunctionHandler{Node: t}, nil
	case *ast.Next:
		return &NextHandler{Node: t}, nil
	case *ast.And:
		return &AndHandler{Node: t}, nil
	case *ast.Or:
		return &OrHandler{Node: t}, nil
	case *ast.Not:
		return &NotHandler{Node: t}, nil
	case *ast.Test:
		return &TestHandler{Node: t}, nil
	default:
		return nil, fmt.Errorf("clone: no handler for runtime-cloned kind %s", n.Kind())
	}
}

func cloneSubtree(nodes registry.NodeLookup, gen *ids.Generator, rootID ids.ID, newParent ids.ID) (ids.ID, []ast.Node, error) {
	var created []ast.Node

	var rec func(id ids.ID) (ids.ID, error)
	rec = func(id ids.ID) (ids.ID, error) {
		if id == "" {
			return "", nil
		}
		n, ok := nodes.Get(id)
		if !ok {
			return "", fmt.Errorf("clone: node %s not found", id)
		}
		newID := gen.Next(ids.CategoryRuntimeAST)

		cloneIDs := func(list []ids.ID) ([]ids.ID, error) {
			out := make([]ids.ID, len(list))
			for i, cid := range list {
				nid, err := rec(cid)
				if err != nil {
					return nil, err
				}
				out[i] = nid
			}
			return out, nil
		}
		cp := func(v ast.PropValue) (ast.PropValue, error) {
			return cloneProp(rec, v)
		}

		var clone ast.Node
		var err error
		switch t := n.(type) {
		case *ast.FieldBlock:
			c := *t
			c.IDValue = newID
			if c.Code, err = cp(t.Code); err != nil {
				return "", err
			}
			if c.Validate, err = cloneIDs(t.Validate); err != nil {
				return "", err
			}
			if c.Formatters, err = cloneIDs(t.Formatters); err != nil {
				return "", err
			}
			if c.Value, err = cp(t.Value); err != nil {
				return "", err
			}
			if c.Label, err = cp(t.Label); err != nil {
				return "", err
			}
			if c.Hint, err = cp(t.Hint); err != nil {
				return "", err
			}
			if c.Dependent, err = cp(t.Dependent); err != nil {
				return "", err
			}
			clone = &c
		case *ast.Block:
			c := *t
			c.IDValue = newID
			if c.Children, err = cloneIDs(t.Children); err != nil {
				return "", err
			}
			clone = &c
		case *ast.Validation:
			c := *t
			c.IDValue = newID
			if c.When, err = rec(t.When); err != nil {
				return "", err
			}
			if c.Message, err = cp(t.Message); err != nil {
				return "", err
			}
			if c.Details, err = cp(t.Details); err != nil {
				return "", err
			}
			clone = &c
		case *ast.Reference:
			c := *t
			c.IDValue = newID
			segs := make([]ast.PathSegment, len(t.Path))
			for i, s := range t.Path {
				if s.IsNode() {
					nid, err := rec(s.NodeID)
					if err != nil {
						return "", err
					}
					segs[i] = ast.PathSegment{NodeID: nid}
				} else {
					segs[i] = s
				}
			}
			c.Path = segs
			clone = &c
		case *ast.Format:
			c := *t
			c.IDValue = newID
			if c.Arguments, err = cloneIDs(t.Arguments); err != nil {
				return "", err
			}
			clone = &c
		case *ast.Function:
			c := *t
			c.IDValue = newID
			if c.Arguments, err = cloneIDs(t.Arguments); err != nil {
				return "", err
			}
			clone = &c
		case *ast.Next:
			c := *t
			c.IDValue = newID
			if c.When, err = rec(t.When); err != nil {
				return "", err
			}
			if c.Goto, err = cp(t.Goto); err != nil {
				return "", err
			}
			clone = &c
		case *ast.And:
			c := *t
			c.IDValue = newID
			if c.Operands, err = cloneIDs(t.Operands); err != nil {
				return "", err
			}
			clone = &c
		case *ast.Or:
			c := *t
			c.IDValue = newID
			if c.Operands, err = cloneIDs(t.Operands); err != nil {
				return "", err
			}
			clone = &c
		case *ast.Not:
			c := *t
			c.IDValue = newID
			if c.Operand, err = rec(t.Operand); err != nil {
				return "", err
			}
			clone = &c
		case *ast.Test:
			c := *t
			c.IDValue = newID
			if c.Subject, err = rec(t.Subject); err != nil {
				return "", err
			}
			if c.Condition, err = rec(t.Condition); err != nil {
				return "", err
			}
			clone = &c
		default:
			return "", fmt.Errorf("clone: unsupported kind %s for runtime duplication", n.Kind())
		}
		created = append(created, clone)
		return newID, nil
	}

	newRoot, err := rec(rootID)
	if err != nil {
		return "", nil, err
	}
	if len(created) > 0 {
		created[len(created)-1].SetParentID(newParent)
	}
	return newRoot, created, nil
}

func cloneProp(rec func(ids.ID) (ids.ID, error), v ast.PropValue) (ast.PropValue, error) {
	switch {
	case v.IsNode():
		nid, err := rec(v.NodeID)
		if err != nil {
			return ast.PropValue{}, err
		}
		return ast.NodeValue(nid), nil
	case v.List != nil:
		out := make([]ast.PropValue, len(v.List))
		for i, item := range v.List {
			cloned, err := cloneProp(rec, item)
			if err != nil {
				return ast.PropValue{}, err
			}
			out[i] = cloned
		}
		return ast.ListValue(out), nil
	case v.Map != nil:
		out := make(map[string]ast.PropValue, len(v.Map))
		for k, item := range v.Map {
			cloned, err := cloneProp(rec, item)
			if err != nil {
				return ast.PropValue{}, err
			}
			out[k] = cloned
		}
		return ast.PropValue{Map: out}, nil
	default:
		return v, nil
	}
}
