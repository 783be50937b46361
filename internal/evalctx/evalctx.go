// Package evalctx defines the per-request evaluation context: request data,
// registry lookups, the scope stack, and the function registry contract
// handlers call through (spec.md §4.7.2, §6.2, §6.3).
package evalctx

import (
	"context"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/registry"
)

// Values is a mapping of string keys to one-or-many string values, modelling
// the declarative `mapping<string, string | string[]>` shape of post/query
// bodies (spec.md §6.2) the way Go's net/url.Values does.
type Values map[string][]string

// Get returns the first value for key, or "" if absent.
func (v Values) Get(key string) string {
	vs, ok := v[key]
	if !ok || len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// RequestMetadata carries the optional out-of-band request context
// (spec.md §6.2).
type RequestMetadata struct {
	Data           map[string]any
	Session        any
	CSRFToken      string
	User           any
	TransitionType string
}

// EvaluationRequest is the input bundle the lifecycle coordinator builds per
// HTTP request (spec.md §6.2). Missing maps are treated as empty by callers.
type EvaluationRequest struct {
	Post     Values
	Query    Values
	Params   map[string]string
	Metadata RequestMetadata
}

// ScopeFrame is one level of the `@item`/`@index` scope stack pushed by
// IterateHandler (spec.md §4.7.2).
type ScopeFrame struct {
	Item    any
	Index   int
	HasItem bool
}

// MetadataLookup is the read interface both the base and overlay metadata
// registries satisfy.
type MetadataLookup interface {
	Get(id ids.ID, key string) (any, bool)
	GetBool(id ids.ID, key string) bool
}

// FunctionEntry is one registered function (spec.md §6.3): implementations
// are external to the core, addressed by name from AST Function nodes.
type FunctionEntry struct {
	Name     string
	IsAsync  bool
	Evaluate func(ctx context.Context, fctx FunctionContext, args ...any) (any, error)
}

// FunctionRegistry resolves a (FunctionType, name) pair to an entry. It is
// supplied by the embedder at compile/eval time and is read-only to the
// evaluator (spec.md §5 "Shared resource policy").
type FunctionRegistry interface {
	Lookup(funcType ast.FunctionType, name string) (FunctionEntry, bool)
}

// EvaluationContext is the per-request bundle threaded through every
// handler invocation (spec.md C9). It is passed by value; PushScope returns
// a modified copy so that pushing a scope frame for one invocation can never
// be observed by a sibling invocation holding the prior value (spec.md
// §4.8 "isolated scope frame").
type EvaluationContext struct {
	Request        EvaluationRequest
	Nodes          registry.NodeLookup
	Metadata       MetadataLookup
	Functions      FunctionRegistry
	Scope          []ScopeFrame
	TransitionType string
}

// PushScope returns a copy of c with f appended to the scope stack.
func (c EvaluationContext) PushScope(f ScopeFrame) EvaluationContext {
	clone := c
	clone.Scope = make([]ScopeFrame, len(c.Scope)+1)
	copy(clone.Scope, c.Scope)
	clone.Scope[len(c.Scope)] = f
	return clone
}

// WithTransitionType returns a copy of c tagged with the active transition
// kind ("load", "access", "submit", "action", or "" outside a transition).
func (c EvaluationContext) WithTransitionType(t string) EvaluationContext {
	clone := c
	clone.TransitionType = t
	return clone
}

// CurrentScope returns the innermost scope frame, if any.
func (c EvaluationContext) CurrentScope() (ScopeFrame, bool) {
	if len(c.Scope) == 0 {
		return ScopeFrame{}, false
	}
	return c.Scope[len(c.Scope)-1], true
}

// ScopeChain walks `parentNode` links starting at id (inclusive) out to the
// journey root, returning ancestors root-first (spec.md §4.4 ScopeIndex,
// invariant 4). Unknown IDs return an empty chain.
func (c EvaluationContext) ScopeChain(id ids.ID) []ast.Node {
	var chain []ast.Node
	cur := id
	seen := map[ids.ID]bool{}
	for cur != "" && !seen[cur] {
		seen[cur] = true
		n, ok := c.Nodes.Get(cur)
		if !ok {
			break
		}
		chain = append(chain, n)
		cur = n.ParentID()
	}
	// reverse to root-first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// NearestAncestorOfKind walks ancestors of id (not including id itself)
// looking for the nearest node of kind.
func (c EvaluationContext) NearestAncestorOfKind(id ids.ID, kind ast.Kind) (ast.Node, bool) {
	n, ok := c.Nodes.Get(id)
	if !ok {
		return nil, false
	}
	cur := n.ParentID()
	seen := map[ids.ID]bool{}
	for cur != "" && !seen[cur] {
		seen[cur] = true
		anc, ok := c.Nodes.Get(cur)
		if !ok {
			return nil, false
		}
		if anc.Kind() == kind {
			return anc, true
		}
		cur = anc.ParentID()
	}
	return nil, false
}

// FunctionContext is the base helper bundle synthesised for every function
// call (spec.md §4.7.2): getSession/setData plus the active transition type.
// Condition/Transformer/Effect/Generator contexts embed it verbatim — the
// source's duck-typed "mostly the same shape, different name" contexts
// become distinct Go types satisfying the same embedded struct rather than
// a single union, matching spec.md's closed FunctionType enum.
type FunctionContext struct {
	eval *EvaluationContext
}

// NewFunctionContext builds a FunctionContext bound to ec.
func NewFunctionContext(ec *EvaluationContext) FunctionContext {
	return FunctionContext{eval: ec}
}

// GetSession returns the request's session value.
func (f FunctionContext) GetSession() any { return f.eval.Request.Metadata.Session }

// SetData writes into the request-scoped metadata.Data map. Mutating this
// shared map concurrently from multiple goroutines is the caller's
// responsibility (spec.md §5 "Shared resource policy").
func (f FunctionContext) SetData(key string, value any) {
	if f.eval.Request.Metadata.Data == nil {
		f.eval.Request.Metadata.Data = make(map[string]any)
	}
	f.eval.Request.Metadata.Data[key] = value
}

// TransitionType returns the transition kind active when the function was
// invoked, read from the evaluation context's TransitionType field.
func (f FunctionContext) TransitionType() string { return f.eval.TransitionType }

// User returns the request's authenticated-user value.
func (f FunctionContext) User() any { return f.eval.Request.Metadata.User }

type ConditionFunctionContext struct{ FunctionContext }
type TransformerFunctionContext struct{ FunctionContext }
type EffectFunctionContext struct{ FunctionContext }
type GeneratorFunctionContext struct{ FunctionContext }
