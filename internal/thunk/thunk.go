// Package thunk defines the common evaluation contract every node handler
// implements, and the per-invocation runtime hooks that let a handler
// register new nodes into the overlay without mutating the compiled
// program (spec.md §3.1 Thunk, §4.7, §4.8).
package thunk

import (
	"context"
	"time"

	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// Error is the thunk-level error type; it is exactly engineerr.EngineError,
// kept as a distinct name in this package so handler code reads in the
// spec's own vocabulary ("ThunkError") without introducing a second type.
type Error = engineerr.EngineError

// Result is what every handler invocation produces (spec.md §4.7, §6.4).
type Result struct {
	Value    any
	Error    *Error
	Metadata map[string]any
}

// Ok wraps a successful value with no metadata.
func Ok(value any) Result { return Result{Value: value} }

// Fail wraps an error result.
func Fail(err *Error) Result { return Result{Error: err} }

// WithMetadata returns a copy of r with k=v merged into its metadata.
func (r Result) WithMetadata(k string, v any) Result {
	meta := make(map[string]any, len(r.Metadata)+1)
	for mk, mv := range r.Metadata {
		meta[mk] = mv
	}
	meta[k] = v
	r.Metadata = meta
	return r
}

// Enrich stamps source/timestamp metadata the way invokeWithRetry does for
// every handler result (spec.md §4.8 "Handler result metadata is enriched").
func (r Result) Enrich(source string, at time.Time) Result {
	return r.WithMetadata("source", source).WithMetadata("timestamp", at)
}

// Invoker is the evaluator-provided callback a handler uses to evaluate a
// dependency node, memoized and retried the same way the top-level
// evaluate() call is (spec.md §4.7.2 "invoking its root pseudo-node handler
// via invoker.invoke").
type Invoker interface {
	Invoke(ctx context.Context, id ids.ID, ec evalctx.EvaluationContext) Result
}

// RuntimeHooks is the per-invocation bundle bound to one node ID, exposing
// the capability a handler needs to extend the compiled program (spec.md
// §4.8 "ThunkRuntimeHooks"). RegisterYieldInstance clones the AST subtree
// rooted at templateID with fresh runtime IDs, registers the clones (and
// their handlers) into the request overlay, wires them, and returns the new
// root's ID — used by IterateHandler to give every loop element its own
// cache identity (spec.md §4.7.2).
type RuntimeHooks struct {
	NodeID                ids.ID
	RegisterYieldInstance func(templateID ids.ID, parentID ids.ID) (ids.ID, error)
}

// Handler is the common evaluation contract (spec.md §4.7): a node is
// either sync (EvaluateSync only is meaningful), async (EvaluateAsync
// only), or hybrid (both, dispatched on IsAsync).
type Handler interface {
	NodeID() ids.ID
	IsAsync() bool
	EvaluateSync(ec evalctx.EvaluationContext, invoker Invoker, hooks RuntimeHooks) Result
	EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker Invoker, hooks RuntimeHooks) Result
}

// SyncFunc adapts a plain function into the sync half of Handler.
type SyncFunc func(ec evalctx.EvaluationContext, invoker Invoker, hooks RuntimeHooks) Result

// BaseHandler implements the sync/async split for a handler that is purely
// synchronous: EvaluateAsync simply calls EvaluateSync. The handlers in
// internal/handlers do not use it; each implements Handler directly.
type BaseHandler struct {
	ID ids.ID
	Fn SyncFunc
}

func (h BaseHandler) NodeID() ids.ID   { return h.ID }
func (h BaseHandler) IsAsync() bool    { return false }
func (h BaseHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker Invoker, hooks RuntimeHooks) Result {
	return h.Fn(ec, invoker, hooks)
}
func (h BaseHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker Invoker, hooks RuntimeHooks) Result {
	return h.Fn(ec, invoker, hooks)
}
