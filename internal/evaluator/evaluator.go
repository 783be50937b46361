// Package evaluator implements the lazy, memoized evaluator (spec.md §4.8,
// component C12): memoized lookup, handler dispatch, version-counter retry,
// rooted at the journey node located by the compiler.
package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/cwbudde/go-formengine/internal/compiler"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/handlers"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/overlay"
	"github.com/cwbudde/go-formengine/internal/registry"
	"github.com/cwbudde/go-formengine/internal/thunk"
	"github.com/cwbudde/go-formengine/internal/wiring"
)

// DefaultMaxRetries is the retry cap invokeWithRetry enforces when no
// override is configured (spec.md §4.8 "maxRetries=10").
const DefaultMaxRetries = 10

// Evaluator walks a compiled Program through its per-request Overlay,
// invoking handlers on demand with memoization and version-counter retry.
// One Evaluator serves exactly one request; it is never shared or reused
// across requests (spec.md §5 "Shared resource policy").
type Evaluator struct {
	Program    *compiler.Program
	Overlay    *overlay.Overlay
	MaxRetries int

	// OnRetry and OnInvalidate are nil-safe instrumentation hooks a test or
	// embedder can set to observe retry/invalidation counts without the
	// evaluator depending on any telemetry package (SPEC_FULL.md §12).
	OnRetry      func(nodeID ids.ID, attempt int)
	OnInvalidate func(nodeID ids.ID)
}

// New builds an Evaluator over program with a fresh request-scoped overlay.
func New(program *compiler.Program) *Evaluator {
	o := overlay.New(program.Nodes, program.Metadata, program.Handlers, program.Graph, wireFunc(program.Wiring))
	return &Evaluator{Program: program, Overlay: o, MaxRetries: DefaultMaxRetries}
}

// wireFunc binds the compiler's wiring.Manager into the overlay's
// WireFunc seam (spec.md §4.6 "wireNodes(ids) scoped pass"), so that nodes
// registered mid-evaluation (IterateHandler's yield instances) get the same
// STRUCTURAL/DATA_FLOW edges compile-time nodes of their kind would.
func wireFunc(manager *wiring.Manager) overlay.WireFunc {
	return func(o *overlay.Overlay, newIDs []ids.ID) error {
		ctx := &wiring.Context{Nodes: o.Nodes, Graph: o.Graph}
		return manager.WireNodes(ctx, newIDs)
	}
}

// CreateContext builds the per-request EvaluationContext bound to this
// evaluator's overlay views (spec.md §4.10 "evaluator.createContext").
func (e *Evaluator) CreateContext(req evalctx.EvaluationRequest, functions evalctx.FunctionRegistry) evalctx.EvaluationContext {
	return evalctx.EvaluationContext{
		Request:   req,
		Nodes:     e.Overlay.Nodes,
		Metadata:  e.Overlay.Metadata,
		Functions: functions,
	}
}

// Evaluate invokes the journey root and returns the resulting rendering
// artefact (spec.md §4.8 "evaluate(context) -> (context, journeyResult)").
func (e *Evaluator) Evaluate(ctx context.Context, ec evalctx.EvaluationContext) (evalctx.EvaluationContext, thunk.Result) {
	return ec, e.Invoke(ctx, e.Program.Root, ec)
}

// Invoke runs a single node (a transition, for the lifecycle coordinator's
// onAccess/onLoad/onSubmission calls, or the journey root for Evaluate).
// Evaluator satisfies thunk.Invoker through this method, so handlers
// recursively evaluating a dependency (ReferenceHandler, AndHandler, ...)
// go through the exact same memoized, retried path as the top-level call
// (spec.md §4.7.2 "invoker.invoke").
func (e *Evaluator) Invoke(ctx context.Context, id ids.ID, ec evalctx.EvaluationContext) thunk.Result {
	return e.invokeWithRetry(ctx, id, ec)
}

func (e *Evaluator) invokeWithRetry(ctx context.Context, id ids.ID, ec evalctx.EvaluationContext) thunk.Result {
	if cached, ok := e.Overlay.Cache.Get(id); ok {
		return cached
	}

	raw, ok := e.Overlay.Handlers.Get(id)
	if !ok {
		result := thunk.Fail(engineerr.New(engineerr.HandlerNotFound, "no handler registered for node %s", id).WithNode(id))
		e.Overlay.Cache.Set(id, result)
		return result
	}
	handler, ok := raw.(thunk.Handler)
	if !ok {
		result := thunk.Fail(engineerr.New(engineerr.HandlerNotFound, "handler for %s does not satisfy the thunk contract", id).WithNode(id))
		e.Overlay.Cache.Set(id, result)
		return result
	}

	maxRetries := e.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		versionStart := e.Overlay.Cache.GetVersion(id)
		hooks := e.hooksFor(id)

		var result thunk.Result
		if handler.IsAsync() {
			result = handler.EvaluateAsync(ctx, ec, e, hooks)
		} else {
			result = handler.EvaluateSync(ec, e, hooks)
		}
		result = result.Enrich(fmt.Sprintf("%T", handler), time.Now())

		if e.Overlay.Cache.GetVersion(id) == versionStart {
			e.Overlay.Cache.Set(id, result)
			return result
		}

		e.Overlay.Cache.Delete(id)
		if e.OnInvalidate != nil {
			e.OnInvalidate(id)
		}
		if e.OnRetry != nil {
			e.OnRetry(id, attempt+1)
		}
	}

	result := thunk.Fail(engineerr.New(engineerr.MaxRetriesExceeded, "node %s exceeded retry budget of %d", id, maxRetries).WithNode(id))
	e.Overlay.Cache.Set(id, result)
	return result
}

// hooksFor builds the per-invocation RuntimeHooks bound to id, binding
// RegisterYieldInstance to this evaluator's overlay (spec.md §4.8
// "ThunkRuntimeHooks bound to this node ID").
func (e *Evaluator) hooksFor(id ids.ID) thunk.RuntimeHooks {
	return thunk.RuntimeHooks{
		NodeID: id,
		RegisterYieldInstance: func(templateID, parentID ids.ID) (ids.ID, error) {
			return e.registerYieldInstance(templateID, parentID)
		},
	}
}

// registerYieldInstance clones the yield template rooted at templateID with
// fresh runtime IDs, builds a handler for every clone, and registers the
// batch into the overlay — giving each loop element its own cache identity
// (spec.md §4.7.2 IterateHandler).
func (e *Evaluator) registerYieldInstance(templateID, parentID ids.ID) (ids.ID, error) {
	newRoot, created, err := handlers.CloneSubtree(e.Overlay.Nodes, e.Overlay.Gen, templateID, parentID)
	if err != nil {
		return "", err
	}

	paths := make([][]string, len(created))
	handlerMap := make(map[ids.ID]registry.Handler, len(created))
	for i, n := range created {
		paths[i] = []string{"$runtime", string(n.ID())}
		h, err := handlers.HandlerForClone(n)
		if err != nil {
			return "", err
		}
		handlerMap[n.ID()] = h
	}

	if err := e.Overlay.RegisterRuntimeNodesBatch(created, paths, handlerMap); err != nil {
		return "", err
	}
	return newRoot, nil
}
