package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/thunk"
)

// ReferenceHandler evaluates a path by invoking its root pseudo-node
// handler, then following remaining segments by property/index access
// (spec.md §4.7.2). References with no Root into the `@item`/`@index`
// scope frame are resolved directly from the scope stack; any other
// reference with no Root evaluates to nil.
type ReferenceHandler struct{ Node *ast.Reference }

func (h *ReferenceHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *ReferenceHandler) IsAsync() bool  { return false }

func (h *ReferenceHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *ReferenceHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ctx := context.Background()
	path := h.Node.Path
	var cur any
	startIdx := 0

	if h.Node.Root != "" {
		root := evalNode(ctx, invoker, ec, h.Node.Root)
		if root.Error != nil {
			// spec.md §5: references treat a failed dependency as undefined.
			return thunk.Ok(nil)
		}
		cur = root.Value
		startIdx = 2 // first two segments (namespace, base code) select the pseudo node itself
	} else if len(path) > 0 && path[0].Literal == "item" {
		frame, ok := ec.CurrentScope()
		if !ok || !frame.HasItem {
			return thunk.Ok(nil)
		}
		cur = frame.Item
		startIdx = 1
	} else if len(path) > 0 && path[0].Literal == "index" {
		frame, ok := ec.CurrentScope()
		if !ok {
			return thunk.Ok(nil)
		}
		return thunk.Ok(frame.Index)
	} else {
		return thunk.Ok(nil)
	}

	for i := startIdx; i < len(path); i++ {
		if cur == nil {
			return thunk.Ok(nil)
		}
		seg := path[i]
		key := seg.Literal
		if seg.IsNode() {
			r := evalNode(ctx, invoker, ec, seg.NodeID)
			if r.Error != nil {
				// spec.md §5: references treat a failed dependency as undefined.
				return thunk.Ok(nil)
			}
			key = fmt.Sprint(r.Value)
		}
		cur = accessSegment(cur, key)
	}
	return thunk.Ok(cur)
}

func accessSegment(cur any, key string) any {
	switch c := cur.(type) {
	case map[string]any:
		v, ok := c[key]
		if !ok {
			return nil
		}
		return v
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil
		}
		return c[idx]
	default:
		return nil
	}
}

// FormatHandler evaluates arguments concurrently and performs %N
// substitution on the template (spec.md §4.7.2, §5 "arguments ... evaluated
// concurrently; no ordering guarantee among them").
type FormatHandler struct{ Node *ast.Format }

func (h *FormatHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *FormatHandler) IsAsync() bool  { return false }

func (h *FormatHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *FormatHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ctx := context.Background()
	values, firstErr := evalArgsConcurrently(ctx, invoker, ec, h.Node.Arguments)
	if firstErr != nil {
		return thunk.Fail(firstErr)
	}
	out := h.Node.Template
	for i, v := range values {
		out = strings.ReplaceAll(out, fmt.Sprintf("%%%d", i+1), fmt.Sprint(v))
	}
	return thunk.Ok(out)
}

func evalArgsConcurrently(ctx context.Context, invoker thunk.Invoker, ec evalctx.EvaluationContext, args []ids.ID) ([]any, *engineerr.EngineError) {
	out := make([]any, len(args))
	errs := make([]*engineerr.EngineError, len(args))
	var wg sync.WaitGroup
	for i, id := range args {
		wg.Add(1)
		go func(i int, id ids.ID) {
			defer wg.Done()
			r := evalNode(ctx, invoker, ec, id)
			out[i] = r.Value
			errs[i] = r.Error
		}(i, id)
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return out, e
		}
	}
	return out, nil
}

// FunctionHandler evaluates arguments, then calls the named function from
// the caller-supplied registry with a synthesised FunctionContext
// (spec.md §4.7.2, §6.3).
type FunctionHandler struct{ Node *ast.Function }

func (h *FunctionHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *FunctionHandler) IsAsync() bool  { return true }

func (h *FunctionHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	args, err := evalArgsConcurrently(ctx, invoker, ec, h.Node.Arguments)
	if err != nil {
		return thunk.Fail(err)
	}
	if ec.Functions == nil {
		return thunk.Fail(engineerr.New(engineerr.UnknownFunction, "no function registry configured"))
	}
	entry, ok := ec.Functions.Lookup(h.Node.FuncType, h.Node.Name)
	if !ok {
		return thunk.Fail(engineerr.New(engineerr.UnknownFunction, "unknown %s function %q", h.Node.FuncType, h.Node.Name))
	}
	fctx := evalctx.NewFunctionContext(&ec)
	value, callErr := entry.Evaluate(ctx, fctx, args...)
	if callErr != nil {
		return thunk.Fail(engineerr.New(engineerr.Evaluation, "function %q failed", h.Node.Name).WithCause(callErr))
	}
	return thunk.Ok(value)
}

func (h *FunctionHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateAsync(context.Background(), ec, invoker, hooks)
}

// NextHandler resolves a navigation target, gated by an optional `when`
// (spec.md §4.7.2).
type NextHandler struct{ Node *ast.Next }

func (h *NextHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *NextHandler) IsAsync() bool  { return false }

func (h *NextHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *NextHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ctx := context.Background()
	if h.Node.When != "" {
		ok, err := evalBool(ctx, invoker, ec, h.Node.When)
		if err != nil {
			return thunk.Fail(err)
		}
		if !ok {
			return thunk.Ok(nil)
		}
	}
	value, err := evalValue(ctx, invoker, ec, h.Node.Goto)
	if err != nil {
		return thunk.Fail(err)
	}
	return thunk.Ok(value)
}

// ValidationHandler emits a validation error record when `when` evaluates
// truthy, suppressed outside submission transitions in submission-only mode
// (spec.md §4.7.2).
type ValidationHandler struct{ Node *ast.Validation }

func (h *ValidationHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *ValidationHandler) IsAsync() bool  { return false }

func (h *ValidationHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *ValidationHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ctx := context.Background()
	if h.Node.SubmissionOnly && ec.TransitionType != "submit" {
		return thunk.Ok(nil)
	}
	failed, err := evalBool(ctx, invoker, ec, h.Node.When)
	if err != nil {
		return thunk.Fail(err)
	}
	if !failed {
		return thunk.Ok(nil)
	}
	message, err := evalValue(ctx, invoker, ec, h.Node.Message)
	if err != nil {
		return thunk.Fail(err)
	}
	details, err := evalValue(ctx, invoker, ec, h.Node.Details)
	if err != nil {
		return thunk.Fail(err)
	}
	return thunk.Ok(map[string]any{"message": message, "details": details})
}

// IterateHandler expands a yield template once per element of `input`,
// registering fresh runtime clones per element into the overlay
// (spec.md §4.7.2).
type IterateHandler struct{ Node *ast.Iterate }

func (h *IterateHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *IterateHandler) IsAsync() bool  { return false }

func (h *IterateHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *IterateHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ctx := context.Background()
	inputResult := evalNode(ctx, invoker, ec, h.Node.Input)
	if inputResult.Error != nil {
		return inputResult
	}
	elements, ok := inputResult.Value.([]any)
	if !ok {
		return thunk.Ok([]any{})
	}

	out := make([]any, 0, len(elements))
	for index, element := range elements {
		frame := evalctx.ScopeFrame{Item: element, Index: index, HasItem: true}
		elemCtx := ec.PushScope(frame)

		newRoots := make([]ids.ID, 0, len(h.Node.Yield))
		for _, templateID := range h.Node.Yield {
			newRoot, err := hooks.RegisterYieldInstance(templateID, h.Node.ID())
			if err != nil {
				return thunk.Fail(engineerr.New(engineerr.Evaluation, "iterate: instantiating yield template").WithCause(err).WithNode(h.Node.ID()))
			}
			newRoots = append(newRoots, newRoot)
		}

		values := make([]any, 0, len(newRoots))
		for _, rootID := range newRoots {
			r := evalNode(ctx, invoker, elemCtx, rootID)
			if r.Error != nil {
				return r
			}
			values = append(values, r.Value)
		}
		if len(values) == 1 {
			out = append(out, values[0])
		} else {
			out = append(out, values)
		}
	}
	return thunk.Ok(out)
}
