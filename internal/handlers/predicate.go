package handlers

import (
	"context"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/thunk"
)

// AndHandler short-circuits on the first falsy (or failing) operand; an
// empty operand list is vacuously true (spec.md §4.7.3).
type AndHandler struct{ Node *ast.And }

func (h *AndHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *AndHandler) IsAsync() bool  { return false }

func (h *AndHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *AndHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ctx := context.Background()
	for _, id := range h.Node.Operands {
		ok, err := evalBool(ctx, invoker, ec, id)
		if err != nil {
			// spec.md §4.7.3: a failed operand evaluation resolves to false.
			return thunk.Ok(false)
		}
		if !ok {
			return thunk.Ok(false)
		}
	}
	return thunk.Ok(true)
}

// OrHandler short-circuits on the first truthy operand; an empty operand
// list is vacuously false (spec.md §4.7.3).
type OrHandler struct{ Node *ast.Or }

func (h *OrHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *OrHandler) IsAsync() bool  { return false }

func (h *OrHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *OrHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ctx := context.Background()
	for _, id := range h.Node.Operands {
		ok, err := evalBool(ctx, invoker, ec, id)
		if err != nil {
			// spec.md §4.7.3: failures do not terminate; keep looking for a
			// truthy operand.
			continue
		}
		if ok {
			return thunk.Ok(true)
		}
	}
	return thunk.Ok(false)
}

// NotHandler negates its single operand (spec.md §4.7.3).
type NotHandler struct{ Node *ast.Not }

func (h *NotHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *NotHandler) IsAsync() bool  { return false }

func (h *NotHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *NotHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ok, err := evalBool(context.Background(), invoker, ec, h.Node.Operand)
	if err != nil {
		// spec.md §4.7.3/§5: predicates treat a failed operand as falsy.
		ok = false
	}
	return thunk.Ok(!ok)
}

// TestHandler evaluates `subject`, passes it as the first argument to the
// CONDITION function referenced by `condition`, and XORs the outcome with
// `negate` (spec.md §4.7.3).
type TestHandler struct{ Node *ast.Test }

func (h *TestHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *TestHandler) IsAsync() bool  { return true }

func (h *TestHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateAsync(context.Background(), ec, invoker, hooks)
}

func (h *TestHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	// spec.md §4.7.3/§5: a failed subject evaluation is treated as falsy
	// (undefined), not propagated as a failure of the whole test.
	subjectResult := evalNode(ctx, invoker, ec, h.Node.Subject)
	var subjectValue any
	if subjectResult.Error == nil {
		subjectValue = subjectResult.Value
	}

	conditionNode, ok := ec.Nodes.Get(h.Node.Condition)
	if !ok {
		return thunk.Fail(engineerr.New(engineerr.HandlerNotFound, "test: condition node %s not found", h.Node.Condition).WithNode(h.Node.ID()))
	}
	fn, ok := conditionNode.(*ast.Function)
	if !ok {
		return thunk.Fail(engineerr.New(engineerr.Invalid, "test: condition %s is not a Function node", h.Node.Condition).WithNode(h.Node.ID()))
	}
	if ec.Functions == nil {
		return thunk.Fail(engineerr.New(engineerr.UnknownFunction, "no function registry configured"))
	}
	entry, ok := ec.Functions.Lookup(ast.FunctionCondition, fn.Name)
	if !ok {
		return thunk.Fail(engineerr.New(engineerr.UnknownFunction, "unknown CONDITION function %q", fn.Name))
	}
	extraArgs, err := evalArgsConcurrently(ctx, invoker, ec, fn.Arguments)
	if err != nil {
		return thunk.Fail(err)
	}
	args := append([]any{subjectValue}, extraArgs...)

	fctx := evalctx.NewFunctionContext(&ec)
	outcome, callErr := entry.Evaluate(ctx, fctx, args...)
	if callErr != nil {
		return thunk.Fail(engineerr.New(engineerr.Evaluation, "condition %q failed", fn.Name).WithCause(callErr).WithNode(h.Node.ID()))
	}
	result := truthy(outcome)
	if h.Node.Negate {
		result = !result
	}
	return thunk.Ok(result)
}
