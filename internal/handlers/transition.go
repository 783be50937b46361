package handlers

import (
	"context"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/thunk"
)

// runBranch evaluates a submission branch's effects in order, then resolves
// the first Next that yields a non-nil goto target (spec.md §4.7.4).
func runBranch(ctx context.Context, invoker thunk.Invoker, ec evalctx.EvaluationContext, effects, next []ids.ID) (map[string]any, *thunk.Error) {
	effectValues, err := evalIDList(ctx, invoker, ec, effects)
	if err != nil {
		return nil, err
	}
	var gotoValue any
	for _, id := range next {
		r := evalNode(ctx, invoker, ec, id)
		if r.Error != nil {
			return nil, r.Error
		}
		if r.Value != nil {
			gotoValue = r.Value
			break
		}
	}
	return map[string]any{"effects": effectValues, "goto": gotoValue}, nil
}

// LoadHandler runs a step/journey's onLoad effects and resolves navigation
// (spec.md §4.7.4).
type LoadHandler struct{ Node *ast.Load }

func (h *LoadHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *LoadHandler) IsAsync() bool  { return true }

func (h *LoadHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateAsync(context.Background(), ec, invoker, hooks)
}

func (h *LoadHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ec = ec.WithTransitionType("load")
	out, err := runBranch(ctx, invoker, ec, h.Node.Effects, h.Node.Next)
	if err != nil {
		return thunk.Fail(err)
	}
	return thunk.Ok(out)
}

// AccessHandler runs guards, then either the redirect/message path (guard
// failed) or effects + navigation (spec.md §4.7.4).
type AccessHandler struct{ Node *ast.Access }

func (h *AccessHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *AccessHandler) IsAsync() bool  { return true }

func (h *AccessHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateAsync(context.Background(), ec, invoker, hooks)
}

func (h *AccessHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ec = ec.WithTransitionType("access")

	if h.Node.Guards != "" {
		allowed, err := evalBool(ctx, invoker, ec, h.Node.Guards)
		if err != nil {
			return thunk.Fail(err)
		}
		if !allowed {
			message, err := evalValue(ctx, invoker, ec, h.Node.Message)
			if err != nil {
				return thunk.Fail(err)
			}
			redirectValues, err := evalIDList(ctx, invoker, ec, h.Node.Redirect)
			if err != nil {
				return thunk.Fail(err)
			}
			return thunk.Ok(map[string]any{"allowed": false, "message": message, "redirect": redirectValues})
		}
	}

	out, err := runBranch(ctx, invoker, ec, h.Node.Effects, h.Node.Next)
	if err != nil {
		return thunk.Fail(err)
	}
	out["allowed"] = true
	return thunk.Ok(out)
}

// SubmitHandler runs `when`-gated validation, then dispatches to the
// onValid or onInvalid branch (spec.md §4.7.4).
type SubmitHandler struct {
	Node       *ast.Submit
	Validators []ids.ID // the step's field Validate chains, collected at compile time
}

func (h *SubmitHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *SubmitHandler) IsAsync() bool  { return true }

func (h *SubmitHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateAsync(context.Background(), ec, invoker, hooks)
}

func (h *SubmitHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ec = ec.WithTransitionType("submit")

	if h.Node.When != "" {
		ok, err := evalBool(ctx, invoker, ec, h.Node.When)
		if err != nil {
			return thunk.Fail(err)
		}
		if !ok {
			return thunk.Ok(map[string]any{"skipped": true})
		}
	}

	var failures []any
	if h.Node.Validate {
		for _, id := range h.Validators {
			r := evalNode(ctx, invoker, ec, id)
			if r.Error != nil {
				return r
			}
			if r.Value != nil {
				failures = append(failures, r.Value)
			}
		}
	}

	branch := h.Node.OnValid
	valid := len(failures) == 0
	if !valid {
		branch = h.Node.OnInvalid
	}
	out, err := runBranch(ctx, invoker, ec, branch.Effects, branch.Next)
	if err != nil {
		return thunk.Fail(err)
	}
	out["valid"] = valid
	out["failures"] = failures
	return thunk.Ok(out)
}

// ActionHandler runs a `when`-gated side-effect transition with no
// navigation target of its own (spec.md §4.7.4).
type ActionHandler struct{ Node *ast.Action }

func (h *ActionHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *ActionHandler) IsAsync() bool  { return true }

func (h *ActionHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateAsync(context.Background(), ec, invoker, hooks)
}

func (h *ActionHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ec = ec.WithTransitionType("action")

	if h.Node.When != "" {
		ok, err := evalBool(ctx, invoker, ec, h.Node.When)
		if err != nil {
			return thunk.Fail(err)
		}
		if !ok {
			return thunk.Ok(map[string]any{"skipped": true})
		}
	}

	effectValues, err := evalIDList(ctx, invoker, ec, h.Node.Effects)
	if err != nil {
		return thunk.Fail(err)
	}
	return thunk.Ok(map[string]any{"effects": effectValues})
}
