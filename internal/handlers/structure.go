package handlers

import (
	"context"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/thunk"
)

// Metadata keys the lifecycle coordinator stamps per request onto the
// current step and the nodes of its scope chain, so structure handlers can
// gate evaluation without re-walking the scope chain (spec.md §4.7.5).
const (
	IsCurrentStepMetaKey    = "isCurrentStep"
	IsAncestorOfStepMetaKey = "isAncestorOfStep"
)

// evalProperties evaluates every declared property of a node generically,
// for handlers (Block, Field) that have no further typed behaviour of their
// own beyond surfacing their evaluated property bag (spec.md §4.7.5).
func evalProperties(ctx context.Context, invoker thunk.Invoker, ec evalctx.EvaluationContext, props map[string]ast.PropValue) (map[string]any, *thunk.Error) {
	out := make(map[string]any, len(props))
	for k, v := range props {
		val, err := evalValue(ctx, invoker, ec, v)
		if err != nil {
			return out, err
		}
		out[k] = val
	}
	return out, nil
}

// JourneyHandler evaluates a journey's structural properties (spec.md
// §4.7.5). When the journey is itself an ancestor of the current step
// (IsAncestorOfStepMetaKey), it evaluates every property but its
// transitions (onLoad/onAccess); otherwise it evaluates only the static
// navigational set named by the same section. Steps and Children are
// always walked in full — each StepHandler's own isCurrentStep/
// isAncestorOfStep gating decides how much of its own content renders.
type JourneyHandler struct{ Node *ast.Journey }

func (h *JourneyHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *JourneyHandler) IsAsync() bool  { return false }

func (h *JourneyHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *JourneyHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ctx := context.Background()

	steps, err := evalNodeList(ctx, invoker, ec, h.Node.Steps)
	if err != nil {
		return thunk.Fail(err)
	}
	children, err := evalNodeList(ctx, invoker, ec, h.Node.Children)
	if err != nil {
		return thunk.Fail(err)
	}
	metadata, err := evalProperties(ctx, invoker, ec, h.Node.Metadata)
	if err != nil {
		return thunk.Fail(err)
	}

	out := map[string]any{
		"code":        h.Node.Code,
		"path":        h.Node.Path,
		"title":       h.Node.Title,
		"description": derefString(h.Node.Description),
		"children":    children,
		"steps":       steps,
		"metadata":    metadata,
	}

	if !ec.Metadata.GetBool(h.Node.ID(), IsAncestorOfStepMetaKey) {
		return thunk.Ok(out)
	}

	view, err := evalValue(ctx, invoker, ec, h.Node.View)
	if err != nil {
		return thunk.Fail(err)
	}
	data, err := evalValue(ctx, invoker, ec, h.Node.Data)
	if err != nil {
		return thunk.Fail(err)
	}
	out["entryPath"] = derefString(h.Node.EntryPath)
	out["view"] = view
	out["data"] = data
	return thunk.Ok(out)
}

// StepHandler evaluates a step's structural properties (spec.md §4.7.5).
// When the step is the current step or an ancestor of it, it evaluates
// every property but its transitions (onLoad/onAccess/onAction/
// onSubmission); otherwise it evaluates only the static navigational set
// named by the same section. `blocks` is evaluated in both branches.
type StepHandler struct{ Node *ast.Step }

func (h *StepHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *StepHandler) IsAsync() bool  { return false }

func (h *StepHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *StepHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ctx := context.Background()

	blocks, err := evalNodeList(ctx, invoker, ec, h.Node.Blocks)
	if err != nil {
		return thunk.Fail(err)
	}
	metadata, err := evalProperties(ctx, invoker, ec, h.Node.Metadata)
	if err != nil {
		return thunk.Fail(err)
	}

	active := ec.Metadata.GetBool(h.Node.ID(), IsCurrentStepMetaKey)
	ancestor := active || ec.Metadata.GetBool(h.Node.ID(), IsAncestorOfStepMetaKey)

	out := map[string]any{
		"path":         h.Node.Path,
		"title":        derefString(h.Node.Title),
		"isEntryPoint": h.Node.IsEntryPoint,
		"description":  derefString(h.Node.Description),
		"blocks":       blocks,
		"metadata":     metadata,
		"active":       active,
	}

	if !ancestor {
		return thunk.Ok(out)
	}

	view, err := evalValue(ctx, invoker, ec, h.Node.View)
	if err != nil {
		return thunk.Fail(err)
	}
	out["view"] = view
	return thunk.Ok(out)
}

// evalNodeList evaluates every node in ids, in order.
func evalNodeList(ctx context.Context, invoker thunk.Invoker, ec evalctx.EvaluationContext, list []ids.ID) ([]any, *thunk.Error) {
	var out []any
	for _, id := range list {
		r := evalNode(ctx, invoker, ec, id)
		if r.Error != nil {
			return nil, r.Error
		}
		out = append(out, r.Value)
	}
	return out, nil
}

// derefString returns the dereferenced value of an optional string
// property, or nil when unset.
func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// BlockHandler evaluates every declared property generically — a plain
// content block carries no behaviour beyond its own properties (spec.md
// §4.7.5).
type BlockHandler struct{ Node *ast.Block }

func (h *BlockHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *BlockHandler) IsAsync() bool  { return false }

func (h *BlockHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *BlockHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ctx := context.Background()
	var children []any
	for _, id := range h.Node.Children {
		r := evalNode(ctx, invoker, ec, id)
		if r.Error != nil {
			return r
		}
		children = append(children, r.Value)
	}
	extra, err := evalProperties(ctx, invoker, ec, h.Node.Extra)
	if err != nil {
		return thunk.Fail(err)
	}
	return thunk.Ok(map[string]any{"variant": h.Node.Variant, "children": children, "extra": extra})
}

// FieldHandler evaluates a field's value, label, hint, and validation
// state, suppressing its value when `dependent` evaluates falsy (spec.md
// §4.7.5).
type FieldHandler struct{ Node *ast.FieldBlock }

func (h *FieldHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *FieldHandler) IsAsync() bool  { return false }

func (h *FieldHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *FieldHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	ctx := context.Background()

	code, err := evalValue(ctx, invoker, ec, h.Node.Code)
	if err != nil {
		return thunk.Fail(err)
	}

	dependent := true
	if !h.Node.Dependent.IsZero() {
		val, err := evalValue(ctx, invoker, ec, h.Node.Dependent)
		if err != nil {
			return thunk.Fail(err)
		}
		dependent = truthy(val)
	}
	if !dependent {
		return thunk.Ok(map[string]any{"code": code, "dependent": false})
	}

	value, err := evalValue(ctx, invoker, ec, h.Node.Value)
	if err != nil {
		return thunk.Fail(err)
	}
	label, err := evalValue(ctx, invoker, ec, h.Node.Label)
	if err != nil {
		return thunk.Fail(err)
	}
	hint, err := evalValue(ctx, invoker, ec, h.Node.Hint)
	if err != nil {
		return thunk.Fail(err)
	}

	var failures []any
	for _, id := range h.Node.Validate {
		r := evalNode(ctx, invoker, ec, id)
		if r.Error != nil {
			return r
		}
		if r.Value != nil {
			failures = append(failures, r.Value)
		}
	}

	extra, err := evalProperties(ctx, invoker, ec, h.Node.Extra)
	if err != nil {
		return thunk.Fail(err)
	}

	return thunk.Ok(map[string]any{
		"code":      code,
		"dependent": true,
		"value":     value,
		"label":     label,
		"hint":      hint,
		"failures":  failures,
		"extra":     extra,
	})
}
