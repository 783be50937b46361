package handlers

import (
	"context"
	"strings"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/thunk"
)

// FieldNodeIDMetaKey is the MetadataRegistry key the compiler stamps onto
// Post pseudo-nodes once it has located their owning field block
// (spec.md §3.1 "MetadataRegistry ... flags such as fieldNodeId").
const FieldNodeIDMetaKey = "fieldNodeId"

// PostHandler reads a submitted form field (spec.md §4.7.1).
type PostHandler struct{ Node *ast.Post }

func (h *PostHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *PostHandler) IsAsync() bool  { return false }

func (h *PostHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *PostHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	if !isSafePropertyKey(h.Node.BaseFieldCode) {
		return securityViolation(h.Node.BaseFieldCode)
	}
	values, present := ec.Request.Post[h.Node.BaseFieldCode]

	multiple := false
	fieldID, hasField := ec.Metadata.Get(h.Node.ID(), FieldNodeIDMetaKey)
	if hasField {
		if fid, ok := fieldID.(ids.ID); ok {
			if fieldNode, ok := ec.Nodes.Get(fid); ok {
				if fb, ok := fieldNode.(*ast.FieldBlock); ok {
					val, err := evalValue(context.Background(), invoker, ec, fb.Multiple)
					if err != nil {
						return thunk.Fail(err)
					}
					multiple = truthy(val)
				}
			}
		}
	}

	if multiple {
		if !present || values == nil {
			return thunk.Ok([]any{})
		}
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v
		}
		return thunk.Ok(out)
	}

	if !present || len(values) == 0 {
		return thunk.Ok(nil)
	}
	if len(values) == 1 {
		return thunk.Ok(values[0])
	}
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return thunk.Ok(v)
		}
	}
	return thunk.Ok(values[0])
}

// QueryHandler reads a query-string parameter (spec.md §4.7.1).
type QueryHandler struct{ Node *ast.Query }

func (h *QueryHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *QueryHandler) IsAsync() bool  { return false }

func (h *QueryHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *QueryHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	if !isSafePropertyKey(h.Node.ParamName) {
		return securityViolation(h.Node.ParamName)
	}
	values, present := ec.Request.Query[h.Node.ParamName]
	if !present || len(values) == 0 {
		return thunk.Ok(nil)
	}
	return thunk.Ok(values[0])
}

// ParamsHandler reads a path parameter (spec.md §4.7.1).
type ParamsHandler struct{ Node *ast.Params }

func (h *ParamsHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *ParamsHandler) IsAsync() bool  { return false }

func (h *ParamsHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *ParamsHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	if !isSafePropertyKey(h.Node.ParamName) {
		return securityViolation(h.Node.ParamName)
	}
	v, present := ec.Request.Params[h.Node.ParamName]
	if !present {
		return thunk.Ok(nil)
	}
	return thunk.Ok(v)
}

// DataHandler reads an externally supplied dataset entry (spec.md §4.7.1).
type DataHandler struct{ Node *ast.Data }

func (h *DataHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *DataHandler) IsAsync() bool  { return false }

func (h *DataHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *DataHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	if !isSafePropertyKey(h.Node.BaseProperty) {
		return securityViolation(h.Node.BaseProperty)
	}
	if ec.Request.Metadata.Data == nil {
		return thunk.Ok(nil)
	}
	v, ok := ec.Request.Metadata.Data[h.Node.BaseProperty]
	if !ok {
		return thunk.Ok(nil)
	}
	return thunk.Ok(v)
}

// AnswerHandler consults the scope chain to read a locally computed value
// (the innermost `@item` iteration frame), else a previously persisted
// answer from the request's session store, else the first submitted post
// value for its code (spec.md §4.7.1). It never reads the owning field's
// own `value` property: after AddSelfValueToFields that property *is* a
// self-reference back to this very pseudo-node, so Answer must source its
// data independently of the field tree to avoid recursing into itself (see
// DESIGN.md, Handlers entry).
type AnswerHandler struct {
	Node ast.Node // *ast.Answer or *ast.AnswerRemote
	Code string
}

func (h *AnswerHandler) NodeID() ids.ID { return h.Node.ID() }
func (h *AnswerHandler) IsAsync() bool  { return false }

func (h *AnswerHandler) EvaluateAsync(ctx context.Context, ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	return h.EvaluateSync(ec, invoker, hooks)
}

func (h *AnswerHandler) EvaluateSync(ec evalctx.EvaluationContext, invoker thunk.Invoker, hooks thunk.RuntimeHooks) thunk.Result {
	if !isSafePropertyKey(h.Code) {
		return securityViolation(h.Code)
	}
	if frame, ok := ec.CurrentScope(); ok && frame.HasItem {
		if m, ok := frame.Item.(map[string]any); ok {
			if v, ok := m[h.Code]; ok {
				return thunk.Ok(v)
			}
		}
	}
	if session, ok := ec.Request.Metadata.Session.(map[string]any); ok {
		if answers, ok := session["answers"].(map[string]any); ok {
			if v, ok := answers[h.Code]; ok {
				return thunk.Ok(v)
			}
		}
	}
	if values, ok := ec.Request.Post[h.Code]; ok && len(values) > 0 {
		return thunk.Ok(values[0])
	}
	return thunk.Ok(nil)
}
