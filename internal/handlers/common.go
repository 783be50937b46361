// Package handlers implements the concrete thunk.Handler for every AST and
// pseudo-node kind (spec.md §4.7).
package handlers

import (
	"context"
	"regexp"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/thunk"
)

// safePropertyKey is the allowlist isSafePropertyKey checks untrusted
// property names against before they are used as request map keys
// (spec.md §4.7.1, error kind SecurityViolation).
var safePropertyKey = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.\-]*$`)

func isSafePropertyKey(key string) bool {
	return key != "" && safePropertyKey.MatchString(key)
}

func securityViolation(key string) thunk.Result {
	return thunk.Fail(engineerr.New(engineerr.SecurityViolation, "unsafe property key %q", key))
}

// evalNode invokes id through invoker and returns its raw result.
func evalNode(ctx context.Context, invoker thunk.Invoker, ec evalctx.EvaluationContext, id ids.ID) thunk.Result {
	if id == "" {
		return thunk.Ok(nil)
	}
	return invoker.Invoke(ctx, id, ec)
}

// truthy mirrors loose-truthiness over the dynamic evaluated values the
// engine produces: nil, false, 0, "", and empty slices/maps are falsy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// evalValue fully evaluates a PropValue, recursing into lists/maps and
// invoking node links, producing the plain Go value a result's Value field
// carries (spec.md §6.4).
func evalValue(ctx context.Context, invoker thunk.Invoker, ec evalctx.EvaluationContext, v ast.PropValue) (any, *engineerr.EngineError) {
	switch {
	case v.IsNode():
		r := evalNode(ctx, invoker, ec, v.NodeID)
		return r.Value, r.Error
	case v.List != nil:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			val, err := evalValue(ctx, invoker, ec, item)
			if err != nil {
				return out, err
			}
			out[i] = val
		}
		return out, nil
	case v.Map != nil:
		out := make(map[string]any, len(v.Map))
		for k, item := range v.Map {
			val, err := evalValue(ctx, invoker, ec, item)
			if err != nil {
				return out, err
			}
			out[k] = val
		}
		return out, nil
	default:
		return v.Scalar, nil
	}
}

// evalBool evaluates v and loosely coerces the result to a boolean.
func evalBool(ctx context.Context, invoker thunk.Invoker, ec evalctx.EvaluationContext, id ids.ID) (bool, *engineerr.EngineError) {
	if id == "" {
		return false, nil
	}
	r := evalNode(ctx, invoker, ec, id)
	if r.Error != nil {
		return false, r.Error
	}
	return truthy(r.Value), nil
}

// evalIDList evaluates a list of node IDs in order, stopping at the first
// error, and returns the collected values.
func evalIDList(ctx context.Context, invoker thunk.Invoker, ec evalctx.EvaluationContext, list []ids.ID) ([]any, *engineerr.EngineError) {
	out := make([]any, 0, len(list))
	for _, id := range list {
		r := evalNode(ctx, invoker, ec, id)
		if r.Error != nil {
			return out, r.Error
		}
		out = append(out, r.Value)
	}
	return out, nil
}
