// Package lifecycle implements the external collaborator spec.md §4.10
// carves out of the core evaluator: given a request path and an
// HTTP-shaped request bundle, it resolves the target Step, stamps the
// per-request isCurrentStep/isAncestorOfStep metadata flags the structure
// handlers gate on, runs onAccess guards and onLoad effects in ancestry
// order, evaluates the rendered form, and — on submission — runs the
// step's onSubmission transition. It owns none of the core's invariants
// itself; it only sequences calls to evaluator.Evaluator the way a real
// HTTP handler would (spec.md §5 "single-threaded cooperative per
// request").
package lifecycle

import (
	"context"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/compiler"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/evaluator"
	"github.com/cwbudde/go-formengine/internal/handlers"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/normalize"
	"github.com/cwbudde/go-formengine/internal/thunk"
)

// Coordinator interprets one compiled Program from the perspective of a
// single HTTP request. It carries no per-request state of its own — every
// call to Handle builds a fresh Evaluator and overlay, discarded when the
// call returns (spec.md §3.3 "Evaluation creates a fresh overlay and cache
// for each HTTP request").
type Coordinator struct {
	Program *compiler.Program
}

// New builds a Coordinator over a compiled program.
func New(program *compiler.Program) *Coordinator {
	return &Coordinator{Program: program}
}

// Outcome bundles everything a single request can produce: an access
// denial (with redirect/message), the rendered journey, and — for a
// submission — the submit transition's own result (spec.md §4.7.4, §4.7.6).
type Outcome struct {
	AccessDenied bool
	Redirect     []any
	Message      any
	Render       thunk.Result
	Submit       *thunk.Result
}

// ResolveStep finds the compiled Step whose effective route (its own path
// joined with every ancestor Journey's path) equals routePath.
func ResolveStep(program *compiler.Program, routePath string) (*ast.Step, bool) {
	for _, n := range program.Nodes.ByKind(ast.KindStep) {
		step := n.(*ast.Step)
		if compiler.EffectivePath(program.Nodes, step) == routePath {
			return step, true
		}
	}
	return nil, false
}

// Handle resolves routePath to a Step, runs its onAccess guards, then its
// onLoad effects, evaluates the journey, and — when submit is true — runs
// the step's onSubmission transition (spec.md §4.10). submit is the
// caller's own classification of the HTTP method (POST vs GET); this
// package does not parse transport concerns.
func (c *Coordinator) Handle(ctx context.Context, routePath string, req evalctx.EvaluationRequest, functions evalctx.FunctionRegistry, submit bool) (Outcome, error) {
	step, ok := ResolveStep(c.Program, routePath)
	if !ok {
		return Outcome{}, engineerr.New(engineerr.Invalid, "no step resolves to route %q", routePath)
	}

	eval := evaluator.New(c.Program)
	stampStepFlags(eval, step.ID())
	ec := eval.CreateContext(req, functions)

	for _, id := range onAccessChain(eval, step.ID()) {
		result := eval.Invoke(ctx, id, ec)
		if result.Error != nil {
			return Outcome{}, result.Error
		}
		out, _ := result.Value.(map[string]any)
		if allowed, _ := out["allowed"].(bool); !allowed {
			redirect, _ := out["redirect"].([]any)
			return Outcome{AccessDenied: true, Redirect: redirect, Message: out["message"]}, nil
		}
	}

	onLoad, _ := eval.Overlay.Metadata.Get(step.ID(), normalize.OnLoadChainMetaKey)
	for _, id := range asIDList(onLoad) {
		if result := eval.Invoke(ctx, id, ec); result.Error != nil {
			return Outcome{}, result.Error
		}
	}

	_, render := eval.Evaluate(ctx, ec)
	if render.Error != nil {
		return Outcome{}, render.Error
	}
	outcome := Outcome{Render: render}

	if submit {
		for _, id := range step.OnSubmission {
			result := eval.Invoke(ctx, id, ec)
			outcome.Submit = &result
			if result.Error != nil {
				return outcome, result.Error
			}
		}
	}

	return outcome, nil
}

// stampStepFlags marks step as the active step and every node in its
// precomputed scope chain (its Journey/Step/Block ancestry) as an ancestor
// of the active step, the way a real request binds isCurrentStep /
// isAncestorOfStep before JourneyHandler and StepHandler consult them
// (spec.md §4.7.5). These flags live only in the overlay — the compiled
// base is never stamped, so they never leak across requests.
func stampStepFlags(eval *evaluator.Evaluator, stepID ids.ID) {
	eval.Overlay.Metadata.Set(stepID, handlers.IsCurrentStepMetaKey, true)
	chain, _ := eval.Overlay.Metadata.Get(stepID, normalize.ScopeChainMetaKey)
	for _, id := range asIDList(chain) {
		if id == stepID {
			continue
		}
		eval.Overlay.Metadata.Set(id, handlers.IsAncestorOfStepMetaKey, true)
	}
}

// onAccessChain returns every ancestor's (root-first) onAccess transition
// IDs, the Journey/Step analogue of normalize.ScopeIndex's precomputed
// onLoad chain — access guards run outside-in the same way onLoad effects
// do (spec.md §4.4 invariant 4, extended to the access transition).
func onAccessChain(eval *evaluator.Evaluator, stepID ids.ID) []ids.ID {
	chain, _ := eval.Overlay.Metadata.Get(stepID, normalize.ScopeChainMetaKey)
	var out []ids.ID
	for _, id := range asIDList(chain) {
		n, ok := eval.Overlay.Nodes.Get(id)
		if !ok {
			continue
		}
		switch t := n.(type) {
		case *ast.Journey:
			out = append(out, t.OnAccess...)
		case *ast.Step:
			out = append(out, t.OnAccess...)
		}
	}
	return out
}

func asIDList(v any) []ids.ID {
	list, _ := v.([]ids.ID)
	return list
}
