package lifecycle

import (
	"context"
	"testing"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/compiler"
	"github.com/cwbudde/go-formengine/internal/evalctx"
)

// journeyWithTransitions adds an onLoad and a guardless onAccess transition
// to the step, exercising Handle's ancestry-ordered transition sequencing
// without pulling in a Predicate/Reference chain.
const journeyWithTransitions = `{
	"type": "Structure.Journey",
	"code": "signup",
	"path": "/signup",
	"title": "Signup",
	"steps": [
		{
			"type": "Structure.Step",
			"path": "/start",
			"isEntryPoint": true,
			"onLoad": [{"type": "Transition.Load"}],
			"onAccess": [{"type": "Transition.Access"}],
			"blocks": [
				{
					"type": "Structure.Field",
					"code": "email",
					"label": "Email"
				}
			]
		}
	]
}`

type noFunctions struct{}

func (noFunctions) Lookup(ast.FunctionType, string) (evalctx.FunctionEntry, bool) {
	return evalctx.FunctionEntry{}, false
}

func mustCompile(t *testing.T, doc string) *compiler.Program {
	t.Helper()
	program, err := compiler.Compile(doc)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	return program
}

func TestResolveStepFindsEffectiveRoute(t *testing.T) {
	program := mustCompile(t, journeyWithTransitions)
	step, ok := ResolveStep(program, "/signup/start")
	if !ok {
		t.Fatalf("ResolveStep did not find /signup/start")
	}
	if step.Path != "/start" {
		t.Errorf("step.Path = %q, want %q", step.Path, "/start")
	}
}

func TestResolveStepMissesUnknownRoute(t *testing.T) {
	program := mustCompile(t, journeyWithTransitions)
	if _, ok := ResolveStep(program, "/nowhere"); ok {
		t.Errorf("ResolveStep unexpectedly resolved an unknown route")
	}
}

func TestHandleRendersActiveStep(t *testing.T) {
	program := mustCompile(t, journeyWithTransitions)
	coord := New(program)

	outcome, err := coord.Handle(context.Background(), "/signup/start", evalctx.EvaluationRequest{}, noFunctions{}, false)
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if outcome.AccessDenied {
		t.Fatalf("Handle denied access for a guardless onAccess transition")
	}
	if outcome.Render.Error != nil {
		t.Fatalf("Handle's render result carries an error: %v", outcome.Render.Error)
	}
	journeyOut, ok := outcome.Render.Value.(map[string]any)
	if !ok {
		t.Fatalf("render value is %T, want map[string]any", outcome.Render.Value)
	}
	steps, _ := journeyOut["steps"].([]any)
	if len(steps) != 1 {
		t.Fatalf("rendered journey has %d steps, want 1 (the stamped current step)", len(steps))
	}
	step, ok := steps[0].(map[string]any)
	if !ok {
		t.Fatalf("step render is %T, want map[string]any", steps[0])
	}
	if active, _ := step["active"].(bool); !active {
		t.Errorf(`step["active"] = %v, want true`, step["active"])
	}
}

func TestHandleUnknownRouteFails(t *testing.T) {
	program := mustCompile(t, journeyWithTransitions)
	coord := New(program)

	if _, err := coord.Handle(context.Background(), "/nowhere", evalctx.EvaluationRequest{}, noFunctions{}, false); err == nil {
		t.Fatalf("Handle did not fail for an unresolvable route")
	}
}

func TestHandleSkipsSubmissionWhenNotSubmitting(t *testing.T) {
	program := mustCompile(t, journeyWithTransitions)
	coord := New(program)

	outcome, err := coord.Handle(context.Background(), "/signup/start", evalctx.EvaluationRequest{}, noFunctions{}, false)
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if outcome.Submit != nil {
		t.Errorf("outcome.Submit = %v, want nil when submit=false", outcome.Submit)
	}
}
