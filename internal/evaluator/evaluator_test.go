package evaluator

import (
	"context"
	"testing"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/compiler"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/handlers"
	"github.com/cwbudde/go-formengine/internal/ids"
)

const minimalJourney = `{
	"type": "Structure.Journey",
	"code": "signup",
	"path": "/signup",
	"title": "Signup",
	"steps": [
		{
			"type": "Structure.Step",
			"path": "/start",
			"isEntryPoint": true,
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

func TestEvaluateRendersUnstampedStepUnexpanded(t *testing.T) {
	program := mustCompile(t, minimalJourney)
	eval := New(program)
	ec := eval.CreateContext(evalctx.EvaluationRequest{}, noFunctions{})

	_, result := eval.Evaluate(context.Background(), ec)
	if result.Error != nil {
		t.Fatalf("Evaluate returned error: %v", result.Error)
	}
	out, ok := result.Value.(map[string]any)
	if !ok {
		t.Fatalf("journey result is %T, want map[string]any", result.Value)
	}
	if out["code"] != "signup" {
		t.Errorf(`result["code"] = %v, want "signup"`, out["code"])
	}
	// spec.md §4.7.5: `steps` is a named structural property of Journey
	// regardless of the isAncestorOfStep branch — every step is walked,
	// but a step with neither isCurrentStep nor isAncestorOfStep set
	// renders only its reduced, inactive shape.
	steps, _ := out["steps"].([]any)
	if len(steps) != 1 {
		t.Fatalf("result[\"steps\"] has %d entries, want 1", len(steps))
	}
	step, ok := steps[0].(map[string]any)
	if !ok {
		t.Fatalf("step result is %T, want map[string]any", steps[0])
	}
	if active, _ := step["active"].(bool); active {
		t.Errorf(`step["active"] = %v, want false`, step["active"])
	}
	if _, hasView := step["view"]; hasView {
		t.Errorf("inactive step carries a \"view\" key, want it omitted")
	}
}

func TestEvaluateRendersStampedStep(t *testing.T) {
	program := mustCompile(t, minimalJourney)
	journey := mustNode(t, program, program.Root).(*ast.Journey)
	stepID := journey.Steps[0]

	eval := New(program)
	eval.Overlay.Metadata.Set(stepID, handlers.IsCurrentStepMetaKey, true)
	ec := eval.CreateContext(evalctx.EvaluationRequest{}, noFunctions{})

	_, result := eval.Evaluate(context.Background(), ec)
	if result.Error != nil {
		t.Fatalf("Evaluate returned error: %v", result.Error)
	}
	out := result.Value.(map[string]any)
	steps, _ := out["steps"].([]any)
	if len(steps) != 1 {
		t.Fatalf("result[\"steps\"] has %d entries, want 1", len(steps))
	}
	step, ok := steps[0].(map[string]any)
	if !ok {
		t.Fatalf("step result is %T, want map[string]any", steps[0])
	}
	if active, _ := step["active"].(bool); !active {
		t.Errorf(`step["active"] = %v, want true`, step["active"])
	}
	blocks, _ := step["blocks"].([]any)
	if len(blocks) != 1 {
		t.Fatalf("step[\"blocks\"] has %d entries, want 1", len(blocks))
	}
}

func TestInvokeMemoizesResult(t *testing.T) {
	program := mustCompile(t, minimalJourney)
	eval := New(program)
	ec := eval.CreateContext(evalctx.EvaluationRequest{}, noFunctions{})

	first := eval.Invoke(context.Background(), program.Root, ec)
	if _, ok := eval.Overlay.Cache.Get(program.Root); !ok {
		t.Fatalf("root result was not cached after the first invoke")
	}
	second := eval.Invoke(context.Background(), program.Root, ec)
	if first.Error != nil || second.Error != nil {
		t.Fatalf("unexpected error: first=%v second=%v", first.Error, second.Error)
	}
}

func mustNode(t *testing.T, program *compiler.Program, id ids.ID) ast.Node {
	t.Helper()
	n, ok := program.Nodes.Get(id)
	if !ok {
		t.Fatalf("node %s not found", id)
	}
	return n
}
