package handlers_test

import (
	"context"
	"testing"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/compiler"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/evaluator"
	"github.com/cwbudde/go-formengine/internal/handlers"
)

const journeyFixture = `{
	"type": "Structure.Journey",
	"code": "root",
	"path": "/root",
	"title": "Root Journey",
	"description": "root description",
	"entryPath": "/root/start",
	"view": "root-view",
	"data": "root-data",
	"metadata": {"flag": true},
	"children": [
		{
			"type": "Structure.Journey",
			"code": "child",
			"path": "/child",
			"title": "Child Journey",
			"steps": [
				{"type": "Structure.Step", "path": "/child/s", "isEntryPoint": true, "blocks": []}
			]
		}
	],
	"steps": [
		{
			"type": "Structure.Step",
			"path": "/root/s1",
			"title": "Step One",
			"description": "step desc",
			"isEntryPoint": true,
			"view": "step-view",
			"metadata": {"order": 1},
			"blocks": []
		}
	]
}`

func compileJourneyFixture(t *testing.T) (*evaluator.Evaluator, evalctx.EvaluationContext, *ast.Journey) {
	t.Helper()
	program, err := compiler.Compile(journeyFixture)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	journey, ok := mustGet(t, program, program.Root).(*ast.Journey)
	if !ok {
		t.Fatalf("root is not *ast.Journey")
	}
	eval := evaluator.New(program)
	ec := eval.CreateContext(evalctx.EvaluationRequest{}, stubConditions{})
	return eval, ec, journey
}

// TestJourneyNonAncestorRendersStructuralPropertiesOnly covers spec.md
// §4.7.5's JourneyHandler branch for a journey that is not an ancestor of
// the current step: only the static navigational set renders, and
// `children`/`steps` are still walked in full regardless.
func TestJourneyNonAncestorRendersStructuralPropertiesOnly(t *testing.T) {
	eval, ec, journey := compileJourneyFixture(t)

	result := eval.Invoke(context.Background(), journey.ID(), ec)
	if result.Error != nil {
		t.Fatalf("Invoke returned error: %v", result.Error)
	}
	out, ok := result.Value.(map[string]any)
	if !ok {
		t.Fatalf("journey result is %T, want map[string]any", result.Value)
	}

	for _, key := range []string{"code", "path", "title", "description", "children", "steps", "metadata"} {
		if _, present := out[key]; !present {
			t.Errorf("result missing structural property %q", key)
		}
	}
	for _, key := range []string{"entryPath", "view", "data"} {
		if _, present := out[key]; present {
			t.Errorf("non-ancestor journey result unexpectedly carries transition-adjacent property %q", key)
		}
	}
	if out["title"] != "Root Journey" {
		t.Errorf(`result["title"] = %v, want "Root Journey"`, out["title"])
	}
	if out["description"] != "root description" {
		t.Errorf(`result["description"] = %v, want "root description"`, out["description"])
	}
	meta, _ := out["metadata"].(map[string]any)
	if meta["flag"] != true {
		t.Errorf(`result["metadata"]["flag"] = %v, want true`, meta["flag"])
	}

	children, _ := out["children"].([]any)
	if len(children) != 1 {
		t.Fatalf("result[\"children\"] has %d entries, want 1", len(children))
	}
	child, ok := children[0].(map[string]any)
	if !ok {
		t.Fatalf("child result is %T, want map[string]any", children[0])
	}
	if child["code"] != "child" {
		t.Errorf(`children[0]["code"] = %v, want "child"`, child["code"])
	}

	steps, _ := out["steps"].([]any)
	if len(steps) != 1 {
		t.Fatalf("result[\"steps\"] has %d entries, want 1", len(steps))
	}
}

// TestJourneyAncestorRendersFullPropertySet covers the other named branch:
// a journey flagged IsAncestorOfStepMetaKey evaluates every property but its
// transitions, including entryPath/view/data.
func TestJourneyAncestorRendersFullPropertySet(t *testing.T) {
	eval, ec, journey := compileJourneyFixture(t)
	eval.Overlay.Metadata.Set(journey.ID(), handlers.IsAncestorOfStepMetaKey, true)

	result := eval.Invoke(context.Background(), journey.ID(), ec)
	if result.Error != nil {
		t.Fatalf("Invoke returned error: %v", result.Error)
	}
	out, ok := result.Value.(map[string]any)
	if !ok {
		t.Fatalf("journey result is %T, want map[string]any", result.Value)
	}

	if out["entryPath"] != "/root/start" {
		t.Errorf(`result["entryPath"] = %v, want "/root/start"`, out["entryPath"])
	}
	if out["view"] != "root-view" {
		t.Errorf(`result["view"] = %v, want "root-view"`, out["view"])
	}
	if out["data"] != "root-data" {
		t.Errorf(`result["data"] = %v, want "root-data"`, out["data"])
	}
}

// TestStepInactiveRendersNavigationalPropertiesOnly covers StepHandler's
// reduced branch: a step with neither isCurrentStep nor isAncestorOfStep set
// omits `view` but still carries every named navigational property.
func TestStepInactiveRendersNavigationalPropertiesOnly(t *testing.T) {
	eval, ec, journey := compileJourneyFixture(t)
	stepID := journey.Steps[0]

	result := eval.Invoke(context.Background(), stepID, ec)
	if result.Error != nil {
		t.Fatalf("Invoke returned error: %v", result.Error)
	}
	out, ok := result.Value.(map[string]any)
	if !ok {
		t.Fatalf("step result is %T, want map[string]any", result.Value)
	}

	for _, key := range []string{"path", "title", "isEntryPoint", "description", "blocks", "metadata", "active"} {
		if _, present := out[key]; !present {
			t.Errorf("result missing navigational property %q", key)
		}
	}
	if _, present := out["view"]; present {
		t.Errorf("inactive step result unexpectedly carries \"view\"")
	}
	if out["active"] != false {
		t.Errorf(`result["active"] = %v, want false`, out["active"])
	}
	if out["title"] != "Step One" {
		t.Errorf(`result["title"] = %v, want "Step One"`, out["title"])
	}
	if out["isEntryPoint"] != true {
		t.Errorf(`result["isEntryPoint"] = %v, want true`, out["isEntryPoint"])
	}
}

// TestStepAncestorOfCurrentRendersViewWithoutBeingActive covers the
// isAncestorOfStep (but not isCurrentStep) half of StepHandler's gating:
// `view` renders, but `active` stays false.
func TestStepAncestorOfCurrentRendersViewWithoutBeingActive(t *testing.T) {
	eval, ec, journey := compileJourneyFixture(t)
	stepID := journey.Steps[0]
	eval.Overlay.Metadata.Set(stepID, handlers.IsAncestorOfStepMetaKey, true)

	result := eval.Invoke(context.Background(), stepID, ec)
	if result.Error != nil {
		t.Fatalf("Invoke returned error: %v", result.Error)
	}
	out := result.Value.(map[string]any)
	if out["active"] != false {
		t.Errorf(`result["active"] = %v, want false`, out["active"])
	}
	if out["view"] != "step-view" {
		t.Errorf(`result["view"] = %v, want "step-view"`, out["view"])
	}
}

// TestStepCurrentRendersViewAndActive covers the isCurrentStep branch.
func TestStepCurrentRendersViewAndActive(t *testing.T) {
	eval, ec, journey := compileJourneyFixture(t)
	stepID := journey.Steps[0]
	eval.Overlay.Metadata.Set(stepID, handlers.IsCurrentStepMetaKey, true)

	result := eval.Invoke(context.Background(), stepID, ec)
	if result.Error != nil {
		t.Fatalf("Invoke returned error: %v", result.Error)
	}
	out := result.Value.(map[string]any)
	if out["active"] != true {
		t.Errorf(`result["active"] = %v, want true`, out["active"])
	}
	if out["view"] != "step-view" {
		t.Errorf(`result["view"] = %v, want "step-view"`, out["view"])
	}
}
