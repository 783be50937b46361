package handlers_test

import (
	"context"
	"testing"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/compiler"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/evaluator"
)

const referenceFixture = `{
	"type": "Structure.Journey",
	"code": "refs",
	"path": "/refs",
	"title": "Refs",
	"steps": [
		{
			"type": "Structure.Step",
			"path": "/s",
			"isEntryPoint": true,
			"blocks": [
				{
					"type": "Structure.Field",
					"code": "f",
					"label": "F",
					"validate": [
						{"type": "Expression.Validation", "message": "root-fails",
							"when": {"type": "Expression.Reference", "path": ["data", "bad key"]}},
						{"type": "Expression.Validation", "message": "segment-fails",
							"when": {"type": "Expression.Reference", "path": ["post", "email",
								{"type": "Function.Condition", "name": "missing"}]}},
						{"type": "Expression.Validation", "message": "segment-succeeds",
							"when": {"type": "Expression.Reference", "path": ["data", "obj",
								{"type": "Function.Condition", "name": "pickX"}]}}
					]
				}
			]
		}
	]
}`

func compileReferenceFixture(t *testing.T) (program *compiler.Program, whens []ast.Node) {
	t.Helper()
	program, err := compiler.Compile(referenceFixture)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	journey := mustGet(t, program, program.Root).(*ast.Journey)
	step := mustGet(t, program, journey.Steps[0]).(*ast.Step)
	field := mustGet(t, program, step.Blocks[0]).(*ast.FieldBlock)
	if len(field.Validate) != 3 {
		t.Fatalf("field has %d validations, want 3", len(field.Validate))
	}
	whens = make([]ast.Node, len(field.Validate))
	for i, vID := range field.Validate {
		v := mustGet(t, program, vID).(*ast.Validation)
		whens[i] = mustGet(t, program, v.When)
	}
	return program, whens
}

func TestReferenceTreatsFailedRootAsUndefined(t *testing.T) {
	program, whens := compileReferenceFixture(t)
	eval := evaluator.New(program)
	ec := eval.CreateContext(evalctx.EvaluationRequest{}, stubConditions{})

	result := eval.Invoke(context.Background(), whens[0].ID(), ec)
	if result.Error != nil {
		t.Fatalf("reference with an unsafe (failing) root key returned an error instead of resolving undefined: %v", result.Error)
	}
	if result.Value != nil {
		t.Errorf("result = %v, want nil", result.Value)
	}
}

func TestReferenceTreatsFailedPathSegmentAsUndefined(t *testing.T) {
	program, whens := compileReferenceFixture(t)
	eval := evaluator.New(program)
	req := evalctx.EvaluationRequest{Post: evalctx.Values{"email": {"user@example.com"}}}
	ec := eval.CreateContext(req, stubConditions{})

	result := eval.Invoke(context.Background(), whens[1].ID(), ec)
	if result.Error != nil {
		t.Fatalf("reference with a failing dynamic path segment returned an error instead of resolving undefined: %v", result.Error)
	}
	if result.Value != nil {
		t.Errorf("result = %v, want nil", result.Value)
	}
}

func TestReferenceResolvesDynamicSegmentWhenItSucceeds(t *testing.T) {
	program, whens := compileReferenceFixture(t)
	eval := evaluator.New(program)
	req := evalctx.EvaluationRequest{
		Metadata: evalctx.RequestMetadata{Data: map[string]any{"obj": map[string]any{"x": "found-it"}}},
	}
	ec := eval.CreateContext(req, stubConditions{})

	result := eval.Invoke(context.Background(), whens[2].ID(), ec)
	if result.Error != nil {
		t.Fatalf("Invoke returned error: %v", result.Error)
	}
	if result.Value != "found-it" {
		t.Errorf(`result = %v, want "found-it"`, result.Value)
	}
}
