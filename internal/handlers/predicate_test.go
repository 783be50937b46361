package handlers_test

import (
	"context"
	"testing"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/compiler"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/evaluator"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// stubConditions registers a couple of CONDITION functions used across this
// package's tests ("alwaysTrue", "pickX"); any other name is deliberately
// left unregistered so invoking it fails with engineerr.UnknownFunction, the
// failure mode these tests exercise.
type stubConditions struct{}

func (stubConditions) Lookup(ft ast.FunctionType, name string) (evalctx.FunctionEntry, bool) {
	if ft != ast.FunctionCondition {
		return evalctx.FunctionEntry{}, false
	}
	switch name {
	case "alwaysTrue":
		return evalctx.FunctionEntry{
			Name: name,
			Evaluate: func(ctx context.Context, fctx evalctx.FunctionContext, args ...any) (any, error) {
				return true, nil
			},
		}, true
	case "pickX":
		return evalctx.FunctionEntry{
			Name: name,
			Evaluate: func(ctx context.Context, fctx evalctx.FunctionContext, args ...any) (any, error) {
				return "x", nil
			},
		}, true
	default:
		return evalctx.FunctionEntry{}, false
	}
}

const predicateFixture = `{
	"type": "Structure.Journey",
	"code": "predicates",
	"path": "/predicates",
	"title": "Predicates",
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
						{"type": "Expression.Validation", "message": "and-fails-short-circuits-false",
							"when": {"type": "Predicate.And", "operands": [
								{"type": "Function.Condition", "name": "missing"},
								{"type": "Function.Condition", "name": "alwaysTrue"}
							]}},
						{"type": "Expression.Validation", "message": "and-all-true",
							"when": {"type": "Predicate.And", "operands": [
								{"type": "Function.Condition", "name": "alwaysTrue"},
								{"type": "Function.Condition", "name": "alwaysTrue"}
							]}},
						{"type": "Expression.Validation", "message": "or-recovers-past-failure",
							"when": {"type": "Predicate.Or", "operands": [
								{"type": "Function.Condition", "name": "missing"},
								{"type": "Function.Condition", "name": "alwaysTrue"}
							]}},
						{"type": "Expression.Validation", "message": "or-all-fail",
							"when": {"type": "Predicate.Or", "operands": [
								{"type": "Function.Condition", "name": "missing"}
							]}},
						{"type": "Expression.Validation", "message": "not-of-failure",
							"when": {"type": "Predicate.Not", "operand":
								{"type": "Function.Condition", "name": "missing"}
							}},
						{"type": "Expression.Validation", "message": "test-with-failing-subject",
							"when": {"type": "Predicate.Test",
								"subject": {"type": "Function.Condition", "name": "missing"},
								"condition": {"type": "Function.Condition", "name": "alwaysTrue"}
							}}
					]
				}
			]
		}
	]
}`

func compilePredicateFixture(t *testing.T) (*evaluator.Evaluator, evalctx.EvaluationContext, []ids.ID) {
	t.Helper()
	program, err := compiler.Compile(predicateFixture)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	journey, ok := mustGet(t, program, program.Root).(*ast.Journey)
	if !ok {
		t.Fatalf("root is %T, want *ast.Journey", mustGet(t, program, program.Root))
	}
	step, ok := mustGet(t, program, journey.Steps[0]).(*ast.Step)
	if !ok {
		t.Fatalf("step is not *ast.Step")
	}
	field, ok := mustGet(t, program, step.Blocks[0]).(*ast.FieldBlock)
	if !ok {
		t.Fatalf("block is not *ast.FieldBlock")
	}
	if len(field.Validate) != 6 {
		t.Fatalf("field has %d validations, want 6", len(field.Validate))
	}

	whens := make([]ids.ID, len(field.Validate))
	for i, vID := range field.Validate {
		v, ok := mustGet(t, program, vID).(*ast.Validation)
		if !ok {
			t.Fatalf("validate[%d] is not *ast.Validation", i)
		}
		whens[i] = v.When
	}

	eval := evaluator.New(program)
	ec := eval.CreateContext(evalctx.EvaluationRequest{}, stubConditions{})
	return eval, ec, whens
}

func mustGet(t *testing.T, program *compiler.Program, id ids.ID) ast.Node {
	t.Helper()
	n, ok := program.Nodes.Get(id)
	if !ok {
		t.Fatalf("node %s not found", id)
	}
	return n
}

func TestAndTreatsFailedOperandAsFalse(t *testing.T) {
	eval, ec, whens := compilePredicateFixture(t)

	result := eval.Invoke(context.Background(), whens[0], ec)
	if result.Error != nil {
		t.Fatalf("And with a failing operand returned an error instead of resolving falsy: %v", result.Error)
	}
	if result.Value != false {
		t.Errorf("And result = %v, want false", result.Value)
	}
}

func TestAndStillRequiresEveryOperandTrue(t *testing.T) {
	eval, ec, whens := compilePredicateFixture(t)

	result := eval.Invoke(context.Background(), whens[1], ec)
	if result.Error != nil {
		t.Fatalf("And with all-true operands returned an error: %v", result.Error)
	}
	if result.Value != true {
		t.Errorf("And result = %v, want true", result.Value)
	}
}

func TestOrSkipsFailedOperandAndKeepsLooking(t *testing.T) {
	eval, ec, whens := compilePredicateFixture(t)

	result := eval.Invoke(context.Background(), whens[2], ec)
	if result.Error != nil {
		t.Fatalf("Or with a failing then truthy operand returned an error: %v", result.Error)
	}
	if result.Value != true {
		t.Errorf("Or result = %v, want true", result.Value)
	}
}

func TestOrIsFalseWhenEveryOperandFails(t *testing.T) {
	eval, ec, whens := compilePredicateFixture(t)

	result := eval.Invoke(context.Background(), whens[3], ec)
	if result.Error != nil {
		t.Fatalf("Or with only failing operands returned an error instead of resolving falsy: %v", result.Error)
	}
	if result.Value != false {
		t.Errorf("Or result = %v, want false", result.Value)
	}
}

func TestNotTreatsFailedOperandAsFalseThenNegates(t *testing.T) {
	eval, ec, whens := compilePredicateFixture(t)

	result := eval.Invoke(context.Background(), whens[4], ec)
	if result.Error != nil {
		t.Fatalf("Not over a failing operand returned an error: %v", result.Error)
	}
	if result.Value != true {
		t.Errorf("Not result = %v, want true (negation of falsy)", result.Value)
	}
}

func TestTestTreatsFailedSubjectAsUndefined(t *testing.T) {
	eval, ec, whens := compilePredicateFixture(t)

	result := eval.Invoke(context.Background(), whens[5], ec)
	if result.Error != nil {
		t.Fatalf("Test with a failing subject returned an error instead of passing nil to the condition: %v", result.Error)
	}
	if result.Value != true {
		t.Errorf("Test result = %v, want true (condition ignores its nil subject)", result.Value)
	}
}
