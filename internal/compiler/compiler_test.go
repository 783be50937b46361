package compiler

import (
	"strings"
	"testing"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// minimalJourney is a single journey with one entry step holding a single
// field block, just enough to exercise the transformer, normalization
// passes, and wiring modules without pulling in references or transitions.
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

func TestCompileMinimalJourney(t *testing.T) {
	program, err := Compile(minimalJourney)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if program.Root == "" {
		t.Fatalf("Compile did not set a root ID")
	}
	root, ok := program.Nodes.Get(program.Root)
	if !ok {
		t.Fatalf("root ID %s not found in node registry", program.Root)
	}
	journey, ok := root.(*ast.Journey)
	if !ok {
		t.Fatalf("root node is %T, want *ast.Journey", root)
	}
	if journey.Code != "signup" {
		t.Errorf("journey.Code = %q, want %q", journey.Code, "signup")
	}
	if len(journey.Steps) != 1 {
		t.Fatalf("journey.Steps has %d entries, want 1", len(journey.Steps))
	}

	step, ok := program.Nodes.Get(journey.Steps[0])
	if !ok {
		t.Fatalf("step ID %s not found in node registry", journey.Steps[0])
	}
	if _, ok := step.(*ast.Step); !ok {
		t.Fatalf("step node is %T, want *ast.Step", step)
	}

	if program.Handlers.Len() != program.Nodes.Len() {
		t.Errorf("handler count %d does not match node count %d", program.Handlers.Len(), program.Nodes.Len())
	}

	stats := program.Graph.Stat()
	if stats.Nodes == 0 {
		t.Errorf("dependency graph has no nodes after wiring")
	}
}

func mustCompilerNode(t *testing.T, program *Program, id ids.ID) ast.Node {
	t.Helper()
	n, ok := program.Nodes.Get(id)
	if !ok {
		t.Fatalf("node %s not found", id)
	}
	return n
}

func TestCompileRejectsDuplicateRoutes(t *testing.T) {
	doc := `{
		"type": "Structure.Journey",
		"code": "dup",
		"path": "/dup",
		"title": "Dup",
		"steps": [
			{"type": "Structure.Step", "path": "/same", "isEntryPoint": true},
			{"type": "Structure.Step", "path": "/same"}
		]
	}`
	_, err := Compile(doc)
	if err == nil {
		t.Fatalf("Compile did not reject two steps resolving to the same route")
	}
	ee, ok := engineerr.As(err)
	if !ok {
		t.Fatalf("error %v is not an *engineerr.EngineError", err)
	}
	if ee.Kind != engineerr.DuplicateRoute {
		t.Errorf("error kind = %v, want %v", ee.Kind, engineerr.DuplicateRoute)
	}
}

func TestCompileRejectsUnknownNodeType(t *testing.T) {
	doc := `{"type": "Bogus.Thing", "code": "x"}`
	_, err := Compile(doc)
	if err == nil {
		t.Fatalf("Compile did not reject an unknown node type")
	}
	if !strings.Contains(err.Error(), "unknown node type") {
		t.Errorf("error = %q, want it to mention the unknown node type", err.Error())
	}
}

// TestCompileDynamicFieldCodeClonesSelfReference covers spec.md §4.4 step 3:
// `code` is scalar-or-node like `value`/`label`/`hint`, so a field whose
// `code` is itself an AST node must compile without the panic review
// comment #1 flagged, and any `answers.@self` reference elsewhere on the
// field must be resolved against a *clone* of that node, never the node
// itself (so the field's own `code` subtree is untouched by the rewrite).
func TestCompileDynamicFieldCodeClonesSelfReference(t *testing.T) {
	doc := `{
		"type": "Structure.Journey",
		"code": "dynamic-code",
		"path": "/dynamic-code",
		"title": "Dynamic Code",
		"steps": [
			{
				"type": "Structure.Step",
				"path": "/start",
				"isEntryPoint": true,
				"blocks": [
					{
						"type": "Structure.Field",
						"code": {"type": "Expression.Format", "template": "field-%1",
							"arguments": [{"type": "Function.Generator", "name": "suffix"}]},
						"label": {"type": "Expression.Reference", "path": ["answers", "@self"]}
					}
				]
			}
		]
	}`
	program, err := Compile(doc)
	if err != nil {
		t.Fatalf("Compile returned error for a dynamic field code: %v", err)
	}

	journey := mustCompilerNode(t, program, program.Root).(*ast.Journey)
	step := mustCompilerNode(t, program, journey.Steps[0]).(*ast.Step)
	field := mustCompilerNode(t, program, step.Blocks[0]).(*ast.FieldBlock)

	if !field.Code.IsNode() {
		t.Fatalf("field.Code is not a node, want the dynamic Expression.Format it was built from")
	}
	if !field.Label.IsNode() {
		t.Fatalf("field.Label is not a node")
	}
	label := mustCompilerNode(t, program, field.Label.NodeID).(*ast.Reference)
	if len(label.Path) != 2 {
		t.Fatalf("label reference has %d path segments, want 2", len(label.Path))
	}
	if !label.Path[1].IsNode() {
		t.Fatalf("label reference's rewritten @self segment is not a node")
	}
	if label.Path[1].NodeID == field.Code.NodeID {
		t.Errorf("label reference's @self segment aliases field.Code's own node instead of a clone")
	}
}

// TestCompileRejectsSelfInsideOwnCode covers spec.md §4.4 step 2: `@self`
// occurring inside the field's own `code` subtree must fail compilation
// with engineerr.SelfInsideCode rather than resolving (which would clone a
// subtree still containing the very reference being resolved).
func TestCompileRejectsSelfInsideOwnCode(t *testing.T) {
	doc := `{
		"type": "Structure.Journey",
		"code": "self-inside-code",
		"path": "/self-inside-code",
		"title": "Self Inside Code",
		"steps": [
			{
				"type": "Structure.Step",
				"path": "/start",
				"isEntryPoint": true,
				"blocks": [
					{
						"type": "Structure.Field",
						"code": {"type": "Expression.Format", "template": "%1",
							"arguments": [{"type": "Expression.Reference", "path": ["answers", "@self"]}]},
						"label": "Email"
					}
				]
			}
		]
	}`
	_, err := Compile(doc)
	if err == nil {
		t.Fatalf("Compile did not reject @self occurring inside the field's own code")
	}
	ee, ok := engineerr.As(err)
	if !ok {
		t.Fatalf("error %v is not an *engineerr.EngineError", err)
	}
	if ee.Kind != engineerr.SelfInsideCode {
		t.Errorf("error kind = %v, want %v", ee.Kind, engineerr.SelfInsideCode)
	}
}

func TestCompileRejectsMissingRequiredField(t *testing.T) {
	doc := `{"type": "Structure.Journey", "path": "/x", "title": "X"}`
	_, err := Compile(doc)
	if err == nil {
		t.Fatalf("Compile did not reject a journey missing its required code field")
	}
	ee, ok := engineerr.As(err)
	if !ok {
		t.Fatalf("error %v is not an *engineerr.EngineError", err)
	}
	if ee.Kind != engineerr.Invalid {
		t.Errorf("error kind = %v, want %v", ee.Kind, engineerr.Invalid)
	}
}
