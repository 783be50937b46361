// Package factory turns declarative JSON subtrees into typed, identified
// AST nodes (spec.md §4.2 "per-variant factories"), grounded on the
// teacher's recursive-descent parser (internal/parser/parser.go): one
// method per production, a central dispatch on a discriminator, and
// structured Invalid/UnknownNodeType errors carrying the offending path.
package factory

import (
	"strconv"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/declarative"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/cwbudde/go-formengine/internal/registry"
)

// pseudoKey identifies a pseudo-node by its kind and base code, the
// deduplication key spec.md §4.6 describes ("connect it as producer to
// every reference node whose path's base code matches").
type pseudoKey struct {
	kind ast.Kind
	code string
}

// Factory builds the compiled AST from raw declarative JSON, registering
// every node (and every pseudo-node it discovers via reference paths) into
// the supplied registries as it goes.
type Factory struct {
	Gen      *ids.Generator
	Arena    *declarative.Arena
	Nodes    *registry.NodeRegistry
	Metadata *registry.MetadataRegistry

	pseudos map[pseudoKey]ids.ID
}

// New builds a Factory writing into the given registries.
func New(gen *ids.Generator, arena *declarative.Arena, nodes *registry.NodeRegistry, metadata *registry.MetadataRegistry) *Factory {
	return &Factory{Gen: gen, Arena: arena, Nodes: nodes, Metadata: metadata, pseudos: make(map[pseudoKey]ids.ID)}
}

// Build transforms the root declarative object into the compiled AST,
// returning the root node's ID (spec.md §4.3 Transformer entry point).
func (f *Factory) Build(raw string, path []string) (ids.ID, error) {
	v, err := f.transformValue(raw, path, "")
	if err != nil {
		return "", err
	}
	if !v.IsNode() {
		return "", engineerr.New(engineerr.Invalid, "declarative root is not an object").WithPath(path)
	}
	return v.NodeID, nil
}

// transformValue implements NodeFactory.transformValue (spec.md §4.2):
// primitives pass through, arrays map element-wise, plain objects descend
// recursively, and objects carrying a `type` discriminator dispatch to the
// matching node factory and come back as a NodeValue link.
func (f *Factory) transformValue(raw string, path []string, parentID ids.ID) (ast.PropValue, error) {
	if declarative.IsPrimitive(raw) {
		return ast.ScalarValue(declarative.Scalar(raw)), nil
	}
	if declarative.IsArray(raw) {
		elems := declarative.Elements(raw)
		out := make([]ast.PropValue, len(elems))
		for i, el := range elems {
			v, err := f.transformValue(el, append(path, indexSegment(i)), parentID)
			if err != nil {
				return ast.PropValue{}, err
			}
			out[i] = v
		}
		return ast.ListValue(out), nil
	}
	if kind, ok := declarative.TypeDiscriminator(raw); ok {
		id, err := f.buildNode(kind, raw, path, parentID)
		if err != nil {
			return ast.PropValue{}, err
		}
		return ast.NodeValue(id), nil
	}
	// Plain object with no discriminator: a declarative map (e.g. `metadata`,
	// `extra`), descended key by key.
	out := make(map[string]ast.PropValue)
	for _, key := range declarative.Keys(raw) {
		fieldRaw, _ := declarative.Field(raw, key)
		v, err := f.transformValue(fieldRaw, append(path, key), parentID)
		if err != nil {
			return ast.PropValue{}, err
		}
		out[key] = v
	}
	return ast.PropValue{Map: out}, nil
}

func indexSegment(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

// buildNode dispatches a discriminated object to its family factory
// (spec.md §4.3). Unknown discriminators surface UnknownNodeType.
func (f *Factory) buildNode(kind string, raw string, path []string, parentID ids.ID) (ids.ID, error) {
	switch kind {
	case "Structure.Journey":
		return f.buildJourney(raw, path, parentID)
	case "Structure.Step":
		return f.buildStep(raw, path, parentID)
	case "Structure.Block":
		return f.buildBlock(raw, path, parentID)
	case "Structure.Field":
		return f.buildField(raw, path, parentID)
	case "Expression.Reference":
		return f.buildReference(raw, path, parentID)
	case "Expression.Format":
		return f.buildFormat(raw, path, parentID)
	case "Expression.Next":
		return f.buildNext(raw, path, parentID)
	case "Expression.Iterate":
		return f.buildIterate(raw, path, parentID)
	case "Expression.Validation":
		return f.buildValidation(raw, path, parentID)
	case "Function.Condition":
		return f.buildFunction(ast.FunctionCondition, raw, path, parentID)
	case "Function.Transformer":
		return f.buildFunction(ast.FunctionTransformer, raw, path, parentID)
	case "Function.Effect":
		return f.buildFunction(ast.FunctionEffect, raw, path, parentID)
	case "Function.Generator":
		return f.buildFunction(ast.FunctionGenerator, raw, path, parentID)
	case "Predicate.And":
		return f.buildAnd(raw, path, parentID)
	case "Predicate.Or":
		return f.buildOr(raw, path, parentID)
	case "Predicate.Not":
		return f.buildNot(raw, path, parentID)
	case "Predicate.Test":
		return f.buildTest(raw, path, parentID)
	case "Transition.Load":
		return f.buildLoad(raw, path, parentID)
	case "Transition.Access":
		return f.buildAccess(raw, path, parentID)
	case "Transition.Submit":
		return f.buildSubmit(raw, path, parentID)
	case "Transition.Action":
		return f.buildAction(raw, path, parentID)
	default:
		return "", engineerr.New(engineerr.UnknownNodeType, "unknown node type %q", kind).WithPath(path)
	}
}

// register stamps raw into the arena, assigns node its ID/parent/properties
// the way every build* helper needs, and adds it to the registry.
func (f *Factory) register(node ast.Node, base *ast.Base, raw string, path []string, parentID ids.ID, props map[string]ast.PropValue) error {
	base.IDValue = f.Gen.Next(ids.CategoryCompileAST)
	base.Parent = parentID
	base.Raw = f.Arena.Add(raw)
	base.PropsValue = props
	return f.Nodes.Register(node, append([]string{}, path...))
}

// requireField returns the raw JSON of a required property, surfacing
// Invalid if it is absent.
func requireField(raw, name string, path []string) (string, error) {
	v, ok := declarative.Field(raw, name)
	if !ok {
		return "", engineerr.New(engineerr.Invalid, "missing required property %q", name).WithPath(append(path, name))
	}
	return v, nil
}

func optionalField(raw, name string) (string, bool) {
	return declarative.Field(raw, name)
}

// idList transforms a required array field of node references into an ID
// list, dropping primitive elements per spec.md §4.2 ("skip primitive
// operands" — the same rule applies to every homogeneous ID-list property).
func (f *Factory) idList(raw string, path []string, parentID ids.ID) ([]ids.ID, error) {
	elems := declarative.Elements(raw)
	out := make([]ids.ID, 0, len(elems))
	for i, el := range elems {
		v, err := f.transformValue(el, append(path, indexSegment(i)), parentID)
		if err != nil {
			return nil, err
		}
		if v.IsNode() {
			out = append(out, v.NodeID)
		}
	}
	return out, nil
}

// optionalIDList is idList over an optional field, returning nil if absent.
func (f *Factory) optionalIDList(raw, name string, path []string, parentID ids.ID) ([]ids.ID, error) {
	fieldRaw, ok := optionalField(raw, name)
	if !ok {
		return nil, nil
	}
	return f.idList(fieldRaw, append(path, name), parentID)
}

// optionalIDField transforms an optional single-node field, returning "" if
// absent or if it evaluated to a primitive.
func (f *Factory) optionalIDField(raw, name string, path []string, parentID ids.ID) (ids.ID, error) {
	fieldRaw, ok := optionalField(raw, name)
	if !ok {
		return "", nil
	}
	v, err := f.transformValue(fieldRaw, append(path, name), parentID)
	if err != nil {
		return "", err
	}
	return v.NodeID, nil
}

// propField transforms an optional field into a PropValue (zero value if
// absent), for properties that may legitimately be a node, a scalar, or a
// container (value, label, hint, goto, message, details, ...).
func (f *Factory) propField(raw, name string, path []string, parentID ids.ID) (ast.PropValue, error) {
	fieldRaw, ok := optionalField(raw, name)
	if !ok {
		return ast.PropValue{}, nil
	}
	return f.transformValue(fieldRaw, append(path, name), parentID)
}

// ResolveRoot re-resolves a reference path's pseudo-node producer through
// the same interning table used at transform time. ResolveSelfReferences
// calls this after replacing an `@self` segment with the enclosing field's
// code, so the rewritten reference shares a producer with any direct
// `answers.<code>` reference into the same field (spec.md §4.4).
func (f *Factory) ResolveRoot(segs []ast.PathSegment) ids.ID {
	return f.resolveReferenceRoot(segs)
}

// internPseudo returns the existing pseudo-node for (kind, code), or
// creates and registers a new one — the dedup spec.md §3.1/§4.6 requires so
// that every reference into the same base code shares one producer.
func (f *Factory) internPseudo(kind ast.Kind, code string, build func(id ids.ID) ast.Node) ids.ID {
	key := pseudoKey{kind: kind, code: code}
	if id, ok := f.pseudos[key]; ok {
		return id
	}
	id := f.Gen.Next(ids.CategoryCompilePseudo)
	node := build(id)
	_ = f.Nodes.Register(node, []string{"$pseudo", string(kind), code})
	f.pseudos[key] = id
	return id
}
