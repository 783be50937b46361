// Package ast defines the typed, identified AST and pseudo-node records the
// transformer produces from a declarative journey tree.
package ast

import (
	"strings"

	"github.com/cwbudde/go-formengine/internal/ids"
)

// Kind identifies the concrete shape of a node. It is a closed set drawn
// from the declarative `type` discriminator (spec.md §6.1); pseudo-node
// kinds have no declarative counterpart and are synthesised by reference
// resolution (spec.md §3.1).
type Kind string

const (
	KindJourney Kind = "Structure.Journey"
	KindStep    Kind = "Structure.Step"
	KindBlock   Kind = "Structure.Block"
	KindField   Kind = "Structure.Field"

	KindReference  Kind = "Expression.Reference"
	KindFormat     Kind = "Expression.Format"
	KindNext       Kind = "Expression.Next"
	KindIterate    Kind = "Expression.Iterate"
	KindValidation Kind = "Expression.Validation"
	KindFunction   Kind = "Expression.Function"

	KindAnd  Kind = "Predicate.And"
	KindOr   Kind = "Predicate.Or"
	KindNot  Kind = "Predicate.Not"
	KindTest Kind = "Predicate.Test"

	KindLoad   Kind = "Transition.Load"
	KindAccess Kind = "Transition.Access"
	KindSubmit Kind = "Transition.Submit"
	KindAction Kind = "Transition.Action"

	KindPseudoAnswer       Kind = "Pseudo.Answer"
	KindPseudoAnswerRemote Kind = "Pseudo.AnswerRemote"
	KindPseudoData         Kind = "Pseudo.Data"
	KindPseudoPost         Kind = "Pseudo.Post"
	KindPseudoQuery        Kind = "Pseudo.Query"
	KindPseudoParams       Kind = "Pseudo.Params"
)

// IsPseudo reports whether k is one of the synthetic pseudo-node kinds.
func (k Kind) IsPseudo() bool { return strings.HasPrefix(string(k), "Pseudo.") }

// IsStructural reports whether k is a journey/step/block/field node — the
// family that participates in STRUCTURAL child->parent wiring (spec.md §4.6).
func (k Kind) IsStructural() bool {
	switch k {
	case KindJourney, KindStep, KindBlock, KindField:
		return true
	default:
		return false
	}
}

// FunctionType tags an Expression.Function node with the registry group its
// name is looked up in (spec.md §3.1, §6.3).
type FunctionType string

const (
	FunctionCondition   FunctionType = "CONDITION"
	FunctionTransformer FunctionType = "TRANSFORMER"
	FunctionEffect      FunctionType = "EFFECT"
	FunctionGenerator   FunctionType = "GENERATOR"
)

// PropValue is the generic shape NodeFactory.transformValue produces for any
// declarative property: a primitive scalar, a link to a child AST/pseudo
// node (by ID, never by pointer), or a homogeneous container of further PropValues. Exactly one of
// {NodeID set, List non-nil, Map non-nil, else Scalar} is meaningful for a
// given value; a zero PropValue is the JSON null/absent value.
type PropValue struct {
	NodeID ids.ID
	Scalar any
	List   []PropValue
	Map    map[string]PropValue
}

// IsNode reports whether this value is a link to a child node.
func (v PropValue) IsNode() bool { return v.NodeID != "" }

// IsZero reports whether this value carries no data at all.
func (v PropValue) IsZero() bool {
	return v.NodeID == "" && v.Scalar == nil && v.List == nil && v.Map == nil
}

// NodeValue wraps a node ID as a PropValue.
func NodeValue(id ids.ID) PropValue { return PropValue{NodeID: id} }

// ScalarValue wraps a primitive as a PropValue.
func ScalarValue(v any) PropValue { return PropValue{Scalar: v} }

// ListValue wraps a slice of values as a PropValue.
func ListValue(vs []PropValue) PropValue { return PropValue{List: vs} }

// Node is the interface every AST node and pseudo-node implements. Parent
// links are mutable (set post-construction by the transformer once the
// parent ID is known) and are looked up through the registry's breadcrumb
// index, never dereferenced directly — see DESIGN.md.
type Node interface {
	ID() ids.ID
	Kind() Kind
	ParentID() ids.ID
	SetParentID(ids.ID)
	// RawIndex is an index into the declarative arena holding the
	// original JSON subtree this node was built from (used for error
	// reporting; see internal/declarative).
	RawIndex() int
	// Properties returns the node's declared properties, keyed by
	// declarative field name, for handlers that iterate generically
	// (BlockHandler, FieldHandler) rather than through typed accessors.
	Properties() map[string]PropValue
}

// Base is embedded by every concrete node type and implements the
// ID/Kind/Parent/Raw bookkeeping so variant structs need only add their
// own typed fields.
type Base struct {
	IDValue     ids.ID
	KindValue   Kind
	Parent      ids.ID
	Raw         int
	PropsValue  map[string]PropValue
}

func (b *Base) ID() ids.ID                        { return b.IDValue }
func (b *Base) Kind() Kind                         { return b.KindValue }
func (b *Base) ParentID() ids.ID                   { return b.Parent }
func (b *Base) SetParentID(id ids.ID)              { b.Parent = id }
func (b *Base) RawIndex() int                      { return b.Raw }
func (b *Base) Properties() map[string]PropValue   { return b.PropsValue }

// --- Structure ------------------------------------------------------------

// Journey is the top-level form container (spec.md §3.1).
type Journey struct {
	Base
	Code        string
	Path        string
	Title       string
	Description *string
	Steps       []ids.ID
	Children    []ids.ID
	OnLoad      []ids.ID
	OnAccess    []ids.ID
	EntryPath   *string
	Metadata    map[string]PropValue
	View        PropValue
	Data        PropValue
}

// Step is a single screen (spec.md §3.1).
type Step struct {
	Base
	Path         string
	Title        *string
	Blocks       []ids.ID
	OnLoad       []ids.ID
	OnAccess     []ids.ID
	OnAction     []ids.ID
	OnSubmission []ids.ID
	IsEntryPoint bool
	Description  *string
	Metadata     map[string]PropValue
	View         PropValue
}

// Block is a renderable content block; Variant distinguishes its kind.
type Block struct {
	Base
	Variant  string
	Children []ids.ID
	Extra    map[string]PropValue
}

// FieldBlock is a Block that additionally captures input (spec.md §3.1).
type FieldBlock struct {
	Base
	Code       PropValue
	Value      PropValue
	Label      PropValue
	Hint       PropValue
	Validate   []ids.ID
	Dependent  PropValue
	Formatters []ids.ID
	Multiple   PropValue
	Items      PropValue
	Extra      map[string]PropValue
}

// --- Expression -------------------------------------------------------------

// PathSegment is one component of a Reference path: either a literal string
// key or a nested AST node that must be evaluated to produce the key.
type PathSegment struct {
	Literal string
	NodeID  ids.ID
}

func (s PathSegment) IsNode() bool { return s.NodeID != "" }

// Reference is a path-based pointer into answers/data/post/query/params/
// item/self (spec.md §3.1, GLOSSARY). Root is the pseudo-node this
// reference's first two path segments resolve to (populated by the
// transformer's pseudo-node deduplication — see internal/factory), empty
// for references into `@item`/`@index` scope frames which have no
// pseudo-node producer.
type Reference struct {
	Base
	Path []PathSegment
	Root ids.ID
}

// Format performs %N substitution on a template using evaluated arguments.
type Format struct {
	Base
	Template  string
	Arguments []ids.ID
}

// Next resolves a navigation target, optionally gated by `when`.
type Next struct {
	Base
	When ids.ID // zero ID if absent
	Goto PropValue
}

// Iterate expands a yield template once per element of `input`.
type Iterate struct {
	Base
	Input   ids.ID
	Yield   []ids.ID
	RawYield PropValue // original declarative yield template, for re-instantiation per element
}

// Validation emits an error record when `when` evaluates truthy.
type Validation struct {
	Base
	When           ids.ID
	Message        PropValue
	Details        PropValue
	SubmissionOnly bool
}

// Function calls a named, registry-resolved function of a given type.
type Function struct {
	Base
	FuncType  FunctionType
	Name      string
	Arguments []ids.ID
}

// --- Predicate --------------------------------------------------------------

type And struct {
	Base
	Operands []ids.ID
}

type Or struct {
	Base
	Operands []ids.ID
}

type Not struct {
	Base
	Operand ids.ID
}

type Test struct {
	Base
	Subject   ids.ID
	Condition ids.ID
	Negate    bool
}

// --- Transition ---------------------------------------------------------

type Load struct {
	Base
	Effects []ids.ID
	Next    []ids.ID
}

type Access struct {
	Base
	Guards   ids.ID
	Effects  []ids.ID
	Next     []ids.ID
	Redirect []ids.ID
	Message  PropValue
}

type SubmitBranch struct {
	Effects []ids.ID
	Next    []ids.ID
}

type Submit struct {
	Base
	When      ids.ID
	Validate  bool
	OnValid   SubmitBranch
	OnInvalid SubmitBranch
}

type Action struct {
	Base
	When    ids.ID
	Effects []ids.ID
}

// --- Pseudo-nodes -----------------------------------------------------------

// Answer reads a persisted or locally computed field answer.
type Answer struct {
	Base
	BaseFieldCode string
}

// AnswerRemote is the runtime-only counterpart created inside a collection
// iteration (spec.md §3.1).
type AnswerRemote struct {
	Base
	BaseFieldCode string
	ScopeFrameID  ids.ID
}

// Data reads an externally supplied dataset entry.
type Data struct {
	Base
	BaseProperty string
}

// Post reads a submitted form field.
type Post struct {
	Base
	BaseFieldCode string
	FieldNodeID   ids.ID // not set by the compiler, which records the owning field in metadata (handlers.FieldNodeIDMetaKey)
}

// Query reads a query-string parameter.
type Query struct {
	Base
	ParamName string
}

// Params reads a path parameter.
type Params struct {
	Base
	ParamName string
}
