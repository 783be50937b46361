// Package engineerr defines the closed error taxonomy shared by every
// compile and evaluation stage, adapted from the teacher's
// internal/errors package: CompilerError{Kind, Message, Pos} becomes
// EngineError{Kind, Message, NodeID, Path}, trading lexer positions for a
// declarative property-path breadcrumb.
package engineerr

import (
	"fmt"
	"strings"

	"github.com/cwbudde/go-formengine/internal/ids"
)

// Kind is the closed set of error kinds used end-to-end (spec.md §7).
type Kind string

const (
	Invalid             Kind = "Invalid"
	UnknownNodeType     Kind = "UnknownNodeType"
	DuplicateId         Kind = "DuplicateId"
	HandlerNotFound     Kind = "HandlerNotFound"
	Evaluation          Kind = "Evaluation"
	MaxRetriesExceeded  Kind = "MaxRetriesExceeded"
	SecurityViolation   Kind = "SecurityViolation"
	SelfOutsideField    Kind = "SelfOutsideField"
	MissingFieldCode    Kind = "MissingFieldCode"
	SelfInsideCode      Kind = "SelfInsideCode"
	DuplicateRoute      Kind = "DuplicateRoute"
	UnknownFunction     Kind = "UnknownFunction"
)

// EngineError is the structured error value threaded through compile and
// evaluation. It is comparable by Kind for control-flow purposes (e.g.
// predicates treating an error as falsy) and serialisable for the
// user-visible error surface (spec.md §6.5).
type EngineError struct {
	Kind    Kind
	Message string
	NodeID  ids.ID
	Path    []string // breadcrumb of property names from the journey root
	Cause   error
	Detail  any
}

func (e *EngineError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.NodeID != "" {
		fmt.Fprintf(&b, " (node %s)", e.NodeID)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " at %s", strings.Join(e.Path, "."))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %s", e.Cause.Error())
	}
	return b.String()
}

func (e *EngineError) Unwrap() error { return e.Cause }

// New builds an EngineError with no node/path context.
func New(kind Kind, message string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(message, args...)}
}

// WithNode returns a copy of e with NodeID set.
func (e *EngineError) WithNode(id ids.ID) *EngineError {
	clone := *e
	clone.NodeID = id
	return &clone
}

// WithPath returns a copy of e with Path set.
func (e *EngineError) WithPath(path []string) *EngineError {
	clone := *e
	clone.Path = path
	return &clone
}

// WithCause returns a copy of e with Cause set.
func (e *EngineError) WithCause(cause error) *EngineError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// WithDetail returns a copy of e with Detail set.
func (e *EngineError) WithDetail(detail any) *EngineError {
	clone := *e
	clone.Detail = detail
	return &clone
}

// FormatErrors renders an aggregate, numbered report in the teacher's
// "[Error N of M]" style for CLI/stderr surfaces.
func FormatErrors(errs []*EngineError) string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range errs {
		fmt.Fprintf(&b, "[Error %d of %d] %s\n", i+1, len(errs), e.Error())
	}
	return b.String()
}

// FormatError renders a single error the same way FormatErrors would for a
// one-element list, without the "N of M" prefix.
func FormatError(e *EngineError) string {
	return e.Error()
}

// As reports whether err is an *EngineError and returns it if so.
func As(err error) (*EngineError, bool) {
	ee, ok := err.(*EngineError)
	return ee, ok
}
