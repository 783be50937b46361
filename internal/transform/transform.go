// Package transform implements the top-level Transformer entry point
// (spec.md §4.3): validates the declarative root and dispatches into
// internal/factory.
package transform

import (
	"github.com/cwbudde/go-formengine/internal/declarative"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/factory"
	"github.com/cwbudde/go-formengine/internal/ids"
)

// Transform validates raw as a discriminated declarative object and builds
// the compiled AST through f, returning the root node's ID. It surfaces
// Invalid for non-object/null/primitive input and UnknownNodeType for an
// unrecognised discriminator (spec.md §4.3).
func Transform(f *factory.Factory, raw string) (ids.ID, error) {
	if !declarative.IsObject(raw) {
		return "", engineerr.New(engineerr.Invalid, "declarative root must be an object")
	}
	if _, ok := declarative.TypeDiscriminator(raw); !ok {
		return "", engineerr.New(engineerr.Invalid, "declarative root is missing a type discriminator")
	}
	return f.Build(raw, nil)
}
