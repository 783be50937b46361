// Package functions implements the pluggable registry embedders populate
// with CONDITION/TRANSFORMER/EFFECT/GENERATOR functions (spec.md §6.3,
// Non-goal "function implementations are out of scope" — the registry
// itself, and its thread-safety, are in scope).
package functions

import (
	"context"
	"strings"
	"sync"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/evalctx"
)

// Registry is a case-insensitive, mutex-protected function table keyed by
// (FunctionType, name), safe for concurrent lookup during evaluation and
// concurrent registration at startup (spec.md §5 "Shared resource policy").
type Registry struct {
	mu      sync.RWMutex
	entries map[ast.FunctionType]map[string]evalctx.FunctionEntry
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[ast.FunctionType]map[string]evalctx.FunctionEntry)}
}

func normalize(name string) string { return strings.ToLower(name) }

// Register adds fn under (funcType, name), overwriting any prior
// registration for the same pair.
func (r *Registry) Register(funcType ast.FunctionType, name string, fn evalctx.FunctionEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.entries[funcType]
	if !ok {
		bucket = make(map[string]evalctx.FunctionEntry)
		r.entries[funcType] = bucket
	}
	fn.Name = name
	bucket[normalize(name)] = fn
}

// RegisterCondition is sugar for Register(ast.FunctionCondition, ...).
func (r *Registry) RegisterCondition(name string, isAsync bool, fn func(ctx evalctx.FunctionContext, args ...any) (any, error)) {
	r.Register(ast.FunctionCondition, name, wrap(isAsync, fn))
}

// RegisterTransformer is sugar for Register(ast.FunctionTransformer, ...).
func (r *Registry) RegisterTransformer(name string, isAsync bool, fn func(ctx evalctx.FunctionContext, args ...any) (any, error)) {
	r.Register(ast.FunctionTransformer, name, wrap(isAsync, fn))
}

// RegisterEffect is sugar for Register(ast.FunctionEffect, ...).
func (r *Registry) RegisterEffect(name string, isAsync bool, fn func(ctx evalctx.FunctionContext, args ...any) (any, error)) {
	r.Register(ast.FunctionEffect, name, wrap(isAsync, fn))
}

// RegisterGenerator is sugar for Register(ast.FunctionGenerator, ...).
func (r *Registry) RegisterGenerator(name string, isAsync bool, fn func(ctx evalctx.FunctionContext, args ...any) (any, error)) {
	r.Register(ast.FunctionGenerator, name, wrap(isAsync, fn))
}

func wrap(isAsync bool, fn func(ctx evalctx.FunctionContext, args ...any) (any, error)) evalctx.FunctionEntry {
	return evalctx.FunctionEntry{
		IsAsync: isAsync,
		Evaluate: func(_ context.Context, fctx evalctx.FunctionContext, args ...any) (any, error) {
			return fn(fctx, args...)
		},
	}
}

// Lookup resolves (funcType, name), case-insensitively.
func (r *Registry) Lookup(funcType ast.FunctionType, name string) (evalctx.FunctionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket, ok := r.entries[funcType]
	if !ok {
		return evalctx.FunctionEntry{}, false
	}
	entry, ok := bucket[normalize(name)]
	return entry, ok
}

// Names returns every registered name for funcType, for diagnostics.
func (r *Registry) Names(funcType ast.FunctionType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.entries[funcType]
	out := make([]string, 0, len(bucket))
	for _, entry := range bucket {
		out = append(out, entry.Name)
	}
	return out
}
