// Package declarative holds the append-only arena of raw declarative JSON
// subtrees and the gjson-based navigation helpers used by the factories to
// read a node's discriminator and walk its properties without a full
// encoding/json unmarshal into map[string]any (spec.md §9 "raw" back-pointer
// design; SPEC_FULL.md §11 gjson wiring).
package declarative

import (
	"sync"

	"github.com/tidwall/gjson"
)

// Arena is an append-only store of raw JSON text, one entry per AST node
// produced by the transformer. A node's RawIndex is an offset into this
// arena, never a direct pointer.
type Arena struct {
	mu      sync.Mutex
	entries []string
}

// NewArena returns an empty arena.
func NewArena() *Arena { return &Arena{} }

// Add appends raw and returns its index.
func (a *Arena) Add(raw string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, raw)
	return len(a.entries) - 1
}

// Get returns the raw JSON text stored at idx, or "" if out of range.
func (a *Arena) Get(idx int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if idx < 0 || idx >= len(a.entries) {
		return ""
	}
	return a.entries[idx]
}

// Len reports how many entries have been stored.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// TypeDiscriminator returns the `type` field of a declarative JSON object,
// and whether one was present.
func TypeDiscriminator(raw string) (string, bool) {
	r := gjson.Parse(raw)
	if !r.IsObject() {
		return "", false
	}
	t := r.Get("type")
	if !t.Exists() || t.Type != gjson.String {
		return "", false
	}
	return t.String(), true
}

// IsObject reports whether raw parses to a JSON object.
func IsObject(raw string) bool { return gjson.Parse(raw).IsObject() }

// IsArray reports whether raw parses to a JSON array.
func IsArray(raw string) bool { return gjson.Parse(raw).IsArray() }

// IsPrimitive reports whether raw is null, a bool, number, or string (i.e.
// neither an object nor array).
func IsPrimitive(raw string) bool {
	r := gjson.Parse(raw)
	return !r.IsObject() && !r.IsArray()
}

// Field returns the raw JSON text of a named property of an object, and
// whether it was present.
func Field(raw, name string) (string, bool) {
	r := gjson.Parse(raw)
	v := r.Get(gjsonEscape(name))
	if !v.Exists() {
		return "", false
	}
	return v.Raw, true
}

// Elements returns the raw JSON text of each element of a JSON array.
func Elements(raw string) []string {
	r := gjson.Parse(raw)
	if !r.IsArray() {
		return nil
	}
	arr := r.Array()
	out := make([]string, len(arr))
	for i, v := range arr {
		out[i] = v.Raw
	}
	return out
}

// Keys returns the property names of a JSON object, in document order.
func Keys(raw string) []string {
	r := gjson.Parse(raw)
	if !r.IsObject() {
		return nil
	}
	var keys []string
	r.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

// Scalar decodes a primitive JSON value (null, bool, number, string) into a
// Go any using gjson's typed accessors, avoiding a generic Unmarshal.
func Scalar(raw string) any {
	r := gjson.Parse(raw)
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num
	case gjson.String:
		return r.Str
	default:
		return r.Value()
	}
}

// gjsonEscape escapes path metacharacters (., *, ?) in a literal property
// name so it is treated as a plain key by gjson.Get.
func gjsonEscape(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '.', '*', '?', '|', '#':
			out = append(out, '\\')
		}
		out = append(out, name[i])
	}
	return string(out)
}
