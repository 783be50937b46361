package wiring

import "github.com/cwbudde/go-formengine/internal/ids"

// Manager runs every wiring module in a fixed order: structural edges
// first (so scope-chain walks during pseudo-node wiring see parent links),
// then predicate/expression/transition DATA_FLOW edges, then reference ->
// pseudo-node and transition -> pseudo-node producer edges.
type Manager struct {
	modules []Module
}

// NewManager builds the standard module pipeline over source (typically the
// compiled NodeRegistry; overlay wiring reuses the same modules against the
// overlay's node registry for its scoped WireNodes calls).
func NewManager(source AllNodes) *Manager {
	return &Manager{modules: []Module{
		StructuralWiring{Source: source},
		AndWiring{Source: source},
		OrWiring{Source: source},
		NotWiring{Source: source},
		TestWiring{Source: source},
		FunctionWiring{Source: source},
		FormatWiring{Source: source},
		NextWiring{Source: source},
		IterateWiring{Source: source},
		ValidationWiring{Source: source},
		LoadWiring{Source: source},
		AccessWiring{Source: source},
		SubmitWiring{Source: source},
		ActionWiring{Source: source},
		ReferenceWiring{Source: source},
		TransitionSourceWiring{Source: source},
	}}
}

// WireAll runs every module's global Wire() pass.
func (m *Manager) WireAll(ctx *Context) error {
	for _, mod := range m.modules {
		if err := mod.Wire(ctx); err != nil {
			return err
		}
	}
	return nil
}

// WireNodes runs every module's scoped WireNodes(newIDs) pass, used when the
// overlay registers a batch of runtime nodes.
func (m *Manager) WireNodes(ctx *Context, newIDs []ids.ID) error {
	for _, mod := range m.modules {
		if err := mod.WireNodes(ctx, newIDs); err != nil {
			return err
		}
	}
	return nil
}
