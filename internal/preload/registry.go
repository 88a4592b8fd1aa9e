package preload

import (
	"fmt"
	"sort"

	"github.com/dshills/overlay/internal/plugin"
)

// Registry maps each kind to its strategy.
type Registry struct {
	strategies map[plugin.Kind]Strategy
}

// NewRegistry creates a registry with the Window and Widget strategies.
func NewRegistry() *Registry {
	return NewRegistryWith(Window{}, Widget{})
}

// NewRegistryWith creates a registry holding exactly the given strategies.
func NewRegistryWith(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[plugin.Kind]Strategy, len(strategies))}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register installs s for its kind, replacing any previous strategy.
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Kind()] = s
}

// For returns the strategy for kind.
func (r *Registry) For(kind plugin.Kind) (Strategy, error) {
	s, ok := r.strategies[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no strategy for %s", plugin.ErrUnknownKind, kind)
	}
	return s, nil
}

// Kinds returns the registered kinds in declaration order.
func (r *Registry) Kinds() []plugin.Kind {
	kinds := make([]plugin.Kind, 0, len(r.strategies))
	for k := range r.strategies {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Menu returns the context menu for a descriptor. Bad descriptors have
// none.
func (r *Registry) Menu(d plugin.Descriptor) ([]MenuItem, error) {
	switch d := d.(type) {
	case *plugin.Normal:
		s, err := r.For(d.Kind())
		if err != nil {
			return nil, err
		}
		return s.ContextMenu(d, d.Instance()), nil
	case *plugin.Bad:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected descriptor %T", d)
	}
}
