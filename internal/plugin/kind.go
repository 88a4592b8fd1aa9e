package plugin

import (
	"fmt"
	"sort"
)

// Kind is the shape a plugin instance takes in the overlay.
type Kind int

// Plugin kinds.
const (
	// KindWindow is a draggable, duplicable window.
	KindWindow Kind = iota + 1

	// KindWidget is a passive, singleton widget.
	KindWidget
)

// Kinds lists every supported kind in restore order.
var Kinds = []Kind{KindWindow, KindWidget}

// factorySymbols maps each kind to the global its archive must define.
var factorySymbols = map[Kind]string{
	KindWindow: "createWindow",
	KindWidget: "createWidget",
}

// WorkerSymbol is defined by some archives for background workers. The
// plugin host recognises the name but never probes it into a Kind.
const WorkerSymbol = "createWorker"

// String returns the kind name used in save names.
func (k Kind) String() string {
	switch k {
	case KindWindow:
		return "Window"
	case KindWidget:
		return "Widget"
	default:
		return "Unknown"
	}
}

// Group returns the settings group that holds this kind's bookkeeping.
func (k Kind) Group() string {
	switch k {
	case KindWindow:
		return "windows"
	case KindWidget:
		return "widgets"
	default:
		return ""
	}
}

// FactorySymbol returns the global function name that builds this kind.
func (k Kind) FactorySymbol() string {
	return factorySymbols[k]
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	_, ok := factorySymbols[k]
	return ok
}

// ParseKind parses a kind name ("Window", "Widget") or group ("windows",
// "widgets").
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if s == k.String() || s == k.Group() {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// KindSet is the set of kinds an archive can build.
type KindSet map[Kind]bool

// Has reports whether the set contains k.
func (s KindSet) Has(k Kind) bool {
	return s[k]
}

// Sorted returns the kinds in the set in declaration order.
func (s KindSet) Sorted() []Kind {
	kinds := make([]Kind, 0, len(s))
	for k, ok := range s {
		if ok {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
