package plugin

import (
	"fmt"

	plua "github.com/dshills/overlay/internal/plugin/lua"
	lua "github.com/yuin/gopher-lua"
)

// Parent is the windowing-layer object a built instance is attached to.
// Its properties are handed to the plugin factory as a Lua table.
type Parent interface {
	Properties() map[string]any
}

// Unit is one archive loaded into its own Lua state. Descriptors hold a
// non-owning reference; the Scanner that loaded the unit closes it.
type Unit struct {
	archive  *Archive
	manifest *Manifest

	state  *plua.State
	bridge *plua.Bridge

	caps KindSet
}

// LoadUnit runs the archive's entry point in a fresh Lua state and probes
// the resulting globals for factory symbols. Failures are returned as
// *LoadError.
func LoadUnit(a *Archive) (*Unit, error) {
	manifest, err := ReadManifest(a)
	if err != nil {
		return nil, &LoadError{Archive: a.Name, Stage: StageManifest, Err: err}
	}

	code, err := a.ReadFile(manifest.Main)
	if err != nil {
		return nil, &LoadError{
			Archive: a.Name,
			Stage:   StageArchive,
			Err:     fmt.Errorf("%w: %s", ErrNoEntryPoint, manifest.Main),
		}
	}

	state, err := plua.NewState(plua.WithName(a.Name), plua.WithModuleSource(a))
	if err != nil {
		return nil, &LoadError{Archive: a.Name, Stage: StageScript, Err: err}
	}

	if err := state.DoChunk(manifest.Main, string(code)); err != nil {
		state.Close()
		return nil, &LoadError{Archive: a.Name, Stage: StageScript, Err: err}
	}

	u := &Unit{
		archive:  a,
		manifest: manifest,
		state:    state,
		bridge:   plua.NewBridge(state.LuaState()),
	}
	u.caps = ProbeCapabilities(u.state)
	return u, nil
}

// ProbeCapabilities returns the kinds whose factory symbol the state
// defines as a function.
func ProbeCapabilities(state *plua.State) KindSet {
	caps := make(KindSet)
	for _, k := range Kinds {
		if state.HasFunction(k.FactorySymbol()) {
			caps[k] = true
		}
	}
	return caps
}

// Name returns the module name (archive base name).
func (u *Unit) Name() string {
	return u.archive.Name
}

// Archive returns the archive the unit was loaded from.
func (u *Unit) Archive() *Archive {
	return u.archive
}

// Manifest returns the archive manifest.
func (u *Unit) Manifest() *Manifest {
	return u.manifest
}

// Capabilities returns the kinds this unit can build.
func (u *Unit) Capabilities() KindSet {
	caps := make(KindSet, len(u.caps))
	for k, v := range u.caps {
		caps[k] = v
	}
	return caps
}

// HasFactory reports whether the unit can build k.
func (u *Unit) HasFactory(k Kind) bool {
	return u.caps.Has(k)
}

// State returns the unit's Lua state.
func (u *Unit) State() *plua.State {
	return u.state
}

// invokeFactory calls create<Kind>(host) and returns the instance table.
func (u *Unit) invokeFactory(k Kind, parent Parent) (*lua.LTable, error) {
	if u.state.IsClosed() {
		return nil, ErrUnitClosed
	}
	symbol := k.FactorySymbol()
	if symbol == "" || !u.state.HasFunction(symbol) {
		return nil, fmt.Errorf("%s does not define %s", u.Name(), symbol)
	}

	var props map[string]any
	if parent != nil {
		props = parent.Properties()
	}
	if props == nil {
		props = map[string]any{}
	}

	results, err := u.state.Call(symbol, u.bridge.ToLuaValue(props))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%s returned nothing", symbol)
	}
	obj, ok := results[0].(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s returned %s, want table", symbol, results[0].Type())
	}
	return obj, nil
}

// Close releases the unit's Lua state.
func (u *Unit) Close() error {
	return u.state.Close()
}
