package plugin

import (
	"fmt"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
)

// Instance methods a plugin object may define. All are optional.
const (
	MethodShow            = "show"
	MethodHide            = "hide"
	MethodReady           = "ready"
	MethodSnapshot        = "snapshot"
	MethodRestore         = "restore"
	MethodReloadConfig    = "reload_config"
	MethodOpenSettings    = "open_settings"
	MethodHighlightBorder = "highlight_border"
)

// Instance is the object a plugin factory returned, plus the host-side
// state the overlay tracks for it.
type Instance struct {
	id   string
	kind Kind
	name string

	unit *Unit
	obj  *lua.LTable

	visible bool
	running bool
	readied bool
}

func newInstance(unit *Unit, kind Kind, name string, obj *lua.LTable) *Instance {
	return &Instance{
		id:   uuid.NewString(),
		kind: kind,
		name: name,
		unit: unit,
		obj:  obj,
	}
}

// ID returns the instance's unique identity.
func (i *Instance) ID() string {
	return i.id
}

// Kind returns the kind the instance was built as.
func (i *Instance) Kind() Kind {
	return i.kind
}

// Name returns the display name of the descriptor that built the instance.
func (i *Instance) Name() string {
	return i.name
}

// Object returns the plugin's Lua object.
func (i *Instance) Object() *lua.LTable {
	return i.obj
}

// Visible reports whether the instance is shown.
func (i *Instance) Visible() bool {
	return i.visible
}

// Running reports the widget running flag.
func (i *Instance) Running() bool {
	return i.running
}

// SetRunning sets the widget running flag.
func (i *Instance) SetRunning(running bool) {
	i.running = running
}

// Readied reports whether the ready hook has run.
func (i *Instance) Readied() bool {
	return i.readied
}

// Show makes the instance visible.
func (i *Instance) Show() error {
	if err := i.invoke(MethodShow); err != nil {
		return err
	}
	i.visible = true
	return nil
}

// Hide hides the instance.
func (i *Instance) Hide() error {
	if err := i.invoke(MethodHide); err != nil {
		return err
	}
	i.visible = false
	return nil
}

// Ready runs the plugin's ready hook. It runs at most once.
func (i *Instance) Ready() error {
	if i.readied {
		return nil
	}
	if err := i.invoke(MethodReady); err != nil {
		return err
	}
	i.readied = true
	return nil
}

// ReloadConfig asks the plugin to reload its configuration.
func (i *Instance) ReloadConfig() error {
	return i.invoke(MethodReloadConfig)
}

// OpenSettings asks the plugin to show its settings.
func (i *Instance) OpenSettings() error {
	return i.invoke(MethodOpenSettings)
}

// HighlightBorder asks the plugin to highlight its window border.
func (i *Instance) HighlightBorder() error {
	return i.invoke(MethodHighlightBorder)
}

// Snapshot returns the plugin-owned configuration snapshot. A plugin without
// a snapshot method yields nil.
func (i *Instance) Snapshot() (map[string]any, error) {
	results, found, err := i.unit.state.CallMethod(i.obj, MethodSnapshot)
	if err != nil {
		return nil, i.methodError(MethodSnapshot, err)
	}
	if !found || len(results) == 0 {
		return nil, nil
	}
	return i.unit.bridge.TableToMap(results[0]), nil
}

// Restore hands a previously captured snapshot back to the plugin.
func (i *Instance) Restore(snapshot map[string]any) error {
	if snapshot == nil {
		return nil
	}
	_, _, err := i.unit.state.CallMethod(i.obj, MethodRestore, i.unit.bridge.ToLuaValue(snapshot))
	if err != nil {
		return i.methodError(MethodRestore, err)
	}
	return nil
}

// invoke calls an optional no-argument method on the plugin object.
func (i *Instance) invoke(method string) error {
	if _, _, err := i.unit.state.CallMethod(i.obj, method); err != nil {
		return i.methodError(method, err)
	}
	return nil
}

func (i *Instance) methodError(method string, err error) error {
	return fmt.Errorf("plugin %q: %s: %w", i.name, method, err)
}
