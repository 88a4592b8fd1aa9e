package preload

import (
	"github.com/dshills/overlay/internal/plugin"
	"github.com/dshills/overlay/internal/settings"
)

// Widget is the strategy for passive, singleton widgets.
type Widget struct{}

var _ Strategy = Widget{}

// Kind returns plugin.KindWidget.
func (Widget) Kind() plugin.Kind {
	return plugin.KindWidget
}

// CreateDescriptor builds a widget descriptor. Clone fields are ignored.
func (Widget) CreateDescriptor(unit *plugin.Unit, active bool, p Params) *plugin.Normal {
	return plugin.NewNormal(unit, plugin.NormalConfig{
		Kind:        plugin.KindWidget,
		Active:      active,
		DisplayName: p.DisplayName,
		OrigName:    p.OrigName,
	})
}

// OnSave writes nothing beyond the common fields.
func (Widget) OnSave(*plugin.Normal, *settings.Group) error {
	return nil
}

// OnLoad does nothing for widgets.
func (Widget) OnLoad(*settings.Group, plugin.Parent) (*plugin.Instance, error) {
	return nil, nil
}

// RestoreParameters has nothing widget-specific to read.
func (Widget) RestoreParameters(*settings.Group) (Params, error) {
	return Params{}, nil
}

// SetActive toggles the running flag. Activation runs the ready hook once
// before the first show.
func (Widget) SetActive(d *plugin.Normal, inst *plugin.Instance, active bool) error {
	d.SetActive(active)
	if inst == nil {
		return nil
	}

	inst.SetRunning(active)
	if !active {
		return inst.Hide()
	}
	if err := inst.Ready(); err != nil {
		return err
	}
	return inst.Show()
}

// Duplicate is not supported; widgets are singletons.
func (Widget) Duplicate(*plugin.Normal) (*plugin.Normal, error) {
	return nil, plugin.ErrNotSupported
}

// ContextMenu returns the common actions only.
func (Widget) ContextMenu(*plugin.Normal, *plugin.Instance) []MenuItem {
	return commonMenu()
}
