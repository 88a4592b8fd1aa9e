package preload

import (
	"errors"

	"github.com/dshills/overlay/internal/plugin"
	"github.com/dshills/overlay/internal/settings"
)

// Window is the strategy for movable, duplicable windows.
type Window struct{}

var _ Strategy = Window{}

// Kind returns plugin.KindWindow.
func (Window) Kind() plugin.Kind {
	return plugin.KindWindow
}

// CreateDescriptor builds a window descriptor, carrying the clone fields.
func (Window) CreateDescriptor(unit *plugin.Unit, active bool, p Params) *plugin.Normal {
	return plugin.NewNormal(unit, plugin.NormalConfig{
		Kind:        plugin.KindWindow,
		Active:      active,
		DisplayName: p.DisplayName,
		OrigName:    p.OrigName,
		CloneCount:  p.CloneCount,
		IsDuplicate: p.IsDuplicate,
	})
}

// OnSave writes clone_count and is_duplicate.
func (Window) OnSave(d *plugin.Normal, g *settings.Group) error {
	if err := g.Set(KeyCloneCount, d.CloneCount()); err != nil {
		return err
	}
	return g.Set(KeyIsDuplicate, d.IsDuplicate())
}

// OnLoad does nothing for windows.
func (Window) OnLoad(*settings.Group, plugin.Parent) (*plugin.Instance, error) {
	return nil, nil
}

// RestoreParameters reads clone_count and is_duplicate. Missing keys keep
// their zero values.
func (Window) RestoreParameters(g *settings.Group) (Params, error) {
	var p Params

	n, err := g.GetInt(KeyCloneCount)
	if err != nil && !errors.Is(err, settings.ErrSettingNotFound) {
		return Params{}, err
	}
	p.CloneCount = n

	dup, err := g.GetBool(KeyIsDuplicate)
	if err != nil && !errors.Is(err, settings.ErrSettingNotFound) {
		return Params{}, err
	}
	p.IsDuplicate = dup

	return p, nil
}

// SetActive shows or hides the window.
func (Window) SetActive(d *plugin.Normal, inst *plugin.Instance, active bool) error {
	d.SetActive(active)
	if inst == nil {
		return nil
	}
	if active {
		return inst.Show()
	}
	return inst.Hide()
}

// Duplicate clones the window.
func (Window) Duplicate(d *plugin.Normal) (*plugin.Normal, error) {
	return d.Clone()
}

// ContextMenu adds the window actions; Delete Duplicate appears on clones
// only.
func (Window) ContextMenu(d *plugin.Normal, _ *plugin.Instance) []MenuItem {
	items := append(commonMenu(),
		MenuItem{Action: ActionHighlightBorder},
		MenuItem{Action: ActionDuplicate},
	)
	if d.IsDuplicate() {
		items = append(items, MenuItem{Action: ActionDeleteDuplicate})
	}
	return items
}
