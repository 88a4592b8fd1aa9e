// Package preload holds the kind-specific behaviour of plugin descriptors.
//
// Every Kind has one Strategy. Save, restore, activation, duplication and
// context-menu construction all go through Registry.For(kind); nothing else
// branches on a descriptor's kind.
package preload

import (
	"github.com/dshills/overlay/internal/plugin"
	"github.com/dshills/overlay/internal/settings"
)

// Bookkeeping keys written for every descriptor.
const (
	KeyModule   = "module"
	KeyActive   = "active"
	KeyOrigName = "orig_name"
)

// Window-only bookkeeping keys.
const (
	KeyCloneCount  = "clone_count"
	KeyIsDuplicate = "is_duplicate"
)

// Params are the stored fields used to reconstruct a descriptor.
type Params struct {
	DisplayName string
	OrigName    string

	// Window only.
	CloneCount  int
	IsDuplicate bool
}

// Strategy is the behaviour of one plugin kind.
type Strategy interface {
	// Kind returns the kind this strategy handles.
	Kind() plugin.Kind

	// CreateDescriptor builds a Normal descriptor of this kind.
	CreateDescriptor(unit *plugin.Unit, active bool, p Params) *plugin.Normal

	// OnSave writes the kind-specific fields of d into g.
	OnSave(d *plugin.Normal, g *settings.Group) error

	// OnLoad runs before a stored entry is rebuilt. A non-nil instance
	// short-circuits the normal build.
	OnLoad(g *settings.Group, parent plugin.Parent) (*plugin.Instance, error)

	// RestoreParameters reads back the kind-specific fields OnSave wrote.
	RestoreParameters(g *settings.Group) (Params, error)

	// SetActive records the activation flag on d and applies it to inst,
	// which may be nil when d has not been built.
	SetActive(d *plugin.Normal, inst *plugin.Instance, active bool) error

	// Duplicate returns a clone of d, or plugin.ErrNotSupported.
	Duplicate(d *plugin.Normal) (*plugin.Normal, error)

	// ContextMenu returns the actions valid for d.
	ContextMenu(d *plugin.Normal, inst *plugin.Instance) []MenuItem
}

// commonMenu is shared by every kind.
func commonMenu() []MenuItem {
	return []MenuItem{
		{Action: ActionReloadConfig},
		{Action: ActionSettings},
	}
}
