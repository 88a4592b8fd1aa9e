package plugin

import (
	"errors"
	"fmt"
)

// Descriptor is one discovered plugin slot. It is a closed sum type: the
// only implementations are *Normal and *Bad, and callers that care switch
// on the concrete type.
type Descriptor interface {
	// DisplayName is the user-visible plugin name.
	DisplayName() string

	// Build returns the descriptor's instance, constructing it on first use.
	Build(parent Parent) (*Instance, error)

	sealed()
}

// NormalConfig describes a Normal descriptor to construct.
type NormalConfig struct {
	Kind   Kind
	Active bool

	// DisplayName defaults to the unit's archive name.
	DisplayName string

	// OrigName defaults to DisplayName.
	OrigName string

	CloneCount  int
	IsDuplicate bool
}

// Normal is a descriptor backed by a successfully loaded unit.
type Normal struct {
	unit *Unit
	kind Kind

	active      bool
	cloneCount  int
	isDuplicate bool

	displayName string
	origName    string

	built *Instance
}

// NewNormal creates a descriptor for unit.
func NewNormal(unit *Unit, cfg NormalConfig) *Normal {
	display := cfg.DisplayName
	if display == "" {
		display = unit.Name()
	}
	orig := cfg.OrigName
	if orig == "" {
		orig = display
	}
	return &Normal{
		unit:        unit,
		kind:        cfg.Kind,
		active:      cfg.Active,
		cloneCount:  cfg.CloneCount,
		isDuplicate: cfg.IsDuplicate,
		displayName: display,
		origName:    orig,
	}
}

func (*Normal) sealed() {}

// Unit returns the code unit the descriptor builds from.
func (d *Normal) Unit() *Unit {
	return d.unit
}

// ModuleName returns the archive name persisted as the module identity.
func (d *Normal) ModuleName() string {
	return d.unit.Name()
}

// Kind returns the descriptor's kind.
func (d *Normal) Kind() Kind {
	return d.kind
}

// Active reports the activation flag.
func (d *Normal) Active() bool {
	return d.active
}

// SetActive sets the activation flag.
func (d *Normal) SetActive(active bool) {
	d.active = active
}

// CloneCount returns how many clones have been made from this descriptor.
func (d *Normal) CloneCount() int {
	return d.cloneCount
}

// IsDuplicate reports whether the descriptor is a clone.
func (d *Normal) IsDuplicate() bool {
	return d.isDuplicate
}

// DisplayName returns the user-visible name.
func (d *Normal) DisplayName() string {
	return d.displayName
}

// OrigName returns the display name before any clone suffixing.
func (d *Normal) OrigName() string {
	return d.origName
}

// SaveName returns the persistence key, unique within the kind's group.
func (d *Normal) SaveName() string {
	return SaveName(d.displayName, d.kind)
}

// SaveName derives the persistence key for a display name and kind.
func SaveName(displayName string, kind Kind) string {
	return displayName + "_" + kind.String()
}

// Instance returns the built instance, or nil before the first Build.
func (d *Normal) Instance() *Instance {
	return d.built
}

// Built reports whether Build has produced an instance.
func (d *Normal) Built() bool {
	return d.built != nil
}

// Build returns the descriptor's instance, invoking the kind's factory on
// the first call only.
func (d *Normal) Build(parent Parent) (*Instance, error) {
	if d.built != nil {
		return d.built, nil
	}

	if !d.unit.HasFactory(d.kind) {
		return nil, &BuildError{
			Name: d.displayName,
			Err:  fmt.Errorf("no %s symbol", d.kind.FactorySymbol()),
		}
	}

	obj, err := d.unit.invokeFactory(d.kind, parent)
	if err != nil {
		return nil, &BuildError{Name: d.displayName, Err: err}
	}

	d.built = newInstance(d.unit, d.kind, d.displayName, obj)
	return d.built, nil
}

// Clone creates a duplicate window sharing this descriptor's unit. The
// receiver's clone count is incremented and the clone's display name carries
// the new count, zero-padded to two digits. Widgets return ErrNotSupported
// and are left unmodified.
func (d *Normal) Clone() (*Normal, error) {
	if d.kind != KindWindow {
		return nil, ErrNotSupported
	}

	d.cloneCount++
	return &Normal{
		unit:        d.unit,
		kind:        d.kind,
		isDuplicate: true,
		displayName: fmt.Sprintf("%s%02d", d.displayName, d.cloneCount),
		origName:    d.origName,
	}, nil
}

// String implements fmt.Stringer.
func (d *Normal) String() string {
	return d.SaveName()
}

// Bad is a descriptor for an archive that failed to load. It is immutable
// and can never build.
type Bad struct {
	displayName string
	err         error
}

// NewBad creates a descriptor for a failed archive.
func NewBad(displayName string, err error) *Bad {
	return &Bad{displayName: displayName, err: err}
}

func (*Bad) sealed() {}

// DisplayName returns the archive name.
func (b *Bad) DisplayName() string {
	return b.displayName
}

// Err returns the captured load error.
func (b *Bad) Err() error {
	return b.err
}

// Build always fails.
func (b *Bad) Build(Parent) (*Instance, error) {
	return nil, &BuildError{Name: b.displayName, Err: b.err}
}

// DescribeError formats the captured error for display.
func (b *Bad) DescribeError() string {
	if b.err == nil {
		return "unknown error"
	}
	var le *LoadError
	if errors.As(b.err, &le) {
		return fmt.Sprintf("%s error: %v", le.Stage, le.Err)
	}
	return fmt.Sprintf("%T: %v", b.err, b.err)
}
