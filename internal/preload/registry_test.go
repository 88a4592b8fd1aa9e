package preload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/overlay/internal/plugin"
	"github.com/dshills/overlay/internal/plugin/plugintest"
)

func TestRegistryFor(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []plugin.Kind{plugin.KindWindow, plugin.KindWidget}, r.Kinds())

	s, err := r.For(plugin.KindWindow)
	require.NoError(t, err)
	assert.Equal(t, plugin.KindWindow, s.Kind())

	_, err = r.For(plugin.Kind(42))
	assert.ErrorIs(t, err, plugin.ErrUnknownKind)
}

// fakeWidget records calls so dispatch can be checked in isolation.
type fakeWidget struct {
	Widget
	menus int
}

func (f *fakeWidget) ContextMenu(d *plugin.Normal, inst *plugin.Instance) []MenuItem {
	f.menus++
	return nil
}

func TestRegistryDispatchesOnKind(t *testing.T) {
	fake := &fakeWidget{}
	r := NewRegistryWith(Window{}, fake)

	u := loadUnit(t, "Meter", plugintest.Both)
	wid := Widget{}.CreateDescriptor(u, false, Params{})
	win := Window{}.CreateDescriptor(u, false, Params{})

	_, err := r.Menu(wid)
	require.NoError(t, err)
	items, err := r.Menu(win)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.menus)
	assert.Len(t, items, 4)
}

func TestRegistryMenuBad(t *testing.T) {
	items, err := NewRegistry().Menu(plugin.NewBad("Broken", errors.New("corrupt")))
	assert.NoError(t, err)
	assert.Nil(t, items)
}

func TestRegistryMissingStrategy(t *testing.T) {
	r := NewRegistryWith(Window{})
	u := loadUnit(t, "Meter", plugintest.Widget)

	_, err := r.Menu(Widget{}.CreateDescriptor(u, false, Params{}))
	assert.ErrorIs(t, err, plugin.ErrUnknownKind)
}
