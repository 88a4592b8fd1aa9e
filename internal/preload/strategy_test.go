package preload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/overlay/internal/plugin"
	"github.com/dshills/overlay/internal/plugin/plugintest"
	"github.com/dshills/overlay/internal/settings"
)

func loadUnit(t *testing.T, name, script string) *plugin.Unit {
	t.Helper()
	a, err := plugin.OpenArchive(plugintest.WriteScript(t, t.TempDir(), name, script))
	require.NoError(t, err)
	u, err := plugin.LoadUnit(a)
	require.NoError(t, err)
	t.Cleanup(func() { u.Close() })
	return u
}

func TestWindowSaveRestore(t *testing.T) {
	u := loadUnit(t, "Clock", plugintest.Window)
	w := Window{}

	d := w.CreateDescriptor(u, true, Params{
		DisplayName: "Clock02",
		OrigName:    "Clock",
		CloneCount:  1,
		IsDuplicate: true,
	})
	assert.Equal(t, plugin.KindWindow, d.Kind())
	assert.Equal(t, "Clock02_Window", d.SaveName())

	g := settings.NewTree().Group("windows", d.SaveName())
	require.NoError(t, w.OnSave(d, g))
	assert.Equal(t, []string{KeyCloneCount, KeyIsDuplicate}, g.Keys())

	p, err := w.RestoreParameters(g)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CloneCount)
	assert.True(t, p.IsDuplicate)

	inst, err := w.OnLoad(g, nil)
	assert.NoError(t, err)
	assert.Nil(t, inst)
}

func TestWindowRestoreDefaults(t *testing.T) {
	p, err := Window{}.RestoreParameters(settings.NewTree().Group("windows", "X_Window"))
	require.NoError(t, err)
	assert.Equal(t, Params{}, p)
}

func TestWindowRestoreTypeMismatch(t *testing.T) {
	g := settings.NewTree().Group("windows", "X_Window")
	require.NoError(t, g.Set(KeyCloneCount, "many"))

	_, err := Window{}.RestoreParameters(g)
	assert.ErrorIs(t, err, settings.ErrTypeMismatch)
}

func TestWidgetIgnoresCloneFields(t *testing.T) {
	u := loadUnit(t, "Meter", plugintest.Widget)
	w := Widget{}

	d := w.CreateDescriptor(u, false, Params{CloneCount: 4, IsDuplicate: true})
	assert.Equal(t, plugin.KindWidget, d.Kind())
	assert.Equal(t, 0, d.CloneCount())
	assert.False(t, d.IsDuplicate())

	g := settings.NewTree().Group("widgets", d.SaveName())
	require.NoError(t, w.OnSave(d, g))
	assert.False(t, g.Exists())
}

func TestWindowSetActive(t *testing.T) {
	u := loadUnit(t, "Clock", plugintest.Window)
	w := Window{}
	d := w.CreateDescriptor(u, false, Params{})

	require.NoError(t, w.SetActive(d, nil, true))
	assert.True(t, d.Active())

	inst, err := d.Build(nil)
	require.NoError(t, err)
	require.NoError(t, w.SetActive(d, inst, true))
	assert.True(t, inst.Visible())
	assert.False(t, inst.Readied())
	assert.False(t, inst.Running())

	require.NoError(t, w.SetActive(d, inst, false))
	assert.False(t, inst.Visible())
	assert.False(t, d.Active())
}

func TestWidgetSetActiveRunsReadyOnce(t *testing.T) {
	u := loadUnit(t, "Meter", `
function createWidget(parent)
  local w = { readies = 0 }
  function w:ready() self.readies = self.readies + 1 end
  return w
end
`)
	w := Widget{}
	d := w.CreateDescriptor(u, false, Params{})
	inst, err := d.Build(nil)
	require.NoError(t, err)

	require.NoError(t, w.SetActive(d, inst, true))
	assert.True(t, inst.Running())
	assert.True(t, inst.Visible())

	require.NoError(t, w.SetActive(d, inst, false))
	assert.False(t, inst.Running())
	assert.False(t, inst.Visible())

	require.NoError(t, w.SetActive(d, inst, true))
	assert.Equal(t, "1", inst.Object().RawGetString("readies").String())
}

func TestDuplicate(t *testing.T) {
	win := Window{}.CreateDescriptor(loadUnit(t, "Clock", plugintest.Window), false, Params{})
	clone, err := Window{}.Duplicate(win)
	require.NoError(t, err)
	assert.Equal(t, 1, win.CloneCount())
	assert.True(t, clone.IsDuplicate())
	assert.NotEqual(t, win.SaveName(), clone.SaveName())

	wid := Widget{}.CreateDescriptor(loadUnit(t, "Meter", plugintest.Widget), true, Params{})
	dup, err := Widget{}.Duplicate(wid)
	assert.Nil(t, dup)
	assert.ErrorIs(t, err, plugin.ErrNotSupported)
	assert.Equal(t, 0, wid.CloneCount())
	assert.True(t, wid.Active())
	assert.Equal(t, "Meter_Widget", wid.SaveName())
}

func TestContextMenus(t *testing.T) {
	u := loadUnit(t, "Clock", plugintest.Both)

	win := Window{}.CreateDescriptor(u, false, Params{})
	assert.Equal(t,
		[]string{"Reload Config", "Settings", "Highlight Border", "Duplicate"},
		Labels(Window{}.ContextMenu(win, nil)))

	clone, err := win.Clone()
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"Reload Config", "Settings", "Highlight Border", "Duplicate", "Delete Duplicate"},
		Labels(Window{}.ContextMenu(clone, nil)))

	wid := Widget{}.CreateDescriptor(u, false, Params{})
	assert.Equal(t, []string{"Reload Config", "Settings"}, Labels(Widget{}.ContextMenu(wid, nil)))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("Delete Duplicate")
	require.NoError(t, err)
	assert.Equal(t, ActionDeleteDuplicate, a)

	_, err = ParseAction("Explode")
	assert.Error(t, err)
	assert.Equal(t, "Action(99)", Action(99).String())
}
