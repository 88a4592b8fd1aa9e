package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/overlay/internal/plugin/plugintest"
)

func TestLoadUnitCapabilities(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []Kind
	}{
		{"window", plugintest.Window, []Kind{KindWindow}},
		{"widget", plugintest.Widget, []Kind{KindWidget}},
		{"both", plugintest.Both, []Kind{KindWindow, KindWidget}},
		{"worker", plugintest.Worker, []Kind{}},
		{"none", "local x = 1", []Kind{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := loadScript(t, tt.name, tt.script)
			assert.Equal(t, tt.want, u.Capabilities().Sorted())
		})
	}
}

func TestLoadUnitNonFunctionSymbol(t *testing.T) {
	u := loadScript(t, "Odd", `createWindow = 42`)
	assert.False(t, u.HasFactory(KindWindow))
}

func TestLoadUnitScriptError(t *testing.T) {
	p := plugintest.WriteScript(t, t.TempDir(), "Bad", plugintest.Syntax)
	a, err := OpenArchive(p)
	require.NoError(t, err)

	_, err = LoadUnit(a)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, StageScript, le.Stage)
	assert.Equal(t, "Bad", le.Archive)
}

func TestLoadUnitNoEntryPoint(t *testing.T) {
	p := plugintest.WriteArchive(t, t.TempDir(), "Empty", map[string]string{
		"README": "nothing here",
	})
	a, err := OpenArchive(p)
	require.NoError(t, err)

	_, err = LoadUnit(a)
	assert.True(t, errors.Is(err, ErrNoEntryPoint))
}

func TestLoadUnitRequireSibling(t *testing.T) {
	u := loadFiles(t, "Clock", map[string]string{
		"init.lua": `
local fmt = require("lib.fmt")
function createWindow(parent) return { label = fmt.label() } end
`,
		"lib/fmt.lua": `return { label = function() return "12:00" end }`,
	})
	require.True(t, u.HasFactory(KindWindow))

	obj, err := u.invokeFactory(KindWindow, nil)
	require.NoError(t, err)
	assert.Equal(t, "12:00", obj.RawGetString("label").String())
}

func TestUnitsAreIsolated(t *testing.T) {
	a := loadScript(t, "A", "shared = 'a'\n"+plugintest.Window)
	b := loadScript(t, "B", "shared = 'b'\n"+plugintest.Window)

	assert.Equal(t, "a", a.State().GetGlobal("shared").String())
	assert.Equal(t, "b", b.State().GetGlobal("shared").String())
}

func TestInvokeFactoryPassesParent(t *testing.T) {
	u := loadScript(t, "Clock", plugintest.Window)

	obj, err := u.invokeFactory(KindWindow, plugintest.Parent{"title": "Clock"})
	require.NoError(t, err)

	cfg := u.bridge.TableToMap(obj.RawGetString("config"))
	assert.Equal(t, "Clock", cfg["title"])
}

func TestInvokeFactoryClosedUnit(t *testing.T) {
	u := loadScript(t, "Clock", plugintest.Window)
	require.NoError(t, u.Close())

	_, err := u.invokeFactory(KindWindow, nil)
	assert.ErrorIs(t, err, ErrUnitClosed)
}
