package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/overlay/internal/plugin/plugintest"
)

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "Clock", ArchiveName("/plugins/Clock.plugin"))
	assert.Equal(t, "net.stats", ArchiveName("net.stats.plugin"))
}

func TestOpenArchive(t *testing.T) {
	p := plugintest.WriteArchive(t, t.TempDir(), "Clock", map[string]string{
		"init.lua":     plugintest.Window,
		"lib/util.lua": "return {}",
	})

	a, err := OpenArchive(p)
	require.NoError(t, err)

	assert.Equal(t, "Clock", a.Name)
	assert.Equal(t, p, a.Path)
	assert.Equal(t, []string{"init.lua", "lib/util.lua"}, a.Files())
	assert.True(t, a.Has("lib/util.lua"))
	assert.False(t, a.Has("icon.png"))

	data, err := a.ReadFile("init.lua")
	require.NoError(t, err)
	assert.Equal(t, plugintest.Window, string(data))

	_, err = a.ReadFile("missing.lua")
	assert.Error(t, err)
}

func TestOpenArchiveCorrupt(t *testing.T) {
	p := plugintest.WriteCorrupt(t, t.TempDir(), "Broken")
	_, err := OpenArchive(p)
	assert.Error(t, err)
}

func TestOpenArchiveRejectsEscapingEntries(t *testing.T) {
	p := plugintest.WriteArchive(t, t.TempDir(), "Evil", map[string]string{
		"../outside.lua": "return 1",
	})
	_, err := OpenArchive(p)
	assert.Error(t, err)
}

func TestReadManifest(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		u := loadScript(t, "Plain", plugintest.Window)
		assert.Equal(t, EntryInit, u.Manifest().Main)
		assert.Equal(t, "0.0.0", u.Manifest().Version)
	})

	t.Run("json", func(t *testing.T) {
		u := loadFiles(t, "Clock", map[string]string{
			"plugin.json":  `{"version": "1.2.0", "author": "ops", "main": "src/main.lua"}`,
			"src/main.lua": plugintest.Window,
		})
		assert.Equal(t, "1.2.0", u.Manifest().Version)
		assert.Equal(t, "ops", u.Manifest().Author)
		assert.True(t, u.HasFactory(KindWindow))
	})

	t.Run("yaml", func(t *testing.T) {
		u := loadFiles(t, "Meter", map[string]string{
			"plugin.yaml": "version: 2.0.0\ndescription: cpu meter\n",
			"init.lua":    plugintest.Widget,
		})
		assert.Equal(t, "2.0.0", u.Manifest().Version)
		assert.Equal(t, "cpu meter", u.Manifest().Description)
		assert.Equal(t, EntryInit, u.Manifest().Main)
	})
}

func TestManifestValidate(t *testing.T) {
	m := NewManifestMinimal()
	require.NoError(t, m.Validate())

	m.Version = "one"
	assert.True(t, errors.Is(m.Validate(), ErrInvalidVersion))

	m = NewManifestMinimal()
	m.Main = "init.js"
	assert.True(t, errors.Is(m.Validate(), ErrInvalidMain))
}
