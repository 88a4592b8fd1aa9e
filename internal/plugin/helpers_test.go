package plugin

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/overlay/internal/plugin/plugintest"
)

// loadScript writes a single-script archive and loads it as a unit.
func loadScript(t *testing.T, name, script string) *Unit {
	t.Helper()
	return loadFiles(t, name, map[string]string{EntryInit: script})
}

func loadFiles(t *testing.T, name string, files map[string]string) *Unit {
	t.Helper()
	p := plugintest.WriteArchive(t, t.TempDir(), name, files)
	a, err := OpenArchive(p)
	require.NoError(t, err)
	u, err := LoadUnit(a)
	require.NoError(t, err)
	t.Cleanup(func() { u.Close() })
	return u
}

// calls returns the hook names the plugin object recorded.
func calls(obj *lua.LTable) []string {
	var out []string
	tbl, ok := obj.RawGetString("calls").(*lua.LTable)
	if !ok {
		return nil
	}
	tbl.ForEach(func(_, v lua.LValue) {
		out = append(out, v.String())
	})
	return out
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func renameFile(from, to string) error {
	return os.Rename(from, to)
}
