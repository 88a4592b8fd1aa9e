package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupSetGet(t *testing.T) {
	tree := NewTree()
	g := tree.Group("windows", "Clock_Window")

	assert.False(t, g.Exists())
	require.NoError(t, g.Set("module", "Clock"))
	require.NoError(t, g.Set("active", true))
	require.NoError(t, g.Set("clone_count", 2))
	assert.True(t, g.Exists())

	s, err := g.GetString("module")
	require.NoError(t, err)
	assert.Equal(t, "Clock", s)

	b, err := g.GetBool("active")
	require.NoError(t, err)
	assert.True(t, b)

	n, err := g.GetInt("clone_count")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = g.GetString("missing")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	_, err = g.GetBool("module")
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	assert.Equal(t, []string{"active", "clone_count", "module"}, g.Keys())
	assert.Equal(t, []string{"Clock_Window"}, tree.Group("windows").Groups())
	assert.Equal(t, "windows/Clock_Window", g.String())
	assert.Equal(t, "Clock_Window", g.Name())
}

func TestGroupSetThroughValue(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Group("windows").Set("flat", 1))

	err := tree.Group("windows", "flat").Set("x", 1)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestTreeRemoveAndClear(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Group("windows", "A_Window").Set("active", true))
	require.NoError(t, tree.Group("windows", "B_Window").Set("active", false))
	require.NoError(t, tree.Group("widgets", "C_Widget").Set("active", true))

	tree.Group("windows", "A_Window").Remove()
	assert.Equal(t, []string{"B_Window"}, tree.Group("windows").Groups())

	tree.Remove("widgets")
	assert.Equal(t, []string{"windows"}, tree.Groups())

	tree.Remove("nope", "deeper")

	tree.Clear()
	assert.Empty(t, tree.Groups())
}

func TestTreeMapIsCopy(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Group("windows", "A_Window").Set("active", true))

	m := tree.Map()
	m["windows"].(map[string]any)["A_Window"].(map[string]any)["active"] = false

	b, err := tree.Group("windows", "A_Window").GetBool("active")
	require.NoError(t, err)
	assert.True(t, b)
}

func TestTreeFlushAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")

	tree, err := OpenTree(path)
	require.NoError(t, err)
	assert.Empty(t, tree.Groups())

	g := tree.Group("windows", "net.stats_Window")
	require.NoError(t, g.Set("module", "net.stats"))
	require.NoError(t, g.Set("clone_count", 3))
	require.NoError(t, g.Set("is_duplicate", false))
	require.NoError(t, tree.Flush())

	reopened, err := OpenTree(path)
	require.NoError(t, err)
	rg := reopened.Group("windows", "net.stats_Window")

	mod, err := rg.GetString("module")
	require.NoError(t, err)
	assert.Equal(t, "net.stats", mod)

	n, err := rg.GetInt("clone_count")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestOpenTreeParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("[windows\n"), 0o644))

	_, err := OpenTree(path)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, path, pe.Path)
}

func TestInMemoryFlushIsNoop(t *testing.T) {
	assert.NoError(t, NewTree().Flush())
}
