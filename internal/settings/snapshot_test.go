package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends opens one store per backend in a fresh directory.
func backends(t *testing.T) map[string]SnapshotStore {
	t.Helper()
	dir := t.TempDir()

	js, err := OpenSnapshots(BackendJSON, filepath.Join(dir, "snapshots.json"))
	require.NoError(t, err)
	db, err := OpenSnapshots(BackendSQLite, filepath.Join(dir, "snapshots.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		js.Close()
		db.Close()
	})
	return map[string]SnapshotStore{BackendJSON: js, BackendSQLite: db}
}

func TestSnapshotStores(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put("Clock_Window", map[string]any{
				"title": "Clock",
				"pos":   map[string]any{"x": 10.0, "y": 20.0},
			}))
			require.NoError(t, store.Put("Meter_Widget", map[string]any{"rate": 1.5}))

			got, ok, err := store.Get("Clock_Window")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "Clock", got["title"])
			assert.Equal(t, map[string]any{"x": 10.0, "y": 20.0}, got["pos"])

			_, ok, err = store.Get("Missing_Window")
			require.NoError(t, err)
			assert.False(t, ok)

			names, err := store.Names()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"Clock_Window", "Meter_Widget"}, names)

			require.NoError(t, store.Delete("Meter_Widget"))
			names, err = store.Names()
			require.NoError(t, err)
			assert.Equal(t, []string{"Clock_Window"}, names)

			require.NoError(t, store.Clear())
			names, err = store.Names()
			require.NoError(t, err)
			assert.Empty(t, names)
		})
	}
}

func TestSnapshotPutReplacesWhole(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put("Clock_Window", map[string]any{"a": 1.0, "b": 2.0}))
			require.NoError(t, store.Put("Clock_Window", map[string]any{"c": 3.0}))

			got, ok, err := store.Get("Clock_Window")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, map[string]any{"c": 3.0}, got)
		})
	}
}

func TestSnapshotReplace(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put("Old_Window", map[string]any{"a": 1.0}))
			require.NoError(t, store.Put("Clock_Window", map[string]any{"a": 1.0}))

			require.NoError(t, store.Replace(map[string]map[string]any{
				"Clock_Window": {"b": 2.0},
				"Meter_Widget": nil,
			}))

			names, err := store.Names()
			require.NoError(t, err)
			assert.Equal(t, []string{"Clock_Window", "Meter_Widget"}, names)

			got, ok, err := store.Get("Clock_Window")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, map[string]any{"b": 2.0}, got)
		})
	}
}

func TestSnapshotReplaceFailureKeepsContent(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put("Clock_Window", map[string]any{"a": 1.0}))

			err := store.Replace(map[string]map[string]any{
				"Meter_Widget": {"ch": make(chan int)},
			})
			require.Error(t, err)

			names, err := store.Names()
			require.NoError(t, err)
			assert.Equal(t, []string{"Clock_Window"}, names)
		})
	}
}

func TestJSONSnapshotsSpecialNames(t *testing.T) {
	s := NewJSONSnapshots()
	name := "net.stats*v2_Window"

	require.NoError(t, s.Put(name, map[string]any{"k": "v"}))
	got, ok, err := s.Get(name)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", got["k"])

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)

	require.NoError(t, s.Delete(name))
	_, ok, err = s.Get(name)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJSONSnapshotsFlushAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.json")

	s, err := OpenJSONSnapshots(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("Clock_Window", map[string]any{"title": "Clock"}))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Put("x", nil), ErrStoreClosed)

	reopened, err := OpenJSONSnapshots(path)
	require.NoError(t, err)
	got, ok, err := reopened.Get("Clock_Window")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Clock", got["title"])
}

func TestOpenJSONSnapshotsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.json")
	require.NoError(t, os.WriteFile(path, []byte("[1, 2"), 0o644))

	_, err := OpenJSONSnapshots(path)
	assert.Error(t, err)
}

func TestSQLiteSnapshotsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s, err := OpenSQLiteSnapshots(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("Clock_Window", map[string]any{"title": "Clock"}))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLiteSnapshots(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get("Clock_Window")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Clock", got["title"])
}

func TestOpenSnapshotsUnknownBackend(t *testing.T) {
	_, err := OpenSnapshots("redis", "x")
	assert.Error(t, err)
}
