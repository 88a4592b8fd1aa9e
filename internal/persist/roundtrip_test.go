package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dshills/overlay/internal/plugin"
	"github.com/dshills/overlay/internal/plugin/plugintest"
	"github.com/dshills/overlay/internal/preload"
	"github.com/dshills/overlay/internal/settings"
)

// TestSaveLoadRoundTrip checks that every saved Normal descriptor comes back
// with the same kind, activation, clone fields and save name.
func TestSaveLoadRoundTrip(t *testing.T) {
	f := newFixture(t)
	unit := f.unit(t, "Clock", plugintest.Both)

	rapid.Check(t, func(rt *rapid.T) {
		store := NewStore(settings.NewTree(), settings.NewJSONSnapshots(), f.registry, f.scanner)

		n := rapid.IntRange(0, 8).Draw(rt, "count")
		saved := make(map[string]*plugin.Normal, n)
		var descs []plugin.Descriptor

		for i := 0; i < n; i++ {
			kind := rapid.SampledFrom(plugin.Kinds).Draw(rt, "kind")
			name := rapid.StringMatching(`[A-Za-z][A-Za-z0-9]{0,11}`).Draw(rt, "name")
			params := preload.Params{DisplayName: name}
			if kind == plugin.KindWindow {
				params.CloneCount = rapid.IntRange(0, 99).Draw(rt, "clone_count")
				params.IsDuplicate = rapid.Bool().Draw(rt, "is_duplicate")
			}
			active := rapid.Bool().Draw(rt, "active")

			s, err := f.registry.For(kind)
			require.NoError(rt, err)
			d := s.CreateDescriptor(unit, active, params)

			key := d.Kind().Group() + "/" + d.SaveName()
			if _, dup := saved[key]; dup {
				continue
			}
			saved[key] = d
			descs = append(descs, d)
		}

		require.NoError(rt, store.SaveAll(descs))

		var loaded int
		for _, kind := range plugin.Kinds {
			restored, err := store.LoadGroup(kind, nil)
			require.NoError(rt, err)

			for _, r := range restored {
				loaded++
				got := r.Descriptor
				want, ok := saved[kind.Group()+"/"+got.SaveName()]
				require.True(rt, ok, "unexpected %s", got.SaveName())

				assert.Equal(rt, want.Kind(), got.Kind())
				assert.Equal(rt, want.Active(), got.Active())
				assert.Equal(rt, want.CloneCount(), got.CloneCount())
				assert.Equal(rt, want.IsDuplicate(), got.IsDuplicate())
				assert.Equal(rt, want.SaveName(), got.SaveName())
				assert.Equal(rt, want.OrigName(), got.OrigName())
				assert.Equal(rt, got.Active(), r.Instance != nil)
			}
		}
		assert.Equal(rt, len(saved), loaded)
	})
}
