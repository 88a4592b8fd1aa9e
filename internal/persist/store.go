// Package persist saves plugin descriptors to the settings tree and snapshot
// store, and rebuilds them at startup.
package persist

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/overlay/internal/logging"
	"github.com/dshills/overlay/internal/metrics"
	"github.com/dshills/overlay/internal/plugin"
	"github.com/dshills/overlay/internal/preload"
	"github.com/dshills/overlay/internal/settings"
)

// ErrEntryNotFound is returned by LoadEntry for a save name with no stored
// group.
var ErrEntryNotFound = errors.New("no stored entry")

// Resolver finds the code unit for a persisted module name.
type Resolver interface {
	Resolve(module string) (*plugin.Unit, error)
}

// Restored is one rebuilt descriptor. Instance is nil unless the entry was
// active and built successfully.
type Restored struct {
	Descriptor *plugin.Normal
	Instance   *plugin.Instance
}

// Store reads and writes descriptor bookkeeping and instance snapshots.
type Store struct {
	tree      *settings.Tree
	snapshots settings.SnapshotStore
	registry  *preload.Registry
	resolver  Resolver

	log     *logging.Logger
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log *logging.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithMetrics sets the metrics the store records to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates a store.
func NewStore(tree *settings.Tree, snapshots settings.SnapshotStore, registry *preload.Registry, resolver Resolver, opts ...Option) *Store {
	s := &Store{
		tree:      tree,
		snapshots: snapshots,
		registry:  registry,
		resolver:  resolver,
		log:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("persist")
	return s
}

// Tree returns the bookkeeping tree.
func (s *Store) Tree() *settings.Tree {
	return s.tree
}

// Snapshots returns the snapshot store.
func (s *Store) Snapshots() settings.SnapshotStore {
	return s.snapshots
}

// SaveAll replaces everything stored with the given descriptors. Every kind
// group is cleared first and the snapshot store is rewritten as a whole, so
// a descriptor missing from descs does not survive. Built instances are
// snapshotted afresh; a live descriptor that was never built this session
// keeps the snapshot it already had. Bad descriptors are not persisted.
func (s *Store) SaveAll(descs []plugin.Descriptor) error {
	snaps := make(map[string]map[string]any)
	for _, d := range descs {
		n, ok := d.(*plugin.Normal)
		if !ok {
			continue
		}
		snap, err := s.snapshotOf(n)
		if err != nil {
			return fmt.Errorf("reading snapshot %s: %w", n.SaveName(), err)
		}
		if snap != nil {
			snaps[n.SaveName()] = snap
		}
	}

	for _, k := range s.registry.Kinds() {
		s.tree.Remove(k.Group())
	}
	for _, d := range descs {
		n, ok := d.(*plugin.Normal)
		if !ok {
			continue
		}
		if err := s.save(n); err != nil {
			return fmt.Errorf("saving %s: %w", n.SaveName(), err)
		}
	}

	if err := s.snapshots.Replace(snaps); err != nil {
		return fmt.Errorf("writing snapshots: %w", err)
	}
	return nil
}

// snapshotOf returns what should be stored for d: the live instance's
// snapshot, or the stored one when d has no instance or its snapshot hook
// fails.
func (s *Store) snapshotOf(d *plugin.Normal) (map[string]any, error) {
	if inst := d.Instance(); inst != nil {
		snap, err := inst.Snapshot()
		if err == nil {
			return snap, nil
		}
		s.log.Warn("plugin snapshot failed, keeping stored snapshot",
			zap.String("save_name", d.SaveName()),
			zap.Error(err))
	}
	snap, _, err := s.snapshots.Get(d.SaveName())
	return snap, err
}

func (s *Store) save(d *plugin.Normal) error {
	strategy, err := s.registry.For(d.Kind())
	if err != nil {
		return err
	}

	g := s.tree.Group(d.Kind().Group(), d.SaveName())
	if err := g.Set(preload.KeyModule, d.ModuleName()); err != nil {
		return err
	}
	if err := g.Set(preload.KeyActive, d.Active()); err != nil {
		return err
	}
	if err := g.Set(preload.KeyOrigName, d.OrigName()); err != nil {
		return err
	}
	return strategy.OnSave(d, g)
}

// Entries returns the stored save names for kind, sorted.
func (s *Store) Entries(kind plugin.Kind) []string {
	return s.tree.Group(kind.Group()).Groups()
}

// LoadGroup rebuilds every stored entry of kind. Entries whose module can no
// longer be resolved are logged and skipped.
func (s *Store) LoadGroup(kind plugin.Kind, parent plugin.Parent) ([]Restored, error) {
	var out []Restored
	for _, name := range s.Entries(kind) {
		r, ok, err := s.LoadEntry(kind, name, parent)
		if err != nil {
			return out, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// LoadEntry rebuilds one stored entry. It reports false when the entry was
// skipped. Active entries are built, given their snapshot back and
// activated; a build failure leaves the descriptor inactive with no
// instance.
func (s *Store) LoadEntry(kind plugin.Kind, saveName string, parent plugin.Parent) (Restored, bool, error) {
	strategy, err := s.registry.For(kind)
	if err != nil {
		return Restored{}, false, err
	}

	g := s.tree.Group(kind.Group(), saveName)
	if !g.Exists() {
		return Restored{}, false, fmt.Errorf("%w: %s/%s", ErrEntryNotFound, kind.Group(), saveName)
	}

	log := s.log.With(zap.String("save_name", saveName))

	module, err := g.GetString(preload.KeyModule)
	if err != nil {
		log.Warn("stored entry has no module", zap.Error(err))
		s.metrics.RestoreSkipped()
		return Restored{}, false, nil
	}
	log = log.With(zap.String("module", module))

	unit, err := s.resolver.Resolve(module)
	if err != nil {
		log.Warn("plugin module unavailable, skipping entry", zap.Error(err))
		s.metrics.RestoreSkipped()
		return Restored{}, false, nil
	}

	inst, err := strategy.OnLoad(g, parent)
	if err != nil {
		log.Warn("plugin pre-load hook failed", zap.Error(err))
		s.metrics.RestoreSkipped()
		return Restored{}, false, nil
	}

	params, err := strategy.RestoreParameters(g)
	if err != nil {
		log.Warn("stored entry is malformed", zap.Error(err))
		s.metrics.RestoreSkipped()
		return Restored{}, false, nil
	}
	params.DisplayName = displayName(saveName, kind)

	// Absent keys take their defaults; a value of the wrong type makes the
	// entry unusable.
	origName, err := g.GetString(preload.KeyOrigName)
	if err == nil {
		params.OrigName = origName
	}
	if err != nil && !errors.Is(err, settings.ErrSettingNotFound) {
		log.Warn("stored entry is malformed", zap.Error(err))
		s.metrics.RestoreSkipped()
		return Restored{}, false, nil
	}
	active, err := g.GetBool(preload.KeyActive)
	if err != nil && !errors.Is(err, settings.ErrSettingNotFound) {
		log.Warn("stored entry is malformed", zap.Error(err))
		s.metrics.RestoreSkipped()
		return Restored{}, false, nil
	}
	d := strategy.CreateDescriptor(unit, active, params)

	if inst != nil || !active {
		return Restored{Descriptor: d, Instance: inst}, true, nil
	}

	inst, err = d.Build(parent)
	s.metrics.Built(kind.String(), err == nil)
	if err != nil {
		log.Warn("plugin build failed, restoring inactive", zap.Error(err))
		d.SetActive(false)
		return Restored{Descriptor: d}, true, nil
	}

	s.restoreSnapshot(log, saveName, inst)

	if err := strategy.SetActive(d, inst, true); err != nil {
		log.Warn("plugin activation failed", zap.Error(err))
	}
	return Restored{Descriptor: d, Instance: inst}, true, nil
}

func (s *Store) restoreSnapshot(log *logging.Logger, saveName string, inst *plugin.Instance) {
	snap, ok, err := s.snapshots.Get(saveName)
	if err != nil {
		log.Warn("reading snapshot failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	if err := inst.Restore(snap); err != nil {
		log.Warn("plugin rejected snapshot", zap.Error(err))
	}
}

// Flush writes both stores to disk.
func (s *Store) Flush() error {
	if err := s.tree.Flush(); err != nil {
		return fmt.Errorf("flushing settings: %w", err)
	}
	if err := s.snapshots.Flush(); err != nil {
		return fmt.Errorf("flushing snapshots: %w", err)
	}
	return nil
}

// Close releases the snapshot store.
func (s *Store) Close() error {
	return s.snapshots.Close()
}

// displayName recovers the display name from a save name.
func displayName(saveName string, kind plugin.Kind) string {
	return strings.TrimSuffix(saveName, "_"+kind.String())
}
