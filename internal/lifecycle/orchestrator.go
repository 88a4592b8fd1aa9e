// Package lifecycle drives plugin startup, shutdown and the live operations
// a UI performs on descriptors.
//
// Startup is split into Steps that the host's event loop runs one at a time
// with Next, so scanning a slow plugin directory never blocks the loop for
// longer than one archive or one restored entry. The Orchestrator is not
// safe for concurrent use.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/overlay/internal/logging"
	"github.com/dshills/overlay/internal/metrics"
	"github.com/dshills/overlay/internal/persist"
	"github.com/dshills/overlay/internal/plugin"
	"github.com/dshills/overlay/internal/preload"
)

// Host is the windowing layer built instances attach to.
type Host interface {
	// Parent returns the object handed to plugin factories.
	Parent() plugin.Parent

	// Register attaches a newly built instance.
	Register(d *plugin.Normal, inst *plugin.Instance)

	// Unregister detaches an instance that is going away.
	Unregister(d *plugin.Normal, inst *plugin.Instance)

	// ApplySettings runs once restore has finished.
	ApplySettings(descs []plugin.Descriptor) error
}

// Orchestrator owns the live descriptor list.
type Orchestrator struct {
	scanner  *plugin.Scanner
	registry *preload.Registry
	store    *persist.Store
	host     Host

	log     *logging.Logger
	metrics *metrics.Metrics

	queue Queue
	descs []plugin.Descriptor
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator's logger.
func WithLogger(log *logging.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithMetrics sets the metrics the orchestrator records to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New creates an orchestrator.
func New(scanner *plugin.Scanner, registry *preload.Registry, store *persist.Store, host Host, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scanner:  scanner,
		registry: registry,
		store:    store,
		host:     host,
		log:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.WithComponent("lifecycle")
	return o
}

// Startup queues the startup sequence: scan the plugin directory, load each
// archive, restore every stored group in kind order, then apply settings.
func (o *Orchestrator) Startup() {
	o.queue.Push(Step{Name: "scan", Run: o.scanStep})
	for _, k := range o.registry.Kinds() {
		o.queue.Push(o.restoreGroupStep(k))
	}
	o.queue.Push(Step{Name: "apply-settings", Run: o.applySettingsStep})
}

// Enqueue appends steps to the queue.
func (o *Orchestrator) Enqueue(steps ...Step) {
	o.queue.Push(steps...)
}

// Pending returns the number of queued steps.
func (o *Orchestrator) Pending() int {
	return o.queue.Len()
}

// Next runs exactly one step. It reports whether more steps remain. A step
// error is returned but does not stop the sequence.
func (o *Orchestrator) Next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return o.queue.Len() > 0, err
	}

	step, ok := o.queue.Pop()
	if !ok {
		return false, nil
	}

	follow, err := step.Run(ctx)
	o.metrics.StepExecuted()
	o.queue.pushFront(follow...)
	if err != nil {
		o.log.Error("step failed", zap.String("step", step.Name), zap.Error(err))
		err = fmt.Errorf("step %s: %w", step.Name, err)
	}
	return o.queue.Len() > 0, err
}

// Drain runs steps until the queue is empty or ctx is done. Step errors are
// joined.
func (o *Orchestrator) Drain(ctx context.Context) error {
	var errs []error
	for {
		more, err := o.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Join(append(errs, err)...)
			}
			errs = append(errs, err)
		}
		if !more {
			return errors.Join(errs...)
		}
	}
}

// Shutdown saves every live descriptor and flushes both stores.
func (o *Orchestrator) Shutdown() error {
	if err := o.store.SaveAll(o.descs); err != nil {
		return fmt.Errorf("saving plugins: %w", err)
	}
	return o.store.Flush()
}

func (o *Orchestrator) scanStep(context.Context) ([]Step, error) {
	paths, err := o.scanner.Archives()
	if err != nil {
		return nil, err
	}
	steps := make([]Step, len(paths))
	for i, p := range paths {
		steps[i] = o.loadStep(p, false)
	}
	return steps, nil
}

// loadStep loads one archive. With onlyNew set, descriptors whose save
// name is already live are left alone.
func (o *Orchestrator) loadStep(path string, onlyNew bool) Step {
	name := "load " + plugin.ArchiveName(path)
	if onlyNew {
		name = "rescan " + plugin.ArchiveName(path)
	}
	return Step{
		Name: name,
		Run: func(context.Context) ([]Step, error) {
			o.addArchive(o.scanner.Load(path), onlyNew)
			return nil, nil
		},
	}
}

func (o *Orchestrator) addArchive(lr plugin.LoadResult, onlyNew bool) {
	if lr.Err != nil {
		if onlyNew && o.hasModule(lr.Name) {
			o.log.Warn("reloaded archive failed, keeping loaded plugin",
				zap.String("archive", lr.Name),
				zap.Error(lr.Err))
			return
		}
		o.put(plugin.NewBad(lr.Name, lr.Err))
		return
	}

	if i := o.indexOf(lr.Name, true); i >= 0 {
		o.remove(o.descs[i])
	}

	for _, k := range lr.Unit.Capabilities().Sorted() {
		strategy, err := o.registry.For(k)
		if err != nil {
			o.log.Warn("no strategy for capability",
				zap.String("archive", lr.Name),
				zap.Stringer("kind", k))
			continue
		}
		d := strategy.CreateDescriptor(lr.Unit, false, preload.Params{})
		if onlyNew && o.indexOf(d.SaveName(), false) >= 0 {
			continue
		}
		o.put(d)
	}
}

// hasModule reports whether a live Normal descriptor uses the archive.
func (o *Orchestrator) hasModule(module string) bool {
	for _, d := range o.descs {
		if n, ok := d.(*plugin.Normal); ok && n.ModuleName() == module {
			return true
		}
	}
	return false
}

func (o *Orchestrator) restoreGroupStep(kind plugin.Kind) Step {
	return Step{
		Name: "restore " + kind.Group(),
		Run: func(context.Context) ([]Step, error) {
			names := o.store.Entries(kind)
			steps := make([]Step, len(names))
			for i, n := range names {
				steps[i] = o.restoreEntryStep(kind, n)
			}
			return steps, nil
		},
	}
}

func (o *Orchestrator) restoreEntryStep(kind plugin.Kind, saveName string) Step {
	return Step{
		Name: "restore " + kind.Group() + "/" + saveName,
		Run: func(context.Context) ([]Step, error) {
			r, ok, err := o.store.LoadEntry(kind, saveName, o.host.Parent())
			if err != nil || !ok {
				return nil, err
			}
			if i := o.indexOf(saveName, false); i >= 0 {
				o.detach(o.descs[i])
			}
			o.put(r.Descriptor)
			if r.Instance != nil {
				o.host.Register(r.Descriptor, r.Instance)
			}
			return nil, nil
		},
	}
}

func (o *Orchestrator) applySettingsStep(context.Context) ([]Step, error) {
	o.log.Info("plugins restored", zap.Int("descriptors", len(o.descs)))
	return nil, o.host.ApplySettings(o.Descriptors())
}

// Rescan queues a step that loads the archive at path and adds descriptors
// for any capability not already live.
func (o *Orchestrator) Rescan(path string) {
	o.queue.Push(o.loadStep(path, true))
}

// Descriptors returns the live descriptors in insertion order.
func (o *Orchestrator) Descriptors() []plugin.Descriptor {
	return append([]plugin.Descriptor(nil), o.descs...)
}

// Lookup finds a live descriptor by save name, or by archive name for a
// plugin that failed to load. A save name wins over an archive name.
func (o *Orchestrator) Lookup(name string) (plugin.Descriptor, bool) {
	i := o.indexOf(name, false)
	if i < 0 {
		i = o.indexOf(name, true)
	}
	if i < 0 {
		return nil, false
	}
	return o.descs[i], true
}

func (o *Orchestrator) normal(saveName string) (*plugin.Normal, preload.Strategy, error) {
	d, ok := o.Lookup(saveName)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrDescriptorNotFound, saveName)
	}
	n, ok := d.(*plugin.Normal)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrBadDescriptor, saveName)
	}
	strategy, err := o.registry.For(n.Kind())
	if err != nil {
		return nil, nil, err
	}
	return n, strategy, nil
}

// SetActive activates or deactivates a descriptor, building it on first
// activation. Build failures are returned as *plugin.BuildError.
func (o *Orchestrator) SetActive(saveName string, active bool) error {
	d, strategy, err := o.normal(saveName)
	if err != nil {
		return err
	}

	inst := d.Instance()
	if active && inst == nil {
		inst, err = d.Build(o.host.Parent())
		o.metrics.Built(d.Kind().String(), err == nil)
		if err != nil {
			return err
		}
		o.host.Register(d, inst)
	}
	return strategy.SetActive(d, inst, active)
}

// Duplicate clones a descriptor and activates the clone.
func (o *Orchestrator) Duplicate(saveName string) (*plugin.Normal, error) {
	d, strategy, err := o.normal(saveName)
	if err != nil {
		return nil, err
	}

	clone, err := strategy.Duplicate(d)
	if err != nil {
		return nil, err
	}
	// A restored clone may already hold the next index.
	for o.indexOf(clone.SaveName(), false) >= 0 {
		if clone, err = strategy.Duplicate(d); err != nil {
			return nil, err
		}
	}

	o.put(clone)
	if err := o.SetActive(clone.SaveName(), true); err != nil {
		return clone, err
	}
	return clone, nil
}

// RemoveDuplicate deactivates and discards a clone.
func (o *Orchestrator) RemoveDuplicate(saveName string) error {
	d, _, err := o.normal(saveName)
	if err != nil {
		return err
	}
	if !d.IsDuplicate() {
		return fmt.Errorf("%w: %s", ErrNotDuplicate, saveName)
	}
	o.detach(d)
	o.remove(d)
	return nil
}

// Menu returns the context menu for a descriptor.
func (o *Orchestrator) Menu(saveName string) ([]preload.MenuItem, error) {
	d, ok := o.Lookup(saveName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDescriptorNotFound, saveName)
	}
	return o.registry.Menu(d)
}

// Invoke runs a context-menu action. The action must be on the
// descriptor's menu.
func (o *Orchestrator) Invoke(saveName string, action preload.Action) error {
	items, err := o.Menu(saveName)
	if err != nil {
		return err
	}
	if !hasAction(items, action) {
		return fmt.Errorf("%w: %s on %s", ErrActionNotAvailable, action, saveName)
	}

	switch action {
	case preload.ActionDuplicate:
		_, err := o.Duplicate(saveName)
		return err
	case preload.ActionDeleteDuplicate:
		return o.RemoveDuplicate(saveName)
	}

	d, _, err := o.normal(saveName)
	if err != nil {
		return err
	}
	inst := d.Instance()
	if inst == nil {
		return fmt.Errorf("%w: %s", ErrNotBuilt, saveName)
	}

	switch action {
	case preload.ActionReloadConfig:
		return inst.ReloadConfig()
	case preload.ActionSettings:
		return inst.OpenSettings()
	case preload.ActionHighlightBorder:
		return inst.HighlightBorder()
	default:
		return fmt.Errorf("%w: %s", ErrActionNotAvailable, action)
	}
}

func hasAction(items []preload.MenuItem, action preload.Action) bool {
	for _, item := range items {
		if item.Action == action {
			return true
		}
	}
	return false
}

// key is the name a descriptor is looked up by and whether it is a Bad.
// Save names and archive names are separate namespaces: a corrupt archive
// called "Foo_Window" must not shadow the window of archive "Foo".
func key(d plugin.Descriptor) (string, bool) {
	switch d := d.(type) {
	case *plugin.Normal:
		return d.SaveName(), false
	case *plugin.Bad:
		return d.DisplayName(), true
	default:
		return "", false
	}
}

func (o *Orchestrator) indexOf(name string, bad bool) int {
	for i, d := range o.descs {
		if k, isBad := key(d); k == name && isBad == bad {
			return i
		}
	}
	return -1
}

// put inserts d, replacing a live descriptor of the same variant and key
// in place.
func (o *Orchestrator) put(d plugin.Descriptor) {
	if i := o.indexOf(key(d)); i >= 0 {
		o.descs[i] = d
	} else {
		o.descs = append(o.descs, d)
	}
	o.metrics.SetLive(len(o.descs))
}

func (o *Orchestrator) remove(d plugin.Descriptor) {
	if i := o.indexOf(key(d)); i >= 0 {
		o.descs = append(o.descs[:i], o.descs[i+1:]...)
	}
	o.metrics.SetLive(len(o.descs))
}

// detach hides and unregisters a descriptor's instance, if any.
func (o *Orchestrator) detach(d plugin.Descriptor) {
	n, ok := d.(*plugin.Normal)
	if !ok || n.Instance() == nil {
		return
	}
	if strategy, err := o.registry.For(n.Kind()); err == nil {
		if err := strategy.SetActive(n, n.Instance(), false); err != nil {
			o.log.Warn("deactivating plugin failed",
				zap.String("save_name", n.SaveName()),
				zap.Error(err))
		}
	}
	o.host.Unregister(n, n.Instance())
}
