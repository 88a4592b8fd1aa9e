// Package app provides the main application structure for the overlay
// host. It wires together the plugin scanner, persistence and lifecycle
// orchestrator and runs the event loop that drives them.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/overlay/internal/config"
	"github.com/dshills/overlay/internal/lifecycle"
	"github.com/dshills/overlay/internal/logging"
	"github.com/dshills/overlay/internal/metrics"
	"github.com/dshills/overlay/internal/persist"
	"github.com/dshills/overlay/internal/plugin"
	"github.com/dshills/overlay/internal/preload"
	"github.com/dshills/overlay/internal/settings"
)

// DefaultTick is how often the event loop runs one lifecycle step.
const DefaultTick = time.Second / 60

// Application is the central coordinator for all overlay components.
// Everything that touches descriptors runs on the event loop goroutine.
type Application struct {
	cfg     *config.Config
	log     *logging.Logger
	metrics *metrics.Metrics

	scanner   *plugin.Scanner
	registry  *preload.Registry
	tree      *settings.Tree
	snapshots settings.SnapshotStore
	store     *persist.Store
	host      lifecycle.Host
	orch      *lifecycle.Orchestrator
	watcher   *lifecycle.Watcher
	status    *statusServer

	ops     chan op
	ready   chan struct{}
	started bool

	running  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once

	opts Options
}

// Options configures the application.
type Options struct {
	// Logger overrides the logger built from the config.
	Logger *logging.Logger

	// Host receives built instances. Defaults to a HeadlessHost.
	Host lifecycle.Host

	// Tick overrides DefaultTick.
	Tick time.Duration
}

// op is a function run on the event loop.
type op struct {
	fn     func(*lifecycle.Orchestrator) error
	result chan error
}

// New creates an Application from cfg.
func New(cfg *config.Config, opts Options) (*Application, error) {
	app := &Application{
		cfg:   cfg,
		opts:  opts,
		ops:   make(chan op),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}

	if err := app.bootstrap(); err != nil {
		app.closeStores()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	var err error

	// 1. Logging and metrics
	app.log = app.opts.Logger
	if app.log == nil {
		if app.log, err = logging.New(app.cfg.Logging.Logger()); err != nil {
			return &InitError{Component: "logger", Err: err}
		}
	}
	app.metrics = metrics.New()

	// 2. Plugin discovery
	app.scanner = plugin.NewScanner(app.cfg.Plugins.Dir,
		plugin.WithExtension(app.cfg.Plugins.Extension),
		plugin.WithLogger(app.log),
		plugin.WithMetrics(app.metrics))
	app.registry = preload.NewRegistry()

	// 3. Persistence
	if app.tree, err = settings.OpenTree(app.cfg.Storage.SettingsPath); err != nil {
		return &InitError{Component: "settings", Path: app.cfg.Storage.SettingsPath, Err: err}
	}
	app.snapshots, err = settings.OpenSnapshots(app.cfg.Storage.SnapshotBackend, app.cfg.Storage.Snapshots())
	if err != nil {
		return &InitError{Component: "snapshots", Path: app.cfg.Storage.Snapshots(), Err: err}
	}
	app.store = persist.NewStore(app.tree, app.snapshots, app.registry, app.scanner,
		persist.WithLogger(app.log),
		persist.WithMetrics(app.metrics))

	// 4. Lifecycle
	app.host = app.opts.Host
	if app.host == nil {
		app.host = NewHeadlessHost(Properties{"title": "overlay"}, app.log)
	}
	app.orch = lifecycle.New(app.scanner, app.registry, app.store, app.host,
		lifecycle.WithLogger(app.log),
		lifecycle.WithMetrics(app.metrics))

	// 5. Optional components
	if app.cfg.Plugins.Watch {
		app.watcher = lifecycle.NewWatcher(app.cfg.Plugins.Dir, app.scanner.Extension(), app.log)
		app.watcher.SetDebounce(app.cfg.Plugins.Debounce())
	}
	if app.cfg.Metrics.Addr != "" {
		app.status = newStatusServer(app, app.cfg.Metrics.Addr)
	}

	app.log.Info("overlay initialized",
		zap.String("plugins", app.scanner.Dir()),
		zap.String("settings", app.cfg.Storage.SettingsPath),
		zap.String("snapshots", app.cfg.Storage.Snapshots()),
		zap.String("backend", app.cfg.Storage.SnapshotBackend))
	return nil
}

// Run starts the plugin lifecycle and blocks until ctx is done or Stop is
// called. Plugin state is saved before it returns.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	app.orch.Startup()

	if app.watcher != nil {
		if err := app.watcher.Start(ctx); err != nil {
			app.log.Warn("plugin directory watch disabled", zap.Error(err))
			app.watcher = nil
		}
	}
	if app.status != nil {
		if err := app.status.start(); err != nil {
			app.log.Warn("status server disabled", zap.Error(err))
			app.status = nil
		}
	}

	app.eventLoop(ctx)
	return app.shutdown()
}

// Stop asks the event loop to exit. Run performs the cleanup.
func (app *Application) Stop() {
	app.stopOnce.Do(func() { close(app.done) })
}

// Ready is closed once the startup sequence has finished.
func (app *Application) Ready() <-chan struct{} {
	return app.ready
}

// Do runs fn on the event loop and returns its error. Live operations on
// the orchestrator must go through Do while the application is running.
func (app *Application) Do(ctx context.Context, fn func(*lifecycle.Orchestrator) error) error {
	if !app.running.Load() {
		return ErrNotRunning
	}

	o := op{fn: fn, result: make(chan error, 1)}
	select {
	case app.ops <- o:
	case <-app.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-o.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shutdown saves plugin state and releases resources in reverse
// initialization order.
func (app *Application) shutdown() error {
	var errs []error

	if app.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := app.status.stop(ctx); err != nil {
			errs = append(errs, &ShutdownError{Component: "status", Step: "stop", Err: err})
		}
		cancel()
	}

	if app.watcher != nil {
		app.watcher.Stop()
	}

	if app.started {
		if err := app.orch.Shutdown(); err != nil {
			errs = append(errs, &ShutdownError{Component: "lifecycle", Step: "save", Err: err})
		}
	} else {
		app.log.Warn("stopped before startup finished, plugin state not saved",
			zap.Int("pending_steps", app.orch.Pending()))
		errs = append(errs, ErrStartupIncomplete)
	}

	if err := app.closeStores(); err != nil {
		errs = append(errs, err)
	}

	_ = app.log.Sync()
	return errors.Join(errs...)
}

func (app *Application) closeStores() error {
	var errs []error
	if app.snapshots != nil {
		if err := app.snapshots.Close(); err != nil {
			errs = append(errs, &ShutdownError{Component: "snapshots", Step: "close", Err: err})
		}
	}
	if app.scanner != nil {
		if err := app.scanner.Close(); err != nil {
			errs = append(errs, &ShutdownError{Component: "scanner", Step: "close", Err: err})
		}
	}
	return errors.Join(errs...)
}

// IsRunning returns true if the application is running.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Host returns the host built instances attach to.
func (app *Application) Host() lifecycle.Host {
	return app.host
}
