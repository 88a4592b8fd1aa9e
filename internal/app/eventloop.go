package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// eventLoop is the main application loop. Lifecycle steps run one per
// tick so live operations and watcher events interleave with startup.
func (app *Application) eventLoop(ctx context.Context) {
	tick := app.opts.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var changes <-chan string
	if app.watcher != nil {
		changes = app.watcher.Changes()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-app.done:
			return

		case <-ticker.C:
			app.step(ctx)

		case path := <-changes:
			app.log.Info("plugin archive changed", zap.String("path", path))
			app.orch.Rescan(path)

		case o := <-app.ops:
			o.result <- o.fn(app.orch)
		}
	}
}

// step runs one queued lifecycle step, if any.
func (app *Application) step(ctx context.Context) {
	if app.orch.Pending() == 0 {
		return
	}

	// Step errors are logged by the orchestrator and never stop the queue.
	more, _ := app.orch.Next(ctx)
	if !more && !app.started {
		app.started = true
		close(app.ready)
		app.log.Info("startup complete",
			zap.Int("descriptors", len(app.orch.Descriptors())))
	}
}
