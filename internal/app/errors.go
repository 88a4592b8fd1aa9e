package app

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRunning = errors.New("overlay: already running")
	ErrNotRunning     = errors.New("overlay: not running")

	// ErrStartupIncomplete is returned from Run when it stopped before
	// every stored plugin was restored. Settings and snapshots are left as
	// they were on disk.
	ErrStartupIncomplete = errors.New("overlay: stopped before startup completed")
)

// InitError reports a component that New could not bring up. Path names
// the file involved, if any.
type InitError struct {
	Component string
	Path      string
	Err       error
}

func (e *InitError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("open %s (%s): %v", e.Component, e.Path, e.Err)
	}
	return fmt.Sprintf("open %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// ShutdownError reports one failed teardown step. Run joins them so a
// failed save does not keep the stores from closing.
type ShutdownError struct {
	Component string
	Step      string
	Err       error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("shutdown %s: %s: %v", e.Component, e.Step, e.Err)
}

func (e *ShutdownError) Unwrap() error { return e.Err }
