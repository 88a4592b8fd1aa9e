package plugin

import (
	"errors"
	"fmt"
)

// Plugin system errors.
var (
	// ErrBuild is matched by every *BuildError.
	ErrBuild = errors.New("plugin build failed")

	// ErrNotSupported is returned for operations a kind does not support,
	// such as duplicating a widget.
	ErrNotSupported = errors.New("operation not supported for this plugin kind")

	// ErrModuleNotFound is returned when an archive referenced by name no
	// longer exists in the plugin directory.
	ErrModuleNotFound = errors.New("plugin module not found")

	// ErrNoEntryPoint is returned when an archive has no Lua entry point.
	ErrNoEntryPoint = errors.New("plugin archive has no entry point")

	// ErrUnknownKind is returned when a kind name cannot be parsed.
	ErrUnknownKind = errors.New("unknown plugin kind")

	// ErrUnitClosed is returned when a closed code unit is used.
	ErrUnitClosed = errors.New("plugin unit is closed")
)

// BuildError reports that a descriptor could not produce an instance,
// either because its factory symbol is absent or because the factory
// raised. It is never retried automatically.
type BuildError struct {
	Name string
	Err  error
}

// Error implements error.
func (e *BuildError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("plugin %q: build failed", e.Name)
	}
	return fmt.Sprintf("plugin %q: build failed: %v", e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// Is makes every BuildError match ErrBuild.
func (e *BuildError) Is(target error) bool {
	return target == ErrBuild
}

// Load stages reported by LoadError.
const (
	StageArchive  = "archive"
	StageManifest = "manifest"
	StageScript   = "script"
)

// LoadError records why an archive could not be loaded as a code unit.
type LoadError struct {
	Archive string
	Stage   string
	Err     error
}

// Error implements error.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Archive, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}
