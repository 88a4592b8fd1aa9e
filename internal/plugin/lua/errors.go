package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNotFunction is returned when a called global or method is not a function.
	ErrNotFunction = errors.New("lua value is not a function")

	// ErrExecutionTimeout is returned when a chunk or call runs too long.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrModuleNotAvailable is returned when require cannot resolve a module.
	ErrModuleNotAvailable = errors.New("lua module not available")
)
