package lifecycle

import "errors"

// Orchestrator errors.
var (
	// ErrDescriptorNotFound indicates no live descriptor has the save name.
	ErrDescriptorNotFound = errors.New("descriptor not found")

	// ErrNotDuplicate is returned when deleting a descriptor that is not a
	// clone.
	ErrNotDuplicate = errors.New("descriptor is not a duplicate")

	// ErrBadDescriptor is returned for live operations on a plugin that
	// failed to load.
	ErrBadDescriptor = errors.New("plugin failed to load")

	// ErrNotBuilt is returned for instance actions on an unbuilt plugin.
	ErrNotBuilt = errors.New("plugin instance not built")

	// ErrActionNotAvailable is returned when invoking an action that is not
	// in the descriptor's context menu.
	ErrActionNotAvailable = errors.New("action not available")
)
