package core

import "errors"

// Error kinds for the bridge. Callers classify with errors.Is; everything
// else wraps one of these with context via fmt.Errorf and %w.
var (
	// ErrContention means the serialized core gate could not be acquired
	// within its timeout. The operation was not performed.
	ErrContention = errors.New("core access timed out")

	// ErrUnavailable means the debugger core is not initialized or the
	// emulator is not running.
	ErrUnavailable = errors.New("debugger core not available")

	// ErrUnknownRegion means a memory type name is not in the region table.
	ErrUnknownRegion = errors.New("unknown memory region")

	// ErrOutOfBounds means an address or length falls outside the target
	// region.
	ErrOutOfBounds = errors.New("address out of bounds")

	// ErrInvalidParam means a request parameter failed validation before
	// reaching the core.
	ErrInvalidParam = errors.New("invalid parameter")
)
