package service

import "errors"

// Domain errors. The informational ones (nothing to undo, nothing open)
// are sentinels rather than failures: callers turn them into specific
// replies and no store state changes.
var (
	// ErrResolution means the nutrition lookup failed, timed out, or
	// matched nothing. Nothing may be written after it.
	ErrResolution = errors.New("could not resolve nutrition for text")

	// ErrNothingToUndo is returned by UndoLast on a day with no meals.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingOpen is returned by End/Status when no episode is open.
	ErrNothingOpen = errors.New("no open episode")

	// ErrDataIntegrity means the store returned more than one open
	// episode for a (user, kind). It is surfaced, never silently
	// resolved by picking one.
	ErrDataIntegrity = errors.New("data integrity fault: multiple open episodes")

	// ErrValidation means malformed command arguments; callers reply
	// with a usage hint and write nothing.
	ErrValidation = errors.New("invalid arguments")

	// ErrOverrideNotFound is returned when deleting an alias that does
	// not exist.
	ErrOverrideNotFound = errors.New("no such food override")
)
