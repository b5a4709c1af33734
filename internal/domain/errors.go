package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Input errors (user-visible 400)
	ErrInvalidNumbers  = errors.New("invalid number set")
	ErrUnknownDrawType = errors.New("unknown draw type")
	ErrUnknownStream   = errors.New("unknown stream")

	// Availability errors — callers degrade, never panic
	ErrStoreUnavailable   = errors.New("draw store unreachable")
	ErrFeatureUnavailable = errors.New("ml feature source unavailable")
	ErrNoDraws            = errors.New("no draws available")

	// Brain errors
	ErrCorruptMemory  = errors.New("brain memory blob corrupted")
	ErrUnknownWeight  = errors.New("unrecognized strategy weight key")
	ErrPersistFailure = errors.New("brain persistence failed")

	// Refresh errors
	ErrRefreshRunning = errors.New("refresh already in progress")
)
