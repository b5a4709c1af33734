package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// DrawSource provides chronologically ordered draw records.
type DrawSource interface {
	// GetDraws returns draws oldest-first. A nil filter returns the
	// global recent window; a non-nil filter returns the full history
	// for that draw type. Implementations return an empty slice on
	// backing-store failure, never an error.
	GetDraws(ctx context.Context, drawTypeID *int64) []Draw

	// GetDrawTypes returns the fixed draw-type catalog.
	GetDrawTypes(ctx context.Context) []DrawType
}

// MemoryStore persists per-stream brain blobs.
type MemoryStore interface {
	LoadMemory(ctx context.Context, stream Stream) ([]byte, error)
	SaveMemory(ctx context.Context, stream Stream, blob []byte) error
}

// FeatureSource is a pluggable external ranker (e.g. a deep-learning
// module). Given a chronological draw sequence it returns up to k
// candidate numbers, best first. The core must work when it returns
// an empty list.
type FeatureSource interface {
	Rank(ctx context.Context, draws []Draw, k int) []int
}
