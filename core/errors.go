package core

import "errors"

// Failure taxonomy. Store and compression failures are always surfaced
// or abort the operation; cache and vectorization failures degrade
// gracefully and are only logged.
var (
	// ErrStoreUnavailable wraps event-store I/O failures. Never masked:
	// a projection either returns a correct state or this error.
	ErrStoreUnavailable = errors.New("event store unavailable")

	// ErrCompressionFailed wraps summarizer failures. Aborts one
	// tenant's sweep with no ledger mutation; retried next cycle.
	ErrCompressionFailed = errors.New("compression failed")

	// ErrVectorizationFailed marks a failed long-term memory write
	// during compaction. Non-critical: the checkpoint is still written.
	ErrVectorizationFailed = errors.New("vectorization failed")

	// ErrBelowThreshold is returned by Compress when the interaction
	// backlog is too small to be worth a summarizer call.
	ErrBelowThreshold = errors.New("interaction backlog below sweep threshold")
)
