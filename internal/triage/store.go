package triage

import "context"

// SnapshotStore is the persistence boundary for the triage snapshot. The
// snapshot is a single addressable blob, read and replaced wholesale; there
// is no incremental patching.
type SnapshotStore interface {
	// Load returns the current snapshot. ok is false when no snapshot has
	// been written yet, which is a valid initial state, not an error.
	Load(ctx context.Context) (snap *Snapshot, ok bool, err error)

	// Save atomically replaces the persisted snapshot. On error the
	// previously stored snapshot must remain intact.
	Save(ctx context.Context, snap *Snapshot) error
}

// Source supplies candidate companies for a run. Implementations own
// in-fetch concerns: batching, cross-batch dedup, and dropping candidates
// whose purpose text is unusable.
type Source interface {
	Fetch(ctx context.Context) ([]Company, error)
}

// Notifier delivers run summaries to an external channel. Delivery is
// best-effort; a failed notification never fails the run.
type Notifier interface {
	Send(ctx context.Context, summary *RunSummary) error
}
