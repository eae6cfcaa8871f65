package triage

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/linnemanlabs/go-core/log"
)

// ErrScanInProgress is returned when a scan is requested while another
// run holds the pipeline. Runs mutate the snapshot read-then-replace, so
// they must never overlap.
var ErrScanInProgress = errors.New("scan already in progress")

// Service is the business boundary for triage operations.
type Service struct {
	engine   *Engine
	store    SnapshotStore
	notifier Notifier
	logger   log.Logger
	running  atomic.Bool
}

// NewService creates a new triage service. The notifier may be nil.
func NewService(engine *Engine, store SnapshotStore, notifier Notifier, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		engine:   engine,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Scan executes one full pipeline run. At most one run (scan or retry)
// is in flight at a time; concurrent requests get ErrScanInProgress.
func (s *Service) Scan(ctx context.Context) (*RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	summary, err := s.engine.Run(ctx)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, summary)
	return summary, nil
}

// RetryFailed re-classifies previously failed candidates in the current
// snapshot. Shares the single-run guard with Scan.
func (s *Service) RetryFailed(ctx context.Context) (*RetrySummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	return s.engine.RetryFailed(ctx)
}

// Snapshot returns the current persisted snapshot. Before the first
// completed run it returns an empty snapshot, never an error about
// absence.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap, ok, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return EmptySnapshot(), nil
	}
	return snap, nil
}

// notify is best effort. A failed notification never fails the run that
// produced it.
func (s *Service) notify(ctx context.Context, summary *RunSummary) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, summary); err != nil {
		s.logger.Error(ctx, err, "run notification failed", "run_id", summary.RunID)
	}
}
