package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/linnemanlabs/scout/internal/spinoff"
)

// DefaultCallDelay paces classifier calls. The oracle and the feed are both
// quota-limited; pacing is a policy choice, not a correctness requirement.
const DefaultCallDelay = 500 * time.Millisecond

// EngineConfig tunes one engine instance.
type EngineConfig struct {
	// MaxCandidates caps the candidate set per run. 0 means no cap (bulk
	// maintenance path).
	MaxCandidates int

	// CallDelay is the fixed pause between classifier calls. <= 0 falls
	// back to DefaultCallDelay.
	CallDelay time.Duration

	// CheckpointEvery persists the partial snapshot every N candidates so
	// a long bulk run survives an external termination. 0 disables
	// checkpoints.
	CheckpointEvery int
}

// Engine runs the triage pipeline end to end: fetch, classify, enrich,
// rank, aggregate, persist. One Run produces one Snapshot. The engine is
// strictly sequential; callers must serialize concurrent runs.
type Engine struct {
	source     Source
	classifier *Classifier
	spinoffs   *spinoff.Registry
	store      SnapshotStore
	logger     log.Logger
	hooks      EngineHooks
	cfg        EngineConfig
	limiter    *rate.Limiter
}

// NewEngine creates a triage engine with the given dependencies.
func NewEngine(source Source, classifier *Classifier, spinoffs *spinoff.Registry, store SnapshotStore, logger log.Logger, hooks EngineHooks, cfg EngineConfig) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	delay := cfg.CallDelay
	if delay <= 0 {
		delay = DefaultCallDelay
	}
	return &Engine{
		source:     source,
		classifier: classifier,
		spinoffs:   spinoffs,
		store:      store,
		logger:     logger,
		hooks:      hooks,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
	}
}

// RunSummary reports one completed pipeline run.
type RunSummary struct {
	RunID           string  `json:"runId"`
	DurationSeconds float64 `json:"durationSeconds"`
	TotalFetched    int     `json:"totalFetched"`
	TotalTriaged    int     `json:"totalTriaged"`
	Skipped         int     `json:"skipped"`
	Enriched        int     `json:"enrichedWithSpinoffData"`
	Distribution    Stats   `json:"triageDistribution"`
}

// Run executes one full pipeline pass and atomically replaces the
// persisted snapshot. A single candidate's classification failure never
// aborts the run; feed or persistence failures do.
func (e *Engine) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	runID := ulid.Make().String()
	L := e.logger.With("run_id", runID)

	candidates, err := e.source.Fetch(ctx)
	if err != nil {
		e.complete("failed", start, 0)
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	fetched := len(candidates)
	L.Info(ctx, "fetched candidates", "count", fetched)

	if e.cfg.MaxCandidates > 0 && len(candidates) > e.cfg.MaxCandidates {
		candidates = candidates[:e.cfg.MaxCandidates]
		L.Info(ctx, "capped candidate set", "cap", e.cfg.MaxCandidates)
	}

	startups := make([]Startup, 0, len(candidates))
	enriched := 0
	skipped := 0

	for i := range candidates {
		co := &candidates[i]

		// Hard-skip gate. Obvious noise never reaches the oracle and
		// never appears in the snapshot.
		if pf := PreFilter(co.BusinessPurpose, co.Name, co.City); !pf.ShouldProcess {
			skipped++
			L.Info(ctx, "hard-skipped candidate",
				"progress", fmt.Sprintf("%d/%d", i+1, len(candidates)),
				"company", co.Name,
			)
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			e.complete("failed", start, len(startups))
			return nil, fmt.Errorf("run canceled: %w", err)
		}

		st, wasEnriched := e.triageOne(ctx, co)
		startups = append(startups, st)
		if wasEnriched {
			enriched++
		}
		if e.hooks.OnCandidate != nil {
			e.hooks.OnCandidate(st.Triage, wasEnriched)
		}

		L.Info(ctx, "triaged candidate",
			"progress", fmt.Sprintf("%d/%d", i+1, len(candidates)),
			"company", st.Name,
			"triage", string(st.Triage),
		)

		if e.cfg.CheckpointEvery > 0 && (i+1)%e.cfg.CheckpointEvery == 0 && i+1 < len(candidates) {
			if err := e.writeSnapshot(ctx, startups); err != nil {
				L.Error(ctx, err, "checkpoint write failed", "at", i+1)
			} else {
				L.Info(ctx, "checkpoint written", "at", i+1)
			}
		}
	}

	if err := e.writeSnapshot(ctx, startups); err != nil {
		e.complete("failed", start, len(startups))
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	summary := &RunSummary{
		RunID:           runID,
		DurationSeconds: time.Since(start).Seconds(),
		TotalFetched:    fetched,
		TotalTriaged:    len(startups),
		Skipped:         skipped,
		Enriched:        enriched,
		Distribution:    ComputeStats(startups),
	}
	e.complete("success", start, len(startups))

	L.Info(ctx, "scan complete",
		"duration_s", summary.DurationSeconds,
		"fetched", summary.TotalFetched,
		"triaged", summary.TotalTriaged,
		"skipped", summary.Skipped,
		"enriched", summary.Enriched,
		"green", summary.Distribution.Green,
		"unclear", summary.Distribution.Unclear,
		"red", summary.Distribution.Red,
	)
	return summary, nil
}

// RetrySummary reports one retry-failed maintenance pass.
type RetrySummary struct {
	RunID       string `json:"runId"`
	Retried     int    `json:"retried"`
	StillFailed int    `json:"stillFailed"`
	Stats       Stats  `json:"stats"`
}

// RetryFailed re-runs only startups carrying the classification-failure
// marker through the classifier, updates them in place by id, recomputes
// the aggregates, and rewrites the snapshot. Same classify-and-merge logic
// as Run, applied to a filtered subset instead of a fresh fetch.
func (e *Engine) RetryFailed(ctx context.Context) (*RetrySummary, error) {
	runID := ulid.Make().String()
	L := e.logger.With("run_id", runID)

	snap, ok, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		L.Info(ctx, "no snapshot yet, nothing to retry")
		return &RetrySummary{RunID: runID}, nil
	}

	byID := make(map[string]int, len(snap.Startups))
	var failedIdx []int
	for i, st := range snap.Startups {
		byID[st.ID] = i
		if hasFailureMarker(st.Flags) {
			failedIdx = append(failedIdx, i)
		}
	}
	L.Info(ctx, "retrying failed classifications", "count", len(failedIdx))

	summary := &RetrySummary{RunID: runID, Retried: len(failedIdx)}

	for _, i := range failedIdx {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("retry canceled: %w", err)
		}

		st, _ := e.triageOne(ctx, &snap.Startups[i].Company)
		if hasFailureMarker(st.Flags) {
			summary.StillFailed++
		}
		snap.Startups[byID[st.ID]] = st

		L.Info(ctx, "re-triaged candidate", "company", st.Name, "triage", string(st.Triage))
	}

	SortStartups(snap.Startups)
	snap.Stats = ComputeStats(snap.Startups)
	snap.TotalCompanies = len(snap.Startups)
	snap.LastUpdated = time.Now().UTC()

	if err := e.store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	summary.Stats = snap.Stats

	L.Info(ctx, "retry pass complete",
		"retried", summary.Retried,
		"still_failed", summary.StillFailed,
	)
	return summary, nil
}

// triageOne runs the classify-and-merge step for a single candidate:
// classifier verdict, spin-off enrichment, flag merge with dedup. A
// spin-off match overrides the classifier's verdict to green.
func (e *Engine) triageOne(ctx context.Context, co *Company) (Startup, bool) {
	result := e.classifier.ClassifyWithRetry(ctx, co)

	st := Startup{
		Company:     *co,
		Triage:      result.Triage,
		Flags:       result.Flags,
		Source:      SourceRegistry,
		Badges:      []string{},
		LastUpdated: time.Now().UTC(),
	}

	enr, matched := e.spinoffs.Enrich(ctx, co.Name)
	if matched {
		st.Flags = append(st.Flags, Flag{
			Type: FlagGreen,
			Text: fmt.Sprintf("🎓 %s Spin-off", enr.UniversityAffiliation),
		})
		if enr.ExistProject != "" {
			st.Flags = append(st.Flags, Flag{Type: FlagGreen, Text: "🏛️ EXIST-gefördert"})
		}
		st.UniversityAffiliation = enr.UniversityAffiliation
		st.ExistProject = enr.ExistProject
		st.Badges = enr.Badges

		// Verified spin-offs are always interesting, whatever the
		// oracle said.
		st.Triage = CategoryGreen
	}

	st.Flags = DedupFlags(st.Flags)
	return st, matched
}

// writeSnapshot ranks the accumulated startups and atomically replaces the
// persisted snapshot.
func (e *Engine) writeSnapshot(ctx context.Context, startups []Startup) error {
	ranked := make([]Startup, len(startups))
	copy(ranked, startups)
	SortStartups(ranked)
	return e.store.Save(ctx, NewSnapshot(ranked))
}

func (e *Engine) complete(status string, start time.Time, total int) {
	if e.hooks.OnScanComplete != nil {
		e.hooks.OnScanComplete(status, time.Since(start).Seconds(), total)
	}
}

func hasFailureMarker(flags []Flag) bool {
	for _, f := range flags {
		if strings.Contains(f.Text, "fehlgeschlagen") {
			return true
		}
	}
	return false
}
