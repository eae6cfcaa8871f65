package triage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linnemanlabs/scout/internal/spinoff"
)

// fakeSource returns a fixed candidate list or an error.
type fakeSource struct {
	companies []Company
	err       error
}

func (s *fakeSource) Fetch(context.Context) ([]Company, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.companies, nil
}

// countingStore wraps an in-memory snapshot and counts saves.
type countingStore struct {
	snap  *Snapshot
	saves int
}

func (s *countingStore) Load(context.Context) (*Snapshot, bool, error) {
	if s.snap == nil {
		return nil, false, nil
	}
	return s.snap, true, nil
}

func (s *countingStore) Save(_ context.Context, snap *Snapshot) error {
	s.snap = snap
	s.saves++
	return nil
}

// emptySpinoffs returns a registry pointed at a nonexistent file, so
// enrichment is a no-op.
func emptySpinoffs(t *testing.T) *spinoff.Registry {
	t.Helper()
	return spinoff.NewRegistry(filepath.Join(t.TempDir(), "missing.json"), nil)
}

// spinoffsWith writes a curated registry file with the given entries.
func spinoffsWith(t *testing.T, entries string) *spinoff.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spinoffs.json")
	if err := os.WriteFile(path, []byte(`{"spinoffs":[`+entries+`]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	return spinoff.NewRegistry(path, nil)
}

func fastEngineCfg() EngineConfig {
	return EngineConfig{CallDelay: time.Nanosecond}
}

func greenResponse() string {
	return `{"triage":"green","flags":[{"type":"green","text":"Konkretes Hardware-Produkt"}]}`
}

func newTestEngine(t *testing.T, source Source, provider *mockProvider, spinoffs *spinoff.Registry, store SnapshotStore, cfg EngineConfig) *Engine {
	t.Helper()
	classifier := noSleep(NewClassifier(provider, 3, nil, EngineHooks{}))
	return NewEngine(source, classifier, spinoffs, store, nil, EngineHooks{}, cfg)
}

func technoCompany(id, name string) Company {
	return Company{
		ID:              id,
		Name:            name,
		BusinessPurpose: "Entwicklung und Produktion von LIDAR-Sensoren für autonome Fahrzeuge",
		City:            "München",
	}
}

func TestEngineRun_HappyPath(t *testing.T) {
	t.Parallel()

	source := &fakeSource{companies: []Company{
		technoCompany("id-1", "Alpha Sensorik GmbH"),
		technoCompany("id-2", "Beta Photonik GmbH"),
	}}
	provider := &mockProvider{responses: []string{
		`{"triage":"red","flags":[{"type":"red","text":"Holding"}]}`,
		greenResponse(),
	}}
	store := &countingStore{}

	eng := newTestEngine(t, source, provider, emptySpinoffs(t), store, fastEngineCfg())

	summary, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.TotalFetched != 2 || summary.TotalTriaged != 2 {
		t.Errorf("summary = %+v, want fetched=2 triaged=2", summary)
	}
	if summary.Distribution.Total() != summary.TotalTriaged {
		t.Errorf("distribution sum %d != triaged %d", summary.Distribution.Total(), summary.TotalTriaged)
	}

	snap := store.snap
	if snap == nil {
		t.Fatal("no snapshot written")
	}
	if snap.TotalCompanies != 2 {
		t.Errorf("TotalCompanies = %d, want 2", snap.TotalCompanies)
	}
	if snap.Stats.Total() != snap.TotalCompanies {
		t.Errorf("stats sum %d != total %d", snap.Stats.Total(), snap.TotalCompanies)
	}

	// Ranked: the green verdict (id-2) comes before the red one.
	if snap.Startups[0].ID != "id-2" || snap.Startups[1].ID != "id-1" {
		t.Errorf("order = %v, want [id-2 id-1]", ids(snap.Startups))
	}
	for _, st := range snap.Startups {
		if st.Source != SourceRegistry {
			t.Errorf("Source = %q, want %q", st.Source, SourceRegistry)
		}
		if st.LastUpdated.IsZero() {
			t.Error("LastUpdated is zero")
		}
	}
}

func TestEngineRun_HardSkipExcluded(t *testing.T) {
	t.Parallel()

	noise := Company{
		ID:              "noise-1",
		Name:            "Genuss GmbH",
		BusinessPurpose: "Betrieb einer Gastronomie mit Ausschank von Getränken aller Art",
	}
	source := &fakeSource{companies: []Company{noise, technoCompany("id-1", "Alpha Sensorik GmbH")}}
	provider := &mockProvider{responses: []string{greenResponse()}}
	store := &countingStore{}

	eng := newTestEngine(t, source, provider, emptySpinoffs(t), store, fastEngineCfg())

	summary, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Skipped != 1 || summary.TotalTriaged != 1 {
		t.Errorf("summary = %+v, want skipped=1 triaged=1", summary)
	}
	if provider.calls != 1 {
		t.Errorf("classifier calls = %d, want 1 (hard-skip must not reach the oracle)", provider.calls)
	}
	if len(store.snap.Startups) != 1 || store.snap.Startups[0].ID != "id-1" {
		t.Errorf("snapshot = %v, want only id-1", ids(store.snap.Startups))
	}
}

func TestEngineRun_SpinoffOverridesTriage(t *testing.T) {
	t.Parallel()

	source := &fakeSource{companies: []Company{technoCompany("id-1", "TUM Spinout Sensorics GmbH")}}
	// Classifier says red; the curated match must win.
	provider := &mockProvider{responses: []string{`{"triage":"red","flags":[{"type":"red","text":"Unklar"}]}`}}
	store := &countingStore{}
	spinoffs := spinoffsWith(t, `{"name":"TUM Sensorics","university":"TUM","existFunded":true}`)

	eng := newTestEngine(t, source, provider, spinoffs, store, fastEngineCfg())

	summary, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Enriched != 1 {
		t.Errorf("Enriched = %d, want 1", summary.Enriched)
	}

	st := store.snap.Startups[0]
	if st.Triage != CategoryGreen {
		t.Errorf("Triage = %q, want forced green", st.Triage)
	}
	if st.UniversityAffiliation != "TUM" {
		t.Errorf("UniversityAffiliation = %q, want TUM", st.UniversityAffiliation)
	}
	if len(st.Badges) == 0 {
		t.Error("expected university badge")
	}

	var hasSpinoffFlag, hasExistFlag bool
	for _, f := range st.Flags {
		if f.Type == FlagGreen && f.Text == "🎓 TUM Spin-off" {
			hasSpinoffFlag = true
		}
		if f.Type == FlagGreen && f.Text == "🏛️ EXIST-gefördert" {
			hasExistFlag = true
		}
	}
	if !hasSpinoffFlag || !hasExistFlag {
		t.Errorf("flags = %v, want spin-off and EXIST green flags", st.Flags)
	}
}

func TestEngineRun_CapsCandidates(t *testing.T) {
	t.Parallel()

	source := &fakeSource{companies: []Company{
		technoCompany("id-1", "Alpha GmbH"),
		technoCompany("id-2", "Beta GmbH"),
		technoCompany("id-3", "Gamma GmbH"),
	}}
	provider := &mockProvider{responses: []string{greenResponse()}}
	store := &countingStore{}

	cfg := fastEngineCfg()
	cfg.MaxCandidates = 1
	eng := newTestEngine(t, source, provider, emptySpinoffs(t), store, cfg)

	summary, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.TotalFetched != 3 {
		t.Errorf("TotalFetched = %d, want 3 (cap applies after fetch)", summary.TotalFetched)
	}
	if summary.TotalTriaged != 1 {
		t.Errorf("TotalTriaged = %d, want 1", summary.TotalTriaged)
	}
}

func TestEngineRun_FetchErrorFailsRun(t *testing.T) {
	t.Parallel()

	source := &fakeSource{err: errors.New("feed unavailable")}
	store := &countingStore{}
	eng := newTestEngine(t, source, &mockProvider{}, emptySpinoffs(t), store, fastEngineCfg())

	if _, err := eng.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want feed error")
	}
	if store.saves != 0 {
		t.Errorf("saves = %d, want 0 (prior snapshot untouched)", store.saves)
	}
}

func TestEngineRun_ClassifierFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	source := &fakeSource{companies: []Company{
		technoCompany("id-1", "Alpha GmbH"),
		technoCompany("id-2", "Beta GmbH"),
	}}
	// First candidate exhausts all retries, second succeeds.
	provider := &mockProvider{
		errs:      []error{errors.New("boom"), errors.New("boom"), errors.New("boom"), nil},
		responses: []string{"", "", "", greenResponse()},
	}
	store := &countingStore{}
	eng := newTestEngine(t, source, provider, emptySpinoffs(t), store, fastEngineCfg())

	summary, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.TotalTriaged != 2 {
		t.Errorf("TotalTriaged = %d, want 2 (failure included with sentinel)", summary.TotalTriaged)
	}

	var failed *Startup
	for i := range store.snap.Startups {
		if store.snap.Startups[i].ID == "id-1" {
			failed = &store.snap.Startups[i]
		}
	}
	if failed == nil {
		t.Fatal("failed candidate missing from snapshot")
	}
	if failed.Triage != CategoryUnclear {
		t.Errorf("failed Triage = %q, want unclear sentinel", failed.Triage)
	}
	if len(failed.Flags) != 1 || failed.Flags[0].Text != FailedFlagText {
		t.Errorf("failed flags = %v, want single %q", failed.Flags, FailedFlagText)
	}
}

func TestEngineRun_Checkpoints(t *testing.T) {
	t.Parallel()

	source := &fakeSource{companies: []Company{
		technoCompany("id-1", "Alpha GmbH"),
		technoCompany("id-2", "Beta GmbH"),
		technoCompany("id-3", "Gamma GmbH"),
	}}
	provider := &mockProvider{responses: []string{greenResponse(), greenResponse(), greenResponse()}}
	store := &countingStore{}

	cfg := fastEngineCfg()
	cfg.CheckpointEvery = 1
	eng := newTestEngine(t, source, provider, emptySpinoffs(t), store, cfg)

	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Two checkpoints (after candidates 1 and 2) plus the final write.
	if store.saves != 3 {
		t.Errorf("saves = %d, want 3", store.saves)
	}
	if store.snap.TotalCompanies != 3 {
		t.Errorf("final snapshot TotalCompanies = %d, want 3", store.snap.TotalCompanies)
	}
}

func TestEngineRetryFailed(t *testing.T) {
	t.Parallel()

	ok := Startup{
		Company: technoCompany("ok-1", "Alpha GmbH"),
		Triage:  CategoryGreen,
		Flags:   []Flag{{Type: FlagGreen, Text: "Sensor"}},
		Source:  SourceRegistry,
	}
	failed := Startup{
		Company: technoCompany("fail-1", "Beta GmbH"),
		Triage:  CategoryUnclear,
		Flags:   []Flag{{Type: FlagYellow, Text: FailedFlagText}},
		Source:  SourceRegistry,
	}
	store := &countingStore{snap: NewSnapshot([]Startup{ok, failed})}

	provider := &mockProvider{responses: []string{greenResponse()}}
	eng := newTestEngine(t, &fakeSource{}, provider, emptySpinoffs(t), store, fastEngineCfg())

	summary, err := eng.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("RetryFailed() error = %v", err)
	}

	if summary.Retried != 1 || summary.StillFailed != 0 {
		t.Errorf("summary = %+v, want retried=1 stillFailed=0", summary)
	}
	if provider.calls != 1 {
		t.Errorf("classifier calls = %d, want 1 (only the failed startup)", provider.calls)
	}

	snap := store.snap
	if snap.Stats.Green != 2 {
		t.Errorf("green = %d, want 2 after successful retry", snap.Stats.Green)
	}
	if snap.Stats.Total() != snap.TotalCompanies {
		t.Errorf("stats sum %d != total %d", snap.Stats.Total(), snap.TotalCompanies)
	}
	for _, st := range snap.Startups {
		if st.ID == "fail-1" && st.Triage != CategoryGreen {
			t.Errorf("retried startup Triage = %q, want green", st.Triage)
		}
	}
}

func TestEngineRetryFailed_NoSnapshot(t *testing.T) {
	t.Parallel()

	store := &countingStore{}
	eng := newTestEngine(t, &fakeSource{}, &mockProvider{}, emptySpinoffs(t), store, fastEngineCfg())

	summary, err := eng.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("RetryFailed() error = %v", err)
	}
	if summary.Retried != 0 {
		t.Errorf("Retried = %d, want 0", summary.Retried)
	}
	if store.saves != 0 {
		t.Errorf("saves = %d, want 0", store.saves)
	}
}
