package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/scout/internal/triage"
)

func sampleSnapshot(names ...string) *triage.Snapshot {
	startups := make([]triage.Startup, 0, len(names))
	for i, name := range names {
		startups = append(startups, triage.Startup{
			Company: triage.Company{ID: "id-" + name, Name: name},
			Triage:  triage.CategoryGreen,
			Flags: []triage.Flag{
				{Type: triage.FlagGreen, Text: "Sensorik", Category: "Hardware"},
			},
			Source:      triage.SourceRegistry,
			Badges:      []string{},
			LastUpdated: time.Date(2026, 8, i+1, 0, 0, 0, 0, time.UTC),
		})
	}
	return triage.NewSnapshot(startups)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "startups.json"))

	snap, ok, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok || snap != nil {
		t.Errorf("Load = (%v, %v), want (nil, false) for missing file", snap, ok)
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "startups.json"))
	want := sampleSnapshot("Isar Robotics", "Quantix Systems")

	if err := s.Save(context.Background(), want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("Load ok = false after Save")
	}
	if got.TotalCompanies != want.TotalCompanies {
		t.Errorf("TotalCompanies = %d, want %d", got.TotalCompanies, want.TotalCompanies)
	}
	if len(got.Startups) != len(want.Startups) {
		t.Fatalf("got %d startups, want %d", len(got.Startups), len(want.Startups))
	}
	if got.Startups[0].Name != want.Startups[0].Name {
		t.Errorf("Startups[0].Name = %q, want %q", got.Startups[0].Name, want.Startups[0].Name)
	}
	if got.Stats != want.Stats {
		t.Errorf("Stats = %+v, want %+v", got.Stats, want.Stats)
	}
}

func TestSave_CreatesParentDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "deeper", "startups.json")
	s := New(path)

	if err := s.Save(context.Background(), sampleSnapshot("Isar Robotics")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file not created: %v", err)
	}
}

func TestSave_OverwritesPrevious(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "startups.json"))
	ctx := context.Background()

	if err := s.Save(ctx, sampleSnapshot("Alt GmbH")); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := s.Save(ctx, sampleSnapshot("Neu GmbH", "Neuer GmbH")); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, ok, err := s.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load = (%v, %v)", err, ok)
	}
	if got.TotalCompanies != 2 {
		t.Errorf("TotalCompanies = %d, want 2 after overwrite", got.TotalCompanies)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(filepath.Join(dir, "startups.json"))

	if err := s.Save(context.Background(), sampleSnapshot("Isar Robotics")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".snapshot-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
