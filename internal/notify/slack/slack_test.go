package slack

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linnemanlabs/scout/internal/triage"
)

func sampleSummary() *triage.RunSummary {
	return &triage.RunSummary{
		RunID:           "01HXYZ",
		DurationSeconds: 42.5,
		TotalFetched:    20,
		TotalTriaged:    18,
		Skipped:         2,
		Enriched:        3,
		Distribution:    triage.Stats{Green: 5, Unclear: 10, Red: 3},
	}
}

func TestSend_EmptyURLIsNoop(t *testing.T) {
	t.Parallel()

	if err := New("").Send(context.Background(), sampleSummary()); err != nil {
		t.Fatalf("Send with empty URL: %v", err)
	}
}

func TestSend_PostsSummary(t *testing.T) {
	t.Parallel()

	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	if err := New(srv.URL).Send(context.Background(), sampleSummary()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	for _, want := range []string{
		"18 startups triaged",
		"*Fetched:* 20",
		"*Skipped:* 2",
		"*Spin-offs:* 3",
		"run 01HXYZ",
		"\U0001f7e2 5",
	} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("payload missing %q", want)
		}
	}
}

func TestSend_HeaderTurnsYellowWithoutGreens(t *testing.T) {
	t.Parallel()

	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	t.Cleanup(srv.Close)

	s := sampleSummary()
	s.Distribution.Green = 0

	if err := New(srv.URL).Send(context.Background(), s); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(gotBody, "\U0001f7e1 Scan Complete") {
		t.Error("expected yellow header for a run without green verdicts")
	}
}

func TestSend_WebhookError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	err := New(srv.URL).Send(context.Background(), sampleSummary())
	if err == nil {
		t.Fatal("expected error on non-2xx webhook response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error %q does not carry the status code", err)
	}
}
