package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

// longPurpose comfortably clears the minimum purpose length filter.
const longPurpose = "Entwicklung und Vertrieb von Sensortechnik für industrielle Anwendungen"

func testConfig(baseURL string) Config {
	return Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		BatchDelay: time.Nanosecond,
	}
}

func wireResult(id, name, purpose string) map[string]any {
	return map[string]any{
		"entity_id":         id,
		"name":              name,
		"legal_form":        "GmbH",
		"registration_date": "2025-03-01",
		"purpose":           purpose,
		"address":           map[string]any{"city": "München", "state": "Bayern"},
		"registration":      map[string]any{"register_type": "HRB", "register_number": "123456"},
	}
}

func serveResults(t *testing.T, handler func(q url.Values) []map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := handler(r.URL.Query())
		resp := map[string]any{
			"results": results,
			"total":   len(results),
			"meta":    map[string]any{"request_credit_cost": 1, "credits_remaining": 100},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchByCodes_RequestShape(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	var gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotAPIKey = r.Header.Get("x-api-key")
		_, _ = w.Write([]byte(`{"results":[],"total":0}`))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.Codes = []IndustryCode{{Code: "62.10.4", Description: "KI/ML Entwicklung"}}
	cfg.DateFrom = "2025-06-01"
	cfg.PerCodeLimit = 42

	if _, err := New(cfg, nil).Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotAPIKey != "test-key" {
		t.Errorf("x-api-key = %q, want test-key", gotAPIKey)
	}
	wantParams := map[string]string{
		"filters[industry_code]":          "62.10.4",
		"filters[industry_scheme]":        "WZ2025",
		"filters[registration_date_from]": "2025-06-01",
		"limit":                           "42",
	}
	for k, want := range wantParams {
		if got := gotQuery.Get(k); got != want {
			t.Errorf("query %s = %q, want %q", k, got, want)
		}
	}
}

func TestFetchByCodes_DeduplicatesAcrossBatches(t *testing.T) {
	t.Parallel()

	srv := serveResults(t, func(q url.Values) []map[string]any {
		// Both codes return the same entity plus one unique each.
		switch q.Get("filters[industry_code]") {
		case "26.51.1":
			return []map[string]any{
				wireResult("e-1", "Shared Sensorics GmbH", longPurpose),
				wireResult("e-2", "Mess GmbH", longPurpose),
			}
		default:
			return []map[string]any{
				wireResult("e-1", "Shared Sensorics GmbH", longPurpose),
				wireResult("e-3", "Prüf GmbH", longPurpose),
			}
		}
	})

	cfg := testConfig(srv.URL)
	cfg.Codes = []IndustryCode{
		{Code: "26.51.1", Description: "Mess/Kontroll-Instrumente"},
		{Code: "26.51.3", Description: "Prüfmaschinen"},
	}

	companies, err := New(cfg, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(companies) != 3 {
		t.Fatalf("got %d companies, want 3 after dedup", len(companies))
	}
	counts := make(map[string]int)
	for _, co := range companies {
		counts[co.ID]++
	}
	if counts["e-1"] != 1 {
		t.Errorf("entity e-1 appears %d times, want exactly once", counts["e-1"])
	}
}

func TestFetchByCodes_DropsShortPurpose(t *testing.T) {
	t.Parallel()

	srv := serveResults(t, func(url.Values) []map[string]any {
		return []map[string]any{
			wireResult("e-1", "Kurz GmbH", "Handel"),
			wireResult("e-2", "Lang GmbH", longPurpose),
		}
	})

	cfg := testConfig(srv.URL)
	cfg.Codes = []IndustryCode{{Code: "58.29.0", Description: "Sonstige Software"}}

	companies, err := New(cfg, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(companies) != 1 || companies[0].ID != "e-2" {
		t.Fatalf("got %v, want only e-2", companies)
	}
}

func TestFetchByCodes_FailedBatchIsSkipped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filters[industry_code]") == "28.99.1" {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		resp := map[string]any{
			"results": []map[string]any{wireResult("e-1", "Roboter GmbH", longPurpose)},
			"total":   1,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.Codes = []IndustryCode{
		{Code: "28.99.1", Description: "Industrieroboter"},
		{Code: "28.41.0", Description: "Werkzeugmaschinen"},
	}

	companies, err := New(cfg, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch should survive a failing batch, got %v", err)
	}
	if len(companies) != 1 {
		t.Fatalf("got %d companies, want 1 from the healthy batch", len(companies))
	}
}

func TestFetchByCodes_CanceledContext(t *testing.T) {
	t.Parallel()

	srv := serveResults(t, func(url.Values) []map[string]any { return nil })

	cfg := testConfig(srv.URL)
	cfg.Codes = []IndustryCode{{Code: "28.99.1", Description: "Industrieroboter"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(cfg, nil).Fetch(ctx); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestFetchByQueries(t *testing.T) {
	t.Parallel()

	srv := serveResults(t, func(q url.Values) []map[string]any {
		if q.Get("q") != "Software GmbH" {
			return nil
		}
		old := wireResult("e-old", "Alt Software GmbH", longPurpose)
		old["registration_date"] = "2024-01-15"
		ev := wireResult("e-verein", "Verein Software", longPurpose)
		ev["registration"] = map[string]any{"register_type": "VR", "register_number": "99"}
		return []map[string]any{
			wireResult("e-1", "Neu Software GmbH", longPurpose),
			old,
			ev,
			wireResult("e-2", "Noch Eine GmbH", longPurpose),
			wireResult("e-3", "Dritte GmbH", longPurpose),
		}
	})

	cfg := testConfig(srv.URL)
	cfg.Legacy = true
	cfg.QueriesPerSearch = 1
	cfg.MaxCompanies = 2
	cfg.MinRegistrationDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	companies, err := New(cfg, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// e-old is too old, e-verein is not HRB, and MaxCompanies caps at 2.
	if len(companies) != 2 {
		t.Fatalf("got %d companies, want 2", len(companies))
	}
	if companies[0].ID != "e-1" || companies[1].ID != "e-2" {
		t.Errorf("got ids %s, %s; want e-1, e-2", companies[0].ID, companies[1].ID)
	}
}

func TestTransform_Defaults(t *testing.T) {
	t.Parallel()

	co := transform(&wireCompany{
		EntityID: "e-1",
		Name:     "Minimal UG",
		Purpose:  longPurpose,
	})

	if co.LegalForm != "GmbH" {
		t.Errorf("LegalForm = %q, want GmbH default", co.LegalForm)
	}
	if co.City != "Unbekannt" {
		t.Errorf("City = %q, want Unbekannt default", co.City)
	}
	if co.RegisterType != "HRB" {
		t.Errorf("RegisterType = %q, want HRB default", co.RegisterType)
	}
}

func TestTooOld(t *testing.T) {
	t.Parallel()

	min := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		date string
		want bool
	}{
		{"2024-12-31", true},
		{"2025-01-01", false},
		{"2025-06-15", false},
		{"", false},
		{"not-a-date", false},
	}
	for _, tt := range tests {
		if got := tooOld(tt.date, min); got != tt.want {
			t.Errorf("tooOld(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}
}
