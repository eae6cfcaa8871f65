// Package spinoff matches company names against a curated registry of
// verified research-institution spin-offs. A match enriches a startup with
// its university affiliation and funding badges; the triage escalation
// policy for matches lives with the caller, not here.
package spinoff

import (
	"context"
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/linnemanlabs/go-core/log"
)

// Spinoff is one curated, manually verified spin-off entry.
type Spinoff struct {
	Name        string `json:"name"`
	University  string `json:"university"`
	City        string `json:"city"`
	Founded     int    `json:"founded"`
	Sector      string `json:"sector"`
	ExistFunded bool   `json:"existFunded"`
	Notes       string `json:"notes,omitempty"`
}

// Enrichment is the derived data attached to a matched company.
type Enrichment struct {
	UniversityAffiliation string
	ExistProject          string
	Badges                []string
}

type spinoffFile struct {
	Spinoffs []Spinoff `json:"spinoffs"`
}

// Registry loads the curated list once per process and answers match
// queries against it. A failed load yields an empty list, never an error:
// enrichment silently becomes a no-op for the run.
type Registry struct {
	path   string
	logger log.Logger

	mu       sync.Mutex
	loaded   bool
	spinoffs []Spinoff
}

// NewRegistry creates a registry backed by the JSON file at path. The file
// is not read until the first query.
func NewRegistry(path string, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.Nop()
	}
	return &Registry{path: path, logger: logger}
}

// Invalidate drops the cached list so the next query re-reads the file.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
	r.spinoffs = nil
}

func (r *Registry) load(ctx context.Context) []Spinoff {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.spinoffs
	}
	r.loaded = true

	data, err := os.ReadFile(r.path)
	if err != nil {
		r.logger.Warn(ctx, "spin-off registry unavailable, enrichment disabled", "path", r.path, "error", err.Error())
		return nil
	}

	var f spinoffFile
	if err := json.Unmarshal(data, &f); err != nil {
		r.logger.Warn(ctx, "spin-off registry unreadable, enrichment disabled", "path", r.path, "error", err.Error())
		return nil
	}

	r.spinoffs = f.Spinoffs
	r.logger.Info(ctx, "loaded spin-off registry", "path", r.path, "entries", len(r.spinoffs))
	return r.spinoffs
}

// Match returns the first curated entry matching the company name, in list
// order. The matcher does not score competing matches.
func (r *Registry) Match(ctx context.Context, companyName string) (Spinoff, bool) {
	candidate := normalizeName(companyName)
	if candidate == "" {
		return Spinoff{}, false
	}

	for _, sp := range r.load(ctx) {
		entry := normalizeName(sp.Name)
		if entry == "" {
			continue
		}
		if candidate == entry {
			return sp, true
		}
		if strings.Contains(candidate, entry) {
			return sp, true
		}
		// Reverse containment guards against trivial substrings.
		if strings.Contains(entry, candidate) && len(candidate) > 4 {
			return sp, true
		}
	}
	return Spinoff{}, false
}

// Enrich returns the badges and affiliation for a matched company, or
// ok=false when the name matches no curated entry.
func (r *Registry) Enrich(ctx context.Context, companyName string) (*Enrichment, bool) {
	sp, ok := r.Match(ctx, companyName)
	if !ok {
		return nil, false
	}

	e := &Enrichment{
		UniversityAffiliation: sp.University,
		Badges:                []string{"🎓 " + sp.University},
	}
	if sp.ExistFunded {
		e.ExistProject = sp.Name
		e.Badges = append(e.Badges, "🏛️ EXIST")
	}
	return e, true
}

var (
	legalSuffixRe = regexp.MustCompile(`(?i)\s*(gmbh|ag|se|ug|kg|ohg|e\.v\.|mbh|co\.|&\s*co\.?)\s*`)
	noiseWordRe   = regexp.MustCompile(`(?i)\s*(spin[\s-]?off|spin[\s-]?out)\s*`)
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9äöüß]`)
)

// normalizeName lowercases the name, strips common legal-entity suffixes
// and spin-off noise words, and removes everything outside Latin letters
// (incl. umlauts/ß) and digits, so "TUM Spinout Sensorics GmbH" and
// "TUM Sensorics" can meet.
func normalizeName(name string) string {
	s := strings.ToLower(name)
	s = legalSuffixRe.ReplaceAllString(s, "")
	s = noiseWordRe.ReplaceAllString(s, "")
	s = nonAlnumRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
