package triage

import (
	"sort"
	"time"
)

// FlagType is the polarity of a single triage signal.
type FlagType string

const (
	// FlagGreen marks a positive signal
	FlagGreen FlagType = "green"

	// FlagYellow marks an ambiguous signal
	FlagYellow FlagType = "yellow"

	// FlagRed marks a negative signal
	FlagRed FlagType = "red"
)

// Valid reports whether t is a known flag type.
func (t FlagType) Valid() bool {
	return t == FlagGreen || t == FlagYellow || t == FlagRed
}

// Flag is a single labeled signal supporting a triage decision. Flags are
// append-only observations; they are accumulated and then deduplicated by
// (Type, Text), never mutated.
type Flag struct {
	Type     FlagType `json:"type"`
	Text     string   `json:"text"`
	Category string   `json:"category,omitempty"`
}

// Category is the coarse investment-relevance verdict for a candidate.
type Category string

const (
	// CategoryGreen means interesting, worth a closer look
	CategoryGreen Category = "green"

	// CategoryUnclear means undecided, needs manual review
	CategoryUnclear Category = "unclear"

	// CategoryRed means unlikely to be relevant
	CategoryRed Category = "red"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryGreen || c == CategoryUnclear || c == CategoryRed
}

// Order returns the ranking position of the category: green sorts before
// unclear, unclear before red. Unknown categories sort last.
func (c Category) Order() int {
	switch c {
	case CategoryGreen:
		return 0
	case CategoryUnclear:
		return 1
	case CategoryRed:
		return 2
	default:
		return 3
	}
}

// Company is a single company record from the commercial registry feed,
// already mapped from the wire format. Immutable once fetched.
type Company struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	LegalForm        string `json:"legalForm"`
	City             string `json:"city"`
	State            string `json:"state"`
	RegistrationDate string `json:"registrationDate"`
	BusinessPurpose  string `json:"businessPurpose"`
	RegisterType     string `json:"registerType"`
	RegisterNumber   string `json:"registerNumber"`
}

// Startup is one fully triaged output record: the registry fields plus the
// final verdict, its supporting flags, and optional spin-off enrichment.
type Startup struct {
	Company

	Triage Category `json:"triage"`
	Flags  []Flag   `json:"flags"`

	Source                string   `json:"source"`
	UniversityAffiliation string   `json:"universityAffiliation,omitempty"`
	ExistProject          string   `json:"existProject,omitempty"`
	Badges                []string `json:"badges"`

	LastUpdated time.Time `json:"lastUpdated"`
}

// SourceRegistry is the provenance tag for startups discovered via the
// commercial registry feed.
const SourceRegistry = "handelsregister"

// Stats holds per-category counts for a snapshot.
type Stats struct {
	Green   int `json:"green"`
	Unclear int `json:"unclear"`
	Red     int `json:"red"`
}

// Total returns the sum of all category counts.
func (s Stats) Total() int {
	return s.Green + s.Unclear + s.Red
}

// Snapshot is the complete persisted result set for one pipeline run. It is
// regenerated wholesale each run and written as one atomic unit.
type Snapshot struct {
	LastUpdated    time.Time `json:"lastUpdated"`
	TotalCompanies int       `json:"totalCompanies"`
	Stats          Stats     `json:"stats"`
	Startups       []Startup `json:"startups"`
}

// EmptySnapshot returns a valid zero-result snapshot. Used when no snapshot
// has been persisted yet; absence of data is not an error.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		LastUpdated: time.Now().UTC(),
		Startups:    []Startup{},
	}
}

// NewSnapshot builds a snapshot from an already-ranked startup list, with a
// fresh timestamp and stats recomputed from the list so that the aggregate
// invariant (stats sum == total) holds by construction.
func NewSnapshot(startups []Startup) *Snapshot {
	if startups == nil {
		startups = []Startup{}
	}
	return &Snapshot{
		LastUpdated:    time.Now().UTC(),
		TotalCompanies: len(startups),
		Stats:          ComputeStats(startups),
		Startups:       startups,
	}
}

// ComputeStats counts startups per category.
func ComputeStats(startups []Startup) Stats {
	var s Stats
	for _, st := range startups {
		switch st.Triage {
		case CategoryGreen:
			s.Green++
		case CategoryUnclear:
			s.Unclear++
		case CategoryRed:
			s.Red++
		}
	}
	return s
}

// DedupFlags removes duplicate flags, keeping the first occurrence of each
// (Type, Text) pair in order.
func DedupFlags(flags []Flag) []Flag {
	type key struct {
		t    FlagType
		text string
	}
	seen := make(map[key]bool, len(flags))
	out := make([]Flag, 0, len(flags))
	for _, f := range flags {
		k := key{f.Type, f.Text}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

// GreenFlagCount returns the number of green flags in the set.
func GreenFlagCount(flags []Flag) int {
	n := 0
	for _, f := range flags {
		if f.Type == FlagGreen {
			n++
		}
	}
	return n
}

// SortStartups ranks startups in place: green first, then unclear, then red;
// within the same category, more green flags first. The sort is stable, so
// equal-rank ties preserve insertion order.
func SortStartups(startups []Startup) {
	sort.SliceStable(startups, func(i, j int) bool {
		oi, oj := startups[i].Triage.Order(), startups[j].Triage.Order()
		if oi != oj {
			return oi < oj
		}
		return GreenFlagCount(startups[i].Flags) > GreenFlagCount(startups[j].Flags)
	})
}
