package triage

import (
	"fmt"
	"strings"
	"unicode"
)

// minPurposeLen is the minimum business-purpose length worth evaluating.
// Anything shorter carries no signal and is rejected outright.
const minPurposeLen = 30

// shortPurposeLen marks purposes too terse to be a real product description
// unless they at least mention development.
const shortPurposeLen = 80

// PreFilterResult is the outcome of the deterministic pre-filter.
type PreFilterResult struct {
	// ShouldProcess is false when the candidate is obvious noise and must
	// not be sent to the classifier at all.
	ShouldProcess bool
	Triage        Category
	Flags         []Flag
}

// PreFilter scores a candidate from its business purpose, name, and city
// using the static signal tables, without any classifier call. It is pure
// and idempotent; malformed input is treated as "no purpose" and rejected.
func PreFilter(purpose, name, city string) PreFilterResult {
	purpose = strings.ToLower(purpose)
	name = strings.ToLower(name)
	city = strings.ToLower(city)

	// Hard skip: too short to evaluate, or obvious non-tech sector.
	if len(purpose) < minPurposeLen {
		return PreFilterResult{ShouldProcess: false, Triage: CategoryRed}
	}
	for _, kw := range hardSkipKeywords {
		if strings.Contains(purpose, kw) || strings.Contains(name, kw) {
			return PreFilterResult{ShouldProcess: false, Triage: CategoryRed}
		}
	}

	var flags []Flag

	// Red lexical signals.
	for _, kw := range redFlagKeywords {
		if strings.Contains(purpose, kw) {
			flags = append(flags, Flag{Type: FlagRed, Text: titleCase(kw), Category: "Geschäftsmodell"})
		}
	}

	// Structural red patterns.
	if strings.Contains(purpose, "aller art") || strings.Contains(purpose, "jeglicher art") {
		flags = append(flags, Flag{Type: FlagRed, Text: `"Aller Art" - zu vage`, Category: "Sprache"})
	}
	if strings.Contains(purpose, "und angrenzende") || strings.Contains(purpose, "und verwandte") {
		flags = append(flags, Flag{Type: FlagRed, Text: "Vage Erweiterung", Category: "Sprache"})
	}
	if len(purpose) < shortPurposeLen && !strings.Contains(purpose, "entwicklung") {
		flags = append(flags, Flag{Type: FlagRed, Text: "Sehr kurzer Gegenstand", Category: "Sprache"})
	}

	// Green lexical signals, matched against purpose or name.
	for _, gk := range greenFlagKeywords {
		if strings.Contains(purpose, gk.keyword) || strings.Contains(name, gk.keyword) {
			flags = append(flags, Flag{Type: FlagGreen, Text: titleCase(gk.keyword), Category: gk.category})
		}
	}

	// University city proximity.
	for _, uc := range universityCities {
		if strings.Contains(city, uc.city) {
			flags = append(flags, Flag{Type: FlagGreen, Text: "Nähe " + uc.unis[0], Category: "Standort"})
			break
		}
	}

	// Secondary product indicators.
	if strings.Contains(purpose, "api") && (strings.Contains(purpose, "software") || strings.Contains(purpose, "dienst")) {
		flags = append(flags, Flag{Type: FlagGreen, Text: "API-Produkt", Category: "Geschäftsmodell"})
	}
	if strings.Contains(purpose, "saas") || strings.Contains(purpose, "software as a service") {
		flags = append(flags, Flag{Type: FlagGreen, Text: "SaaS", Category: "Geschäftsmodell"})
	}
	if strings.Contains(purpose, "patent") || strings.Contains(purpose, "lizenz") {
		flags = append(flags, Flag{Type: FlagGreen, Text: "IP/Patente", Category: "Geschäftsmodell"})
	}
	if strings.Contains(purpose, "prototyp") || strings.Contains(purpose, "versuchsanlage") {
		flags = append(flags, Flag{Type: FlagGreen, Text: "Prototyp-Phase", Category: "Stadium"})
	}

	// Deep-tech tokens in the name. Only the first match counts; names are
	// weak evidence.
	for _, tok := range deepTechNameTokens {
		if strings.Contains(name, tok) {
			flags = append(flags, Flag{Type: FlagYellow, Text: fmt.Sprintf("%q im Namen", tok), Category: "Name"})
			break
		}
	}

	// One yellow flag for the first ambiguous term not already covered by a
	// green match.
	for _, term := range ambiguousTerms {
		if !strings.Contains(purpose, term) {
			continue
		}
		alreadyGreen := false
		for _, f := range flags {
			if f.Type == FlagGreen && strings.Contains(strings.ToLower(f.Text), term) {
				alreadyGreen = true
				break
			}
		}
		if !alreadyGreen {
			flags = append(flags, Flag{
				Type:     FlagYellow,
				Text:     fmt.Sprintf("%q ohne Spezifik", titleCase(term)),
				Category: "Sprache",
			})
			break
		}
	}

	return PreFilterResult{
		ShouldProcess: true,
		Triage:        decideCategory(flags),
		Flags:         DedupFlags(flags),
	}
}

// decideCategory applies the precedence rules: strong reds dominate, any
// green without reds is green, mixed signals are unclear, reds alone are
// red, and yellow-only or no flags stay unclear.
func decideCategory(flags []Flag) Category {
	var green, red int
	for _, f := range flags {
		switch f.Type {
		case FlagGreen:
			green++
		case FlagRed:
			red++
		}
	}

	switch {
	case red >= 2 && green == 0:
		return CategoryRed
	case green >= 1 && red == 0:
		return CategoryGreen
	case green > 0 && red > 0:
		return CategoryUnclear
	case red > 0:
		return CategoryRed
	default:
		return CategoryUnclear
	}
}

// titleCase uppercases the first rune, matching how keyword matches are
// rendered as flag text.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
