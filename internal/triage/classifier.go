package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/scout/internal/llm"
)

const (
	// DefaultMaxRetries bounds classifier attempts per candidate.
	DefaultMaxRetries = 3

	// classifyMaxTokens bounds the oracle's output; the answer is a small
	// JSON object, anything longer is the model rambling.
	classifyMaxTokens = 150

	// FailedFlagText marks a candidate whose classification exhausted all
	// retries. The retry-failed maintenance path selects on this marker.
	FailedFlagText = "LLM-Analyse fehlgeschlagen"
)

// LLMResult is the validated verdict extracted from one oracle response.
type LLMResult struct {
	Triage      Category
	Flags       []Flag
	WebFindings string
}

// FailureResult is the sentinel returned when classification fails for
// good: the candidate stays in the set, marked for a later retry pass.
func FailureResult() LLMResult {
	return LLMResult{
		Triage: CategoryUnclear,
		Flags:  []Flag{{Type: FlagYellow, Text: FailedFlagText}},
	}
}

// Classifier produces triage verdicts for single companies via a remote
// LLM oracle. Failures are always represented as data, never returned as
// errors from the retry path.
type Classifier struct {
	provider   llm.Provider
	maxRetries int
	logger     log.Logger
	hooks      EngineHooks

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClassifier creates a classifier over the given provider. maxRetries <= 0
// falls back to DefaultMaxRetries.
func NewClassifier(provider llm.Provider, maxRetries int, logger log.Logger, hooks EngineHooks) *Classifier {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Classifier{
		provider:   provider,
		maxRetries: maxRetries,
		logger:     logger,
		hooks:      hooks,
		sleep:      sleepCtx,
	}
}

// Classify performs a single oracle call for the company and parses the
// verdict. The error return exists for the retry wrapper; callers outside
// this package should use ClassifyWithRetry.
func (c *Classifier) Classify(ctx context.Context, co *Company) (LLMResult, error) {
	start := time.Now()
	raw, err := c.provider.Complete(ctx, &llm.Request{
		Prompt:      buildPrompt(co),
		MaxTokens:   classifyMaxTokens,
		Temperature: 0,
	})
	if c.hooks.OnLLMCall != nil {
		c.hooks.OnLLMCall(time.Since(start).Seconds(), err != nil)
	}
	if err != nil {
		return LLMResult{}, fmt.Errorf("oracle call: %w", err)
	}

	result, err := parseResult(raw)
	if err != nil {
		return LLMResult{}, fmt.Errorf("oracle response: %w", err)
	}
	return result, nil
}

// ClassifyWithRetry re-invokes Classify up to the configured attempt count,
// backing off 2^attempt seconds between attempts. It never returns an
// error: when all attempts fail, the sentinel failure result is returned.
func (c *Classifier) ClassifyWithRetry(ctx context.Context, co *Company) LLMResult {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		result, err := c.Classify(ctx, co)
		if err == nil {
			return result
		}
		lastErr = err

		if attempt < c.maxRetries-1 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			c.logger.Warn(ctx, "classification attempt failed, retrying",
				"company", co.Name,
				"attempt", attempt+1,
				"max_retries", c.maxRetries,
				"wait", wait.String(),
				"error", err.Error(),
			)
			if serr := c.sleep(ctx, wait); serr != nil {
				break
			}
		}
	}

	c.logger.Error(ctx, lastErr, "all classification attempts failed", "company", co.Name)
	if c.hooks.OnLLMExhausted != nil {
		c.hooks.OnLLMExhausted()
	}
	return FailureResult()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// llmWire is the raw shape expected inside the oracle's response text.
// Every field is re-validated before use; the oracle's output shape is
// never trusted directly.
type llmWire struct {
	Triage string `json:"triage"`
	Flags  []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"flags"`
	WebFindings string `json:"webFindings"`
}

// parseResult locates the first balanced JSON object in the raw response
// (models wrap it in prose or code fences) and validates it into an
// LLMResult. Invalid triage values fall back to unclear, invalid flag types
// to yellow; flags without text are dropped.
func parseResult(raw string) (LLMResult, error) {
	obj, ok := extractJSON(raw)
	if !ok {
		return LLMResult{}, fmt.Errorf("no JSON object found in response")
	}

	var wire llmWire
	if err := json.Unmarshal([]byte(obj), &wire); err != nil {
		return LLMResult{}, fmt.Errorf("parse JSON: %w", err)
	}

	triage := Category(wire.Triage)
	if !triage.Valid() {
		triage = CategoryUnclear
	}

	var flags []Flag
	for _, f := range wire.Flags {
		if f.Text == "" {
			continue
		}
		ft := FlagType(f.Type)
		if !ft.Valid() {
			ft = FlagYellow
		}
		flags = append(flags, Flag{Type: ft, Text: f.Text})
	}

	return LLMResult{Triage: triage, Flags: flags, WebFindings: wire.WebFindings}, nil
}

// extractJSON returns the first balanced {...} span in s. Braces inside
// JSON strings are ignored.
func extractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// buildPrompt renders the fixed triage instruction prompt with the
// company's fields substituted in. The prompt is deliberately strict: the
// oracle over-rates anything with "Tech" in the name unless told not to.
func buildPrompt(co *Company) string {
	p := strings.ReplaceAll(triagePrompt, "{name}", co.Name)
	return strings.ReplaceAll(p, "{purpose}", co.BusinessPurpose)
}

const triagePrompt = `Du bist ein erfahrener VC-Analyst bei einem Stuttgarter Deep-Tech-Fonds. Der Fonds investiert ausschließlich in:
- Industrial Deep-Tech (Sensoren, Robotik, Automation, Fertigung)
- Sustainability (Cleantech, Energie, Kreislaufwirtschaft)
- Enterprise Software mit technischer Tiefe (NICHT generische SaaS)

Triagiere dieses Unternehmen:

Name: {name}
Gegenstand: {purpose}

═══════════════════════════════════════════════════════════════
KATEGORIEN
═══════════════════════════════════════════════════════════════

🟢 INTERESSANT (selten - vielleicht 1 von 10)
Nur wenn ALLE diese Kriterien erfüllt sind:
- Eigenes Hardware-Produkt (Sensor, Gerät, Maschine, Chip) ODER
- Echte technische Innovation (neuer Algorithmus, Verfahren, Material) ODER
- Deeptech-Software mit klarer technischer Tiefe (ML-Infrastruktur, Simulation, CAD)
- UND: Klarer Anwendungsbereich genannt (Automotive, Medizin, Fertigung, Energie, etc.)
- UND: Fokus auf Entwicklung/Produktion, NICHT auf Dienstleistungen

Beispiele für 🟢:
- "Entwicklung und Produktion von LIDAR-Sensoren für autonome Fahrzeuge"
- "Herstellung von Batteriespeichersystemen für industrielle Anwendungen"
- "Entwicklung von Messgeräten für die Halbleiterfertigung"

🟡 UNKLAR (häufig)
- Könnte interessant sein, aber Gegenstand ist zu vage
- Mix aus Produkt und Dienstleistung
- "Software" ohne klaren technischen Tiefgang
- Branche passt, aber keine Produktspezifik

Beispiele für 🟡:
- "Entwicklung von Softwarelösungen im Bereich Künstliche Intelligenz"
- "Entwicklung und Vertrieb von Automatisierungslösungen"

🔴 UNWAHRSCHEINLICH (häufig)
- Holding, Vermögensverwaltung, Beteiligungen
- Beratung, Consulting, Agentur
- IT-Dienstleistungen, Implementierung, Wartung
- Workshops, Schulungen, Trainings
- Handel, Import/Export, Vertrieb (ohne eigene Entwicklung)
- Installation, Montage, Inbetriebnahme
- Generische SaaS für nicht-technische Branchen (HR, Marketing, Sales, Retail)
- Energie-Installation (PV-Montage, Anlagenbetrieb)

═══════════════════════════════════════════════════════════════
ENTSCHEIDUNGSREGELN (STRIKT BEFOLGEN)
═══════════════════════════════════════════════════════════════

1. IGNORIERE DEN FIRMENNAMEN KOMPLETT
   - "Deutsches Institut für KI" mit vagem Gegenstand = 🔴 oder 🟡
   - "XY GmbH" mit konkretem Hardware-Produkt = 🟢

2. DIENSTLEISTUNG SCHLÄGT PRODUKT
   - Enthält "Beratung" + "Entwicklung" → 🔴 (Dienstleister mit Tech-Anstrich)
   - Enthält "Workshops" oder "Schulungen" → 🔴
   - Enthält "Implementierung" oder "Inbetriebnahme" → 🔴
   - Enthält "IT-Dienstleistungen" → 🔴

3. HOLDINGS SIND IMMER ROT
   - "Halten und Verwalten von Beteiligungen" → 🔴
   - "Verwaltung eigenen Vermögens" → 🔴
   - "Erwerb und Veräußerung von Anteilen" → 🔴

4. GENERISCHE SOFTWARE IST NICHT DEEP-TECH
   - "Software für den Personalbereich" → 🔴 (HR SaaS, nicht deep-tech)
   - "Software für Kfz-Werkstätten" → 🔴 (Vertical SaaS, nicht deep-tech)
   - "Software für Einzelhandel" → 🔴
   - "CRM", "ERP", "Marketing-Software" → 🔴

5. DEEP-TECH SOFTWARE ERFORDERT TECHNISCHE TIEFE
   - Muss einen dieser Bereiche betreffen: Simulation, CAD/CAM, ML-Infrastruktur,
     Robotik-Steuerung, Embedded Systems, Halbleiter-Design, Bildverarbeitung für
     industrielle Anwendungen, Sensorik-Software
   - NICHT: Webapps, Mobile Apps, SaaS für Business-Prozesse

6. ENERGIE: UNTERSCHEIDE TECH VS. INSTALLATION
   - "Entwicklung von Batteriespeichersystemen" → 🟢 (Produkt)
   - "Installation von PV-Anlagen" → 🔴 (Handwerk)
   - "Betrieb von Energieparks" → 🔴 (Infrastruktur)

7. "INNOVATIVE LÖSUNGEN" = KEINE INFORMATION
   - Buzzwords ohne Substanz → 🟡 bestenfalls
   - "Innovative Softwarelösungen" → 🟡
   - "Modernste Technologien" → 🟡

8. KURZER GEGENSTAND = SKEPTISCH SEIN
   - Weniger als 100 Zeichen ohne Spezifik → 🟡 oder 🔴

═══════════════════════════════════════════════════════════════
ANTWORTFORMAT
═══════════════════════════════════════════════════════════════

Antworte NUR mit diesem JSON, nichts anderes:
{
  "triage": "green" | "unclear" | "red",
  "flags": [
    {"type": "green", "text": "Positives Signal (z.B. 'Konkretes Hardware-Produkt: Sensoren')"},
    {"type": "red", "text": "Negatives Signal (z.B. 'Enthält Beratungsdienstleistungen')"}
  ]
}

Maximal 3 Flags. Flags müssen spezifisch sein und auf den Gegenstand verweisen.`
