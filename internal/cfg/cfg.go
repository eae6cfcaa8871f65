package cfg

import (
	"errors"
	"flag"
	"fmt"
	"time"
)

// Config adds scout-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	RegistryAPIKey   string
	RegistryBaseURL  string
	RegistryDateFrom string
	PerCodeLimit     int
	LegacyQueries    bool

	LLMProvider      string
	OpenRouterAPIKey string
	OpenRouterModel  string
	ClaudeAPIKey     string
	ClaudeModel      string
	LLMMaxRetries    int
	LLMDelayMillis   int

	MaxCandidates int
	ScanSecret    string

	SnapshotPath string
	DatabaseURL  string
	SpinoffPath  string

	SlackWebhookURL string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.RegistryAPIKey, "registry-api-key", "", "API key for the Handelsregister.ai feed")
	fs.StringVar(&c.RegistryBaseURL, "registry-base-url", "", "registry API base URL override (empty = production)")
	fs.StringVar(&c.RegistryDateFrom, "registry-date-from", "2025-01-01", "only fetch companies registered on or after this date (YYYY-MM-DD)")
	fs.IntVar(&c.PerCodeLimit, "per-code-limit", 100, "max results per industry code or search query (1..500)")
	fs.BoolVar(&c.LegacyQueries, "legacy-queries", false, "fetch by name-search queries instead of WZ2025 industry codes")
	fs.StringVar(&c.LLMProvider, "llm-provider", "openrouter", "classifier provider: openrouter or claude")
	fs.StringVar(&c.OpenRouterAPIKey, "openrouter-api-key", "", "API key for the OpenRouter classifier provider")
	fs.StringVar(&c.OpenRouterModel, "openrouter-model", "google/gemini-3-flash-preview", "OpenRouter model to use")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude classifier provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.IntVar(&c.LLMMaxRetries, "llm-max-retries", 3, "max classifier attempts per candidate (1..10)")
	fs.IntVar(&c.LLMDelayMillis, "llm-delay-millis", 500, "pause between classifier calls in milliseconds (0..60000)")
	fs.IntVar(&c.MaxCandidates, "max-candidates", 80, "cap on candidates per triggered scan (0 = no cap)")
	fs.StringVar(&c.ScanSecret, "scan-secret", "", "bearer secret protecting the scan trigger (empty = unprotected)")
	fs.StringVar(&c.SnapshotPath, "snapshot-path", "data/startups.json", "snapshot file path (used when no database URL is set)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = file store)")
	fs.StringVar(&c.SpinoffPath, "spinoff-path", "data/spinoffs.json", "path to the curated spin-off registry")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for run notifications")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Registry key is required for the feed
	if c.RegistryAPIKey == "" {
		errs = append(errs, errors.New("REGISTRY_API_KEY is required"))
	}

	if c.RegistryDateFrom != "" {
		if _, err := time.Parse("2006-01-02", c.RegistryDateFrom); err != nil {
			errs = append(errs, fmt.Errorf("invalid REGISTRY_DATE_FROM %q (must be YYYY-MM-DD)", c.RegistryDateFrom))
		}
	}

	if c.PerCodeLimit <= 0 || c.PerCodeLimit > 500 {
		errs = append(errs, fmt.Errorf("invalid PER_CODE_LIMIT %d (must be 1..500)", c.PerCodeLimit))
	}

	// Exactly the configured provider's key is required
	switch c.LLMProvider {
	case "openrouter":
		if c.OpenRouterAPIKey == "" {
			errs = append(errs, errors.New("OPENROUTER_API_KEY is required"))
		}
		if c.OpenRouterModel == "" {
			errs = append(errs, errors.New("OPENROUTER_MODEL is required"))
		}
	case "claude":
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
		}
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid LLM_PROVIDER %q (must be openrouter or claude)", c.LLMProvider))
	}

	if c.LLMMaxRetries <= 0 || c.LLMMaxRetries > 10 {
		errs = append(errs, fmt.Errorf("invalid LLM_MAX_RETRIES %d (must be 1..10)", c.LLMMaxRetries))
	}
	if c.LLMDelayMillis < 0 || c.LLMDelayMillis > 60000 {
		errs = append(errs, fmt.Errorf("invalid LLM_DELAY_MILLIS %d (must be 0..60000)", c.LLMDelayMillis))
	}

	if c.MaxCandidates < 0 {
		errs = append(errs, fmt.Errorf("invalid MAX_CANDIDATES %d (must be >= 0)", c.MaxCandidates))
	}

	if c.DatabaseURL == "" && c.SnapshotPath == "" {
		errs = append(errs, errors.New("SNAPSHOT_PATH is required when DATABASE_URL is not set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
