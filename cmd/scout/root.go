package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	gcfg "github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/log"

	sc "github.com/linnemanlabs/scout/internal/cfg"
	"github.com/linnemanlabs/scout/internal/llm"
	"github.com/linnemanlabs/scout/internal/llm/claude"
	"github.com/linnemanlabs/scout/internal/llm/openrouter"
	"github.com/linnemanlabs/scout/internal/registry"
	"github.com/linnemanlabs/scout/internal/spinoff"
	"github.com/linnemanlabs/scout/internal/triage"
	"github.com/linnemanlabs/scout/internal/triage/filestore"
	"github.com/linnemanlabs/scout/internal/triage/pgstore"
)

// loadConfig resolves the app configuration the same way the server
// does: flag defaults, then SCOUT_-prefixed environment variables.
// CLI-specific overrides are applied by the callers afterwards.
func loadConfig() (*sc.Config, error) {
	var appCfg sc.Config
	fs := flag.NewFlagSet("scout", flag.ContinueOnError)
	appCfg.RegisterFlags(fs)
	if err := fs.Parse(nil); err != nil {
		return nil, err
	}

	gcfg.FillFromEnv(fs, "SCOUT_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	return &appCfg, nil
}

// pipeline bundles the wired components one CLI run needs.
type pipeline struct {
	engine *triage.Engine
	store  triage.SnapshotStore
	close  func()
}

// buildPipeline wires source, classifier, enrichment and store from the
// resolved config. engineCfg carries the per-command run policy.
func buildPipeline(ctx context.Context, appCfg *sc.Config, logger log.Logger, engineCfg triage.EngineConfig) (*pipeline, error) {
	if err := appCfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	var provider llm.Provider
	switch appCfg.LLMProvider {
	case "claude":
		provider = claude.New(appCfg.ClaudeAPIKey, appCfg.ClaudeModel)
	default:
		provider = openrouter.New(appCfg.OpenRouterAPIKey, appCfg.OpenRouterModel,
			"https://github.com/linnemanlabs/scout", "scout")
	}

	classifier := triage.NewClassifier(provider, appCfg.LLMMaxRetries, logger, triage.EngineHooks{})
	spinoffs := spinoff.NewRegistry(appCfg.SpinoffPath, logger)

	source := registry.New(registry.Config{
		APIKey:       appCfg.RegistryAPIKey,
		BaseURL:      appCfg.RegistryBaseURL,
		DateFrom:     appCfg.RegistryDateFrom,
		PerCodeLimit: appCfg.PerCodeLimit,
		Legacy:       appCfg.LegacyQueries,
	}, logger)

	var store triage.SnapshotStore
	closeStore := func() {}
	if appCfg.DatabaseURL != "" {
		pgStore, err := pgstore.New(ctx, appCfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("pgstore init: %w", err)
		}
		store = pgStore
		closeStore = pgStore.Close
	} else {
		store = filestore.New(appCfg.SnapshotPath)
	}

	if engineCfg.CallDelay <= 0 {
		engineCfg.CallDelay = time.Duration(appCfg.LLMDelayMillis) * time.Millisecond
	}

	engine := triage.NewEngine(source, classifier, spinoffs, store, logger, triage.EngineHooks{}, engineCfg)
	return &pipeline{engine: engine, store: store, close: closeStore}, nil
}

// newLogger builds a console logger for CLI runs.
func newLogger() (log.Logger, error) {
	var logCfg log.Config
	fs := flag.NewFlagSet("scout-log", flag.ContinueOnError)
	logCfg.RegisterFlags(fs)
	if err := fs.Parse(nil); err != nil {
		return nil, err
	}
	gcfg.FillFromEnv(fs, "SCOUT_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	return log.New(logCfg.ToOptions("scout"))
}
