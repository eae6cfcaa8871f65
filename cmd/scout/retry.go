package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/scout/internal/triage"
)

var retryJSON bool

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-classify startups whose LLM analysis previously failed",
	Long: "Loads the current snapshot, re-runs only startups carrying the " +
		"classification-failure marker through the classifier, and rewrites the snapshot.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		appCfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		p, err := buildPipeline(cmd.Context(), appCfg, logger, triage.EngineConfig{})
		if err != nil {
			return err
		}
		defer p.close()

		summary, err := p.engine.RetryFailed(cmd.Context())
		if err != nil {
			return err
		}

		if retryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}
		cmd.Printf("retried %d failed classifications, %d still failing\n",
			summary.Retried, summary.StillFailed)
		cmd.Printf("verdicts: green=%d unclear=%d red=%d\n",
			summary.Stats.Green, summary.Stats.Unclear, summary.Stats.Red)
		return nil
	},
}

func init() {
	retryCmd.Flags().BoolVar(&retryJSON, "json", false, "print the run summary as JSON")
	rootCmd.AddCommand(retryCmd)
}
