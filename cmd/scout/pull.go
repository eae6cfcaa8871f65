package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/scout/internal/triage"
)

var (
	pullPerCodeLimit int
	pullCheckpoint   int
	pullLegacy       bool
	pullJSON         bool
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Run a full bulk triage pass over the industry-code universe",
	Long: "Fetches candidates for every configured industry code without the interactive " +
		"candidate cap, triages all of them, and replaces the snapshot. Long runs " +
		"checkpoint the partial snapshot periodically.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		appCfg, err := loadConfig()
		if err != nil {
			return err
		}
		appCfg.PerCodeLimit = pullPerCodeLimit
		if pullLegacy {
			appCfg.LegacyQueries = true
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		p, err := buildPipeline(cmd.Context(), appCfg, logger, triage.EngineConfig{
			// Bulk path: no cap, survive kills via checkpoints.
			MaxCandidates:   0,
			CheckpointEvery: pullCheckpoint,
		})
		if err != nil {
			return err
		}
		defer p.close()

		summary, err := p.engine.Run(cmd.Context())
		if err != nil {
			return err
		}

		if pullJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}
		cmd.Printf("triaged %d/%d candidates (%d enriched, %d skipped) in %.1fs\n",
			summary.TotalTriaged, summary.TotalFetched, summary.Enriched, summary.Skipped, summary.DurationSeconds)
		cmd.Printf("verdicts: green=%d unclear=%d red=%d\n",
			summary.Distribution.Green, summary.Distribution.Unclear, summary.Distribution.Red)
		return nil
	},
}

func init() {
	pullCmd.Flags().IntVar(&pullPerCodeLimit, "per-code-limit", 150, "max results per industry code")
	pullCmd.Flags().IntVar(&pullCheckpoint, "checkpoint-every", 25, "write a partial snapshot every N candidates (0 = off)")
	pullCmd.Flags().BoolVar(&pullLegacy, "legacy-queries", false, "fetch by name-search queries instead of industry codes")
	pullCmd.Flags().BoolVar(&pullJSON, "json", false, "print the run summary as JSON")
	rootCmd.AddCommand(pullCmd)
}
