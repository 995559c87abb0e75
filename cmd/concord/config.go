package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concordlabs/concord/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Config shows the merged configuration: defaults, then the XDG config
file, then ./concord.yaml, then CONCORD_ environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFrom(cfgFile)
		if err != nil {
			return err
		}
		displayConfig(cfg)
		return nil
	},
}

// displayConfig prints all configuration values.
func displayConfig(cfg *config.Config) {
	// Mask API keys if set
	maskKey := func(key string) string {
		if key == "" {
			return "(not set)"
		}
		return "****"
	}

	fmt.Printf("run.concurrency: %d\n", cfg.Run.Concurrency)
	fmt.Printf("run.max_retries: %d\n", cfg.Run.MaxRetries)
	fmt.Printf("run.retry_backoff_base: %s\n", cfg.Run.RetryBackoffBase)
	fmt.Printf("run.retry_backoff_multiplier: %v\n", cfg.Run.RetryBackoffMultiplier)
	fmt.Printf("consensus.default_fault_tolerance: %d\n", cfg.Consensus.DefaultFaultTolerance)
	fmt.Printf("consensus.timeout: %s\n", cfg.Consensus.Timeout)
	fmt.Printf("consensus.similarity_threshold: %v\n", cfg.Consensus.SimilarityThreshold)
	fmt.Printf("consensus.redraw_on_retry: %t\n", cfg.Consensus.RedrawOnRetry)
	for id, f := range cfg.Consensus.PerTask {
		fmt.Printf("consensus.per_task.%s: %d\n", id, f)
	}
	fmt.Printf("anthropic.api_key: %s\n", maskKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("embedding.base_url: %s\n", cfg.Embedding.BaseURL)
	fmt.Printf("embedding.api_key: %s\n", maskKey(cfg.Embedding.APIKey))
	fmt.Printf("embedding.model: %s\n", cfg.Embedding.Model)
	fmt.Printf("store.db_path: %s\n", cfg.Store.DBPath)
	fmt.Printf("log.level: %s\n", cfg.Log.Level)
	fmt.Printf("log.development: %t\n", cfg.Log.Development)
}
