package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "concord",
	Short: "Multi-agent task orchestrator with consensus voting",
	Long: `Concord runs a dependency graph of tasks over a pool of model-backed
agents. Tasks that matter get answered by 2f+1 agents and the answers are
reduced by majority-with-similarity voting, so up to f flaky or adversarial
agents cannot push a wrong result through.

Task graphs are plain YAML files:

  tasks:
    - id: plan
      spec: "Outline the release steps"
    - id: review
      spec: "Review the plan for gaps"
      depends_on: [plan]
      consensus: 1`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// A .env in the working directory is the easiest place for API keys.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./concord.yaml, then XDG config dir)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(versionCmd)
}
