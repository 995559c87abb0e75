package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/concordlabs/concord/internal/config"
	"github.com/concordlabs/concord/internal/sink"
)

var (
	resultsRunID  string
	resultsDBPath string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Browse stored run results",
	Long: `Results lists past runs from the results database, or with --run
prints every accepted answer of one run.

The database location comes from store.db_path; when unset, the default
XDG data path is used.`,
	RunE: showResults,
}

func init() {
	resultsCmd.Flags().StringVar(&resultsRunID, "run", "", "Print results for one run ID")
	resultsCmd.Flags().StringVar(&resultsDBPath, "db", "", "SQLite path (overrides store.db_path)")
}

func showResults(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		return err
	}

	dbPath := cfg.Store.DBPath
	if resultsDBPath != "" {
		dbPath = resultsDBPath
	}
	if dbPath == "" {
		dbPath = sink.DefaultDBPath()
	}

	store, err := sink.OpenSQLite(dbPath, "")
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if resultsRunID == "" {
		return listRuns(ctx, store)
	}
	return printRunResults(ctx, store, resultsRunID)
}

func listRuns(ctx context.Context, store *sink.SQLite) error {
	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No stored runs.")
		return nil
	}

	for _, run := range runs {
		fmt.Printf("  %s  %d result(s)  %s\n",
			color.CyanString(run.RunID), run.Results, run.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func printRunResults(ctx context.Context, store *sink.SQLite, runID string) error {
	results, err := store.ResultsForRun(ctx, runID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no results for run %s", runID)
	}

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		color.Green("── %s ──", id)
		fmt.Println(results[id])
		fmt.Println()
	}
	return nil
}
