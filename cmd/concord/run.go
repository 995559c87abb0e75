package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/concordlabs/concord/internal/agent"
	"github.com/concordlabs/concord/internal/config"
	"github.com/concordlabs/concord/internal/consensus"
	"github.com/concordlabs/concord/internal/graph"
	"github.com/concordlabs/concord/internal/llm"
	"github.com/concordlabs/concord/internal/logging"
	"github.com/concordlabs/concord/internal/orchestrator"
	"github.com/concordlabs/concord/internal/sink"
	"github.com/concordlabs/concord/internal/taskfile"
	"github.com/concordlabs/concord/internal/tui"
	"github.com/concordlabs/concord/pkg/models"
)

var (
	runTUI         bool
	runWatch       bool
	runDBPath      string
	runConcurrency int
	runMaxRetries  int
	runFault       int
	runTimeout     time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <taskfile>",
	Short: "Run a YAML task graph over the agent pool",
	Long: `Run executes every task in the file, respecting dependencies,
priorities, and per-task consensus requests.

Tasks with a "consensus: f" field are answered by 2f+1 agents and accepted
only when one answer group reaches an f+1 plurality. Everything else runs on
a single agent.

Use --tui for a live run monitor, or --watch to re-run the graph whenever
the file changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runTasks,
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show the live run monitor")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Re-run when the task file changes (headless only)")
	runCmd.Flags().StringVar(&runDBPath, "db", "", "SQLite path for accepted results (overrides store.db_path)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Max tasks in flight (overrides run.concurrency)")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", -1, "Retries per task after the first attempt (overrides run.max_retries)")
	runCmd.Flags().IntVar(&runFault, "fault-tolerance", -1, "Default f for consensus tasks (overrides consensus.default_fault_tolerance)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Consensus round timeout (overrides consensus.timeout)")
}

func runTasks(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		return err
	}
	if runConcurrency > 0 {
		cfg.Run.Concurrency = runConcurrency
	}
	if runMaxRetries >= 0 {
		cfg.Run.MaxRetries = runMaxRetries
	}
	if runFault >= 0 {
		cfg.Consensus.DefaultFaultTolerance = runFault
	}
	if runTimeout > 0 {
		cfg.Consensus.Timeout = runTimeout
	}
	if runDBPath != "" {
		cfg.Store.DBPath = runDBPath
	}
	if runWatch && runTUI {
		return fmt.Errorf("--watch and --tui are mutually exclusive")
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runWatch {
		return watchAndRun(ctx, cfg, logger, path)
	}

	report, err := executeRun(ctx, cfg, logger, path)
	if err != nil {
		return err
	}
	printReport(report)
	if report.Cancelled {
		return fmt.Errorf("run cancelled")
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d task(s) failed", report.Failed)
	}
	return nil
}

// executeRun performs one full run of the task file.
func executeRun(ctx context.Context, cfg *config.Config, logger *zap.Logger, path string) (*orchestrator.RunReport, error) {
	file, err := taskfile.Load(path)
	if err != nil {
		return nil, err
	}
	g, err := graph.Build(file.Tasks)
	if err != nil {
		return nil, err
	}

	pool, err := buildPool(cfg)
	if err != nil {
		return nil, err
	}

	engineOpts := []consensus.EngineOption{
		consensus.WithSimilarityThreshold(cfg.Consensus.SimilarityThreshold),
		consensus.WithLogger(logger.Named("consensus")),
	}
	if cfg.Embedding.BaseURL != "" {
		engineOpts = append(engineOpts, consensus.WithEmbedder(llm.NewEmbedder(llm.EmbedderConfig{
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
		})))
	}

	runID := uuid.New().String()[:8]

	sinks := sink.Fanout{sink.NewMemory()}
	if cfg.Store.DBPath != "" {
		store, err := sink.OpenSQLite(cfg.Store.DBPath, runID)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	orch := orchestrator.New(
		orchestrator.RequiredConfig{Agents: pool},
		orchestrator.WithRunID(runID),
		orchestrator.WithConcurrency(cfg.Run.Concurrency),
		orchestrator.WithMaxRetries(cfg.Run.MaxRetries),
		orchestrator.WithBackoff(cfg.Run.RetryBackoffBase, cfg.Run.RetryBackoffMultiplier),
		orchestrator.WithConsensusTimeout(cfg.Consensus.Timeout),
		orchestrator.WithDefaultFaultTolerance(cfg.Consensus.DefaultFaultTolerance),
		orchestrator.WithPerTaskFaultTolerance(cfg.Consensus.PerTask),
		orchestrator.WithRedrawOnRetry(cfg.Consensus.RedrawOnRetry),
		orchestrator.WithEngine(consensus.NewEngine(engineOpts...)),
		orchestrator.WithSink(sinks),
		orchestrator.WithLogger(logger.Named("orchestrator")),
	)

	if !runTUI {
		return orch.Run(ctx, g)
	}

	// The TUI owns the terminal; the run happens behind it and the report
	// lands on this channel once the orchestrator finishes.
	type result struct {
		report *orchestrator.RunReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := orch.Run(ctx, g)
		done <- result{report, err}
	}()

	if err := tui.Run(orch.Events()); err != nil {
		return nil, err
	}
	res := <-done
	return res.report, res.err
}

// buildPool creates one Claude-backed agent per role. Consensus draws
// rotate through them, so a quorum larger than the pool reuses roles.
func buildPool(cfg *config.Config) (*agent.Pool, error) {
	client, err := llm.NewClient(llm.ClientConfig{
		Model:         cfg.Anthropic.Model,
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, err
	}

	pool := agent.NewPool()
	for _, role := range []agent.Role{agent.RoleAnalyst, agent.RoleCoder, agent.RoleReviewer, agent.RoleAdversary} {
		pool.Add(agent.NewClaudeAgent(role, client, cfg.Consensus.Timeout))
	}
	return pool, nil
}

// watchAndRun executes the task file, then re-runs it on every change until
// interrupted.
func watchAndRun(ctx context.Context, cfg *config.Config, logger *zap.Logger, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory and filter.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	target := filepath.Clean(path)

	for {
		report, err := executeRun(ctx, cfg, logger, path)
		if err != nil {
			// A broken edit should not kill watch mode.
			color.Red("run error: %v", err)
		} else {
			printReport(report)
			if report.Cancelled {
				return fmt.Errorf("run cancelled")
			}
		}

		color.Cyan("watching %s for changes...", path)
		if !waitForChange(ctx, watcher, target) {
			return nil
		}
		// Let the editor finish writing before re-reading.
		time.Sleep(100 * time.Millisecond)
	}
}

// waitForChange blocks until the target file is written or the context ends.
// Returns false when the watch loop should stop.
func waitForChange(ctx context.Context, watcher *fsnotify.Watcher, target string) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-watcher.Events:
			if !ok {
				return false
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				return true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return false
			}
			color.Red("watch error: %v", err)
		}
	}
}

// printReport renders the per-task outcomes and the run summary.
func printReport(report *orchestrator.RunReport) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	dim := color.New(color.Faint)

	fmt.Println()
	for _, task := range report.Tasks {
		switch task.Status {
		case models.TaskStatusSucceeded:
			green.Printf("  ✓ %s", task.ID)
			dim.Printf("  (%d attempt(s))\n", task.Attempts)
		case models.TaskStatusFailed:
			red.Printf("  ✗ %s", task.ID)
			dim.Printf("  [%s] %s\n", task.Reason, task.Detail)
		default:
			dim.Printf("  ? %s (%s)\n", task.ID, task.Status)
		}
	}

	fmt.Println()
	summary := fmt.Sprintf("run %s: %d succeeded, %d failed in %s",
		report.RunID, report.Succeeded, report.Failed, report.Elapsed.Round(time.Millisecond))
	if report.Failed > 0 || report.Cancelled {
		red.Println(summary)
	} else {
		green.Println(summary)
	}
}
