package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Run from an empty directory so no concord.yaml is picked up.
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Run.Concurrency != 4 {
		t.Errorf("expected default concurrency 4, got %d", cfg.Run.Concurrency)
	}
	if cfg.Run.MaxRetries != 3 {
		t.Errorf("expected default max_retries 3, got %d", cfg.Run.MaxRetries)
	}
	if cfg.Consensus.DefaultFaultTolerance != 1 {
		t.Errorf("expected default f=1, got %d", cfg.Consensus.DefaultFaultTolerance)
	}
	if cfg.Consensus.Timeout != 120*time.Second {
		t.Errorf("expected default consensus timeout 120s, got %v", cfg.Consensus.Timeout)
	}
	if cfg.Consensus.SimilarityThreshold != 0.70 {
		t.Errorf("expected default similarity threshold 0.70, got %v", cfg.Consensus.SimilarityThreshold)
	}
	if !cfg.Consensus.RedrawOnRetry {
		t.Error("expected redraw_on_retry default true")
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("expected default embedding model nomic-embed-text, got %q", cfg.Embedding.Model)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "concord.yaml")
	content := `
run:
  concurrency: 8
  max_retries: 1
consensus:
  default_fault_tolerance: 2
  similarity_threshold: 0.85
  per_task:
    critical-task: 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Run.Concurrency != 8 {
		t.Errorf("expected concurrency 8, got %d", cfg.Run.Concurrency)
	}
	if cfg.Consensus.DefaultFaultTolerance != 2 {
		t.Errorf("expected f=2, got %d", cfg.Consensus.DefaultFaultTolerance)
	}
	if cfg.Consensus.SimilarityThreshold != 0.85 {
		t.Errorf("expected threshold 0.85, got %v", cfg.Consensus.SimilarityThreshold)
	}
	if got := cfg.Consensus.PerTask["critical-task"]; got != 3 {
		t.Errorf("expected per-task override 3, got %d", got)
	}
	// Unset values keep their defaults.
	if cfg.Consensus.Timeout != 120*time.Second {
		t.Errorf("expected default timeout retained, got %v", cfg.Consensus.Timeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Run.Concurrency = 0 }},
		{"negative retries", func(c *Config) { c.Run.MaxRetries = -1 }},
		{"multiplier below one", func(c *Config) { c.Run.RetryBackoffMultiplier = 0.5 }},
		{"threshold above one", func(c *Config) { c.Consensus.SimilarityThreshold = 1.5 }},
		{"threshold zero", func(c *Config) { c.Consensus.SimilarityThreshold = 0 }},
		{"per-task f below -1", func(c *Config) { c.Consensus.PerTask = map[string]int{"t": -2} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Run: RunConfig{
					Concurrency:            4,
					MaxRetries:             3,
					RetryBackoffBase:       time.Second,
					RetryBackoffMultiplier: 2,
				},
				Consensus: ConsensusConfig{SimilarityThreshold: 0.7},
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadBadFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concord.yaml")
	if err := os.WriteFile(path, []byte("run: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for malformed config")
	}
}
