// Package config handles configuration loading for Concord.
// It supports XDG config paths, a project-level concord.yaml, and
// CONCORD_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Concord.
type Config struct {
	Run       RunConfig       `mapstructure:"run"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Store     StoreConfig     `mapstructure:"store"`
	Log       LogConfig       `mapstructure:"log"`
}

// RunConfig holds scheduling and retry settings.
type RunConfig struct {
	// Concurrency bounds the number of tasks executing simultaneously.
	Concurrency int `mapstructure:"concurrency"`
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBackoffBase is the delay before the first retry.
	RetryBackoffBase time.Duration `mapstructure:"retry_backoff_base"`
	// RetryBackoffMultiplier scales the delay for each further retry.
	RetryBackoffMultiplier float64 `mapstructure:"retry_backoff_multiplier"`
}

// ConsensusConfig holds voting parameters.
type ConsensusConfig struct {
	// DefaultFaultTolerance is f for tasks that request consensus without
	// their own override. Negative disables consensus by default.
	DefaultFaultTolerance int `mapstructure:"default_fault_tolerance"`
	// PerTask maps task IDs to their f override; -1 forces single-agent
	// execution for that task.
	PerTask map[string]int `mapstructure:"per_task"`
	// Timeout bounds answer collection for one round.
	Timeout time.Duration `mapstructure:"timeout"`
	// SimilarityThreshold is the free-text bucketing boundary.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	// RedrawOnRetry controls whether a retried round draws a fresh agent
	// sample or reuses the previous one.
	RedrawOnRetry bool `mapstructure:"redraw_on_retry"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// EmbeddingConfig holds the OpenAI-compatible embedding endpoint settings.
type EmbeddingConfig struct {
	// BaseURL empty means embeddings are disabled and consensus falls back
	// to lexical similarity.
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// StoreConfig holds result persistence settings.
type StoreConfig struct {
	// DBPath empty means results are kept in memory only.
	DBPath string `mapstructure:"db_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `mapstructure:"level"`
	// Development switches zap to its console encoder.
	Development bool `mapstructure:"development"`
}

// ConfigDir returns the XDG config directory for Concord.
func ConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "concord")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run.concurrency", 4)
	v.SetDefault("run.max_retries", 3)
	v.SetDefault("run.retry_backoff_base", 500*time.Millisecond)
	v.SetDefault("run.retry_backoff_multiplier", 2.0)

	v.SetDefault("consensus.default_fault_tolerance", 1)
	v.SetDefault("consensus.timeout", 120*time.Second)
	v.SetDefault("consensus.similarity_threshold", 0.70)
	v.SetDefault("consensus.redraw_on_retry", true)

	v.SetDefault("anthropic.model", "")
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("log.level", "info")
}

// Load reads configuration from the XDG config dir, then the working
// directory's concord.yaml, then CONCORD_ environment variables, in
// ascending precedence.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path, used by --config and
// tests. Empty path follows the default search order.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CONCORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("concord")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(ConfigDir())
		if err := v.ReadInConfig(); err != nil {
			// Missing config files are fine; defaults and env cover it.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	if c.Run.Concurrency < 1 {
		return fmt.Errorf("run.concurrency must be at least 1, got %d", c.Run.Concurrency)
	}
	if c.Run.MaxRetries < 0 {
		return fmt.Errorf("run.max_retries must not be negative, got %d", c.Run.MaxRetries)
	}
	if c.Run.RetryBackoffMultiplier < 1 {
		return fmt.Errorf("run.retry_backoff_multiplier must be >= 1, got %v", c.Run.RetryBackoffMultiplier)
	}
	if c.Consensus.SimilarityThreshold <= 0 || c.Consensus.SimilarityThreshold > 1 {
		return fmt.Errorf("consensus.similarity_threshold must be in (0, 1], got %v", c.Consensus.SimilarityThreshold)
	}
	for id, f := range c.Consensus.PerTask {
		// -1 is the documented "force single-agent" override; anything
		// lower is a typo.
		if f < -1 {
			return fmt.Errorf("consensus.per_task[%s] must be >= -1, got %d", id, f)
		}
	}
	return nil
}
