package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all ardi configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Static knowledge collections
	Knowledge KnowledgeConfig `yaml:"knowledge"`

	// Persistence
	Store StoreConfig `yaml:"store"`

	// External web search collaborator
	Search SearchConfig `yaml:"search"`

	// Confidence synthesis
	Synthesis SynthesisConfig `yaml:"synthesis"`

	// Knowledge generation
	Generation GenerationConfig `yaml:"generation"`

	// Learning system
	Learning LearningConfig `yaml:"learning"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// KnowledgeConfig configures the static knowledge collections.
type KnowledgeConfig struct {
	// Directory containing collection YAML files. Empty = built-ins only.
	CollectionsDir string `yaml:"collections_dir"`

	// Watch the collections dir and hot-reload on change.
	Watch bool `yaml:"watch"`
}

// StoreConfig configures SQLite persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// SearchConfig configures the web search collaborator.
type SearchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	Timeout    string `yaml:"timeout"`
	MaxResults int    `yaml:"max_results"`
	CacheSize  int    `yaml:"cache_size"`
	CacheTTL   string `yaml:"cache_ttl"`
}

// SynthesisConfig configures the confidence synthesizer.
type SynthesisConfig struct {
	// Ring buffer capacity for thinking-process history.
	HistoryCapacity int `yaml:"history_capacity"`

	// Overall confidence above which the single best source is returned.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// Minimum confidence for supplementary excerpts.
	SupplementFloor float64 `yaml:"supplement_floor"`
}

// GenerationConfig configures the knowledge generator.
type GenerationConfig struct {
	// Maximum generated entries kept in the store. 0 = unbounded.
	MaxEntries int `yaml:"max_entries"`

	// Success rate assigned to freshly generated knowledge.
	InitialSuccessRate float64 `yaml:"initial_success_rate"`
}

// LearningConfig configures the learning system.
type LearningConfig struct {
	// Interval for the periodic insight regeneration job.
	InsightInterval string `yaml:"insight_interval"`

	// Defaults for predictions with no pattern data.
	DefaultProbability float64 `yaml:"default_probability"`
	DefaultConfidence  float64 `yaml:"default_confidence"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ardi",
		Version: "2.0.0",

		Knowledge: KnowledgeConfig{
			CollectionsDir: "",
			Watch:          false,
		},

		Store: StoreConfig{
			DatabasePath: "data/ardi.db",
		},

		Search: SearchConfig{
			Enabled:    true,
			BaseURL:    "https://html.duckduckgo.com/html/",
			Timeout:    "10s",
			MaxResults: 5,
			CacheSize:  200,
			CacheTTL:   "5m",
		},

		Synthesis: SynthesisConfig{
			HistoryCapacity:     100,
			ConfidenceThreshold: 0.6,
			SupplementFloor:     0.5,
		},

		Generation: GenerationConfig{
			MaxEntries:         0, // unbounded, matching original behavior
			InitialSuccessRate: 0.7,
		},

		Learning: LearningConfig{
			InsightInterval:    "1h",
			DefaultProbability: 0.7,
			DefaultConfidence:  0.3,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "ardi.log",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing config file means defaults, but env overrides still apply.
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("ARDI_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if url := os.Getenv("ARDI_SEARCH_URL"); url != "" {
		c.Search.BaseURL = url
	}
	if dir := os.Getenv("ARDI_KNOWLEDGE_DIR"); dir != "" {
		c.Knowledge.CollectionsDir = dir
	}
}

// GetSearchTimeout returns the search timeout as a duration.
func (c *Config) GetSearchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetSearchCacheTTL returns the search cache TTL as a duration.
func (c *Config) GetSearchCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Search.CacheTTL)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// GetInsightInterval returns the insight regeneration interval as a duration.
func (c *Config) GetInsightInterval() time.Duration {
	d, err := time.ParseDuration(c.Learning.InsightInterval)
	if err != nil {
		return time.Hour
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store database path not configured")
	}
	if c.Synthesis.HistoryCapacity <= 0 {
		return fmt.Errorf("synthesis history capacity must be positive, got %d", c.Synthesis.HistoryCapacity)
	}
	if c.Synthesis.ConfidenceThreshold < 0 || c.Synthesis.ConfidenceThreshold > 1 {
		return fmt.Errorf("synthesis confidence threshold must be in [0,1], got %g", c.Synthesis.ConfidenceThreshold)
	}
	if c.Generation.InitialSuccessRate < 0 || c.Generation.InitialSuccessRate > 1 {
		return fmt.Errorf("generation initial success rate must be in [0,1], got %g", c.Generation.InitialSuccessRate)
	}
	return nil
}
