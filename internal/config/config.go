// Package config provides configuration loading and structs for the modulator server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/modulator/internal/extract"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Materials MaterialsConfig `yaml:"materials"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
	Storage   StorageConfig   `yaml:"storage"`
	AI        AIConfig        `yaml:"ai"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// MaterialsConfig describes the study-material corpus and how it is chunked.
type MaterialsConfig struct {
	Root                  string   `yaml:"root"`
	Extensions            []string `yaml:"extensions"`
	ChunkSize             int      `yaml:"chunk_size"`
	ChunkOverlap          int      `yaml:"chunk_overlap"`
	MinChunkLength        int      `yaml:"min_chunk_length"`
	Workers               int      `yaml:"workers"`
	ExtractTimeoutSeconds int      `yaml:"extract_timeout_seconds"`
	CacheSize             int      `yaml:"cache_size"`

	// RebuildSchedule is an optional five-field cron spec, e.g. "0 3 * * *".
	RebuildSchedule string `yaml:"rebuild_schedule"`
}

// ExtractTimeout returns the per-file extraction bound as a duration.
func (m *MaterialsConfig) ExtractTimeout() time.Duration {
	return time.Duration(m.ExtractTimeoutSeconds) * time.Second
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	TopK             int `yaml:"top_k"`
	MinKeywordLength int `yaml:"min_keyword_length"`
}

// WatchConfig holds materials directory watch settings.
type WatchConfig struct {
	Enabled        *bool `yaml:"enabled"`
	DebounceMillis int   `yaml:"debounce_ms"`
}

// EnabledOrDefault returns whether watching is enabled; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Debounce returns the debounce window as a duration.
func (w *WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMillis) * time.Millisecond
}

// StorageConfig holds build history settings. PruneSchedule trims the history
// to the KeepBuilds newest builds.
type StorageConfig struct {
	DatabasePath  string `yaml:"database_path"`
	KeepBuilds    int    `yaml:"keep_builds"`
	PruneSchedule string `yaml:"prune_schedule"`
}

// AIConfig selects the text-generation provider.
type AIConfig struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	FallbackModel  string `yaml:"fallback_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request generation bound.
func (a *AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Load reads and parses the config file at path, applies environment overrides,
// defaults and path expansion, then validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Materials.Root = expandPath(cfg.Materials.Root, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv fills values from the environment. MODULATOR_MATERIALS_DIR always wins;
// API keys are only taken from the environment when the file leaves them empty.
func ApplyEnv(cfg *Config) {
	if dir := os.Getenv("MODULATOR_MATERIALS_DIR"); dir != "" {
		cfg.Materials.Root = dir
	}
	if cfg.AI.APIKey == "" {
		switch strings.ToLower(cfg.AI.Provider) {
		case "openai":
			cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

// Validate rejects settings the indexer and retriever cannot work with.
func (c *Config) Validate() error {
	if c.Materials.ChunkSize <= 0 {
		return fmt.Errorf("materials.chunk_size must be positive, got %d", c.Materials.ChunkSize)
	}
	if c.Materials.ChunkOverlap < 0 || c.Materials.ChunkOverlap >= c.Materials.ChunkSize {
		return fmt.Errorf("materials.chunk_overlap must be in [0, %d), got %d", c.Materials.ChunkSize, c.Materials.ChunkOverlap)
	}
	for _, ext := range c.Materials.Extensions {
		if !extract.Supported("." + strings.TrimPrefix(ext, ".")) {
			return fmt.Errorf("materials.extensions: no reader for %q", ext)
		}
	}
	if c.Storage.KeepBuilds < 0 {
		return fmt.Errorf("storage.keep_builds must not be negative, got %d", c.Storage.KeepBuilds)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	switch strings.ToLower(c.AI.Provider) {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unsupported ai.provider %q", c.AI.Provider)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. "~/" is relative to the home directory;
// every other relative path is relative to configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
