package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ScaleLimits bounds chunk sizes at one scale
type ScaleLimits struct {
	MaxTokens     int `yaml:"max_tokens"`
	MinTokens     int `yaml:"min_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
}

// ChunkingConfig holds per-scale chunking limits, keyed by scale name
type ChunkingConfig struct {
	Scales map[string]ScaleLimits `yaml:"scales"`
}

// knownScales are the only scale names the chunker accepts
var knownScales = []string{"document", "section", "paragraph", "sentence"}

// DefaultChunkingConfig returns the built-in per-scale limits
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		Scales: map[string]ScaleLimits{
			"document":  {MaxTokens: 8000, MinTokens: 1, OverlapTokens: 0},
			"section":   {MaxTokens: 2000, MinTokens: 20, OverlapTokens: 0},
			"paragraph": {MaxTokens: 500, MinTokens: 10, OverlapTokens: 20},
			"sentence":  {MaxTokens: 100, MinTokens: 3, OverlapTokens: 5},
		},
	}
}

// LoadChunkingConfig loads per-scale limits from a YAML file, falling back
// to defaults when the path is empty or unreadable. Scales missing from the
// file keep their defaults.
func LoadChunkingConfig(path string) ChunkingConfig {
	cfg := DefaultChunkingConfig()
	if path == "" {
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	var fileCfg ChunkingConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg
	}

	for name, limits := range fileCfg.Scales {
		cfg.Scales[name] = limits
	}
	return cfg
}

// Limits returns the limits for a scale name
func (c ChunkingConfig) Limits(scale string) (ScaleLimits, bool) {
	limits, ok := c.Scales[scale]
	return limits, ok
}

// Validate rejects unknown scale names and inverted token bounds
func (c ChunkingConfig) Validate() error {
	known := make(map[string]bool, len(knownScales))
	for _, name := range knownScales {
		known[name] = true
	}

	for name, limits := range c.Scales {
		if !known[name] {
			return &ConfigError{Field: "CHUNKING_CONFIG_PATH", Message: fmt.Sprintf("unknown scale name %q", name)}
		}
		if limits.MaxTokens <= 0 || limits.MinTokens <= 0 {
			return &ConfigError{Field: "CHUNKING_CONFIG_PATH", Message: fmt.Sprintf("scale %q: token bounds must be positive", name)}
		}
		if limits.MinTokens > limits.MaxTokens {
			return &ConfigError{Field: "CHUNKING_CONFIG_PATH", Message: fmt.Sprintf("scale %q: min_tokens exceeds max_tokens", name)}
		}
		if limits.OverlapTokens < 0 {
			return &ConfigError{Field: "CHUNKING_CONFIG_PATH", Message: fmt.Sprintf("scale %q: overlap_tokens must not be negative", name)}
		}
	}

	for _, name := range knownScales {
		if _, ok := c.Scales[name]; !ok {
			return &ConfigError{Field: "CHUNKING_CONFIG_PATH", Message: fmt.Sprintf("missing limits for scale %q", name)}
		}
	}
	return nil
}
