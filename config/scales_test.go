package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultChunkingConfig_Valid(t *testing.T) {
	cfg := DefaultChunkingConfig()
	require.NoError(t, cfg.Validate())

	for _, name := range []string{"document", "section", "paragraph", "sentence"} {
		limits, ok := cfg.Limits(name)
		require.True(t, ok, "missing scale %s", name)
		assert.Greater(t, limits.MaxTokens, limits.MinTokens)
	}
}

func TestChunkingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ChunkingConfig)
		wantErr bool
	}{
		{"defaults pass", func(c *ChunkingConfig) {}, false},
		{"unknown scale name", func(c *ChunkingConfig) {
			c.Scales["chapter"] = ScaleLimits{MaxTokens: 100, MinTokens: 10}
		}, true},
		{"inverted bounds", func(c *ChunkingConfig) {
			c.Scales["paragraph"] = ScaleLimits{MaxTokens: 10, MinTokens: 100}
		}, true},
		{"zero max tokens", func(c *ChunkingConfig) {
			c.Scales["sentence"] = ScaleLimits{MaxTokens: 0, MinTokens: 1}
		}, true},
		{"negative overlap", func(c *ChunkingConfig) {
			c.Scales["paragraph"] = ScaleLimits{MaxTokens: 500, MinTokens: 10, OverlapTokens: -1}
		}, true},
		{"missing scale", func(c *ChunkingConfig) {
			delete(c.Scales, "sentence")
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultChunkingConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadChunkingConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scales.yaml")
	content := "scales:\n  paragraph:\n    max_tokens: 300\n    min_tokens: 5\n    overlap_tokens: 10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := LoadChunkingConfig(path)
	require.NoError(t, cfg.Validate())

	paragraph, ok := cfg.Limits("paragraph")
	require.True(t, ok)
	assert.Equal(t, 300, paragraph.MaxTokens)
	assert.Equal(t, 5, paragraph.MinTokens)
	assert.Equal(t, 10, paragraph.OverlapTokens)

	// untouched scales keep their defaults
	sentence, ok := cfg.Limits("sentence")
	require.True(t, ok)
	assert.Equal(t, 100, sentence.MaxTokens)
}

func TestLoadChunkingConfig_MissingFileFallsBack(t *testing.T) {
	cfg := LoadChunkingConfig("/does/not/exist.yaml")
	assert.NoError(t, cfg.Validate())
}
