package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// An empty config file in an otherwise empty cwd keeps the loader
	// away from any real ~/.tubechat/tubechat.toml.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tubechat.toml"), nil, 0644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "config", cfg.ConfigDir)
	assert.Equal(t, "youtube_transcripts", cfg.Chat.Collection)
	assert.NotEmpty(t, cfg.Chat.Model)

	// Worked example: 1M tokens at the default indexing rate is $0.15.
	assert.InDelta(t, 0.15, float64(1_000_000)*cfg.Pricing.IndexingRate(), 1e-9)
	assert.InDelta(t, 0.000225,
		1000*cfg.Pricing.ContextRate()+500*cfg.Pricing.OutputRate(), 1e-12)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tubechat.toml")
	content := `
data_dir = "/tmp/tubechat-data"

[chat]
model = "gpt-4o"
collection = "lectures"

[pricing]
indexing_per_1m = 0.30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/tubechat-data", cfg.DataDir)
	assert.Equal(t, "gpt-4o", cfg.Chat.Model)
	assert.Equal(t, "lectures", cfg.Chat.Collection)
	assert.Equal(t, 0.30, cfg.Pricing.IndexingPer1M)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.075, cfg.Pricing.ContextPer1M)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{DataDir: "d", ConfigDir: "c"}
	assert.Equal(t, filepath.Join("d", "costs.json"), cfg.CostsPath())
	assert.Equal(t, filepath.Join("d", "history.json"), cfg.HistoryPath())
	assert.Equal(t, filepath.Join("c", "store_config.json"), cfg.StoreConfigPath())
	assert.Equal(t, filepath.Join("d", "transcripts"), cfg.TranscriptsDir())
}
