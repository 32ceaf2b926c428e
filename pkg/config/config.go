package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir   string        `mapstructure:"data_dir"`
	ConfigDir string        `mapstructure:"config_dir"`
	Chat      ChatConfig    `mapstructure:"chat"`
	Pricing   PricingConfig `mapstructure:"pricing"`
	Backend   BackendConfig `mapstructure:"backend"`
	Scraper   ScraperConfig `mapstructure:"scraper"`
}

type ChatConfig struct {
	Model      string `mapstructure:"model"`
	Collection string `mapstructure:"collection"`
}

// PricingConfig holds per-1M-token USD rates. Defaults track the
// backend's published File Search pricing; storage and query embedding
// are currently free.
type PricingConfig struct {
	IndexingPer1M float64 `mapstructure:"indexing_per_1m"`
	ContextPer1M  float64 `mapstructure:"context_per_1m"`
	OutputPer1M   float64 `mapstructure:"output_per_1m"`
}

type BackendConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type ScraperConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// IndexingRate returns the per-token indexing rate in USD.
func (p PricingConfig) IndexingRate() float64 { return p.IndexingPer1M / 1_000_000 }

// ContextRate returns the per-token context (input) rate in USD.
func (p PricingConfig) ContextRate() float64 { return p.ContextPer1M / 1_000_000 }

// OutputRate returns the per-token output rate in USD.
func (p PricingConfig) OutputRate() float64 { return p.OutputPer1M / 1_000_000 }

// Load reads configuration from the given file, or falls back to
// ./tubechat.toml then ~/.tubechat/tubechat.toml. A missing config file
// is fine; defaults and TUBECHAT_* environment variables apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		abs, _ := filepath.Abs(configPath)
		v.SetConfigFile(abs)
	} else {
		if _, err := os.Stat("tubechat.toml"); err == nil {
			abs, _ := filepath.Abs("tubechat.toml")
			v.SetConfigFile(abs)
		} else if home, err := os.UserHomeDir(); err == nil {
			v.SetConfigFile(filepath.Join(home, ".tubechat", "tubechat.toml"))
		} else {
			v.SetConfigFile("tubechat.toml")
		}
	}

	setDefaults(v)

	v.SetEnvPrefix("TUBECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if configPath != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		// Default config file is optional.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("config_dir", "config")

	v.SetDefault("chat.model", "gpt-4o-mini")
	v.SetDefault("chat.collection", "youtube_transcripts")

	v.SetDefault("pricing.indexing_per_1m", 0.15)
	v.SetDefault("pricing.context_per_1m", 0.075)
	v.SetDefault("pricing.output_per_1m", 0.30)

	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.api_key", "")

	v.SetDefault("scraper.timeout", 60*time.Second)
	v.SetDefault("scraper.user_agent", "tubechat/1.0")
}

// CostsPath is the ledger file under the data directory.
func (c *Config) CostsPath() string { return filepath.Join(c.DataDir, "costs.json") }

// HistoryPath is the conversation history file under the data directory.
func (c *Config) HistoryPath() string { return filepath.Join(c.DataDir, "history.json") }

// StoreConfigPath is the collection-to-store binding file.
func (c *Config) StoreConfigPath() string {
	return filepath.Join(c.ConfigDir, "store_config.json")
}

// TranscriptsDir is where scraped transcripts are written.
func (c *Config) TranscriptsDir() string { return filepath.Join(c.DataDir, "transcripts") }
