package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DataSourceMode selects where windowed market data comes from.
// It is fixed at startup and read-only afterwards.
type DataSourceMode string

const (
	ModeOnline  DataSourceMode = "online"
	ModeOffline DataSourceMode = "offline"
)

func (m DataSourceMode) Valid() bool {
	return m == ModeOnline || m == ModeOffline
}

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	// SnapshotDir holds per-ticker price snapshots used in offline mode.
	SnapshotDir string `json:"snapshot_dir"`

	DataSourceMode DataSourceMode `json:"data_source_mode"`
	RequestTimeout time.Duration  `json:"request_timeout"`

	// Market/Social data API keys
	FinnhubAPIKey   string `json:"finnhub_api_key"`
	SimFinAPIKey    string `json:"simfin_api_key"`
	RedditUserAgent string `json:"reddit_user_agent"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		ResultsDir:   filepath.Join(currentDir, "results"),
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),
		SnapshotDir:  filepath.Join(currentDir, "data", "market_data", "price_data"),

		DataSourceMode: ModeOnline,
		RequestTimeout: 30 * time.Second,

		RedditUserAgent: "TradingAgents/1.0",
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("SNAPSHOT_DIR"); val != "" {
		c.SnapshotDir = val
	}

	if val := os.Getenv("DATA_SOURCE_MODE"); val != "" {
		c.DataSourceMode = DataSourceMode(val)
	}
	if val := os.Getenv("REQUEST_TIMEOUT_SEC"); val != "" {
		if sec, err := strconv.Atoi(val); err == nil && sec > 0 {
			c.RequestTimeout = time.Duration(sec) * time.Second
		}
	}
	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
	if val := os.Getenv("SIMFIN_API_KEY"); val != "" {
		c.SimFinAPIKey = val
	}
	if val := os.Getenv("REDDIT_USER_AGENT"); val != "" {
		c.RedditUserAgent = val
	}
}

// Validate checks fields that would otherwise fail deep inside a fetch.
func (c *Config) Validate() error {
	if !c.DataSourceMode.Valid() {
		return fmt.Errorf("invalid data source mode %q (want %q or %q)",
			c.DataSourceMode, ModeOnline, ModeOffline)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ResultsDir, c.DataDir, c.DataCacheDir, c.SnapshotDir}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
