// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/valpere/MinwonScrapexter/internal/browser"
	rerrors "github.com/valpere/MinwonScrapexter/internal/errors"
	"github.com/valpere/MinwonScrapexter/internal/scraper"
)

// DotEnvFile is read from the working directory when present
const DotEnvFile = ".env"

// Default returns the built-in configuration
func Default() *Config {
	engine := scraper.DefaultEngineConfig()
	client := scraper.DefaultClientConfig()

	return &Config{
		Crawl: CrawlConfig{
			BaseURL:         engine.BaseURL,
			BatchSize:       engine.BatchSize,
			RepairAttempts:  engine.RepairAttempts,
			SampleSize:      engine.SampleSize,
			CheckpointEvery: engine.CheckpointEvery,
			ProgressEvery:   engine.ProgressEvery,
			PortalDomains:   append([]string(nil), scraper.DefaultPortalDomains...),
			MaxErrorRate:    engine.MaxErrorRate,
		},
		Fetch: FetchConfig{
			Timeout:   client.Timeout,
			RateLimit: client.RateLimit,
			RateBurst: client.RateBurst,
			Attempts:  scraper.DefaultFetchAttempts,
			Retry:     rerrors.DefaultRetryConfig(),
		},
		Browser: *browser.DefaultBrowserConfig(),
		Output: OutputConfig{
			Dir:         ".",
			Formats:     append([]string(nil), KnownFormats...),
			Checkpoints: true,
		},
		Dedupe: DedupeConfig{
			SimilarityThreshold: 0.85,
		},
		Analysis: AnalysisConfig{
			KeywordLimit: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Sinks: SinksConfig{
			SQL: SQLSinkConfig{
				Driver: "sqlite3",
				Table:  "minwon_services",
			},
			Mongo: MongoSinkConfig{
				Database:   "minwon",
				Collection: "services",
				Timeout:    10 * time.Second,
			},
		},
	}
}

// Load reads the configuration: defaults, then the YAML file (if path is
// set), then .env, then MINWON_ environment overrides. The result is
// validated; warnings do not fail the load.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if result := cfg.Validate(); !result.Valid {
		return nil, fmt.Errorf("invalid configuration: %w", result.Err())
	}
	return cfg, nil
}

// Read is Load without validation
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
		if err := cfg.merge(data); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromBytes parses YAML over the defaults without consulting the
// environment
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.merge(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal([]byte(expandEnvironmentVariables(string(data))), c); err != nil {
		return fmt.Errorf("failed to parse YAML configuration: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// loadDotEnv loads path if it exists. Variables already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// SaveToFile writes the configuration as YAML
func SaveToFile(cfg *Config, filename string) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// EngineConfig returns the crawl engine settings
func (c *Config) EngineConfig() scraper.EngineConfig {
	return scraper.EngineConfig{
		BaseURL:         c.Crawl.BaseURL,
		Workers:         c.Crawl.Workers,
		BatchSize:       c.Crawl.BatchSize,
		RepairAttempts:  c.Crawl.RepairAttempts,
		SampleSize:      c.Crawl.SampleSize,
		CheckpointEvery: c.Crawl.CheckpointEvery,
		ProgressEvery:   c.Crawl.ProgressEvery,
		MaxErrorRate:    c.Crawl.MaxErrorRate,
	}
}

// ClientConfig returns the lightweight HTTP strategy settings
func (c *Config) ClientConfig() scraper.ClientConfig {
	return scraper.ClientConfig{
		Timeout:    c.Fetch.Timeout,
		UserAgents: c.Fetch.UserAgents,
		Headers:    c.Fetch.Headers,
		RateLimit:  c.Fetch.RateLimit,
		RateBurst:  c.Fetch.RateBurst,
	}
}

// FetcherConfig returns the fetch orchestration settings
func (c *Config) FetcherConfig() scraper.FetcherConfig {
	return scraper.FetcherConfig{
		Attempts: c.Fetch.Attempts,
		Retry:    c.Fetch.Retry,
	}
}

// RunOptions returns crawl options seeded from the configuration. CLI
// flags are applied on top by the caller.
func (c *Config) RunOptions() scraper.RunOptions {
	return scraper.RunOptions{
		OutputDir:          c.Output.Dir,
		Workers:            c.Crawl.Workers,
		EnableTextAnalysis: c.Analysis.Enabled,
		BatchSize:          c.Crawl.BatchSize,
		DeptCode:           c.Crawl.DeptCode,
		MaxPages:           c.Crawl.MaxPages,
	}
}

// HasFormat reports whether the output format is enabled
func (o OutputConfig) HasFormat(format string) bool {
	for _, f := range o.Formats {
		if f == format {
			return true
		}
	}
	return false
}
