// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/internal/scraper"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	result := cfg.Validate()

	assert.True(t, result.Valid, "%v", result.Err())
	assert.Equal(t, scraper.DefaultBaseURL, cfg.Crawl.BaseURL)
	assert.Equal(t, 30, cfg.Crawl.BatchSize)
	assert.Equal(t, KnownFormats, cfg.Output.Formats)
	assert.True(t, cfg.Browser.Enabled)
}

func TestLoadFromBytes(t *testing.T) {
	t.Setenv("MINWON_TEST_DIR", "/data/minwon")

	cfg, err := LoadFromBytes([]byte(`
crawl:
  batch_size: 12
  dept_code: "1352000"
fetch:
  timeout: 20s
  retry:
    max_retries: 5
output:
  dir: ${MINWON_TEST_DIR}
  formats: [csv, jsonl]
dedupe:
  strict: true
`))
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Crawl.BatchSize)
	assert.Equal(t, "1352000", cfg.Crawl.DeptCode)
	assert.Equal(t, 3, cfg.Crawl.RepairAttempts, "unset keys keep defaults")
	assert.Equal(t, 20*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 5, cfg.Fetch.Retry.MaxRetries)
	assert.Equal(t, "/data/minwon", cfg.Output.Dir)
	assert.Equal(t, []string{"csv", "jsonl"}, cfg.Output.Formats)
	assert.True(t, cfg.Output.HasFormat(FormatJSONL))
	assert.False(t, cfg.Output.HasFormat(FormatXLSX))
	assert.True(t, cfg.Dedupe.Strict)
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	_, err := LoadFromBytes([]byte("crawl: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minwon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl:\n  batch_size: 12\n"), 0644))

	t.Setenv("MINWON_CRAWL_BATCH_SIZE", "7")
	t.Setenv("MINWON_OUTPUT_FORMATS", "csv,xlsx")
	t.Setenv("MINWON_BROWSER_ENABLED", "false")
	t.Setenv("MINWON_SINKS_SQL_ENABLED", "true")
	t.Setenv("MINWON_SINKS_SQL_DSN", "file:minwon.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Crawl.BatchSize)
	assert.Equal(t, []string{"csv", "xlsx"}, cfg.Output.Formats)
	assert.False(t, cfg.Browser.Enabled)
	assert.True(t, cfg.Sinks.SQL.Enabled)
	assert.Equal(t, "sqlite3", cfg.Sinks.SQL.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		warning bool
	}{
		{"empty base url", func(c *Config) { c.Crawl.BaseURL = "" }, "crawl.base_url", false},
		{"relative base url", func(c *Config) { c.Crawl.BaseURL = "/search" }, "crawl.base_url", false},
		{"http base url", func(c *Config) { c.Crawl.BaseURL = "http://www.gov.kr/search" }, "", true},
		{"negative workers", func(c *Config) { c.Crawl.Workers = -1 }, "crawl.workers", false},
		{"too many workers", func(c *Config) { c.Crawl.Workers = 50 }, "", true},
		{"zero batch", func(c *Config) { c.Crawl.BatchSize = 0 }, "crawl.batch_size", false},
		{"error rate out of range", func(c *Config) { c.Crawl.MaxErrorRate = 1.5 }, "crawl.max_error_rate", false},
		{"text dept code", func(c *Config) { c.Crawl.DeptCode = "복지부" }, "crawl.dept_code", false},
		{"zero rate", func(c *Config) { c.Fetch.RateLimit = 0 }, "fetch.rate_limit", false},
		{"browser off", func(c *Config) { c.Browser.Enabled = false }, "", true},
		{"browser no slots", func(c *Config) { c.Browser.MaxConcurrent = 0 }, "browser.max_concurrent", false},
		{"unknown format", func(c *Config) { c.Output.Formats = []string{"pdf"} }, "output.formats[0]", false},
		{"unknown transform field", func(c *Config) {
			c.Output.Transforms = map[string]pipeline.TransformList{"없는필드": {{Type: "trim"}}}
		}, "output.transforms", false},
		{"threshold out of range", func(c *Config) { c.Dedupe.SimilarityThreshold = 1.5 }, "dedupe.similarity_threshold", false},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format", false},
		{"bad metrics addr", func(c *Config) { c.Metrics.Addr = "9090" }, "metrics.addr", false},
		{"sql without dsn", func(c *Config) { c.Sinks.SQL.Enabled = true }, "sinks.sql.dsn", false},
		{"sql bad driver", func(c *Config) {
			c.Sinks.SQL.Enabled, c.Sinks.SQL.DSN, c.Sinks.SQL.Driver = true, "x", "oracle"
		}, "sinks.sql.driver", false},
		{"mongo without uri", func(c *Config) { c.Sinks.Mongo.Enabled = true }, "sinks.mongo.uri", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			result := cfg.Validate()

			if tt.warning {
				assert.True(t, result.Valid, "%v", result.Err())
				assert.NotEmpty(t, result.Warnings)
				return
			}
			require.False(t, result.Valid)
			var fields []string
			for _, e := range result.Errors {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
			assert.Error(t, result.Err())
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Crawl.Workers = 3
	cfg.Crawl.MaxPages = 4
	cfg.Crawl.MaxErrorRate = 0.5
	cfg.Analysis.Enabled = true
	cfg.Output.Dir = "out"

	engine := cfg.EngineConfig()
	assert.Equal(t, cfg.Crawl.BaseURL, engine.BaseURL)
	assert.Equal(t, 3, engine.Workers)
	assert.Equal(t, 0.5, engine.MaxErrorRate)

	client := cfg.ClientConfig()
	assert.Equal(t, cfg.Fetch.Timeout, client.Timeout)
	assert.Equal(t, cfg.Fetch.RateLimit, client.RateLimit)

	assert.Equal(t, cfg.Fetch.Attempts, cfg.FetcherConfig().Attempts)

	opts := cfg.RunOptions()
	assert.Equal(t, scraper.RunOptions{
		OutputDir:          "out",
		Workers:            3,
		EnableTextAnalysis: true,
		BatchSize:          30,
		MaxPages:           4,
	}, opts)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Crawl.BatchSize = 17
	path := filepath.Join(t.TempDir(), "nested", "minwon.yaml")

	require.NoError(t, SaveToFile(cfg, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := LoadFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 17, loaded.Crawl.BatchSize)
	assert.Equal(t, cfg.Browser.Timeout, loaded.Browser.Timeout)
}
