// internal/config/types.go
package config

import (
	"time"

	"github.com/valpere/MinwonScrapexter/internal/browser"
	rerrors "github.com/valpere/MinwonScrapexter/internal/errors"
	"github.com/valpere/MinwonScrapexter/internal/pipeline"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "MINWON_"

// Output formats
const (
	FormatCSV      = "csv"
	FormatErrors   = "errors"
	FormatEnhanced = "enhanced"
	FormatJSONL    = "jsonl"
	FormatReport   = "report"
	FormatXLSX     = "xlsx"
)

// KnownFormats lists every output format in write order
var KnownFormats = []string{FormatCSV, FormatErrors, FormatEnhanced, FormatJSONL, FormatReport, FormatXLSX}

// Config is the complete crawler configuration
type Config struct {
	Crawl    CrawlConfig           `yaml:"crawl" json:"crawl" envPrefix:"CRAWL_"`
	Fetch    FetchConfig           `yaml:"fetch" json:"fetch" envPrefix:"FETCH_"`
	Browser  browser.BrowserConfig `yaml:"browser" json:"browser" envPrefix:"BROWSER_"`
	Output   OutputConfig          `yaml:"output" json:"output" envPrefix:"OUTPUT_"`
	Dedupe   DedupeConfig          `yaml:"dedupe" json:"dedupe" envPrefix:"DEDUPE_"`
	Analysis AnalysisConfig        `yaml:"analysis" json:"analysis" envPrefix:"ANALYSIS_"`
	Logging  LoggingConfig         `yaml:"logging" json:"logging" envPrefix:"LOGGING_"`
	Metrics  MetricsConfig         `yaml:"metrics" json:"metrics" envPrefix:"METRICS_"`
	Sinks    SinksConfig           `yaml:"sinks" json:"sinks" envPrefix:"SINKS_"`
}

// CrawlConfig controls listing traversal and record processing
type CrawlConfig struct {
	BaseURL         string   `yaml:"base_url" json:"base_url" env:"BASE_URL"`
	Workers         int      `yaml:"workers" json:"workers" env:"WORKERS"` // 0 = auto
	BatchSize       int      `yaml:"batch_size" json:"batch_size" env:"BATCH_SIZE"`
	RepairAttempts  int      `yaml:"repair_attempts" json:"repair_attempts" env:"REPAIR_ATTEMPTS"`
	SampleSize      int      `yaml:"sample_size" json:"sample_size" env:"SAMPLE_SIZE"`
	CheckpointEvery int      `yaml:"checkpoint_every" json:"checkpoint_every" env:"CHECKPOINT_EVERY"`
	ProgressEvery   int      `yaml:"progress_every" json:"progress_every" env:"PROGRESS_EVERY"`
	DeptCode        string   `yaml:"dept_code,omitempty" json:"dept_code,omitempty" env:"DEPT_CODE"`
	MaxPages        int      `yaml:"max_pages,omitempty" json:"max_pages,omitempty" env:"MAX_PAGES"`
	PortalDomains   []string `yaml:"portal_domains" json:"portal_domains" env:"PORTAL_DOMAINS" envSeparator:","`
	MaxErrorRate    float64  `yaml:"max_error_rate" json:"max_error_rate" env:"MAX_ERROR_RATE"`
}

// FetchConfig controls the lightweight HTTP strategy and fetch retries
type FetchConfig struct {
	Timeout    time.Duration       `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
	RateLimit  float64             `yaml:"rate_limit" json:"rate_limit" env:"RATE_LIMIT"`
	RateBurst  int                 `yaml:"rate_burst" json:"rate_burst" env:"RATE_BURST"`
	Attempts   int                 `yaml:"attempts" json:"attempts" env:"ATTEMPTS"`
	UserAgents []string            `yaml:"user_agents,omitempty" json:"user_agents,omitempty" env:"USER_AGENTS" envSeparator:"|"`
	Headers    map[string]string   `yaml:"headers,omitempty" json:"headers,omitempty"`
	Retry      rerrors.RetryConfig `yaml:"retry" json:"retry"`
}

// OutputConfig selects serializers and standardization rules
type OutputConfig struct {
	Dir         string   `yaml:"dir" json:"dir" env:"DIR"`
	Formats     []string `yaml:"formats" json:"formats" env:"FORMATS" envSeparator:","`
	Checkpoints bool     `yaml:"checkpoints" json:"checkpoints" env:"CHECKPOINTS"`

	// Transforms are extra standardization rules keyed by Korean column name
	Transforms map[string]pipeline.TransformList `yaml:"transforms,omitempty" json:"transforms,omitempty"`
}

// DedupeConfig controls duplicate merging and the similar-name report
type DedupeConfig struct {
	Strict              bool    `yaml:"strict" json:"strict" env:"STRICT"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold" env:"SIMILARITY_THRESHOLD"`
}

// AnalysisConfig enables keyword analysis
type AnalysisConfig struct {
	Enabled      bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
	KeywordLimit int  `yaml:"keyword_limit" json:"keyword_limit" env:"KEYWORD_LIMIT"`
}

// LoggingConfig configures the logrus logger
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`
	Format string `yaml:"format" json:"format" env:"FORMAT"` // json or text
	Output string `yaml:"output" json:"output" env:"OUTPUT"` // stdout or stderr
}

// MetricsConfig configures the monitoring server
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty" env:"ADDR"` // empty = disabled
}

// SinksConfig configures the optional database sinks
type SinksConfig struct {
	SQL   SQLSinkConfig   `yaml:"sql" json:"sql" envPrefix:"SQL_"`
	Mongo MongoSinkConfig `yaml:"mongo" json:"mongo" envPrefix:"MONGO_"`
}

// SQLSinkConfig configures the SQL sink. Driver is sqlite3, postgres or mysql.
type SQLSinkConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Driver  string `yaml:"driver" json:"driver" env:"DRIVER"`
	DSN     string `yaml:"dsn" json:"-" env:"DSN"`
	Table   string `yaml:"table" json:"table" env:"TABLE"`
}

// MongoSinkConfig configures the MongoDB sink
type MongoSinkConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled" env:"ENABLED"`
	URI        string        `yaml:"uri" json:"-" env:"URI"`
	Database   string        `yaml:"database" json:"database" env:"DATABASE"`
	Collection string        `yaml:"collection" json:"collection" env:"COLLECTION"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
}
