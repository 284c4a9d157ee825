// internal/config/validation.go
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/internal/scraper"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (ve ValidationError) Error() string {
	if ve.Value == "" {
		return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
	}
	return fmt.Sprintf("%s: %s (got %q)", ve.Field, ve.Message, ve.Value)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

func (r *ValidationResult) fail(field, value, format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *ValidationResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Err joins the validation errors, or returns nil
func (r *ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Validate checks every section and collects errors and warnings
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]ValidationError, 0),
		Warnings: make([]string, 0),
	}

	c.validateCrawl(result)
	c.validateFetch(result)
	c.validateBrowser(result)
	c.validateOutput(result)
	c.validateDedupe(result)
	c.validateLogging(result)
	c.validateMetrics(result)
	c.validateSinks(result)

	return result
}

func (c *Config) validateCrawl(result *ValidationResult) {
	cr := c.Crawl

	parsed, err := url.Parse(cr.BaseURL)
	switch {
	case cr.BaseURL == "":
		result.fail("crawl.base_url", "", "base URL is required")
	case err != nil:
		result.fail("crawl.base_url", cr.BaseURL, "invalid URL format: %v", err)
	case parsed.Scheme == "" || parsed.Host == "":
		result.fail("crawl.base_url", cr.BaseURL, "URL must include protocol and hostname")
	case parsed.Scheme == "http":
		result.warn("crawl.base_url uses HTTP instead of HTTPS")
	}

	if cr.Workers < 0 {
		result.fail("crawl.workers", fmt.Sprint(cr.Workers), "must not be negative")
	} else if cr.Workers > scraper.MaxWorkers {
		result.warn("crawl.workers %d is capped at %d", cr.Workers, scraper.MaxWorkers)
	}
	if cr.BatchSize < 1 {
		result.fail("crawl.batch_size", fmt.Sprint(cr.BatchSize), "must be at least 1")
	}
	if cr.RepairAttempts < 1 {
		result.fail("crawl.repair_attempts", fmt.Sprint(cr.RepairAttempts), "must be at least 1")
	}
	if cr.SampleSize < 1 {
		result.fail("crawl.sample_size", fmt.Sprint(cr.SampleSize), "must be at least 1")
	}
	if cr.CheckpointEvery < 1 {
		result.fail("crawl.checkpoint_every", fmt.Sprint(cr.CheckpointEvery), "must be at least 1")
	}
	if cr.MaxErrorRate <= 0 || cr.MaxErrorRate > 1 {
		result.fail("crawl.max_error_rate", fmt.Sprint(cr.MaxErrorRate), "must be in (0, 1]")
	}
	if cr.MaxPages < 0 {
		result.fail("crawl.max_pages", fmt.Sprint(cr.MaxPages), "must not be negative")
	}
	if cr.DeptCode != "" && strings.Trim(cr.DeptCode, "0123456789") != "" {
		result.fail("crawl.dept_code", cr.DeptCode, "department code must be numeric")
	}
	if len(cr.PortalDomains) == 0 {
		result.warn("crawl.portal_domains is empty; every detail link is treated as external")
	}
}

func (c *Config) validateFetch(result *ValidationResult) {
	f := c.Fetch
	if f.Timeout <= 0 {
		result.fail("fetch.timeout", f.Timeout.String(), "must be positive")
	}
	if f.RateLimit <= 0 {
		result.fail("fetch.rate_limit", fmt.Sprint(f.RateLimit), "must be positive")
	}
	if f.RateBurst < 1 {
		result.fail("fetch.rate_burst", fmt.Sprint(f.RateBurst), "must be at least 1")
	}
	if f.Attempts < 1 {
		result.fail("fetch.attempts", fmt.Sprint(f.Attempts), "must be at least 1")
	}
	if f.Retry.MaxRetries < 0 {
		result.fail("fetch.retry.max_retries", fmt.Sprint(f.Retry.MaxRetries), "must not be negative")
	}
	if f.Retry.MaxDelay > 0 && f.Retry.BaseDelay > f.Retry.MaxDelay {
		result.warn("fetch.retry.base_delay exceeds max_delay; every wait is capped")
	}
}

func (c *Config) validateBrowser(result *ValidationResult) {
	b := c.Browser
	if !b.Enabled {
		result.warn("browser rendering is disabled; dynamic pages will be extracted from raw HTML")
		return
	}
	if b.Timeout <= 0 {
		result.fail("browser.timeout", b.Timeout.String(), "must be positive")
	}
	if b.MaxConcurrent < 1 {
		result.fail("browser.max_concurrent", fmt.Sprint(b.MaxConcurrent), "must be at least 1")
	}
	if !b.Headless {
		result.warn("browser.headless is off; a visible browser window opens per render")
	}
}

func (c *Config) validateOutput(result *ValidationResult) {
	o := c.Output
	if o.Dir == "" {
		result.fail("output.dir", "", "output directory is required")
	}
	if len(o.Formats) == 0 {
		result.warn("output.formats is empty; only database sinks receive records")
	}
	for i, f := range o.Formats {
		if !contains(KnownFormats, f) {
			result.fail(fmt.Sprintf("output.formats[%d]", i), f, "unknown format, expected one of %s", strings.Join(KnownFormats, ", "))
		}
	}
	for column, rules := range o.Transforms {
		if _, ok := types.FieldByColumn(column); !ok {
			result.fail("output.transforms", column, "unknown field")
			continue
		}
		if err := pipeline.ValidateTransformRules(rules); err != nil {
			result.fail("output.transforms."+column, "", "%v", err)
		}
	}
}

func (c *Config) validateDedupe(result *ValidationResult) {
	t := c.Dedupe.SimilarityThreshold
	if t <= 0 || t > 1 {
		result.fail("dedupe.similarity_threshold", fmt.Sprint(t), "must be in (0, 1]")
	}
}

func (c *Config) validateLogging(result *ValidationResult) {
	l := c.Logging
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		result.fail("logging.level", l.Level, "must be one of: debug, info, warn, error")
	}
	if !contains([]string{"json", "text"}, l.Format) {
		result.fail("logging.format", l.Format, "must be one of: json, text")
	}
	if !contains([]string{"stdout", "stderr"}, l.Output) {
		result.fail("logging.output", l.Output, "must be one of: stdout, stderr")
	}
}

func (c *Config) validateMetrics(result *ValidationResult) {
	if c.Metrics.Addr == "" {
		return
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
		result.fail("metrics.addr", c.Metrics.Addr, "must be host:port")
	}
}

func (c *Config) validateSinks(result *ValidationResult) {
	if s := c.Sinks.SQL; s.Enabled {
		if !contains([]string{"sqlite3", "postgres", "mysql"}, s.Driver) {
			result.fail("sinks.sql.driver", s.Driver, "must be one of: sqlite3, postgres, mysql")
		}
		if s.DSN == "" {
			result.fail("sinks.sql.dsn", "", "DSN is required when the SQL sink is enabled")
		}
		if s.Table == "" {
			result.fail("sinks.sql.table", "", "table name is required")
		}
	}
	if m := c.Sinks.Mongo; m.Enabled {
		if m.URI == "" {
			result.fail("sinks.mongo.uri", "", "URI is required when the Mongo sink is enabled")
		}
		if m.Database == "" || m.Collection == "" {
			result.fail("sinks.mongo", "", "database and collection are required")
		}
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
