// cmd/minwonscrapexter/main_test.go
package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/MinwonScrapexter/internal/config"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLIVersion(t *testing.T) {
	version = "test-version"
	buildTime = "2026-10-01"
	gitCommit = "abc123"

	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "test-version")
	assert.Contains(t, out, "2026-10-01")
	assert.Contains(t, out, "abc123")
}

func TestCLIHelp(t *testing.T) {
	code, out, _ := runCLI(t, "--help")
	require.Equal(t, 0, code)
	for _, cmd := range []string{"run", "test", "detail", "departments", "validate", "version", "help"} {
		assert.Contains(t, out, cmd)
	}
}

func TestCLIUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "crawl-everything")
	assert.NotEqual(t, 0, code)
	assert.Contains(t, errOut, "Error:")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	require.NoError(t, os.WriteFile(valid, []byte("crawl:\n  workers: 4\noutput:\n  dir: "+dir+"\n"), 0o644))
	code, out, _ := runCLI(t, "validate", "--config", valid)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "is valid")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("dedupe:\n  similarity_threshold: 2\n"), 0o644))
	code, out, errOut := runCLI(t, "validate", "--config", invalid)
	assert.Equal(t, 2, code)
	assert.Contains(t, out, "dedupe.similarity_threshold")
	assert.Contains(t, errOut, "invalid configuration")
}

func TestValidateMissingFile(t *testing.T) {
	code, _, errOut := runCLI(t, "validate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "configuration file")
}

func TestDepartmentsOffline(t *testing.T) {
	code, out, _ := runCLI(t, "departments", "--offline", "국세")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "국세청")
	assert.Contains(t, out, "1210000")
	assert.NotContains(t, out, "병무청")

	code, _, errOut := runCLI(t, "departments", "--offline", "zzzz")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "no department matches")
}

func TestDetailRequiresURL(t *testing.T) {
	code, _, errOut := runCLI(t, "detail")
	assert.NotEqual(t, 0, code)
	assert.Contains(t, errOut, "requires at least 1 arg")
}

func TestApplyRunFlags(t *testing.T) {
	cfg := config.Default()
	before := *cfg

	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags := &runFlags{}
	bindRunFlags(fs, flags)
	require.NoError(t, fs.Parse([]string{"--workers", "3", "--nlp", "-o", "/tmp/minwon"}))

	applyRunFlags(fs, cfg, flags)
	assert.Equal(t, 3, cfg.Crawl.Workers)
	assert.True(t, cfg.Analysis.Enabled)
	assert.Equal(t, "/tmp/minwon", cfg.Output.Dir)

	// unset flags keep the configured values
	assert.Equal(t, before.Crawl.BatchSize, cfg.Crawl.BatchSize)
	assert.Equal(t, before.Crawl.MaxPages, cfg.Crawl.MaxPages)
	assert.Equal(t, before.Metrics.Addr, cfg.Metrics.Addr)
}

func TestCheckURLs(t *testing.T) {
	assert.NoError(t, checkURLs([]string{"https://www.gov.kr/mw/AA020InfoCappView.do?CappBizCD=1234"}))
	assert.NoError(t, checkURLs(nil))
	assert.Error(t, checkURLs([]string{"ftp://example.com/file"}))
	assert.Error(t, checkURLs([]string{"/mw/AA020InfoCappView.do"}))

	code, _, errOut := runCLI(t, "detail", "javascript:void(0)")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid URL")
}
