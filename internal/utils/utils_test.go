// internal/utils/utils_test.go
package utils

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/MinwonScrapexter/internal/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger, err = NewLogger(config.LoggingConfig{Level: "warn"})
	require.NoError(t, err)
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNewLogger_Invalid(t *testing.T) {
	tests := []config.LoggingConfig{
		{Level: "loud"},
		{Level: "info", Format: "xml"},
		{Level: "info", Output: "syslog"},
	}
	for _, cfg := range tests {
		_, err := NewLogger(cfg)
		assert.Error(t, err, "%+v", cfg)
	}
}

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"보건복지부", "보건복지부"},
		{"국토 교통/부", "국토_교통_부"},
		{`a<b>c:"d"|e?*`, "a_b_c_d_e"},
		{"  ..  ", "output"},
		{"정부24 민원목록.csv", "정부24_민원목록.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanFileName(tt.in), tt.in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.0m", FormatDuration(2*time.Minute))
	assert.Equal(t, "1.5h", FormatDuration(90*time.Minute))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "민원 서비스", TruncateString("민원 서비스", 10))
	assert.Equal(t, "가나...", TruncateString("가나다라마바", 5))
	assert.Equal(t, "가나", TruncateString("가나다라", 2))
}

func TestStamp(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "20250304_050607", Stamp(ts))
}
