// internal/browser/types.go
package browser

import (
	"errors"
	"time"
)

// ErrDisabled is returned by a renderer whose config is disabled
var ErrDisabled = errors.New("browser rendering is not enabled")

// BrowserConfig defines headless rendering configuration
type BrowserConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Headless       bool          `yaml:"headless" json:"headless" env:"HEADLESS"`
	ExecPath       string        `yaml:"exec_path,omitempty" json:"exec_path,omitempty" env:"EXEC_PATH"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	WaitSelector   string        `yaml:"wait_selector,omitempty" json:"wait_selector,omitempty"`
	WaitTimeout    time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	SettleDelay    time.Duration `yaml:"settle_delay" json:"settle_delay"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
	MaxConcurrent  int           `yaml:"max_concurrent" json:"max_concurrent" env:"MAX_CONCURRENT"`
}

// DefaultBrowserConfig returns the portal rendering settings
func DefaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		Enabled:        true,
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1366,
		ViewportHeight: 768,
		WaitSelector:   "h2, table, .cont-box, .list_info_txt",
		WaitTimeout:    10 * time.Second,
		SettleDelay:    time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36",
		DisableImages:  true,
		MaxConcurrent:  2,
	}
}

// BrowserStats contains rendering statistics
type BrowserStats struct {
	PagesLoaded      int           `json:"pages_loaded"`
	AverageLoadTime  time.Duration `json:"average_load_time"`
	Errors           int           `json:"errors"`
	TimeoutsOccurred int           `json:"timeouts_occurred"`
}
