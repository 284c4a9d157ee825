// internal/monitoring/monitoring_test.go
package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/MinwonScrapexter/internal/scraper"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

var (
	_ scraper.MetricsRecorder = (*Metrics)(nil)
	_ scraper.RunRecorder     = (*Metrics)(nil)
)

type fixedProgress scraper.Progress

func (p fixedProgress) Snapshot() scraper.Progress { return scraper.Progress(p) }

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.FetchAttempt(scraper.StrategyLightweight, "success", 200*time.Millisecond)
	m.FetchAttempt(scraper.StrategyLightweight, "success", 300*time.Millisecond)
	m.FetchAttempt(scraper.StrategyRender, "error", time.Second)
	m.CacheHit("document")
	m.RecordStatus(types.StatusNormal)
	m.RecordStatus(types.StatusRepaired)
	m.RecordStatus(types.StatusNormal)
	m.PageFetched("success")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetchAttempts.WithLabelValues(scraper.StrategyLightweight, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchAttempts.WithLabelValues(scraper.StrategyRender, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits.WithLabelValues("document")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.records.WithLabelValues(string(types.StatusNormal))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pages.WithLabelValues("success")))
}

func TestServer_Routes(t *testing.T) {
	m := NewMetrics()
	m.RecordStatus(types.StatusMissingRequiredFields)
	progress := fixedProgress{Phase: "details", Done: 3, Total: 4}

	srv := httptest.NewServer(NewServer(":0", m, progress, nil).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `minwon_records_total{status="missing_required_fields"} 1`)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health.Status)

	resp, err = http.Get(srv.URL + "/progress")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, "details", got["phase"])
	assert.Equal(t, 75.0, got["percent"])

	resp, err = http.Post(srv.URL+"/healthz", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_NoProgress(t *testing.T) {
	srv := httptest.NewServer(NewServer(":0", NewMetrics(), nil, nil).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/progress")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 100.0, got["percent"])
}
