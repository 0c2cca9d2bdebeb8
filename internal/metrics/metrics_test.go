package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("attr", reg)

	m.RecordAttribution("linear_all", "ad", "ok", 120*time.Millisecond)
	m.RecordInputs("linear_all", "ad", 40, 7)
	m.RecordMetadataFallback("ad_set")
	m.RecordCacheResult("miss")
	m.RecordHTTPRequest("/v1/attribution/ads", http.StatusOK)
	m.RecordRateLimitHit("/v1/attribution/ads")
	m.UpdateDBStats(3, 2, 5)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	for _, line := range []string{
		`attr_attribution_requests_total{level="ad",model="linear_all",status="ok"} 1`,
		`attr_attribution_touchpoints_processed_total{model="linear_all"} 40`,
		`attr_attribution_spend_records_processed_total{level="ad"} 7`,
		`attr_attribution_metadata_fallbacks_total{entity="ad_set"} 1`,
		`attr_report_cache_requests_total{result="miss"} 1`,
		`attr_http_requests_total{path="/v1/attribution/ads",status="200"} 1`,
		`attr_rate_limit_hits_total{endpoint="/v1/attribution/ads"} 1`,
		`attr_db_connections{state="total"} 5`,
		`attr_attribution_compute_seconds_count{level="ad"} 1`,
	} {
		assert.Contains(t, string(body), line)
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("attr", prometheus.NewRegistry())
		NewMetrics("attr", prometheus.NewRegistry())
	})
}
