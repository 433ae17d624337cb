package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordRiskCacheIncrementsHitsAndMisses(t *testing.T) {
	c := New()
	c.RecordRiskCache(true)
	c.RecordRiskCache(false)
	c.RecordRiskCache(false)

	require.InDelta(t, 1, testutil.ToFloat64(c.RiskCacheHits), 0)
	require.InDelta(t, 2, testutil.ToFloat64(c.RiskCacheMisses), 0)
}

func TestObserveStrategyLabelsOutcome(t *testing.T) {
	c := New()
	c.ObserveStrategy("tot", true, 2*time.Second)
	c.ObserveStrategy("tot", false, time.Second)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `deepreason_strategy_outcomes_total{outcome="success",strategy="tot"} 1`)
	require.Contains(t, body, `deepreason_strategy_outcomes_total{outcome="failure",strategy="tot"} 1`)
}

func TestObserveChunkStoreOpLabelsBackend(t *testing.T) {
	c := New()
	c.ObserveChunkStoreOp("get_by_id", "l1")
	c.ObserveChunkStoreOp("get_by_id", "l1")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	require.Contains(t, rec.Body.String(), `deepreason_chunkstore_operations_total{backend="l1",op="get_by_id"} 2`)
}
