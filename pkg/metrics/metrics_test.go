package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveEpoch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveEpoch("batch", 1234.5, 0.8, 42, 100)
	m.ObserveEpoch("batch", 1200.0, 0.8, 40, 100)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TrainingEpochsTotal.WithLabelValues("batch")))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.CompoundsProcessed.WithLabelValues("batch")))
	assert.Equal(t, 1200.0, testutil.ToFloat64(m.ModelCost))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.LexiconSize))
	assert.Equal(t, 0.8, testutil.ToFloat64(m.CorpusWeight))
}

func TestHandlerFor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.CacheHitsTotal.Inc()

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "morfessor_cache_hits_total 1")
}
