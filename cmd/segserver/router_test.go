package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/segmenter"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/metrics"
)

func newTestRouter(t *testing.T, model *baseline.Model) (http.Handler, *metrics.Metrics) {
	t.Helper()
	cfg := config.Default()
	cio, err := corpus.New(cfg.Corpus)
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())
	svc, err := segmenter.NewService(model, cio, segmenter.Options{Name: "test", Metrics: m})
	require.NoError(t, err)
	checker := health.NewChecker()
	checker.Register("model", modelCheck(model))
	return newRouter(svc, checker, cfg.Server, m), m
}

func smallModel(t *testing.T) *baseline.Model {
	t.Helper()
	model := baseline.New(baseline.Config{
		Rand:   rand.New(rand.NewSource(1)),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	items := []baseline.CorpusItem{
		{Count: 10, Compound: "walk", Atoms: baseline.Chars("walk")},
		{Count: 10, Compound: "talk", Atoms: baseline.Chars("talk")},
		{Count: 10, Compound: "ed", Atoms: baseline.Chars("ed")},
		{Count: 1, Compound: "walked", Atoms: baseline.Chars("walked")},
	}
	_, err := model.LoadData(context.Background(), baseline.NewSliceStream(items), 1, nil, 0)
	require.NoError(t, err)
	_, _, err = model.TrainBatch(baseline.DefaultParams(), nil, baseline.DefaultFinishThreshold)
	require.NoError(t, err)
	return model
}

func TestRouter_SegmentAndHealth(t *testing.T) {
	router, m := newTestRouter(t, smallModel(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/segment?word=talked", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	var res segmenter.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "talked", res.Word)
	assert.NotEmpty(t, res.Segments)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var report health.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, health.StatusUp, report.Components["model"].Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 3, testutil.CollectAndCount(m.HTTPRequestsTotal))
}

func TestModelCheck_EmptyLexicon(t *testing.T) {
	empty := baseline.New(baseline.Config{})
	got := modelCheck(empty)(context.Background())
	assert.Equal(t, health.StatusDown, got.Status)
}
