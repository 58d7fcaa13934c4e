package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/segmenter"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/middleware"
)

func newRouter(service *segmenter.Service, checker *health.Checker, cfg config.ServerConfig, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	segmenter.NewHandler(service, cfg.Workers, cfg.MaxBatch).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.RequestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)
	return chain
}

func modelCheck(model *baseline.Model) health.Check {
	return func(context.Context) health.ComponentHealth {
		n := model.LexiconSize()
		if n == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "empty lexicon"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d constructions", n)}
	}
}
