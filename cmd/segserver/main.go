// Command segserver serves segmentations from a stored Morfessor model over
// HTTP, with an optional Redis result cache.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/segmenter"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/store"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/resilience"
)

func main() {
	configPath := pflag.String("config", "", "path to config file")
	modelName := pflag.String("model", "", "model name in the store (default from config)")
	modelFile := pflag.String("model-file", "", "serve a snapshot file instead of a stored model")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *modelName != "" {
		cfg.Store.ModelName = *modelName
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	state, source, err := loadState(ctx, cfg, *modelFile, m)
	if err != nil {
		slog.Error("failed to load model", "error", err)
		os.Exit(1)
	}
	model, err := baseline.FromState(state, baseline.Config{Logger: logger.WithComponent("baseline")})
	if err != nil {
		slog.Error("invalid model", "source", source, "error", err)
		os.Exit(1)
	}
	slog.Info("model loaded", "source", source, "lexicon_size", model.LexiconSize(), "cost", model.Cost())

	cio, err := corpus.New(cfg.Corpus)
	if err != nil {
		slog.Error("invalid corpus settings", "error", err)
		os.Exit(1)
	}

	var cache *segmenter.Cache
	var redisClient *pkgredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, segmentation caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			cache = segmenter.NewCache(redisClient, segmenter.CacheConfig{
				TTL: cfg.Redis.CacheTTL,
				Breaker: resilience.CircuitBreakerConfig{
					OnStateChange: func(name string, to resilience.State) {
						slog.Warn("cache circuit breaker state changed", "breaker", name, "state", to.String())
					},
				},
			}, m)
			slog.Info("segmentation cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	service, err := segmenter.NewService(model, cio, segmenter.Options{
		Name:     source,
		AddCount: cfg.Viterbi.Smoothing,
		MaxLen:   cfg.Viterbi.MaxLen,
		Cache:    cache,
		Metrics:  m,
	})
	if err != nil {
		slog.Error("failed to create segmentation service", "error", err)
		os.Exit(1)
	}

	checker := health.NewChecker()
	checker.Register("model", modelCheck(model))
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		return health.PingCheck(redisClient.Ping, true)(ctx)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(service, checker, cfg.Server, m),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("segmentation service listening", "addr", server.Addr, "fingerprint", service.Fingerprint())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("segmentation service stopped")
}

// loadState reads the model snapshot from file when given, else from the
// configured store. It returns the state and a name describing its source.
func loadState(ctx context.Context, cfg *config.Config, file string, m *metrics.Metrics) (*baseline.State, string, error) {
	if file != "" {
		s, err := store.LoadFile(file)
		return s, file, err
	}
	st, err := store.Open(ctx, cfg, m)
	if err != nil {
		return nil, "", err
	}
	defer st.Close()
	s, err := st.Load(ctx, cfg.Store.ModelName)
	return s, cfg.Store.ModelName, err
}
