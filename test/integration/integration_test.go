// Package integration exercises the model store, segmentation cache and
// Kafka corpus feed against real PostgreSQL, Redis and Kafka instances.
// Tests skip when a dependency is unavailable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/segmenter"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/store"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/redis"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// skipIfNoRedis skips the test when Redis is unavailable.
func skipIfNoRedis(t *testing.T) *pkgredis.Client {
	t.Helper()
	client, err := pkgredis.NewClient(context.Background(), config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		DB:       envOrDefaultInt("TEST_REDIS_DB", 15),
		PoolSize: 4,
	})
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "morfseg_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "morfseg"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func trainedModel(t *testing.T) *baseline.Model {
	t.Helper()
	m := baseline.New(baseline.Config{
		Rand:   rand.New(rand.NewSource(11)),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	var items []baseline.CorpusItem
	for w, n := range map[string]int{"play": 15, "work": 15, "ing": 15, "er": 10, "playing": 2, "worker": 2} {
		items = append(items, baseline.CorpusItem{Count: n, Compound: w, Atoms: baseline.Chars(w)})
	}
	_, err := m.LoadData(context.Background(), baseline.NewSliceStream(items), 1, nil, 0)
	require.NoError(t, err)
	_, _, err = m.TrainBatch(baseline.DefaultParams(), nil, baseline.DefaultFinishThreshold)
	require.NoError(t, err)
	return m
}

// ---------------------------------------------------------------------------
// PostgreSQL model store
// ---------------------------------------------------------------------------

func TestPostgresStore_SaveLoadList(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	st, err := store.NewPostgresStore(ctx, db)
	require.NoError(t, err)

	name := fmt.Sprintf("it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		db.DB.Exec(`DELETE FROM morfessor_models WHERE name = $1`, name)
	})

	model := trainedModel(t)
	require.NoError(t, st.Save(ctx, name, model.State()))
	// Saving again replaces the row.
	require.NoError(t, st.Save(ctx, name, model.State()))

	loaded, err := st.Load(ctx, name)
	require.NoError(t, err)
	restored, err := baseline.FromState(loaded, baseline.Config{})
	require.NoError(t, err)
	assert.InDelta(t, model.Cost(), restored.Cost(), 1e-9)

	names, err := st.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, name)

	_, err = st.Load(ctx, name+"-missing")
	assert.ErrorIs(t, err, apperrors.ErrModelNotFound)
}

// ---------------------------------------------------------------------------
// Redis segmentation cache
// ---------------------------------------------------------------------------

func TestRedisCache_HitAfterMiss(t *testing.T) {
	client := skipIfNoRedis(t)
	ctx := context.Background()
	cache := segmenter.NewCache(client, segmenter.CacheConfig{TTL: time.Minute, Timeout: time.Second}, nil)
	_, err := cache.Invalidate(ctx)
	require.NoError(t, err)

	cio, err := corpus.New(config.Default().Corpus)
	require.NoError(t, err)
	svc, err := segmenter.NewService(trainedModel(t), cio, segmenter.Options{Name: "it", Cache: cache})
	require.NoError(t, err)

	first, err := svc.Segment(ctx, "workering")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Segment(ctx, "workering")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Segments, second.Segments)

	n, err := cache.Invalidate(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}

// ---------------------------------------------------------------------------
// Kafka corpus feed
// ---------------------------------------------------------------------------

func TestKafkaFeed_OnlineTraining(t *testing.T) {
	brokers := os.Getenv("TEST_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("skipping integration test: TEST_KAFKA_BROKERS not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := config.Default().Kafka
	cfg.Brokers = strings.Split(brokers, ",")
	cfg.ConsumerGroup = fmt.Sprintf("morfseg-it-%d", time.Now().UnixNano())
	topic := envOrDefault("TEST_KAFKA_TOPIC", "morfseg-it-corpus")

	cio, err := corpus.New(config.Default().Corpus)
	require.NoError(t, err)

	words := []baseline.CorpusItem{cio.Item(3, "reading"), cio.Item(2, "reader"), cio.Item(4, "read")}
	producer := kafka.NewProducer(cfg, topic)
	n, err := corpus.PublishCorpus(ctx, producer, baseline.NewSliceStream(words), 10)
	require.NoError(t, producer.Close())
	require.NoError(t, err)
	require.Equal(t, 3, n)

	consumer := kafka.NewConsumer(cfg, topic)
	defer consumer.Close()
	stream := cio.KafkaStream(consumer, 5*time.Second)

	model := baseline.New(baseline.Config{Seed: 1})
	_, _, err = model.TrainOnline(ctx, stream, nil, 10, baseline.DefaultParams())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(model.Compounds()), 3)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
