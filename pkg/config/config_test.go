package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "init+batch", cfg.Training.Mode)
	assert.Equal(t, "recursive", cfg.Training.Algorithm)
	assert.Equal(t, []string{"-"}, cfg.Model.ForceSplit)
	assert.Equal(t, 30, cfg.Viterbi.MaxLen)
	assert.Equal(t, DefaultCompoundSeparator, cfg.Corpus.CompoundSeparator)
	assert.Equal(t, "file", cfg.Store.Backend)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
training:
  mode: online
  algorithm: viterbi
  epochInterval: 500
viterbi:
  smoothing: 1.5
store:
  backend: badger
  path: /tmp/models
redis:
  cacheTTL: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("MS_STORE_MODEL_NAME", "finnish")
	t.Setenv("MS_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("MS_MODEL_CORPUS_WEIGHT", "0.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "online", cfg.Training.Mode)
	assert.Equal(t, "viterbi", cfg.Training.Algorithm)
	assert.Equal(t, 500, cfg.Training.EpochInterval)
	assert.Equal(t, 1.5, cfg.Viterbi.Smoothing)
	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "finnish", cfg.Store.ModelName)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 0.5, cfg.Model.CorpusWeight)
	// Untouched sections keep their defaults.
	assert.Equal(t, 0.005, cfg.Training.FinishThreshold)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"mode", func(c *Config) { c.Training.Mode = "sideways" }, apperrors.ErrUnknownMode},
		{"algorithm", func(c *Config) { c.Training.Algorithm = "greedy" }, apperrors.ErrUnknownAlgorithm},
		{"dampening", func(c *Config) { c.Training.Dampening = "sqrt" }, apperrors.ErrUnknownDampening},
		{"backend", func(c *Config) { c.Store.Backend = "s3" }, apperrors.ErrUnknownBackend},
		{"weight", func(c *Config) { c.Model.CorpusWeight = -1 }, apperrors.ErrInvalidInput},
		{"split prob", func(c *Config) { c.Training.InitSplitProb = 2 }, apperrors.ErrInvalidInput},
		{"max len", func(c *Config) { c.Viterbi.MaxLen = 0 }, apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := Default().Postgres
	assert.Equal(t, "host=localhost port=5432 user=morfessor password=localdev dbname=morfessor sslmode=disable", p.DSN())
}
