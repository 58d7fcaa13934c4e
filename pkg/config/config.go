// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Model, Training, Corpus, Store, Server, Postgres, Redis, Kafka,
// etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Training TrainingConfig `yaml:"training"`
	Viterbi  ViterbiConfig  `yaml:"viterbi"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ModelConfig holds the cost settings of a new model.
type ModelConfig struct {
	CorpusWeight float64  `yaml:"corpusWeight"`
	ForceSplit   []string `yaml:"forceSplit"`
	UseSkips     bool     `yaml:"useSkips"`
	Seed         int64    `yaml:"seed"`
	// AnnotationWeight of zero balances the annotated data automatically.
	AnnotationWeight float64 `yaml:"annotationWeight"`
}

// TrainingConfig selects how the model is trained.
type TrainingConfig struct {
	Mode            string  `yaml:"mode"`
	Algorithm       string  `yaml:"algorithm"`
	Dampening       string  `yaml:"dampening"`
	FreqThreshold   int     `yaml:"freqThreshold"`
	InitSplitProb   float64 `yaml:"initSplitProb"`
	FinishThreshold float64 `yaml:"finishThreshold"`
	EpochInterval   int     `yaml:"epochInterval"`
}

// ViterbiConfig controls the Viterbi optimiser and test-set segmentation.
type ViterbiConfig struct {
	Smoothing float64 `yaml:"smoothing"`
	MaxLen    int     `yaml:"maxLen"`
}

// CorpusConfig controls how corpus files are split into compounds and atoms.
type CorpusConfig struct {
	AtomSeparator         string `yaml:"atomSeparator"`
	CompoundSeparator     string `yaml:"compoundSeparator"`
	ConstructionSeparator string `yaml:"constructionSeparator"`
	CommentStart          string `yaml:"commentStart"`
	Lowercase             bool   `yaml:"lowercase"`
}

// StoreConfig selects where models are persisted.
type StoreConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	ModelName string `yaml:"modelName"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	Workers         int           `yaml:"workers"`
	MaxBatch        int           `yaml:"maxBatch"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// disables the segmentation cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	Topic         string        `yaml:"topic"`
	IdleTimeout   time.Duration `yaml:"idleTimeout"`
	BatchSize     int           `yaml:"batchSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			CorpusWeight: 1.0,
			ForceSplit:   []string{"-"},
		},
		Training: TrainingConfig{
			Mode:            "init+batch",
			Algorithm:       "recursive",
			Dampening:       "none",
			FreqThreshold:   1,
			FinishThreshold: 0.005,
			EpochInterval:   10000,
		},
		Viterbi: ViterbiConfig{
			MaxLen: 30,
		},
		Corpus: CorpusConfig{
			CompoundSeparator:     DefaultCompoundSeparator,
			ConstructionSeparator: " + ",
			CommentStart:          "#",
		},
		Store: StoreConfig{
			Backend:   "file",
			Path:      "models",
			ModelName: "default",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			Workers:         4,
			MaxBatch:        1000,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "morfessor",
			User:            "morfessor",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "morfessor-online",
			Topic:         "morfessor-compounds",
			IdleTimeout:   30 * time.Second,
			BatchSize:     500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// DefaultCompoundSeparator splits text on runs of anything that is not a
// letter, digit, combining mark or underscore.
const DefaultCompoundSeparator = `[^\p{L}\p{N}\p{M}_]+`

var (
	trainingModes = []string{"none", "init", "batch", "init+batch", "online", "online+batch"}
	algorithms    = []string{"recursive", "viterbi"}
	dampenings    = []string{"none", "log", "ones"}
	backends      = []string{"file", "postgres", "badger"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Validate rejects unknown enumeration values and out-of-range settings.
func (c *Config) Validate() error {
	if !oneOf(c.Training.Mode, trainingModes) {
		return fmt.Errorf("%w: training mode %q", apperrors.ErrUnknownMode, c.Training.Mode)
	}
	if !oneOf(c.Training.Algorithm, algorithms) {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownAlgorithm, c.Training.Algorithm)
	}
	if !oneOf(c.Training.Dampening, dampenings) {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownDampening, c.Training.Dampening)
	}
	if !oneOf(c.Store.Backend, backends) {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownBackend, c.Store.Backend)
	}
	if c.Model.CorpusWeight < 0 || c.Model.AnnotationWeight < 0 {
		return fmt.Errorf("%w: weights must not be negative", apperrors.ErrInvalidInput)
	}
	if c.Training.InitSplitProb < 0 || c.Training.InitSplitProb > 1 {
		return fmt.Errorf("%w: initSplitProb %v outside [0, 1]", apperrors.ErrInvalidInput, c.Training.InitSplitProb)
	}
	if c.Viterbi.Smoothing < 0 {
		return fmt.Errorf("%w: viterbi smoothing %v", apperrors.ErrInvalidInput, c.Viterbi.Smoothing)
	}
	if c.Viterbi.MaxLen <= 0 {
		return fmt.Errorf("%w: viterbi maxLen %d", apperrors.ErrInvalidInput, c.Viterbi.MaxLen)
	}
	return nil
}

// applyEnvOverrides reads MS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MS_TRAINING_MODE"); v != "" {
		cfg.Training.Mode = v
	}
	if v := os.Getenv("MS_TRAINING_ALGORITHM"); v != "" {
		cfg.Training.Algorithm = v
	}
	if v := os.Getenv("MS_MODEL_CORPUS_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Model.CorpusWeight = w
		}
	}
	if v := os.Getenv("MS_MODEL_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Model.Seed = seed
		}
	}
	if v := os.Getenv("MS_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("MS_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("MS_STORE_MODEL_NAME"); v != "" {
		cfg.Store.ModelName = v
	}
	if v := os.Getenv("MS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("MS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("MS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("MS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("MS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("MS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("MS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("MS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("MS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MS_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("MS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
			cfg.Metrics.Enabled = true
		}
	}
}
