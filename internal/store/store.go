package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/badger"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/resilience"
)

// Store saves and loads named model snapshots. Load returns an error
// wrapping errors.ErrModelNotFound for unknown names.
type Store interface {
	Save(ctx context.Context, name string, s *baseline.State) error
	Load(ctx context.Context, name string) (*baseline.State, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}

var validName = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]*$`)

// ValidateName rejects model names that are empty or could escape a
// directory or key prefix.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: invalid model name %q", apperrors.ErrInvalidInput, name)
	}
	return nil
}

// Open connects the backend selected in cfg.Store. Connecting to PostgreSQL
// is retried; m may be nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Store.Backend {
	case "file":
		s, err = NewFileStore(cfg.Store.Path)
	case "badger":
		bcfg := badger.DefaultConfig(cfg.Store.Path)
		bcfg.Logger = slog.Default().With("component", "badger")
		var db *badger.DB
		if db, err = badger.Open(bcfg); err == nil {
			s = NewBadgerStore(db)
		}
	case "postgres":
		var client *postgres.Client
		err = resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 500 * time.Millisecond}, func(ctx context.Context) error {
			var cerr error
			client, cerr = postgres.New(ctx, cfg.Postgres)
			var pqErr *pq.Error
			if errors.As(cerr, &pqErr) {
				// Rejected by the server, not transient.
				return resilience.Permanent(cerr)
			}
			return cerr
		})
		if err == nil {
			var ps *PostgresStore
			if ps, err = NewPostgresStore(ctx, client); err == nil {
				s = ps
			} else {
				client.Close()
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownBackend, cfg.Store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}
	if m == nil {
		return s, nil
	}
	return &instrumented{Store: s, backend: cfg.Store.Backend, metrics: m}, nil
}

type instrumented struct {
	Store
	backend string
	metrics *metrics.Metrics
}

func (i *instrumented) Save(ctx context.Context, name string, s *baseline.State) error {
	err := i.Store.Save(ctx, name, s)
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.metrics.ModelSavesTotal.WithLabelValues(i.backend, status).Inc()
	return err
}
