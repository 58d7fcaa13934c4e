package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS morfessor_models (
		name        TEXT PRIMARY KEY,
		payload     BYTEA NOT NULL,
		nodes       INTEGER NOT NULL,
		saved_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// PostgresStore keeps snapshots in the morfessor_models table.
type PostgresStore struct {
	client *postgres.Client
}

// NewPostgresStore ensures the schema exists.
func NewPostgresStore(ctx context.Context, client *postgres.Client) (*PostgresStore, error) {
	p := &PostgresStore{client: client}
	if err := p.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// EnsureSchema runs the idempotent table migrations.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if err := p.client.Migrate(ctx, schema...); err != nil {
		return fmt.Errorf("creating model schema: %w", err)
	}
	return nil
}

func (p *PostgresStore) Save(ctx context.Context, name string, s *baseline.State) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	return p.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO morfessor_models (name, payload, nodes, saved_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (name) DO UPDATE
			SET payload = EXCLUDED.payload, nodes = EXCLUDED.nodes, saved_at = NOW()`,
			name, data, len(s.Nodes),
		)
		if err != nil {
			return fmt.Errorf("saving model %q: %w", name, err)
		}
		return nil
	})
}

func (p *PostgresStore) Load(ctx context.Context, name string) (*baseline.State, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	var data []byte
	err := p.client.DB.QueryRowContext(ctx,
		`SELECT payload FROM morfessor_models WHERE name = $1`, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrModelNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading model %q: %w", name, err)
	}
	return Decode(data)
}

func (p *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := p.client.DB.QueryContext(ctx, `SELECT name FROM morfessor_models ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning model name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (p *PostgresStore) Close() error {
	return p.client.Close()
}
