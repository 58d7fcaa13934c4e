package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/badger"
	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

const badgerPrefix = "model/"

// BadgerStore keeps snapshots under "model/<name>" keys.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (b *BadgerStore) Save(ctx context.Context, name string, s *baseline.State) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := b.db.Set(ctx, []byte(badgerPrefix+name), data); err != nil {
		return fmt.Errorf("saving model %q: %w", name, err)
	}
	return nil
}

func (b *BadgerStore) Load(ctx context.Context, name string) (*baseline.State, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := b.db.Get(ctx, []byte(badgerPrefix+name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrModelNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading model %q: %w", name, err)
	}
	return Decode(data)
}

func (b *BadgerStore) List(ctx context.Context) ([]string, error) {
	keys, err := b.db.Keys(ctx, []byte(badgerPrefix))
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = strings.TrimPrefix(string(k), badgerPrefix)
	}
	return names, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
