package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemory_GetSetKeys(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, []byte("model/a"), []byte("1")))
	require.NoError(t, db.Set(ctx, []byte("model/b"), []byte("2")))
	require.NoError(t, db.Set(ctx, []byte("other/c"), []byte("3")))

	v, err := db.Get(ctx, []byte("model/a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	keys, err := db.Keys(ctx, []byte("model/"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("model/a"), []byte("model/b")}, keys)

	_, err = db.Get(ctx, []byte("model/z"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestPersistent_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, []byte("k"), []byte("v")))
	require.NoError(t, db.Close())

	db, err = Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer db.Close()
	v, err := db.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, db.Set(ctx, []byte("k"), []byte("v")), context.Canceled)
}
