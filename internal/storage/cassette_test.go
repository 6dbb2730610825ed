package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixtape/fixtape/internal/archive"
	"github.com/fixtape/fixtape/internal/core"
	"github.com/fixtape/fixtape/internal/storage"
	"github.com/fixtape/fixtape/internal/storage/backend"
)

func newBackend(t *testing.T) *backend.LocalFS {
	t.Helper()
	b, err := backend.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	return b
}

func TestOpen_ModeFromExistence(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	c, err := storage.Open(ctx, b, "test1.yaml")
	require.NoError(t, err)
	assert.True(t, c.IsWriteMode(), "missing cassette should open in write mode")

	require.NoError(t, c.Store([]core.Key{core.S("X"), core.S("a")}, []byte("v")))
	require.NoError(t, c.Close(ctx))

	c2, err := storage.Open(ctx, b, "test1.yaml")
	require.NoError(t, err)
	assert.False(t, c2.IsWriteMode(), "existing cassette should open in read mode")
}

func TestCassette_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	keys := []core.Key{core.S("X"), core.S("file"), core.S("tar"), core.S("StoreFiles"), core.S("test1.yaml"), core.I(0)}
	blob := []byte{0x1f, 0x8b, 0x00, 0xff}

	c, err := storage.Open(ctx, b, "test1.yaml")
	require.NoError(t, err)
	require.NoError(t, c.Store(keys, blob))
	require.NoError(t, c.Flush(ctx))

	c2, err := storage.Open(ctx, b, "test1.yaml")
	require.NoError(t, err)

	got, err := c2.Read(keys)
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestCassette_ReadPopsInOrder(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	keys := []core.Key{core.S("X"), core.S("output"), core.S("FunctionOutput"), core.S("t.yaml")}

	c, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)
	require.NoError(t, c.StoreValue(keys, "first"))
	require.NoError(t, c.StoreValue(keys, "second"))
	require.NoError(t, c.Flush(ctx))

	c2, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)

	v, err := c2.ReadValue(keys)
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, err = c2.ReadValue(keys)
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	_, err = c2.ReadValue(keys)
	assert.ErrorIs(t, err, core.ErrKeyNotFound, "exhausted list must report a miss")
}

func TestCassette_ReadMissingKeys(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	c, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)
	require.NoError(t, c.StoreValue([]core.Key{core.S("present")}, "v"))
	require.NoError(t, c.Close(ctx))

	c2, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)

	_, err = c2.Read([]core.Key{core.S("X"), core.S("file"), core.S("tar"), core.S("absent")})
	assert.ErrorIs(t, err, core.ErrKeyNotFound)
}

func TestCassette_ModeGates(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	w, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)

	_, err = w.Read([]core.Key{core.S("k")})
	assert.ErrorIs(t, err, core.ErrWriteOnly, "read in write mode must fail")

	require.NoError(t, w.Store([]core.Key{core.S("k")}, []byte("v")))
	require.NoError(t, w.Close(ctx))

	r, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)
	err = r.Store([]core.Key{core.S("k")}, []byte("v"))
	assert.ErrorIs(t, err, core.ErrReadOnly, "store in read mode must fail")
}

func TestCassette_Metadata(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	c, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)
	require.NoError(t, c.StoreValue([]core.Key{core.S("k")}, "v"))
	require.NoError(t, c.Close(ctx))

	c2, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)

	meta := c2.Meta()
	assert.Equal(t, storage.FormatVersion, meta.Version)
	assert.NotEmpty(t, meta.SessionID)
	assert.Equal(t, archive.Compression, meta.Compression)
	assert.False(t, meta.CreatedAt.IsZero())
}

func TestCassette_HeterogeneousKeys(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	c, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)

	// Position 0 and the literal name "0" are the same address by
	// design: the canonical form is what the document stores.
	require.NoError(t, c.StoreValue([]core.Key{core.S("args"), core.I(0)}, "positional"))
	require.NoError(t, c.StoreValue([]core.Key{core.S("args"), core.S("target_dir")}, "named"))
	require.NoError(t, c.Close(ctx))

	c2, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)

	v, err := c2.ReadValue([]core.Key{core.S("args"), core.S("0")})
	require.NoError(t, err)
	assert.Equal(t, "positional", v)

	v, err = c2.ReadValue([]core.Key{core.S("args"), core.S("target_dir")})
	require.NoError(t, err)
	assert.Equal(t, "named", v)
}

func TestCassette_PurgeAndEntries(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	c, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)
	require.NoError(t, c.Store([]core.Key{core.S("X"), core.S("file"), core.S("tar"), core.S("a")}, []byte("1")))
	require.NoError(t, c.Store([]core.Key{core.S("X"), core.S("file"), core.S("tar"), core.S("b")}, []byte("22")))
	require.NoError(t, c.StoreValue([]core.Key{core.S("X"), core.S("output"), core.S("o")}, "out"))

	entries := c.Entries()
	require.Len(t, entries, 3)

	n, err := c.Purge([]core.Key{core.S("X"), core.S("file"), core.S("tar")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, c.Entries(), 1, "only the output entry should survive")

	n, err = c.Purge([]core.Key{core.S("X"), core.S("file"), core.S("tar")})
	require.NoError(t, err)
	assert.Zero(t, n, "purging an absent subtree is a no-op")
}

func TestOpen_CorruptCassette(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	require.NoError(t, b.Write(ctx, "bad.yaml", []byte("\tnot: yaml: at: all:")))

	_, err := storage.Open(ctx, b, "bad.yaml")
	assert.ErrorIs(t, err, core.ErrCorrupt)
}

func TestCassette_FlushOnlyWhenDirty(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	c, err := storage.Open(ctx, b, "t.yaml")
	require.NoError(t, err)

	// Nothing stored: nothing must be written, so a later Open still
	// sees a missing cassette and enters write mode.
	require.NoError(t, c.Flush(ctx))
	exists, err := b.Exists(ctx, "t.yaml")
	require.NoError(t, err)
	assert.False(t, exists)
}
