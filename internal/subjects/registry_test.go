package subjects_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/classattendance/internal/errs"
	"github.com/classattendance/internal/kv"
	"github.com/classattendance/internal/subjects"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newStore(t *testing.T) kv.Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return kv.NewBadger(db)
}

// failingStore fails every write once failWrites is set.
type failingStore struct {
	kv.Store
	failWrites bool
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	if s.failWrites {
		return errDiskFull
	}
	return s.Store.Set(ctx, key, value)
}

func TestListEmpty(t *testing.T) {
	registry := subjects.NewRegistry(discard, newStore(t))

	list := registry.List(context.Background())
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	registry := subjects.NewRegistry(discard, newStore(t))

	for _, name := range []string{"Math", "  Physics ", "Chemistry"} {
		_, err := registry.Add(ctx, name)
		require.NoError(t, err)
	}

	assert.Equal(t, []subjects.Subject{"Math", "Physics", "Chemistry"}, registry.List(ctx))
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	registry := subjects.NewRegistry(discard, newStore(t))

	_, err := registry.Add(ctx, "   ")
	assert.ErrorIs(t, err, errs.ErrValidation)

	added, err := registry.Add(ctx, "Math")
	require.NoError(t, err)
	assert.Equal(t, subjects.Subject("Math"), added)

	_, err = registry.Add(ctx, "  Math  ")
	assert.ErrorIs(t, err, errs.ErrDuplicate)

	_, err = registry.Add(ctx, "math")
	assert.NoError(t, err, "names are case sensitive")

	assert.Equal(t, []subjects.Subject{"Math", "math"}, registry.List(ctx))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	registry := subjects.NewRegistry(discard, newStore(t))

	for _, name := range []string{"Math", "Physics", "Chemistry"} {
		_, err := registry.Add(ctx, name)
		require.NoError(t, err)
	}

	var removed []subjects.Subject
	registry.OnRemoved(func(_ context.Context, s subjects.Subject) error {
		removed = append(removed, s)
		return nil
	})

	require.NoError(t, registry.Remove(ctx, "Physics"))
	assert.Equal(t, []subjects.Subject{"Math", "Chemistry"}, registry.List(ctx))
	assert.Equal(t, []subjects.Subject{"Physics"}, removed)
	assert.False(t, registry.Contains(ctx, "Physics"))

	assert.ErrorIs(t, registry.Remove(ctx, "Physics"), errs.ErrNotFound)
}

func TestRemoveSucceedsWhenHookFails(t *testing.T) {
	ctx := context.Background()
	registry := subjects.NewRegistry(discard, newStore(t))
	registry.OnRemoved(func(context.Context, subjects.Subject) error {
		return errors.New("ledger unavailable")
	})

	_, err := registry.Add(ctx, "Math")
	require.NoError(t, err)

	require.NoError(t, registry.Remove(ctx, "Math"))
	assert.Empty(t, registry.List(ctx))
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := subjects.NewRegistry(discard, store).Add(ctx, "Math")
	require.NoError(t, err)

	reopened := subjects.NewRegistry(discard, store)
	assert.Equal(t, []subjects.Subject{"Math"}, reopened.List(ctx))

	value, err := store.Get(ctx, subjects.Key)
	require.NoError(t, err)
	assert.JSONEq(t, `["Math"]`, value)
}

func TestCorruptRegistryReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Set(ctx, subjects.Key, "{not json"))

	registry := subjects.NewRegistry(discard, store)
	assert.Empty(t, registry.List(ctx))

	_, err := registry.Add(ctx, "Math")
	require.NoError(t, err)
	assert.Equal(t, []subjects.Subject{"Math"}, registry.List(ctx))
}

func TestWriteFailureIsSurfaced(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: newStore(t)}
	registry := subjects.NewRegistry(discard, store)

	_, err := registry.Add(ctx, "Math")
	require.NoError(t, err)

	store.failWrites = true

	_, err = registry.Add(ctx, "Physics")
	assert.ErrorIs(t, err, errs.ErrStorage)
	assert.ErrorIs(t, err, errDiskFull)

	assert.ErrorIs(t, registry.Remove(ctx, "Math"), errs.ErrStorage)
	assert.Equal(t, []subjects.Subject{"Math"}, registry.List(ctx))
}

func TestEncodeDecode(t *testing.T) {
	in := []subjects.Subject{"Math", "Physics"}

	encoded, err := subjects.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, `["Math","Physics"]`, encoded)

	decoded, err := subjects.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, in, decoded)

	empty, err := subjects.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, `[]`, empty)
}
