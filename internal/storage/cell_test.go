package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type profile struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// failingStorage fails every operation.
type failingStorage struct{}

var errBroken = errors.New("disk on fire")

func (failingStorage) Get(context.Context, string, string) ([]byte, error) { return nil, errBroken }
func (failingStorage) Put(context.Context, string, string, []byte) error { return errBroken }
func (failingStorage) Delete(context.Context, string, string) error { return errBroken }
func (failingStorage) Close() error { return nil }

func TestCellUsesDefaultWhenAbsentAndWritesItBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	cell := NewCell(ctx, store, "7", "profile", profile{Name: "anon"}, zap.NewNop())
	assert.Equal(t, profile{Name: "anon"}, cell.Get())

	raw, err := store.Get(ctx, "7", "profile")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"anon","tags":null}`, string(raw))
}

func TestCellLoadsStoredValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	require.NoError(t, store.Put(ctx, "7", "profile", []byte(`{"name":"Ada","tags":["x"]}`)))

	cell := NewCell(ctx, store, "7", "profile", profile{}, zap.NewNop())
	assert.Equal(t, profile{Name: "Ada", Tags: []string{"x"}}, cell.Get())
}

func TestCellFallsBackOnCorruptValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	require.NoError(t, store.Put(ctx, "7", "profile", []byte(`{not json`)))

	core, logs := observer.New(zapcore.WarnLevel)
	cell := NewCell(ctx, store, "7", "profile", profile{Name: "anon"}, zap.New(core))

	assert.Equal(t, profile{Name: "anon"}, cell.Get())
	require.Equal(t, 1, logs.FilterMessage("Failed to decode stored value, using default").Len())

	raw, err := store.Get(ctx, "7", "profile")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"anon","tags":null}`, string(raw), "default replaces the corrupt entry")
}

func TestCellSwallowsStorageFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cell := NewCell(context.Background(), failingStorage{}, "7", "profile", profile{Name: "anon"}, zap.New(core))

	assert.Equal(t, profile{Name: "anon"}, cell.Get())
	assert.Equal(t, 1, logs.FilterMessage("Failed to read stored value, using default").Len())

	cell.Set(profile{Name: "Ada"})
	assert.Equal(t, profile{Name: "Ada"}, cell.Get(), "in-memory value stays authoritative")
	assert.Equal(t, 1, logs.FilterMessage("Failed to write value").Len())

	cell.Clear()
	assert.Equal(t, profile{Name: "anon"}, cell.Get())
	assert.Equal(t, 1, logs.FilterMessage("Failed to delete stored value").Len())
}

func TestCellUpdatePersists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	cell := NewCell(ctx, store, "7", "profile", profile{}, zap.NewNop())
	got := cell.Update(func(p profile) profile {
		p.Tags = append(p.Tags, "vip")
		return p
	})
	assert.Equal(t, []string{"vip"}, got.Tags)

	reloaded := NewCell(ctx, store, "7", "profile", profile{}, zap.NewNop())
	assert.Equal(t, []string{"vip"}, reloaded.Get().Tags)
}

func TestCellClearRemovesEntryAndCopiesDefault(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	initial := profile{Tags: []string{"a"}}

	cell := NewCell(ctx, store, "7", "profile", initial, zap.NewNop())
	cell.Get().Tags[0] = "mutated"
	cell.Clear()

	assert.Equal(t, []string{"a"}, cell.Get().Tags, "clear restores the original default")
	assert.Equal(t, []string{"a"}, initial.Tags)

	_, err := store.Get(ctx, "7", "profile")
	assert.ErrorIs(t, err, ErrNotFound)
}

type record struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestCellRoundTripThroughSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := NewSQLiteStorage(path, zap.NewNop())
	require.NoError(t, err)

	want := []record{{ID: "1", Title: "Tienda"}, {ID: "2", Title: "Catálogo"}}
	cell := NewCell(ctx, store, "99", "pocket", []record{}, zap.NewNop())
	cell.Set(want)
	require.NoError(t, store.Close())

	store, err = NewSQLiteStorage(path, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	reloaded := NewCell(ctx, store, "99", "pocket", []record{}, zap.NewNop())
	if diff := cmp.Diff(want, reloaded.Get()); diff != "" {
		t.Fatalf("pocket changed after reload (-want +got):\n%s", diff)
	}
}
