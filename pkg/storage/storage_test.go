package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard-server/pkg/storage"
)

// adapterUnderTest builds a fresh store for every subtest.
type adapterUnderTest struct {
	name string
	make func(t *testing.T) storage.KeyValueStore
}

func localAdapters() []adapterUnderTest {
	return []adapterUnderTest{
		{
			name: "memory",
			make: func(t *testing.T) storage.KeyValueStore {
				return storage.NewMemoryStore()
			},
		},
		{
			name: "file",
			make: func(t *testing.T) storage.KeyValueStore {
				store, err := storage.NewFileStore(t.TempDir())
				require.NoError(t, err)
				return store
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()

	// Arbitrary nested JSON, including null, booleans and mixed arrays.
	// Numbers are float64 after decoding, as encoding/json defines.
	value := map[string]any{
		"name":  "My New Project",
		"count": float64(3),
		"flags": map[string]any{"archived": false, "smart": true},
		"tags":  []any{"anime", float64(5), nil, true},
		"nested": map[string]any{
			"levels": []any{
				map[string]any{"n": float64(1)},
				map[string]any{"n": float64(2), "empty": nil},
			},
		},
		"none": nil,
	}

	for _, adapter := range localAdapters() {
		t.Run(adapter.name, func(t *testing.T) {
			store := adapter.make(t)
			require.NoError(t, store.Save(ctx, "projects/p1", value))

			var loaded map[string]any
			require.NoError(t, store.Load(ctx, "projects/p1", &loaded))
			assert.Equal(t, value, loaded)
		})
	}
}

func TestLoadMissingKey(t *testing.T) {
	ctx := context.Background()
	for _, adapter := range localAdapters() {
		t.Run(adapter.name, func(t *testing.T) {
			store := adapter.make(t)
			var dest map[string]any
			err := store.Load(ctx, "projects/nope", &dest)
			assert.ErrorIs(t, err, storage.ErrKeyNotFound)
		})
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for _, adapter := range localAdapters() {
		t.Run(adapter.name, func(t *testing.T) {
			store := adapter.make(t)
			require.NoError(t, store.Save(ctx, "projects/p1", "v"))
			require.NoError(t, store.Delete(ctx, "projects/p1"))

			var dest string
			assert.ErrorIs(t, store.Load(ctx, "projects/p1", &dest), storage.ErrKeyNotFound)

			// Deleting an absent key is not an error.
			assert.NoError(t, store.Delete(ctx, "projects/p1"))
		})
	}
}

func TestListByPrefix(t *testing.T) {
	ctx := context.Background()
	for _, adapter := range localAdapters() {
		t.Run(adapter.name, func(t *testing.T) {
			store := adapter.make(t)
			require.NoError(t, store.Save(ctx, "projects/a", 1))
			require.NoError(t, store.Save(ctx, "projects/b", 2))
			require.NoError(t, store.Save(ctx, "stories/x", 3))

			keys, err := store.List(ctx, "projects/")
			require.NoError(t, err)
			assert.Equal(t, []string{"projects/a", "projects/b"}, keys)

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	for _, adapter := range localAdapters() {
		t.Run(adapter.name, func(t *testing.T) {
			store := adapter.make(t)
			require.NoError(t, store.Save(ctx, "projects/a", 1))
			require.NoError(t, store.Save(ctx, "stories/b", 2))
			require.NoError(t, store.Clear(ctx))

			keys, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestSaveReplacesValue(t *testing.T) {
	ctx := context.Background()
	for _, adapter := range localAdapters() {
		t.Run(adapter.name, func(t *testing.T) {
			store := adapter.make(t)
			require.NoError(t, store.Save(ctx, "k", map[string]any{"v": float64(1)}))
			require.NoError(t, store.Save(ctx, "k", map[string]any{"v": float64(2)}))

			var loaded map[string]any
			require.NoError(t, store.Load(ctx, "k", &loaded))
			assert.Equal(t, map[string]any{"v": float64(2)}, loaded)
		})
	}
}

func TestLoadReturnsDecodedCopy(t *testing.T) {
	// Mutating a loaded value must never affect what a later Load returns.
	ctx := context.Background()
	for _, adapter := range localAdapters() {
		t.Run(adapter.name, func(t *testing.T) {
			store := adapter.make(t)
			require.NoError(t, store.Save(ctx, "k", map[string]any{"v": "original"}))

			var first map[string]any
			require.NoError(t, store.Load(ctx, "k", &first))
			first["v"] = "mutated"

			var second map[string]any
			require.NoError(t, store.Load(ctx, "k", &second))
			assert.Equal(t, "original", second["v"])
		})
	}
}
