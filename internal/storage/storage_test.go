package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"guesthouse/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestCollectionContract(t *testing.T) {
	ctx := context.Background()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			coll := store.Collection("bookings")
			assert.Equal(t, "bookings", coll.Name())

			t.Run("EmptyRead", func(t *testing.T) {
				docs, err := coll.Read(ctx)
				require.NoError(t, err)
				assert.Empty(t, docs)

				_, err = coll.FindOne(ctx, Match("id", "nope"))
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("AppendAndFind", func(t *testing.T) {
				require.NoError(t, coll.Append(ctx, Document{"id": "a1", "status": "pending", "adults": 2}))
				require.NoError(t, coll.Append(ctx, Document{"id": "b2", "status": "confirmed", "adults": 1}))
				require.NoError(t, coll.Append(ctx, Document{"id": "c3", "status": "pending", "adults": 3}))

				pending, err := coll.Find(ctx, Match("status", "pending"))
				require.NoError(t, err)
				assert.Len(t, pending, 2)

				doc, err := coll.FindOne(ctx, Match("adults", 1))
				require.NoError(t, err)
				assert.Equal(t, "b2", doc["id"])
			})

			t.Run("Update", func(t *testing.T) {
				n, err := coll.Update(ctx, Match("status", "pending"), Patch{"status": "failed", "note": "x"})
				require.NoError(t, err)
				assert.Equal(t, 2, n)

				doc, err := coll.FindOne(ctx, Match("id", "a1"))
				require.NoError(t, err)
				assert.Equal(t, "failed", doc["status"])
				assert.Equal(t, "x", doc["note"])
				assert.EqualValues(t, 2, doc["adults"])

				n, err = coll.Update(ctx, Match("id", "zzz"), Patch{"status": "x"})
				require.NoError(t, err)
				assert.Zero(t, n)
			})

			t.Run("Upsert", func(t *testing.T) {
				created, err := coll.Upsert(ctx, Match("id", "d4"), Document{"id": "d4", "status": "pending"})
				require.NoError(t, err)
				assert.True(t, created)

				created, err = coll.Upsert(ctx, Match("id", "d4"), Document{"status": "confirmed"})
				require.NoError(t, err)
				assert.False(t, created)

				docs, err := coll.Find(ctx, Match("id", "d4"))
				require.NoError(t, err)
				require.Len(t, docs, 1)
				assert.Equal(t, "confirmed", docs[0]["status"])
			})

			t.Run("ReplaceDropsMissingFields", func(t *testing.T) {
				n, err := coll.Replace(ctx, Match("id", "a1"), Document{"id": "a1", "status": "confirmed"})
				require.NoError(t, err)
				assert.Equal(t, 1, n)

				doc, err := coll.FindOne(ctx, Match("id", "a1"))
				require.NoError(t, err)
				assert.Equal(t, "confirmed", doc["status"])
				assert.NotContains(t, doc, "note")
				assert.NotContains(t, doc, "adults")

				n, err = coll.Replace(ctx, Match("id", "zzz"), Document{"id": "zzz"})
				require.NoError(t, err)
				assert.Zero(t, n)
				_, err = coll.FindOne(ctx, Match("id", "zzz"))
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("Delete", func(t *testing.T) {
				n, err := coll.Delete(ctx, Match("id", "b2"))
				require.NoError(t, err)
				assert.Equal(t, 1, n)

				n, err = coll.Delete(ctx, Match("id", "b2"))
				require.NoError(t, err)
				assert.Zero(t, n)
			})

			t.Run("WriteReplacesCollection", func(t *testing.T) {
				require.NoError(t, coll.Write(ctx, []Document{{"id": "only"}}))
				docs, err := coll.Read(ctx)
				require.NoError(t, err)
				require.Len(t, docs, 1)
				assert.Equal(t, "only", docs[0]["id"])
			})

			t.Run("CollectionsAreIsolated", func(t *testing.T) {
				other := store.Collection("contacts")
				docs, err := other.Read(ctx)
				require.NoError(t, err)
				assert.Empty(t, docs)
			})

			assert.NoError(t, store.Ping(ctx))
		})
	}
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	coll := store.Collection("testimonials")
	require.NoError(t, coll.Append(context.Background(), Document{"id": "t1", "rating": 5}))

	data, err := os.ReadFile(filepath.Join(dir, "testimonials.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[\n  {\n")
	assert.Contains(t, string(data), `"rating": 5`)
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bookings.json"), []byte("{not json"), 0o644))

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.Collection("bookings").Read(context.Background())
	assert.Error(t, err)
}

func TestFileStoreConcurrentAppends(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	coll := store.Collection("bookings")
	ctx := context.Background()

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, coll.Append(ctx, Document{"id": fmt.Sprintf("b%d", i)}))
		}(i)
	}
	wg.Wait()

	docs, err := coll.Read(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, writers)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("File", func(t *testing.T) {
		store, err := Open(ctx, config.StorageConfig{Backend: config.BackendFile, DataDir: t.TempDir()}, &logger)
		require.NoError(t, err)
		assert.Equal(t, "file", store.Backend())
	})

	t.Run("SQLite", func(t *testing.T) {
		dir := t.TempDir()
		store, err := Open(ctx, config.StorageConfig{Backend: config.BackendSQLite, DataDir: dir, SQLitePath: filepath.Join(dir, "gh.db")}, &logger)
		require.NoError(t, err)
		defer store.Close()
		assert.Equal(t, "sqlite", store.Backend())
	})

	t.Run("AutoFallsBackToFile", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

		cfg := config.StorageConfig{
			Backend:    config.BackendAuto,
			DataDir:    filepath.Join(dir, "data"),
			SQLitePath: filepath.Join(blocker, "nested", "gh.db"),
		}
		store, err := Open(ctx, cfg, &logger)
		require.NoError(t, err)
		assert.Equal(t, "file", store.Backend())
	})
}

func TestMatch(t *testing.T) {
	doc := Document{"id": "abc", "count": float64(3), "nil": nil}
	assert.True(t, Match("id", "abc")(doc))
	assert.True(t, Match("count", 3)(doc))
	assert.False(t, Match("id", "abd")(doc))
	assert.False(t, Match("missing", "")(doc))
	assert.False(t, Match("nil", "<nil>")(doc))
	assert.True(t, All()(doc))
}
