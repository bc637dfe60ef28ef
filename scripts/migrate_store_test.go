package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"guesthouse/internal/models"
	"guesthouse/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyCollections(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	source, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, source.Collection(models.CollectionBookings).Append(ctx, storage.Document{"id": "b1"}))
	require.NoError(t, source.Collection(models.CollectionContacts).Append(ctx, storage.Document{"id": "c1"}))

	target, err := storage.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "guesthouse.db"))
	require.NoError(t, err)
	defer target.Close()
	require.NoError(t, target.Collection(models.CollectionContacts).Append(ctx, storage.Document{"id": "existing"}))

	copied, skipped, err := copyCollections(ctx, source, target, false, &logger)
	require.NoError(t, err)
	assert.Equal(t, len(collections)-1, copied)
	assert.Equal(t, 1, skipped)

	contacts, err := target.Collection(models.CollectionContacts).Read(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "existing", contacts[0]["id"])

	_, skipped, err = copyCollections(ctx, source, target, true, &logger)
	require.NoError(t, err)
	assert.Zero(t, skipped)

	contacts, err = target.Collection(models.CollectionContacts).Read(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "c1", contacts[0]["id"])
}

func TestSeedTestimonials(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`testimonials:
  - name: Abena Mensah
    location: Kumasi
    comment: Spotless rooms and a warm welcome every evening.
    rating: 5
  - name: X
    comment: too short
    rating: 9
`), 0o644))

	seeded, err := seedTestimonials(ctx, store, seed, &logger)
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)

	seeded, err = seedTestimonials(ctx, store, seed, &logger)
	require.NoError(t, err)
	assert.Zero(t, seeded)
}
