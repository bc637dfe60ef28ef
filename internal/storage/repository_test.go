package storage

import (
	"context"
	"testing"

	"guesthouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			repo := NewRepository[models.Booking](factory(t).Collection(models.CollectionBookings), "id")

			paid := 796.0
			b := &models.Booking{ID: "abc12345", Name: "Kofi", RequiredAmount: 796, Status: models.StatusPending}
			require.NoError(t, repo.Insert(ctx, b))

			got, err := repo.Get(ctx, "abc12345")
			require.NoError(t, err)
			assert.Equal(t, "Kofi", got.Name)
			assert.Equal(t, 796.0, got.RequiredAmount)

			got.Status = models.StatusConfirmed
			got.PaidAmount = &paid
			require.NoError(t, repo.Save(ctx, got.ID, got))

			got, err = repo.Get(ctx, "abc12345")
			require.NoError(t, err)
			assert.Equal(t, models.StatusConfirmed, got.Status)
			require.NotNil(t, got.PaidAmount)
			assert.Equal(t, paid, *got.PaidAmount)

			err = repo.Save(ctx, "missing", got)
			assert.True(t, IsNotFound(err))

			_, err = repo.Get(ctx, "missing")
			assert.True(t, IsNotFound(err))

			all, err := repo.All(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)

			n, err := repo.Remove(ctx, "abc12345")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestRepositorySaveClearsFields(t *testing.T) {
	ctx := context.Background()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			repo := NewRepository[models.Booking](factory(t).Collection(models.CollectionBookings), "id")

			b := &models.Booking{
				ID:            "abc12345",
				Name:          "Kofi",
				Status:        models.StatusPendingPayment,
				PaymentStatus: models.PaymentUnderpaid,
				PaymentNote:   "Underpaid by GHS 100.00",
			}
			require.NoError(t, repo.Insert(ctx, b))

			b.Status = models.StatusConfirmed
			b.PaymentStatus = models.PaymentPaid
			b.PaymentNote = ""
			require.NoError(t, repo.Save(ctx, b.ID, b))

			got, err := repo.Get(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusConfirmed, got.Status)
			assert.Empty(t, got.PaymentNote)

			doc, err := repo.Collection().FindOne(ctx, Match("id", b.ID))
			require.NoError(t, err)
			assert.NotContains(t, doc, "payment_note")
		})
	}
}

func TestRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	repo := NewRepository[models.Payment](store.Collection(models.CollectionPayments), "reference")

	p := &models.Payment{Reference: "ref-1", Status: models.TransactionPending, Amount: 100}
	created, err := repo.Upsert(ctx, p.Reference, p)
	require.NoError(t, err)
	assert.True(t, created)

	p.Status = models.TransactionSuccess
	created, err = repo.Upsert(ctx, p.Reference, p)
	require.NoError(t, err)
	assert.False(t, created)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.TransactionSuccess, all[0].Status)
}
