package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akulagin/bankcards/internal/models"
	"github.com/akulagin/bankcards/internal/repository"
	"github.com/akulagin/bankcards/internal/service"
)

func seedCardWithExpiry(t *testing.T, store *repository.MemoryStore, owner *models.User, number string, status models.CardStatus, expiry time.Time) *models.Card {
	t.Helper()
	card := &models.Card{
		Number:     number,
		OwnerName:  owner.Username,
		UserID:     owner.ID,
		Balance:    decimal.Zero,
		Status:     status,
		ExpiryDate: expiry,
	}
	require.NoError(t, store.Create(context.Background(), card))
	return card
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	t.Run("expires overdue active cards", func(t *testing.T) {
		store := repository.NewMemoryStore()
		alice := seedUser(t, store, "alice")
		overdue := seedCardWithExpiry(t, store, alice, "4000001111111111", models.StatusActive, yesterday)
		current := seedCardWithExpiry(t, store, alice, "4000002222222222", models.StatusActive, tomorrow)
		sweeper := service.NewSweeper(store, store.Users(), nil, testLogger())

		count, err := sweeper.SweepExpired(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		got, err := store.FindByID(ctx, overdue.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusExpired, got.Status)

		got, err = store.FindByID(ctx, current.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, got.Status)
	})

	t.Run("is idempotent for the same day", func(t *testing.T) {
		store := repository.NewMemoryStore()
		alice := seedUser(t, store, "alice")
		card := seedCardWithExpiry(t, store, alice, "4000001111111111", models.StatusActive, yesterday)
		sweeper := service.NewSweeper(store, store.Users(), nil, testLogger())

		count, err := sweeper.SweepExpired(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = sweeper.SweepExpired(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		got, err := store.FindByID(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusExpired, got.Status)
	})

	t.Run("ignores blocked cards even when overdue", func(t *testing.T) {
		store := repository.NewMemoryStore()
		alice := seedUser(t, store, "alice")
		card := seedCardWithExpiry(t, store, alice, "4000001111111111", models.StatusBlocked, yesterday)
		sweeper := service.NewSweeper(store, store.Users(), nil, testLogger())

		count, err := sweeper.SweepExpired(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		got, err := store.FindByID(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusBlocked, got.Status)
	})

	t.Run("a card expiring today is not yet overdue", func(t *testing.T) {
		store := repository.NewMemoryStore()
		alice := seedUser(t, store, "alice")
		seedCardWithExpiry(t, store, alice, "4000001111111111", models.StatusActive, today)
		sweeper := service.NewSweeper(store, store.Users(), nil, testLogger())

		count, err := sweeper.SweepExpired(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("returns zero on an empty store", func(t *testing.T) {
		store := repository.NewMemoryStore()
		sweeper := service.NewSweeper(store, store.Users(), nil, testLogger())

		count, err := sweeper.SweepExpired(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
