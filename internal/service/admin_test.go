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
	"github.com/akulagin/bankcards/internal/utils"
)

func TestCreateCard(t *testing.T) {
	ctx := context.Background()

	t.Run("issues an active card with snapshotted owner name", func(t *testing.T) {
		store := repository.NewMemoryStore()
		alice := seedUser(t, store, "alice")
		svc := service.NewAdminCardService(store, store.Users(), testLogger())

		card, err := svc.CreateCard(ctx, alice.ID, "4000001234567890", decimal.RequireFromString("250.00"))
		require.NoError(t, err)

		assert.NotZero(t, card.ID)
		assert.Equal(t, "alice", card.OwnerName)
		assert.Equal(t, models.StatusActive, card.Status)
		assert.True(t, card.Balance.Equal(decimal.RequireFromString("250.00")))

		wantExpiry := time.Now().UTC().AddDate(4, 0, 0)
		assert.WithinDuration(t, wantExpiry, card.ExpiryDate, 48*time.Hour)

		stored, err := store.FindByID(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, "4000001234567890", stored.Number)
	})

	t.Run("zero initial balance is legal", func(t *testing.T) {
		store := repository.NewMemoryStore()
		alice := seedUser(t, store, "alice")
		svc := service.NewAdminCardService(store, store.Users(), testLogger())

		card, err := svc.CreateCard(ctx, alice.ID, "4000001234567890", decimal.Zero)
		require.NoError(t, err)
		assert.True(t, card.Balance.IsZero())
	})

	t.Run("negative initial balance is rejected", func(t *testing.T) {
		store := repository.NewMemoryStore()
		alice := seedUser(t, store, "alice")
		svc := service.NewAdminCardService(store, store.Users(), testLogger())

		_, err := svc.CreateCard(ctx, alice.ID, "4000001234567890", decimal.RequireFromString("-1.00"))
		require.ErrorIs(t, err, models.ErrInvalidAmount)
	})

	t.Run("unknown owner fails and persists nothing", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := service.NewAdminCardService(store, store.Users(), testLogger())

		_, err := svc.CreateCard(ctx, 42, "4000001234567890", decimal.RequireFromString("10.00"))
		require.ErrorIs(t, err, models.ErrOwnerNotFound)

		page, err := store.FindAll(ctx, models.PageRequest{})
		require.NoError(t, err)
		assert.Zero(t, page.TotalElements)
	})

	t.Run("generates a number when none is given", func(t *testing.T) {
		store := repository.NewMemoryStore()
		alice := seedUser(t, store, "alice")
		svc := service.NewAdminCardService(store, store.Users(), testLogger())

		card, err := svc.CreateCard(ctx, alice.ID, "", decimal.RequireFromString("10.00"))
		require.NoError(t, err)
		assert.Len(t, card.Number, 16)
		assert.True(t, utils.ValidLuhn(card.Number), "generated number %s fails Luhn", card.Number)
	})
}

func TestUpdateCardStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("sets any status from any state", func(t *testing.T) {
		store := repository.NewMemoryStore()
		alice := seedUser(t, store, "alice")
		card := seedCard(t, store, alice, "4000001111111111", "10.00", models.StatusExpired)
		svc := service.NewAdminCardService(store, store.Users(), testLogger())

		// Reactivating an expired card is allowed for administrators.
		require.NoError(t, svc.UpdateCardStatus(ctx, card.ID, models.StatusActive))

		got, err := store.FindByID(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, got.Status)
	})

	t.Run("unknown card fails", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := service.NewAdminCardService(store, store.Users(), testLogger())

		err := svc.UpdateCardStatus(ctx, 42, models.StatusBlocked)
		require.ErrorIs(t, err, models.ErrCardNotFound)
	})

	t.Run("keeps a transfer that commits during the change", func(t *testing.T) {
		store := repository.NewMemoryStore()
		alice := seedUser(t, store, "alice")
		from := seedCard(t, store, alice, "4000001111111111", "1000.00", models.StatusActive)
		to := seedCard(t, store, alice, "4000002222222222", "500.00", models.StatusActive)

		transferSvc := service.NewCardService(store, store.Users(), nil, testLogger())
		contended := &contendedStore{CardStore: store, compete: func() {
			require.NoError(t, transferSvc.Transfer(ctx, "alice", from.ID, to.ID, decimal.RequireFromString("300.00")))
		}}
		svc := service.NewAdminCardService(contended, store.Users(), testLogger())

		require.NoError(t, svc.UpdateCardStatus(ctx, from.ID, models.StatusBlocked))

		got, err := store.FindByID(ctx, from.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusBlocked, got.Status)

		assert.True(t, got.Balance.Equal(decimal.RequireFromString("700.00")))
		sum := got.Balance.Add(cardBalance(t, store, to.ID))
		require.Truef(t, sum.Equal(decimal.RequireFromString("1500.00")), "total balance is %s, want 1500.00", sum)
	})
}

func TestDeleteCard(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes unconditionally", func(t *testing.T) {
		store := repository.NewMemoryStore()
		alice := seedUser(t, store, "alice")
		card := seedCard(t, store, alice, "4000001111111111", "10.00", models.StatusActive)
		svc := service.NewAdminCardService(store, store.Users(), testLogger())

		require.NoError(t, svc.DeleteCard(ctx, card.ID))

		_, err := store.FindByID(ctx, card.ID)
		require.ErrorIs(t, err, models.ErrCardNotFound)
	})

	t.Run("unknown card fails", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := service.NewAdminCardService(store, store.Users(), testLogger())

		err := svc.DeleteCard(ctx, 42)
		require.ErrorIs(t, err, models.ErrCardNotFound)
	})
}

func TestGetAllCards(t *testing.T) {
	ctx := context.Background()

	store := repository.NewMemoryStore()
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	seedCard(t, store, alice, "4000001111111111", "10.00", models.StatusActive)
	seedCard(t, store, alice, "4000002222222222", "20.00", models.StatusActive)
	seedCard(t, store, bob, "4000003333333333", "30.00", models.StatusActive)
	svc := service.NewAdminCardService(store, store.Users(), testLogger())

	page, err := svc.GetAllCards(ctx, models.PageRequest{Page: 0, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page.Content, 2)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)

	page, err = svc.GetAllCards(ctx, models.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page.Content, 1)
}
