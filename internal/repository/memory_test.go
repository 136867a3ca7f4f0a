package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akulagin/bankcards/internal/models"
	"github.com/akulagin/bankcards/internal/repository"
	"github.com/akulagin/bankcards/internal/service"
)

func seed(t *testing.T, store *repository.MemoryStore) (*models.User, *models.Card, *models.Card) {
	t.Helper()
	ctx := context.Background()

	user := &models.User{Username: "alice", Role: models.RoleUser}
	require.NoError(t, store.CreateUser(ctx, user))

	first := &models.Card{
		Number:     "4000001111111111",
		OwnerName:  "alice",
		UserID:     user.ID,
		Balance:    decimal.RequireFromString("100.00"),
		Status:     models.StatusActive,
		ExpiryDate: time.Now().UTC().AddDate(4, 0, 0),
	}
	require.NoError(t, store.Create(ctx, first))

	second := &models.Card{
		Number:     "4000002222222222",
		OwnerName:  "alice",
		UserID:     user.ID,
		Balance:    decimal.RequireFromString("50.00"),
		Status:     models.StatusBlocked,
		ExpiryDate: time.Now().UTC().AddDate(4, 0, 0),
	}
	require.NoError(t, store.Create(ctx, second))

	return user, first, second
}

func TestMemoryStoreTransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	_, first, second := seed(t, store)

	boom := errors.New("boom")
	err := store.InTransaction(ctx, func(tx service.CardStore) error {
		card, err := tx.FindByID(ctx, first.ID)
		if err != nil {
			return err
		}
		card.Balance = decimal.Zero
		if err := tx.Save(ctx, card); err != nil {
			return err
		}
		other, err := tx.FindByID(ctx, second.ID)
		if err != nil {
			return err
		}
		other.Status = models.StatusExpired
		if err := tx.Save(ctx, other); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Neither write survives the rollback.
	got, err := store.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("100.00")))

	got, err = store.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBlocked, got.Status)
}

func TestMemoryStoreTransactionCommit(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	_, first, _ := seed(t, store)

	err := store.InTransaction(ctx, func(tx service.CardStore) error {
		card, err := tx.FindByID(ctx, first.ID)
		if err != nil {
			return err
		}
		card.Balance = decimal.RequireFromString("77.00")
		return tx.Save(ctx, card)
	})
	require.NoError(t, err)

	got, err := store.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("77.00")))
}

func TestMemoryStoreCopyOnRead(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	_, first, _ := seed(t, store)

	card, err := store.FindByID(ctx, first.ID)
	require.NoError(t, err)
	card.Balance = decimal.Zero // mutating the copy must not touch the store

	got, err := store.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("100.00")))
}

func TestMemoryStoreOwnership(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	_, first, _ := seed(t, store)

	other := &models.User{Username: "mallory", Role: models.RoleUser}
	require.NoError(t, store.CreateUser(ctx, other))

	_, err := store.FindByIDAndOwner(ctx, first.ID, "alice")
	require.NoError(t, err)

	_, err = store.FindByIDAndOwner(ctx, first.ID, "mallory")
	require.ErrorIs(t, err, models.ErrCardNotFound)

	_, err = store.FindByIDAndOwner(ctx, 9999, "alice")
	require.ErrorIs(t, err, models.ErrCardNotFound)
}

func TestMemoryStoreDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	require.NoError(t, store.CreateUser(ctx, &models.User{Username: "alice", Role: models.RoleUser}))

	err := store.CreateUser(ctx, &models.User{Username: "alice", Role: models.RoleAdmin})
	require.ErrorIs(t, err, models.ErrUserExists)
}

func TestMemoryStoreSaveUnknownCard(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	err := store.Save(ctx, &models.Card{ID: 42, Balance: decimal.Zero})
	require.ErrorIs(t, err, models.ErrCardNotFound)
}

func TestMemoryStorePagination(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	user := &models.User{Username: "alice", Role: models.RoleUser}
	require.NoError(t, store.CreateUser(ctx, user))
	for i := 0; i < 5; i++ {
		card := &models.Card{
			Number:     "4000001111111111",
			OwnerName:  "alice",
			UserID:     user.ID,
			Balance:    decimal.Zero,
			Status:     models.StatusActive,
			ExpiryDate: time.Now().UTC().AddDate(4, 0, 0),
		}
		require.NoError(t, store.Create(ctx, card))
	}

	page, err := store.FindAll(ctx, models.PageRequest{Page: 0, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page.Content, 2)
	assert.Equal(t, int64(5), page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)

	page, err = store.FindAll(ctx, models.PageRequest{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page.Content, 1)

	// Past the last page: empty content, same totals.
	page, err = store.FindAll(ctx, models.PageRequest{Page: 9, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Equal(t, int64(5), page.TotalElements)
}

func TestMemoryStoreExpirySelection(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	today := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	user := &models.User{Username: "alice", Role: models.RoleUser}
	require.NoError(t, store.CreateUser(ctx, user))

	overdue := &models.Card{
		Number: "4000001111111111", OwnerName: "alice", UserID: user.ID,
		Balance: decimal.Zero, Status: models.StatusActive,
		ExpiryDate: today.AddDate(0, 0, -1),
	}
	require.NoError(t, store.Create(ctx, overdue))

	fresh := &models.Card{
		Number: "4000002222222222", OwnerName: "alice", UserID: user.ID,
		Balance: decimal.Zero, Status: models.StatusActive,
		ExpiryDate: today.AddDate(1, 0, 0),
	}
	require.NoError(t, store.Create(ctx, fresh))

	cards, err := store.FindAllByExpiryDateBeforeAndStatus(ctx, today, models.StatusActive)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, overdue.ID, cards[0].ID)
}
