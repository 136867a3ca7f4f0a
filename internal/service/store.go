package service

import (
	"context"
	"time"

	"github.com/akulagin/bankcards/internal/models"
)

// ListQuery describes the optional filters for listing a user's cards.
// Search takes precedence over Status when both are set.
type ListQuery struct {
	Search string
	Status models.CardStatus // empty means no status filter
	Page   models.PageRequest
}

// CardStore is the persistence contract the card services rely on.
// Lookup methods return models.ErrCardNotFound when no card matches.
type CardStore interface {
	Create(ctx context.Context, card *models.Card) error
	FindByID(ctx context.Context, id int64) (*models.Card, error)
	FindByIDAndOwner(ctx context.Context, id int64, username string) (*models.Card, error)
	FindAllByOwner(ctx context.Context, username string, q ListQuery) (*models.CardPage, error)
	FindAll(ctx context.Context, page models.PageRequest) (*models.CardPage, error)
	FindAllByExpiryDateBeforeAndStatus(ctx context.Context, day time.Time, status models.CardStatus) ([]*models.Card, error)
	Save(ctx context.Context, card *models.Card) error
	SaveAll(ctx context.Context, cards []*models.Card) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error

	// InTransaction runs fn against a transaction-scoped view of the store.
	// The transaction commits when fn returns nil and rolls back otherwise,
	// so a multi-record write inside fn is applied entirely or not at all.
	// Card rows read inside fn are locked until the transaction ends.
	InTransaction(ctx context.Context, fn func(tx CardStore) error) error
}

// UserStore is the persistence contract for users. Lookup methods return
// models.ErrUserNotFound when no user matches.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	FindAll(ctx context.Context) ([]*models.User, error)
}

// Notifier delivers card event notifications to owners. Implementations are
// best effort; failures are logged, never propagated to the caller.
type Notifier interface {
	CardStatusChanged(user *models.User, card *models.Card) error
}
