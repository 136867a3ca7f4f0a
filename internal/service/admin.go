package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/akulagin/bankcards/internal/models"
	"github.com/akulagin/bankcards/internal/utils"
)

const cardValidityYears = 4

// AdminCardService handles administrative card operations: issuance,
// unrestricted status changes, deletion and a system-wide listing.
type AdminCardService struct {
	cards CardStore
	users UserStore
	log   *logrus.Logger
}

// NewAdminCardService initializes a new admin card service.
func NewAdminCardService(cards CardStore, users UserStore, log *logrus.Logger) *AdminCardService {
	return &AdminCardService{cards: cards, users: users, log: log}
}

// GetAllCards lists every card in the system, paginated.
func (s *AdminCardService) GetAllCards(ctx context.Context, page models.PageRequest) (*models.CardPage, error) {
	return s.cards.FindAll(ctx, page)
}

// CreateCard issues a new card for the given owner. A zero initial balance
// is legal, a negative one is a contract violation. When number is empty a
// fresh card number is generated. The owner's current username is
// snapshotted into the card and not kept in sync afterwards.
func (s *AdminCardService) CreateCard(ctx context.Context, ownerID int64, number string, initialBalance decimal.Decimal) (*models.Card, error) {
	if initialBalance.Sign() < 0 {
		return nil, models.ErrInvalidAmount
	}

	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrOwnerNotFound
		}
		return nil, fmt.Errorf("resolve owner: %w", err)
	}

	if number == "" {
		number, err = utils.GenerateCardNumber("400000", 16)
		if err != nil {
			return nil, fmt.Errorf("generate card number: %w", err)
		}
	}

	card := &models.Card{
		Number:     number,
		OwnerName:  owner.Username,
		UserID:     owner.ID,
		Balance:    initialBalance,
		Status:     models.StatusActive,
		ExpiryDate: time.Now().UTC().Truncate(24 * time.Hour).AddDate(cardValidityYears, 0, 0),
	}

	if err := s.cards.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("persist card: %w", err)
	}

	s.log.Infof("Card %d issued for user %s", card.ID, owner.Username)
	return card, nil
}

// UpdateCardStatus sets a card's status directly. The operation is
// deliberately unconstrained by the lifecycle state machine: an
// administrator may set any status from any state, including reactivating
// an expired card.
func (s *AdminCardService) UpdateCardStatus(ctx context.Context, cardID int64, status models.CardStatus) error {
	// The locked read keeps Save from clobbering a transfer that commits
	// between reading the card and writing it back.
	err := s.cards.InTransaction(ctx, func(tx CardStore) error {
		card, err := tx.FindByID(ctx, cardID)
		if err != nil {
			return err
		}
		card.Status = status
		if err := tx.Save(ctx, card); err != nil {
			return fmt.Errorf("persist status change: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Infof("Card %d status set to %s", cardID, status)
	return nil
}

// DeleteCard removes a card permanently. The only check is existence.
func (s *AdminCardService) DeleteCard(ctx context.Context, cardID int64) error {
	exists, err := s.cards.ExistsByID(ctx, cardID)
	if err != nil {
		return fmt.Errorf("check card existence: %w", err)
	}
	if !exists {
		return models.ErrCardNotFound
	}

	if err := s.cards.Delete(ctx, cardID); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}

	s.log.Infof("Card %d deleted", cardID)
	return nil
}
