package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/akulagin/bankcards/internal/models"
)

// CardService handles the operations a user may perform on their own cards.
type CardService struct {
	cards    CardStore
	users    UserStore
	notifier Notifier
	log      *logrus.Logger
}

// NewCardService initializes a new card service. notifier may be nil.
func NewCardService(cards CardStore, users UserStore, notifier Notifier, log *logrus.Logger) *CardService {
	return &CardService{cards: cards, users: users, notifier: notifier, log: log}
}

// GetMyCards lists the caller's cards. A non-empty search matches the owner
// name case-insensitively or the card number as a substring; otherwise an
// exact status filter applies when given; otherwise all cards are returned.
func (s *CardService) GetMyCards(ctx context.Context, username string, q ListQuery) (*models.CardPage, error) {
	return s.cards.FindAllByOwner(ctx, username, q)
}

// Transfer moves amount between two cards owned by username. Both balance
// updates commit atomically or not at all. Preconditions are checked in a
// fixed order and the first failure wins.
func (s *CardService) Transfer(ctx context.Context, username string, fromID, toID int64, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return models.ErrInvalidAmount
	}

	err := s.cards.InTransaction(ctx, func(tx CardStore) error {
		// Lock rows in ascending id order so two opposite transfers cannot
		// deadlock. Errors are still reported in precondition order:
		// source first, then destination.
		var from, to *models.Card
		var fromErr, toErr error
		if fromID <= toID {
			from, fromErr = tx.FindByIDAndOwner(ctx, fromID, username)
			to, toErr = tx.FindByIDAndOwner(ctx, toID, username)
		} else {
			to, toErr = tx.FindByIDAndOwner(ctx, toID, username)
			from, fromErr = tx.FindByIDAndOwner(ctx, fromID, username)
		}
		if fromErr != nil {
			return fmt.Errorf("source card: %w", fromErr)
		}
		if toErr != nil {
			return fmt.Errorf("destination card: %w", toErr)
		}

		if from.Status == models.StatusExpired {
			return models.ErrCardNotUsable
		}
		if from.Balance.LessThan(amount) {
			return models.ErrInsufficientFunds
		}

		// A same-card transfer debits and credits the same record by the
		// same amount; nothing to write.
		if from.ID == to.ID {
			return nil
		}

		from.Balance = from.Balance.Sub(amount)
		to.Balance = to.Balance.Add(amount)

		if err := tx.SaveAll(ctx, []*models.Card{from, to}); err != nil {
			return fmt.Errorf("persist transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"username":     username,
		"from_card_id": fromID,
		"to_card_id":   toID,
		"amount":       amount.String(),
	}).Info("Transfer completed")
	return nil
}

// BlockCard moves the caller's card to BLOCKED. The only guard is that the
// card exists and belongs to the caller; the current status does not matter.
func (s *CardService) BlockCard(ctx context.Context, username string, cardID int64) error {
	// Read and write share a transaction: Save writes the whole record, so
	// an unlocked read would let a concurrent transfer's balance update be
	// overwritten by the stale copy.
	var card *models.Card
	err := s.cards.InTransaction(ctx, func(tx CardStore) error {
		found, err := tx.FindByIDAndOwner(ctx, cardID, username)
		if err != nil {
			return err
		}
		found.Status = models.StatusBlocked
		if err := tx.Save(ctx, found); err != nil {
			return fmt.Errorf("persist card block: %w", err)
		}
		card = found
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Infof("Card %d blocked by %s", cardID, username)
	s.notifyStatusChanged(ctx, card)
	return nil
}

func (s *CardService) notifyStatusChanged(ctx context.Context, card *models.Card) {
	if s.notifier == nil {
		return
	}
	user, err := s.users.FindByID(ctx, card.UserID)
	if err != nil || user.Email == "" {
		return
	}
	if err := s.notifier.CardStatusChanged(user, card); err != nil {
		s.log.Warnf("Failed to notify %s about card %d: %v", user.Username, card.ID, err)
	}
}
