package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akulagin/bankcards/internal/models"
)

// Sweeper expires overdue cards. It is meant to run once a day from a cron
// schedule; running it more often is harmless because a card already
// expired no longer matches the selection.
type Sweeper struct {
	cards    CardStore
	users    UserStore
	notifier Notifier
	log      *logrus.Logger
}

// NewSweeper initializes a new expiry sweeper. notifier may be nil.
func NewSweeper(cards CardStore, users UserStore, notifier Notifier, log *logrus.Logger) *Sweeper {
	return &Sweeper{cards: cards, users: users, notifier: notifier, log: log}
}

// SweepExpired moves every ACTIVE card with an expiry date before today to
// EXPIRED in a single batch and returns the number of cards updated.
func (s *Sweeper) SweepExpired(ctx context.Context, today time.Time) (int, error) {
	var expired []*models.Card

	err := s.cards.InTransaction(ctx, func(tx CardStore) error {
		var err error
		expired, err = tx.FindAllByExpiryDateBeforeAndStatus(ctx, today, models.StatusActive)
		if err != nil {
			return fmt.Errorf("select overdue cards: %w", err)
		}
		if len(expired) == 0 {
			return nil
		}
		for _, card := range expired {
			card.Status = models.StatusExpired
		}
		if err := tx.SaveAll(ctx, expired); err != nil {
			return fmt.Errorf("persist expired cards: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(expired) > 0 {
		s.log.Infof("Expiry sweep updated %d cards", len(expired))
		for _, card := range expired {
			s.notifyExpired(ctx, card)
		}
	}
	return len(expired), nil
}

// Run is the cron entrypoint.
func (s *Sweeper) Run() {
	s.log.Info("Starting scheduled card expiry sweep")
	if _, err := s.SweepExpired(context.Background(), time.Now().UTC()); err != nil {
		s.log.Errorf("Expiry sweep failed: %v", err)
	}
}

func (s *Sweeper) notifyExpired(ctx context.Context, card *models.Card) {
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
