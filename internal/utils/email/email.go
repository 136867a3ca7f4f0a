package email

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/akulagin/bankcards/internal/config"
	"github.com/akulagin/bankcards/internal/models"
)

// Sender notifies card owners about status changes via SMTP.
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender. It returns nil when SMTP is not
// configured, which disables notifications.
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	if cfg.SMTPHost == "" {
		logger.Info("SMTP not configured, card notifications disabled")
		return nil
	}
	return &Sender{cfg: cfg, logger: logger}
}

// CardStatusChanged emails the card owner about the card's new status.
func (s *Sender) CardStatusChanged(user *models.User, card *models.Card) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{user.Email}

	body := fmt.Sprintf("Dear %s,\n\n", user.Username)
	switch card.Status {
	case models.StatusBlocked:
		e.Subject = "Card Blocked"
		body += fmt.Sprintf("Your card %s has been blocked.\n", card.MaskedNumber())
	case models.StatusExpired:
		e.Subject = "Card Expired"
		body += fmt.Sprintf(
			"Your card %s expired on %s and can no longer be used.\n",
			card.MaskedNumber(), card.ExpiryDate.Format("2006-01-02"),
		)
	default:
		e.Subject = "Card Status Changed"
		body += fmt.Sprintf("The status of your card %s is now %s.\n", card.MaskedNumber(), card.Status)
	}
	body += "\nBest regards,\nBank Cards Service"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", user.Email, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", user.Email, e.Subject)
	return nil
}
