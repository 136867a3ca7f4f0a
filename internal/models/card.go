package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus enumerates the lifecycle states of a card.
type CardStatus string

const (
	StatusActive  CardStatus = "ACTIVE"
	StatusBlocked CardStatus = "BLOCKED"
	StatusExpired CardStatus = "EXPIRED"
)

// ParseCardStatus converts a stored or user-supplied string into a CardStatus.
func ParseCardStatus(s string) (CardStatus, error) {
	switch status := CardStatus(strings.ToUpper(s)); status {
	case StatusActive, StatusBlocked, StatusExpired:
		return status, nil
	default:
		return "", fmt.Errorf("unknown card status: %q", s)
	}
}

// Card represents a bank card
type Card struct {
	ID         int64           `json:"id"`
	Number     string          `json:"-"` // Plaintext in memory, encrypted at rest, never serialized
	OwnerName  string          `json:"owner_name"`
	UserID     int64           `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	Status     CardStatus      `json:"status"`
	ExpiryDate time.Time       `json:"expiry_date"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// MaskedNumber returns the display form of the card number: only the last
// four characters are visible. Numbers shorter than four characters are
// masked entirely.
func (c *Card) MaskedNumber() string {
	if len(c.Number) < 4 {
		return "****"
	}
	return "**** **** **** " + c.Number[len(c.Number)-4:]
}

// CardResponse is the API representation of a card.
type CardResponse struct {
	ID           int64           `json:"id"`
	MaskedNumber string          `json:"masked_number"`
	OwnerName    string          `json:"owner_name"`
	Balance      decimal.Decimal `json:"balance"`
	Status       CardStatus      `json:"status"`
	ExpiryDate   string          `json:"expiry_date"`
}

// NewCardResponse maps a card to its API representation.
func NewCardResponse(c *Card) *CardResponse {
	return &CardResponse{
		ID:           c.ID,
		MaskedNumber: c.MaskedNumber(),
		OwnerName:    c.OwnerName,
		Balance:      c.Balance,
		Status:       c.Status,
		ExpiryDate:   c.ExpiryDate.Format("2006-01-02"),
	}
}
