package handler

import (
	"github.com/sirupsen/logrus"

	"github.com/akulagin/bankcards/internal/service"
)

// Handler translates HTTP requests into service calls.
type Handler struct {
	cards *service.CardService
	admin *service.AdminCardService
	users *service.UserService
	log   *logrus.Logger
}

// NewHandler initializes a new handler.
func NewHandler(cards *service.CardService, admin *service.AdminCardService, users *service.UserService, log *logrus.Logger) *Handler {
	return &Handler{cards: cards, admin: admin, users: users, log: log}
}
