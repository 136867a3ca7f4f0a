package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/akulagin/bankcards/internal/models"
)

type createCardRequest struct {
	UserID         int64           `json:"user_id"`
	CardNumber     string          `json:"card_number"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// GetAllCards lists every card in the system, paginated.
func (h *Handler) GetAllCards(w http.ResponseWriter, r *http.Request) {
	page, err := h.admin.GetAllCards(r.Context(), pageRequest(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, models.NewCardResponsePage(page))
}

// CreateCard issues a new card for a user. The request balance must be
// positive; the card number is generated when omitted.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}
	if req.UserID == 0 {
		h.badRequest(w, "user_id is required")
		return
	}
	if req.InitialBalance.Sign() <= 0 {
		h.badRequest(w, "initial_balance must be positive")
		return
	}

	card, err := h.admin.CreateCard(r.Context(), req.UserID, req.CardNumber, req.InitialBalance)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, models.NewCardResponse(card))
}

// ChangeCardStatus sets a card's status directly, without lifecycle guards.
func (h *Handler) ChangeCardStatus(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r)
	if err != nil {
		h.badRequest(w, "invalid card id")
		return
	}

	status, err := models.ParseCardStatus(r.URL.Query().Get("status"))
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}

	if err := h.admin.UpdateCardStatus(r.Context(), cardID, status); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteCard removes a card permanently.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r)
	if err != nil {
		h.badRequest(w, "invalid card id")
		return
	}

	if err := h.admin.DeleteCard(r.Context(), cardID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
