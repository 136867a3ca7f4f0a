package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/akulagin/bankcards/internal/middleware"
	"github.com/akulagin/bankcards/internal/models"
	"github.com/akulagin/bankcards/internal/service"
)

type transferRequest struct {
	FromCardID int64           `json:"from_card_id"`
	ToCardID   int64           `json:"to_card_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// GetMyCards lists the caller's cards with optional search or status filter
// and pagination.
func (h *Handler) GetMyCards(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	q := service.ListQuery{
		Search: r.URL.Query().Get("search"),
		Page:   pageRequest(r),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseCardStatus(raw)
		if err != nil {
			h.badRequest(w, err.Error())
			return
		}
		q.Status = status
	}

	page, err := h.cards.GetMyCards(r.Context(), username, q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, models.NewCardResponsePage(page))
}

// Transfer moves funds between two of the caller's cards.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid request body")
		return
	}

	if err := h.cards.Transfer(r.Context(), username, req.FromCardID, req.ToCardID, req.Amount); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "transfer completed"})
}

// BlockMyCard blocks one of the caller's cards.
func (h *Handler) BlockMyCard(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	cardID, err := pathID(r)
	if err != nil {
		h.badRequest(w, "invalid card id")
		return
	}

	if err := h.cards.BlockCard(r.Context(), username, cardID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func pageRequest(r *http.Request) models.PageRequest {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	size, _ := strconv.Atoi(query.Get("size"))
	return models.PageRequest{Page: page, Size: size, Sort: query.Get("sort")}
}
