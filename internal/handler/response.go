package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/akulagin/bankcards/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps business errors to HTTP statuses. Anything unrecognized
// is a persistence or programming failure and surfaces as a 500 without
// leaking details.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, models.ErrCardNotFound),
		errors.Is(err, models.ErrOwnerNotFound),
		errors.Is(err, models.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrCardNotUsable),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrUserExists):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	default:
		h.log.Errorf("Internal error: %v", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
