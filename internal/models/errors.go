package models

import "errors"

// Business errors surfaced by the card and user services. All of them are
// caller-recoverable rejections, mapped to HTTP statuses by the handler layer.
var (
	ErrOwnerNotFound      = errors.New("card owner not found")
	ErrCardNotFound       = errors.New("card not found or not owned by caller")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrCardNotUsable      = errors.New("source card is blocked or inactive")
	ErrInsufficientFunds  = errors.New("insufficient funds on card")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
