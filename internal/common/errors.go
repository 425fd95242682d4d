// Package common defines shared constants and sentinel errors used across
// the walletkeeper server layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound       = errors.New("not found")
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrAlreadyAllocated = errors.New("balance already allocated")

	// Service-level errors (generic/internal flow control).
	ErrorInternal         = errors.New("internal error")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Validation errors.
	ErrInvalidAmount = errors.New("invalid amount")

	// Insufficiency errors (a withdrawal exceeds available funds).
	ErrInsufficientHomeBalance = errors.New("insufficient home balance")
	ErrInsufficientGasBalance  = errors.New("insufficient gas balance")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
