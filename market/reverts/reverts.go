// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts defines the errors that abort a marketplace transaction.
// Any of these surfacing from a public operation reverts the whole
// transaction with no ledger writes surviving.
package reverts

import (
	"errors"
)

// ErrRevert is a transaction-aborting domain error.
type ErrRevert struct {
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// The full revert taxonomy of the engine.
var (
	ErrNotFound              = New("not found")
	ErrUnauthorized          = New("caller is not authorized")
	ErrCooldownActive        = New("operator fee was updated within the cooldown period")
	ErrFeeIncreaseTooLarge   = New("fee increase exceeds the allowed limit")
	ErrOperatorHasValidators = New("operator still has active validators")
	ErrInsufficientBalance   = New("insufficient balance")
	ErrInsufficientTreasury  = New("insufficient treasury balance")
	ErrNotLiquidatable       = New("account is not liquidatable")
	ErrAlreadyEnabled        = New("account validators are already enabled")
	ErrAlreadyDisabled       = New("account validators are already disabled")
	ErrInvariantViolation    = New("ledger invariant violated")
)

// IsRevert reports whether err (or anything it wraps) is a revert error.
func IsRevert(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}
