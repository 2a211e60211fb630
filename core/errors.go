package core

import (
	"errors"
	"fmt"
)

var (
	ErrRequestFailed        = errors.New("request failed")
	ErrNoSession            = errors.New("no backend session")
	ErrWalletNotConnected   = errors.New("wallet is not connected")
	ErrSigningUnsupported   = errors.New("wallet does not support message signing")
	ErrWalletSigning        = errors.New("wallet signing failed")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrEmptyInstructions    = errors.New("Burn SDK returned empty instructions")
	ErrTransactionFailed    = errors.New("transaction failed")
	ErrBlockhashExpired     = errors.New("block height exceeded")
	ErrRedemptionInProgress = errors.New("redemption is in progress")
	ErrNoAssetSelected      = errors.New("no asset selected")
	ErrAssetNotFound        = errors.New("asset not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// RequestError describes a non-success backend response or a transport failure
type RequestError struct {
	Method     string
	Path       string
	StatusCode int // zero when no response was received
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s failed: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is makes every RequestError match ErrRequestFailed
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ValidationError is a locally detected, user-facing input problem
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with a user-facing message
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}
