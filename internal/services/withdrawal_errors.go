package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type ErrorKind string

const (
	KindInvalidAmount      ErrorKind = "invalid_amount"
	KindBelowMinimum       ErrorKind = "below_minimum"
	KindAboveMaximum       ErrorKind = "above_maximum"
	KindInsufficientFunds  ErrorKind = "insufficient_funds"
	KindNoPaymentMethod    ErrorKind = "no_payment_method"
	KindUnverifiedMethod   ErrorKind = "payment_method_unverified"
	KindCooldownActive     ErrorKind = "cooldown_active"
	KindBalanceFrozen      ErrorKind = "balance_frozen"
	KindTransportFailure   ErrorKind = "transport_failure"
	KindPersistenceFailure ErrorKind = "persistence_failure"
)

// WithdrawalError carries a user-facing message. errors.Is matches on Kind,
// so callers compare against the Err* values below.
type WithdrawalError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *WithdrawalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *WithdrawalError) Unwrap() error { return e.Err }

func (e *WithdrawalError) Is(target error) bool {
	t, ok := target.(*WithdrawalError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidAmount      = &WithdrawalError{Kind: KindInvalidAmount, Message: "amount must be greater than zero"}
	ErrBelowMinimum       = &WithdrawalError{Kind: KindBelowMinimum, Message: "amount is below the minimum withdrawal"}
	ErrAboveMaximum       = &WithdrawalError{Kind: KindAboveMaximum, Message: "amount is above the maximum withdrawal"}
	ErrInsufficientFunds  = &WithdrawalError{Kind: KindInsufficientFunds, Message: "insufficient available balance"}
	ErrNoPaymentMethod    = &WithdrawalError{Kind: KindNoPaymentMethod, Message: "please select a payment method"}
	ErrUnverifiedMethod   = &WithdrawalError{Kind: KindUnverifiedMethod, Message: "payment method is not verified yet"}
	ErrCooldownActive     = &WithdrawalError{Kind: KindCooldownActive, Message: "a recent withdrawal is still in its cooldown window"}
	ErrBalanceFrozen      = &WithdrawalError{Kind: KindBalanceFrozen, Message: "your balance is frozen, contact support"}
	ErrTransportFailure   = &WithdrawalError{Kind: KindTransportFailure, Message: "notification transport failed"}
	ErrPersistenceFailure = &WithdrawalError{Kind: KindPersistenceFailure, Message: "could not save withdrawal"}
)

func withMessage(base *WithdrawalError, msg string) *WithdrawalError {
	return &WithdrawalError{Kind: base.Kind, Message: msg}
}

func persistence(err error) error {
	return &WithdrawalError{Kind: KindPersistenceFailure, Message: ErrPersistenceFailure.Message, Err: err}
}

// FormatCents renders integer cents as a dollar string, e.g. 2925 -> "$29.25".
func FormatCents(c int64) string {
	return "$" + decimal.New(c, -2).StringFixed(2)
}
