package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrInvalidPercentage        = errors.New("invalid percentage")
	ErrInvalidPriority          = errors.New("priority must be 1 or more")
	ErrPercentageOverflow       = errors.New("total allocation cannot exceed 100%")
	ErrEmptyName                = errors.New("empty category name")
	ErrDuplicateName            = errors.New("duplicate category name")
	ErrCategoryNotFound         = errors.New("category not found")
	ErrScheduledPaymentNotFound = errors.New("scheduled payment not found")
	ErrInvalidFrequency         = errors.New("invalid frequency")
	ErrInvalidDate              = errors.New("invalid date")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrStrandedFunds            = errors.New("no category can receive the funds")
	ErrScheduledPaymentEnded    = errors.New("scheduled payment has ended")
	ErrPersistenceParse         = errors.New("stored budget could not be parsed")
	ErrLeaseHeld                = errors.New("budget is held by another writer")
)

// InsufficientFundsError carries the part of a payment or withdrawal that
// could not be covered.
type InsufficientFundsError struct {
	Remaining decimal.Decimal
	// CategoryID is set for single-category withdrawals.
	CategoryID string
}

func (e *InsufficientFundsError) Error() string {
	if e.CategoryID != "" {
		return fmt.Sprintf("insufficient funds in category %s: %s short", e.CategoryID, e.Remaining.StringFixed(2))
	}
	return fmt.Sprintf("insufficient funds: %s short", e.Remaining.StringFixed(2))
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// RemainingFromError extracts the unmet remainder of an insufficient-funds error.
func RemainingFromError(err error) (decimal.Decimal, bool) {
	var ife *InsufficientFundsError
	if errors.As(err, &ife) {
		return ife.Remaining, true
	}
	return decimal.Zero, false
}
