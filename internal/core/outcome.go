package core

import (
	"errors"
	"fmt"
)

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

type Severity string

// Outcome is the structured result of a mutating operation, rendered by a
// notification collaborator.
type Outcome struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func Info(title, format string, args ...any) Outcome {
	return Outcome{Title: title, Message: fmt.Sprintf(format, args...), Severity: SeverityInfo}
}

func Failure(title, format string, args ...any) Outcome {
	return Outcome{Title: title, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

// OutcomeFromError maps an engine error to the outcome shown to the user.
func OutcomeFromError(err error) Outcome {
	var ife *InsufficientFundsError
	switch {
	case errors.As(err, &ife):
		return Failure("Insufficient funds", "You don't have enough funds to complete this operation (%s short)", FormatAmount(ife.Remaining))
	case errors.Is(err, ErrInvalidAmount):
		return Failure("Invalid amount", "Please enter a positive amount")
	case errors.Is(err, ErrCategoryNotFound):
		return Failure("Category not found", "The selected category doesn't exist")
	case errors.Is(err, ErrPercentageOverflow):
		return Failure("Invalid percentage", "Total allocation cannot exceed 100%%")
	case errors.Is(err, ErrInvalidPercentage):
		return Failure("Invalid percentage", "Percentage must be between 0 and 100")
	case errors.Is(err, ErrInvalidPriority):
		return Failure("Invalid priority", "Priority must be 1 or more; lower numbers fill first")
	case errors.Is(err, ErrEmptyName):
		return Failure("Invalid name", "Please enter a category name")
	case errors.Is(err, ErrDuplicateName):
		return Failure("Invalid name", "A category with this name already exists")
	case errors.Is(err, ErrScheduledPaymentNotFound):
		return Failure("Payment not found", "The scheduled payment doesn't exist")
	case errors.Is(err, ErrScheduledPaymentEnded):
		return Failure("Payment ended", "This payment already completed or failed; schedule a new one instead")
	case errors.Is(err, ErrInvalidFrequency):
		return Failure("Invalid frequency", "Recurring payments need a daily, weekly or monthly frequency")
	case errors.Is(err, ErrInvalidDate):
		return Failure("Invalid date", "Please choose a date for the payment")
	case errors.Is(err, ErrStrandedFunds):
		return Failure("Funds not allocated", "No category can receive these funds")
	default:
		return Failure("Something went wrong", "%v", err)
	}
}
