package bank

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced account or loan does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller lacks the administrator role.
	ErrForbidden = errors.New("forbidden")

	// ErrInsufficientFunds means the balance does not cover the requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidInput means a non-positive amount or a malformed reference.
	ErrInvalidInput = errors.New("invalid input")
)

// DeniedError is returned when a loan application exceeds the credit-score
// eligibility ceiling. MaxAmount is the ceiling in cents; zero means the score
// is too low for any loan.
type DeniedError struct {
	MaxAmount int64
}

func (e *DeniedError) Error() string {
	if e.MaxAmount == 0 {
		return "loan denied: credit score is too low for a loan"
	}
	return fmt.Sprintf("loan denied: the maximum loan for your credit score is %d", e.MaxAmount)
}
