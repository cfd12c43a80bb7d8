package models

import "time"

type LoanStatus string

const (
	LoanActive LoanStatus = "active"
	LoanPaid   LoanStatus = "paid"
	// LoanDefaulted is part of the schema but no rule currently assigns it.
	LoanDefaulted LoanStatus = "defaulted"
)

type Loan struct {
	ID        int64      `json:"id" db:"id"`
	AccountID int64      `json:"accountId" db:"account_id"`
	Principal int64      `json:"principal" db:"principal"` // in cents
	Remaining int64      `json:"remaining" db:"remaining"`
	Rate      int        `json:"rate" db:"rate"` // percentage, informational
	Status    LoanStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}
