package models

import "time"

type EntryKind string

const (
	EntryTransfer      EntryKind = "transfer"
	EntryFine          EntryKind = "fine"
	EntryLoanDisbursal EntryKind = "loan_disbursal"
	EntryLoanRepayment EntryKind = "loan_repayment"
)

// LedgerEntry is an immutable record of one money movement. A nil FromAccountID
// means the credit originated from the system (loan disbursal); a nil
// ToAccountID means the system absorbed the debit (fine, loan repayment).
// Amount is always positive; direction is carried by which side is populated.
type LedgerEntry struct {
	ID            int64     `json:"id" db:"id"`
	Reference     string    `json:"reference" db:"reference"`
	FromAccountID *int64    `json:"fromAccountId" db:"from_account_id"`
	ToAccountID   *int64    `json:"toAccountId" db:"to_account_id"`
	Amount        int64     `json:"amount" db:"amount"` // in cents
	Kind          EntryKind `json:"kind" db:"kind"`
	Note          string    `json:"note,omitempty" db:"note"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}
