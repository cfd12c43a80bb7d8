package bank

import (
	"context"

	"github.com/classbank/backend/internal/models"
)

// Store is the persistence boundary for accounts, loans and the ledger.
// Implementations must return ErrNotFound for missing records.
type Store interface {
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	CountAccounts(ctx context.Context) (int, error)
	CreateAccount(ctx context.Context, account *models.Account) error

	GetLoan(ctx context.Context, id int64) (*models.Loan, error)
	ListLoansForAccount(ctx context.Context, accountID int64) ([]models.Loan, error)
	ListActiveLoans(ctx context.Context) ([]models.Loan, error)

	ListLedgerEntriesForAccount(ctx context.Context, accountID int64, limit int) ([]models.LedgerEntry, error)

	// Atomic runs fn as one transaction. If fn returns an error nothing it did
	// through tx is persisted. Rows read through Tx getters stay locked against
	// concurrent writers until Atomic returns.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the read-modify-write surface available inside an atomic unit.
type Tx interface {
	GetAccountForUpdate(id int64) (*models.Account, error)
	UpdateAccountBalance(id int64, balance int64) error
	UpdateAccountCreditScore(id int64, score int) error

	GetLoanForUpdate(id int64) (*models.Loan, error)
	CreateLoan(loan *models.Loan) error
	UpdateLoan(id int64, remaining int64, status models.LoanStatus) error

	AppendLedgerEntry(entry *models.LedgerEntry) error
}
