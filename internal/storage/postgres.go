package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/classbank/backend/internal/bank"
	"github.com/classbank/backend/internal/models"
)

// PostgresStore implements bank.Store on database/sql. Atomic units map to
// SQL transactions; rows fetched through the Tx getters are locked with
// SELECT ... FOR UPDATE so concurrent operations on the same account queue up
// while operations on disjoint accounts run in parallel.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const accountColumns = "id, username, password_hash, role, balance, credit_score, created_at, updated_at"

func scanAccount(row *sql.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(&account.ID, &account.Username, &account.PasswordHash, &account.Role,
		&account.Balance, &account.CreditScore, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: account %d", bank.ErrNotFound, id)
	}
	return account, err
}

func (s *PostgresStore) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: account %q", bank.ErrNotFound, username)
	}
	return account, err
}

func (s *PostgresStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(&account.ID, &account.Username, &account.PasswordHash, &account.Role,
			&account.Balance, &account.CreditScore, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) CountAccounts(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	return count, err
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account *models.Account) error {
	return s.db.QueryRowContext(ctx,
		`INSERT INTO accounts (username, password_hash, role, balance, credit_score, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		account.Username, account.PasswordHash, account.Role, account.Balance, account.CreditScore).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

const loanColumns = "id, account_id, principal, remaining, rate, status, created_at"

func (s *PostgresStore) GetLoan(ctx context.Context, id int64) (*models.Loan, error) {
	var loan models.Loan
	err := s.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id).
		Scan(&loan.ID, &loan.AccountID, &loan.Principal, &loan.Remaining, &loan.Rate, &loan.Status, &loan.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: loan %d", bank.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (s *PostgresStore) ListLoansForAccount(ctx context.Context, accountID int64) ([]models.Loan, error) {
	return s.listLoans(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE account_id = $1 ORDER BY id DESC`, accountID)
}

func (s *PostgresStore) ListActiveLoans(ctx context.Context) ([]models.Loan, error) {
	return s.listLoans(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE status = $1 ORDER BY id`, models.LoanActive)
}

func (s *PostgresStore) listLoans(ctx context.Context, query string, args ...any) ([]models.Loan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		var loan models.Loan
		if err := rows.Scan(&loan.ID, &loan.AccountID, &loan.Principal, &loan.Remaining,
			&loan.Rate, &loan.Status, &loan.CreatedAt); err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

func (s *PostgresStore) ListLedgerEntriesForAccount(ctx context.Context, accountID int64, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reference, from_account_id, to_account_id, amount, kind, note, created_at
		 FROM ledger_entries
		 WHERE from_account_id = $1 OR to_account_id = $1
		 ORDER BY id DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var from, to sql.NullInt64
		var note sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Reference, &from, &to, &entry.Amount,
			&entry.Kind, &note, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if from.Valid {
			entry.FromAccountID = &from.Int64
		}
		if to.Valid {
			entry.ToAccountID = &to.Int64
		}
		entry.Note = note.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) Atomic(ctx context.Context, fn func(tx bank.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer sqlTx.Rollback()

	if err := fn(&postgresTx{ctx: ctx, tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type postgresTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *postgresTx) GetAccountForUpdate(id int64) (*models.Account, error) {
	account, err := scanAccount(t.tx.QueryRowContext(t.ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: account %d", bank.ErrNotFound, id)
	}
	return account, err
}

func (t *postgresTx) UpdateAccountBalance(id int64, balance int64) error {
	return t.execOnRow(
		`UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`,
		fmt.Sprintf("account %d", id), balance, id)
}

func (t *postgresTx) UpdateAccountCreditScore(id int64, score int) error {
	return t.execOnRow(
		`UPDATE accounts SET credit_score = $1, updated_at = NOW() WHERE id = $2`,
		fmt.Sprintf("account %d", id), score, id)
}

func (t *postgresTx) GetLoanForUpdate(id int64) (*models.Loan, error) {
	var loan models.Loan
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id).
		Scan(&loan.ID, &loan.AccountID, &loan.Principal, &loan.Remaining, &loan.Rate, &loan.Status, &loan.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: loan %d", bank.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (t *postgresTx) CreateLoan(loan *models.Loan) error {
	return t.tx.QueryRowContext(t.ctx,
		`INSERT INTO loans (account_id, principal, remaining, rate, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id, created_at`,
		loan.AccountID, loan.Principal, loan.Remaining, loan.Rate, loan.Status).
		Scan(&loan.ID, &loan.CreatedAt)
}

func (t *postgresTx) UpdateLoan(id int64, remaining int64, status models.LoanStatus) error {
	return t.execOnRow(
		`UPDATE loans SET remaining = $1, status = $2 WHERE id = $3`,
		fmt.Sprintf("loan %d", id), remaining, status, id)
}

func (t *postgresTx) AppendLedgerEntry(entry *models.LedgerEntry) error {
	return t.tx.QueryRowContext(t.ctx,
		`INSERT INTO ledger_entries (reference, from_account_id, to_account_id, amount, kind, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING id, created_at`,
		entry.Reference, entry.FromAccountID, entry.ToAccountID, entry.Amount, entry.Kind, entry.Note).
		Scan(&entry.ID, &entry.CreatedAt)
}

func (t *postgresTx) execOnRow(query, what string, args ...any) error {
	result, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", bank.ErrNotFound, what)
	}
	return nil
}
