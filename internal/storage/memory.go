package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/classbank/backend/internal/bank"
	"github.com/classbank/backend/internal/models"
)

// MemoryStore is a mutex-guarded in-memory implementation of bank.Store. It
// backs the engine tests and the dev mode where no Postgres is available.
// Atomic units are serialized under one lock, so staged writes either all
// land or none do.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	loans    map[int64]*models.Loan
	entries  []models.LedgerEntry

	nextAccountID int64
	nextLoanID    int64
	nextEntryID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:      make(map[int64]*models.Account),
		loans:         make(map[int64]*models.Loan),
		nextAccountID: 1,
		nextLoanID:    1,
		nextEntryID:   1,
	}
}

func (s *MemoryStore) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %d", bank.ErrNotFound, id)
	}
	copied := *account
	return &copied, nil
}

func (s *MemoryStore) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.Username == username {
			copied := *account
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: account %q", bank.ErrNotFound, username)
}

func (s *MemoryStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := make([]models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, *account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Username < accounts[j].Username })
	return accounts, nil
}

func (s *MemoryStore) CountAccounts(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts), nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Username == account.Username {
			return fmt.Errorf("username %q already exists", account.Username)
		}
	}
	account.ID = s.nextAccountID
	s.nextAccountID++
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	copied := *account
	s.accounts[account.ID] = &copied
	return nil
}

func (s *MemoryStore) GetLoan(ctx context.Context, id int64) (*models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loan, ok := s.loans[id]
	if !ok {
		return nil, fmt.Errorf("%w: loan %d", bank.ErrNotFound, id)
	}
	copied := *loan
	return &copied, nil
}

func (s *MemoryStore) ListLoansForAccount(ctx context.Context, accountID int64) ([]models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var loans []models.Loan
	for _, loan := range s.loans {
		if loan.AccountID == accountID {
			loans = append(loans, *loan)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID > loans[j].ID })
	return loans, nil
}

func (s *MemoryStore) ListActiveLoans(ctx context.Context) ([]models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var loans []models.Loan
	for _, loan := range s.loans {
		if loan.Status == models.LoanActive {
			loans = append(loans, *loan)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

func (s *MemoryStore) ListLedgerEntriesForAccount(ctx context.Context, accountID int64, limit int) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.LedgerEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		from := entry.FromAccountID != nil && *entry.FromAccountID == accountID
		to := entry.ToAccountID != nil && *entry.ToAccountID == accountID
		if from || to {
			entries = append(entries, entry)
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
	}
	return entries, nil
}

// LedgerSize reports the total number of ledger entries. Test helper.
func (s *MemoryStore) LedgerSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx bank.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		store:    s,
		accounts: make(map[int64]*models.Account),
		loans:    make(map[int64]*models.Loan),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// memoryTx stages clones of touched rows and flushes them back on commit.
type memoryTx struct {
	store    *MemoryStore
	accounts map[int64]*models.Account
	loans    map[int64]*models.Loan
	newLoans []*models.Loan
	entries  []*models.LedgerEntry
}

func (tx *memoryTx) GetAccountForUpdate(id int64) (*models.Account, error) {
	if staged, ok := tx.accounts[id]; ok {
		copied := *staged
		return &copied, nil
	}
	account, ok := tx.store.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %d", bank.ErrNotFound, id)
	}
	copied := *account
	tx.accounts[id] = &copied
	result := copied
	return &result, nil
}

func (tx *memoryTx) UpdateAccountBalance(id int64, balance int64) error {
	account, err := tx.stagedAccount(id)
	if err != nil {
		return err
	}
	account.Balance = balance
	account.UpdatedAt = time.Now()
	return nil
}

func (tx *memoryTx) UpdateAccountCreditScore(id int64, score int) error {
	account, err := tx.stagedAccount(id)
	if err != nil {
		return err
	}
	account.CreditScore = score
	account.UpdatedAt = time.Now()
	return nil
}

func (tx *memoryTx) stagedAccount(id int64) (*models.Account, error) {
	if staged, ok := tx.accounts[id]; ok {
		return staged, nil
	}
	account, ok := tx.store.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %d", bank.ErrNotFound, id)
	}
	copied := *account
	tx.accounts[id] = &copied
	return &copied, nil
}

func (tx *memoryTx) GetLoanForUpdate(id int64) (*models.Loan, error) {
	if staged, ok := tx.loans[id]; ok {
		copied := *staged
		return &copied, nil
	}
	loan, ok := tx.store.loans[id]
	if !ok {
		return nil, fmt.Errorf("%w: loan %d", bank.ErrNotFound, id)
	}
	copied := *loan
	tx.loans[id] = &copied
	result := copied
	return &result, nil
}

func (tx *memoryTx) CreateLoan(loan *models.Loan) error {
	loan.ID = tx.store.nextLoanID + int64(len(tx.newLoans))
	loan.CreatedAt = time.Now()
	copied := *loan
	tx.newLoans = append(tx.newLoans, &copied)
	return nil
}

func (tx *memoryTx) UpdateLoan(id int64, remaining int64, status models.LoanStatus) error {
	for _, staged := range tx.newLoans {
		if staged.ID == id {
			staged.Remaining = remaining
			staged.Status = status
			return nil
		}
	}
	staged, ok := tx.loans[id]
	if !ok {
		loan, exists := tx.store.loans[id]
		if !exists {
			return fmt.Errorf("%w: loan %d", bank.ErrNotFound, id)
		}
		copied := *loan
		tx.loans[id] = &copied
		staged = &copied
	}
	staged.Remaining = remaining
	staged.Status = status
	return nil
}

func (tx *memoryTx) AppendLedgerEntry(entry *models.LedgerEntry) error {
	entry.ID = tx.store.nextEntryID + int64(len(tx.entries))
	entry.CreatedAt = time.Now()
	copied := *entry
	tx.entries = append(tx.entries, &copied)
	return nil
}

func (tx *memoryTx) commit() {
	for id, account := range tx.accounts {
		tx.store.accounts[id] = account
	}
	for id, loan := range tx.loans {
		tx.store.loans[id] = loan
	}
	for _, loan := range tx.newLoans {
		tx.store.loans[loan.ID] = loan
		tx.store.nextLoanID++
	}
	for _, entry := range tx.entries {
		tx.store.entries = append(tx.store.entries, *entry)
		tx.store.nextEntryID++
	}
}
