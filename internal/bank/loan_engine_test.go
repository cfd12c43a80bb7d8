package bank_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/classbank/backend/internal/bank"
	"github.com/classbank/backend/internal/models"
	"github.com/classbank/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxLoanAmount(t *testing.T) {
	tests := []struct {
		score int
		max   int64
	}{
		{300, 0},
		{499, 0},
		{500, 5000},
		{599, 5000},
		{600, 20000},
		{699, 20000},
		{700, 50000},
		{850, 50000},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.score), func(t *testing.T) {
			assert.Equal(t, tt.max, bank.MaxLoanAmount(tt.score))
		})
	}
}

func TestLoanEngine_ApplyForLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("exact ceiling succeeds", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account := newAccount(t, store, "Lion12", models.RoleStandard, 1000, 600)

		loan, err := engine.ApplyForLoan(ctx, account.ID, 20000)
		require.NoError(t, err)

		assert.Equal(t, int64(20000), loan.Principal)
		assert.Equal(t, int64(20000), loan.Remaining)
		assert.Equal(t, models.LoanActive, loan.Status)
		assert.Equal(t, 5, loan.Rate)

		credited, _ := store.GetAccount(ctx, account.ID)
		assert.Equal(t, int64(21000), credited.Balance)

		entries, _ := store.ListLedgerEntriesForAccount(ctx, account.ID, 10)
		require.Len(t, entries, 1)
		assert.Equal(t, models.EntryLoanDisbursal, entries[0].Kind)
		assert.Nil(t, entries[0].FromAccountID)
		assert.Equal(t, account.ID, *entries[0].ToAccountID)
	})

	t.Run("ceiling plus one denied with ceiling in message", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account := newAccount(t, store, "Lion12", models.RoleStandard, 1000, 600)

		_, err := engine.ApplyForLoan(ctx, account.ID, 20001)
		var denied *bank.DeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, int64(20000), denied.MaxAmount)
		assert.Contains(t, err.Error(), "20000")

		unchanged, _ := store.GetAccount(ctx, account.ID)
		assert.Equal(t, int64(1000), unchanged.Balance)
		assert.Equal(t, 0, store.LedgerSize())
	})

	t.Run("low score denied for any amount", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account := newAccount(t, store, "Lion12", models.RoleStandard, 1000, 499)

		_, err := engine.ApplyForLoan(ctx, account.ID, 1)
		var denied *bank.DeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, int64(0), denied.MaxAmount)
		assert.Contains(t, err.Error(), "too low")
	})

	t.Run("missing account", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)

		_, err := engine.ApplyForLoan(ctx, 9999, 100)
		assert.ErrorIs(t, err, bank.ErrNotFound)
	})
}

func TestLoanEngine_RepayLoan(t *testing.T) {
	ctx := context.Background()

	// makeLoan originates a 10000 loan for a fresh account and resets the
	// balance and score to the given values.
	makeLoan := func(t *testing.T, store *storage.MemoryStore, engine *bank.LoanEngine, balance int64, score int) (*models.Account, *models.Loan) {
		t.Helper()
		account := newAccount(t, store, "Lion12", models.RoleStandard, 0, 700)
		loan, err := engine.ApplyForLoan(ctx, account.ID, 10000)
		require.NoError(t, err)
		require.NoError(t, store.Atomic(ctx, func(tx bank.Tx) error {
			if err := tx.UpdateAccountBalance(account.ID, balance); err != nil {
				return err
			}
			return tx.UpdateAccountCreditScore(account.ID, score)
		}))
		return account, loan
	}

	t.Run("extra repayment earns 15 points", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account, loan := makeLoan(t, store, engine, 5000, 650)

		updated, err := engine.RepayLoan(ctx, account.ID, loan.ID, 3000)
		require.NoError(t, err)

		assert.Equal(t, int64(7000), updated.Remaining)
		assert.Equal(t, models.LoanActive, updated.Status)

		owner, _ := store.GetAccount(ctx, account.ID)
		assert.Equal(t, 665, owner.CreditScore)
		assert.Equal(t, int64(2000), owner.Balance)
	})

	t.Run("standard repayment earns 10 points", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account, loan := makeLoan(t, store, engine, 5000, 650)

		updated, err := engine.RepayLoan(ctx, account.ID, loan.ID, 1000)
		require.NoError(t, err)

		assert.Equal(t, int64(9000), updated.Remaining)

		owner, _ := store.GetAccount(ctx, account.ID)
		assert.Equal(t, 660, owner.CreditScore)
	})

	t.Run("score clamps at ceiling", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account, loan := makeLoan(t, store, engine, 5000, 845)

		_, err := engine.RepayLoan(ctx, account.ID, loan.ID, 3000)
		require.NoError(t, err)

		owner, _ := store.GetAccount(ctx, account.ID)
		assert.Equal(t, 850, owner.CreditScore)
	})

	t.Run("paying off flips status exactly once", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account, loan := makeLoan(t, store, engine, 20000, 650)

		updated, err := engine.RepayLoan(ctx, account.ID, loan.ID, 10000)
		require.NoError(t, err)
		assert.Equal(t, int64(0), updated.Remaining)
		assert.Equal(t, models.LoanPaid, updated.Status)
	})

	t.Run("overpayment floors remaining at zero", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account, loan := makeLoan(t, store, engine, 20000, 650)

		updated, err := engine.RepayLoan(ctx, account.ID, loan.ID, 12000)
		require.NoError(t, err)
		assert.Equal(t, int64(0), updated.Remaining)
		assert.Equal(t, models.LoanPaid, updated.Status)

		// The full payment is still debited.
		owner, _ := store.GetAccount(ctx, account.ID)
		assert.Equal(t, int64(8000), owner.Balance)
	})

	t.Run("insufficient funds leaves loan untouched", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account, loan := makeLoan(t, store, engine, 500, 650)

		_, err := engine.RepayLoan(ctx, account.ID, loan.ID, 1000)
		assert.ErrorIs(t, err, bank.ErrInsufficientFunds)

		unchanged, _ := store.GetLoan(ctx, loan.ID)
		assert.Equal(t, int64(10000), unchanged.Remaining)
		owner, _ := store.GetAccount(ctx, account.ID)
		assert.Equal(t, int64(500), owner.Balance)
		assert.Equal(t, 650, owner.CreditScore)
	})

	t.Run("someone else's loan reads as not found", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		_, loan := makeLoan(t, store, engine, 5000, 650)
		other := newAccount(t, store, "Zebra34", models.RoleStandard, 5000, 650)

		_, err := engine.RepayLoan(ctx, other.ID, loan.ID, 1000)
		assert.ErrorIs(t, err, bank.ErrNotFound)
	})

	t.Run("missing loan", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account := newAccount(t, store, "Lion12", models.RoleStandard, 5000, 650)

		_, err := engine.RepayLoan(ctx, account.ID, 9999, 1000)
		assert.ErrorIs(t, err, bank.ErrNotFound)
	})
}

func TestLoanEngine_AutoRepaySweep(t *testing.T) {
	ctx := context.Background()

	originate := func(t *testing.T, store *storage.MemoryStore, engine *bank.LoanEngine, username string, principal, balance int64, score int) (*models.Account, *models.Loan) {
		t.Helper()
		account := newAccount(t, store, username, models.RoleStandard, 0, 700)
		loan, err := engine.ApplyForLoan(ctx, account.ID, principal)
		require.NoError(t, err)
		require.NoError(t, store.Atomic(ctx, func(tx bank.Tx) error {
			if err := tx.UpdateAccountBalance(account.ID, balance); err != nil {
				return err
			}
			return tx.UpdateAccountCreditScore(account.ID, score)
		}))
		return account, loan
	}

	t.Run("covered payment debits and rewards", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account, loan := originate(t, store, engine, "Lion12", 10000, 5000, 650)

		processed, err := engine.AutoRepaySweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, processed)

		// 5% of 10000 is below the 1000 floor, so the floor applies.
		swept, _ := store.GetLoan(ctx, loan.ID)
		assert.Equal(t, int64(9000), swept.Remaining)

		owner, _ := store.GetAccount(ctx, account.ID)
		assert.Equal(t, int64(4000), owner.Balance)
		assert.Equal(t, 655, owner.CreditScore)

		entries, _ := store.ListLedgerEntriesForAccount(ctx, account.ID, 10)
		require.NotEmpty(t, entries)
		assert.Equal(t, models.EntryLoanRepayment, entries[0].Kind)
		assert.Contains(t, entries[0].Note, "Auto-pay")
	})

	t.Run("five percent above floor", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account, loan := originate(t, store, engine, "Lion12", 50000, 10000, 700)

		_, err := engine.AutoRepaySweep(ctx)
		require.NoError(t, err)

		swept, _ := store.GetLoan(ctx, loan.ID)
		assert.Equal(t, int64(47500), swept.Remaining)
		owner, _ := store.GetAccount(ctx, account.ID)
		assert.Equal(t, int64(7500), owner.Balance)
	})

	t.Run("payment capped at remaining and closes the loan", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account, loan := originate(t, store, engine, "Lion12", 10000, 5000, 650)
		require.NoError(t, store.Atomic(ctx, func(tx bank.Tx) error {
			return tx.UpdateLoan(loan.ID, 400, models.LoanActive)
		}))

		_, err := engine.AutoRepaySweep(ctx)
		require.NoError(t, err)

		swept, _ := store.GetLoan(ctx, loan.ID)
		assert.Equal(t, int64(0), swept.Remaining)
		assert.Equal(t, models.LoanPaid, swept.Status)
		owner, _ := store.GetAccount(ctx, account.ID)
		assert.Equal(t, int64(4600), owner.Balance)
	})

	t.Run("insufficient funds penalizes score only", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account, loan := originate(t, store, engine, "Lion12", 10000, 0, 650)
		require.NoError(t, store.Atomic(ctx, func(tx bank.Tx) error {
			return tx.UpdateLoan(loan.ID, 1000, models.LoanActive)
		}))

		processed, err := engine.AutoRepaySweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, processed)

		unchanged, _ := store.GetLoan(ctx, loan.ID)
		assert.Equal(t, int64(1000), unchanged.Remaining)
		assert.Equal(t, models.LoanActive, unchanged.Status)

		owner, _ := store.GetAccount(ctx, account.ID)
		assert.Equal(t, int64(0), owner.Balance)
		assert.Equal(t, 640, owner.CreditScore)
	})

	t.Run("one owner's shortfall does not block other loans", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		broke, _ := originate(t, store, engine, "Lion12", 10000, 0, 650)
		funded, fundedLoan := originate(t, store, engine, "Zebra34", 10000, 5000, 650)

		processed, err := engine.AutoRepaySweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, processed)

		brokeOwner, _ := store.GetAccount(ctx, broke.ID)
		assert.Equal(t, 640, brokeOwner.CreditScore)

		swept, _ := store.GetLoan(ctx, fundedLoan.ID)
		assert.Equal(t, int64(9000), swept.Remaining)
		fundedOwner, _ := store.GetAccount(ctx, funded.ID)
		assert.Equal(t, 655, fundedOwner.CreditScore)
	})

	t.Run("paid loans are skipped", func(t *testing.T) {
		store := storage.NewMemoryStore()
		engine := bank.NewLoanEngine(store)
		account, loan := originate(t, store, engine, "Lion12", 10000, 20000, 650)

		_, err := engine.RepayLoan(ctx, account.ID, loan.ID, 10000)
		require.NoError(t, err)

		processed, err := engine.AutoRepaySweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, processed)
	})
}
