package bank

import (
	"context"
	"fmt"
	"log"

	"github.com/classbank/backend/internal/models"
	"github.com/google/uuid"
)

const (
	loanInterestRate = 5 // percent, informational

	repayScoreStandard = 10
	repayScoreExtra    = 15

	autoPayMinimum      = 1000 // cents
	autoPayScoreReward  = 5
	autoPayScorePenalty = 10
)

// LoanEngine owns the loan lifecycle: origination against the credit-score
// eligibility table, manual repayment with its score reward, and the
// auto-repayment sweep invoked by the scheduler.
type LoanEngine struct {
	store Store
}

func NewLoanEngine(store Store) *LoanEngine {
	return &LoanEngine{store: store}
}

// MaxLoanAmount returns the eligibility ceiling in cents for a credit score.
func MaxLoanAmount(creditScore int) int64 {
	switch {
	case creditScore >= 700:
		return 50000
	case creditScore >= 600:
		return 20000
	case creditScore >= 500:
		return 5000
	default:
		return 0
	}
}

// ApplyForLoan originates a loan when amount is within the applicant's
// ceiling, credits the balance and records a disbursal entry.
func (e *LoanEngine) ApplyForLoan(ctx context.Context, accountID, amount int64) (*models.Loan, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	var loan *models.Loan
	err := e.store.Atomic(ctx, func(tx Tx) error {
		account, err := tx.GetAccountForUpdate(accountID)
		if err != nil {
			return err
		}

		if max := MaxLoanAmount(account.CreditScore); amount > max {
			return &DeniedError{MaxAmount: max}
		}

		loan = &models.Loan{
			AccountID: account.ID,
			Principal: amount,
			Remaining: amount,
			Rate:      loanInterestRate,
			Status:    models.LoanActive,
		}
		if err := tx.CreateLoan(loan); err != nil {
			return err
		}
		if err := tx.UpdateAccountBalance(account.ID, account.Balance+amount); err != nil {
			return err
		}

		return tx.AppendLedgerEntry(&models.LedgerEntry{
			Reference:   uuid.NewString(),
			ToAccountID: &account.ID,
			Amount:      amount,
			Kind:        models.EntryLoanDisbursal,
			Note:        fmt.Sprintf("Loan #%d approved", loan.ID),
		})
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// RepayLoan pays amount toward the caller's loan. Paying at least 20% of the
// principal in one go counts as an extra payment and earns the bigger score
// reward. The loan flips to paid the moment remaining reaches zero.
func (e *LoanEngine) RepayLoan(ctx context.Context, accountID, loanID, amount int64) (*models.Loan, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	var loan *models.Loan
	err := e.store.Atomic(ctx, func(tx Tx) error {
		l, err := tx.GetLoanForUpdate(loanID)
		if err != nil {
			return err
		}
		if l.AccountID != accountID {
			return fmt.Errorf("%w: loan #%d", ErrNotFound, loanID)
		}

		account, err := tx.GetAccountForUpdate(accountID)
		if err != nil {
			return err
		}
		if account.Balance < amount {
			return ErrInsufficientFunds
		}

		newRemaining := l.Remaining - amount
		if newRemaining < 0 {
			newRemaining = 0
		}
		status := models.LoanActive
		if newRemaining == 0 {
			status = models.LoanPaid
		}

		if err := tx.UpdateAccountBalance(account.ID, account.Balance-amount); err != nil {
			return err
		}
		if err := tx.UpdateLoan(l.ID, newRemaining, status); err != nil {
			return err
		}

		extra := 5*amount >= l.Principal // amount >= 20% of principal
		boost := repayScoreStandard
		kind := "Standard"
		if extra {
			boost = repayScoreExtra
			kind = "Extra"
		}
		if err := tx.UpdateAccountCreditScore(account.ID, models.ClampScore(account.CreditScore+boost)); err != nil {
			return err
		}

		if err := tx.AppendLedgerEntry(&models.LedgerEntry{
			Reference:     uuid.NewString(),
			FromAccountID: &account.ID,
			Amount:        amount,
			Kind:          models.EntryLoanRepayment,
			Note:          fmt.Sprintf("Repayment for loan #%d (%s payment)", l.ID, kind),
		}); err != nil {
			return err
		}

		l.Remaining = newRemaining
		l.Status = status
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// AutoRepaySweep forces a partial repayment on every active loan: 5% of the
// principal with a 1000-cent floor, capped at what remains. Owners who can
// cover the payment earn +5 score; owners who cannot lose 10 and keep their
// balance and loan untouched. Loans are processed independently so one
// failure never blocks the rest, and only loans still active at sweep time
// are acted on, which makes re-running the sweep safe. Returns the number of
// loans handled.
func (e *LoanEngine) AutoRepaySweep(ctx context.Context) (int, error) {
	loans, err := e.store.ListActiveLoans(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, loan := range loans {
		if err := e.sweepLoan(ctx, loan.ID); err != nil {
			log.Printf("[AUTOPAY] loan #%d: sweep failed: %v", loan.ID, err)
			continue
		}
		processed++
	}
	return processed, nil
}

func (e *LoanEngine) sweepLoan(ctx context.Context, loanID int64) error {
	return e.store.Atomic(ctx, func(tx Tx) error {
		loan, err := tx.GetLoanForUpdate(loanID)
		if err != nil {
			return err
		}
		if loan.Status != models.LoanActive {
			// Repaid between listing and locking; nothing to do.
			return nil
		}

		account, err := tx.GetAccountForUpdate(loan.AccountID)
		if err != nil {
			return err
		}

		payment := loan.Principal * 5 / 100
		if payment < autoPayMinimum {
			payment = autoPayMinimum
		}
		if payment > loan.Remaining {
			payment = loan.Remaining
		}

		if account.Balance < payment {
			log.Printf("[AUTOPAY] loan #%d: account %d cannot cover %d, score penalty applied", loan.ID, account.ID, payment)
			return tx.UpdateAccountCreditScore(account.ID, models.ClampScore(account.CreditScore-autoPayScorePenalty))
		}

		newRemaining := loan.Remaining - payment
		status := models.LoanActive
		if newRemaining == 0 {
			status = models.LoanPaid
		}

		if err := tx.UpdateAccountBalance(account.ID, account.Balance-payment); err != nil {
			return err
		}
		if err := tx.UpdateLoan(loan.ID, newRemaining, status); err != nil {
			return err
		}
		if err := tx.UpdateAccountCreditScore(account.ID, models.ClampScore(account.CreditScore+autoPayScoreReward)); err != nil {
			return err
		}

		return tx.AppendLedgerEntry(&models.LedgerEntry{
			Reference:     uuid.NewString(),
			FromAccountID: &account.ID,
			Amount:        payment,
			Kind:          models.EntryLoanRepayment,
			Note:          fmt.Sprintf("Auto-pay for loan #%d", loan.ID),
		})
	})
}
