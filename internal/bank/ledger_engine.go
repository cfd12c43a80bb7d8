package bank

import (
	"context"
	"fmt"

	"github.com/classbank/backend/internal/models"
	"github.com/google/uuid"
)

const fineScorePenalty = 15

// LedgerEngine performs direct money movements between accounts: peer
// transfers and administrator fines. Every operation validates fully, mutates
// balances and scores, and appends exactly one ledger entry, all inside a
// single atomic unit.
type LedgerEngine struct {
	store Store
}

func NewLedgerEngine(store Store) *LedgerEngine {
	return &LedgerEngine{store: store}
}

// Transfer moves amount from sender to recipient and records a transfer entry.
// It has no credit-score effect.
func (e *LedgerEngine) Transfer(ctx context.Context, senderID, recipientID, amount int64, note string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if senderID == recipientID {
		return nil, fmt.Errorf("%w: cannot transfer to your own account", ErrInvalidInput)
	}
	if note == "" {
		note = "Money transfer"
	}

	var entry *models.LedgerEntry
	err := e.store.Atomic(ctx, func(tx Tx) error {
		// Lock accounts in id order to prevent deadlocks between
		// concurrent transfers in opposite directions.
		firstID, secondID := senderID, recipientID
		if firstID > secondID {
			firstID, secondID = secondID, firstID
		}

		first, err := tx.GetAccountForUpdate(firstID)
		if err != nil {
			return err
		}
		second, err := tx.GetAccountForUpdate(secondID)
		if err != nil {
			return err
		}

		sender, recipient := first, second
		if sender.ID != senderID {
			sender, recipient = second, first
		}

		if sender.Balance < amount {
			return ErrInsufficientFunds
		}

		if err := tx.UpdateAccountBalance(sender.ID, sender.Balance-amount); err != nil {
			return err
		}
		if err := tx.UpdateAccountBalance(recipient.ID, recipient.Balance+amount); err != nil {
			return err
		}

		entry = &models.LedgerEntry{
			Reference:     uuid.NewString(),
			FromAccountID: &sender.ID,
			ToAccountID:   &recipient.ID,
			Amount:        amount,
			Kind:          models.EntryTransfer,
			Note:          note,
		}
		return tx.AppendLedgerEntry(entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// IssueFine debits the target and lowers its credit score by 15 points,
// floored at 300. Only administrators may fine. The deduction is capped at the
// available balance so the balance never goes negative; the entry records the
// levied amount and the note records the collected amount when capped.
func (e *LedgerEngine) IssueFine(ctx context.Context, adminID, targetID, amount int64, reason string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	admin, err := e.store.GetAccount(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, fmt.Errorf("%w: only administrators can issue fines", ErrForbidden)
	}

	var entry *models.LedgerEntry
	err = e.store.Atomic(ctx, func(tx Tx) error {
		target, err := tx.GetAccountForUpdate(targetID)
		if err != nil {
			return err
		}

		collected := amount
		if collected > target.Balance {
			collected = target.Balance
		}

		if err := tx.UpdateAccountBalance(target.ID, target.Balance-collected); err != nil {
			return err
		}
		if err := tx.UpdateAccountCreditScore(target.ID, models.ClampScore(target.CreditScore-fineScorePenalty)); err != nil {
			return err
		}

		note := reason
		if collected < amount {
			note = fmt.Sprintf("%s (collected %d)", reason, collected)
		}
		entry = &models.LedgerEntry{
			Reference:     uuid.NewString(),
			FromAccountID: &target.ID,
			ToAccountID:   nil,
			Amount:        amount,
			Kind:          models.EntryFine,
			Note:          note,
		}
		return tx.AppendLedgerEntry(entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
