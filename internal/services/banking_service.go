package services

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/classbank/backend/internal/bank"
	"github.com/go-chi/chi/v5"
)

// BankingService exposes the money-movement operations over HTTP. All rule
// enforcement lives in the engines; this layer only decodes, validates shapes
// and maps domain errors to status codes.
type BankingService struct {
	ledger    *bank.LedgerEngine
	loans     *bank.LoanEngine
	store     bank.Store
	validator *ValidationHelper
}

func NewBankingService(ledger *bank.LedgerEngine, loans *bank.LoanEngine, store bank.Store) *BankingService {
	return &BankingService{
		ledger:    ledger,
		loans:     loans,
		store:     store,
		validator: NewValidationHelper(),
	}
}

// TransferRequest represents a peer transfer payload
// @Description Transfer request structure
type TransferRequest struct {
	ToAccountID int64  `json:"toAccountId" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,gt=0"` // in cents
	Note        string `json:"note,omitempty"`
}

// FineRequest represents an administrator fine payload
// @Description Fine request structure
type FineRequest struct {
	AccountID int64  `json:"accountId" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"` // in cents
	Reason    string `json:"reason" validate:"required"`
}

// LoanRequest represents a loan application payload
// @Description Loan application structure
type LoanRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"` // in cents
}

// RepaymentRequest represents a loan repayment payload
// @Description Loan repayment structure
type RepaymentRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"` // in cents
}

func (s *BankingService) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	if err := s.validator.ValidateStruct(dst); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

// Transfer moves money from the caller to another account
// @Summary Transfer funds
// @Description Transfer an amount in cents to another account
// @Tags banking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TransferRequest true "Transfer request"
// @Success 201 {object} models.LedgerEntry
// @Failure 400 {object} ErrorResponse
// @Failure 402 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /transfers [post]
func (s *BankingService) Transfer(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req TransferRequest
	if !s.decode(w, r, &req) {
		return
	}

	entry, err := s.ledger.Transfer(r.Context(), callerID, req.ToAccountID, req.Amount, req.Note)
	if err != nil {
		log.Printf("[BANK] Transfer from %d to %d failed: %v", callerID, req.ToAccountID, err)
		SendDomainError(w, err)
		return
	}

	log.Printf("[BANK] Transfer %s: %d -> %d, amount %d", entry.Reference, callerID, req.ToAccountID, req.Amount)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

// IssueFine levies a fine on a student account
// @Summary Issue fine
// @Description Levy a fine on an account; administrator only
// @Tags banking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FineRequest true "Fine request"
// @Success 201 {object} models.LedgerEntry
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /fines [post]
func (s *BankingService) IssueFine(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req FineRequest
	if !s.decode(w, r, &req) {
		return
	}

	entry, err := s.ledger.IssueFine(r.Context(), callerID, req.AccountID, req.Amount, req.Reason)
	if err != nil {
		log.Printf("[BANK] Fine on %d by %d failed: %v", req.AccountID, callerID, err)
		SendDomainError(w, err)
		return
	}

	log.Printf("[BANK] Fine %s: account %d, amount %d", entry.Reference, req.AccountID, req.Amount)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

// ApplyForLoan originates a loan for the caller
// @Summary Apply for a loan
// @Description Apply for a loan within the caller's credit-score ceiling
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LoanRequest true "Loan application"
// @Success 201 {object} models.Loan
// @Failure 400 {object} ErrorResponse "Denied, message states the ceiling"
// @Failure 404 {object} ErrorResponse
// @Router /loans [post]
func (s *BankingService) ApplyForLoan(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req LoanRequest
	if !s.decode(w, r, &req) {
		return
	}

	loan, err := s.loans.ApplyForLoan(r.Context(), callerID, req.Amount)
	if err != nil {
		log.Printf("[BANK] Loan application by %d for %d failed: %v", callerID, req.Amount, err)
		SendDomainError(w, err)
		return
	}

	log.Printf("[BANK] Loan #%d approved for account %d, principal %d", loan.ID, callerID, loan.Principal)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loan)
}

// RepayLoan pays an amount toward the caller's loan
// @Summary Repay a loan
// @Description Pay an amount toward one of the caller's loans
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param loanId path int true "Loan ID"
// @Param request body RepaymentRequest true "Repayment"
// @Success 200 {object} models.Loan
// @Failure 402 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /loans/{loanId}/repayments [post]
func (s *BankingService) RepayLoan(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	loanID, err := strconv.ParseInt(chi.URLParam(r, "loanId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid loan id", http.StatusBadRequest, nil)
		return
	}

	var req RepaymentRequest
	if !s.decode(w, r, &req) {
		return
	}

	loan, err := s.loans.RepayLoan(r.Context(), callerID, loanID, req.Amount)
	if err != nil {
		log.Printf("[BANK] Repayment on loan #%d by %d failed: %v", loanID, callerID, err)
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loan)
}

// ListLoans lists the caller's loans
// @Summary List loans
// @Description List the caller's loans, newest first
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{loans=[]models.Loan,count=int}
// @Router /loans [get]
func (s *BankingService) ListLoans(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	loans, err := s.store.ListLoansForAccount(r.Context(), callerID)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"loans": loans,
		"count": len(loans),
	})
}

// ListTransactions lists ledger entries touching the caller
// @Summary Transaction history
// @Description Ledger entries where the caller is sender or recipient, newest first
// @Tags banking
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of entries to return (default: 50)"
// @Success 200 {object} object{transactions=[]models.LedgerEntry,count=int}
// @Router /transactions [get]
func (s *BankingService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	entries, err := s.store.ListLedgerEntriesForAccount(r.Context(), callerID, limit)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": entries,
		"count":        len(entries),
	})
}

// RunAutoPay triggers one auto-repayment sweep
// @Summary Run auto-pay sweep
// @Description Trigger a single auto-repayment sweep; administrator only
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{processed=int}
// @Failure 403 {object} ErrorResponse
// @Router /admin/autopay/run [post]
func (s *BankingService) RunAutoPay(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	caller, err := s.store.GetAccount(r.Context(), callerID)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	if !caller.IsAdmin() {
		SendErrorResponse(w, "Only administrators can run the sweep", http.StatusForbidden, nil)
		return
	}

	processed, err := s.loans.AutoRepaySweep(r.Context())
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"processed": processed})
}
