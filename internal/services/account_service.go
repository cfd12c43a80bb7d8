package services

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/classbank/backend/internal/bank"
	"github.com/classbank/backend/internal/models"
	"github.com/go-chi/chi/v5"
)

// AccountService serves the account directory and admin provisioning.
type AccountService struct {
	store     bank.Store
	validator *ValidationHelper
}

func NewAccountService(store bank.Store) *AccountService {
	return &AccountService{
		store:     store,
		validator: NewValidationHelper(),
	}
}

// AccountSummary is the directory view students get: enough to pick a
// transfer recipient, nothing about balances or scores.
type AccountSummary struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// ProvisionRequest represents an account provisioning payload
// @Description Account provisioning structure
type ProvisionRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=5"`
	Admin    bool   `json:"admin"`
}

// ListAccounts lists all accounts
// @Summary List accounts
// @Description Directory of all accounts; administrators see balances and credit scores
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{accounts=[]models.Account,count=int}
// @Router /accounts [get]
func (s *AccountService) ListAccounts(w http.ResponseWriter, r *http.Request) {
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

	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if caller.IsAdmin() {
		json.NewEncoder(w).Encode(map[string]any{"accounts": accounts, "count": len(accounts)})
		return
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		summaries = append(summaries, AccountSummary{ID: account.ID, Username: account.Username, Role: account.Role})
	}
	json.NewEncoder(w).Encode(map[string]any{"accounts": summaries, "count": len(summaries)})
}

// GetAccount fetches one account
// @Summary Get account
// @Description Fetch one account by id; non-admins only see their own full record
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} models.Account
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{id} [get]
func (s *AccountService) GetAccount(w http.ResponseWriter, r *http.Request) {
	callerID, ok := CallerID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	account, err := s.store.GetAccount(r.Context(), id)
	if err != nil {
		SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if id == callerID {
		json.NewEncoder(w).Encode(account)
		return
	}

	caller, err := s.store.GetAccount(r.Context(), callerID)
	if err != nil {
		SendDomainError(w, err)
		return
	}
	if caller.IsAdmin() {
		json.NewEncoder(w).Encode(account)
		return
	}
	json.NewEncoder(w).Encode(AccountSummary{ID: account.ID, Username: account.Username, Role: account.Role})
}

// ProvisionAccount creates a new classroom account
// @Summary Provision account
// @Description Create a student or administrator account; administrator only
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProvisionRequest true "Provisioning request"
// @Success 201 {object} models.Account
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /accounts [post]
func (s *AccountService) ProvisionAccount(w http.ResponseWriter, r *http.Request) {
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
		SendErrorResponse(w, "Only administrators can provision accounts", http.StatusForbidden, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req ProvisionRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := newClassroomAccount(req.Username, req.Password, req.Admin)
	if err != nil {
		log.Printf("[ACCOUNTS] Password hashing failed for %s: %v", req.Username, err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	if err := s.store.CreateAccount(r.Context(), account); err != nil {
		log.Printf("[ACCOUNTS] Provisioning failed for %s: %v", req.Username, err)
		SendErrorResponse(w, "Username already exists", http.StatusConflict, nil)
		return
	}

	log.Printf("[ACCOUNTS] Provisioned account %d (%s)", account.ID, account.Username)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
}
