package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/classbank/backend/internal/bank"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErr.(validator.ValidationErrors) {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// SendDomainError maps a bank error to its HTTP status and renders it.
func SendDomainError(w http.ResponseWriter, err error) {
	var denied *bank.DeniedError
	switch {
	case errors.Is(err, bank.ErrNotFound):
		SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
	case errors.Is(err, bank.ErrForbidden):
		SendErrorResponse(w, err.Error(), http.StatusForbidden, nil)
	case errors.Is(err, bank.ErrInsufficientFunds):
		SendErrorResponse(w, err.Error(), http.StatusPaymentRequired, nil)
	case errors.Is(err, bank.ErrInvalidInput):
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.As(err, &denied):
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		SendErrorResponse(w, "Failed to process request", http.StatusInternalServerError, nil)
	}
}
