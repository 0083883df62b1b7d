package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/capvault/internal/contract"
	"github.com/rpggio/capvault/internal/domain/activity"
	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/domain/investor"
	"github.com/rpggio/capvault/internal/domain/quote"
	"github.com/rpggio/capvault/internal/domain/submission"
	"github.com/rpggio/capvault/internal/repository"
)

// ErrInvalidParams indicates tool arguments that could not be used.
var ErrInvalidParams = errors.New("invalid parameters")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
// Failed contract writes report the failure verbatim, without the
// operation prefix.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	mapped := mapDomainError(err)
	var werr *captable.WriteError
	if errors.As(err, &werr) {
		if mapped == nil {
			mapped = &APIError{Code: "WRITE_FAILED"}
		}
		mapped.Message = werr.Cause()
		mapped.Details = map[string]string{"op": werr.Op}
	}
	return mapped
}

func mapDomainError(err error) *APIError {
	switch {
	case errors.Is(err, ErrInvalidParams):
		return &APIError{Code: "INVALID_PARAMS", Message: err.Error(), RecoveryHint: "Check the tool's input schema"}
	case errors.Is(err, captable.ErrCompanyNotFound):
		return &APIError{Code: "COMPANY_NOT_FOUND", Message: "company not found", RecoveryHint: "Call list_companies for valid ids"}
	case errors.Is(err, captable.ErrFractionalValue):
		return &APIError{Code: "INVALID_VALUE", Message: err.Error(), RecoveryHint: "Use a whole amount"}
	case errors.Is(err, captable.ErrInvalidInput),
		errors.Is(err, investor.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, quote.ErrInvalidAmount), errors.Is(err, quote.ErrInvalidShares):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Edit the amount or shares"}
	case errors.Is(err, submission.ErrMissingInput):
		return &APIError{Code: "MISSING_INPUT", Message: err.Error(), RecoveryHint: "Call edit_investment first"}
	case errors.Is(err, submission.ErrInFlight):
		return &APIError{Code: "IN_FLIGHT", Message: err.Error(), RecoveryHint: "Wait for investment_status to settle"}
	case errors.Is(err, submission.ErrNotCancellable):
		return &APIError{Code: "NOT_CANCELLABLE", Message: err.Error(), RecoveryHint: "Wait for the submission to settle"}
	case errors.Is(err, submission.ErrNotAwaiting):
		return &APIError{Code: "NOT_AWAITING", Message: err.Error()}
	case errors.Is(err, submission.ErrFlowClosed), errors.Is(err, submission.ErrFlowNotFound):
		return &APIError{Code: "SUBMISSION_NOT_FOUND", Message: "submission not found", RecoveryHint: "Call start_investment"}
	case errors.Is(err, submission.ErrListingClosed):
		return &APIError{Code: "LISTING_CLOSED", Message: err.Error()}
	case errors.Is(err, submission.ErrReverted), errors.Is(err, contract.ErrReverted):
		return &APIError{Code: "REVERTED", Message: err.Error()}
	case errors.Is(err, submission.ErrConfirmTimeout):
		return &APIError{Code: "CONFIRM_TIMEOUT", Message: err.Error(), RecoveryHint: "Check the transaction, then submit again or cancel"}
	case errors.Is(err, contract.ErrReadOnly):
		return &APIError{Code: "READ_ONLY", Message: err.Error(), RecoveryHint: "Configure chain.private_key"}
	case errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: err.Error()}
	default:
		return nil
	}
}
