package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gbese/gbese-backend/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		appErr = ErrForbidden
	case errors.Is(err, domain.ErrInsufficientFunds):
		appErr = ErrInsufficientFunds
	case errors.Is(err, domain.ErrSelfTransfer):
		appErr = ErrSelfTransfer
	case errors.Is(err, domain.ErrRecipientNotFound):
		appErr = ErrRecipientNotFound
	case errors.Is(err, domain.ErrAccountNotFound):
		appErr = ErrAccountNotFound
	case errors.Is(err, domain.ErrProviderNotFound):
		appErr = ErrProviderNotFound
	case errors.Is(err, domain.ErrUserExists):
		appErr = ErrUserExists
	case errors.Is(err, domain.ErrDailyLimitExceeded):
		appErr = ErrDailyLimitExceeded
	case errors.Is(err, domain.ErrAmountOutOfRange):
		appErr = ErrAmountOutOfRange
	case errors.Is(err, domain.ErrTenureExceeded):
		appErr = ErrTenureExceeded
	case errors.Is(err, domain.ErrAmountExceedsBalance):
		appErr = ErrAmountExceedsBalance
	case errors.Is(err, domain.ErrCreditLimitTooLow):
		appErr = ErrCreditLimitTooLow
	case errors.Is(err, domain.ErrInsufficientCreditHeadroom):
		appErr = ErrInsufficientCreditHeadroom
	case errors.Is(err, domain.ErrCreditLimitCapped):
		appErr = ErrCreditLimitCapped
	case errors.Is(err, domain.ErrKYCRequired):
		appErr = ErrKYCRequired
	case errors.Is(err, domain.ErrNotDebtHolder):
		appErr = ErrNotDebtHolder
	case errors.Is(err, domain.ErrAlreadyPaid):
		appErr = ErrAlreadyPaid
	case errors.Is(err, domain.ErrAlreadyProcessed):
		appErr = ErrAlreadyProcessed
	case errors.Is(err, domain.ErrRequestExpired):
		appErr = ErrRequestExpired
	case errors.Is(err, domain.ErrVersionConflict):
		appErr = ErrVersionConflict
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidStatus):
		appErr = ErrAlreadyProcessed
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
