package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrForbidden          = &AppError{http.StatusForbidden, "FORBIDDEN", "You are not allowed to act on this resource"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientFunds    = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrSelfTransfer         = &AppError{http.StatusUnprocessableEntity, "SELF_TRANSFER_NOT_ALLOWED", "Cannot transfer to yourself"}
	ErrRecipientNotFound    = &AppError{http.StatusUnprocessableEntity, "RECIPIENT_NOT_FOUND", "Recipient not found"}
	ErrAccountNotFound      = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrProviderNotFound     = &AppError{http.StatusUnprocessableEntity, "PROVIDER_NOT_FOUND", "Credit provider not found"}
	ErrUserExists           = &AppError{http.StatusConflict, "USER_ALREADY_EXISTS", "A user with this email or phone already exists"}
	ErrDailyLimitExceeded   = &AppError{http.StatusUnprocessableEntity, "DAILY_LIMIT_EXCEEDED", "Daily transfer limit exceeded"}
	ErrAmountOutOfRange     = &AppError{http.StatusUnprocessableEntity, "AMOUNT_OUT_OF_RANGE", "Amount is outside the provider's loan range"}
	ErrTenureExceeded       = &AppError{http.StatusUnprocessableEntity, "TENURE_OUT_OF_RANGE", "Tenure is outside the provider's allowed range"}
	ErrAmountExceedsBalance = &AppError{http.StatusUnprocessableEntity, "AMOUNT_EXCEEDS_BALANCE", "Amount exceeds the remaining debt balance"}
	ErrCreditLimitTooLow    = &AppError{http.StatusUnprocessableEntity, "CREDIT_LIMIT_TOO_LOW", "Requested limit must be higher than the current limit"}
	ErrCreditLimitCapped    = &AppError{http.StatusUnprocessableEntity, "CREDIT_LIMIT_CAPPED", "Requested limit exceeds the system maximum"}

	ErrInsufficientCreditHeadroom = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_CREDIT_HEADROOM", "Obligation exceeds available credit headroom"}
	ErrKYCRequired          = &AppError{http.StatusForbidden, "KYC_REQUIRED", "Identity verification required"}
	ErrNotDebtHolder        = &AppError{http.StatusForbidden, "NOT_DEBT_HOLDER", "Only the current debt holder may do this"}
	ErrAlreadyPaid          = &AppError{http.StatusUnprocessableEntity, "DEBT_ALREADY_PAID", "Debt is already fully paid"}
	ErrAlreadyProcessed     = &AppError{http.StatusConflict, "REQUEST_ALREADY_PROCESSED", "Request has already been processed"}
	ErrRequestExpired       = &AppError{http.StatusGone, "REQUEST_EXPIRED", "Request has expired"}

	ErrVersionConflict       = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
	ErrInvalidAmount         = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
)
