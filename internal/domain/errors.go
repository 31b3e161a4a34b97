package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("not permitted to act on this resource")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrSelfTransfer      = errors.New("cannot transfer to yourself")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrProviderNotFound  = errors.New("credit provider not found")
	ErrUserExists        = errors.New("user with this email or phone already exists")

	ErrDailyLimitExceeded         = errors.New("daily transfer limit exceeded")
	ErrAmountOutOfRange           = errors.New("amount outside provider loan range")
	ErrTenureExceeded             = errors.New("tenure exceeds provider maximum")
	ErrAmountExceedsBalance       = errors.New("amount exceeds remaining balance")
	ErrCreditLimitTooLow          = errors.New("requested limit must be higher than current limit")
	ErrInsufficientCreditHeadroom = errors.New("obligation exceeds available credit headroom")
	ErrCreditLimitCapped          = errors.New("requested limit exceeds maximum allowed")
	ErrKYCRequired                = errors.New("kyc verification required")

	ErrNotDebtHolder    = errors.New("only the current debt holder may perform this action")
	ErrAlreadyPaid      = errors.New("obligation is already paid")
	ErrAlreadyProcessed = errors.New("request is already processed")
	ErrRequestExpired   = errors.New("request has expired")
	ErrInvalidStatus    = errors.New("invalid status transition")

	ErrVersionConflict = errors.New("optimistic lock conflict")
	ErrInvalidRequest  = errors.New("invalid request")
)
