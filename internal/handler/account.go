package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/auth"
	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/logging"
)

type accountService interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	RequestLimitIncrease(ctx context.Context, userID uuid.UUID, newLimit int64) (*domain.Account, error)
	SetDailyTransferLimit(ctx context.Context, userID uuid.UUID, newLimit int64) (*domain.Account, error)
	ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
}

type AccountHandler struct {
	accounts accountService
}

func NewAccountHandler(accounts accountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type accountDTO struct {
	ID                  uuid.UUID `json:"id"`
	AccountNumber       string    `json:"account_number"`
	CurrentBalance      int64     `json:"current_balance"`
	CreditLimit         int64     `json:"credit_limit"`
	AvailableCredit     int64     `json:"available_credit"`
	TotalDebtObligation int64     `json:"total_debt_obligation"`
	PendingTransfersOut int64     `json:"pending_transfers_out"`
	DailyTransferLimit  int64     `json:"daily_transfer_limit"`
	DailyRemaining      int64     `json:"daily_remaining"`
	CreatedAt           time.Time `json:"created_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:                  a.ID,
		AccountNumber:       a.AccountNumber,
		CurrentBalance:      a.CurrentBalance,
		CreditLimit:         a.CreditLimit,
		AvailableCredit:     a.AvailableCredit(),
		TotalDebtObligation: a.TotalDebtObligation,
		PendingTransfersOut: a.PendingTransfersOut,
		DailyTransferLimit:  a.DailyTransferLimit,
		DailyRemaining:      a.DailyRemaining(),
		CreatedAt:           a.CreatedAt,
	}
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	user, err := h.accounts.GetUser(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get user", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toUserDTO(user))
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get account", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

type limitRequest struct {
	NewLimit int64 `json:"new_limit"`
}

func (r limitRequest) Validate() []FieldError {
	var errs []FieldError
	if r.NewLimit <= 0 {
		errs = append(errs, FieldError{Field: "new_limit", Message: "must be greater than 0"})
	}
	return errs
}

func (h *AccountHandler) IncreaseCreditLimit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req limitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.accounts.RequestLimitIncrease(r.Context(), userID, req.NewLimit)
	if err != nil {
		logging.FromContext(r.Context()).Warn("credit limit increase failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *AccountHandler) SetDailyLimit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req limitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.accounts.SetDailyTransferLimit(r.Context(), userID, req.NewLimit)
	if err != nil {
		logging.FromContext(r.Context()).Warn("daily limit update failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

type notificationDTO struct {
	ID        uuid.UUID  `json:"id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      string     `json:"link,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (h *AccountHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit := intQuery(r, "limit", 20)
	notifications, err := h.accounts.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list notifications", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]notificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, notificationDTO{
			ID:        n.ID,
			Kind:      string(n.Kind),
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
