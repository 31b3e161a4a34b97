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
	"github.com/gbese/gbese-backend/internal/repository"
	"github.com/gbese/gbese-backend/internal/service/transfer"
)

type transferService interface {
	Transfer(ctx context.Context, req transfer.Request) (*domain.Transaction, error)
	InitiateDeposit(ctx context.Context, userID uuid.UUID, amount int64, description string) (*domain.Transaction, error)
	ConfirmDeposit(ctx context.Context, reference string) (*domain.Transaction, error)
	InitiateWithdrawal(ctx context.Context, userID uuid.UUID, amount int64, description string) (*domain.Transaction, error)
	ConfirmWithdrawal(ctx context.Context, reference string) (*domain.Transaction, error)
	FailWithdrawal(ctx context.Context, reference string) (*domain.Transaction, error)
	GetTransactionByReference(ctx context.Context, reference string, userID uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, f repository.TransactionFilter) ([]domain.Transaction, int, error)
}

type TransferHandler struct {
	transfers transferService
}

func NewTransferHandler(transfers transferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type createTransferRequest struct {
	Recipient   string `json:"recipient"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

func (r createTransferRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Recipient == "" {
		errs = append(errs, FieldError{Field: "recipient", Message: "required"})
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

type fundingRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

func (r fundingRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

type transactionDTO struct {
	ID              uuid.UUID  `json:"id"`
	ReferenceNumber string     `json:"reference_number"`
	Type            string     `json:"type"`
	SenderID        *uuid.UUID `json:"sender_id,omitempty"`
	RecipientID     *uuid.UUID `json:"recipient_id,omitempty"`
	Amount          int64      `json:"amount"`
	Fee             int64      `json:"fee"`
	Status          string     `json:"status"`
	Description     string     `json:"description,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:              t.ID,
		ReferenceNumber: t.ReferenceNumber,
		Type:            string(t.Type),
		SenderID:        t.SenderID,
		RecipientID:     t.RecipientID,
		Amount:          t.Amount,
		Fee:             t.Fee,
		Status:          string(t.Status),
		Description:     t.Description,
		CreatedAt:       t.CreatedAt,
		CompletedAt:     t.CompletedAt,
	}
}

func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	t, err := h.transfers.Transfer(r.Context(), transfer.Request{
		SenderUserID:        userID,
		RecipientIdentifier: req.Recipient,
		Amount:              req.Amount,
		Description:         req.Description,
	})
	if err != nil {
		log.Warn("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTransactionDTO(t))
}

func (h *TransferHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.initiateFunding(w, r, h.transfers.InitiateDeposit)
}

func (h *TransferHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.initiateFunding(w, r, h.transfers.InitiateWithdrawal)
}

func (h *TransferHandler) initiateFunding(w http.ResponseWriter, r *http.Request, initiate func(context.Context, uuid.UUID, int64, string) (*domain.Transaction, error)) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req fundingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	t, err := initiate(r.Context(), userID, req.Amount, req.Description)
	if err != nil {
		logging.FromContext(r.Context()).Warn("funding initiation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusAccepted, toTransactionDTO(t))
}

type settleRequest struct {
	Reference string `json:"reference"`
	Outcome   string `json:"outcome"`
}

func (r settleRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Reference == "" {
		errs = append(errs, FieldError{Field: "reference", Message: "required"})
	}
	if r.Outcome != "" && r.Outcome != "completed" && r.Outcome != "failed" {
		errs = append(errs, FieldError{Field: "outcome", Message: "must be completed or failed"})
	}
	return errs
}

// SettleDeposit applies the external rail's confirmation of an inbound
// funding.
func (h *TransferHandler) SettleDeposit(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	t, err := h.transfers.ConfirmDeposit(r.Context(), req.Reference)
	if err != nil {
		logging.FromContext(r.Context()).Warn("deposit settlement failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(t))
}

// SettleWithdrawal applies the external rail's verdict on a pending
// withdrawal.
func (h *TransferHandler) SettleWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	settle := h.transfers.ConfirmWithdrawal
	if req.Outcome == "failed" {
		settle = h.transfers.FailWithdrawal
	}

	t, err := settle(r.Context(), req.Reference)
	if err != nil {
		logging.FromContext(r.Context()).Warn("withdrawal settlement failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(t))
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	t, err := h.transfers.GetTransactionByReference(r.Context(), r.PathValue("reference"), userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transaction lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(t))
}

type transactionListResponse struct {
	Transactions []transactionDTO `json:"transactions"`
	Total        int              `json:"total"`
	Limit        int              `json:"limit"`
	Offset       int              `json:"offset"`
}

func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	f := repository.TransactionFilter{
		Limit:  intQuery(r, "limit", 20),
		Offset: intQuery(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := domain.TransactionType(raw)
		f.Type = &t
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.TransactionStatus(raw)
		f.Status = &s
	}

	txns, total, err := h.transfers.ListTransactions(r.Context(), userID, f)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list transactions", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transactionDTO, 0, len(txns))
	for i := range txns {
		dtos = append(dtos, toTransactionDTO(&txns[i]))
	}
	RespondSuccess(w, http.StatusOK, transactionListResponse{
		Transactions: dtos,
		Total:        total,
		Limit:        f.Limit,
		Offset:       f.Offset,
	})
}
