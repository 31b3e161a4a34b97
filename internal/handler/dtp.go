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
	"github.com/gbese/gbese-backend/internal/service/dtp"
)

type dtpService interface {
	Initiate(ctx context.Context, req dtp.InitiateRequest) (*domain.DebtTransferRequest, error)
	Respond(ctx context.Context, userID, requestID uuid.UUID, accept bool) (*domain.DebtTransferRequest, error)
	Cancel(ctx context.Context, userID, requestID uuid.UUID) error
	GetRequest(ctx context.Context, requestID, userID uuid.UUID) (*domain.DebtTransferRequest, error)
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]domain.DebtTransferRequest, error)
	ListOutgoing(ctx context.Context, userID uuid.UUID) ([]domain.DebtTransferRequest, error)
	FindMatches(ctx context.Context, userID uuid.UUID, limit int) ([]repository.TransferCandidate, error)
}

type DTPHandler struct {
	transfers dtpService
}

func NewDTPHandler(transfers dtpService) *DTPHandler {
	return &DTPHandler{transfers: transfers}
}

type transferRequestDTO struct {
	ID              uuid.UUID  `json:"id"`
	RequestNumber   string     `json:"request_number"`
	DebtID          uuid.UUID  `json:"debt_id"`
	SenderID        uuid.UUID  `json:"sender_id"`
	RecipientID     uuid.UUID  `json:"recipient_id"`
	Status          string     `json:"status"`
	IncentiveAmount int64      `json:"incentive_amount"`
	TransferType    string     `json:"transfer_type"`
	Reason          string     `json:"reason,omitempty"`
	ExpiresAt       time.Time  `json:"expires_at"`
	CreatedAt       time.Time  `json:"created_at"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
}

func toTransferRequestDTO(req *domain.DebtTransferRequest) transferRequestDTO {
	return transferRequestDTO{
		ID:              req.ID,
		RequestNumber:   req.RequestNumber,
		DebtID:          req.DebtID,
		SenderID:        req.SenderID,
		RecipientID:     req.RecipientID,
		Status:          string(req.Status),
		IncentiveAmount: req.IncentiveAmount,
		TransferType:    string(req.TransferType),
		Reason:          req.Reason,
		ExpiresAt:       req.ExpiresAt,
		CreatedAt:       req.CreatedAt,
		AcceptedAt:      req.AcceptedAt,
		RejectedAt:      req.RejectedAt,
	}
}

type initiateRequest struct {
	DebtID          string `json:"debt_id"`
	Recipient       string `json:"recipient"`
	IncentiveAmount int64  `json:"incentive_amount"`
	TransferType    string `json:"transfer_type"`
	Reason          string `json:"reason"`
}

func (r initiateRequest) Validate() []FieldError {
	var errs []FieldError
	if r.DebtID == "" {
		errs = append(errs, FieldError{Field: "debt_id", Message: "required"})
	} else if _, err := uuid.Parse(r.DebtID); err != nil {
		errs = append(errs, FieldError{Field: "debt_id", Message: "must be a valid uuid"})
	}
	if r.Recipient == "" {
		errs = append(errs, FieldError{Field: "recipient", Message: "required"})
	}
	if r.IncentiveAmount < 0 {
		errs = append(errs, FieldError{Field: "incentive_amount", Message: "must not be negative"})
	}
	switch r.TransferType {
	case "", "direct", "marketplace":
	default:
		errs = append(errs, FieldError{Field: "transfer_type", Message: "must be direct or marketplace"})
	}
	return errs
}

func (h *DTPHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}
	debtID, _ := uuid.Parse(req.DebtID)

	request, err := h.transfers.Initiate(r.Context(), dtp.InitiateRequest{
		SenderID:            userID,
		DebtID:              debtID,
		RecipientIdentifier: req.Recipient,
		IncentiveAmount:     req.IncentiveAmount,
		TransferType:        domain.TransferType(req.TransferType),
		Reason:              req.Reason,
	})
	if err != nil {
		log.Warn("debt transfer initiation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTransferRequestDTO(request))
}

type respondRequest struct {
	Action string `json:"action"`
}

func (r respondRequest) Validate() []FieldError {
	if r.Action != "accept" && r.Action != "reject" {
		return []FieldError{{Field: "action", Message: "must be accept or reject"}}
	}
	return nil
}

func (h *DTPHandler) Respond(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	request, err := h.transfers.Respond(r.Context(), userID, requestID, req.Action == "accept")
	if err != nil {
		log.Warn("debt transfer response failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransferRequestDTO(request))
}

func (h *DTPHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.transfers.Cancel(r.Context(), userID, requestID); err != nil {
		logging.FromContext(r.Context()).Warn("debt transfer cancellation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *DTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	request, err := h.transfers.GetRequest(r.Context(), requestID, userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransferRequestDTO(request))
}

func (h *DTPHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.transfers.ListIncoming)
}

func (h *DTPHandler) ListOutgoing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.transfers.ListOutgoing)
}

func (h *DTPHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, uuid.UUID) ([]domain.DebtTransferRequest, error)) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	requests, err := fetch(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list transfer requests", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transferRequestDTO, 0, len(requests))
	for i := range requests {
		dtos = append(dtos, toTransferRequestDTO(&requests[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

type candidateDTO struct {
	UserID          uuid.UUID `json:"user_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	ReputationScore int64     `json:"reputation_score"`
	AvailableCredit int64     `json:"available_credit"`
}

func (h *DTPHandler) Matches(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	candidates, err := h.transfers.FindMatches(r.Context(), userID, intQuery(r, "limit", 10))
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to find matches", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]candidateDTO, 0, len(candidates))
	for _, c := range candidates {
		dtos = append(dtos, candidateDTO{
			UserID:          c.User.ID,
			FirstName:       c.User.FirstName,
			LastName:        c.User.LastName,
			ReputationScore: c.User.ReputationScore,
			AvailableCredit: c.AvailableCredit,
		})
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
