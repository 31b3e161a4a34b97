package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gbese/gbese-backend/internal/auth"
	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/logging"
)

type debtService interface {
	GetObligation(ctx context.Context, obligationID, userID uuid.UUID) (*domain.DebtObligation, error)
	ListBorrowed(ctx context.Context, userID uuid.UUID, status *domain.ObligationStatus) ([]domain.DebtObligation, error)
	ListHeld(ctx context.Context, userID uuid.UUID) ([]domain.DebtObligation, error)
	Repay(ctx context.Context, userID, obligationID uuid.UUID, amount int64) (*domain.DebtObligation, error)
	ListPayments(ctx context.Context, obligationID, userID uuid.UUID) ([]domain.Transaction, error)
	SchedulePayment(ctx context.Context, userID, obligationID uuid.UUID, amount int64, frequency string, firstExecution time.Time) (*domain.PaymentSchedule, error)
	ListSchedules(ctx context.Context, userID, obligationID uuid.UUID) ([]domain.PaymentSchedule, error)
}

type DebtHandler struct {
	debts debtService
}

func NewDebtHandler(debts debtService) *DebtHandler {
	return &DebtHandler{debts: debts}
}

type obligationDTO struct {
	ID               uuid.UUID       `json:"id"`
	ObligationNumber string          `json:"obligation_number"`
	CurrentHolderID  uuid.UUID       `json:"current_holder_id"`
	OriginalBorrower uuid.UUID       `json:"original_borrower_id"`
	PrincipalAmount  int64           `json:"principal_amount"`
	RemainingBalance int64           `json:"remaining_balance"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	MonthlyPayment   int64           `json:"monthly_payment"`
	DueDate          time.Time       `json:"due_date"`
	NextPaymentDate  time.Time       `json:"next_payment_date"`
	Status           string          `json:"status"`
	TransferredAt    *time.Time      `json:"transferred_at,omitempty"`
	PaidOffAt        *time.Time      `json:"paid_off_at,omitempty"`
}

func toObligationDTO(o *domain.DebtObligation) obligationDTO {
	return obligationDTO{
		ID:               o.ID,
		ObligationNumber: o.ObligationNumber,
		CurrentHolderID:  o.CurrentHolderID,
		OriginalBorrower: o.OriginalBorrowerID,
		PrincipalAmount:  o.PrincipalAmount,
		RemainingBalance: o.RemainingBalance,
		InterestRate:     o.InterestRate,
		MonthlyPayment:   o.MonthlyPayment,
		DueDate:          o.DueDate,
		NextPaymentDate:  o.NextPaymentDate,
		Status:           string(o.Status),
		TransferredAt:    o.TransferredAt,
		PaidOffAt:        o.PaidOffAt,
	}
}

func (h *DebtHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var (
		obligations []domain.DebtObligation
		err         error
	)
	if r.URL.Query().Get("role") == "holder" {
		obligations, err = h.debts.ListHeld(r.Context(), userID)
	} else {
		var status *domain.ObligationStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			s := domain.ObligationStatus(raw)
			status = &s
		}
		obligations, err = h.debts.ListBorrowed(r.Context(), userID, status)
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list obligations", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]obligationDTO, 0, len(obligations))
	for i := range obligations {
		dtos = append(dtos, toObligationDTO(&obligations[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *DebtHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	obligationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	o, err := h.debts.GetObligation(r.Context(), obligationID, userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toObligationDTO(o))
}

type repayRequest struct {
	Amount int64 `json:"amount"`
}

func (r repayRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

func (h *DebtHandler) Repay(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	obligationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req repayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	o, err := h.debts.Repay(r.Context(), userID, obligationID, req.Amount)
	if err != nil {
		log.Warn("debt repayment failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toObligationDTO(o))
}

func (h *DebtHandler) Payments(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	obligationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	txns, err := h.debts.ListPayments(r.Context(), obligationID, userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transactionDTO, 0, len(txns))
	for i := range txns {
		dtos = append(dtos, toTransactionDTO(&txns[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

type scheduleRequest struct {
	Amount         int64  `json:"amount"`
	Frequency      string `json:"frequency"`
	FirstExecution string `json:"first_execution"`
}

func (r scheduleRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	switch r.Frequency {
	case "weekly", "monthly":
	default:
		errs = append(errs, FieldError{Field: "frequency", Message: "must be weekly or monthly"})
	}
	if _, err := time.Parse(time.RFC3339, r.FirstExecution); err != nil {
		errs = append(errs, FieldError{Field: "first_execution", Message: "must be an RFC3339 timestamp"})
	}
	return errs
}

type scheduleDTO struct {
	ID                uuid.UUID `json:"id"`
	DebtID            uuid.UUID `json:"debt_id"`
	NextExecutionDate time.Time `json:"next_execution_date"`
	Amount            int64     `json:"amount"`
	Frequency         string    `json:"frequency"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

func toScheduleDTO(s *domain.PaymentSchedule) scheduleDTO {
	return scheduleDTO{
		ID:                s.ID,
		DebtID:            s.DebtID,
		NextExecutionDate: s.NextExecutionDate,
		Amount:            s.Amount,
		Frequency:         s.Frequency,
		IsActive:          s.IsActive,
		CreatedAt:         s.CreatedAt,
	}
}

func (h *DebtHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	obligationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}
	firstExecution, _ := time.Parse(time.RFC3339, req.FirstExecution)

	schedule, err := h.debts.SchedulePayment(r.Context(), userID, obligationID, req.Amount, req.Frequency, firstExecution)
	if err != nil {
		logging.FromContext(r.Context()).Warn("schedule creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toScheduleDTO(schedule))
}

func (h *DebtHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	obligationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	schedules, err := h.debts.ListSchedules(r.Context(), userID, obligationID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]scheduleDTO, 0, len(schedules))
	for i := range schedules {
		dtos = append(dtos, toScheduleDTO(&schedules[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
