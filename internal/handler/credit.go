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
	"github.com/gbese/gbese-backend/internal/service/credit"
)

type creditService interface {
	ListProviders(ctx context.Context) ([]domain.CreditProvider, error)
	GetProvider(ctx context.Context, providerID uuid.UUID) (*domain.CreditProvider, error)
	Apply(ctx context.Context, req credit.ApplyRequest) (*credit.LoanResult, error)
	GetApplication(ctx context.Context, applicationID, userID uuid.UUID) (*domain.CreditApplication, error)
}

type CreditHandler struct {
	credits creditService
}

func NewCreditHandler(credits creditService) *CreditHandler {
	return &CreditHandler{credits: credits}
}

type providerDTO struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	MinLoanAmount   int64           `json:"min_loan_amount"`
	MaxLoanAmount   int64           `json:"max_loan_amount"`
	MinTenureMonths int             `json:"min_tenure_months"`
	MaxTenureMonths int             `json:"max_tenure_months"`
}

func toProviderDTO(p *domain.CreditProvider) providerDTO {
	return providerDTO{
		ID:              p.ID,
		Name:            p.Name,
		Slug:            p.Slug,
		InterestRate:    p.DefaultInterestRate,
		MinLoanAmount:   p.MinLoanAmount,
		MaxLoanAmount:   p.MaxLoanAmount,
		MinTenureMonths: p.MinTenureMonths,
		MaxTenureMonths: p.MaxTenureMonths,
	}
}

type applicationDTO struct {
	ID                uuid.UUID       `json:"id"`
	ApplicationNumber string          `json:"application_number"`
	ProviderID        uuid.UUID       `json:"provider_id"`
	RequestedAmount   int64           `json:"requested_amount"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	TenureMonths      int             `json:"tenure_months"`
	Purpose           string          `json:"purpose,omitempty"`
	Status            string          `json:"status"`
	ApprovedAmount    *int64          `json:"approved_amount,omitempty"`
	MonthlyPayment    *int64          `json:"monthly_payment,omitempty"`
	SubmittedAt       time.Time       `json:"submitted_at"`
	DisbursedAt       *time.Time      `json:"disbursed_at,omitempty"`
}

func toApplicationDTO(a *domain.CreditApplication) applicationDTO {
	return applicationDTO{
		ID:                a.ID,
		ApplicationNumber: a.ApplicationNumber,
		ProviderID:        a.ProviderID,
		RequestedAmount:   a.RequestedAmount,
		InterestRate:      a.InterestRate,
		TenureMonths:      a.TenureMonths,
		Purpose:           a.Purpose,
		Status:            string(a.Status),
		ApprovedAmount:    a.ApprovedAmount,
		MonthlyPayment:    a.MonthlyPayment,
		SubmittedAt:       a.SubmittedAt,
		DisbursedAt:       a.DisbursedAt,
	}
}

func (h *CreditHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.credits.ListProviders(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list providers", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]providerDTO, 0, len(providers))
	for i := range providers {
		dtos = append(dtos, toProviderDTO(&providers[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *CreditHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	p, err := h.credits.GetProvider(r.Context(), providerID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toProviderDTO(p))
}

type applyRequest struct {
	ProviderID   string `json:"provider_id"`
	Amount       int64  `json:"amount"`
	TenureMonths int    `json:"tenure_months"`
	Purpose      string `json:"purpose"`
}

func (r applyRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ProviderID == "" {
		errs = append(errs, FieldError{Field: "provider_id", Message: "required"})
	} else if _, err := uuid.Parse(r.ProviderID); err != nil {
		errs = append(errs, FieldError{Field: "provider_id", Message: "must be a valid uuid"})
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.TenureMonths <= 0 {
		errs = append(errs, FieldError{Field: "tenure_months", Message: "must be greater than 0"})
	}
	return errs
}

type loanResponse struct {
	Application applicationDTO `json:"application"`
	Obligation  obligationDTO  `json:"obligation"`
	Transaction transactionDTO `json:"transaction"`
}

func (h *CreditHandler) Apply(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}
	providerID, _ := uuid.Parse(req.ProviderID)

	result, err := h.credits.Apply(r.Context(), credit.ApplyRequest{
		UserID:       userID,
		ProviderID:   providerID,
		Amount:       req.Amount,
		TenureMonths: req.TenureMonths,
		Purpose:      req.Purpose,
	})
	if err != nil {
		log.Warn("loan application failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, loanResponse{
		Application: toApplicationDTO(result.Application),
		Obligation:  toObligationDTO(result.Obligation),
		Transaction: toTransactionDTO(result.Transaction),
	})
}

func (h *CreditHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	applicationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	a, err := h.credits.GetApplication(r.Context(), applicationID, userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toApplicationDTO(a))
}
