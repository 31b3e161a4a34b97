package credit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/logging"
)

type ApplyRequest struct {
	UserID       uuid.UUID
	ProviderID   uuid.UUID
	Amount       int64
	TenureMonths int
	Purpose      string
}

type LoanResult struct {
	Application *domain.CreditApplication
	Obligation  *domain.DebtObligation
	Transaction *domain.Transaction
}

// Apply submits a credit application against a provider's catalogue terms
// and disburses it immediately. The submitted row survives even when
// disbursement fails, so a stuck application can be retried with Disburse.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (*LoanResult, error) {
	provider, err := s.providers.GetByID(ctx, req.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("Apply: %w", err)
	}
	if !provider.IsActive {
		return nil, fmt.Errorf("Apply: %w", domain.ErrProviderNotFound)
	}

	if req.Amount < provider.MinLoanAmount || req.Amount > provider.MaxLoanAmount {
		return nil, fmt.Errorf("Apply: %w", domain.ErrAmountOutOfRange)
	}
	if req.TenureMonths < provider.MinTenureMonths || req.TenureMonths > provider.MaxTenureMonths {
		return nil, fmt.Errorf("Apply: %w", domain.ErrTenureExceeded)
	}

	app := &domain.CreditApplication{
		ID:                uuid.New(),
		ApplicationNumber: domain.NewReferenceNumber("APP"),
		UserID:            req.UserID,
		ProviderID:        req.ProviderID,
		RequestedAmount:   req.Amount,
		InterestRate:      provider.DefaultInterestRate,
		TenureMonths:      req.TenureMonths,
		Purpose:           req.Purpose,
		Status:            domain.ApplicationStatusSubmitted,
		SubmittedAt:       time.Now().UTC(),
	}
	if err := s.applications.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("Apply: create application: %w", err)
	}

	result, err := s.Disburse(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("Apply: %w", err)
	}
	return result, nil
}

// Disburse pays out a submitted application: cash up by the principal,
// debt up by principal plus interest, a loan_disbursement transaction and
// the obligation itself, all in one unit. A second call finds the
// application already disbursed and fails without moving money.
func (s *Service) Disburse(ctx context.Context, applicationID uuid.UUID) (*LoanResult, error) {
	log := logging.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Disburse: begin tx: %w", err)
	}
	defer tx.Rollback()

	app, err := s.applications.GetForUpdate(ctx, tx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("Disburse: %w", err)
	}
	if app.Status != domain.ApplicationStatusSubmitted {
		return nil, fmt.Errorf("Disburse: %w", domain.ErrAlreadyProcessed)
	}

	acctSnapshot, err := s.accounts.GetByUserID(ctx, app.UserID)
	if err != nil {
		return nil, fmt.Errorf("Disburse: %w", err)
	}
	acct, err := s.accounts.GetForUpdate(ctx, tx, acctSnapshot.ID)
	if err != nil {
		return nil, fmt.Errorf("Disburse: %w", err)
	}

	interest := domain.InterestAmount(app.RequestedAmount, app.InterestRate, app.TenureMonths)
	totalRepayment := app.RequestedAmount + interest
	monthlyPayment := totalRepayment / int64(app.TenureMonths)

	if totalRepayment > acct.AvailableCredit() {
		return nil, fmt.Errorf("Disburse: %w", domain.ErrInsufficientCreditHeadroom)
	}

	now := time.Now().UTC()
	if err := s.applications.MarkDisbursed(ctx, tx, app.ID, app.RequestedAmount, monthlyPayment, now); err != nil {
		if errors.Is(err, domain.ErrInvalidStatus) {
			return nil, fmt.Errorf("Disburse: %w", domain.ErrAlreadyProcessed)
		}
		return nil, fmt.Errorf("Disburse: %w", err)
	}

	if err := s.accounts.Credit(ctx, tx, acct, app.RequestedAmount); err != nil {
		return nil, fmt.Errorf("Disburse: credit: %w", err)
	}
	if err := s.accounts.AdjustDebt(ctx, tx, acct, totalRepayment); err != nil {
		return nil, fmt.Errorf("Disburse: adjust debt: %w", err)
	}

	obligation := &domain.DebtObligation{
		ID:                 uuid.New(),
		ObligationNumber:   domain.NewReferenceNumber("OBL"),
		CurrentHolderID:    app.UserID,
		OriginalBorrowerID: app.UserID,
		OriginalCreditorID: app.ProviderID,
		PrincipalAmount:    app.RequestedAmount,
		RemainingBalance:   totalRepayment,
		InterestRate:       app.InterestRate,
		MonthlyPayment:     monthlyPayment,
		DueDate:            now.AddDate(0, app.TenureMonths, 0),
		NextPaymentDate:    now.AddDate(0, 1, 0),
		Status:             domain.ObligationStatusActive,
		CreatedAt:          now,
	}
	if err := s.obligations.Create(ctx, tx, obligation); err != nil {
		return nil, fmt.Errorf("Disburse: create obligation: %w", err)
	}

	metadata, err := json.Marshal(map[string]string{
		"obligation_id":  obligation.ID.String(),
		"application_id": app.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("Disburse: metadata: %w", err)
	}

	t := &domain.Transaction{
		ID:                 uuid.New(),
		ReferenceNumber:    domain.NewReferenceNumber("TXN-LON"),
		Type:               domain.TransactionTypeLoanDisbursement,
		RecipientID:        &app.UserID,
		RecipientAccountID: &acct.ID,
		Amount:             app.RequestedAmount,
		Status:             domain.TransactionStatusCompleted,
		Description:        fmt.Sprintf("Loan disbursement (%s)", app.ApplicationNumber),
		Metadata:           metadata,
		CreatedAt:          now,
		CompletedAt:        &now,
	}
	if err := s.transactions.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("Disburse: create transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Disburse: commit: %w", err)
	}

	app.Status = domain.ApplicationStatusDisbursed
	app.ApprovedAmount = &app.RequestedAmount
	app.MonthlyPayment = &monthlyPayment
	app.DisbursedAt = &now

	log.Info("loan disbursed",
		"application", app.ApplicationNumber,
		"obligation", obligation.ObligationNumber,
		"principal", app.RequestedAmount,
		"total_repayment", totalRepayment,
	)

	s.notify.Notify(ctx, app.UserID, domain.NotificationKindLoan,
		"Loan disbursed",
		fmt.Sprintf("Your loan of %d has been disbursed. Total repayment: %d over %d months.",
			app.RequestedAmount, totalRepayment, app.TenureMonths),
		"/loans/"+app.ID.String(),
	)

	return &LoanResult{Application: app, Obligation: obligation, Transaction: t}, nil
}
