package debt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/logging"
)

// Repay pays down an obligation held by the user. Only the current holder
// may pay; the remaining balance can only go down, and the obligation
// flips to paid in the same unit the balance reaches zero.
func (s *Service) Repay(ctx context.Context, userID, obligationID uuid.UUID, amount int64) (*domain.DebtObligation, error) {
	log := logging.FromContext(ctx)

	if amount <= 0 {
		return nil, fmt.Errorf("Repay: %w", domain.ErrInvalidAmount)
	}

	acctSnapshot, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Repay: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Repay: begin tx: %w", err)
	}
	defer tx.Rollback()

	obligation, err := s.obligations.GetForUpdate(ctx, tx, obligationID)
	if err != nil {
		return nil, fmt.Errorf("Repay: %w", err)
	}

	if obligation.CurrentHolderID != userID {
		return nil, fmt.Errorf("Repay: %w", domain.ErrNotDebtHolder)
	}
	if obligation.Status == domain.ObligationStatusPaid {
		return nil, fmt.Errorf("Repay: %w", domain.ErrAlreadyPaid)
	}
	if amount > obligation.RemainingBalance {
		return nil, fmt.Errorf("Repay: %w", domain.ErrAmountExceedsBalance)
	}

	acct, err := s.accounts.GetForUpdate(ctx, tx, acctSnapshot.ID)
	if err != nil {
		return nil, fmt.Errorf("Repay: %w", err)
	}

	if err := s.accounts.Debit(ctx, tx, acct, amount); err != nil {
		return nil, fmt.Errorf("Repay: debit: %w", err)
	}
	if err := s.accounts.AdjustDebt(ctx, tx, acct, -amount); err != nil {
		return nil, fmt.Errorf("Repay: adjust debt: %w", err)
	}

	now := time.Now().UTC()
	newBalance := obligation.RemainingBalance - amount
	status := domain.ObligationStatusActive
	var paidOffAt *time.Time
	if newBalance == 0 {
		status = domain.ObligationStatusPaid
		paidOffAt = &now
	}

	if err := s.obligations.ApplyRepayment(ctx, tx, obligation.ID, newBalance, status, paidOffAt); err != nil {
		return nil, fmt.Errorf("Repay: %w", err)
	}

	metadata, err := json.Marshal(map[string]string{"obligation_id": obligation.ID.String()})
	if err != nil {
		return nil, fmt.Errorf("Repay: metadata: %w", err)
	}

	t := &domain.Transaction{
		ID:              uuid.New(),
		ReferenceNumber: domain.NewReferenceNumber("TXN-PAY"),
		Type:            domain.TransactionTypeDebtPayment,
		SenderID:        &userID,
		SenderAccountID: &acct.ID,
		Amount:          amount,
		Status:          domain.TransactionStatusCompleted,
		Description:     fmt.Sprintf("Debt payment (%s)", obligation.ObligationNumber),
		Metadata:        metadata,
		CreatedAt:       now,
		CompletedAt:     &now,
	}
	if err := s.transactions.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("Repay: create transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Repay: commit: %w", err)
	}

	obligation.RemainingBalance = newBalance
	obligation.Status = status
	obligation.PaidOffAt = paidOffAt

	log.Info("debt repayment applied",
		"obligation", obligation.ObligationNumber,
		"amount", amount,
		"remaining_balance", newBalance,
	)

	if status == domain.ObligationStatusPaid {
		s.notify.Notify(ctx, userID, domain.NotificationKindLoan,
			"Debt fully repaid",
			fmt.Sprintf("Obligation %s is fully paid off.", obligation.ObligationNumber),
			"/debts/"+obligation.ID.String(),
		)
	}

	return obligation, nil
}

// SchedulePayment registers a recurring repayment intent for an obligation
// held by the user. Execution of due schedules is an operational concern
// outside this core.
func (s *Service) SchedulePayment(ctx context.Context, userID, obligationID uuid.UUID, amount int64, frequency string, firstExecution time.Time) (*domain.PaymentSchedule, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("SchedulePayment: %w", domain.ErrInvalidAmount)
	}

	obligation, err := s.obligations.GetByID(ctx, obligationID)
	if err != nil {
		return nil, fmt.Errorf("SchedulePayment: %w", err)
	}
	if obligation.CurrentHolderID != userID {
		return nil, fmt.Errorf("SchedulePayment: %w", domain.ErrNotDebtHolder)
	}
	if obligation.Status == domain.ObligationStatusPaid {
		return nil, fmt.Errorf("SchedulePayment: %w", domain.ErrAlreadyPaid)
	}

	schedule := &domain.PaymentSchedule{
		ID:                uuid.New(),
		DebtID:            obligationID,
		UserID:            userID,
		NextExecutionDate: firstExecution,
		Amount:            amount,
		Frequency:         frequency,
		IsActive:          true,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.obligations.CreateSchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("SchedulePayment: %w", err)
	}
	return schedule, nil
}

func (s *Service) ListSchedules(ctx context.Context, userID, obligationID uuid.UUID) ([]domain.PaymentSchedule, error) {
	if _, err := s.GetObligation(ctx, obligationID, userID); err != nil {
		return nil, fmt.Errorf("ListSchedules: %w", err)
	}
	schedules, err := s.obligations.ListSchedules(ctx, obligationID)
	if err != nil {
		return nil, fmt.Errorf("ListSchedules: %w", err)
	}
	return schedules, nil
}
