package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/logging"
)

// InitiateDeposit records an inbound funding intent. The transaction stays
// pending until the external rail confirms; only ConfirmDeposit moves the
// balance.
func (s *Service) InitiateDeposit(ctx context.Context, userID uuid.UUID, amount int64, description string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("InitiateDeposit: %w", domain.ErrInvalidAmount)
	}

	acct, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("InitiateDeposit: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("InitiateDeposit: begin tx: %w", err)
	}
	defer tx.Rollback()

	t := &domain.Transaction{
		ID:                 uuid.New(),
		ReferenceNumber:    domain.NewReferenceNumber("TXN-DEP"),
		Type:               domain.TransactionTypeDeposit,
		RecipientID:        &userID,
		RecipientAccountID: &acct.ID,
		Amount:             amount,
		Status:             domain.TransactionStatusPending,
		Description:        description,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.transactions.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("InitiateDeposit: create transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("InitiateDeposit: commit: %w", err)
	}

	return t, nil
}

// ConfirmDeposit settles a pending deposit: credits the account and stamps
// the transaction completed in one unit.
func (s *Service) ConfirmDeposit(ctx context.Context, reference string) (*domain.Transaction, error) {
	t, err := s.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("ConfirmDeposit: %w", err)
	}
	if t.Type != domain.TransactionTypeDeposit || t.RecipientAccountID == nil {
		return nil, fmt.Errorf("ConfirmDeposit: %w", domain.ErrInvalidRequest)
	}
	if t.Status != domain.TransactionStatusPending {
		return nil, fmt.Errorf("ConfirmDeposit: %w", domain.ErrAlreadyProcessed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ConfirmDeposit: begin tx: %w", err)
	}
	defer tx.Rollback()

	acct, err := s.accounts.GetForUpdate(ctx, tx, *t.RecipientAccountID)
	if err != nil {
		return nil, fmt.Errorf("ConfirmDeposit: %w", err)
	}

	if err := s.accounts.Credit(ctx, tx, acct, t.Amount); err != nil {
		return nil, fmt.Errorf("ConfirmDeposit: credit: %w", err)
	}

	now := time.Now().UTC()
	if err := s.transactions.UpdateStatus(ctx, tx, t.ID, domain.TransactionStatusCompleted, &now); err != nil {
		return nil, fmt.Errorf("ConfirmDeposit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ConfirmDeposit: commit: %w", err)
	}

	t.Status = domain.TransactionStatusCompleted
	t.CompletedAt = &now

	logging.FromContext(ctx).Info("deposit confirmed",
		"reference", t.ReferenceNumber,
		"account", acct.ID,
		"amount", t.Amount,
	)

	return t, nil
}

// InitiateWithdrawal reserves the amount plus the flat fee out of the cash
// balance and records a pending withdrawal. Withdrawals draw on settled
// cash only; credit headroom is not withdrawable.
func (s *Service) InitiateWithdrawal(ctx context.Context, userID uuid.UUID, amount int64, description string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("InitiateWithdrawal: %w", domain.ErrInvalidAmount)
	}
	total := amount + s.config.WithdrawalFee

	acct, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("InitiateWithdrawal: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("InitiateWithdrawal: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.accounts.GetForUpdate(ctx, tx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("InitiateWithdrawal: %w", err)
	}

	if locked.CurrentBalance-locked.PendingTransfersOut < total {
		return nil, fmt.Errorf("InitiateWithdrawal: %w", domain.ErrInsufficientFunds)
	}

	if err := s.accounts.Reserve(ctx, tx, locked, total); err != nil {
		return nil, fmt.Errorf("InitiateWithdrawal: reserve: %w", err)
	}

	t := &domain.Transaction{
		ID:              uuid.New(),
		ReferenceNumber: domain.NewReferenceNumber("TXN-WTH"),
		Type:            domain.TransactionTypeWithdrawal,
		SenderID:        &userID,
		SenderAccountID: &acct.ID,
		Amount:          amount,
		Fee:             s.config.WithdrawalFee,
		Status:          domain.TransactionStatusPending,
		Description:     description,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.transactions.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("InitiateWithdrawal: create transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("InitiateWithdrawal: commit: %w", err)
	}

	return t, nil
}

// ConfirmWithdrawal settles a pending withdrawal: the reservation is
// released, the amount plus fee leaves the balance and the transaction is
// stamped completed.
func (s *Service) ConfirmWithdrawal(ctx context.Context, reference string) (*domain.Transaction, error) {
	return s.settleWithdrawal(ctx, reference, true)
}

// FailWithdrawal voids a pending withdrawal that the external rail
// rejected. The reservation is released and no cash moves.
func (s *Service) FailWithdrawal(ctx context.Context, reference string) (*domain.Transaction, error) {
	return s.settleWithdrawal(ctx, reference, false)
}

func (s *Service) settleWithdrawal(ctx context.Context, reference string, settle bool) (*domain.Transaction, error) {
	t, err := s.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("settleWithdrawal: %w", err)
	}
	if t.Type != domain.TransactionTypeWithdrawal || t.SenderAccountID == nil {
		return nil, fmt.Errorf("settleWithdrawal: %w", domain.ErrInvalidRequest)
	}
	if t.Status != domain.TransactionStatusPending {
		return nil, fmt.Errorf("settleWithdrawal: %w", domain.ErrAlreadyProcessed)
	}
	total := t.Amount + t.Fee

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("settleWithdrawal: begin tx: %w", err)
	}
	defer tx.Rollback()

	acct, err := s.accounts.GetForUpdate(ctx, tx, *t.SenderAccountID)
	if err != nil {
		return nil, fmt.Errorf("settleWithdrawal: %w", err)
	}

	if err := s.accounts.Release(ctx, tx, acct, total); err != nil {
		return nil, fmt.Errorf("settleWithdrawal: release: %w", err)
	}

	now := time.Now().UTC()
	status := domain.TransactionStatusFailed
	var completedAt *time.Time
	if settle {
		if err := s.accounts.Debit(ctx, tx, acct, total); err != nil {
			return nil, fmt.Errorf("settleWithdrawal: debit: %w", err)
		}
		status = domain.TransactionStatusCompleted
		completedAt = &now
	}

	if err := s.transactions.UpdateStatus(ctx, tx, t.ID, status, completedAt); err != nil {
		return nil, fmt.Errorf("settleWithdrawal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("settleWithdrawal: commit: %w", err)
	}

	t.Status = status
	t.CompletedAt = completedAt

	logging.FromContext(ctx).Info("withdrawal settled",
		"reference", t.ReferenceNumber,
		"account", acct.ID,
		"status", status,
	)

	return t, nil
}
