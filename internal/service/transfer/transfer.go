package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/logging"
)

type Request struct {
	SenderUserID        uuid.UUID
	RecipientIdentifier string
	Amount              int64
	Description         string
}

// Transfer moves cash between two member accounts. The debit, the daily
// allowance bump and the credit commit as one unit; the completed
// transaction row is the audit record for the movement.
func (s *Service) Transfer(ctx context.Context, req Request) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	if req.Amount <= 0 {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrInvalidAmount)
	}

	recipient, err := s.users.FindByIdentifier(ctx, req.RecipientIdentifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Transfer: %w", domain.ErrRecipientNotFound)
		}
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	if recipient.ID == req.SenderUserID {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrSelfTransfer)
	}

	senderAcct, err := s.accounts.GetByUserID(ctx, req.SenderUserID)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	recipientAcct, err := s.accounts.GetByUserID(ctx, recipient.ID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("Transfer: %w", domain.ErrRecipientNotFound)
		}
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	t, err := s.executeTransfer(ctx, req, senderAcct.ID, recipientAcct.ID, recipient.ID)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	log.Info("transfer completed",
		"reference", t.ReferenceNumber,
		"sender_account", senderAcct.ID,
		"recipient_account", recipientAcct.ID,
		"amount", req.Amount,
	)

	s.notify.Notify(ctx, recipient.ID, domain.NotificationKindSystemAlert,
		"Money received",
		fmt.Sprintf("You received a transfer of %d (%s).", req.Amount, t.ReferenceNumber),
		"/transactions/"+t.ReferenceNumber,
	)

	return t, nil
}

func (s *Service) executeTransfer(ctx context.Context, req Request, senderAcctID, recipientAcctID, recipientUserID uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	sender, recipient, err := s.accounts.LockPair(ctx, tx, senderAcctID, recipientAcctID)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}

	if req.Amount > sender.DailyRemaining() {
		return nil, fmt.Errorf("executeTransfer: %w", domain.ErrDailyLimitExceeded)
	}

	if err := s.accounts.Debit(ctx, tx, sender, req.Amount); err != nil {
		return nil, fmt.Errorf("executeTransfer: debit sender: %w", err)
	}
	if err := s.accounts.AddDailyUsage(ctx, tx, sender, req.Amount); err != nil {
		return nil, fmt.Errorf("executeTransfer: daily usage: %w", err)
	}
	if err := s.accounts.Credit(ctx, tx, recipient, req.Amount); err != nil {
		return nil, fmt.Errorf("executeTransfer: credit recipient: %w", err)
	}

	now := time.Now().UTC()
	senderUserID := req.SenderUserID
	t := &domain.Transaction{
		ID:                 uuid.New(),
		ReferenceNumber:    domain.NewReferenceNumber("TXN-TRF"),
		Type:               domain.TransactionTypeTransfer,
		SenderID:           &senderUserID,
		SenderAccountID:    &sender.ID,
		RecipientID:        &recipientUserID,
		RecipientAccountID: &recipient.ID,
		Amount:             req.Amount,
		Status:             domain.TransactionStatusCompleted,
		Description:        req.Description,
		CreatedAt:          now,
		CompletedAt:        &now,
	}
	if err := s.transactions.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("executeTransfer: create transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("executeTransfer: commit: %w", err)
	}

	return t, nil
}
