package dtp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/logging"
)

// Respond applies the recipient's decision. A rejection only stamps the
// request; an acceptance reassigns the obligation and settles the
// incentive in one unit.
func (s *Service) Respond(ctx context.Context, userID, requestID uuid.UUID, accept bool) (*domain.DebtTransferRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("Respond: %w", err)
	}
	if req.RecipientID != userID {
		return nil, fmt.Errorf("Respond: %w", domain.ErrUnauthorized)
	}
	if err := req.Actionable(time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("Respond: %w", err)
	}

	if !accept {
		if err := s.reject(ctx, req); err != nil {
			return nil, fmt.Errorf("Respond: %w", err)
		}
		return req, nil
	}

	// The acceptance unit holds row locks on two accounts, the request and
	// the obligation; bound it so a stalled connection cannot pin them.
	acceptCtx, cancel := context.WithTimeout(ctx, s.config.AcceptTimeout())
	defer cancel()

	if err := s.executeAccept(acceptCtx, req); err != nil {
		return nil, fmt.Errorf("Respond: %w", err)
	}
	return req, nil
}

func (s *Service) reject(ctx context.Context, req *domain.DebtTransferRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reject: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if err := s.requests.MarkTerminal(ctx, tx, req.ID, domain.RequestStatusRejected, now); err != nil {
		return fmt.Errorf("reject: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reject: commit: %w", err)
	}

	req.Status = domain.RequestStatusRejected
	req.RejectedAt = &now

	logging.FromContext(ctx).Info("debt transfer request rejected",
		"request", req.RequestNumber,
	)

	s.notify.Notify(ctx, req.SenderID, domain.NotificationKindDebtTransfer,
		"Debt transfer declined",
		fmt.Sprintf("Your debt transfer request %s was declined.", req.RequestNumber),
		"/debt-transfers/"+req.ID.String(),
	)
	return nil
}

func (s *Service) executeAccept(ctx context.Context, req *domain.DebtTransferRequest) error {
	log := logging.FromContext(ctx)

	senderAcctSnapshot, err := s.accounts.GetByUserID(ctx, req.SenderID)
	if err != nil {
		return fmt.Errorf("executeAccept: %w", err)
	}
	recipientAcctSnapshot, err := s.accounts.GetByUserID(ctx, req.RecipientID)
	if err != nil {
		return fmt.Errorf("executeAccept: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("executeAccept: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.requests.GetForUpdate(ctx, tx, req.ID)
	if err != nil {
		return fmt.Errorf("executeAccept: %w", err)
	}
	now := time.Now().UTC()
	if err := locked.Actionable(now); err != nil {
		return fmt.Errorf("executeAccept: %w", err)
	}

	obligation, err := s.obligations.GetForUpdate(ctx, tx, req.DebtID)
	if err != nil {
		return fmt.Errorf("executeAccept: %w", err)
	}
	if obligation.Status != domain.ObligationStatusActive {
		return fmt.Errorf("executeAccept: %w", domain.ErrAlreadyPaid)
	}
	if obligation.CurrentHolderID != req.SenderID {
		return fmt.Errorf("executeAccept: %w", domain.ErrNotDebtHolder)
	}

	senderAcct, recipientAcct, err := s.accounts.LockPair(ctx, tx, senderAcctSnapshot.ID, recipientAcctSnapshot.ID)
	if err != nil {
		return fmt.Errorf("executeAccept: %w", err)
	}

	if obligation.RemainingBalance > recipientAcct.AvailableCredit() {
		return fmt.Errorf("executeAccept: %w", domain.ErrInsufficientCreditHeadroom)
	}

	if err := s.requests.MarkTerminal(ctx, tx, req.ID, domain.RequestStatusAccepted, now); err != nil {
		return fmt.Errorf("executeAccept: %w", err)
	}

	if err := s.obligations.UpdateHolder(ctx, tx, obligation.ID, req.RecipientID, now); err != nil {
		return fmt.Errorf("executeAccept: %w", err)
	}

	if err := s.accounts.AdjustDebt(ctx, tx, senderAcct, -obligation.RemainingBalance); err != nil {
		return fmt.Errorf("executeAccept: sender debt: %w", err)
	}
	if err := s.accounts.AdjustDebt(ctx, tx, recipientAcct, obligation.RemainingBalance); err != nil {
		return fmt.Errorf("executeAccept: recipient debt: %w", err)
	}

	if req.IncentiveAmount > 0 {
		if err := s.accounts.Debit(ctx, tx, senderAcct, req.IncentiveAmount); err != nil {
			return fmt.Errorf("executeAccept: incentive debit: %w", err)
		}
		if err := s.accounts.Credit(ctx, tx, recipientAcct, req.IncentiveAmount); err != nil {
			return fmt.Errorf("executeAccept: incentive credit: %w", err)
		}

		metadata, err := json.Marshal(map[string]string{
			"obligation_id": obligation.ID.String(),
			"request_id":    req.ID.String(),
		})
		if err != nil {
			return fmt.Errorf("executeAccept: metadata: %w", err)
		}

		t := &domain.Transaction{
			ID:                 uuid.New(),
			ReferenceNumber:    domain.NewReferenceNumber("TXN-INC"),
			Type:               domain.TransactionTypeTransferIncentive,
			SenderID:           &req.SenderID,
			SenderAccountID:    &senderAcct.ID,
			RecipientID:        &req.RecipientID,
			RecipientAccountID: &recipientAcct.ID,
			Amount:             req.IncentiveAmount,
			Status:             domain.TransactionStatusCompleted,
			Description:        fmt.Sprintf("Debt transfer incentive (%s)", req.RequestNumber),
			Metadata:           metadata,
			CreatedAt:          now,
			CompletedAt:        &now,
		}
		if err := s.transactions.Create(ctx, tx, t); err != nil {
			return fmt.Errorf("executeAccept: create transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("executeAccept: commit: %w", err)
	}

	req.Status = domain.RequestStatusAccepted
	req.AcceptedAt = &now

	log.Info("debt transfer accepted",
		"request", req.RequestNumber,
		"obligation", obligation.ObligationNumber,
		"new_holder", req.RecipientID,
		"balance", obligation.RemainingBalance,
		"incentive", req.IncentiveAmount,
	)

	s.notify.Notify(ctx, req.SenderID, domain.NotificationKindDebtTransfer,
		"Debt transfer accepted",
		fmt.Sprintf("Your debt %s has been taken over.", obligation.ObligationNumber),
		"/debt-transfers/"+req.ID.String(),
	)
	s.notify.Notify(ctx, req.RecipientID, domain.NotificationKindDebtTransfer,
		"Debt obligation assigned",
		fmt.Sprintf("You are now the holder of %s (balance %d).",
			obligation.ObligationNumber, obligation.RemainingBalance),
		"/debts/"+obligation.ID.String(),
	)

	return nil
}
