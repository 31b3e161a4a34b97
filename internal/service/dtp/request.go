package dtp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/logging"
)

type InitiateRequest struct {
	SenderID            uuid.UUID
	DebtID              uuid.UUID
	RecipientIdentifier string
	IncentiveAmount     int64
	TransferType        domain.TransferType
	Reason              string
}

// Initiate proposes handing an obligation to another member, optionally
// sweetened with a cash incentive. The request stays actionable until the
// recipient responds, the sender cancels, or the TTL lapses.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*domain.DebtTransferRequest, error) {
	log := logging.FromContext(ctx)

	if req.IncentiveAmount < 0 {
		return nil, fmt.Errorf("Initiate: %w", domain.ErrInvalidAmount)
	}
	if req.TransferType == "" {
		req.TransferType = domain.TransferTypeDirect
	}

	obligation, err := s.obligations.GetByID(ctx, req.DebtID)
	if err != nil {
		return nil, fmt.Errorf("Initiate: %w", err)
	}
	if obligation.CurrentHolderID != req.SenderID {
		return nil, fmt.Errorf("Initiate: %w", domain.ErrNotDebtHolder)
	}
	if obligation.Status == domain.ObligationStatusPaid {
		return nil, fmt.Errorf("Initiate: %w", domain.ErrAlreadyPaid)
	}

	recipient, err := s.users.FindByIdentifier(ctx, req.RecipientIdentifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Initiate: %w", domain.ErrRecipientNotFound)
		}
		return nil, fmt.Errorf("Initiate: %w", err)
	}
	if recipient.ID == req.SenderID {
		return nil, fmt.Errorf("Initiate: %w", domain.ErrSelfTransfer)
	}

	now := time.Now().UTC()
	request := &domain.DebtTransferRequest{
		ID:              uuid.New(),
		RequestNumber:   domain.NewReferenceNumber("DTR"),
		DebtID:          req.DebtID,
		SenderID:        req.SenderID,
		RecipientID:     recipient.ID,
		Status:          domain.RequestStatusPending,
		IncentiveAmount: req.IncentiveAmount,
		TransferType:    req.TransferType,
		Reason:          req.Reason,
		ExpiresAt:       now.Add(s.config.TransferRequestTTL()),
		CreatedAt:       now,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("Initiate: %w", err)
	}

	log.Info("debt transfer request created",
		"request", request.RequestNumber,
		"obligation", obligation.ObligationNumber,
		"recipient", recipient.ID,
		"incentive", req.IncentiveAmount,
	)

	s.notify.Notify(ctx, recipient.ID, domain.NotificationKindDebtTransfer,
		"Debt transfer request",
		fmt.Sprintf("You have been asked to take over debt %s (balance %d, incentive %d).",
			obligation.ObligationNumber, obligation.RemainingBalance, req.IncentiveAmount),
		"/debt-transfers/"+request.ID.String(),
	)

	return request, nil
}

// Cancel voids a pending request the user sent. The row is removed
// outright; a request that already received a terminal transition or
// lapsed past its TTL cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, userID, requestID uuid.UUID) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("Cancel: %w", err)
	}
	if req.SenderID != userID {
		return fmt.Errorf("Cancel: %w", domain.ErrUnauthorized)
	}
	if err := req.Actionable(time.Now().UTC()); err != nil {
		return fmt.Errorf("Cancel: %w", err)
	}
	if err := s.requests.DeletePending(ctx, requestID); err != nil {
		return fmt.Errorf("Cancel: %w", err)
	}

	logging.FromContext(ctx).Info("debt transfer request cancelled",
		"request", req.RequestNumber,
	)
	return nil
}
