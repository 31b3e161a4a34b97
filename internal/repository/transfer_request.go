package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/domain"
)

const requestColumns = `id, request_number, debt_id, sender_id, recipient_id, status,
	incentive_amount, transfer_type, reason, expires_at, created_at, accepted_at, rejected_at`

type TransferRequestRepository struct {
	db *sql.DB
}

func NewTransferRequestRepository(db *sql.DB) *TransferRequestRepository {
	return &TransferRequestRepository{db: db}
}

func (r *TransferRequestRepository) Create(ctx context.Context, req *domain.DebtTransferRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO debt_transfer_requests (
			id, request_number, debt_id, sender_id, recipient_id, status,
			incentive_amount, transfer_type, reason, expires_at, created_at, accepted_at, rejected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		req.ID, req.RequestNumber, req.DebtID, req.SenderID, req.RecipientID, req.Status,
		req.IncentiveAmount, req.TransferType, req.Reason, req.ExpiresAt, req.CreatedAt,
		req.AcceptedAt, req.RejectedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransferRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebtTransferRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM debt_transfer_requests WHERE id = $1`, id,
	)
	req, err := scanTransferRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return req, nil
}

func (r *TransferRequestRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.DebtTransferRequest, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM debt_transfer_requests WHERE id = $1 FOR UPDATE`, id,
	)
	req, err := scanTransferRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return req, nil
}

// MarkTerminal records the single permitted terminal transition. The
// pending guard in the WHERE clause means a second transition attempt
// affects zero rows.
func (r *TransferRequestRepository) MarkTerminal(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.RequestStatus, at time.Time) error {
	var column string
	switch status {
	case domain.RequestStatusAccepted:
		column = "accepted_at"
	case domain.RequestStatusRejected:
		column = "rejected_at"
	default:
		return fmt.Errorf("MarkTerminal: %w", domain.ErrInvalidStatus)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE debt_transfer_requests SET status = $1, `+column+` = $2
		WHERE id = $3 AND status = $4`,
		status, at, id, domain.RequestStatusPending,
	)
	if err != nil {
		return fmt.Errorf("MarkTerminal: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkTerminal: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkTerminal: %w", domain.ErrAlreadyProcessed)
	}
	return nil
}

// DeletePending voids a request that has not been acted on.
func (r *TransferRequestRepository) DeletePending(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM debt_transfer_requests WHERE id = $1 AND status = $2`,
		id, domain.RequestStatusPending,
	)
	if err != nil {
		return fmt.Errorf("DeletePending: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeletePending: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("DeletePending: %w", domain.ErrAlreadyProcessed)
	}
	return nil
}

func (r *TransferRequestRepository) ListIncoming(ctx context.Context, recipientID uuid.UUID) ([]domain.DebtTransferRequest, error) {
	return r.list(ctx,
		`SELECT `+requestColumns+` FROM debt_transfer_requests
		WHERE recipient_id = $1 AND status = $2 ORDER BY created_at DESC`,
		recipientID, domain.RequestStatusPending,
	)
}

func (r *TransferRequestRepository) ListOutgoing(ctx context.Context, senderID uuid.UUID) ([]domain.DebtTransferRequest, error) {
	return r.list(ctx,
		`SELECT `+requestColumns+` FROM debt_transfer_requests
		WHERE sender_id = $1 ORDER BY created_at DESC`,
		senderID,
	)
}

func (r *TransferRequestRepository) list(ctx context.Context, query string, args ...any) ([]domain.DebtTransferRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var requests []domain.DebtTransferRequest
	for rows.Next() {
		req, err := scanTransferRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("list: scan: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows: %w", err)
	}
	return requests, nil
}

func scanTransferRequest(s scanner) (*domain.DebtTransferRequest, error) {
	var req domain.DebtTransferRequest
	err := s.Scan(
		&req.ID, &req.RequestNumber, &req.DebtID, &req.SenderID, &req.RecipientID, &req.Status,
		&req.IncentiveAmount, &req.TransferType, &req.Reason, &req.ExpiresAt, &req.CreatedAt,
		&req.AcceptedAt, &req.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
