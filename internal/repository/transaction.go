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

const transactionColumns = `id, reference_number, type, sender_id, sender_account_id,
	recipient_id, recipient_account_id, amount, fee, status, description, metadata,
	created_at, completed_at`

// TransactionRepository is the append-only money-movement log. Rows are
// never deleted; the only permitted update is the terminal status stamp.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (
			id, reference_number, type, sender_id, sender_account_id,
			recipient_id, recipient_account_id, amount, fee, status, description, metadata,
			created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.ReferenceNumber, t.Type, t.SenderID, t.SenderAccountID,
		t.RecipientID, t.RecipientAccountID, t.Amount, t.Fee, t.Status,
		t.Description, t.Metadata, t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference_number = $1`, reference,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByReference: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	return t, nil
}

type TransactionFilter struct {
	Type      *domain.TransactionType
	Status    *domain.TransactionStatus
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// ListForUser returns transactions where the user is sender or recipient,
// newest first, with the total count for pagination.
func (r *TransactionRepository) ListForUser(ctx context.Context, userID uuid.UUID, f TransactionFilter) ([]domain.Transaction, int, error) {
	where := `(sender_id = $1 OR recipient_id = $1)`
	args := []any{userID}

	if f.Type != nil {
		args = append(args, *f.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.StartDate != nil && f.EndDate != nil {
		args = append(args, *f.StartDate)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
		args = append(args, *f.EndDate)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListForUser: count: %w", err)
	}

	args = append(args, f.Limit)
	limitPos := len(args)
	args = append(args, f.Offset)
	offsetPos := len(args)

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			transactionColumns, where, limitPos, offsetPos),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListForUser: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListForUser: scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListForUser: rows: %w", err)
	}
	return txns, total, nil
}

func (r *TransactionRepository) ListByObligation(ctx context.Context, obligationID uuid.UUID) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE metadata->>'obligation_id' = $1 ORDER BY created_at`,
		obligationID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("ListByObligation: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByObligation: scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByObligation: rows: %w", err)
	}
	return txns, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.TransactionStatus, completedAt *time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, completed_at = $2 WHERE id = $3`,
		status, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var senderID, senderAcctID, recipientID, recipientAcctID uuid.NullUUID
	var metadata []byte

	err := s.Scan(
		&t.ID, &t.ReferenceNumber, &t.Type, &senderID, &senderAcctID,
		&recipientID, &recipientAcctID, &t.Amount, &t.Fee, &t.Status,
		&t.Description, &metadata, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if senderID.Valid {
		t.SenderID = &senderID.UUID
	}
	if senderAcctID.Valid {
		t.SenderAccountID = &senderAcctID.UUID
	}
	if recipientID.Valid {
		t.RecipientID = &recipientID.UUID
	}
	if recipientAcctID.Valid {
		t.RecipientAccountID = &recipientAcctID.UUID
	}
	if metadata != nil {
		t.Metadata = metadata
	}
	return &t, nil
}
