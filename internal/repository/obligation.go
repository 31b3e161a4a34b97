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

const obligationColumns = `id, obligation_number, current_holder_id, original_borrower_id,
	original_creditor_id, principal_amount, remaining_balance, interest_rate,
	monthly_payment, due_date, next_payment_date, status, created_at,
	transferred_at, paid_off_at`

type ObligationRepository struct {
	db *sql.DB
}

func NewObligationRepository(db *sql.DB) *ObligationRepository {
	return &ObligationRepository{db: db}
}

func (r *ObligationRepository) Create(ctx context.Context, tx *sql.Tx, o *domain.DebtObligation) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO debt_obligations (
			id, obligation_number, current_holder_id, original_borrower_id,
			original_creditor_id, principal_amount, remaining_balance, interest_rate,
			monthly_payment, due_date, next_payment_date, status, created_at,
			transferred_at, paid_off_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.ObligationNumber, o.CurrentHolderID, o.OriginalBorrowerID,
		o.OriginalCreditorID, o.PrincipalAmount, o.RemainingBalance, o.InterestRate,
		o.MonthlyPayment, o.DueDate, o.NextPaymentDate, o.Status, o.CreatedAt,
		o.TransferredAt, o.PaidOffAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ObligationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DebtObligation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+obligationColumns+` FROM debt_obligations WHERE id = $1`, id,
	)
	o, err := scanObligation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return o, nil
}

func (r *ObligationRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.DebtObligation, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+obligationColumns+` FROM debt_obligations WHERE id = $1 FOR UPDATE`, id,
	)
	o, err := scanObligation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return o, nil
}

// ListForBorrower returns obligations originally borrowed by the user,
// soonest due first.
func (r *ObligationRepository) ListForBorrower(ctx context.Context, borrowerID uuid.UUID, status *domain.ObligationStatus) ([]domain.DebtObligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM debt_obligations WHERE original_borrower_id = $1`
	args := []any{borrowerID}
	if status != nil {
		args = append(args, *status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY due_date"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListForBorrower: %w", err)
	}
	defer rows.Close()

	var obligations []domain.DebtObligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("ListForBorrower: scan: %w", err)
		}
		obligations = append(obligations, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListForBorrower: rows: %w", err)
	}
	return obligations, nil
}

func (r *ObligationRepository) ListForHolder(ctx context.Context, holderID uuid.UUID) ([]domain.DebtObligation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+obligationColumns+` FROM debt_obligations
		WHERE current_holder_id = $1 ORDER BY due_date`, holderID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListForHolder: %w", err)
	}
	defer rows.Close()

	var obligations []domain.DebtObligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("ListForHolder: scan: %w", err)
		}
		obligations = append(obligations, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListForHolder: rows: %w", err)
	}
	return obligations, nil
}

// ApplyRepayment writes the reduced balance, flipping to paid when the
// balance is exhausted. The status guard keeps a paid obligation closed.
func (r *ObligationRepository) ApplyRepayment(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance int64, status domain.ObligationStatus, paidOffAt *time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE debt_obligations
		SET remaining_balance = $1, status = $2, paid_off_at = $3
		WHERE id = $4 AND status = $5`,
		newBalance, status, paidOffAt, id, domain.ObligationStatusActive,
	)
	if err != nil {
		return fmt.Errorf("ApplyRepayment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ApplyRepayment: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("ApplyRepayment: %w", domain.ErrVersionConflict)
	}
	return nil
}

func (r *ObligationRepository) UpdateHolder(ctx context.Context, tx *sql.Tx, id, newHolderID uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE debt_obligations SET current_holder_id = $1, transferred_at = $2
		WHERE id = $3 AND status = $4`,
		newHolderID, at, id, domain.ObligationStatusActive,
	)
	if err != nil {
		return fmt.Errorf("UpdateHolder: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateHolder: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateHolder: %w", domain.ErrVersionConflict)
	}
	return nil
}

func (r *ObligationRepository) CreateSchedule(ctx context.Context, s *domain.PaymentSchedule) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_schedules (
			id, debt_id, user_id, next_execution_date, amount, frequency, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.DebtID, s.UserID, s.NextExecutionDate, s.Amount, s.Frequency, s.IsActive, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateSchedule: %w", err)
	}
	return nil
}

func (r *ObligationRepository) ListSchedules(ctx context.Context, debtID uuid.UUID) ([]domain.PaymentSchedule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, debt_id, user_id, next_execution_date, amount, frequency, is_active, created_at
		FROM payment_schedules WHERE debt_id = $1 ORDER BY next_execution_date`, debtID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListSchedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.PaymentSchedule
	for rows.Next() {
		var s domain.PaymentSchedule
		if err := rows.Scan(&s.ID, &s.DebtID, &s.UserID, &s.NextExecutionDate, &s.Amount, &s.Frequency, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListSchedules: scan: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSchedules: rows: %w", err)
	}
	return schedules, nil
}

func scanObligation(s scanner) (*domain.DebtObligation, error) {
	var o domain.DebtObligation
	err := s.Scan(
		&o.ID, &o.ObligationNumber, &o.CurrentHolderID, &o.OriginalBorrowerID,
		&o.OriginalCreditorID, &o.PrincipalAmount, &o.RemainingBalance, &o.InterestRate,
		&o.MonthlyPayment, &o.DueDate, &o.NextPaymentDate, &o.Status, &o.CreatedAt,
		&o.TransferredAt, &o.PaidOffAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
