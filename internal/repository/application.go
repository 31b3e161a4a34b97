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

const applicationColumns = `id, application_number, user_id, provider_id, requested_amount,
	interest_rate, tenure_months, purpose, status, approved_amount, monthly_payment,
	submitted_at, disbursed_at`

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *domain.CreditApplication) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_applications (
			id, application_number, user_id, provider_id, requested_amount,
			interest_rate, tenure_months, purpose, status, approved_amount, monthly_payment,
			submitted_at, disbursed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.ApplicationNumber, a.UserID, a.ProviderID, a.RequestedAmount,
		a.InterestRate, a.TenureMonths, a.Purpose, a.Status, a.ApprovedAmount, a.MonthlyPayment,
		a.SubmittedAt, a.DisbursedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CreditApplication, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM credit_applications WHERE id = $1`, id,
	)
	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

func (r *ApplicationRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.CreditApplication, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM credit_applications WHERE id = $1 FOR UPDATE`, id,
	)
	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

// MarkDisbursed flips a submitted application to disbursed. The status
// guard in the WHERE clause makes double-disbursement a no-op at the
// storage level as well.
func (r *ApplicationRepository) MarkDisbursed(ctx context.Context, tx *sql.Tx, id uuid.UUID, approvedAmount, monthlyPayment int64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE credit_applications
		SET status = $1, approved_amount = $2, monthly_payment = $3, disbursed_at = $4
		WHERE id = $5 AND status = $6`,
		domain.ApplicationStatusDisbursed, approvedAmount, monthlyPayment, at,
		id, domain.ApplicationStatusSubmitted,
	)
	if err != nil {
		return fmt.Errorf("MarkDisbursed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkDisbursed: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkDisbursed: %w", domain.ErrInvalidStatus)
	}
	return nil
}

func scanApplication(s scanner) (*domain.CreditApplication, error) {
	var a domain.CreditApplication
	err := s.Scan(
		&a.ID, &a.ApplicationNumber, &a.UserID, &a.ProviderID, &a.RequestedAmount,
		&a.InterestRate, &a.TenureMonths, &a.Purpose, &a.Status, &a.ApprovedAmount, &a.MonthlyPayment,
		&a.SubmittedAt, &a.DisbursedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
