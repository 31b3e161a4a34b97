package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/domain"
)

const providerColumns = `id, name, slug, default_interest_rate, min_loan_amount,
	max_loan_amount, min_tenure_months, max_tenure_months, is_active, created_at`

type ProviderRepository struct {
	db *sql.DB
}

func NewProviderRepository(db *sql.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CreditProvider, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM credit_providers WHERE id = $1`, id,
	)
	p, err := scanProvider(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrProviderNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

func (r *ProviderRepository) ListActive(ctx context.Context) ([]domain.CreditProvider, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+providerColumns+` FROM credit_providers WHERE is_active ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer rows.Close()

	var providers []domain.CreditProvider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive: scan: %w", err)
		}
		providers = append(providers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActive: rows: %w", err)
	}
	return providers, nil
}

func (r *ProviderRepository) Create(ctx context.Context, p *domain.CreditProvider) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_providers (
			id, name, slug, default_interest_rate, min_loan_amount,
			max_loan_amount, min_tenure_months, max_tenure_months, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Slug, p.DefaultInterestRate, p.MinLoanAmount,
		p.MaxLoanAmount, p.MinTenureMonths, p.MaxTenureMonths, p.IsActive, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func scanProvider(s scanner) (*domain.CreditProvider, error) {
	var p domain.CreditProvider
	err := s.Scan(
		&p.ID, &p.Name, &p.Slug, &p.DefaultInterestRate, &p.MinLoanAmount,
		&p.MaxLoanAmount, &p.MinTenureMonths, &p.MaxTenureMonths, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
