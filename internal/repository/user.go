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

const userColumns = `id, email, phone_number, first_name, last_name, password_hash,
	status, kyc_status, reputation_score, created_at, last_login_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByEmail: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByEmail: %w", err)
	}
	return u, nil
}

// FindByIdentifier resolves a member from an account number, email, or
// phone number. Used by the transfer engine's recipient lookup.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+qualifiedUserColumns+` FROM users u
		LEFT JOIN accounts a ON a.user_id = u.id
		WHERE u.email = $1 OR u.phone_number = $1 OR a.account_number = $1
		LIMIT 1`, identifier,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("FindByIdentifier: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("FindByIdentifier: %w", err)
	}
	return u, nil
}

const qualifiedUserColumns = `u.id, u.email, u.phone_number, u.first_name, u.last_name,
	u.password_hash, u.status, u.kyc_status, u.reputation_score, u.created_at, u.last_login_at`

func (r *UserRepository) Exists(ctx context.Context, email, phone string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = $1 OR phone_number = $2`,
		email, phone,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) Create(ctx context.Context, tx *sql.Tx, u *domain.User) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO users (
			id, email, phone_number, first_name, last_name, password_hash,
			status, kyc_status, reputation_score, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Email, u.PhoneNumber, u.FirstName, u.LastName, u.PasswordHash,
		u.Status, u.KYCStatus, u.ReputationScore, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id,
	)
	if err != nil {
		return fmt.Errorf("TouchLastLogin: %w", err)
	}
	return nil
}

// TransferCandidate is a member eligible to receive a debt transfer.
type TransferCandidate struct {
	User            domain.User
	AvailableCredit int64
}

// ListTransferCandidates ranks active, KYC-verified members other than the
// given user by reputation score, keeping only those with positive
// available credit.
func (r *UserRepository) ListTransferCandidates(ctx context.Context, excludeUserID uuid.UUID, limit int) ([]TransferCandidate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+qualifiedUserColumns+`,
			a.credit_limit - a.total_debt_obligation - a.pending_transfers_out AS available_credit
		FROM users u
		JOIN accounts a ON a.user_id = u.id
		WHERE u.id != $1
			AND u.status = $2
			AND u.kyc_status = $3
			AND a.credit_limit - a.total_debt_obligation - a.pending_transfers_out > 0
		ORDER BY u.reputation_score DESC
		LIMIT $4`,
		excludeUserID, domain.UserStatusActive, domain.KYCStatusVerified, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListTransferCandidates: %w", err)
	}
	defer rows.Close()

	var candidates []TransferCandidate
	for rows.Next() {
		var c TransferCandidate
		err := rows.Scan(
			&c.User.ID, &c.User.Email, &c.User.PhoneNumber, &c.User.FirstName, &c.User.LastName,
			&c.User.PasswordHash, &c.User.Status, &c.User.KYCStatus, &c.User.ReputationScore,
			&c.User.CreatedAt, &c.User.LastLoginAt, &c.AvailableCredit,
		)
		if err != nil {
			return nil, fmt.Errorf("ListTransferCandidates: scan: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransferCandidates: rows: %w", err)
	}
	return candidates, nil
}

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	err := s.Scan(
		&u.ID, &u.Email, &u.PhoneNumber, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.Status, &u.KYCStatus, &u.ReputationScore, &u.CreatedAt, &u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
