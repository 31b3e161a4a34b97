package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/domain"
)

const accountColumns = `id, user_id, account_number, current_balance, credit_limit,
	total_debt_obligation, pending_transfers_out, pending_transfers_in,
	daily_transfer_limit, daily_transfer_amount, version, created_at`

// AccountRepository owns every mutation of the Account money counters.
// The Debit/Credit/AdjustDebt/Reserve/Release/AddDailyUsage primitives are
// the only write paths for balances; each validates its amount, applies an
// optimistically-versioned UPDATE inside the caller's transaction, and on
// success advances the in-memory snapshot so subsequent primitives in the
// same unit see the committed-to-be values.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByUserID: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetByUserID: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, tx *sql.Tx, account *domain.Account) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (
			id, user_id, account_number, current_balance, credit_limit,
			total_debt_obligation, pending_transfers_out, pending_transfers_in,
			daily_transfer_limit, daily_transfer_amount, version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		account.ID, account.UserID, account.AccountNumber,
		account.CurrentBalance, account.CreditLimit,
		account.TotalDebtObligation, account.PendingTransfersOut, account.PendingTransfersIn,
		account.DailyTransferLimit, account.DailyTransferAmount,
		account.Version, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

// LockPair locks two accounts in canonical id order so concurrent
// multi-account units cannot deadlock on lock ordering. Results are
// returned in argument order.
func (r *AccountRepository) LockPair(ctx context.Context, tx *sql.Tx, first, second uuid.UUID) (*domain.Account, *domain.Account, error) {
	ids := []uuid.UUID{first, second}
	if second.String() < first.String() {
		ids[0], ids[1] = second, first
	}

	locked := make(map[uuid.UUID]*domain.Account, 2)
	for _, id := range ids {
		acct, err := r.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("LockPair: %w", err)
		}
		locked[id] = acct
	}
	return locked[first], locked[second], nil
}

// Debit removes cash from the account. Fails with ErrInsufficientFunds if
// the balance would go negative.
func (r *AccountRepository) Debit(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("Debit: %w", domain.ErrInvalidAmount)
	}
	if acct.CurrentBalance-amount < 0 {
		return fmt.Errorf("Debit: %w", domain.ErrInsufficientFunds)
	}
	if err := r.applyCounter(ctx, tx, acct, "current_balance", acct.CurrentBalance-amount); err != nil {
		return fmt.Errorf("Debit: %w", err)
	}
	acct.CurrentBalance -= amount
	return nil
}

// Credit adds cash to the account.
func (r *AccountRepository) Credit(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("Credit: %w", domain.ErrInvalidAmount)
	}
	if err := r.applyCounter(ctx, tx, acct, "current_balance", acct.CurrentBalance+amount); err != nil {
		return fmt.Errorf("Credit: %w", err)
	}
	acct.CurrentBalance += amount
	return nil
}

// AdjustDebt moves total_debt_obligation by delta, which may be negative.
func (r *AccountRepository) AdjustDebt(ctx context.Context, tx *sql.Tx, acct *domain.Account, delta int64) error {
	if delta == 0 {
		return fmt.Errorf("AdjustDebt: %w", domain.ErrInvalidAmount)
	}
	if err := r.applyCounter(ctx, tx, acct, "total_debt_obligation", acct.TotalDebtObligation+delta); err != nil {
		return fmt.Errorf("AdjustDebt: %w", err)
	}
	acct.TotalDebtObligation += delta
	return nil
}

// Reserve parks amount in pending_transfers_out for an in-flight
// withdrawal or transfer.
func (r *AccountRepository) Reserve(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("Reserve: %w", domain.ErrInvalidAmount)
	}
	if err := r.applyCounter(ctx, tx, acct, "pending_transfers_out", acct.PendingTransfersOut+amount); err != nil {
		return fmt.Errorf("Reserve: %w", err)
	}
	acct.PendingTransfersOut += amount
	return nil
}

// Release returns a previously reserved amount.
func (r *AccountRepository) Release(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("Release: %w", domain.ErrInvalidAmount)
	}
	if acct.PendingTransfersOut-amount < 0 {
		return fmt.Errorf("Release: %w", domain.ErrInvalidAmount)
	}
	if err := r.applyCounter(ctx, tx, acct, "pending_transfers_out", acct.PendingTransfersOut-amount); err != nil {
		return fmt.Errorf("Release: %w", err)
	}
	acct.PendingTransfersOut -= amount
	return nil
}

// AddDailyUsage counts amount against the daily transfer allowance. The
// 24h reset of the counter is external to this core.
func (r *AccountRepository) AddDailyUsage(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("AddDailyUsage: %w", domain.ErrInvalidAmount)
	}
	if err := r.applyCounter(ctx, tx, acct, "daily_transfer_amount", acct.DailyTransferAmount+amount); err != nil {
		return fmt.Errorf("AddDailyUsage: %w", err)
	}
	acct.DailyTransferAmount += amount
	return nil
}

func (r *AccountRepository) UpdateCreditLimit(ctx context.Context, tx *sql.Tx, acct *domain.Account, newLimit int64) error {
	if newLimit <= 0 {
		return fmt.Errorf("UpdateCreditLimit: %w", domain.ErrInvalidAmount)
	}
	if err := r.applyCounter(ctx, tx, acct, "credit_limit", newLimit); err != nil {
		return fmt.Errorf("UpdateCreditLimit: %w", err)
	}
	acct.CreditLimit = newLimit
	return nil
}

func (r *AccountRepository) UpdateDailyTransferLimit(ctx context.Context, tx *sql.Tx, acct *domain.Account, newLimit int64) error {
	if newLimit <= 0 {
		return fmt.Errorf("UpdateDailyTransferLimit: %w", domain.ErrInvalidAmount)
	}
	if err := r.applyCounter(ctx, tx, acct, "daily_transfer_limit", newLimit); err != nil {
		return fmt.Errorf("UpdateDailyTransferLimit: %w", err)
	}
	acct.DailyTransferLimit = newLimit
	return nil
}

// applyCounter writes one counter with an optimistic version check and
// bumps both the stored and the snapshot version.
func (r *AccountRepository) applyCounter(ctx context.Context, tx *sql.Tx, acct *domain.Account, column string, newValue int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET `+column+` = $1, version = $2 WHERE id = $3 AND version = $4`,
		newValue, acct.Version+1, acct.ID, acct.Version,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrVersionConflict
	}
	acct.Version++
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.ID, &a.UserID, &a.AccountNumber, &a.CurrentBalance, &a.CreditLimit,
		&a.TotalDebtObligation, &a.PendingTransfersOut, &a.PendingTransfersIn,
		&a.DailyTransferLimit, &a.DailyTransferAmount, &a.Version, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
