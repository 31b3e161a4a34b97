package testutil

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/gbese/gbese-backend/internal/domain"
)

var userCounter int

// SeedUser inserts a verified, active member.
func SeedUser(t *testing.T, db *sql.DB, email string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	userCounter++
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PhoneNumber:  fmt.Sprintf("+23480000%05d", userCounter),
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
		KYCStatus:    domain.KYCStatusVerified,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, phone_number, first_name, last_name, password_hash, status, kyc_status, reputation_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Email, u.PhoneNumber, u.FirstName, u.LastName, u.PasswordHash,
		u.Status, u.KYCStatus, u.ReputationScore, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

// SeedAccount inserts an account with the given cash balance and credit
// limit. The daily transfer limit is generous so transfer tests exercise
// the balance paths by default.
func SeedAccount(t *testing.T, db *sql.DB, userID uuid.UUID, balance, creditLimit int64) *domain.Account {
	t.Helper()

	userCounter++
	a := &domain.Account{
		ID:                 uuid.New(),
		UserID:             userID,
		AccountNumber:      fmt.Sprintf("GBESE-%010d", userCounter),
		CurrentBalance:     balance,
		CreditLimit:        creditLimit,
		DailyTransferLimit: 1_000_000,
		Version:            1,
		CreatedAt:          time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, user_id, account_number, current_balance, credit_limit,
			total_debt_obligation, pending_transfers_out, pending_transfers_in,
			daily_transfer_limit, daily_transfer_amount, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.UserID, a.AccountNumber, a.CurrentBalance, a.CreditLimit,
		a.TotalDebtObligation, a.PendingTransfersOut, a.PendingTransfersIn,
		a.DailyTransferLimit, a.DailyTransferAmount, a.Version, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed account for %s: %v", userID, err)
	}
	return a
}

// SeedProvider inserts an active credit provider with a 5% annual rate and
// a wide loan range.
func SeedProvider(t *testing.T, db *sql.DB, slug string) *domain.CreditProvider {
	t.Helper()

	p := &domain.CreditProvider{
		ID:                  uuid.New(),
		Name:                "Provider " + slug,
		Slug:                slug,
		DefaultInterestRate: decimal.NewFromInt(5),
		MinLoanAmount:       1_000,
		MaxLoanAmount:       500_000,
		MinTenureMonths:     1,
		MaxTenureMonths:     24,
		IsActive:            true,
		CreatedAt:           time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO credit_providers (id, name, slug, default_interest_rate, min_loan_amount,
			max_loan_amount, min_tenure_months, max_tenure_months, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Slug, p.DefaultInterestRate, p.MinLoanAmount,
		p.MaxLoanAmount, p.MinTenureMonths, p.MaxTenureMonths, p.IsActive, p.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed provider %s: %v", slug, err)
	}
	return p
}

// SeedObligation inserts an active obligation held by holderID.
func SeedObligation(t *testing.T, db *sql.DB, holderID, providerID uuid.UUID, remaining int64) *domain.DebtObligation {
	t.Helper()

	now := time.Now().UTC()
	userCounter++
	o := &domain.DebtObligation{
		ID:                 uuid.New(),
		ObligationNumber:   fmt.Sprintf("OBL-%d-%06d", now.UnixMilli(), userCounter),
		CurrentHolderID:    holderID,
		OriginalBorrowerID: holderID,
		OriginalCreditorID: providerID,
		PrincipalAmount:    remaining,
		RemainingBalance:   remaining,
		InterestRate:       decimal.NewFromInt(5),
		MonthlyPayment:     remaining / 12,
		DueDate:            now.AddDate(1, 0, 0),
		NextPaymentDate:    now.AddDate(0, 1, 0),
		Status:             domain.ObligationStatusActive,
		CreatedAt:          now,
	}

	_, err := db.Exec(
		`INSERT INTO debt_obligations (id, obligation_number, current_holder_id, original_borrower_id,
			original_creditor_id, principal_amount, remaining_balance, interest_rate,
			monthly_payment, due_date, next_payment_date, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.ID, o.ObligationNumber, o.CurrentHolderID, o.OriginalBorrowerID,
		o.OriginalCreditorID, o.PrincipalAmount, o.RemainingBalance, o.InterestRate,
		o.MonthlyPayment, o.DueDate, o.NextPaymentDate, o.Status, o.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed obligation for %s: %v", holderID, err)
	}
	return o
}

// SetDebt writes total_debt_obligation directly, for arranging scenarios.
func SetDebt(t *testing.T, db *sql.DB, accountID uuid.UUID, debt int64) {
	t.Helper()
	if _, err := db.Exec(
		`UPDATE accounts SET total_debt_obligation = $1 WHERE id = $2`, debt, accountID,
	); err != nil {
		t.Fatalf("set debt for %s: %v", accountID, err)
	}
}

func GetBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT current_balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get balance %s: %v", accountID, err)
	}
	return balance
}

func GetDebt(t *testing.T, db *sql.DB, accountID uuid.UUID) int64 {
	t.Helper()

	var debt int64
	err := db.QueryRow(`SELECT total_debt_obligation FROM accounts WHERE id = $1`, accountID).Scan(&debt)
	if err != nil {
		t.Fatalf("get debt %s: %v", accountID, err)
	}
	return debt
}
