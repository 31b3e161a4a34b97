package credit_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbese/gbese-backend/internal/config"
	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/notify"
	"github.com/gbese/gbese-backend/internal/repository"
	"github.com/gbese/gbese-backend/internal/service/credit"
	"github.com/gbese/gbese-backend/internal/testutil"
)

func setupCreditService(t *testing.T, db *sql.DB) *credit.Service {
	t.Helper()
	return credit.NewService(
		repository.NewProviderRepository(db),
		repository.NewApplicationRepository(db),
		repository.NewObligationRepository(db),
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		notify.NewService(repository.NewNotificationRepository(db)),
		db,
		&config.Config{},
	)
}

func TestApply_DisbursesLoan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCreditService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "borrower@test.com")
	acct := testutil.SeedAccount(t, db, user.ID, 0, 200_000)
	provider := testutil.SeedProvider(t, db, "quickcash")

	// 5% annual on 100_000 over 12 months: interest 5_000.
	result, err := svc.Apply(ctx, credit.ApplyRequest{
		UserID:       user.ID,
		ProviderID:   provider.ID,
		Amount:       100_000,
		TenureMonths: 12,
		Purpose:      "working capital",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationStatusDisbursed, result.Application.Status)
	require.NotNil(t, result.Application.MonthlyPayment)
	assert.Equal(t, int64(8_750), *result.Application.MonthlyPayment)

	assert.Equal(t, int64(105_000), result.Obligation.RemainingBalance)
	assert.Equal(t, int64(100_000), result.Obligation.PrincipalAmount)
	assert.Equal(t, user.ID, result.Obligation.CurrentHolderID)
	assert.Equal(t, domain.ObligationStatusActive, result.Obligation.Status)

	assert.Equal(t, domain.TransactionTypeLoanDisbursement, result.Transaction.Type)
	assert.Equal(t, int64(100_000), result.Transaction.Amount)

	assert.Equal(t, int64(100_000), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, int64(105_000), testutil.GetDebt(t, db, acct.ID))
}

func TestApply_AmountOutOfRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCreditService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "borrower@test.com")
	testutil.SeedAccount(t, db, user.ID, 0, 2_000_000)
	provider := testutil.SeedProvider(t, db, "quickcash")

	_, err := svc.Apply(ctx, credit.ApplyRequest{
		UserID:       user.ID,
		ProviderID:   provider.ID,
		Amount:       600_000,
		TenureMonths: 12,
	})

	require.ErrorIs(t, err, domain.ErrAmountOutOfRange)
}

func TestApply_TenureExceeded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCreditService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "borrower@test.com")
	testutil.SeedAccount(t, db, user.ID, 0, 200_000)
	provider := testutil.SeedProvider(t, db, "quickcash")

	_, err := svc.Apply(ctx, credit.ApplyRequest{
		UserID:       user.ID,
		ProviderID:   provider.ID,
		Amount:       50_000,
		TenureMonths: 36,
	})

	require.ErrorIs(t, err, domain.ErrTenureExceeded)
}

func TestApply_InsufficientHeadroom(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCreditService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "borrower@test.com")
	acct := testutil.SeedAccount(t, db, user.ID, 0, 50_000)
	provider := testutil.SeedProvider(t, db, "quickcash")

	_, err := svc.Apply(ctx, credit.ApplyRequest{
		UserID:       user.ID,
		ProviderID:   provider.ID,
		Amount:       100_000,
		TenureMonths: 12,
	})

	require.ErrorIs(t, err, domain.ErrInsufficientCreditHeadroom)
	assert.Equal(t, int64(0), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, int64(0), testutil.GetDebt(t, db, acct.ID))
}

func TestApply_InactiveProvider(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCreditService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "borrower@test.com")
	testutil.SeedAccount(t, db, user.ID, 0, 200_000)
	provider := testutil.SeedProvider(t, db, "quickcash")

	_, err := db.Exec(`UPDATE credit_providers SET is_active = FALSE WHERE id = $1`, provider.ID)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, credit.ApplyRequest{
		UserID:       user.ID,
		ProviderID:   provider.ID,
		Amount:       50_000,
		TenureMonths: 12,
	})

	require.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestDisburse_Twice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCreditService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "borrower@test.com")
	acct := testutil.SeedAccount(t, db, user.ID, 0, 200_000)
	provider := testutil.SeedProvider(t, db, "quickcash")

	result, err := svc.Apply(ctx, credit.ApplyRequest{
		UserID:       user.ID,
		ProviderID:   provider.ID,
		Amount:       100_000,
		TenureMonths: 12,
	})
	require.NoError(t, err)

	_, err = svc.Disburse(ctx, result.Application.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	// No double payout.
	assert.Equal(t, int64(100_000), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, int64(105_000), testutil.GetDebt(t, db, acct.ID))
}
