package debt_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/notify"
	"github.com/gbese/gbese-backend/internal/repository"
	"github.com/gbese/gbese-backend/internal/service/debt"
	"github.com/gbese/gbese-backend/internal/testutil"
)

func setupDebtService(t *testing.T, db *sql.DB) *debt.Service {
	t.Helper()
	return debt.NewService(
		repository.NewObligationRepository(db),
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		notify.NewService(repository.NewNotificationRepository(db)),
		db,
	)
}

func TestRepay_Partial(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDebtService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "holder@test.com")
	acct := testutil.SeedAccount(t, db, user.ID, 10_000, 0)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, user.ID, provider.ID, 12_000)
	testutil.SetDebt(t, db, acct.ID, 12_000)

	updated, err := svc.Repay(ctx, user.ID, obligation.ID, 5_000)

	require.NoError(t, err)
	assert.Equal(t, int64(7_000), updated.RemainingBalance)
	assert.Equal(t, domain.ObligationStatusActive, updated.Status)
	assert.Nil(t, updated.PaidOffAt)

	assert.Equal(t, int64(5_000), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, int64(7_000), testutil.GetDebt(t, db, acct.ID))
}

func TestRepay_FullPaysOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDebtService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "holder@test.com")
	acct := testutil.SeedAccount(t, db, user.ID, 20_000, 0)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, user.ID, provider.ID, 12_000)
	testutil.SetDebt(t, db, acct.ID, 12_000)

	updated, err := svc.Repay(ctx, user.ID, obligation.ID, 12_000)

	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.RemainingBalance)
	assert.Equal(t, domain.ObligationStatusPaid, updated.Status)
	assert.NotNil(t, updated.PaidOffAt)
	assert.Equal(t, int64(0), testutil.GetDebt(t, db, acct.ID))

	_, err = svc.Repay(ctx, user.ID, obligation.ID, 1_000)
	require.ErrorIs(t, err, domain.ErrAlreadyPaid)
}

func TestRepay_NotHolder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDebtService(t, db)
	ctx := context.Background()

	holder := testutil.SeedUser(t, db, "holder@test.com")
	other := testutil.SeedUser(t, db, "other@test.com")
	testutil.SeedAccount(t, db, holder.ID, 10_000, 0)
	testutil.SeedAccount(t, db, other.ID, 10_000, 0)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, holder.ID, provider.ID, 12_000)

	_, err := svc.Repay(ctx, other.ID, obligation.ID, 5_000)
	require.ErrorIs(t, err, domain.ErrNotDebtHolder)
}

func TestRepay_ExceedsRemainingBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDebtService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "holder@test.com")
	testutil.SeedAccount(t, db, user.ID, 50_000, 0)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, user.ID, provider.ID, 12_000)

	_, err := svc.Repay(ctx, user.ID, obligation.ID, 13_000)
	require.ErrorIs(t, err, domain.ErrAmountExceedsBalance)
}

func TestRepay_InsufficientFundsRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDebtService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "holder@test.com")
	acct := testutil.SeedAccount(t, db, user.ID, 2_000, 0)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, user.ID, provider.ID, 12_000)
	testutil.SetDebt(t, db, acct.ID, 12_000)

	_, err := svc.Repay(ctx, user.ID, obligation.ID, 5_000)

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(2_000), testutil.GetBalance(t, db, acct.ID))
	assert.Equal(t, int64(12_000), testutil.GetDebt(t, db, acct.ID))

	current, err := svc.GetObligation(ctx, obligation.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12_000), current.RemainingBalance)
}

func TestSchedulePayment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDebtService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "holder@test.com")
	testutil.SeedAccount(t, db, user.ID, 10_000, 0)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, user.ID, provider.ID, 12_000)

	first := time.Now().UTC().AddDate(0, 0, 7)
	schedule, err := svc.SchedulePayment(ctx, user.ID, obligation.ID, 1_000, "monthly", first)

	require.NoError(t, err)
	assert.True(t, schedule.IsActive)
	assert.Equal(t, "monthly", schedule.Frequency)

	schedules, err := svc.ListSchedules(ctx, user.ID, obligation.ID)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, schedule.ID, schedules[0].ID)
}

func TestListBorrowed_FilterByStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDebtService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "holder@test.com")
	acct := testutil.SeedAccount(t, db, user.ID, 50_000, 0)
	provider := testutil.SeedProvider(t, db, "quickcash")
	active := testutil.SeedObligation(t, db, user.ID, provider.ID, 12_000)
	paid := testutil.SeedObligation(t, db, user.ID, provider.ID, 3_000)
	testutil.SetDebt(t, db, acct.ID, 15_000)

	_, err := svc.Repay(ctx, user.ID, paid.ID, 3_000)
	require.NoError(t, err)

	status := domain.ObligationStatusActive
	obligations, err := svc.ListBorrowed(ctx, user.ID, &status)
	require.NoError(t, err)
	require.Len(t, obligations, 1)
	assert.Equal(t, active.ID, obligations[0].ID)

	all, err := svc.ListBorrowed(ctx, user.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListPayments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDebtService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "holder@test.com")
	acct := testutil.SeedAccount(t, db, user.ID, 10_000, 0)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, user.ID, provider.ID, 12_000)
	testutil.SetDebt(t, db, acct.ID, 12_000)

	_, err := svc.Repay(ctx, user.ID, obligation.ID, 2_000)
	require.NoError(t, err)
	_, err = svc.Repay(ctx, user.ID, obligation.ID, 3_000)
	require.NoError(t, err)

	payments, err := svc.ListPayments(ctx, obligation.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	for _, p := range payments {
		assert.Equal(t, domain.TransactionTypeDebtPayment, p.Type)
	}
}
