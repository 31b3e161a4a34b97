package service_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbese/gbese-backend/internal/config"
	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/notify"
	"github.com/gbese/gbese-backend/internal/repository"
	"github.com/gbese/gbese-backend/internal/service"
	"github.com/gbese/gbese-backend/internal/testutil"
)

func setupAccountService(t *testing.T, db *sql.DB) *service.AccountService {
	t.Helper()
	return service.NewAccountService(
		repository.NewUserRepository(db),
		repository.NewAccountRepository(db),
		repository.NewNotificationRepository(db),
		notify.NewService(repository.NewNotificationRepository(db)),
		db,
		&config.Config{
			DefaultDailyTransferLimit: 500_000,
			DefaultCreditLimit:        100_000,
			MaxCreditLimit:            1_000_000,
		},
	)
}

func TestRegister_CreatesUserAndAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupAccountService(t, db)
	ctx := context.Background()

	user, account, err := svc.Register(ctx, service.RegisterRequest{
		Email:       "new@test.com",
		PhoneNumber: "+2348012345678",
		FirstName:   "Ada",
		LastName:    "Obi",
		Password:    "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.KYCStatusPending, user.KYCStatus)
	assert.True(t, strings.HasPrefix(account.AccountNumber, "GBESE-"))
	assert.Equal(t, int64(0), account.CurrentBalance)
	assert.Equal(t, int64(100_000), account.CreditLimit)
	assert.Equal(t, int64(500_000), account.DailyTransferLimit)

	fetched, err := svc.GetAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, fetched.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupAccountService(t, db)
	ctx := context.Background()

	existing := testutil.SeedUser(t, db, "taken@test.com")

	_, _, err := svc.Register(ctx, service.RegisterRequest{
		Email:       existing.Email,
		PhoneNumber: "+2348099999999",
		FirstName:   "Ada",
		LastName:    "Obi",
		Password:    "password123",
	})

	require.ErrorIs(t, err, domain.ErrUserExists)
}

func TestRequestLimitIncrease(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupAccountService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "verified@test.com")
	testutil.SeedAccount(t, db, user.ID, 0, 100_000)

	acct, err := svc.RequestLimitIncrease(ctx, user.ID, 300_000)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), acct.CreditLimit)

	// Above the system cap.
	_, err = svc.RequestLimitIncrease(ctx, user.ID, 2_000_000)
	require.ErrorIs(t, err, domain.ErrCreditLimitCapped)

	// Not an increase.
	_, err = svc.RequestLimitIncrease(ctx, user.ID, 300_000)
	require.ErrorIs(t, err, domain.ErrCreditLimitTooLow)
}

func TestRequestLimitIncrease_RequiresVerifiedKYC(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupAccountService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "pending@test.com")
	testutil.SeedAccount(t, db, user.ID, 0, 100_000)

	_, err := db.Exec(`UPDATE users SET kyc_status = 'pending' WHERE id = $1`, user.ID)
	require.NoError(t, err)

	_, err = svc.RequestLimitIncrease(ctx, user.ID, 200_000)
	require.ErrorIs(t, err, domain.ErrKYCRequired)
}

func TestSetDailyTransferLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupAccountService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "member@test.com")
	testutil.SeedAccount(t, db, user.ID, 0, 0)

	// Lowering needs no verification.
	acct, err := svc.SetDailyTransferLimit(ctx, user.ID, 100_000)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), acct.DailyTransferLimit)

	// Raising does.
	_, err = db.Exec(`UPDATE users SET kyc_status = 'pending' WHERE id = $1`, user.ID)
	require.NoError(t, err)

	_, err = svc.SetDailyTransferLimit(ctx, user.ID, 200_000)
	require.ErrorIs(t, err, domain.ErrKYCRequired)
}
