package transfer_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbese/gbese-backend/internal/config"
	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/notify"
	"github.com/gbese/gbese-backend/internal/repository"
	"github.com/gbese/gbese-backend/internal/service/transfer"
	"github.com/gbese/gbese-backend/internal/testutil"
)

func setupTransferService(t *testing.T, db *sql.DB) *transfer.Service {
	t.Helper()
	return transfer.NewService(
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewUserRepository(db),
		notify.NewService(repository.NewNotificationRepository(db)),
		db,
		&config.Config{WithdrawalFee: 50},
	)
}

func TestTransfer_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	senderAcct := testutil.SeedAccount(t, db, sender.ID, 10_000, 0)
	recipientAcct := testutil.SeedAccount(t, db, recipient.ID, 5_000, 0)

	txn, err := svc.Transfer(ctx, transfer.Request{
		SenderUserID:        sender.ID,
		RecipientIdentifier: "recipient@test.com",
		Amount:              3_000,
		Description:         "lunch",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, domain.TransactionTypeTransfer, txn.Type)
	assert.Equal(t, int64(3_000), txn.Amount)
	assert.NotNil(t, txn.CompletedAt)

	assert.Equal(t, int64(7_000), testutil.GetBalance(t, db, senderAcct.ID))
	assert.Equal(t, int64(8_000), testutil.GetBalance(t, db, recipientAcct.ID))

	var dailyUsed int64
	require.NoError(t, db.QueryRow(
		`SELECT daily_transfer_amount FROM accounts WHERE id = $1`, senderAcct.ID,
	).Scan(&dailyUsed))
	assert.Equal(t, int64(3_000), dailyUsed)
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	senderAcct := testutil.SeedAccount(t, db, sender.ID, 1_000, 0)
	recipientAcct := testutil.SeedAccount(t, db, recipient.ID, 0, 0)

	_, err := svc.Transfer(ctx, transfer.Request{
		SenderUserID:        sender.ID,
		RecipientIdentifier: "recipient@test.com",
		Amount:              5_000,
	})

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(1_000), testutil.GetBalance(t, db, senderAcct.ID))
	assert.Equal(t, int64(0), testutil.GetBalance(t, db, recipientAcct.ID))
}

func TestTransfer_SelfTransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	testutil.SeedAccount(t, db, sender.ID, 10_000, 0)

	_, err := svc.Transfer(ctx, transfer.Request{
		SenderUserID:        sender.ID,
		RecipientIdentifier: "sender@test.com",
		Amount:              1_000,
	})

	require.ErrorIs(t, err, domain.ErrSelfTransfer)
}

func TestTransfer_RecipientNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	testutil.SeedAccount(t, db, sender.ID, 10_000, 0)

	_, err := svc.Transfer(ctx, transfer.Request{
		SenderUserID:        sender.ID,
		RecipientIdentifier: "nobody@test.com",
		Amount:              1_000,
	})

	require.ErrorIs(t, err, domain.ErrRecipientNotFound)
}

func TestTransfer_DailyLimitExceeded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	senderAcct := testutil.SeedAccount(t, db, sender.ID, 50_000, 0)
	testutil.SeedAccount(t, db, recipient.ID, 0, 0)

	_, err := db.Exec(`UPDATE accounts SET daily_transfer_limit = 1000 WHERE id = $1`, senderAcct.ID)
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, transfer.Request{
		SenderUserID:        sender.ID,
		RecipientIdentifier: "recipient@test.com",
		Amount:              2_000,
	})

	require.ErrorIs(t, err, domain.ErrDailyLimitExceeded)
	assert.Equal(t, int64(50_000), testutil.GetBalance(t, db, senderAcct.ID))
}

func TestTransfer_ConcurrentOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	senderAcct := testutil.SeedAccount(t, db, sender.ID, 5_000, 0)
	recipientAcct := testutil.SeedAccount(t, db, recipient.ID, 0, 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transfer(ctx, transfer.Request{
				SenderUserID:        sender.ID,
				RecipientIdentifier: "recipient@test.com",
				Amount:              4_000,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one transfer should win")
	assert.Equal(t, int64(1_000), testutil.GetBalance(t, db, senderAcct.ID))
	assert.Equal(t, int64(4_000), testutil.GetBalance(t, db, recipientAcct.ID))
}

func TestDeposit_InitiateAndConfirm(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "user@test.com")
	acct := testutil.SeedAccount(t, db, user.ID, 0, 0)

	pending, err := svc.InitiateDeposit(ctx, user.ID, 10_000, "card funding")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, pending.Status)
	assert.Equal(t, int64(0), testutil.GetBalance(t, db, acct.ID))

	confirmed, err := svc.ConfirmDeposit(ctx, pending.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, confirmed.Status)
	assert.Equal(t, int64(10_000), testutil.GetBalance(t, db, acct.ID))

	_, err = svc.ConfirmDeposit(ctx, pending.ReferenceNumber)
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
}

func TestWithdrawal_ReserveAndSettle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "user@test.com")
	acct := testutil.SeedAccount(t, db, user.ID, 10_000, 0)

	pending, err := svc.InitiateWithdrawal(ctx, user.ID, 2_000, "to bank")
	require.NoError(t, err)
	assert.Equal(t, int64(50), pending.Fee)

	var reserved int64
	require.NoError(t, db.QueryRow(
		`SELECT pending_transfers_out FROM accounts WHERE id = $1`, acct.ID,
	).Scan(&reserved))
	assert.Equal(t, int64(2_050), reserved)
	assert.Equal(t, int64(10_000), testutil.GetBalance(t, db, acct.ID))

	completed, err := svc.ConfirmWithdrawal(ctx, pending.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, completed.Status)
	assert.Equal(t, int64(7_950), testutil.GetBalance(t, db, acct.ID))

	require.NoError(t, db.QueryRow(
		`SELECT pending_transfers_out FROM accounts WHERE id = $1`, acct.ID,
	).Scan(&reserved))
	assert.Equal(t, int64(0), reserved)
}

func TestWithdrawal_FailReleasesReservation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "user@test.com")
	acct := testutil.SeedAccount(t, db, user.ID, 10_000, 0)

	pending, err := svc.InitiateWithdrawal(ctx, user.ID, 2_000, "")
	require.NoError(t, err)

	failed, err := svc.FailWithdrawal(ctx, pending.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, failed.Status)
	assert.Equal(t, int64(10_000), testutil.GetBalance(t, db, acct.ID))

	var reserved int64
	require.NoError(t, db.QueryRow(
		`SELECT pending_transfers_out FROM accounts WHERE id = $1`, acct.ID,
	).Scan(&reserved))
	assert.Equal(t, int64(0), reserved)
}

func TestWithdrawal_InsufficientCash(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "user@test.com")
	testutil.SeedAccount(t, db, user.ID, 2_000, 100_000)

	// Credit headroom does not make cash withdrawable.
	_, err := svc.InitiateWithdrawal(ctx, user.ID, 2_000, "")
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}
