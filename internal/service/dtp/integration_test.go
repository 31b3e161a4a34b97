package dtp_test

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
	"github.com/gbese/gbese-backend/internal/service/dtp"
	"github.com/gbese/gbese-backend/internal/testutil"
)

func setupDTPService(t *testing.T, db *sql.DB) *dtp.Service {
	t.Helper()
	return dtp.NewService(
		repository.NewTransferRequestRepository(db),
		repository.NewObligationRepository(db),
		repository.NewAccountRepository(db),
		repository.NewUserRepository(db),
		repository.NewTransactionRepository(db),
		notify.NewService(repository.NewNotificationRepository(db)),
		db,
		&config.Config{TransferRequestTTLHours: 168, AcceptTimeoutS: 30},
	)
}

func TestAccept_MovesDebtAndIncentive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDTPService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	senderAcct := testutil.SeedAccount(t, db, sender.ID, 5_000, 0)
	recipientAcct := testutil.SeedAccount(t, db, recipient.ID, 0, 50_000)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, sender.ID, provider.ID, 20_000)
	testutil.SetDebt(t, db, senderAcct.ID, 20_000)

	req, err := svc.Initiate(ctx, dtp.InitiateRequest{
		SenderID:            sender.ID,
		DebtID:              obligation.ID,
		RecipientIdentifier: "recipient@test.com",
		IncentiveAmount:     1_000,
		Reason:              "cash flow crunch",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, req.Status)

	accepted, err := svc.Respond(ctx, recipient.ID, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.AcceptedAt)

	var holderID string
	require.NoError(t, db.QueryRow(
		`SELECT current_holder_id FROM debt_obligations WHERE id = $1`, obligation.ID,
	).Scan(&holderID))
	assert.Equal(t, recipient.ID.String(), holderID)

	assert.Equal(t, int64(0), testutil.GetDebt(t, db, senderAcct.ID))
	assert.Equal(t, int64(4_000), testutil.GetBalance(t, db, senderAcct.ID))
	assert.Equal(t, int64(20_000), testutil.GetDebt(t, db, recipientAcct.ID))
	assert.Equal(t, int64(1_000), testutil.GetBalance(t, db, recipientAcct.ID))

	var incentiveCount int
	require.NoError(t, db.QueryRow(
		`SELECT count(*) FROM transactions WHERE type = $1 AND metadata->>'request_id' = $2`,
		domain.TransactionTypeTransferIncentive, req.ID.String(),
	).Scan(&incentiveCount))
	assert.Equal(t, 1, incentiveCount)

	// A second acceptance fails and moves nothing again.
	_, err = svc.Respond(ctx, recipient.ID, req.ID, true)
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	require.NoError(t, db.QueryRow(
		`SELECT current_holder_id FROM debt_obligations WHERE id = $1`, obligation.ID,
	).Scan(&holderID))
	assert.Equal(t, recipient.ID.String(), holderID)
	assert.Equal(t, int64(4_000), testutil.GetBalance(t, db, senderAcct.ID))
	assert.Equal(t, int64(1_000), testutil.GetBalance(t, db, recipientAcct.ID))
	assert.Equal(t, int64(20_000), testutil.GetDebt(t, db, recipientAcct.ID))
}

func TestAccept_NoIncentive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDTPService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	senderAcct := testutil.SeedAccount(t, db, sender.ID, 0, 0)
	recipientAcct := testutil.SeedAccount(t, db, recipient.ID, 0, 50_000)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, sender.ID, provider.ID, 20_000)
	testutil.SetDebt(t, db, senderAcct.ID, 20_000)

	req, err := svc.Initiate(ctx, dtp.InitiateRequest{
		SenderID:            sender.ID,
		DebtID:              obligation.ID,
		RecipientIdentifier: "recipient@test.com",
	})
	require.NoError(t, err)

	_, err = svc.Respond(ctx, recipient.ID, req.ID, true)
	require.NoError(t, err)

	assert.Equal(t, int64(0), testutil.GetBalance(t, db, senderAcct.ID))
	assert.Equal(t, int64(0), testutil.GetBalance(t, db, recipientAcct.ID))
	assert.Equal(t, int64(20_000), testutil.GetDebt(t, db, recipientAcct.ID))

	var incentiveCount int
	require.NoError(t, db.QueryRow(
		`SELECT count(*) FROM transactions WHERE type = $1`,
		domain.TransactionTypeTransferIncentive,
	).Scan(&incentiveCount))
	assert.Equal(t, 0, incentiveCount)
}

func TestAccept_InsufficientHeadroom(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDTPService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	senderAcct := testutil.SeedAccount(t, db, sender.ID, 5_000, 0)
	recipientAcct := testutil.SeedAccount(t, db, recipient.ID, 0, 10_000)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, sender.ID, provider.ID, 20_000)
	testutil.SetDebt(t, db, senderAcct.ID, 20_000)

	req, err := svc.Initiate(ctx, dtp.InitiateRequest{
		SenderID:            sender.ID,
		DebtID:              obligation.ID,
		RecipientIdentifier: "recipient@test.com",
		IncentiveAmount:     1_000,
	})
	require.NoError(t, err)

	_, err = svc.Respond(ctx, recipient.ID, req.ID, true)
	require.ErrorIs(t, err, domain.ErrInsufficientCreditHeadroom)

	// Nothing moved.
	assert.Equal(t, int64(20_000), testutil.GetDebt(t, db, senderAcct.ID))
	assert.Equal(t, int64(5_000), testutil.GetBalance(t, db, senderAcct.ID))
	assert.Equal(t, int64(0), testutil.GetDebt(t, db, recipientAcct.ID))
}

func TestReject_LeavesDebtAlone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDTPService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	senderAcct := testutil.SeedAccount(t, db, sender.ID, 5_000, 0)
	testutil.SeedAccount(t, db, recipient.ID, 0, 50_000)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, sender.ID, provider.ID, 20_000)
	testutil.SetDebt(t, db, senderAcct.ID, 20_000)

	req, err := svc.Initiate(ctx, dtp.InitiateRequest{
		SenderID:            sender.ID,
		DebtID:              obligation.ID,
		RecipientIdentifier: "recipient@test.com",
		IncentiveAmount:     1_000,
	})
	require.NoError(t, err)

	rejected, err := svc.Respond(ctx, recipient.ID, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, rejected.Status)
	assert.NotNil(t, rejected.RejectedAt)

	var holderID string
	require.NoError(t, db.QueryRow(
		`SELECT current_holder_id FROM debt_obligations WHERE id = $1`, obligation.ID,
	).Scan(&holderID))
	assert.Equal(t, sender.ID.String(), holderID)
	assert.Equal(t, int64(20_000), testutil.GetDebt(t, db, senderAcct.ID))
	assert.Equal(t, int64(5_000), testutil.GetBalance(t, db, senderAcct.ID))

	// A rejected request cannot be responded to again.
	_, err = svc.Respond(ctx, recipient.ID, req.ID, true)
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
}

func TestRespond_NotRecipient(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDTPService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	stranger := testutil.SeedUser(t, db, "stranger@test.com")
	testutil.SeedAccount(t, db, sender.ID, 5_000, 0)
	testutil.SeedAccount(t, db, recipient.ID, 0, 50_000)
	testutil.SeedAccount(t, db, stranger.ID, 0, 50_000)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, sender.ID, provider.ID, 20_000)

	req, err := svc.Initiate(ctx, dtp.InitiateRequest{
		SenderID:            sender.ID,
		DebtID:              obligation.ID,
		RecipientIdentifier: "recipient@test.com",
	})
	require.NoError(t, err)

	_, err = svc.Respond(ctx, stranger.ID, req.ID, true)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRespond_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDTPService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	testutil.SeedAccount(t, db, sender.ID, 5_000, 0)
	testutil.SeedAccount(t, db, recipient.ID, 0, 50_000)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, sender.ID, provider.ID, 20_000)

	req, err := svc.Initiate(ctx, dtp.InitiateRequest{
		SenderID:            sender.ID,
		DebtID:              obligation.ID,
		RecipientIdentifier: "recipient@test.com",
	})
	require.NoError(t, err)

	_, err = db.Exec(
		`UPDATE debt_transfer_requests SET expires_at = now() - interval '1 hour' WHERE id = $1`,
		req.ID,
	)
	require.NoError(t, err)

	_, err = svc.Respond(ctx, recipient.ID, req.ID, true)
	require.ErrorIs(t, err, domain.ErrRequestExpired)

	// Expired requests drop out of the incoming feed.
	incoming, err := svc.ListIncoming(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Empty(t, incoming)
}

func TestInitiate_NotHolder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDTPService(t, db)
	ctx := context.Background()

	holder := testutil.SeedUser(t, db, "holder@test.com")
	other := testutil.SeedUser(t, db, "other@test.com")
	testutil.SeedAccount(t, db, holder.ID, 0, 0)
	testutil.SeedAccount(t, db, other.ID, 0, 0)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, holder.ID, provider.ID, 20_000)

	_, err := svc.Initiate(ctx, dtp.InitiateRequest{
		SenderID:            other.ID,
		DebtID:              obligation.ID,
		RecipientIdentifier: "holder@test.com",
	})
	require.ErrorIs(t, err, domain.ErrNotDebtHolder)
}

func TestInitiate_SelfTransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDTPService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	testutil.SeedAccount(t, db, sender.ID, 0, 0)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, sender.ID, provider.ID, 20_000)

	_, err := svc.Initiate(ctx, dtp.InitiateRequest{
		SenderID:            sender.ID,
		DebtID:              obligation.ID,
		RecipientIdentifier: "sender@test.com",
	})
	require.ErrorIs(t, err, domain.ErrSelfTransfer)
}

func TestCancel_RemovesPendingRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDTPService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	testutil.SeedAccount(t, db, sender.ID, 0, 0)
	testutil.SeedAccount(t, db, recipient.ID, 0, 50_000)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, sender.ID, provider.ID, 20_000)

	req, err := svc.Initiate(ctx, dtp.InitiateRequest{
		SenderID:            sender.ID,
		DebtID:              obligation.ID,
		RecipientIdentifier: "recipient@test.com",
	})
	require.NoError(t, err)

	// Only the sender may cancel.
	err = svc.Cancel(ctx, recipient.ID, req.ID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, svc.Cancel(ctx, sender.ID, req.ID))

	_, err = svc.GetRequest(ctx, req.ID, sender.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancel_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDTPService(t, db)
	ctx := context.Background()

	sender := testutil.SeedUser(t, db, "sender@test.com")
	recipient := testutil.SeedUser(t, db, "recipient@test.com")
	testutil.SeedAccount(t, db, sender.ID, 0, 0)
	testutil.SeedAccount(t, db, recipient.ID, 0, 50_000)
	provider := testutil.SeedProvider(t, db, "quickcash")
	obligation := testutil.SeedObligation(t, db, sender.ID, provider.ID, 20_000)

	req, err := svc.Initiate(ctx, dtp.InitiateRequest{
		SenderID:            sender.ID,
		DebtID:              obligation.ID,
		RecipientIdentifier: "recipient@test.com",
	})
	require.NoError(t, err)

	_, err = db.Exec(
		`UPDATE debt_transfer_requests SET expires_at = now() - interval '1 hour' WHERE id = $1`,
		req.ID,
	)
	require.NoError(t, err)

	err = svc.Cancel(ctx, sender.ID, req.ID)
	require.ErrorIs(t, err, domain.ErrRequestExpired)

	// The lapsed row is still there, just no longer actionable.
	var status string
	require.NoError(t, db.QueryRow(
		`SELECT status FROM debt_transfer_requests WHERE id = $1`, req.ID,
	).Scan(&status))
	assert.Equal(t, string(domain.RequestStatusPending), status)
}

func TestFindMatches_ExcludesRequesterAndNoHeadroom(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDTPService(t, db)
	ctx := context.Background()

	requester := testutil.SeedUser(t, db, "requester@test.com")
	candidate := testutil.SeedUser(t, db, "candidate@test.com")
	maxedOut := testutil.SeedUser(t, db, "maxed@test.com")
	testutil.SeedAccount(t, db, requester.ID, 0, 50_000)
	candidateAcct := testutil.SeedAccount(t, db, candidate.ID, 0, 50_000)
	maxedAcct := testutil.SeedAccount(t, db, maxedOut.ID, 0, 10_000)
	testutil.SetDebt(t, db, maxedAcct.ID, 10_000)

	matches, err := svc.FindMatches(ctx, requester.ID, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, candidate.ID, matches[0].User.ID)
	assert.Equal(t, candidateAcct.CreditLimit, matches[0].AvailableCredit)
}
