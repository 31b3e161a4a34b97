package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbese/gbese-backend/internal/domain"
)

func TestDebtTransferRequest_Actionable(t *testing.T) {
	now := time.Now().UTC()

	pending := &domain.DebtTransferRequest{
		Status:    domain.RequestStatusPending,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, pending.Actionable(now))
	assert.False(t, pending.Expired(now))

	expired := &domain.DebtTransferRequest{
		Status:    domain.RequestStatusPending,
		ExpiresAt: now.Add(-time.Minute),
	}
	assert.True(t, expired.Expired(now))
	assert.ErrorIs(t, expired.Actionable(now), domain.ErrRequestExpired)

	for _, status := range []domain.RequestStatus{
		domain.RequestStatusAccepted,
		domain.RequestStatusRejected,
		domain.RequestStatusCancelled,
	} {
		terminal := &domain.DebtTransferRequest{
			Status:    status,
			ExpiresAt: now.Add(-time.Minute),
		}
		assert.ErrorIs(t, terminal.Actionable(now), domain.ErrAlreadyProcessed)
		// Expiry only applies to pending requests.
		assert.False(t, terminal.Expired(now))
	}
}

func TestRequestStatus_Terminal(t *testing.T) {
	assert.False(t, domain.RequestStatusPending.Terminal())
	assert.True(t, domain.RequestStatusAccepted.Terminal())
	assert.True(t, domain.RequestStatusRejected.Terminal())
	assert.True(t, domain.RequestStatusCancelled.Terminal())
}
