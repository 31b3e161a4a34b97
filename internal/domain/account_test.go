package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gbese/gbese-backend/internal/domain"
)

func TestAccount_AvailableCredit(t *testing.T) {
	a := &domain.Account{
		CreditLimit:         100_000,
		TotalDebtObligation: 30_000,
		PendingTransfersOut: 5_000,
	}
	assert.Equal(t, int64(65_000), a.AvailableCredit())

	// Over-committed accounts report negative headroom rather than clamping.
	a.TotalDebtObligation = 120_000
	assert.Equal(t, int64(-25_000), a.AvailableCredit())
}

func TestAccount_DailyRemaining(t *testing.T) {
	a := &domain.Account{
		DailyTransferLimit:  500_000,
		DailyTransferAmount: 120_000,
	}
	assert.Equal(t, int64(380_000), a.DailyRemaining())
}
