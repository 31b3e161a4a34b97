package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is the per-member money record. One account per user. All
// monetary counters are int64 minor units in a single currency; they are
// mutated only through the repository's debit/credit/adjust primitives so
// the balance invariants are enforced at one choke point.
type Account struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	AccountNumber       string
	CurrentBalance      int64
	CreditLimit         int64
	TotalDebtObligation int64
	PendingTransfersOut int64
	PendingTransfersIn  int64
	DailyTransferLimit  int64
	DailyTransferAmount int64
	Version             int64
	CreatedAt           time.Time
}

// AvailableCredit is the remaining borrowing headroom:
// credit_limit - total_debt_obligation - pending_transfers_out.
func (a *Account) AvailableCredit() int64 {
	return a.CreditLimit - a.TotalDebtObligation - a.PendingTransfersOut
}

func (a *Account) DailyRemaining() int64 {
	return a.DailyTransferLimit - a.DailyTransferAmount
}
