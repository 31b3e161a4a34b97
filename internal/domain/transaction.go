package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeTransfer          TransactionType = "transfer"
	TransactionTypeDeposit           TransactionType = "deposit"
	TransactionTypeWithdrawal        TransactionType = "withdrawal"
	TransactionTypeLoanDisbursement  TransactionType = "loan_disbursement"
	TransactionTypeDebtPayment       TransactionType = "debt_payment"
	TransactionTypeTransferIncentive TransactionType = "debt_transfer_incentive"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// Transaction is an append-only record of a money movement. Immutable once
// written except for the terminal status/completed_at update.
type Transaction struct {
	ID                 uuid.UUID
	ReferenceNumber    string
	Type               TransactionType
	SenderID           *uuid.UUID
	SenderAccountID    *uuid.UUID
	RecipientID        *uuid.UUID
	RecipientAccountID *uuid.UUID
	Amount             int64
	Fee                int64
	Status             TransactionStatus
	Description        string
	Metadata           json.RawMessage
	CreatedAt          time.Time
	CompletedAt        *time.Time
}
