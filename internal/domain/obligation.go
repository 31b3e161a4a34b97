package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ObligationStatus string

const (
	ObligationStatusActive ObligationStatus = "active"
	ObligationStatusPaid   ObligationStatus = "paid"
)

// DebtObligation is one unit of owed money. CurrentHolderID is the only
// mutable party reference; the transfer protocol reassigns it. Status is
// paid iff RemainingBalance has reached zero, and paid never re-opens.
type DebtObligation struct {
	ID                 uuid.UUID
	ObligationNumber   string
	CurrentHolderID    uuid.UUID
	OriginalBorrowerID uuid.UUID
	OriginalCreditorID uuid.UUID
	PrincipalAmount    int64
	RemainingBalance   int64
	InterestRate       decimal.Decimal
	MonthlyPayment     int64
	DueDate            time.Time
	NextPaymentDate    time.Time
	Status             ObligationStatus
	CreatedAt          time.Time
	TransferredAt      *time.Time
	PaidOffAt          *time.Time
}

type PaymentSchedule struct {
	ID                uuid.UUID
	DebtID            uuid.UUID
	UserID            uuid.UUID
	NextExecutionDate time.Time
	Amount            int64
	Frequency         string
	IsActive          bool
	CreatedAt         time.Time
}
