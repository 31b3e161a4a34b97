package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreditProvider struct {
	ID                  uuid.UUID
	Name                string
	Slug                string
	DefaultInterestRate decimal.Decimal
	MinLoanAmount       int64
	MaxLoanAmount       int64
	MinTenureMonths     int
	MaxTenureMonths     int
	IsActive            bool
	CreatedAt           time.Time
}

type ApplicationStatus string

const (
	ApplicationStatusSubmitted ApplicationStatus = "submitted"
	ApplicationStatusDisbursed ApplicationStatus = "disbursed"
)

// CreditApplication transitions submitted -> disbursed exactly once;
// disbursed is terminal.
type CreditApplication struct {
	ID                uuid.UUID
	ApplicationNumber string
	UserID            uuid.UUID
	ProviderID        uuid.UUID
	RequestedAmount   int64
	InterestRate      decimal.Decimal
	TenureMonths      int
	Purpose           string
	Status            ApplicationStatus
	ApprovedAmount    *int64
	MonthlyPayment    *int64
	SubmittedAt       time.Time
	DisbursedAt       *time.Time
}

// InterestAmount applies the annualized percentage rate pro-rata per month:
// amount * rate * months / 1200.
func InterestAmount(amount int64, rate decimal.Decimal, tenureMonths int) int64 {
	return decimal.NewFromInt(amount).
		Mul(rate).
		Mul(decimal.NewFromInt(int64(tenureMonths))).
		Div(decimal.NewFromInt(1200)).
		Round(0).
		IntPart()
}
