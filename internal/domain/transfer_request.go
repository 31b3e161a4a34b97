package domain

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
)

func (s RequestStatus) Terminal() bool {
	return s != RequestStatusPending
}

type TransferType string

const (
	TransferTypeDirect      TransferType = "direct"
	TransferTypeMarketplace TransferType = "marketplace"
)

// DebtTransferRequest proposes reassigning an obligation's current holder.
// Exactly one terminal transition is permitted. Expiry is not a stored
// status: a pending request past ExpiresAt is treated as no longer
// actionable at every access path.
type DebtTransferRequest struct {
	ID              uuid.UUID
	RequestNumber   string
	DebtID          uuid.UUID
	SenderID        uuid.UUID
	RecipientID     uuid.UUID
	Status          RequestStatus
	IncentiveAmount int64
	TransferType    TransferType
	Reason          string
	ExpiresAt       time.Time
	CreatedAt       time.Time
	AcceptedAt      *time.Time
	RejectedAt      *time.Time
}

func (r *DebtTransferRequest) Expired(now time.Time) bool {
	return r.Status == RequestStatusPending && now.After(r.ExpiresAt)
}

// Actionable reports whether the request can still receive a terminal
// transition at the given instant.
func (r *DebtTransferRequest) Actionable(now time.Time) error {
	if r.Status.Terminal() {
		return ErrAlreadyProcessed
	}
	if r.Expired(now) {
		return ErrRequestExpired
	}
	return nil
}
