package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationKindSystemAlert  NotificationKind = "system_alert"
	NotificationKindDebtTransfer NotificationKind = "debt_transfer"
	NotificationKindLoan         NotificationKind = "loan"
)

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      NotificationKind
	Title     string
	Message   string
	Link      string
	ReadAt    *time.Time
	CreatedAt time.Time
}
