// Package notify delivers in-app notifications. Delivery is
// fire-and-forget: a failed write is logged and never propagated into the
// financial unit that triggered it.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/logging"
)

type notificationRepo interface {
	Create(ctx context.Context, n *domain.Notification) error
}

type Service struct {
	notifications notificationRepo
}

func NewService(notifications notificationRepo) *Service {
	return &Service{notifications: notifications}
}

func (s *Service) Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message, link string) {
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Link:      link,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		logging.FromContext(ctx).Error("notification delivery failed",
			"error", err,
			"user_id", userID,
			"kind", kind,
		)
	}
}
