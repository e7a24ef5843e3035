package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/notification"
)

const maxNotificationHistory = 100

// NotificationService exposes the delivery log to the user it was sent to.
type NotificationService struct {
	users UserRepository
	logs  notification.Repository
}

func NewNotificationService(users UserRepository, logs notification.Repository) *NotificationService {
	return &NotificationService{users: users, logs: logs}
}

// Recent returns the newest deliveries to any of the user's addresses.
func (s *NotificationService) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*notification.Log, error) {
	if limit <= 0 || limit > maxNotificationHistory {
		limit = maxNotificationHistory
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	addresses := []string{u.Email, u.NotificationPreferences.Phone, u.NotificationPreferences.PushToken}
	var out []*notification.Log
	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		rows, err := s.logs.ListByRecipient(ctx, addr, limit)
		if err != nil {
			return nil, fmt.Errorf("listing notifications: %w", err)
		}
		out = append(out, rows...)
	}

	slices.SortFunc(out, func(a, b *notification.Log) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
