package repository

import (
	"context"
	"fmt"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/notification"
	"gorm.io/gorm"
)

type NotificationLogRepository struct {
	db *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

var _ notification.Repository = (*NotificationLogRepository)(nil)

func (r *NotificationLogRepository) Create(ctx context.Context, l *notification.Log) error {
	if err := getDB(ctx, r.db).Create(l).Error; err != nil {
		return fmt.Errorf("inserting notification log: %w", err)
	}
	return nil
}

func (r *NotificationLogRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*notification.Log, error) {
	var logs []*notification.Log
	err := getDB(ctx, r.db).
		Where("recipient = ?", recipient).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("listing notification logs: %w", err)
	}
	return logs, nil
}
