package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/notification"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/repository/memory"
)

func TestNotificationService_RecentAcrossAddresses(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	u := &domain.User{
		Email: "nurse@pgh.ph", FirstName: "Ana", LastName: "Reyes", Role: domain.RoleNurse, IsActive: true,
		NotificationPreferences: domain.NotificationPreferences{Email: true, SMS: true, Phone: "+639171234567"},
	}
	require.NoError(t, store.Users().Create(ctx, u))

	logs := store.Notifications()
	require.NoError(t, logs.Create(ctx, &notification.Log{Channel: notification.ChannelEmail, Driver: "mock", Recipient: "nurse@pgh.ph", Message: "first", Success: true}))
	require.NoError(t, logs.Create(ctx, &notification.Log{Channel: notification.ChannelSMS, Driver: "mock", Recipient: "+639171234567", Message: "second", Success: true}))
	require.NoError(t, logs.Create(ctx, &notification.Log{Channel: notification.ChannelEmail, Driver: "mock", Recipient: "someone@else.ph", Message: "other", Success: true}))

	svc := NewNotificationService(store.Users(), logs)
	got, err := svc.Recent(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Message)
	assert.Equal(t, "first", got[1].Message)

	got, err = svc.Recent(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
