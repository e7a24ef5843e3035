// Package notification delivers referral and appointment events to staff over
// email, SMS and push. Each channel is served by one Driver chosen by config;
// the Dispatcher fans a message out to the channels a user opted into.
package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/notification"
)

type Channel = notification.Channel

const (
	ChannelEmail = notification.ChannelEmail
	ChannelSMS   = notification.ChannelSMS
	ChannelPush  = notification.ChannelPush
)

type Recipient struct {
	UserID      uuid.UUID
	Email       string
	Phone       string
	PushToken   string
	Preferences domain.NotificationPreferences
}

// RecipientFromUser builds a recipient from a user's account and stored preferences.
func RecipientFromUser(u *domain.User) Recipient {
	return Recipient{
		UserID:      u.ID,
		Email:       u.Email,
		Phone:       u.NotificationPreferences.Phone,
		PushToken:   u.NotificationPreferences.PushToken,
		Preferences: u.NotificationPreferences,
	}
}

// Address returns where the recipient is reached on ch, or "" if unknown.
func (r Recipient) Address(ch Channel) string {
	switch ch {
	case ChannelEmail:
		return r.Email
	case ChannelSMS:
		return r.Phone
	case ChannelPush:
		return r.PushToken
	}
	return ""
}

func (r Recipient) Wants(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return r.Preferences.Email
	case ChannelSMS:
		return r.Preferences.SMS
	case ChannelPush:
		return r.Preferences.Push
	}
	return false
}

type Message struct {
	Subject string         `json:"subject,omitempty"`
	Body    string         `json:"body"`
	Data    map[string]any `json:"data,omitempty"`
}

type Result struct {
	Success   bool   `json:"success"`
	Driver    string `json:"driver"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Driver sends one message on one channel. A returned error means the driver
// could not attempt delivery; a failed attempt is reported in Result.
type Driver interface {
	Name() string
	Channel() Channel
	Send(ctx context.Context, to Recipient, msg Message) (*Result, error)
}
