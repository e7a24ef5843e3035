package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/notification"
)

// MockDriver records every message as a notify.logs row instead of sending it.
type MockDriver struct {
	channel Channel
	repo    notification.Repository
}

func NewMockDriver(ch Channel, repo notification.Repository) *MockDriver {
	return &MockDriver{channel: ch, repo: repo}
}

func (d *MockDriver) Name() string     { return "mock" }
func (d *MockDriver) Channel() Channel { return d.channel }

func (d *MockDriver) Send(ctx context.Context, to Recipient, msg Message) (*Result, error) {
	var data datatypes.JSON
	if len(msg.Data) > 0 {
		raw, err := json.Marshal(msg.Data)
		if err != nil {
			return nil, fmt.Errorf("encoding message data: %w", err)
		}
		data = raw
	}

	entry := &notification.Log{
		Channel:   d.channel,
		Driver:    d.Name(),
		Recipient: to.Address(d.channel),
		Subject:   msg.Subject,
		Message:   msg.Body,
		Data:      data,
		Success:   true,
	}
	if err := d.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("recording notification: %w", err)
	}
	return &Result{Success: true, Driver: d.Name(), MessageID: entry.ID.String()}, nil
}

// LogDriver writes messages to the application log.
type LogDriver struct {
	channel Channel
	log     *zap.Logger
}

func NewLogDriver(ch Channel, log *zap.Logger) *LogDriver {
	return &LogDriver{channel: ch, log: log}
}

func (d *LogDriver) Name() string     { return "log" }
func (d *LogDriver) Channel() Channel { return d.channel }

func (d *LogDriver) Send(_ context.Context, to Recipient, msg Message) (*Result, error) {
	d.log.Info("notification",
		zap.String("channel", string(d.channel)),
		zap.String("recipient", to.Address(d.channel)),
		zap.String("user_id", to.UserID.String()),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
		zap.Any("data", msg.Data),
	)
	return &Result{Success: true, Driver: d.Name()}, nil
}

// UnconfiguredDriver stands in for a vendor integration (mailgun, twilio,
// firebase) that has no credentials in this deployment.
type UnconfiguredDriver struct {
	name    string
	channel Channel
}

func NewUnconfiguredDriver(name string, ch Channel) *UnconfiguredDriver {
	return &UnconfiguredDriver{name: name, channel: ch}
}

func (d *UnconfiguredDriver) Name() string     { return d.name }
func (d *UnconfiguredDriver) Channel() Channel { return d.channel }

func (d *UnconfiguredDriver) Send(context.Context, Recipient, Message) (*Result, error) {
	return &Result{Success: false, Driver: d.name, Error: d.name + " not configured"}, nil
}
