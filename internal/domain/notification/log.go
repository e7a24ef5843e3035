package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Log is one delivery attempt recorded by the mock driver.
type Log struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	Channel   Channel        `gorm:"column:channel;type:varchar(10);not null;index" json:"channel"`
	Driver    string         `gorm:"column:driver;type:varchar(20);not null" json:"driver"`
	Recipient string         `gorm:"column:recipient;type:varchar(255);not null;index" json:"recipient"`
	Subject   string         `gorm:"column:subject;type:varchar(255)" json:"subject,omitempty"`
	Message   string         `gorm:"column:message;type:text" json:"message"`
	Data      datatypes.JSON `gorm:"column:data;type:jsonb" json:"data,omitempty"`
	Success   bool           `gorm:"column:success;not null" json:"success"`
	Error     string         `gorm:"column:error;type:text" json:"error,omitempty"`
}

func (Log) TableName() string {
	return "notify.logs"
}

type Repository interface {
	Create(ctx context.Context, l *Log) error
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]*Log, error)
}
