package referral

import (
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionCreated              Action = "created"
	ActionAccepted             Action = "accepted"
	ActionRejected             Action = "rejected"
	ActionStatusChanged        Action = "status_changed"
	ActionAppointmentScheduled Action = "appointment_scheduled"
	ActionCompleted            Action = "completed"
	ActionEscalated            Action = "escalated"
	ActionCancelled            Action = "cancelled"
)

// History is an append-only log row. One is written for every action taken on
// a referral, in the same transaction as the change itself.
type History struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	ReferralID uuid.UUID `gorm:"column:referral_id;type:uuid;not null;index" json:"referral_id"`

	Action       Action    `gorm:"column:action;type:varchar(30);not null" json:"action"`
	FromStatus   Status    `gorm:"column:from_status;type:varchar(20)" json:"from_status,omitempty"`
	ToStatus     Status    `gorm:"column:to_status;type:varchar(20)" json:"to_status,omitempty"`
	FromPriority *Priority `gorm:"column:from_priority;type:varchar(20)" json:"from_priority,omitempty"`
	ToPriority   *Priority `gorm:"column:to_priority;type:varchar(20)" json:"to_priority,omitempty"`
	Notes        string    `gorm:"column:notes;type:text" json:"notes,omitempty"`

	PerformedBy uuid.UUID `gorm:"column:performed_by;type:uuid;not null" json:"performed_by"`
}

func (History) TableName() string {
	return "clinical.referral_histories"
}
