package appointment

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow_up"
	TypeDiagnostic   AppointmentType = "diagnostic"
	TypeProcedure    AppointmentType = "procedure"
	TypeEmergency    AppointmentType = "emergency"
)

func (t AppointmentType) IsValid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeDiagnostic, TypeProcedure, TypeEmergency:
		return true
	}
	return false
}

type BookingSource string

const (
	SourceWeb    BookingSource = "web"
	SourceMobile BookingSource = "mobile"
	SourcePhone  BookingSource = "phone"
	SourceWalkIn BookingSource = "walk_in"
)

func (b BookingSource) IsValid() bool {
	switch b {
	case SourceWeb, SourceMobile, SourcePhone, SourceWalkIn:
		return true
	}
	return false
}

// State transitions possibilities:
//
//	scheduled   → confirmed, checked_in, cancelled, rescheduled, no_show
//	confirmed   → checked_in, cancelled, rescheduled, no_show
//	rescheduled → confirmed, checked_in, cancelled, no_show, rescheduled
//	checked_in  → in_progress, cancelled
//	in_progress → completed
type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCheckedIn   AppointmentStatus = "checked_in"
	StatusInProgress  AppointmentStatus = "in_progress"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no_show"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

var allowed = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled:   {StatusConfirmed, StatusCheckedIn, StatusCancelled, StatusRescheduled, StatusNoShow},
	StatusConfirmed:   {StatusCheckedIn, StatusCancelled, StatusRescheduled, StatusNoShow},
	StatusRescheduled: {StatusConfirmed, StatusCheckedIn, StatusCancelled, StatusNoShow, StatusRescheduled},
	StatusCheckedIn:   {StatusInProgress, StatusCancelled},
	StatusInProgress:  {StatusCompleted},
	StatusCompleted:   {},
	StatusCancelled:   {},
	StatusNoShow:      {},
}

func (s AppointmentStatus) IsValid() bool {
	_, ok := allowed[s]
	return ok
}

type Appointment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime;index" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	ReferralID   *uuid.UUID `gorm:"column:referral_id;type:uuid;index" json:"referral_id,omitempty"`
	AssessmentID *uuid.UUID `gorm:"column:assessment_id;type:uuid;index" json:"assessment_id,omitempty"`
	FacilityID   uuid.UUID  `gorm:"column:facility_id;type:uuid;not null;index" json:"facility_id"`
	DoctorID     *uuid.UUID `gorm:"column:doctor_id;type:uuid;index" json:"doctor_id,omitempty"`

	PatientName    string `gorm:"column:patient_name;type:varchar(200);not null" json:"patient_name"`
	PatientContact string `gorm:"column:patient_contact;type:varchar(50)" json:"patient_contact,omitempty"`

	ScheduledAt   time.Time         `gorm:"column:scheduled_at;not null;index" json:"scheduled_at"`
	DurationMins  int               `gorm:"column:duration_mins;not null;default:30" json:"duration_mins"`
	Type          AppointmentType   `gorm:"column:type;type:varchar(50);not null;index" json:"type"`
	Status        AppointmentStatus `gorm:"column:status;type:varchar(30);not null;default:'scheduled';index" json:"status"`
	BookingSource BookingSource     `gorm:"column:booking_source;type:varchar(20);not null;default:'web'" json:"booking_source"`

	Notes string `gorm:"column:notes;type:text" json:"notes,omitempty"`

	// Cancellation tracking
	CancelledAt        *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"column:cancellation_reason;type:text" json:"cancellation_reason,omitempty"`
	CancelledBy        *uuid.UUID `gorm:"column:cancelled_by;type:uuid" json:"cancelled_by,omitempty"`

	RescheduledFrom *time.Time `gorm:"column:rescheduled_from" json:"rescheduled_from,omitempty"`
	CheckedInAt     *time.Time `gorm:"column:checked_in_at" json:"checked_in_at,omitempty"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMins) * time.Minute)
}

func (a *Appointment) CanTransitionTo(newStatus AppointmentStatus) bool {
	return slices.Contains(allowed[a.Status], newStatus)
}

// TransitionTo applies a plain status change with its timestamp side effects.
// Cancel and Reschedule carry extra data and have their own methods.
func (a *Appointment) TransitionTo(newStatus AppointmentStatus) error {
	if newStatus == StatusCancelled || newStatus == StatusRescheduled {
		return ErrInvalidStatusTransition
	}
	if !a.CanTransitionTo(newStatus) {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	switch newStatus {
	case StatusCheckedIn:
		a.CheckedInAt = &now
	case StatusCompleted:
		a.CompletedAt = &now
	}
	a.Status = newStatus
	return nil
}

func (a *Appointment) Cancel(reason string, cancelledBy uuid.UUID) error {
	if strings.TrimSpace(reason) == "" {
		return ErrCancellationReasonRequired
	}
	if !a.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	a.Status = StatusCancelled
	a.CancelledAt = &now
	a.CancellationReason = reason
	a.CancelledBy = &cancelledBy
	return nil
}

func (a *Appointment) Reschedule(newTime time.Time, durationMins *int) error {
	if !a.CanTransitionTo(StatusRescheduled) {
		return ErrInvalidStatusTransition
	}
	if !newTime.After(time.Now()) {
		return ErrScheduledInPast
	}
	prev := a.ScheduledAt
	a.RescheduledFrom = &prev
	a.ScheduledAt = newTime
	if durationMins != nil {
		a.DurationMins = *durationMins
	}
	a.Status = StatusRescheduled
	return nil
}

func ValidDuration(mins int) bool {
	return mins >= 5 && mins <= 480
}

type CreateAppointmentCommand struct {
	ReferralID     *uuid.UUID
	AssessmentID   *uuid.UUID
	FacilityID     uuid.UUID
	DoctorID       *uuid.UUID
	PatientName    string
	PatientContact string
	ScheduledAt    time.Time
	DurationMins   int
	Type           AppointmentType
	BookingSource  BookingSource
	Notes          string
	CreatedBy      uuid.UUID
}

type RescheduleCommand struct {
	ScheduledAt  time.Time
	DurationMins *int
}

type ListAppointmentsQuery struct {
	FacilityID *uuid.UUID
	DoctorID   *uuid.UUID
	ReferralID *uuid.UUID
	Status     *AppointmentStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

type PagedAppointments struct {
	Appointments []*Appointment
	TotalCount   int64
	Page         int
	PageSize     int
}

type SyncRecord struct {
	ID            uuid.UUID         `json:"id"`
	FacilityID    uuid.UUID         `json:"facility_id"`
	ReferralID    *uuid.UUID        `json:"referral_id,omitempty"`
	PatientName   string            `json:"patient_name"`
	ScheduledAt   time.Time         `json:"scheduled_at"`
	DurationMins  int               `json:"duration_mins"`
	Status        AppointmentStatus `json:"status"`
	BookingSource BookingSource     `json:"booking_source"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (a *Appointment) ToSyncRecord() SyncRecord {
	return SyncRecord{
		ID:            a.ID,
		FacilityID:    a.FacilityID,
		ReferralID:    a.ReferralID,
		PatientName:   a.PatientName,
		ScheduledAt:   a.ScheduledAt,
		DurationMins:  a.DurationMins,
		Status:        a.Status,
		BookingSource: a.BookingSource,
		UpdatedAt:     a.UpdatedAt,
	}
}
