package referral

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityRank = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

func (p Priority) IsValid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Next returns the priority one level above p; critical stays critical.
func (p Priority) Next() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityCritical
	}
}

func (p Priority) Above(other Priority) bool {
	return priorityRank[p] > priorityRank[other]
}

type Urgency string

const (
	UrgencyRoutine   Urgency = "routine"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyRoutine, UrgencyUrgent, UrgencyEmergency:
		return true
	}
	return false
}

// Status transitions:
//
//	pending     → accepted, rejected, cancelled
//	accepted    → in_transit, arrived, in_progress, cancelled
//	in_transit  → arrived, cancelled
//	arrived     → in_progress, completed, cancelled
//	in_progress → completed
//
// completed, rejected and cancelled are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInTransit  Status = "in_transit"
	StatusArrived    Status = "arrived"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:   {StatusInTransit, StatusArrived, StatusInProgress, StatusCancelled},
	StatusInTransit:  {StatusArrived, StatusCancelled},
	StatusArrived:    {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
	StatusRejected:   {},
	StatusCancelled:  {},
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// AllowedTransitions returns a copy of the legal next states for s.
func AllowedTransitions(s Status) []Status {
	return slices.Clone(transitions[s])
}

type Referral struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	AssessmentID     uuid.UUID  `gorm:"column:assessment_id;type:uuid;not null;index" json:"assessment_id"`
	SourceFacilityID *uuid.UUID `gorm:"column:source_facility_id;type:uuid;index" json:"source_facility_id,omitempty"`
	TargetFacilityID uuid.UUID  `gorm:"column:target_facility_id;type:uuid;not null;index" json:"target_facility_id"`

	Priority Priority `gorm:"column:priority;type:varchar(20);not null;default:'medium';index" json:"priority"`
	Urgency  Urgency  `gorm:"column:urgency;type:varchar(20);not null;default:'routine'" json:"urgency"`
	Status   Status   `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`

	Reason             string `gorm:"column:reason;type:text;not null" json:"reason"`
	ClinicalNotes      string `gorm:"column:clinical_notes;type:text" json:"clinical_notes,omitempty"`
	RejectionReason    string `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`
	CancellationReason string `gorm:"column:cancellation_reason;type:text" json:"cancellation_reason,omitempty"`
	CompletionNotes    string `gorm:"column:completion_notes;type:text" json:"completion_notes,omitempty"`
	Outcome            string `gorm:"column:outcome;type:varchar(100)" json:"outcome,omitempty"`

	AcceptedAt  *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	InTransitAt *time.Time `gorm:"column:in_transit_at" json:"in_transit_at,omitempty"`
	ArrivedAt   *time.Time `gorm:"column:arrived_at" json:"arrived_at,omitempty"`
	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	RejectedAt  *time.Time `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	EscalatedAt *time.Time `gorm:"column:escalated_at" json:"escalated_at,omitempty"`

	AppointmentID    *uuid.UUID `gorm:"column:appointment_id;type:uuid;index" json:"appointment_id,omitempty"`
	AssignedDoctorID *uuid.UUID `gorm:"column:assigned_doctor_id;type:uuid;index" json:"assigned_doctor_id,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Referral) TableName() string {
	return "clinical.referrals"
}

// TransitionTo moves the referral to next and stamps the matching timestamp.
// The returned history row is not yet persisted.
func (r *Referral) TransitionTo(next Status, action Action, notes string, by uuid.UUID) (*History, error) {
	if !CanTransition(r.Status, next) {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	switch next {
	case StatusAccepted:
		r.AcceptedAt = &now
	case StatusInTransit:
		r.InTransitAt = &now
	case StatusArrived:
		r.ArrivedAt = &now
	case StatusInProgress:
		r.StartedAt = &now
	case StatusCompleted:
		r.CompletedAt = &now
	case StatusRejected:
		r.RejectedAt = &now
	case StatusCancelled:
		r.CancelledAt = &now
	}

	h := r.newHistory(action, notes, by)
	h.FromStatus = r.Status
	h.ToStatus = next
	r.Status = next
	return h, nil
}

func (r *Referral) Accept(doctorID *uuid.UUID, notes string, by uuid.UUID) (*History, error) {
	h, err := r.TransitionTo(StatusAccepted, ActionAccepted, notes, by)
	if err != nil {
		return nil, err
	}
	if doctorID != nil {
		r.AssignedDoctorID = doctorID
	}
	return h, nil
}

func (r *Referral) Reject(reason string, by uuid.UUID) (*History, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	h, err := r.TransitionTo(StatusRejected, ActionRejected, reason, by)
	if err != nil {
		return nil, err
	}
	r.RejectionReason = reason
	return h, nil
}

func (r *Referral) Cancel(reason string, by uuid.UUID) (*History, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	h, err := r.TransitionTo(StatusCancelled, ActionCancelled, reason, by)
	if err != nil {
		return nil, err
	}
	r.CancellationReason = reason
	return h, nil
}

func (r *Referral) Complete(notes, outcome string, by uuid.UUID) (*History, error) {
	h, err := r.TransitionTo(StatusCompleted, ActionCompleted, notes, by)
	if err != nil {
		return nil, err
	}
	r.CompletionNotes = notes
	r.Outcome = outcome
	return h, nil
}

// Escalate raises priority without touching status. A nil target means one
// level up.
func (r *Referral) Escalate(target *Priority, reason string, by uuid.UUID) (*History, error) {
	if r.Status.IsTerminal() {
		return nil, ErrReferralClosed
	}
	next := r.Priority.Next()
	if target != nil {
		if !target.IsValid() {
			return nil, ErrInvalidPriority
		}
		next = *target
	}
	if !next.Above(r.Priority) {
		return nil, ErrNotAnEscalation
	}

	now := time.Now()
	h := r.newHistory(ActionEscalated, reason, by)
	h.FromStatus = r.Status
	h.ToStatus = r.Status
	from := r.Priority
	h.FromPriority = &from
	h.ToPriority = &next

	r.Priority = next
	r.EscalatedAt = &now
	return h, nil
}

// CanScheduleAppointment reports whether the referral is at a stage where the
// receiving facility can book the patient.
func (r *Referral) CanScheduleAppointment() bool {
	switch r.Status {
	case StatusAccepted, StatusInTransit, StatusArrived:
		return true
	}
	return false
}

func (r *Referral) LinkAppointment(appointmentID uuid.UUID, by uuid.UUID) (*History, error) {
	if !r.CanScheduleAppointment() {
		return nil, ErrInvalidTransition
	}
	r.AppointmentID = &appointmentID
	h := r.newHistory(ActionAppointmentScheduled, "appointment "+appointmentID.String(), by)
	h.FromStatus = r.Status
	h.ToStatus = r.Status
	return h, nil
}

func (r *Referral) newHistory(action Action, notes string, by uuid.UUID) *History {
	return &History{
		ReferralID:  r.ID,
		Action:      action,
		Notes:       notes,
		PerformedBy: by,
	}
}

type AppointmentRequest struct {
	ScheduledAt  time.Time
	DurationMins int
	DoctorID     *uuid.UUID
	Notes        string
}

type CreateReferralCommand struct {
	AssessmentID     uuid.UUID
	SourceFacilityID *uuid.UUID
	TargetFacilityID uuid.UUID
	Priority         Priority
	Urgency          Urgency
	Reason           string
	ClinicalNotes    string
	CreatedBy        uuid.UUID
}

type AcceptCommand struct {
	AssignedDoctorID *uuid.UUID
	Notes            string
	Appointment      *AppointmentRequest
}

type ListReferralsQuery struct {
	Status           *Status
	Priority         *Priority
	Urgency          *Urgency
	TargetFacilityID *uuid.UUID
	SourceFacilityID *uuid.UUID
	AssessmentID     *uuid.UUID
	DateFrom         *time.Time
	DateTo           *time.Time
	Page             int
	PageSize         int
}

type PagedReferrals struct {
	Referrals  []*Referral
	TotalCount int64
	Page       int
	PageSize   int
}

type Statistics struct {
	Total                int64              `json:"total"`
	ByStatus             map[Status]int64   `json:"by_status"`
	ByPriority           map[Priority]int64 `json:"by_priority"`
	Pending              int64              `json:"pending"`
	AvgAcceptanceMinutes float64            `json:"avg_acceptance_minutes"`
}

type StatisticsQuery struct {
	TargetFacilityID *uuid.UUID
	SourceFacilityID *uuid.UUID
	DateFrom         *time.Time
	DateTo           *time.Time
}
