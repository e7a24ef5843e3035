package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/notification"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

type Notifier interface {
	NotifyAll(ctx context.Context, to []notification.Recipient, msg notification.Message)
}

type StaffDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]*domain.User, error)
}

type ReferralService struct {
	repo           referral.Repository
	assessmentRepo assessment.Repository
	facilityRepo   facility.Repository
	appointments   *AppointmentService
	staff          StaffDirectory
	tx             TxManager
	notifier       Notifier
	auditSvc       *AuditService
	metrics        *metrics.Collector
	log            *zap.Logger
}

type ReferralDeps struct {
	Repo           referral.Repository
	AssessmentRepo assessment.Repository
	FacilityRepo   facility.Repository
	Appointments   *AppointmentService
	Staff          StaffDirectory
	Tx             TxManager
	Notifier       Notifier
	Audit          *AuditService
	Metrics        *metrics.Collector
	Log            *zap.Logger
}

func NewReferralService(d ReferralDeps) *ReferralService {
	return &ReferralService{
		repo:           d.Repo,
		assessmentRepo: d.AssessmentRepo,
		facilityRepo:   d.FacilityRepo,
		appointments:   d.Appointments,
		staff:          d.Staff,
		tx:             d.Tx,
		notifier:       d.Notifier,
		auditSvc:       d.Audit,
		metrics:        d.Metrics,
		log:            d.Log,
	}
}

func (s *ReferralService) Create(ctx context.Context, actor domain.Actor, cmd *referral.CreateReferralCommand) (*referral.Referral, error) {
	if cmd.Priority == "" {
		cmd.Priority = referral.PriorityMedium
	}
	if cmd.Urgency == "" {
		cmd.Urgency = referral.UrgencyRoutine
	}
	v := NewValidationError()
	v.Check(cmd.AssessmentID != uuid.Nil, "assessment_id", "is required")
	v.Check(cmd.TargetFacilityID != uuid.Nil, "target_facility_id", "is required")
	v.Check(cmd.Priority.IsValid(), "priority", referral.ErrInvalidPriority.Error())
	v.Check(cmd.Urgency.IsValid(), "urgency", referral.ErrInvalidUrgency.Error())
	v.Check(strings.TrimSpace(cmd.Reason) != "", "reason", referral.ErrReasonRequired.Error())
	if cmd.SourceFacilityID != nil {
		v.Check(*cmd.SourceFacilityID != cmd.TargetFacilityID, "target_facility_id", referral.ErrSameFacility.Error())
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	a, err := s.assessmentRepo.GetByID(ctx, cmd.AssessmentID)
	if err != nil {
		return nil, err
	}
	target, err := s.facilityRepo.GetByID(ctx, cmd.TargetFacilityID)
	if err != nil {
		return nil, err
	}
	if !target.IsActive {
		return nil, facility.ErrFacilityInactive
	}

	r := &referral.Referral{
		AssessmentID:     cmd.AssessmentID,
		SourceFacilityID: cmd.SourceFacilityID,
		TargetFacilityID: cmd.TargetFacilityID,
		Priority:         cmd.Priority,
		Urgency:          cmd.Urgency,
		Status:           referral.StatusPending,
		Reason:           strings.TrimSpace(cmd.Reason),
		ClinicalNotes:    cmd.ClinicalNotes,
		CreatedBy:        actor.UserID,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		h := &referral.History{
			Action:      referral.ActionCreated,
			ToStatus:    referral.StatusPending,
			Notes:       r.Reason,
			PerformedBy: actor.UserID,
		}
		if err := s.repo.Create(ctx, r, h); err != nil {
			return err
		}
		switch a.Status {
		case assessment.StatusPending, assessment.StatusInReview, assessment.StatusValidated:
			a.Status = assessment.StatusRequiresReferral
			return s.assessmentRepo.Save(ctx, a)
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to create referral", zap.Error(err))
		return nil, fmt.Errorf("creating referral: %w", err)
	}

	s.metrics.ReferralTransitions.WithLabelValues(string(referral.ActionCreated), string(r.Status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionCreate, ResourceType: "referral", ResourceID: r.ID})
	s.log.Info("referral created",
		zap.String("referral_id", r.ID.String()),
		zap.String("target_facility_id", r.TargetFacilityID.String()),
		zap.String("priority", string(r.Priority)),
	)
	s.notify(ctx, r, referral.ActionCreated)
	return r, nil
}

func (s *ReferralService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*referral.Referral, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionRead, ResourceType: "referral", ResourceID: id})
	return r, nil
}

func (s *ReferralService) List(ctx context.Context, q *referral.ListReferralsQuery) (*referral.PagedReferrals, error) {
	v := NewValidationError()
	if q.Status != nil {
		v.Check(q.Status.IsValid(), "status", referral.ErrInvalidStatus.Error())
	}
	if q.Priority != nil {
		v.Check(q.Priority.IsValid(), "priority", referral.ErrInvalidPriority.Error())
	}
	if q.Urgency != nil {
		v.Check(q.Urgency.IsValid(), "urgency", referral.ErrInvalidUrgency.Error())
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	q.Page, q.PageSize = domain.NormalizePaging(q.Page, q.PageSize)
	return s.repo.List(ctx, q)
}

func (s *ReferralService) History(ctx context.Context, id uuid.UUID) ([]*referral.History, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

func (s *ReferralService) Accept(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd referral.AcceptCommand) (*referral.Referral, error) {
	return s.apply(ctx, actor, id, referral.ActionAccepted, func(ctx context.Context, r *referral.Referral) (*referral.History, error) {
		h, err := r.Accept(cmd.AssignedDoctorID, cmd.Notes, actor.UserID)
		if err != nil {
			return nil, err
		}
		if cmd.Appointment != nil {
			appt, err := s.bookFor(ctx, actor, r, cmd.Appointment)
			if err != nil {
				return nil, err
			}
			r.AppointmentID = &appt.ID
			h.Notes = strings.TrimSpace(h.Notes + " appointment " + appt.ID.String())
		}
		return h, nil
	})
}

func (s *ReferralService) Reject(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (*referral.Referral, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fieldError("reason", referral.ErrReasonRequired.Error())
	}
	return s.apply(ctx, actor, id, referral.ActionRejected, func(_ context.Context, r *referral.Referral) (*referral.History, error) {
		return r.Reject(reason, actor.UserID)
	})
}

// UpdateStatus moves the referral along the transition table. Rejection and
// completion carry extra data and have their own operations.
func (s *ReferralService) UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status referral.Status, notes string) (*referral.Referral, error) {
	switch {
	case !status.IsValid():
		return nil, fieldError("status", referral.ErrInvalidStatus.Error())
	case status == referral.StatusRejected:
		return nil, fieldError("status", "use the reject operation to reject a referral")
	case status == referral.StatusCompleted:
		return nil, fieldError("status", "use the complete operation to complete a referral")
	case status == referral.StatusCancelled && strings.TrimSpace(notes) == "":
		return nil, fieldError("notes", "a reason is required to cancel")
	}

	action := referral.ActionStatusChanged
	if status == referral.StatusCancelled {
		action = referral.ActionCancelled
	}
	return s.apply(ctx, actor, id, action, func(_ context.Context, r *referral.Referral) (*referral.History, error) {
		switch status {
		case referral.StatusAccepted:
			return r.Accept(nil, notes, actor.UserID)
		case referral.StatusCancelled:
			return r.Cancel(notes, actor.UserID)
		}
		return r.TransitionTo(status, referral.ActionStatusChanged, notes, actor.UserID)
	})
}

func (s *ReferralService) ScheduleAppointment(ctx context.Context, actor domain.Actor, id uuid.UUID, req referral.AppointmentRequest) (*referral.Referral, *appointment.Appointment, error) {
	var appt *appointment.Appointment
	r, err := s.apply(ctx, actor, id, referral.ActionAppointmentScheduled, func(ctx context.Context, r *referral.Referral) (*referral.History, error) {
		if !r.CanScheduleAppointment() {
			return nil, referral.ErrInvalidTransition
		}
		var err error
		appt, err = s.bookFor(ctx, actor, r, &req)
		if err != nil {
			return nil, err
		}
		return r.LinkAppointment(appt.ID, actor.UserID)
	})
	if err != nil {
		return nil, nil, err
	}
	return r, appt, nil
}

func (s *ReferralService) Complete(ctx context.Context, actor domain.Actor, id uuid.UUID, notes, outcome string) (*referral.Referral, error) {
	return s.apply(ctx, actor, id, referral.ActionCompleted, func(ctx context.Context, r *referral.Referral) (*referral.History, error) {
		h, err := r.Complete(notes, outcome, actor.UserID)
		if err != nil {
			return nil, err
		}
		a, err := s.assessmentRepo.GetByID(ctx, r.AssessmentID)
		if errors.Is(err, assessment.ErrAssessmentNotFound) {
			return h, nil
		}
		if err != nil {
			return nil, err
		}
		if a.Status == assessment.StatusRequiresReferral {
			a.Status = assessment.StatusCompleted
			if err := s.assessmentRepo.Save(ctx, a); err != nil {
				return nil, fmt.Errorf("completing assessment: %w", err)
			}
		}
		return h, nil
	})
}

func (s *ReferralService) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (*referral.Referral, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fieldError("reason", referral.ErrReasonRequired.Error())
	}
	return s.apply(ctx, actor, id, referral.ActionCancelled, func(_ context.Context, r *referral.Referral) (*referral.History, error) {
		return r.Cancel(reason, actor.UserID)
	})
}

func (s *ReferralService) Escalate(ctx context.Context, actor domain.Actor, id uuid.UUID, priority *referral.Priority, reason string) (*referral.Referral, error) {
	if priority != nil && !priority.IsValid() {
		return nil, fieldError("priority", referral.ErrInvalidPriority.Error())
	}
	return s.apply(ctx, actor, id, referral.ActionEscalated, func(_ context.Context, r *referral.Referral) (*referral.History, error) {
		h, err := r.Escalate(priority, reason, actor.UserID)
		if errors.Is(err, referral.ErrNotAnEscalation) {
			return nil, fieldError("priority", err.Error())
		}
		return h, err
	})
}

func (s *ReferralService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionDelete, ResourceType: "referral", ResourceID: id})
	s.log.Info("referral deleted", zap.String("referral_id", id.String()))
	return nil
}

func (s *ReferralService) Statistics(ctx context.Context, q *referral.StatisticsQuery) (*referral.Statistics, error) {
	return s.repo.Statistics(ctx, q)
}

// apply loads the referral, runs mutate and writes the new state plus its
// history row in one transaction. The write is guarded on the status that was
// read, so a concurrent transition makes this one fail with ErrConcurrentUpdate.
func (s *ReferralService) apply(
	ctx context.Context,
	actor domain.Actor,
	id uuid.UUID,
	action referral.Action,
	mutate func(ctx context.Context, r *referral.Referral) (*referral.History, error),
) (*referral.Referral, error) {
	var r *referral.Referral
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeFacility(actor, r); err != nil {
			return err
		}

		expected := r.Status
		h, err := mutate(ctx, r)
		if err != nil {
			return err
		}
		return s.repo.SaveTransition(ctx, r, expected, h)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ReferralTransitions.WithLabelValues(string(action), string(r.Status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "referral",
		ResourceID:   id,
		Changes:      map[string]any{"action": action, "status": r.Status, "priority": r.Priority},
	})
	s.log.Info("referral updated",
		zap.String("referral_id", id.String()),
		zap.String("action", string(action)),
		zap.String("status", string(r.Status)),
	)
	s.notify(ctx, r, action)
	return r, nil
}

// authorizeFacility limits facility admins to referrals addressed to their
// own facility.
func authorizeFacility(actor domain.Actor, r *referral.Referral) error {
	if actor.Role != domain.RoleFacilityAdmin {
		return nil
	}
	if actor.FacilityID == nil || *actor.FacilityID != r.TargetFacilityID {
		return ErrForbidden
	}
	return nil
}

func (s *ReferralService) bookFor(ctx context.Context, actor domain.Actor, r *referral.Referral, req *referral.AppointmentRequest) (*appointment.Appointment, error) {
	patient := "Referred patient"
	if a, err := s.assessmentRepo.GetByID(ctx, r.AssessmentID); err == nil {
		patient = a.PatientName()
	}
	doctor := req.DoctorID
	if doctor == nil {
		doctor = r.AssignedDoctorID
	}
	apptType := appointment.TypeConsultation
	if r.Urgency == referral.UrgencyEmergency {
		apptType = appointment.TypeEmergency
	}
	return s.appointments.create(ctx, &appointment.CreateAppointmentCommand{
		ReferralID:    &r.ID,
		AssessmentID:  &r.AssessmentID,
		FacilityID:    r.TargetFacilityID,
		DoctorID:      doctor,
		PatientName:   patient,
		ScheduledAt:   req.ScheduledAt,
		DurationMins:  req.DurationMins,
		Type:          apptType,
		BookingSource: appointment.SourceWeb,
		Notes:         req.Notes,
		CreatedBy:     actor.UserID,
	})
}

// notify tells the receiving facility's staff and the referral's author.
// Delivery problems are handled inside the dispatcher and never surface here.
func (s *ReferralService) notify(ctx context.Context, r *referral.Referral, action referral.Action) {
	if s.notifier == nil {
		return
	}

	seen := map[uuid.UUID]bool{}
	var to []notification.Recipient
	add := func(u *domain.User) {
		if u == nil || seen[u.ID] {
			return
		}
		seen[u.ID] = true
		to = append(to, notification.RecipientFromUser(u))
	}

	staff, err := s.staff.ListByFacility(ctx, r.TargetFacilityID)
	if err != nil {
		s.log.Warn("could not load facility staff for notification", zap.Error(err))
	}
	for _, u := range staff {
		add(u)
	}
	if creator, err := s.staff.GetByID(ctx, r.CreatedBy); err == nil {
		add(creator)
	}
	if len(to) == 0 {
		return
	}

	s.notifier.NotifyAll(ctx, to, notification.Message{
		Subject: fmt.Sprintf("Referral %s", strings.ReplaceAll(string(action), "_", " ")),
		Body: fmt.Sprintf("Referral %s is now %s (priority %s).",
			r.ID.String()[:8], strings.ReplaceAll(string(r.Status), "_", " "), r.Priority),
		Data: map[string]any{
			"referral_id": r.ID.String(),
			"action":      action,
			"status":      r.Status,
			"priority":    r.Priority,
		},
	})
}
