package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

type AppointmentService struct {
	repo         appointment.Repository
	facilityRepo facility.Repository
	auditSvc     *AuditService
	metrics      *metrics.Collector
	log          *zap.Logger
}

func NewAppointmentService(
	repo appointment.Repository,
	facilityRepo facility.Repository,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{repo: repo, facilityRepo: facilityRepo, auditSvc: auditSvc, metrics: m, log: log}
}

func (s *AppointmentService) Create(ctx context.Context, actor domain.Actor, cmd *appointment.CreateAppointmentCommand) (*appointment.Appointment, error) {
	cmd.CreatedBy = actor.UserID
	a, err := s.create(ctx, cmd)
	if err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionCreate, ResourceType: "appointment", ResourceID: a.ID})
	return a, nil
}

// create validates and inserts an appointment. Referral acceptance and
// scheduling call it inside their own transaction.
func (s *AppointmentService) create(ctx context.Context, cmd *appointment.CreateAppointmentCommand) (*appointment.Appointment, error) {
	if cmd.DurationMins == 0 {
		cmd.DurationMins = 30
	}
	if cmd.Type == "" {
		cmd.Type = appointment.TypeConsultation
	}
	if cmd.BookingSource == "" {
		cmd.BookingSource = appointment.SourceWeb
	}

	v := NewValidationError()
	v.Check(cmd.FacilityID != uuid.Nil, "facility_id", "is required")
	v.Check(strings.TrimSpace(cmd.PatientName) != "", "patient_name", "is required")
	v.Check(cmd.ScheduledAt.After(time.Now()), "scheduled_at", appointment.ErrScheduledInPast.Error())
	v.Check(appointment.ValidDuration(cmd.DurationMins), "duration_mins", appointment.ErrInvalidDuration.Error())
	v.Check(cmd.Type.IsValid(), "type", appointment.ErrInvalidAppointmentType.Error())
	v.Check(cmd.BookingSource.IsValid(), "booking_source", appointment.ErrInvalidBookingSource.Error())
	if err := v.Err(); err != nil {
		return nil, err
	}

	f, err := s.facilityRepo.GetByID(ctx, cmd.FacilityID)
	if err != nil {
		return nil, err
	}
	if !f.IsActive {
		return nil, facility.ErrFacilityInactive
	}

	if cmd.DoctorID != nil {
		endsAt := cmd.ScheduledAt.Add(time.Duration(cmd.DurationMins) * time.Minute)
		conflict, err := s.repo.HasConflict(ctx, *cmd.DoctorID, cmd.ScheduledAt, endsAt, nil)
		if err != nil {
			return nil, fmt.Errorf("checking conflicts: %w", err)
		}
		if conflict {
			return nil, appointment.ErrAppointmentConflict
		}
	}

	a := &appointment.Appointment{
		ReferralID:     cmd.ReferralID,
		AssessmentID:   cmd.AssessmentID,
		FacilityID:     cmd.FacilityID,
		DoctorID:       cmd.DoctorID,
		PatientName:    strings.TrimSpace(cmd.PatientName),
		PatientContact: cmd.PatientContact,
		ScheduledAt:    cmd.ScheduledAt,
		DurationMins:   cmd.DurationMins,
		Type:           cmd.Type,
		Status:         appointment.StatusScheduled,
		BookingSource:  cmd.BookingSource,
		Notes:          cmd.Notes,
		CreatedBy:      cmd.CreatedBy,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		s.log.Error("failed to create appointment", zap.Error(err))
		return nil, fmt.Errorf("creating appointment: %w", err)
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.log.Info("appointment scheduled",
		zap.String("appointment_id", a.ID.String()),
		zap.String("facility_id", a.FacilityID.String()),
		zap.Time("scheduled_at", a.ScheduledAt),
	)
	return a, nil
}

func (s *AppointmentService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionRead, ResourceType: "appointment", ResourceID: id})
	return a, nil
}

func (s *AppointmentService) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	if q.Status != nil && !q.Status.IsValid() {
		return nil, fieldError("status", "invalid appointment status")
	}
	q.Page, q.PageSize = domain.NormalizePaging(q.Page, q.PageSize)
	return s.repo.List(ctx, q)
}

func (s *AppointmentService) Reschedule(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd appointment.RescheduleCommand) (*appointment.Appointment, error) {
	if cmd.DurationMins != nil && !appointment.ValidDuration(*cmd.DurationMins) {
		return nil, fieldError("duration_mins", appointment.ErrInvalidDuration.Error())
	}

	return s.change(ctx, actor, id, func(a *appointment.Appointment) error {
		if !a.CanTransitionTo(appointment.StatusRescheduled) {
			return appointment.ErrInvalidStatusTransition
		}
		if !cmd.ScheduledAt.After(time.Now()) {
			return fieldError("scheduled_at", appointment.ErrScheduledInPast.Error())
		}
		if a.DoctorID != nil {
			dur := a.DurationMins
			if cmd.DurationMins != nil {
				dur = *cmd.DurationMins
			}
			end := cmd.ScheduledAt.Add(time.Duration(dur) * time.Minute)
			conflict, err := s.repo.HasConflict(ctx, *a.DoctorID, cmd.ScheduledAt, end, &a.ID)
			if err != nil {
				return fmt.Errorf("checking conflicts: %w", err)
			}
			if conflict {
				return appointment.ErrAppointmentConflict
			}
		}
		return a.Reschedule(cmd.ScheduledAt, cmd.DurationMins)
	})
}

func (s *AppointmentService) Confirm(ctx context.Context, actor domain.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, actor, id, appointment.StatusConfirmed)
}

func (s *AppointmentService) CheckIn(ctx context.Context, actor domain.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, actor, id, appointment.StatusCheckedIn)
}

func (s *AppointmentService) Start(ctx context.Context, actor domain.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, actor, id, appointment.StatusInProgress)
}

func (s *AppointmentService) Complete(ctx context.Context, actor domain.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, actor, id, appointment.StatusCompleted)
}

func (s *AppointmentService) MarkNoShow(ctx context.Context, actor domain.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, actor, id, appointment.StatusNoShow)
}

func (s *AppointmentService) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (*appointment.Appointment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fieldError("reason", appointment.ErrCancellationReasonRequired.Error())
	}
	return s.change(ctx, actor, id, func(a *appointment.Appointment) error {
		return a.Cancel(reason, actor.UserID)
	})
}

func (s *AppointmentService) transition(ctx context.Context, actor domain.Actor, id uuid.UUID, to appointment.AppointmentStatus) (*appointment.Appointment, error) {
	return s.change(ctx, actor, id, func(a *appointment.Appointment) error {
		return a.TransitionTo(to)
	})
}

// change loads the appointment, applies fn and persists the result.
func (s *AppointmentService) change(ctx context.Context, actor domain.Actor, id uuid.UUID, fn func(*appointment.Appointment) error) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := a.Status

	if err := fn(a); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, a); err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   id,
		Changes:      map[string]any{"from": from, "to": a.Status},
	})
	return a, nil
}
