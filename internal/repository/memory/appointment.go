package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
)

type AppointmentRepository struct{ s *Store }

var _ appointment.Repository = (*AppointmentRepository)(nil)

func cloneAppointment(a *appointment.Appointment) *appointment.Appointment {
	cp := *a
	return &cp
}

func (r *AppointmentRepository) Create(_ context.Context, a *appointment.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := r.s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.appointments[a.ID] = cloneAppointment(a)
	return nil
}

func (r *AppointmentRepository) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.appointments[id]
	if !ok || a.DeletedAt != nil {
		return nil, appointment.ErrAppointmentNotFound
	}
	return cloneAppointment(a), nil
}

func (r *AppointmentRepository) Save(_ context.Context, a *appointment.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.appointments[a.ID]
	if !ok || existing.DeletedAt != nil {
		return appointment.ErrAppointmentNotFound
	}
	a.CreatedAt = existing.CreatedAt
	a.CreatedBy = existing.CreatedBy
	a.UpdatedAt = r.s.now()
	r.s.appointments[a.ID] = cloneAppointment(a)
	return nil
}

func (r *AppointmentRepository) live() []*appointment.Appointment {
	out := make([]*appointment.Appointment, 0, len(r.s.appointments))
	for _, a := range r.s.appointments {
		if a.DeletedAt == nil {
			out = append(out, cloneAppointment(a))
		}
	}
	return out
}

func (r *AppointmentRepository) List(_ context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := slices.DeleteFunc(r.live(), func(a *appointment.Appointment) bool {
		return !(eqPtr(q.FacilityID, a.FacilityID) &&
			eqOptPtr(q.DoctorID, a.DoctorID) &&
			eqOptPtr(q.ReferralID, a.ReferralID) &&
			eqPtr(q.Status, a.Status) &&
			inRange(a.ScheduledAt, q.DateFrom, q.DateTo))
	})
	slices.SortFunc(items, func(a, b *appointment.Appointment) int { return a.ScheduledAt.Compare(b.ScheduledAt) })

	total := int64(len(items))
	pageItems, page, size := paginate(items, q.Page, q.PageSize)
	return &appointment.PagedAppointments{Appointments: pageItems, TotalCount: total, Page: page, PageSize: size}, nil
}

func (r *AppointmentRepository) HasConflict(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.live() {
		if a.DoctorID == nil || *a.DoctorID != doctorID {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		switch a.Status {
		case appointment.StatusCancelled, appointment.StatusNoShow, appointment.StatusCompleted:
			continue
		}
		if a.ScheduledAt.Before(end) && a.EndsAt().After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *AppointmentRepository) CountByStatus(_ context.Context, facilityID uuid.UUID) (map[appointment.AppointmentStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := map[appointment.AppointmentStatus]int64{}
	for _, a := range r.live() {
		if a.FacilityID == facilityID {
			out[a.Status]++
		}
	}
	return out, nil
}

func (r *AppointmentRepository) ChangedSince(_ context.Context, since time.Time, limit int) ([]*appointment.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	items := slices.DeleteFunc(r.live(), func(a *appointment.Appointment) bool { return !a.UpdatedAt.After(since) })
	return changedOrder(items, limit, func(a *appointment.Appointment) (time.Time, uuid.UUID) { return a.UpdatedAt, a.ID }), nil
}
