package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
)

func TestAppointmentCreate_Checks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	f := h.facility(t, "PHC", "NCR", 14.6437, 121.0475)
	doctor := uuid.New()
	start := time.Now().Add(24 * time.Hour).Truncate(time.Minute)

	_, err := h.appts.Create(ctx, h.doctor, &appointment.CreateAppointmentCommand{
		FacilityID: f.ID, PatientName: "Juan", ScheduledAt: time.Now().Add(-time.Hour), DurationMins: 2,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "scheduled_at")
	assert.Contains(t, verr.Fields, "duration_mins")

	first, err := h.appts.Create(ctx, h.doctor, &appointment.CreateAppointmentCommand{
		FacilityID: f.ID, DoctorID: &doctor, PatientName: "Juan", ScheduledAt: start, DurationMins: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, first.Status)
	assert.Equal(t, h.doctor.UserID, first.CreatedBy)

	_, err = h.appts.Create(ctx, h.doctor, &appointment.CreateAppointmentCommand{
		FacilityID: f.ID, DoctorID: &doctor, PatientName: "Maria", ScheduledAt: start.Add(30 * time.Minute), DurationMins: 30,
	})
	assert.ErrorIs(t, err, appointment.ErrAppointmentConflict)

	_, err = h.appts.Create(ctx, h.doctor, &appointment.CreateAppointmentCommand{
		FacilityID: f.ID, DoctorID: &doctor, PatientName: "Maria", ScheduledAt: start.Add(time.Hour), DurationMins: 30,
	})
	assert.NoError(t, err, "back-to-back slots do not overlap")
}

func TestAppointmentLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	f := h.facility(t, "PHC", "NCR", 14.6437, 121.0475)
	a, err := h.appts.Create(ctx, h.doctor, &appointment.CreateAppointmentCommand{
		FacilityID: f.ID, PatientName: "Juan", ScheduledAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	next := time.Now().Add(48 * time.Hour)
	a, err = h.appts.Reschedule(ctx, h.doctor, a.ID, appointment.RescheduleCommand{ScheduledAt: next})
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusRescheduled, a.Status)
	assert.NotNil(t, a.RescheduledFrom)

	for _, step := range []func(context.Context, uuid.UUID) (*appointment.Appointment, error){
		func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) { return h.appts.Confirm(ctx, h.doctor, id) },
		func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) { return h.appts.CheckIn(ctx, h.doctor, id) },
		func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) { return h.appts.Start(ctx, h.doctor, id) },
		func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) { return h.appts.Complete(ctx, h.doctor, id) },
	} {
		a, err = step(ctx, a.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, appointment.StatusCompleted, a.Status)
	assert.NotNil(t, a.CheckedInAt)
	assert.NotNil(t, a.CompletedAt)

	_, err = h.appts.Cancel(ctx, h.doctor, a.ID, "late")
	assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition)
}

func TestAppointmentCancel_RequiresReason(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	f := h.facility(t, "PHC", "NCR", 14.6437, 121.0475)
	a, err := h.appts.Create(ctx, h.doctor, &appointment.CreateAppointmentCommand{
		FacilityID: f.ID, PatientName: "Juan", ScheduledAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = h.appts.Cancel(ctx, h.doctor, a.ID, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	got, err := h.appts.MarkNoShow(ctx, h.doctor, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusNoShow, got.Status)
}
