package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
)

func newReferral(t *testing.T, h *harness) (*referral.Referral, *facility.Facility) {
	t.Helper()
	target := h.facility(t, "PHC", "NCR", 14.6437, 121.0475)
	a := h.assessment(t, 82)
	r, err := h.referrals.Create(context.Background(), h.doctor, &referral.CreateReferralCommand{
		AssessmentID:     a.ID,
		TargetFacilityID: target.ID,
		Priority:         referral.PriorityHigh,
		Reason:           "suspected unstable angina",
	})
	require.NoError(t, err)
	return r, target
}

func TestReferralCreate_MovesAssessmentAndWritesHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r, _ := newReferral(t, h)

	assert.Equal(t, referral.StatusPending, r.Status)

	a, err := h.store.Assessments().GetByID(ctx, r.AssessmentID)
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusRequiresReferral, a.Status)

	hist, err := h.referrals.History(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, referral.ActionCreated, hist[0].Action)
}

func TestReferralCreate_InactiveTarget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	target := h.facility(t, "OLD", "NCR", 14.6, 121.0)
	_, err := h.facilities.Deactivate(ctx, domain.Actor{Role: domain.RoleAdmin}, target.ID)
	require.NoError(t, err)

	_, err = h.referrals.Create(ctx, h.doctor, &referral.CreateReferralCommand{
		AssessmentID:     h.assessment(t, 50).ID,
		TargetFacilityID: target.ID,
		Reason:           "x",
	})
	assert.ErrorIs(t, err, facility.ErrFacilityInactive)
}

func TestReferralTransitions_OneHistoryRowEach(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r, _ := newReferral(t, h)

	steps := []func() (*referral.Referral, error){
		func() (*referral.Referral, error) {
			return h.referrals.Accept(ctx, h.doctor, r.ID, referral.AcceptCommand{Notes: "bed ready"})
		},
		func() (*referral.Referral, error) {
			return h.referrals.UpdateStatus(ctx, h.doctor, r.ID, referral.StatusInTransit, "ambulance dispatched")
		},
		func() (*referral.Referral, error) {
			return h.referrals.UpdateStatus(ctx, h.doctor, r.ID, referral.StatusArrived, "")
		},
		func() (*referral.Referral, error) {
			return h.referrals.Complete(ctx, h.doctor, r.ID, "PCI done", "stable")
		},
	}
	prev := referral.StatusPending
	for i, step := range steps {
		got, err := step()
		require.NoError(t, err, "step %d", i)

		hist, err := h.referrals.History(ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, hist, i+2)
		last := hist[len(hist)-1]
		assert.Equal(t, prev, last.FromStatus)
		assert.Equal(t, got.Status, last.ToStatus)
		prev = got.Status
	}

	a, err := h.store.Assessments().GetByID(ctx, r.AssessmentID)
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusCompleted, a.Status)
}

func TestReferralAccept_CompletedIsConflictWithoutHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r, _ := newReferral(t, h)
	_, err := h.referrals.Cancel(ctx, h.doctor, r.ID, "patient declined")
	require.NoError(t, err)

	before, err := h.referrals.History(ctx, r.ID)
	require.NoError(t, err)

	_, err = h.referrals.Accept(ctx, h.doctor, r.ID, referral.AcceptCommand{})
	assert.ErrorIs(t, err, referral.ErrInvalidTransition)

	after, err := h.referrals.History(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestReferralAccept_WithAppointment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r, target := newReferral(t, h)
	doctor := uuid.New()

	got, err := h.referrals.Accept(ctx, h.doctor, r.ID, referral.AcceptCommand{
		AssignedDoctorID: &doctor,
		Appointment:      &referral.AppointmentRequest{ScheduledAt: time.Now().Add(48 * time.Hour), DurationMins: 45},
	})
	require.NoError(t, err)
	require.NotNil(t, got.AppointmentID)

	appt, err := h.store.Appointments().GetByID(ctx, *got.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, appt.FacilityID)
	assert.Equal(t, &doctor, appt.DoctorID)
	assert.Equal(t, "Juan Dela Cruz", appt.PatientName)

	hist, err := h.referrals.History(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 2, "accept with booking is one transition")
}

func TestReferralReject_RequiresReason(t *testing.T) {
	h := newHarness(t)
	r, _ := newReferral(t, h)

	_, err := h.referrals.Reject(context.Background(), h.doctor, r.ID, "  ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "reason")
}

func TestReferralUpdateStatus_CannotComplete(t *testing.T) {
	h := newHarness(t)
	r, _ := newReferral(t, h)

	_, err := h.referrals.UpdateStatus(context.Background(), h.doctor, r.ID, referral.StatusCompleted, "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestReferralEscalate_PriorityOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r, _ := newReferral(t, h)

	got, err := h.referrals.Escalate(ctx, h.doctor, r.ID, nil, "troponin rising")
	require.NoError(t, err)
	assert.Equal(t, referral.PriorityCritical, got.Priority)
	assert.Equal(t, referral.StatusPending, got.Status)

	_, err = h.referrals.Escalate(ctx, h.doctor, r.ID, nil, "again")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr, "critical cannot go higher")
}

func TestReferralScheduleAppointment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r, _ := newReferral(t, h)

	_, _, err := h.referrals.ScheduleAppointment(ctx, h.doctor, r.ID, referral.AppointmentRequest{ScheduledAt: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, referral.ErrInvalidTransition, "pending referrals cannot book")

	_, err = h.referrals.Accept(ctx, h.doctor, r.ID, referral.AcceptCommand{})
	require.NoError(t, err)

	got, appt, err := h.referrals.ScheduleAppointment(ctx, h.doctor, r.ID, referral.AppointmentRequest{ScheduledAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, &appt.ID, got.AppointmentID)
	assert.Equal(t, referral.StatusAccepted, got.Status)
	assert.Equal(t, 30, appt.DurationMins)
}

func TestReferralFacilityAdmin_ForeignFacilityForbidden(t *testing.T) {
	h := newHarness(t)
	r, _ := newReferral(t, h)
	other := uuid.New()
	admin := domain.Actor{UserID: uuid.New(), Role: domain.RoleFacilityAdmin, FacilityID: &other}

	_, err := h.referrals.Accept(context.Background(), admin, r.ID, referral.AcceptCommand{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReferralNotifiesTargetStaff(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	target := h.facility(t, "PHC", "NCR", 14.6437, 121.0475)
	require.NoError(t, h.store.Users().Create(ctx, &domain.User{
		Email: "er@phc.gov.ph", FirstName: "Ana", LastName: "Reyes", Role: domain.RoleNurse,
		FacilityID: &target.ID, IsActive: true, NotificationPreferences: domain.DefaultNotificationPreferences(),
	}))

	_, err := h.referrals.Create(ctx, h.doctor, &referral.CreateReferralCommand{
		AssessmentID: h.assessment(t, 75).ID, TargetFacilityID: target.ID, Reason: "STEMI",
	})
	require.NoError(t, err)

	logs := h.store.Notifications().All()
	require.Len(t, logs, 1)
	assert.Equal(t, "er@phc.gov.ph", logs[0].Recipient)
	assert.Equal(t, "Referral created", logs[0].Subject)
}
