package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
)

func TestAnalytics_OverviewAndFacility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	src := h.facility(t, "RHU", "NCR", 14.60, 121.00)
	dst := h.facility(t, "PHC", "NCR", 14.64, 121.04)

	high := h.assessment(t, 88)
	h.assessment(t, 12)

	_, err := h.referrals.Create(ctx, h.doctor, &referral.CreateReferralCommand{
		AssessmentID:     high.ID,
		SourceFacilityID: &src.ID,
		TargetFacilityID: dst.ID,
		Reason:           "elevated troponin",
	})
	require.NoError(t, err)

	ov, err := h.analytics.Overview(ctx, OverviewQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, ov.Assessments.Total)
	assert.EqualValues(t, 1, ov.Assessments.ByRiskLevel[assessment.RiskHigh])
	assert.EqualValues(t, 1, ov.Referrals.Total)
	assert.EqualValues(t, 1, ov.Referrals.Pending)

	fa, err := h.analytics.Facility(ctx, dst.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, fa.Incoming.Total)
	assert.EqualValues(t, 0, fa.Outgoing.Total)
	assert.Equal(t, 100, fa.Capacity.BedCapacity)

	out, err := h.analytics.Facility(ctx, src.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.Outgoing.Total)
	assert.EqualValues(t, 0, out.Incoming.Total)
}

func TestAnalytics_UnknownFacility(t *testing.T) {
	h := newHarness(t)
	_, err := h.analytics.Facility(context.Background(), uuid.New())
	assert.ErrorIs(t, err, facility.ErrFacilityNotFound)
}
