package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralSaveTransition_StaleStatusLoses(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Referrals()

	ref := &referral.Referral{Status: referral.StatusPending, Priority: referral.PriorityMedium}
	require.NoError(t, repo.Create(ctx, ref, &referral.History{Action: referral.ActionCreated}))

	first, err := repo.GetByID(ctx, ref.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, ref.ID)
	require.NoError(t, err)

	h1, err := first.Accept(nil, "", uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.SaveTransition(ctx, first, referral.StatusPending, h1))

	h2, err := second.Reject("full", uuid.New())
	require.NoError(t, err)
	assert.ErrorIs(t, repo.SaveTransition(ctx, second, referral.StatusPending, h2), referral.ErrConcurrentUpdate)

	stored, err := repo.GetByID(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, referral.StatusAccepted, stored.Status)

	history, err := repo.History(ctx, ref.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, referral.ActionCreated, history[0].Action)
	assert.Equal(t, referral.ActionAccepted, history[1].Action)
}

func TestAssessmentChangedSince_OrdersByUpdatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Assessments()

	var ids []uuid.UUID
	for range 4 {
		a := &assessment.Assessment{Status: assessment.StatusPending}
		require.NoError(t, repo.Create(ctx, a))
		ids = append(ids, a.ID)
	}

	// Touch the first one so it becomes the most recent change.
	first, err := repo.GetByID(ctx, ids[0])
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	second, err := repo.GetByID(ctx, ids[1])
	require.NoError(t, err)

	changed, err := repo.ChangedSince(ctx, second.UpdatedAt, 10)
	require.NoError(t, err)
	require.Len(t, changed, 3)
	assert.Equal(t, []uuid.UUID{ids[2], ids[3], ids[0]}, []uuid.UUID{changed[0].ID, changed[1].ID, changed[2].ID})
	for i := 1; i < len(changed); i++ {
		assert.True(t, changed[i].UpdatedAt.After(changed[i-1].UpdatedAt))
	}

	limited, err := repo.ChangedSince(ctx, time.Time{}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestAssessmentCreate_DuplicateClientID(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Assessments()
	id := "device-1:42"

	require.NoError(t, repo.Create(ctx, &assessment.Assessment{MobileClientID: &id}))
	assert.ErrorIs(t, repo.Create(ctx, &assessment.Assessment{MobileClientID: &id}), assessment.ErrDuplicateClientID)
}

func TestFacilityNearby(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Facilities()

	origin := &facility.Facility{Code: "PHC", Name: "Philippine Heart Center", Latitude: 14.6437, Longitude: 121.0475, IsActive: true}
	mid := &facility.Facility{Code: "MMC", Name: "Makati Medical", Latitude: 14.5591, Longitude: 121.0145, IsActive: true}
	closer := &facility.Facility{Code: "EAMC", Name: "East Avenue", Latitude: 14.6425, Longitude: 121.0493, IsActive: true}
	inactive := &facility.Facility{Code: "OLD", Name: "Closed Clinic", Latitude: 14.6430, Longitude: 121.0470, IsActive: false}
	far := &facility.Facility{Code: "VSMMC", Name: "Cebu", Latitude: 10.3100, Longitude: 123.8910, IsActive: true}
	for _, f := range []*facility.Facility{origin, mid, closer, inactive, far} {
		require.NoError(t, repo.Create(ctx, f))
	}

	near, err := repo.Nearby(ctx, origin, 25, 10)
	require.NoError(t, err)
	require.Len(t, near, 2)
	assert.Equal(t, "EAMC", near[0].Code)
	assert.Equal(t, "MMC", near[1].Code)
	assert.Less(t, near[0].DistanceKm, near[1].DistanceKm)

	assert.ErrorIs(t, repo.Create(ctx, &facility.Facility{Code: "phc"}), facility.ErrDuplicateCode)
}
