package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
)

func TestFacilityList_DefaultsToActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.facility(t, "PHC", "NCR", 14.6437, 121.0475)
	closed := h.facility(t, "OLD", "NCR", 14.6, 121.0)
	h.facility(t, "VSMMC", "VII", 10.3077, 123.8915)
	_, err := h.facilities.Deactivate(ctx, domain.Actor{Role: domain.RoleAdmin}, closed.ID)
	require.NoError(t, err)

	res, err := h.facilities.List(ctx, &facility.ListFacilitiesQuery{Region: "NCR"})
	require.NoError(t, err)
	require.Len(t, res.Facilities, 1)
	assert.Equal(t, "PHC", res.Facilities[0].Code)
}

func TestFacilityGet_ReadThroughAndInvalidate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	f := h.facility(t, "PHC", "NCR", 14.6437, 121.0475)

	_, err := h.facilities.Get(ctx, f.ID)
	require.NoError(t, err)
	_, err = h.facilities.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CacheLookups.WithLabelValues("hit")))

	beds := 10
	_, err = h.facilities.Update(ctx, domain.Actor{Role: domain.RoleAdmin}, f.ID, &facility.UpdateFacilityCommand{AvailableBeds: &beds})
	require.NoError(t, err)

	got, err := h.facilities.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.AvailableBeds, "update evicted the cached copy")
}

func TestFacilityCreate_Validation(t *testing.T) {
	h := newHarness(t)
	_, err := h.facilities.Create(context.Background(), domain.Actor{Role: domain.RoleAdmin}, &facility.CreateFacilityCommand{
		Code: "X", Name: "X", Type: "spa", Region: "NCR", Latitude: 95, BedCapacity: 1, AvailableBeds: 2,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "type")
	assert.Contains(t, verr.Fields, "latitude")
	assert.Contains(t, verr.Fields, "available_beds")
}

func TestFacilityNearby(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	phc := h.facility(t, "PHC", "NCR", 14.6437, 121.0475)
	h.facility(t, "MMC", "NCR", 14.5591, 121.0145)
	h.facility(t, "VSMMC", "VII", 10.3077, 123.8915)

	near, err := h.facilities.Nearby(ctx, phc.ID, 25, 0)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, "MMC", near[0].Code)

	_, err = h.facilities.Nearby(ctx, phc.ID, 1000, 0)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestFacilityCapacity(t *testing.T) {
	h := newHarness(t)
	f := h.facility(t, "PHC", "NCR", 14.6437, 121.0475)
	c, err := h.facilities.Capacity(context.Background(), f.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, c.BedOccupancy, 1e-9)
}
