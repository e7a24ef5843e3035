package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
)

type FacilityRepository struct{ s *Store }

var _ facility.Repository = (*FacilityRepository)(nil)

func cloneFacility(f *facility.Facility) *facility.Facility {
	cp := *f
	cp.Services = slices.Clone(f.Services)
	return &cp
}

func (r *FacilityRepository) Create(_ context.Context, f *facility.Facility) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.facilities {
		if strings.EqualFold(existing.Code, f.Code) {
			return facility.ErrDuplicateCode
		}
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	now := r.s.now()
	f.CreatedAt, f.UpdatedAt = now, now
	r.s.facilities[f.ID] = cloneFacility(f)
	return nil
}

func (r *FacilityRepository) GetByID(_ context.Context, id uuid.UUID) (*facility.Facility, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	f, ok := r.s.facilities[id]
	if !ok {
		return nil, facility.ErrFacilityNotFound
	}
	return cloneFacility(f), nil
}

func (r *FacilityRepository) Save(_ context.Context, f *facility.Facility) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.facilities[f.ID]
	if !ok {
		return facility.ErrFacilityNotFound
	}
	f.CreatedAt = existing.CreatedAt
	f.Code = existing.Code
	f.UpdatedAt = r.s.now()
	r.s.facilities[f.ID] = cloneFacility(f)
	return nil
}

func (r *FacilityRepository) List(_ context.Context, q *facility.ListFacilitiesQuery) (*facility.PagedFacilities, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	var items []*facility.Facility
	for _, f := range r.s.facilities {
		switch {
		case q.Region != "" && f.Region != q.Region,
			q.Province != "" && f.Province != q.Province,
			q.City != "" && f.City != q.City,
			q.Type != nil && f.Type != *q.Type,
			q.Service != "" && !f.OffersService(q.Service),
			q.HasCardiologyUnit != nil && f.HasCardiologyUnit != *q.HasCardiologyUnit,
			q.HasEmergencyRoom != nil && f.HasEmergencyRoom != *q.HasEmergencyRoom,
			q.IsActive != nil && f.IsActive != *q.IsActive:
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(f.Name), search) &&
			!strings.Contains(strings.ToLower(f.Code), search) &&
			!strings.Contains(strings.ToLower(f.City), search) {
			continue
		}
		items = append(items, cloneFacility(f))
	}
	slices.SortFunc(items, func(a, b *facility.Facility) int { return strings.Compare(a.Name, b.Name) })

	total := int64(len(items))
	pageItems, page, size := paginate(items, q.Page, q.PageSize)
	return &facility.PagedFacilities{Facilities: pageItems, TotalCount: total, Page: page, PageSize: size}, nil
}

func (r *FacilityRepository) Nearby(_ context.Context, origin *facility.Facility, radiusKm float64, limit int) ([]*facility.Nearby, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*facility.Nearby
	for _, f := range r.s.facilities {
		if !f.IsActive || f.ID == origin.ID {
			continue
		}
		d := facility.DistanceKm(origin.Latitude, origin.Longitude, f.Latitude, f.Longitude)
		if d <= radiusKm {
			out = append(out, &facility.Nearby{Facility: *cloneFacility(f), DistanceKm: d})
		}
	}
	slices.SortFunc(out, func(a, b *facility.Nearby) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *FacilityRepository) ChangedSince(_ context.Context, since time.Time, limit int) ([]*facility.Facility, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var items []*facility.Facility
	for _, f := range r.s.facilities {
		if f.UpdatedAt.After(since) {
			items = append(items, cloneFacility(f))
		}
	}
	return changedOrder(items, limit, func(f *facility.Facility) (time.Time, uuid.UUID) { return f.UpdatedAt, f.ID }), nil
}
