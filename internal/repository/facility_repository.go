package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"gorm.io/gorm"
)

type FacilityRepository struct {
	db *gorm.DB
}

func NewFacilityRepository(db *gorm.DB) *FacilityRepository {
	return &FacilityRepository{db: db}
}

var _ facility.Repository = (*FacilityRepository)(nil)

func (r *FacilityRepository) Create(ctx context.Context, f *facility.Facility) error {
	if err := getDB(ctx, r.db).Create(f).Error; err != nil {
		if isDuplicate(err) {
			return facility.ErrDuplicateCode
		}
		return fmt.Errorf("inserting facility: %w", err)
	}
	return nil
}

func (r *FacilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*facility.Facility, error) {
	var f facility.Facility
	if err := getDB(ctx, r.db).First(&f, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, facility.ErrFacilityNotFound
		}
		return nil, fmt.Errorf("loading facility %s: %w", id, err)
	}
	return &f, nil
}

func (r *FacilityRepository) Save(ctx context.Context, f *facility.Facility) error {
	res := getDB(ctx, r.db).Model(f).Select("*").Omit("id", "created_at", "code").Updates(f)
	if res.Error != nil {
		return fmt.Errorf("saving facility %s: %w", f.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return facility.ErrFacilityNotFound
	}
	return nil
}

func (r *FacilityRepository) List(ctx context.Context, q *facility.ListFacilitiesQuery) (*facility.PagedFacilities, error) {
	query := getDB(ctx, r.db).Model(&facility.Facility{})

	if q.Region != "" {
		query = query.Where("region = ?", q.Region)
	}
	if q.Province != "" {
		query = query.Where("province = ?", q.Province)
	}
	if q.City != "" {
		query = query.Where("city = ?", q.City)
	}
	if q.Type != nil {
		query = query.Where("type = ?", *q.Type)
	}
	if q.Service != "" {
		needle, _ := json.Marshal([]string{q.Service})
		query = query.Where("services @> ?::jsonb", string(needle))
	}
	if q.HasCardiologyUnit != nil {
		query = query.Where("has_cardiology_unit = ?", *q.HasCardiologyUnit)
	}
	if q.HasEmergencyRoom != nil {
		query = query.Where("has_emergency_room = ?", *q.HasEmergencyRoom)
	}
	if q.IsActive != nil {
		query = query.Where("is_active = ?", *q.IsActive)
	}
	if q.Search != "" {
		like := "%" + q.Search + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ? OR city ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting facilities: %w", err)
	}

	scope, page, size := paginate(q.Page, q.PageSize)
	items := make([]*facility.Facility, 0, size)
	if total > 0 {
		if err := query.Scopes(scope).Order("name ASC, id").Find(&items).Error; err != nil {
			return nil, fmt.Errorf("listing facilities: %w", err)
		}
	}

	return &facility.PagedFacilities{Facilities: items, TotalCount: total, Page: page, PageSize: size}, nil
}

const nearbySQL = `
SELECT * FROM (
	SELECT f.*,
		6371 * 2 * ASIN(LEAST(1, SQRT(
			POWER(SIN(RADIANS(f.latitude - @lat) / 2), 2) +
			COS(RADIANS(@lat)) * COS(RADIANS(f.latitude)) *
			POWER(SIN(RADIANS(f.longitude - @lng) / 2), 2)
		))) AS distance_km
	FROM directory.facilities f
	WHERE f.is_active AND f.id <> @origin
) d
WHERE d.distance_km <= @radius
ORDER BY d.distance_km ASC
LIMIT @limit`

func (r *FacilityRepository) Nearby(ctx context.Context, origin *facility.Facility, radiusKm float64, limit int) ([]*facility.Nearby, error) {
	var rows []*facility.Nearby
	err := getDB(ctx, r.db).Raw(nearbySQL, map[string]any{
		"lat":    origin.Latitude,
		"lng":    origin.Longitude,
		"origin": origin.ID,
		"radius": radiusKm,
		"limit":  limit,
	}).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("nearby facilities for %s: %w", origin.ID, err)
	}
	return rows, nil
}

func (r *FacilityRepository) ChangedSince(ctx context.Context, since time.Time, limit int) ([]*facility.Facility, error) {
	var items []*facility.Facility
	err := getDB(ctx, r.db).
		Where("updated_at > ?", since).
		Order("updated_at ASC, id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("facilities changed since %s: %w", since, err)
	}
	return items, nil
}
