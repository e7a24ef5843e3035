package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/cache"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

const (
	facilityKeyPrefix = "facility:"
	facilityListKey   = "facility:list:"

	defaultNearbyRadiusKm = 25.0
	maxNearbyRadiusKm     = 500.0
	defaultNearbyLimit    = 10
	maxNearbyLimit        = 50
)

type FacilityService struct {
	repo     facility.Repository
	cache    cache.Cache
	ttl      time.Duration
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewFacilityService(
	repo facility.Repository,
	c cache.Cache,
	ttl time.Duration,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *FacilityService {
	if c == nil {
		c = cache.Noop{}
	}
	return &FacilityService{repo: repo, cache: c, ttl: ttl, auditSvc: auditSvc, metrics: m, log: log}
}

// cached serves key from the cache, falling back to load and storing its
// result. Cache errors degrade to a direct load.
func cached[T any](ctx context.Context, s *FacilityService, key string, load func() (T, error)) (T, error) {
	var hit T
	ok, err := s.cache.Get(ctx, key, &hit)
	switch {
	case err != nil:
		s.metrics.CacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("facility cache read failed", zap.String("key", key), zap.Error(err))
	case ok:
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return hit, nil
	default:
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.log.Warn("facility cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

func (s *FacilityService) invalidate(ctx context.Context, id uuid.UUID) {
	for _, prefix := range []string{facilityKeyPrefix + id.String(), facilityListKey} {
		if err := s.cache.DeletePrefix(ctx, prefix); err != nil {
			s.log.Warn("facility cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}

func (s *FacilityService) Get(ctx context.Context, id uuid.UUID) (*facility.Facility, error) {
	return cached(ctx, s, facilityKeyPrefix+id.String(), func() (*facility.Facility, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// List defaults to active facilities when the query does not say otherwise.
func (s *FacilityService) List(ctx context.Context, q *facility.ListFacilitiesQuery) (*facility.PagedFacilities, error) {
	if q.Type != nil && !q.Type.IsValid() {
		return nil, fieldError("type", facility.ErrInvalidType.Error())
	}
	if q.IsActive == nil {
		active := true
		q.IsActive = &active
	}
	q.Page, q.PageSize = domain.NormalizePaging(q.Page, q.PageSize)

	raw, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encoding facility query: %w", err)
	}
	sum := sha256.Sum256(raw)
	key := facilityListKey + hex.EncodeToString(sum[:12])

	return cached(ctx, s, key, func() (*facility.PagedFacilities, error) {
		return s.repo.List(ctx, q)
	})
}

func validateFacility(f *facility.Facility) error {
	v := NewValidationError()
	v.Check(strings.TrimSpace(f.Code) != "", "code", "is required")
	v.Check(strings.TrimSpace(f.Name) != "", "name", "is required")
	v.Check(f.Type.IsValid(), "type", facility.ErrInvalidType.Error())
	v.Check(strings.TrimSpace(f.Region) != "", "region", "is required")
	v.Check(facility.ValidCoordinate(f.Latitude, f.Longitude), "latitude", facility.ErrInvalidCoordinate.Error())
	v.Check(f.ValidCapacity(), "available_beds", facility.ErrInvalidCapacity.Error())
	return v.Err()
}

func (s *FacilityService) Create(ctx context.Context, actor domain.Actor, cmd *facility.CreateFacilityCommand) (*facility.Facility, error) {
	f := &facility.Facility{
		Code:                   strings.ToUpper(strings.TrimSpace(cmd.Code)),
		Name:                   strings.TrimSpace(cmd.Name),
		Type:                   cmd.Type,
		Address:                cmd.Address,
		City:                   cmd.City,
		Province:               cmd.Province,
		Region:                 strings.TrimSpace(cmd.Region),
		Latitude:               cmd.Latitude,
		Longitude:              cmd.Longitude,
		Phone:                  cmd.Phone,
		Email:                  cmd.Email,
		Services:               cmd.Services,
		BedCapacity:            cmd.BedCapacity,
		AvailableBeds:          cmd.AvailableBeds,
		ICUCapacity:            cmd.ICUCapacity,
		AvailableICUBeds:       cmd.AvailableICUBeds,
		IsPhilHealthAccredited: cmd.IsPhilHealthAccredited,
		IsDOHLicensed:          cmd.IsDOHLicensed,
		HasCardiologyUnit:      cmd.HasCardiologyUnit,
		HasEmergencyRoom:       cmd.HasEmergencyRoom,
		IsActive:               true,
	}
	if f.Services == nil {
		f.Services = []string{}
	}
	if err := validateFacility(f); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, f); err != nil {
		if errors.Is(err, facility.ErrDuplicateCode) {
			return nil, err
		}
		return nil, fmt.Errorf("creating facility: %w", err)
	}

	s.invalidate(ctx, f.ID)
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionCreate, ResourceType: "facility", ResourceID: f.ID})
	s.log.Info("facility created", zap.String("facility_id", f.ID.String()), zap.String("code", f.Code))
	return f, nil
}

func (s *FacilityService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd *facility.UpdateFacilityCommand) (*facility.Facility, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.Apply(cmd)
	if err := validateFacility(f); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, fmt.Errorf("updating facility: %w", err)
	}

	s.invalidate(ctx, id)
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionUpdate, ResourceType: "facility", ResourceID: id})
	return f, nil
}

func (s *FacilityService) Deactivate(ctx context.Context, actor domain.Actor, id uuid.UUID) (*facility.Facility, error) {
	inactive := false
	f, err := s.Update(ctx, actor, id, &facility.UpdateFacilityCommand{IsActive: &inactive})
	if err != nil {
		return nil, err
	}
	s.log.Info("facility deactivated", zap.String("facility_id", id.String()))
	return f, nil
}

func (s *FacilityService) Nearby(ctx context.Context, id uuid.UUID, radiusKm float64, limit int) ([]*facility.Nearby, error) {
	if radiusKm <= 0 {
		radiusKm = defaultNearbyRadiusKm
	}
	if radiusKm > maxNearbyRadiusKm {
		return nil, fieldError("radius_km", fmt.Sprintf("must not exceed %.0f", maxNearbyRadiusKm))
	}
	if limit <= 0 {
		limit = defaultNearbyLimit
	}
	if limit > maxNearbyLimit {
		limit = maxNearbyLimit
	}

	origin, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.Nearby(ctx, origin, radiusKm, limit)
}

func (s *FacilityService) Capacity(ctx context.Context, id uuid.UUID) (*facility.Capacity, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c := f.Capacity()
	return &c, nil
}
