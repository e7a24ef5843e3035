package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

const maxUploadBatch = 100

// SyncPage is one incremental pull. Clients pass NextSince back as since to
// continue from where this page ended.
type SyncPage[T any] struct {
	Items     []T        `json:"items"`
	NextSince *time.Time `json:"next_since"`
	HasMore   bool       `json:"has_more"`
}

type UploadStatus string

const (
	UploadCreated   UploadStatus = "created"
	UploadDuplicate UploadStatus = "duplicate"
	UploadInvalid   UploadStatus = "invalid"
)

type UploadResult struct {
	Index          int                 `json:"index"`
	MobileClientID string              `json:"mobile_client_id,omitempty"`
	Status         UploadStatus        `json:"status"`
	ID             *uuid.UUID          `json:"id,omitempty"`
	Errors         map[string][]string `json:"errors,omitempty"`
}

type SyncService struct {
	assessmentRepo  assessment.Repository
	facilityRepo    facility.Repository
	appointmentRepo appointment.Repository
	assessments     *AssessmentService
	defaultLimit    int
	maxLimit        int
	metrics         *metrics.Collector
	log             *zap.Logger
}

func NewSyncService(
	assessmentRepo assessment.Repository,
	facilityRepo facility.Repository,
	appointmentRepo appointment.Repository,
	assessments *AssessmentService,
	defaultLimit, maxLimit int,
	m *metrics.Collector,
	log *zap.Logger,
) *SyncService {
	return &SyncService{
		assessmentRepo:  assessmentRepo,
		facilityRepo:    facilityRepo,
		appointmentRepo: appointmentRepo,
		assessments:     assessments,
		defaultLimit:    defaultLimit,
		maxLimit:        maxLimit,
		metrics:         m,
		log:             log,
	}
}

func (s *SyncService) clamp(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// pull reads one row past limit to learn whether another page exists.
func pull[E any, T any](
	ctx context.Context,
	s *SyncService,
	resource string,
	since time.Time,
	limit int,
	load func(ctx context.Context, since time.Time, limit int) ([]E, error),
	project func(E) (T, time.Time),
) (*SyncPage[T], error) {
	limit = s.clamp(limit)
	rows, err := load(ctx, since, limit+1)
	if err != nil {
		return nil, fmt.Errorf("loading %s changes: %w", resource, err)
	}

	page := &SyncPage[T]{Items: make([]T, 0, min(len(rows), limit))}
	if len(rows) > limit {
		page.HasMore = true
		rows = rows[:limit]
	}
	for _, row := range rows {
		item, updated := project(row)
		page.Items = append(page.Items, item)
		page.NextSince = &updated
	}

	s.metrics.MobileSyncRecords.WithLabelValues(resource, "pull").Add(float64(len(page.Items)))
	return page, nil
}

func (s *SyncService) Assessments(ctx context.Context, since time.Time, limit int) (*SyncPage[assessment.SyncRecord], error) {
	return pull(ctx, s, "assessments", since, limit, s.assessmentRepo.ChangedSince,
		func(a *assessment.Assessment) (assessment.SyncRecord, time.Time) { return a.ToSyncRecord(), a.UpdatedAt })
}

func (s *SyncService) Facilities(ctx context.Context, since time.Time, limit int) (*SyncPage[facility.SyncRecord], error) {
	return pull(ctx, s, "facilities", since, limit, s.facilityRepo.ChangedSince,
		func(f *facility.Facility) (facility.SyncRecord, time.Time) { return f.ToSyncRecord(), f.UpdatedAt })
}

func (s *SyncService) Appointments(ctx context.Context, since time.Time, limit int) (*SyncPage[appointment.SyncRecord], error) {
	return pull(ctx, s, "appointments", since, limit, s.appointmentRepo.ChangedSince,
		func(a *appointment.Appointment) (appointment.SyncRecord, time.Time) { return a.ToSyncRecord(), a.UpdatedAt })
}

// Upload stores assessments recorded offline. Each item is keyed by its
// mobile_client_id, so resending a batch never creates a second copy.
func (s *SyncService) Upload(ctx context.Context, actor domain.Actor, items []*assessment.CreateAssessmentCommand) ([]UploadResult, error) {
	if len(items) == 0 {
		return nil, fieldError("assessments", "must contain at least one item")
	}
	if len(items) > maxUploadBatch {
		return nil, fieldError("assessments", fmt.Sprintf("must not contain more than %d items", maxUploadBatch))
	}

	results := make([]UploadResult, len(items))
	for i, cmd := range items {
		res := UploadResult{Index: i}
		if cmd.MobileClientID != nil {
			res.MobileClientID = *cmd.MobileClientID
		}

		if res.MobileClientID == "" {
			res.Status = UploadInvalid
			res.Errors = map[string][]string{"mobile_client_id": {"is required"}}
			results[i] = res
			continue
		}

		if existing, err := s.assessmentRepo.GetByMobileClientID(ctx, res.MobileClientID); err == nil {
			res.Status = UploadDuplicate
			res.ID = &existing.ID
			results[i] = res
			continue
		} else if !errors.Is(err, assessment.ErrAssessmentNotFound) {
			return nil, fmt.Errorf("looking up mobile client id: %w", err)
		}

		cmd.Source = assessment.SourceMobile
		if cmd.CreatedBy == nil {
			cmd.CreatedBy = &actor.UserID
		}
		a, err := s.assessments.Create(ctx, actor, cmd)
		var verr *ValidationError
		switch {
		case err == nil:
			res.Status = UploadCreated
			res.ID = &a.ID
		case errors.As(err, &verr):
			res.Status = UploadInvalid
			res.Errors = verr.Fields
		case errors.Is(err, assessment.ErrDuplicateClientID):
			res.Status = UploadDuplicate
			if existing, lookupErr := s.assessmentRepo.GetByMobileClientID(ctx, res.MobileClientID); lookupErr == nil {
				res.ID = &existing.ID
			}
		default:
			return nil, err
		}
		results[i] = res
	}

	s.metrics.MobileSyncRecords.WithLabelValues("assessments", "push").Add(float64(len(items)))
	s.log.Info("mobile batch uploaded", zap.String("user_id", actor.UserID.String()), zap.Int("items", len(items)))
	return results, nil
}
