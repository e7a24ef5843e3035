package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
	"gorm.io/gorm"
)

type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

var _ referral.Repository = (*ReferralRepository)(nil)

func (r *ReferralRepository) Create(ctx context.Context, ref *referral.Referral, h *referral.History) error {
	return getDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ref).Error; err != nil {
			return fmt.Errorf("inserting referral: %w", err)
		}
		h.ReferralID = ref.ID
		if err := tx.Create(h).Error; err != nil {
			return fmt.Errorf("inserting referral history: %w", err)
		}
		return nil
	})
}

func (r *ReferralRepository) GetByID(ctx context.Context, id uuid.UUID) (*referral.Referral, error) {
	var ref referral.Referral
	if err := getDB(ctx, r.db).First(&ref, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, referral.ErrReferralNotFound
		}
		return nil, fmt.Errorf("loading referral %s: %w", id, err)
	}
	return &ref, nil
}

// SaveTransition guards the update with the status the caller loaded. If a
// concurrent request already moved the row, no rows match and the history
// insert is rolled back with it.
func (r *ReferralRepository) SaveTransition(ctx context.Context, ref *referral.Referral, expected referral.Status, h *referral.History) error {
	return getDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(ref).
			Where("status = ?", expected).
			Select("*").
			Omit("id", "created_at", "deleted_at").
			Updates(ref)
		if res.Error != nil {
			return fmt.Errorf("updating referral %s: %w", ref.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return referral.ErrConcurrentUpdate
		}
		if err := tx.Create(h).Error; err != nil {
			return fmt.Errorf("inserting referral history: %w", err)
		}
		return nil
	})
}

func (r *ReferralRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := getDB(ctx, r.db).Delete(&referral.Referral{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting referral %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return referral.ErrReferralNotFound
	}
	return nil
}

func (r *ReferralRepository) List(ctx context.Context, q *referral.ListReferralsQuery) (*referral.PagedReferrals, error) {
	query := getDB(ctx, r.db).Model(&referral.Referral{})

	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.Priority != nil {
		query = query.Where("priority = ?", *q.Priority)
	}
	if q.Urgency != nil {
		query = query.Where("urgency = ?", *q.Urgency)
	}
	if q.TargetFacilityID != nil {
		query = query.Where("target_facility_id = ?", *q.TargetFacilityID)
	}
	if q.SourceFacilityID != nil {
		query = query.Where("source_facility_id = ?", *q.SourceFacilityID)
	}
	if q.AssessmentID != nil {
		query = query.Where("assessment_id = ?", *q.AssessmentID)
	}
	if q.DateFrom != nil {
		query = query.Where("created_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		query = query.Where("created_at <= ?", *q.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting referrals: %w", err)
	}

	scope, page, size := paginate(q.Page, q.PageSize)
	items := make([]*referral.Referral, 0, size)
	if total > 0 {
		// Most urgent work first, then oldest.
		order := "CASE priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, created_at ASC"
		if err := query.Scopes(scope).Order(order).Find(&items).Error; err != nil {
			return nil, fmt.Errorf("listing referrals: %w", err)
		}
	}

	return &referral.PagedReferrals{Referrals: items, TotalCount: total, Page: page, PageSize: size}, nil
}

func (r *ReferralRepository) History(ctx context.Context, referralID uuid.UUID) ([]*referral.History, error) {
	var rows []*referral.History
	err := getDB(ctx, r.db).
		Where("referral_id = ?", referralID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading history for referral %s: %w", referralID, err)
	}
	return rows, nil
}

func (r *ReferralRepository) Statistics(ctx context.Context, q *referral.StatisticsQuery) (*referral.Statistics, error) {
	base := func() *gorm.DB {
		db := getDB(ctx, r.db).Model(&referral.Referral{})
		if q.TargetFacilityID != nil {
			db = db.Where("target_facility_id = ?", *q.TargetFacilityID)
		}
		if q.SourceFacilityID != nil {
			db = db.Where("source_facility_id = ?", *q.SourceFacilityID)
		}
		if q.DateFrom != nil {
			db = db.Where("created_at >= ?", *q.DateFrom)
		}
		if q.DateTo != nil {
			db = db.Where("created_at <= ?", *q.DateTo)
		}
		return db
	}

	stats := &referral.Statistics{
		ByStatus:   map[referral.Status]int64{},
		ByPriority: map[referral.Priority]int64{},
	}

	var byStatus []struct {
		Status referral.Status
		Count  int64
	}
	if err := base().Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("referral counts by status: %w", err)
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}
	stats.Pending = stats.ByStatus[referral.StatusPending]

	var byPriority []struct {
		Priority referral.Priority
		Count    int64
	}
	if err := base().Select("priority, COUNT(*) AS count").Group("priority").Scan(&byPriority).Error; err != nil {
		return nil, fmt.Errorf("referral counts by priority: %w", err)
	}
	for _, row := range byPriority {
		stats.ByPriority[row.Priority] = row.Count
	}

	var avg float64
	err := base().
		Where("accepted_at IS NOT NULL").
		Select("COALESCE(AVG(EXTRACT(EPOCH FROM (accepted_at - created_at)) / 60), 0)").
		Scan(&avg).Error
	if err != nil {
		return nil, fmt.Errorf("referral acceptance time: %w", err)
	}
	stats.AvgAcceptanceMinutes = avg

	return stats, nil
}
