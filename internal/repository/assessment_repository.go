package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"gorm.io/gorm"
)

type AssessmentRepository struct {
	db *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

var _ assessment.Repository = (*AssessmentRepository)(nil)

func (r *AssessmentRepository) Create(ctx context.Context, a *assessment.Assessment) error {
	if err := getDB(ctx, r.db).Create(a).Error; err != nil {
		if isDuplicate(err) {
			return assessment.ErrDuplicateClientID
		}
		return fmt.Errorf("inserting assessment: %w", err)
	}
	return nil
}

func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*assessment.Assessment, error) {
	var a assessment.Assessment
	if err := getDB(ctx, r.db).First(&a, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, assessment.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("loading assessment %s: %w", id, err)
	}
	return &a, nil
}

func (r *AssessmentRepository) GetByMobileClientID(ctx context.Context, clientID string) (*assessment.Assessment, error) {
	var a assessment.Assessment
	if err := getDB(ctx, r.db).Where("mobile_client_id = ?", clientID).First(&a).Error; err != nil {
		if isNotFound(err) {
			return nil, assessment.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("loading assessment by client id: %w", err)
	}
	return &a, nil
}

func (r *AssessmentRepository) Save(ctx context.Context, a *assessment.Assessment) error {
	res := getDB(ctx, r.db).Model(a).Select("*").Omit("id", "created_at", "deleted_at").Updates(a)
	if res.Error != nil {
		return fmt.Errorf("saving assessment %s: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return assessment.ErrAssessmentNotFound
	}
	return nil
}

func (r *AssessmentRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := getDB(ctx, r.db).Delete(&assessment.Assessment{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting assessment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return assessment.ErrAssessmentNotFound
	}
	return nil
}

func (r *AssessmentRepository) List(ctx context.Context, q *assessment.ListAssessmentsQuery) (*assessment.PagedAssessments, error) {
	query := getDB(ctx, r.db).Model(&assessment.Assessment{})

	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.RiskLevel != nil {
		query = query.Where("final_risk_level = ?", *q.RiskLevel)
	}
	if q.FacilityID != nil {
		query = query.Where("facility_id = ?", *q.FacilityID)
	}
	if q.Search != "" {
		like := "%" + q.Search + "%"
		query = query.Where("(patient_first_name || ' ' || patient_last_name) ILIKE ?", like)
	}
	if q.DateFrom != nil {
		query = query.Where("created_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		query = query.Where("created_at <= ?", *q.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting assessments: %w", err)
	}

	scope, page, size := paginate(q.Page, q.PageSize)
	items := make([]*assessment.Assessment, 0, size)
	if total > 0 {
		if err := query.Scopes(scope).Order("created_at DESC, id").Find(&items).Error; err != nil {
			return nil, fmt.Errorf("listing assessments: %w", err)
		}
	}

	return &assessment.PagedAssessments{Assessments: items, TotalCount: total, Page: page, PageSize: size}, nil
}

func (r *AssessmentRepository) Statistics(ctx context.Context, q *assessment.StatisticsQuery) (*assessment.Statistics, error) {
	base := func() *gorm.DB {
		db := getDB(ctx, r.db).Model(&assessment.Assessment{})
		if q.FacilityID != nil {
			db = db.Where("facility_id = ?", *q.FacilityID)
		}
		if q.DateFrom != nil {
			db = db.Where("created_at >= ?", *q.DateFrom)
		}
		if q.DateTo != nil {
			db = db.Where("created_at <= ?", *q.DateTo)
		}
		return db
	}

	stats := &assessment.Statistics{
		ByStatus:    map[assessment.Status]int64{},
		ByRiskLevel: map[assessment.RiskLevel]int64{},
	}

	var byStatus []struct {
		Status assessment.Status
		Count  int64
	}
	if err := base().Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("assessment counts by status: %w", err)
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}

	var byLevel []struct {
		FinalRiskLevel assessment.RiskLevel
		Count          int64
	}
	if err := base().Select("final_risk_level, COUNT(*) AS count").Group("final_risk_level").Scan(&byLevel).Error; err != nil {
		return nil, fmt.Errorf("assessment counts by risk level: %w", err)
	}
	for _, row := range byLevel {
		stats.ByRiskLevel[row.FinalRiskLevel] = row.Count
	}

	var agg struct {
		Validated            int64
		Agrees               int64
		AverageMLScore       float64
		AverageClinicalScore float64
	}
	err := base().Select(`
		COUNT(validated_at) AS validated,
		COUNT(*) FILTER (WHERE agrees_with_ml) AS agrees,
		COALESCE(AVG(ml_risk_score), 0) AS average_ml_score,
		COALESCE(AVG(validated_risk_score), 0) AS average_clinical_score`).Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("assessment aggregates: %w", err)
	}

	stats.Validated = agg.Validated
	stats.AgreesWithML = agg.Agrees
	stats.AverageMLScore = agg.AverageMLScore
	stats.AverageClinicalScore = agg.AverageClinicalScore
	if agg.Validated > 0 {
		stats.MLAgreementRate = float64(agg.Agrees) / float64(agg.Validated)
	}
	return stats, nil
}

func (r *AssessmentRepository) ChangedSince(ctx context.Context, since time.Time, limit int) ([]*assessment.Assessment, error) {
	var items []*assessment.Assessment
	err := getDB(ctx, r.db).
		Where("updated_at > ?", since).
		Order("updated_at ASC, id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("assessments changed since %s: %w", since, err)
	}
	return items, nil
}
