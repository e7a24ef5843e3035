package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"gorm.io/gorm"
)

type AssessmentRepository struct{ s *Store }

var _ assessment.Repository = (*AssessmentRepository)(nil)

func cloneAssessment(a *assessment.Assessment) *assessment.Assessment {
	cp := *a
	return &cp
}

func (r *AssessmentRepository) Create(_ context.Context, a *assessment.Assessment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if a.MobileClientID != nil {
		for _, existing := range r.s.assessments {
			if existing.MobileClientID != nil && *existing.MobileClientID == *a.MobileClientID {
				return assessment.ErrDuplicateClientID
			}
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := r.s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.assessments[a.ID] = cloneAssessment(a)
	return nil
}

func (r *AssessmentRepository) get(id uuid.UUID) (*assessment.Assessment, bool) {
	a, ok := r.s.assessments[id]
	if !ok || a.DeletedAt.Valid {
		return nil, false
	}
	return a, true
}

func (r *AssessmentRepository) GetByID(_ context.Context, id uuid.UUID) (*assessment.Assessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.get(id)
	if !ok {
		return nil, assessment.ErrAssessmentNotFound
	}
	return cloneAssessment(a), nil
}

func (r *AssessmentRepository) GetByMobileClientID(_ context.Context, clientID string) (*assessment.Assessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.assessments {
		if a.MobileClientID != nil && *a.MobileClientID == clientID && !a.DeletedAt.Valid {
			return cloneAssessment(a), nil
		}
	}
	return nil, assessment.ErrAssessmentNotFound
}

func (r *AssessmentRepository) Save(_ context.Context, a *assessment.Assessment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.get(a.ID)
	if !ok {
		return assessment.ErrAssessmentNotFound
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = r.s.now()
	r.s.assessments[a.ID] = cloneAssessment(a)
	return nil
}

func (r *AssessmentRepository) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.get(id)
	if !ok {
		return assessment.ErrAssessmentNotFound
	}
	a.DeletedAt = gorm.DeletedAt{Time: r.s.now(), Valid: true}
	return nil
}

func (r *AssessmentRepository) matching(match func(*assessment.Assessment) bool) []*assessment.Assessment {
	var out []*assessment.Assessment
	for _, a := range r.s.assessments {
		if !a.DeletedAt.Valid && match(a) {
			out = append(out, cloneAssessment(a))
		}
	}
	return out
}

func (r *AssessmentRepository) List(_ context.Context, q *assessment.ListAssessmentsQuery) (*assessment.PagedAssessments, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	items := r.matching(func(a *assessment.Assessment) bool {
		switch {
		case q.Status != nil && a.Status != *q.Status:
			return false
		case q.RiskLevel != nil && a.FinalRiskLevel != *q.RiskLevel:
			return false
		case q.FacilityID != nil && (a.FacilityID == nil || *a.FacilityID != *q.FacilityID):
			return false
		case search != "" && !strings.Contains(strings.ToLower(a.PatientName()), search):
			return false
		}
		return inRange(a.CreatedAt, q.DateFrom, q.DateTo)
	})
	slices.SortFunc(items, func(a, b *assessment.Assessment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := int64(len(items))
	pageItems, page, size := paginate(items, q.Page, q.PageSize)
	return &assessment.PagedAssessments{Assessments: pageItems, TotalCount: total, Page: page, PageSize: size}, nil
}

func (r *AssessmentRepository) Statistics(_ context.Context, q *assessment.StatisticsQuery) (*assessment.Statistics, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := r.matching(func(a *assessment.Assessment) bool {
		if q.FacilityID != nil && (a.FacilityID == nil || *a.FacilityID != *q.FacilityID) {
			return false
		}
		return inRange(a.CreatedAt, q.DateFrom, q.DateTo)
	})

	stats := &assessment.Statistics{
		ByStatus:    map[assessment.Status]int64{},
		ByRiskLevel: map[assessment.RiskLevel]int64{},
	}
	var mlSum, clinicalSum float64
	for _, a := range items {
		stats.Total++
		stats.ByStatus[a.Status]++
		stats.ByRiskLevel[a.FinalRiskLevel]++
		mlSum += a.MLRiskScore
		if a.IsValidated() {
			stats.Validated++
		}
		if a.ValidatedRiskScore != nil {
			clinicalSum += *a.ValidatedRiskScore
		}
		if a.AgreesWithML != nil && *a.AgreesWithML {
			stats.AgreesWithML++
		}
	}
	if stats.Total > 0 {
		stats.AverageMLScore = mlSum / float64(stats.Total)
	}
	if stats.Validated > 0 {
		stats.AverageClinicalScore = clinicalSum / float64(stats.Validated)
		stats.MLAgreementRate = float64(stats.AgreesWithML) / float64(stats.Validated)
	}
	return stats, nil
}

func (r *AssessmentRepository) ChangedSince(_ context.Context, since time.Time, limit int) ([]*assessment.Assessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	items := r.matching(func(a *assessment.Assessment) bool { return a.UpdatedAt.After(since) })
	return changedOrder(items, limit, func(a *assessment.Assessment) (time.Time, uuid.UUID) { return a.UpdatedAt, a.ID }), nil
}

// changedOrder sorts by (updated_at, id) ascending and truncates to limit.
func changedOrder[T any](items []T, limit int, key func(T) (time.Time, uuid.UUID)) []T {
	slices.SortFunc(items, func(a, b T) int {
		ta, ia := key(a)
		tb, ib := key(b)
		if c := ta.Compare(tb); c != 0 {
			return c
		}
		return strings.Compare(ia.String(), ib.String())
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
