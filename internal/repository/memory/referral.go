package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
	"gorm.io/gorm"
)

type ReferralRepository struct{ s *Store }

var _ referral.Repository = (*ReferralRepository)(nil)

func cloneReferral(r *referral.Referral) *referral.Referral {
	cp := *r
	return &cp
}

func (r *ReferralRepository) appendHistory(h *referral.History) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	h.CreatedAt = r.s.now()
	cp := *h
	r.s.histories = append(r.s.histories, &cp)
}

func (r *ReferralRepository) Create(_ context.Context, ref *referral.Referral, h *referral.History) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	now := r.s.now()
	ref.CreatedAt, ref.UpdatedAt = now, now
	r.s.referrals[ref.ID] = cloneReferral(ref)

	h.ReferralID = ref.ID
	r.appendHistory(h)
	return nil
}

func (r *ReferralRepository) get(id uuid.UUID) (*referral.Referral, bool) {
	ref, ok := r.s.referrals[id]
	if !ok || ref.DeletedAt.Valid {
		return nil, false
	}
	return ref, true
}

func (r *ReferralRepository) GetByID(_ context.Context, id uuid.UUID) (*referral.Referral, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ref, ok := r.get(id)
	if !ok {
		return nil, referral.ErrReferralNotFound
	}
	return cloneReferral(ref), nil
}

func (r *ReferralRepository) SaveTransition(_ context.Context, ref *referral.Referral, expected referral.Status, h *referral.History) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.get(ref.ID)
	if !ok {
		return referral.ErrReferralNotFound
	}
	if stored.Status != expected {
		return referral.ErrConcurrentUpdate
	}
	ref.CreatedAt = stored.CreatedAt
	ref.UpdatedAt = r.s.now()
	r.s.referrals[ref.ID] = cloneReferral(ref)
	r.appendHistory(h)
	return nil
}

func (r *ReferralRepository) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ref, ok := r.get(id)
	if !ok {
		return referral.ErrReferralNotFound
	}
	ref.DeletedAt = gorm.DeletedAt{Time: r.s.now(), Valid: true}
	return nil
}

func eqPtr[T comparable](filter *T, v T) bool {
	return filter == nil || *filter == v
}

func eqOptPtr[T comparable](filter *T, v *T) bool {
	return filter == nil || (v != nil && *v == *filter)
}

func (r *ReferralRepository) matching(match func(*referral.Referral) bool) []*referral.Referral {
	var out []*referral.Referral
	for _, ref := range r.s.referrals {
		if !ref.DeletedAt.Valid && match(ref) {
			out = append(out, cloneReferral(ref))
		}
	}
	return out
}

var priorityOrder = map[referral.Priority]int{
	referral.PriorityCritical: 0,
	referral.PriorityHigh:     1,
	referral.PriorityMedium:   2,
	referral.PriorityLow:      3,
}

func (r *ReferralRepository) List(_ context.Context, q *referral.ListReferralsQuery) (*referral.PagedReferrals, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := r.matching(func(ref *referral.Referral) bool {
		return eqPtr(q.Status, ref.Status) &&
			eqPtr(q.Priority, ref.Priority) &&
			eqPtr(q.Urgency, ref.Urgency) &&
			eqPtr(q.TargetFacilityID, ref.TargetFacilityID) &&
			eqOptPtr(q.SourceFacilityID, ref.SourceFacilityID) &&
			eqPtr(q.AssessmentID, ref.AssessmentID) &&
			inRange(ref.CreatedAt, q.DateFrom, q.DateTo)
	})
	slices.SortFunc(items, func(a, b *referral.Referral) int {
		if d := priorityOrder[a.Priority] - priorityOrder[b.Priority]; d != 0 {
			return d
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	total := int64(len(items))
	pageItems, page, size := paginate(items, q.Page, q.PageSize)
	return &referral.PagedReferrals{Referrals: pageItems, TotalCount: total, Page: page, PageSize: size}, nil
}

func (r *ReferralRepository) History(_ context.Context, referralID uuid.UUID) ([]*referral.History, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*referral.History
	for _, h := range r.s.histories {
		if h.ReferralID == referralID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *ReferralRepository) Statistics(_ context.Context, q *referral.StatisticsQuery) (*referral.Statistics, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := r.matching(func(ref *referral.Referral) bool {
		return eqPtr(q.TargetFacilityID, ref.TargetFacilityID) &&
			eqOptPtr(q.SourceFacilityID, ref.SourceFacilityID) &&
			inRange(ref.CreatedAt, q.DateFrom, q.DateTo)
	})

	stats := &referral.Statistics{
		ByStatus:   map[referral.Status]int64{},
		ByPriority: map[referral.Priority]int64{},
	}
	var acceptMinutes float64
	var accepted int
	for _, ref := range items {
		stats.Total++
		stats.ByStatus[ref.Status]++
		stats.ByPriority[ref.Priority]++
		if ref.AcceptedAt != nil {
			acceptMinutes += ref.AcceptedAt.Sub(ref.CreatedAt).Minutes()
			accepted++
		}
	}
	stats.Pending = stats.ByStatus[referral.StatusPending]
	if accepted > 0 {
		stats.AvgAcceptanceMinutes = acceptMinutes / float64(accepted)
	}
	return stats, nil
}
