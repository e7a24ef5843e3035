package referral

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists the referral and its "created" history row together.
	Create(ctx context.Context, r *Referral, h *History) error

	GetByID(ctx context.Context, id uuid.UUID) (*Referral, error)

	// SaveTransition writes r and appends h atomically. The write only applies
	// while the stored status still equals expected; otherwise it returns
	// ErrConcurrentUpdate.
	SaveTransition(ctx context.Context, r *Referral, expected Status, h *History) error

	SoftDelete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, q *ListReferralsQuery) (*PagedReferrals, error)

	History(ctx context.Context, referralID uuid.UUID) ([]*History, error)

	Statistics(ctx context.Context, q *StatisticsQuery) (*Statistics, error)
}
