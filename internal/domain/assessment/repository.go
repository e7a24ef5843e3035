package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new assessment. Returns ErrDuplicateClientID when the
	// mobile client id is already taken.
	Create(ctx context.Context, a *Assessment) error

	// GetByID returns ErrAssessmentNotFound if no live row matches.
	GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error)

	GetByMobileClientID(ctx context.Context, clientID string) (*Assessment, error)

	// Save writes every column of an already loaded assessment.
	Save(ctx context.Context, a *Assessment) error

	SoftDelete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, q *ListAssessmentsQuery) (*PagedAssessments, error)

	Statistics(ctx context.Context, q *StatisticsQuery) (*Statistics, error)

	// ChangedSince returns rows with updated_at strictly after since, oldest first.
	ChangedSince(ctx context.Context, since time.Time, limit int) ([]*Assessment, error)
}
