package facility

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *Facility) error
	GetByID(ctx context.Context, id uuid.UUID) (*Facility, error)
	Save(ctx context.Context, f *Facility) error
	List(ctx context.Context, q *ListFacilitiesQuery) (*PagedFacilities, error)

	// Nearby returns active facilities within radiusKm of origin, nearest
	// first, excluding origin itself.
	Nearby(ctx context.Context, origin *Facility, radiusKm float64, limit int) ([]*Nearby, error)

	ChangedSince(ctx context.Context, since time.Time, limit int) ([]*Facility, error)
}
