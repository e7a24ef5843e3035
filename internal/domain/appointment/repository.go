package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)

	// Save persists status, schedule and timestamp changes of a loaded appointment.
	Save(ctx context.Context, a *Appointment) error

	// HasConflict checks whether a doctor already has an appointment that overlaps.
	HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)

	CountByStatus(ctx context.Context, facilityID uuid.UUID) (map[AppointmentStatus]int64, error)

	ChangedSince(ctx context.Context, since time.Time, limit int) ([]*Appointment, error)
}
