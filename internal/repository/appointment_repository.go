package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
	"gorm.io/gorm"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

var _ appointment.Repository = (*AppointmentRepository)(nil)

func (r *AppointmentRepository) live(ctx context.Context) *gorm.DB {
	return getDB(ctx, r.db).Model(&appointment.Appointment{}).Where("deleted_at IS NULL")
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := getDB(ctx, r.db).Create(a).Error; err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	if err := r.live(ctx).First(&a, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("loading appointment %s: %w", id, err)
	}
	return &a, nil
}

func (r *AppointmentRepository) Save(ctx context.Context, a *appointment.Appointment) error {
	res := getDB(ctx, r.db).Model(a).Select("*").Omit("id", "created_at", "created_by").Updates(a)
	if res.Error != nil {
		return fmt.Errorf("saving appointment %s: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	query := r.live(ctx)

	if q.FacilityID != nil {
		query = query.Where("facility_id = ?", *q.FacilityID)
	}
	if q.DoctorID != nil {
		query = query.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.ReferralID != nil {
		query = query.Where("referral_id = ?", *q.ReferralID)
	}
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.DateFrom != nil {
		query = query.Where("scheduled_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		query = query.Where("scheduled_at <= ?", *q.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting appointments: %w", err)
	}

	scope, page, size := paginate(q.Page, q.PageSize)
	items := make([]*appointment.Appointment, 0, size)
	if total > 0 {
		if err := query.Scopes(scope).Order("scheduled_at ASC, id").Find(&items).Error; err != nil {
			return nil, fmt.Errorf("listing appointments: %w", err)
		}
	}

	return &appointment.PagedAppointments{Appointments: items, TotalCount: total, Page: page, PageSize: size}, nil
}

// HasConflict looks for an active appointment of the doctor whose interval
// overlaps [start, end).
func (r *AppointmentRepository) HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := r.live(ctx).
		Where("doctor_id = ?", doctorID).
		Where("status NOT IN ?", []appointment.AppointmentStatus{
			appointment.StatusCancelled, appointment.StatusNoShow, appointment.StatusCompleted,
		}).
		Where("scheduled_at < ?", end).
		Where("scheduled_at + (duration_mins * INTERVAL '1 minute') > ?", start)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking appointment conflicts: %w", err)
	}
	return count > 0, nil
}

func (r *AppointmentRepository) CountByStatus(ctx context.Context, facilityID uuid.UUID) (map[appointment.AppointmentStatus]int64, error) {
	var rows []struct {
		Status appointment.AppointmentStatus
		Count  int64
	}
	err := r.live(ctx).
		Where("facility_id = ?", facilityID).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("appointment counts for facility %s: %w", facilityID, err)
	}
	out := make(map[appointment.AppointmentStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *AppointmentRepository) ChangedSince(ctx context.Context, since time.Time, limit int) ([]*appointment.Appointment, error) {
	var items []*appointment.Appointment
	err := r.live(ctx).
		Where("updated_at > ?", since).
		Order("updated_at ASC, id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("appointments changed since %s: %w", since, err)
	}
	return items, nil
}
