// Package memory holds map-backed repositories. They back the test suites
// and `serve --in-memory`; nothing is persisted across restarts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/education"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/notification"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
)

// Store is shared by every repository view so a single lock orders all writes.
type Store struct {
	mu   sync.RWMutex
	last time.Time

	assessments   map[uuid.UUID]*assessment.Assessment
	referrals     map[uuid.UUID]*referral.Referral
	histories     []*referral.History
	facilities    map[uuid.UUID]*facility.Facility
	appointments  map[uuid.UUID]*appointment.Appointment
	contents      map[uuid.UUID]*education.Content
	users         map[uuid.UUID]*domain.User
	audits        []*domain.AuditLog
	notifications []*notification.Log
}

func NewStore() *Store {
	return &Store{
		assessments:  map[uuid.UUID]*assessment.Assessment{},
		referrals:    map[uuid.UUID]*referral.Referral{},
		facilities:   map[uuid.UUID]*facility.Facility{},
		appointments: map[uuid.UUID]*appointment.Appointment{},
		contents:     map[uuid.UUID]*education.Content{},
		users:        map[uuid.UUID]*domain.User{},
	}
}

// now returns a strictly increasing timestamp so updated_at ordering is total
// even when two writes land within the clock's resolution. Callers hold mu.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *Store) Assessments() *AssessmentRepository { return &AssessmentRepository{s} }
func (s *Store) Referrals() *ReferralRepository { return &ReferralRepository{s} }
func (s *Store) Facilities() *FacilityRepository { return &FacilityRepository{s} }
func (s *Store) Appointments() *AppointmentRepository { return &AppointmentRepository{s} }
func (s *Store) Education() *EducationRepository { return &EducationRepository{s} }
func (s *Store) Users() *UserRepository { return &UserRepository{s} }
func (s *Store) Audit() *AuditRepository { return &AuditRepository{s} }
func (s *Store) Notifications() *NotificationLogRepository { return &NotificationLogRepository{s} }

// TxManager runs fn directly. The in-memory store has no rollback; each
// repository call is atomic on its own.
type TxManager struct{}

func (TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func paginate[T any](items []T, page, pageSize int) ([]T, int, int) {
	page, pageSize = domain.NormalizePaging(page, pageSize)
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}, page, pageSize
	}
	end := min(start+pageSize, len(items))
	return items[start:end], page, pageSize
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}
