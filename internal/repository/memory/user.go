package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/notification"
)

type UserRepository struct{ s *Store }

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	return &cp
}

func (r *UserRepository) get(id uuid.UUID) (*domain.User, bool) {
	u, ok := r.s.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, false
	}
	return u, true
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := r.s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if u.Email == email && u.DeletedAt == nil {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.get(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) mutate(id uuid.UUID, fn func(*domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.get(id)
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *UserRepository) SaveLoginState(_ context.Context, in *domain.User) error {
	return r.mutate(in.ID, func(u *domain.User) {
		u.FailedLoginCount = in.FailedLoginCount
		u.LockedUntil = in.LockedUntil
		u.LastLoginAt = in.LastLoginAt
	})
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return r.mutate(id, func(u *domain.User) {
		u.PasswordHash = hash
		u.PasswordChangedAt = time.Now()
	})
}

func (r *UserRepository) UpdateMFA(_ context.Context, id uuid.UUID, secret string, enabled bool) error {
	return r.mutate(id, func(u *domain.User) {
		u.MFASecret = secret
		u.MFAEnabled = enabled
	})
}

func (r *UserRepository) UpdateNotificationPreferences(_ context.Context, id uuid.UUID, prefs domain.NotificationPreferences) error {
	return r.mutate(id, func(u *domain.User) { u.NotificationPreferences = prefs })
}

func (r *UserRepository) ListByFacility(_ context.Context, facilityID uuid.UUID) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.User
	for _, u := range r.s.users {
		if u.DeletedAt == nil && u.IsActive && u.FacilityID != nil && *u.FacilityID == facilityID {
			out = append(out, cloneUser(u))
		}
	}
	slices.SortFunc(out, func(a, b *domain.User) int { return strings.Compare(a.Email, b.Email) })
	return out, nil
}

type AuditRepository struct{ s *Store }

func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.OccurredAt = r.s.now()
	cp := *entry
	r.s.audits = append(r.s.audits, &cp)
	return nil
}

// Entries returns a snapshot of every audit row written so far.
func (r *AuditRepository) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.AuditLog, len(r.s.audits))
	for i, e := range r.s.audits {
		out[i] = *e
	}
	return out
}

type NotificationLogRepository struct{ s *Store }

var _ notification.Repository = (*NotificationLogRepository)(nil)

func (r *NotificationLogRepository) Create(_ context.Context, l *notification.Log) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = r.s.now()
	cp := *l
	r.s.notifications = append(r.s.notifications, &cp)
	return nil
}

func (r *NotificationLogRepository) ListByRecipient(_ context.Context, recipient string, limit int) ([]*notification.Log, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*notification.Log
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		if l := r.s.notifications[i]; l.Recipient == recipient {
			cp := *l
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// All returns every notification log row, oldest first.
func (r *NotificationLogRepository) All() []notification.Log {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]notification.Log, len(r.s.notifications))
	for i, l := range r.s.notifications {
		out[i] = *l
	}
	return out
}
