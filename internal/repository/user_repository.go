package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) live(ctx context.Context) *gorm.DB {
	return getDB(ctx, r.db).Model(&domain.User{}).Where("deleted_at IS NULL")
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := getDB(ctx, r.db).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.live(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user by email: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := r.live(ctx).First(&u, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user %s: %w", id, err)
	}
	return &u, nil
}

func (r *UserRepository) SaveLoginState(ctx context.Context, u *domain.User) error {
	return r.update(ctx, u.ID, map[string]any{
		"failed_login_count": u.FailedLoginCount,
		"locked_until":       u.LockedUntil,
		"last_login_at":      u.LastLoginAt,
	})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(ctx, id, map[string]any{
		"password_hash":       hash,
		"password_changed_at": time.Now(),
	})
}

func (r *UserRepository) UpdateMFA(ctx context.Context, id uuid.UUID, secret string, enabled bool) error {
	return r.update(ctx, id, map[string]any{
		"mfa_secret":  secret,
		"mfa_enabled": enabled,
	})
}

func (r *UserRepository) UpdateNotificationPreferences(ctx context.Context, id uuid.UUID, prefs domain.NotificationPreferences) error {
	res := r.live(ctx).Where("id = ?", id).Select("notification_preferences").Updates(&domain.User{NotificationPreferences: prefs})
	if res.Error != nil {
		return fmt.Errorf("updating notification preferences for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]*domain.User, error) {
	var users []*domain.User
	err := r.live(ctx).
		Where("facility_id = ? AND is_active", facilityID).
		Order("email").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("listing users for facility %s: %w", facilityID, err)
	}
	return users, nil
}

func (r *UserRepository) update(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	res := r.live(ctx).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("updating user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
