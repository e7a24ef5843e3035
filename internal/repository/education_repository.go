package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/education"
	"gorm.io/gorm"
)

type EducationRepository struct {
	db *gorm.DB
}

func NewEducationRepository(db *gorm.DB) *EducationRepository {
	return &EducationRepository{db: db}
}

var _ education.Repository = (*EducationRepository)(nil)

func (r *EducationRepository) Create(ctx context.Context, c *education.Content) error {
	if err := getDB(ctx, r.db).Create(c).Error; err != nil {
		return fmt.Errorf("inserting content: %w", err)
	}
	return nil
}

func (r *EducationRepository) GetByID(ctx context.Context, id uuid.UUID) (*education.Content, error) {
	var c education.Content
	if err := getDB(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, education.ErrContentNotFound
		}
		return nil, fmt.Errorf("loading content %s: %w", id, err)
	}
	return &c, nil
}

func (r *EducationRepository) Save(ctx context.Context, c *education.Content) error {
	res := getDB(ctx, r.db).Model(c).Select("*").Omit("id", "created_at", "deleted_at", "view_count").Updates(c)
	if res.Error != nil {
		return fmt.Errorf("saving content %s: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return education.ErrContentNotFound
	}
	return nil
}

func (r *EducationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := getDB(ctx, r.db).Delete(&education.Content{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting content %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return education.ErrContentNotFound
	}
	return nil
}

func (r *EducationRepository) List(ctx context.Context, q *education.ListContentQuery) (*education.PagedContent, error) {
	query := getDB(ctx, r.db).Model(&education.Content{})

	if q.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if q.Category != nil {
		query = query.Where("category = ?", *q.Category)
	}
	if q.Search != "" {
		like := "%" + q.Search + "%"
		query = query.Where("title_en ILIKE ? OR title_fil ILIKE ? OR summary_en ILIKE ? OR summary_fil ILIKE ?", like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting content: %w", err)
	}

	scope, page, size := paginate(q.Page, q.PageSize)
	items := make([]*education.Content, 0, size)
	if total > 0 {
		if err := query.Scopes(scope).Order("published_at DESC NULLS LAST, created_at DESC").Find(&items).Error; err != nil {
			return nil, fmt.Errorf("listing content: %w", err)
		}
	}

	return &education.PagedContent{Contents: items, TotalCount: total, Page: page, PageSize: size}, nil
}

func (r *EducationRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	var views []int64
	err := getDB(ctx, r.db).Raw(
		`UPDATE content.educational_contents SET view_count = view_count + 1
		 WHERE id = ? AND deleted_at IS NULL RETURNING view_count`, id,
	).Scan(&views).Error
	if err != nil {
		return 0, fmt.Errorf("incrementing views for %s: %w", id, err)
	}
	if len(views) == 0 {
		return 0, education.ErrContentNotFound
	}
	return views[0], nil
}
