package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/education"
	"gorm.io/gorm"
)

type EducationRepository struct{ s *Store }

var _ education.Repository = (*EducationRepository)(nil)

func cloneContent(c *education.Content) *education.Content {
	cp := *c
	cp.Tags = slices.Clone(c.Tags)
	return &cp
}

func (r *EducationRepository) get(id uuid.UUID) (*education.Content, bool) {
	c, ok := r.s.contents[id]
	if !ok || c.DeletedAt.Valid {
		return nil, false
	}
	return c, true
}

func (r *EducationRepository) Create(_ context.Context, c *education.Content) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := r.s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.contents[c.ID] = cloneContent(c)
	return nil
}

func (r *EducationRepository) GetByID(_ context.Context, id uuid.UUID) (*education.Content, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.get(id)
	if !ok {
		return nil, education.ErrContentNotFound
	}
	return cloneContent(c), nil
}

func (r *EducationRepository) Save(_ context.Context, c *education.Content) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.get(c.ID)
	if !ok {
		return education.ErrContentNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.ViewCount = existing.ViewCount
	c.UpdatedAt = r.s.now()
	r.s.contents[c.ID] = cloneContent(c)
	return nil
}

func (r *EducationRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.get(id)
	if !ok {
		return education.ErrContentNotFound
	}
	c.DeletedAt = gorm.DeletedAt{Time: r.s.now(), Valid: true}
	return nil
}

func (r *EducationRepository) List(_ context.Context, q *education.ListContentQuery) (*education.PagedContent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	var items []*education.Content
	for _, c := range r.s.contents {
		if c.DeletedAt.Valid || (q.PublishedOnly && !c.IsPublished) || !eqPtr(q.Category, c.Category) {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(c.TitleEn + " " + c.TitleFil + " " + c.SummaryEn + " " + c.SummaryFil)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		items = append(items, cloneContent(c))
	}
	slices.SortFunc(items, func(a, b *education.Content) int { return b.CreatedAt.Compare(a.CreatedAt) })

	total := int64(len(items))
	pageItems, page, size := paginate(items, q.Page, q.PageSize)
	return &education.PagedContent{Contents: pageItems, TotalCount: total, Page: page, PageSize: size}, nil
}

func (r *EducationRepository) IncrementViews(_ context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.get(id)
	if !ok {
		return 0, education.ErrContentNotFound
	}
	c.ViewCount++
	return c.ViewCount, nil
}
