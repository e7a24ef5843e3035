package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/education"
)

type EducationService struct {
	repo     education.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewEducationService(repo education.Repository, auditSvc *AuditService, log *zap.Logger) *EducationService {
	return &EducationService{repo: repo, auditSvc: auditSvc, log: log}
}

type LocalizedPage struct {
	Items    []education.Localized
	Total    int64
	Page     int
	PageSize int
}

// ListPublished is the reader-facing listing, rendered in lang.
func (s *EducationService) ListPublished(ctx context.Context, q *education.ListContentQuery, lang education.Language) (*LocalizedPage, error) {
	q.PublishedOnly = true
	res, err := s.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := &LocalizedPage{Items: make([]education.Localized, 0, len(res.Contents)), Total: res.TotalCount, Page: res.Page, PageSize: res.PageSize}
	for _, c := range res.Contents {
		out.Items = append(out.Items, c.Localized(lang))
	}
	return out, nil
}

// List is the admin listing and includes drafts unless PublishedOnly is set.
func (s *EducationService) List(ctx context.Context, q *education.ListContentQuery) (*education.PagedContent, error) {
	if q.Category != nil && !q.Category.IsValid() {
		return nil, fieldError("category", education.ErrInvalidCategory.Error())
	}
	q.Page, q.PageSize = domain.NormalizePaging(q.Page, q.PageSize)
	return s.repo.List(ctx, q)
}

// View returns published content in lang and counts the view.
func (s *EducationService) View(ctx context.Context, id uuid.UUID, lang education.Language) (*education.Localized, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsPublished {
		return nil, education.ErrContentNotFound
	}
	views, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("counting view: %w", err)
	}
	c.ViewCount = views
	out := c.Localized(lang)
	return &out, nil
}

func (s *EducationService) Get(ctx context.Context, id uuid.UUID) (*education.Content, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *EducationService) Create(ctx context.Context, actor domain.Actor, cmd *education.CreateContentCommand) (*education.Content, error) {
	v := NewValidationError()
	v.Check(cmd.Category.IsValid(), "category", education.ErrInvalidCategory.Error())
	v.Check(strings.TrimSpace(cmd.TitleEn) != "", "title_en", education.ErrTitleRequired.Error())
	v.Check(strings.TrimSpace(cmd.BodyEn) != "", "body_en", education.ErrBodyRequired.Error())
	if err := v.Err(); err != nil {
		return nil, err
	}

	c := &education.Content{
		Category:   cmd.Category,
		TitleEn:    strings.TrimSpace(cmd.TitleEn),
		TitleFil:   strings.TrimSpace(cmd.TitleFil),
		SummaryEn:  cmd.SummaryEn,
		SummaryFil: cmd.SummaryFil,
		BodyEn:     cmd.BodyEn,
		BodyFil:    cmd.BodyFil,
		Tags:       cmd.Tags,
		CreatedBy:  actor.UserID,
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if cmd.Publish {
		c.Publish()
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating content: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionCreate, ResourceType: "educational_content", ResourceID: c.ID})
	s.log.Info("educational content created", zap.String("content_id", c.ID.String()), zap.Bool("published", c.IsPublished))
	return c, nil
}

func (s *EducationService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd *education.UpdateContentCommand) (*education.Content, error) {
	return s.mutate(ctx, actor, id, func(c *education.Content) error {
		v := NewValidationError()
		if cmd.Category != nil {
			v.Check(cmd.Category.IsValid(), "category", education.ErrInvalidCategory.Error())
			c.Category = *cmd.Category
		}
		if cmd.TitleEn != nil {
			v.Check(strings.TrimSpace(*cmd.TitleEn) != "", "title_en", education.ErrTitleRequired.Error())
			c.TitleEn = strings.TrimSpace(*cmd.TitleEn)
		}
		if cmd.BodyEn != nil {
			v.Check(strings.TrimSpace(*cmd.BodyEn) != "", "body_en", education.ErrBodyRequired.Error())
			c.BodyEn = *cmd.BodyEn
		}
		if cmd.TitleFil != nil {
			c.TitleFil = *cmd.TitleFil
		}
		if cmd.SummaryEn != nil {
			c.SummaryEn = *cmd.SummaryEn
		}
		if cmd.SummaryFil != nil {
			c.SummaryFil = *cmd.SummaryFil
		}
		if cmd.BodyFil != nil {
			c.BodyFil = *cmd.BodyFil
		}
		if cmd.Tags != nil {
			c.Tags = *cmd.Tags
		}
		return v.Err()
	})
}

func (s *EducationService) Publish(ctx context.Context, actor domain.Actor, id uuid.UUID) (*education.Content, error) {
	return s.mutate(ctx, actor, id, func(c *education.Content) error {
		c.Publish()
		return nil
	})
}

func (s *EducationService) Unpublish(ctx context.Context, actor domain.Actor, id uuid.UUID) (*education.Content, error) {
	return s.mutate(ctx, actor, id, func(c *education.Content) error {
		c.Unpublish()
		return nil
	})
}

func (s *EducationService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionDelete, ResourceType: "educational_content", ResourceID: id})
	return nil
}

func (s *EducationService) mutate(ctx context.Context, actor domain.Actor, id uuid.UUID, fn func(*education.Content) error) (*education.Content, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("saving content: %w", err)
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionUpdate, ResourceType: "educational_content", ResourceID: id})
	return c, nil
}
