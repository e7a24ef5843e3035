package education

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryHeartHealth    Category = "heart_health"
	CategoryRiskFactors    Category = "risk_factors"
	CategoryNutrition      Category = "nutrition"
	CategoryExercise       Category = "exercise"
	CategoryMedication     Category = "medication"
	CategoryEmergencySigns Category = "emergency_signs"
	CategoryLifestyle      Category = "lifestyle"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryHeartHealth, CategoryRiskFactors, CategoryNutrition, CategoryExercise,
		CategoryMedication, CategoryEmergencySigns, CategoryLifestyle:
		return true
	}
	return false
}

type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageFilipino Language = "fil"
)

// ParseLanguage maps a query value to a supported language, defaulting to English.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fil", "tl", "filipino", "tagalog":
		return LanguageFilipino
	}
	return LanguageEnglish
}

type Content struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Category Category `gorm:"column:category;type:varchar(40);not null;index" json:"category"`

	TitleEn    string `gorm:"column:title_en;type:varchar(255);not null" json:"title_en"`
	TitleFil   string `gorm:"column:title_fil;type:varchar(255)" json:"title_fil,omitempty"`
	SummaryEn  string `gorm:"column:summary_en;type:text" json:"summary_en,omitempty"`
	SummaryFil string `gorm:"column:summary_fil;type:text" json:"summary_fil,omitempty"`
	BodyEn     string `gorm:"column:body_en;type:text;not null" json:"body_en"`
	BodyFil    string `gorm:"column:body_fil;type:text" json:"body_fil,omitempty"`

	Tags []string `gorm:"column:tags;type:jsonb;serializer:json" json:"tags"`

	ViewCount   int64      `gorm:"column:view_count;not null;default:0" json:"view_count"`
	IsPublished bool       `gorm:"column:is_published;not null;default:false;index" json:"is_published"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid" json:"created_by"`
}

func (Content) TableName() string {
	return "content.educational_contents"
}

func (c *Content) Publish() {
	now := time.Now()
	c.IsPublished = true
	c.PublishedAt = &now
}

func (c *Content) Unpublish() {
	c.IsPublished = false
}

// Localized is the single-language view served to readers.
type Localized struct {
	ID          uuid.UUID  `json:"id"`
	Category    Category   `json:"category"`
	Language    Language   `json:"language"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary,omitempty"`
	Body        string     `json:"body"`
	Tags        []string   `json:"tags"`
	ViewCount   int64      `json:"view_count"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func pick(fil, en string, lang Language) string {
	if lang == LanguageFilipino && strings.TrimSpace(fil) != "" {
		return fil
	}
	return en
}

// Localized renders c in lang. Empty Filipino fields fall back to English
// field by field.
func (c *Content) Localized(lang Language) Localized {
	return Localized{
		ID:          c.ID,
		Category:    c.Category,
		Language:    lang,
		Title:       pick(c.TitleFil, c.TitleEn, lang),
		Summary:     pick(c.SummaryFil, c.SummaryEn, lang),
		Body:        pick(c.BodyFil, c.BodyEn, lang),
		Tags:        c.Tags,
		ViewCount:   c.ViewCount,
		PublishedAt: c.PublishedAt,
	}
}

type CreateContentCommand struct {
	Category   Category
	TitleEn    string
	TitleFil   string
	SummaryEn  string
	SummaryFil string
	BodyEn     string
	BodyFil    string
	Tags       []string
	Publish    bool
	CreatedBy  uuid.UUID
}

type UpdateContentCommand struct {
	Category   *Category
	TitleEn    *string
	TitleFil   *string
	SummaryEn  *string
	SummaryFil *string
	BodyEn     *string
	BodyFil    *string
	Tags       *[]string
}

type ListContentQuery struct {
	Category *Category
	Search   string
	// PublishedOnly is forced on for public listings.
	PublishedOnly bool
	Page          int
	PageSize      int
}

type PagedContent struct {
	Contents   []*Content
	TotalCount int64
	Page       int
	PageSize   int
}
