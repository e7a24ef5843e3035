package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/education"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/middleware"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
)

type EducationHandler struct {
	svc *service.EducationService
}

func NewEducationHandler(svc *service.EducationService) *EducationHandler {
	return &EducationHandler{svc: svc}
}

type createContentRequest struct {
	Category   education.Category `json:"category" binding:"required"`
	TitleEn    string             `json:"title_en" binding:"required"`
	TitleFil   string             `json:"title_fil"`
	SummaryEn  string             `json:"summary_en"`
	SummaryFil string             `json:"summary_fil"`
	BodyEn     string             `json:"body_en" binding:"required"`
	BodyFil    string             `json:"body_fil"`
	Tags       []string           `json:"tags"`
	Publish    bool               `json:"publish"`
}

type updateContentRequest struct {
	Category   *education.Category `json:"category"`
	TitleEn    *string             `json:"title_en"`
	TitleFil   *string             `json:"title_fil"`
	SummaryEn  *string             `json:"summary_en"`
	SummaryFil *string             `json:"summary_fil"`
	BodyEn     *string             `json:"body_en"`
	BodyFil    *string             `json:"body_fil"`
	Tags       *[]string           `json:"tags"`
}

func (h *EducationHandler) listQuery(c *gin.Context) *education.ListContentQuery {
	q := &education.ListContentQuery{
		Category: optional[education.Category](c, "category"),
		Search:   c.Query("search"),
	}
	q.Page, q.PageSize = newQueryParser(c).page()
	return q
}

// ListPublished is the public reader listing, rendered in ?lang= (en or fil).
func (h *EducationHandler) ListPublished(c *gin.Context) {
	page, err := h.svc.ListPublished(c.Request.Context(), h.listQuery(c), education.ParseLanguage(c.Query("lang")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondList(c, page.Items, page.Page, page.PageSize, page.Total)
}

func (h *EducationHandler) View(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.View(c.Request.Context(), id, education.ParseLanguage(c.Query("lang")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, item)
}

// List is the authoring listing and includes drafts.
func (h *EducationHandler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context(), h.listQuery(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondList(c, result.Contents, result.Page, result.PageSize, result.TotalCount)
}

func (h *EducationHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	content, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, content)
}

func (h *EducationHandler) Create(c *gin.Context) {
	var req createContentRequest
	if !bindJSON(c, &req) {
		return
	}
	content, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), &education.CreateContentCommand{
		Category:   req.Category,
		TitleEn:    req.TitleEn,
		TitleFil:   req.TitleFil,
		SummaryEn:  req.SummaryEn,
		SummaryFil: req.SummaryFil,
		BodyEn:     req.BodyEn,
		BodyFil:    req.BodyFil,
		Tags:       req.Tags,
		Publish:    req.Publish,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, content)
}

func (h *EducationHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateContentRequest
	if !bindJSON(c, &req) {
		return
	}
	content, err := h.svc.Update(c.Request.Context(), middleware.Actor(c), id, &education.UpdateContentCommand{
		Category:   req.Category,
		TitleEn:    req.TitleEn,
		TitleFil:   req.TitleFil,
		SummaryEn:  req.SummaryEn,
		SummaryFil: req.SummaryFil,
		BodyEn:     req.BodyEn,
		BodyFil:    req.BodyFil,
		Tags:       req.Tags,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, content)
}

func (h *EducationHandler) Publish(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	content, err := h.svc.Publish(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, content)
}

func (h *EducationHandler) Unpublish(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	content, err := h.svc.Unpublish(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, content)
}

func (h *EducationHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "content deleted")
}
