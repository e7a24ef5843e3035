package v1

import (
	"maps"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/middleware"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
)

// SyncHandler serves the incremental pull and offline upload endpoints used
// by the mobile app.
type SyncHandler struct {
	svc *service.SyncService
}

func NewSyncHandler(svc *service.SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

type uploadRequest struct {
	Assessments []createAssessmentRequest `json:"assessments" binding:"required"`
}

// since parses ?since=. A missing value means the beginning of time.
func since(c *gin.Context) (time.Time, bool) {
	raw := c.Query("since")
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondValidation(c, map[string][]string{"since": {"must be an RFC3339 timestamp"}})
		return time.Time{}, false
	}
	return t, true
}

func (h *SyncHandler) Assessments(c *gin.Context) {
	from, ok := since(c)
	if !ok {
		return
	}
	page, err := h.svc.Assessments(c.Request.Context(), from, parseQueryInt(c, "limit", 0))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

func (h *SyncHandler) Facilities(c *gin.Context) {
	from, ok := since(c)
	if !ok {
		return
	}
	page, err := h.svc.Facilities(c.Request.Context(), from, parseQueryInt(c, "limit", 0))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

func (h *SyncHandler) Appointments(c *gin.Context) {
	from, ok := since(c)
	if !ok {
		return
	}
	page, err := h.svc.Appointments(c.Request.Context(), from, parseQueryInt(c, "limit", 0))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

// Upload never fails the whole batch for a bad item; per item outcomes are
// in the response.
func (h *SyncHandler) Upload(c *gin.Context) {
	var req uploadRequest
	if !bindJSON(c, &req) {
		return
	}
	cmds := make([]*assessment.CreateAssessmentCommand, len(req.Assessments))
	fieldErrs := make(map[int]map[string][]string)
	for i := range req.Assessments {
		cmd, errs := req.Assessments[i].command()
		cmds[i] = cmd
		if errs != nil {
			fieldErrs[i] = errs
		}
	}

	results, err := h.svc.Upload(c.Request.Context(), middleware.Actor(c), cmds)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	for i, errs := range fieldErrs {
		mergeUploadErrors(&results[i], errs)
	}
	respondOK(c, results)
}

// mergeUploadErrors marks an item whose request fields failed to parse as
// invalid. The parse message replaces whatever the service said about the
// zero value it was handed. A duplicate keeps its status since the stored
// copy is what the client gets back.
func mergeUploadErrors(res *service.UploadResult, errs map[string][]string) {
	if res.Status == service.UploadDuplicate {
		return
	}
	res.Status = service.UploadInvalid
	res.ID = nil
	if res.Errors == nil {
		res.Errors = make(map[string][]string, len(errs))
	}
	maps.Copy(res.Errors, errs)
}
