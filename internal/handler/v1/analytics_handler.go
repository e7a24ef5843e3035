package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/middleware"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
)

type AnalyticsHandler struct {
	svc *service.AnalyticsService
}

func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Overview scopes facility admins to their own facility regardless of the
// facility_id they pass.
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	p := newQueryParser(c)
	q := service.OverviewQuery{
		FacilityID: p.optUUID("facility_id"),
		DateFrom:   p.optTime("date_from"),
		DateTo:     p.optTime("date_to"),
	}
	if !p.ok() {
		return
	}
	if actor := middleware.Actor(c); actor.Role == domain.RoleFacilityAdmin {
		q.FacilityID = actor.FacilityID
	}

	overview, err := h.svc.Overview(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, overview)
}

func (h *AnalyticsHandler) Facility(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	actor := middleware.Actor(c)
	if actor.Role == domain.RoleFacilityAdmin && (actor.FacilityID == nil || *actor.FacilityID != id) {
		respondServiceError(c, service.ErrForbidden)
		return
	}
	stats, err := h.svc.Facility(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, stats)
}
