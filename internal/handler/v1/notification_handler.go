package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/middleware"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) History(c *gin.Context) {
	rows, err := h.svc.Recent(c.Request.Context(), middleware.Actor(c).UserID, parseQueryInt(c, "limit", 20))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rows)
}

func (h *NotificationHandler) RegisterRoutes(authed *gin.RouterGroup) {
	authed.GET("/users/me/notifications/history", h.History)
}
