package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/middleware"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	MFACode  string `json:"mfa_code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type mfaVerifyRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

type createUserRequest struct {
	Email      string      `json:"email" binding:"required,email"`
	Password   string      `json:"password" binding:"required"`
	FirstName  string      `json:"first_name" binding:"required"`
	LastName   string      `json:"last_name" binding:"required"`
	Role       domain.Role `json:"role" binding:"required"`
	FacilityID *uuid.UUID  `json:"facility_id"`
}

// userView is the public shape of a user. Hashes and MFA secrets never leave
// the service.
type userView struct {
	ID                      uuid.UUID                      `json:"id"`
	Email                   string                         `json:"email"`
	FirstName               string                         `json:"first_name"`
	LastName                string                         `json:"last_name"`
	Role                    domain.Role                    `json:"role"`
	FacilityID              *uuid.UUID                     `json:"facility_id,omitempty"`
	IsActive                bool                           `json:"is_active"`
	MFAEnabled              bool                           `json:"mfa_enabled"`
	LastLoginAt             *time.Time                     `json:"last_login_at,omitempty"`
	NotificationPreferences domain.NotificationPreferences `json:"notification_preferences"`
	CreatedAt               time.Time                      `json:"created_at"`
}

func newUserView(u *domain.User) userView {
	return userView{
		ID:                      u.ID,
		Email:                   u.Email,
		FirstName:               u.FirstName,
		LastName:                u.LastName,
		Role:                    u.Role,
		FacilityID:              u.FacilityID,
		IsActive:                u.IsActive,
		MFAEnabled:              u.MFAEnabled,
		LastLoginAt:             u.LastLoginAt,
		NotificationPreferences: u.NotificationPreferences,
		CreatedAt:               u.CreatedAt,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	tokens, err := h.svc.Login(c.Request.Context(), service.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
		MFACode:  req.MFACode,
		IP:       c.ClientIP(),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, tokens)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	tokens, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, tokens)
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.svc.Me(c.Request.Context(), middleware.Actor(c).UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, newUserView(u))
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), middleware.Actor(c).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "password changed")
}

func (h *AuthHandler) EnrollMFA(c *gin.Context) {
	enrollment, err := h.svc.EnrollMFA(c.Request.Context(), middleware.Actor(c).UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, enrollment)
}

func (h *AuthHandler) VerifyMFA(c *gin.Context) {
	var req mfaVerifyRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.VerifyMFA(c.Request.Context(), middleware.Actor(c).UserID, req.Code); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "mfa enabled")
}

func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.svc.CreateUser(c.Request.Context(), middleware.Actor(c), service.CreateUserCommand{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		FacilityID: req.FacilityID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, newUserView(u))
}

func (h *AuthHandler) UpdateNotificationPreferences(c *gin.Context) {
	var prefs domain.NotificationPreferences
	if !bindJSON(c, &prefs) {
		return
	}
	u, err := h.svc.UpdateNotificationPreferences(c.Request.Context(), middleware.Actor(c).UserID, prefs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, newUserView(u))
}
