package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/config"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/middleware"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

const maxBodyBytes = 2 << 20

type Services struct {
	Auth          *service.AuthService
	Assessments   *service.AssessmentService
	Referrals     *service.ReferralService
	Facilities    *service.FacilityService
	Appointments  *service.AppointmentService
	Education     *service.EducationService
	Sync          *service.SyncService
	Analytics     *service.AnalyticsService
	Notifications *service.NotificationService
}

type RouterDeps struct {
	Config   *config.Config
	Log      *zap.Logger
	Metrics  *metrics.Collector
	Tokens   middleware.TokenValidator
	Services Services
	// Readiness checks run by GET /ready, keyed by name.
	Checks map[string]Pinger
}

func NewRouter(d RouterDeps) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) { respondError(c, http.StatusNotFound, "route not found") })
	r.NoMethod(func(c *gin.Context) { respondError(c, http.StatusMethodNotAllowed, "method not allowed") })

	r.Use(
		middleware.RequestID(d.Log),
		middleware.Recovery(d.Log),
		middleware.Tracing(),
		middleware.Metrics(d.Metrics),
		middleware.Logger(d.Log),
		middleware.SecurityHeaders(d.Config.Server.TLSEnabled()),
		middleware.CORS(d.Config.CORS),
		middleware.BodyLimit(maxBodyBytes),
	)

	health := NewHealthHandler(d.Config.App.Version, d.Checks, d.Log)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	api := r.Group("/api/v1", middleware.RateLimit(d.Config.RateLimit.RequestsPerSecond, d.Config.RateLimit.BurstSize))
	authed := api.Group("", middleware.Authenticate(d.Tokens))

	NewAuthHandler(d.Services.Auth).RegisterRoutes(api, authed, d.Config.RateLimit.AuthRequestsPerMinute)
	NewAssessmentHandler(d.Services.Assessments).RegisterRoutes(authed)
	NewReferralHandler(d.Services.Referrals).RegisterRoutes(authed)
	NewFacilityHandler(d.Services.Facilities).RegisterRoutes(api, authed)
	NewAppointmentHandler(d.Services.Appointments).RegisterRoutes(authed)
	NewEducationHandler(d.Services.Education).RegisterRoutes(api, authed)
	NewSyncHandler(d.Services.Sync).RegisterRoutes(authed)
	NewAnalyticsHandler(d.Services.Analytics).RegisterRoutes(authed)
	NewNotificationHandler(d.Services.Notifications).RegisterRoutes(authed)

	return r
}

func (h *AuthHandler) RegisterRoutes(public, authed *gin.RouterGroup, authPerMinute int) {
	limited := public.Group("/auth", middleware.AuthRateLimit(authPerMinute))
	limited.POST("/login", h.Login)
	limited.POST("/refresh", h.Refresh)

	a := authed.Group("/auth")
	a.GET("/me", h.Me)
	a.POST("/password", h.ChangePassword)
	a.POST("/mfa/enroll", h.EnrollMFA)
	a.POST("/mfa/verify", h.VerifyMFA)

	authed.POST("/users", middleware.RequirePermission(domain.PermUserManage), h.CreateUser)
	authed.PUT("/users/me/notifications", h.UpdateNotificationPreferences)
}

func (h *AssessmentHandler) RegisterRoutes(authed *gin.RouterGroup) {
	g := authed.Group("/assessments")
	g.GET("", h.List)
	g.GET("/statistics", h.Statistics)
	g.GET("/:id", h.Get)
	g.POST("", middleware.RequirePermission(domain.PermAssessmentWrite), h.Create)
	g.PUT("/:id", middleware.RequirePermission(domain.PermAssessmentWrite), h.Update)
	g.DELETE("/:id", middleware.RequirePermission(domain.PermAssessmentDelete), h.Delete)
	g.POST("/:id/validate", middleware.RequirePermission(domain.PermAssessmentValidate), h.Validate)
}

func (h *ReferralHandler) RegisterRoutes(authed *gin.RouterGroup) {
	g := authed.Group("/referrals")
	g.GET("", h.List)
	g.GET("/statistics", h.Statistics)
	g.GET("/:id", h.Get)
	g.GET("/:id/history", h.History)

	create := middleware.RequirePermission(domain.PermReferralCreate)
	g.POST("", create, h.Create)
	g.POST("/:id/cancel", create, h.Cancel)
	g.POST("/:id/escalate", create, h.Escalate)

	transition := middleware.RequirePermission(domain.PermReferralTransition)
	g.POST("/:id/accept", transition, h.Accept)
	g.POST("/:id/reject", transition, h.Reject)
	g.PATCH("/:id/status", transition, h.UpdateStatus)
	g.POST("/:id/appointments", transition, h.ScheduleAppointment)
	g.POST("/:id/complete", transition, h.Complete)

	g.DELETE("/:id", middleware.RequireRole(domain.RoleAdmin), h.Delete)
}

func (h *FacilityHandler) RegisterRoutes(public, authed *gin.RouterGroup) {
	pub := public.Group("/facilities")
	pub.GET("", h.List)
	pub.GET("/:id", h.Get)
	pub.GET("/:id/nearby", h.Nearby)

	g := authed.Group("/facilities")
	g.GET("/:id/capacity", h.Capacity)

	manage := middleware.RequirePermission(domain.PermFacilityManage)
	g.POST("", manage, h.Create)
	g.PUT("/:id", manage, h.Update)
	g.DELETE("/:id", manage, h.Deactivate)
}

func (h *AppointmentHandler) RegisterRoutes(authed *gin.RouterGroup) {
	g := authed.Group("/appointments")
	g.GET("", h.List)
	g.GET("/:id", h.Get)

	w := g.Group("", middleware.RequirePermission(domain.PermAppointmentWrite))
	w.POST("", h.Create)
	w.POST("/:id/reschedule", h.Reschedule)
	w.POST("/:id/confirm", h.transition(h.svc.Confirm))
	w.POST("/:id/check-in", h.transition(h.svc.CheckIn))
	w.POST("/:id/start", h.transition(h.svc.Start))
	w.POST("/:id/complete", h.transition(h.svc.Complete))
	w.POST("/:id/no-show", h.transition(h.svc.MarkNoShow))
	w.POST("/:id/cancel", h.Cancel)
}

func (h *EducationHandler) RegisterRoutes(public, authed *gin.RouterGroup) {
	pub := public.Group("/education")
	pub.GET("", h.ListPublished)
	pub.GET("/:id", h.View)

	g := authed.Group("/admin/education", middleware.RequirePermission(domain.PermContentManage))
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.POST("/:id/publish", h.Publish)
	g.POST("/:id/unpublish", h.Unpublish)
	g.DELETE("/:id", h.Delete)
}

func (h *SyncHandler) RegisterRoutes(authed *gin.RouterGroup) {
	g := authed.Group("/mobile")
	g.GET("/assessments", h.Assessments)
	g.GET("/facilities", h.Facilities)
	g.GET("/appointments", h.Appointments)
	g.POST("/assessments", middleware.RequirePermission(domain.PermAssessmentWrite), h.Upload)
}

func (h *AnalyticsHandler) RegisterRoutes(authed *gin.RouterGroup) {
	g := authed.Group("/analytics", middleware.RequirePermission(domain.PermAnalyticsView))
	g.GET("/overview", h.Overview)
	g.GET("/facilities/:id", h.Facility)
}
