// Package app assembles repositories, services and the HTTP router.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/config"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/education"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	domainnotify "github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/notification"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
	v1 "github.com/johnrobertdelinila/juan-heart-web-sub002/internal/handler/v1"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/notification"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/repository"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/repository/memory"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/auth"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/cache"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

type Repositories struct {
	Assessments   assessment.Repository
	Referrals     referral.Repository
	Facilities    facility.Repository
	Appointments  appointment.Repository
	Education     education.Repository
	Users         service.UserRepository
	Audit         service.AuditRepository
	Notifications domainnotify.Repository
	Tx            service.TxManager
}

func PostgresRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Assessments:   repository.NewAssessmentRepository(db),
		Referrals:     repository.NewReferralRepository(db),
		Facilities:    repository.NewFacilityRepository(db),
		Appointments:  repository.NewAppointmentRepository(db),
		Education:     repository.NewEducationRepository(db),
		Users:         repository.NewUserRepository(db),
		Audit:         repository.NewAuditRepository(db),
		Notifications: repository.NewNotificationLogRepository(db),
		Tx:            repository.NewTxManager(db),
	}
}

func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Assessments:   store.Assessments(),
		Referrals:     store.Referrals(),
		Facilities:    store.Facilities(),
		Appointments:  store.Appointments(),
		Education:     store.Education(),
		Users:         store.Users(),
		Audit:         store.Audit(),
		Notifications: store.Notifications(),
		Tx:            memory.TxManager{},
	}
}

type Options struct {
	Config  *config.Config
	Repos   Repositories
	Cache   cache.Cache
	Metrics *metrics.Collector
	Log     *zap.Logger
	Checks  map[string]v1.Pinger
}

type App struct {
	Router     *gin.Engine
	Services   v1.Services
	Tokens     *auth.JWTManager
	audit      *service.AuditService
	dispatcher *notification.Dispatcher
}

func New(ctx context.Context, o Options) (*App, error) {
	cfg := o.Config
	if o.Cache == nil {
		o.Cache = cache.Noop{}
	}

	dispatcher, err := notification.Build(ctx, cfg.Notification, o.Repos.Notifications, o.Metrics, o.Log)
	if err != nil {
		return nil, fmt.Errorf("building notification dispatcher: %w", err)
	}

	tokens := auth.NewJWTManager(cfg.JWT)
	audit := service.NewAuditService(o.Repos.Audit, o.Metrics, o.Log)
	thresholds := assessment.RiskThresholds{Moderate: cfg.Risk.ModerateThreshold, High: cfg.Risk.HighThreshold}

	assessments := service.NewAssessmentService(o.Repos.Assessments, thresholds, audit, o.Metrics, o.Log)
	facilities := service.NewFacilityService(o.Repos.Facilities, o.Cache, cfg.Redis.CacheTTL, audit, o.Metrics, o.Log)
	appointments := service.NewAppointmentService(o.Repos.Appointments, o.Repos.Facilities, audit, o.Metrics, o.Log)

	svcs := v1.Services{
		Auth:        service.NewAuthService(o.Repos.Users, tokens, audit, cfg.JWT.Issuer, o.Log),
		Assessments: assessments,
		Referrals: service.NewReferralService(service.ReferralDeps{
			Repo:           o.Repos.Referrals,
			AssessmentRepo: o.Repos.Assessments,
			FacilityRepo:   o.Repos.Facilities,
			Appointments:   appointments,
			Staff:          o.Repos.Users,
			Tx:             o.Repos.Tx,
			Notifier:       dispatcher,
			Audit:          audit,
			Metrics:        o.Metrics,
			Log:            o.Log,
		}),
		Facilities:    facilities,
		Appointments:  appointments,
		Education:     service.NewEducationService(o.Repos.Education, audit, o.Log),
		Sync:          service.NewSyncService(o.Repos.Assessments, o.Repos.Facilities, o.Repos.Appointments, assessments, cfg.Sync.DefaultLimit, cfg.Sync.MaxLimit, o.Metrics, o.Log),
		Analytics:     service.NewAnalyticsService(o.Repos.Assessments, o.Repos.Referrals, o.Repos.Appointments, facilities),
		Notifications: service.NewNotificationService(o.Repos.Users, o.Repos.Notifications),
	}

	router := v1.NewRouter(v1.RouterDeps{
		Config:   cfg,
		Log:      o.Log,
		Metrics:  o.Metrics,
		Tokens:   tokens,
		Services: svcs,
		Checks:   o.Checks,
	})

	return &App{
		Router:     router,
		Services:   svcs,
		Tokens:     tokens,
		audit:      audit,
		dispatcher: dispatcher,
	}, nil
}

// Close drains the audit worker and releases notification transports.
func (a *App) Close() error {
	a.audit.Shutdown()
	return a.dispatcher.Close()
}
