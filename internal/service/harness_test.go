package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/notification"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/repository/memory"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/cache"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

type harness struct {
	store       *memory.Store
	metrics     *metrics.Collector
	cache       *cache.Memory
	audit       *AuditService
	assessments *AssessmentService
	appts       *AppointmentService
	referrals   *ReferralService
	facilities  *FacilityService
	education   *EducationService
	sync        *SyncService
	analytics   *AnalyticsService
	doctor      domain.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop()
	store := memory.NewStore()
	m := metrics.NewCollector("test")
	c := cache.NewMemory()
	audit := NewAuditService(store.Audit(), m, log)
	t.Cleanup(audit.Shutdown)

	dispatcher := notification.NewDispatcher([]notification.Driver{
		notification.NewMockDriver(notification.ChannelEmail, store.Notifications()),
	}, time.Second, m, log)

	h := &harness{store: store, metrics: m, cache: c, audit: audit}
	h.assessments = NewAssessmentService(store.Assessments(), assessment.DefaultThresholds(), audit, m, log)
	h.facilities = NewFacilityService(store.Facilities(), c, time.Minute, audit, m, log)
	h.appts = NewAppointmentService(store.Appointments(), store.Facilities(), audit, m, log)
	h.referrals = NewReferralService(ReferralDeps{
		Repo:           store.Referrals(),
		AssessmentRepo: store.Assessments(),
		FacilityRepo:   store.Facilities(),
		Appointments:   h.appts,
		Staff:          store.Users(),
		Tx:             memory.TxManager{},
		Notifier:       dispatcher,
		Audit:          audit,
		Metrics:        m,
		Log:            log,
	})
	h.education = NewEducationService(store.Education(), audit, log)
	h.sync = NewSyncService(store.Assessments(), store.Facilities(), store.Appointments(), h.assessments, 100, 500, m, log)
	h.analytics = NewAnalyticsService(store.Assessments(), store.Referrals(), store.Appointments(), h.facilities)
	h.doctor = domain.Actor{UserID: uuid.New(), Role: domain.RoleDoctor}
	return h
}

func (h *harness) facility(t *testing.T, code, region string, lat, lon float64) *facility.Facility {
	t.Helper()
	f, err := h.facilities.Create(context.Background(), domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}, &facility.CreateFacilityCommand{
		Code: code, Name: code + " Hospital", Type: facility.TypeHospital, Region: region,
		Latitude: lat, Longitude: lon, BedCapacity: 100, AvailableBeds: 40,
		Services: []string{"ecg"}, HasCardiologyUnit: true,
	})
	require.NoError(t, err)
	return f
}

func (h *harness) assessment(t *testing.T, score float64) *assessment.Assessment {
	t.Helper()
	a, err := h.assessments.Create(context.Background(), h.doctor, &assessment.CreateAssessmentCommand{
		PatientFirstName:   "Juan",
		PatientLastName:    "Dela Cruz",
		PatientDateOfBirth: time.Date(1968, 3, 14, 0, 0, 0, 0, time.UTC),
		PatientSex:         assessment.SexMale,
		Region:             "NCR",
		MLRiskScore:        score,
	})
	require.NoError(t, err)
	return a
}
