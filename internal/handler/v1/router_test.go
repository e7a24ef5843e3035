package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/app"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/config"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
	v1 "github.com/johnrobertdelinila/juan-heart-web-sub002/internal/handler/v1"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/repository/memory"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/cache"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "juanheart-test", Environment: "test", Version: "test"},
		JWT: config.JWTConfig{
			Secret:          "handler-test-secret-0123456789abcdef",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: time.Hour,
			Issuer:          "juanheart-test",
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         time.Hour,
		},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000, AuthRequestsPerMinute: 100},
		Redis:     config.RedisConfig{CacheTTL: time.Minute},
		Notification: config.NotificationConfig{
			EmailDriver:        "mock",
			SMSDriver:          "mock",
			PushDriver:         "mock",
			BreakerMaxFailures: 5,
			BreakerOpenTimeout: time.Second,
			SendTimeout:        time.Second,
		},
		Risk: config.RiskConfig{ModerateThreshold: 40, HighThreshold: 70},
		Sync: config.SyncConfig{DefaultLimit: 100, MaxLimit: 500},
	}
}

type testServer struct {
	app   *app.App
	store *memory.Store
	admin domain.Actor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	a, err := app.New(context.Background(), app.Options{
		Config:  testConfig(),
		Repos:   app.MemoryRepositories(store),
		Cache:   cache.NewMemory(),
		Metrics: metrics.NewCollector("test"),
		Log:     zap.NewNop(),
		Checks: map[string]v1.Pinger{
			"store": v1.PingFunc(func(context.Context) error { return nil }),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return &testServer{app: a, store: store, admin: domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}}
}

func (s *testServer) token(t *testing.T, role domain.Role) string {
	t.Helper()
	pair, err := s.app.Tokens.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Email: string(role) + "@juanheart.ph", Role: role})
	require.NoError(t, err)
	return pair.AccessToken
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
	Meta    *domain.Page        `json:"meta"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (s *testServer) facility(t *testing.T, code, region string) *facility.Facility {
	t.Helper()
	f, err := s.app.Services.Facilities.Create(context.Background(), s.admin, &facility.CreateFacilityCommand{
		Code: code, Name: code + " Medical Center", Type: facility.TypeHospital, Region: region,
		Latitude: 14.58, Longitude: 120.98, BedCapacity: 50, AvailableBeds: 10, HasCardiologyUnit: true,
	})
	require.NoError(t, err)
	return f
}

func (s *testServer) assessment(t *testing.T, score float64) *assessment.Assessment {
	t.Helper()
	a, err := s.app.Services.Assessments.Create(context.Background(), s.admin, &assessment.CreateAssessmentCommand{
		PatientFirstName:   "Maria",
		PatientLastName:    "Santos",
		PatientDateOfBirth: time.Date(1959, 7, 2, 0, 0, 0, 0, time.UTC),
		PatientSex:         assessment.SexFemale,
		MLRiskScore:        score,
	})
	require.NoError(t, err)
	return a
}

func (s *testServer) referral(t *testing.T) *referral.Referral {
	t.Helper()
	target := s.facility(t, "PHC-"+uuid.NewString()[:6], "NCR")
	a := s.assessment(t, 82)
	r, err := s.app.Services.Referrals.Create(context.Background(), s.admin, &referral.CreateReferralCommand{
		AssessmentID:     a.ID,
		TargetFacilityID: target.ID,
		Reason:           "suspected unstable angina",
	})
	require.NoError(t, err)
	return r
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, env = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"store": "ok"}, decode[map[string]string](t, env.Data))

	w, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestFacilities_RegionFilterReturnsActiveOnly(t *testing.T) {
	s := newTestServer(t)
	ncr := s.facility(t, "PGH", "NCR")
	closed := s.facility(t, "OLD", "NCR")
	s.facility(t, "VSMMC", "Region VII")
	_, err := s.app.Services.Facilities.Deactivate(context.Background(), s.admin, closed.ID)
	require.NoError(t, err)

	w, env := s.do(t, http.MethodGet, "/api/v1/facilities?region=NCR", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[[]facility.Facility](t, env.Data)
	require.Len(t, got, 1)
	assert.Equal(t, ncr.ID, got[0].ID)
	assert.Equal(t, "NCR", got[0].Region)
	assert.True(t, got[0].IsActive)
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 1, env.Meta.Total)
}

func TestFacilities_WritesNeedPermission(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"code": "NKTI", "name": "National Kidney", "type": "hospital", "region": "NCR"}

	w, _ := s.do(t, http.MethodPost, "/api/v1/facilities", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/facilities", s.token(t, domain.RoleNurse), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/facilities", s.token(t, domain.RoleAdmin), body)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "NKTI", decode[facility.Facility](t, env.Data).Code)
}

func TestReferralReject_WithoutReasonIs422(t *testing.T) {
	s := newTestServer(t)
	r := s.referral(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/referrals/"+r.ID.String()+"/reject", s.token(t, domain.RoleDoctor), map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Errors, "reason")

	// An empty body is treated the same way.
	w, _ = s.do(t, http.MethodPost, "/api/v1/referrals/"+r.ID.String()+"/reject", s.token(t, domain.RoleDoctor), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestReferralAccept_OnCompletedIs409AndWritesNoHistory(t *testing.T) {
	s := newTestServer(t)
	r := s.referral(t)
	doctor := s.token(t, domain.RoleDoctor)
	base := "/api/v1/referrals/" + r.ID.String()

	w, _ := s.do(t, http.MethodPost, base+"/accept", doctor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPatch, base+"/status", doctor, map[string]string{"status": "arrived"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPost, base+"/complete", doctor, map[string]string{"outcome": "admitted to CCU"})
	require.Equal(t, http.StatusOK, w.Code)

	before, err := s.app.Services.Referrals.History(context.Background(), r.ID)
	require.NoError(t, err)

	w, env := s.do(t, http.MethodPost, base+"/accept", doctor, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)

	after, err := s.app.Services.Referrals.History(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	// One row per transition, each matching the status it moved between.
	w, env = s.do(t, http.MethodGet, base+"/history", doctor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]referral.History](t, env.Data)
	require.Len(t, rows, 4)
	assert.Equal(t, referral.StatusPending, rows[1].FromStatus)
	assert.Equal(t, referral.StatusAccepted, rows[1].ToStatus)
	assert.Equal(t, referral.StatusArrived, rows[3].FromStatus)
	assert.Equal(t, referral.StatusCompleted, rows[3].ToStatus)
}

func TestReferralEscalate_ChangesPriorityNotStatus(t *testing.T) {
	s := newTestServer(t)
	r := s.referral(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/referrals/"+r.ID.String()+"/escalate", s.token(t, domain.RoleNurse), map[string]string{"reason": "worsening chest pain"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[referral.Referral](t, env.Data)
	assert.Equal(t, referral.PriorityHigh, got.Priority)
	assert.Equal(t, referral.StatusPending, got.Status)
	assert.NotNil(t, got.EscalatedAt)

	low := "low"
	w, env = s.do(t, http.MethodPost, "/api/v1/referrals/"+r.ID.String()+"/escalate", s.token(t, domain.RoleNurse), map[string]*string{"priority": &low})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, env.Errors, "priority")
}

func TestAssessmentValidate_85IsHigh(t *testing.T) {
	s := newTestServer(t)
	a := s.assessment(t, 35)

	w, env := s.do(t, http.MethodPost, "/api/v1/assessments/"+a.ID.String()+"/validate", s.token(t, domain.RoleDoctor),
		map[string]any{"validated_risk_score": 85, "validation_notes": "ST depression on ECG"})
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[assessment.Assessment](t, env.Data)
	assert.Equal(t, assessment.RiskHigh, got.FinalRiskLevel)
	assert.Equal(t, assessment.StatusValidated, got.Status)

	w, env = s.do(t, http.MethodPost, "/api/v1/assessments/"+a.ID.String()+"/validate", s.token(t, domain.RoleDoctor),
		map[string]any{"validated_risk_score": 140})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, env.Errors, "validated_risk_score")

	w, _ = s.do(t, http.MethodPost, "/api/v1/assessments/"+a.ID.String()+"/validate", s.token(t, domain.RoleNurse),
		map[string]any{"validated_risk_score": 50})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAssessmentUpdate_NurseCannotMarkValidated(t *testing.T) {
	s := newTestServer(t)
	a := s.assessment(t, 35)
	nurse := s.token(t, domain.RoleNurse)

	w, env := s.do(t, http.MethodPut, "/api/v1/assessments/"+a.ID.String(), nurse, map[string]string{"status": "validated"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, env.Errors, "status")

	w, env = s.do(t, http.MethodGet, "/api/v1/assessments/"+a.ID.String(), nurse, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[assessment.Assessment](t, env.Data)
	assert.Equal(t, assessment.StatusPending, got.Status)
	assert.Nil(t, got.ValidatedAt)
}

func TestAssessmentCreate_BindingErrorsAreFieldLevel(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/assessments", s.token(t, domain.RoleHealthWorker), map[string]any{
		"patient_last_name": "Santos",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, env.Errors, "patient_first_name")
	assert.Contains(t, env.Errors, "ml_risk_score")
}

func TestMobileSync_ReturnsRowsAfterSinceInOrder(t *testing.T) {
	s := newTestServer(t)
	first := s.assessment(t, 10)
	second := s.assessment(t, 50)
	third := s.assessment(t, 90)
	token := s.token(t, domain.RoleHealthWorker)

	since := url.QueryEscape(first.UpdatedAt.Format(time.RFC3339Nano))
	w, env := s.do(t, http.MethodGet, "/api/v1/mobile/assessments?since="+since, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[struct {
		Items     []assessment.SyncRecord `json:"items"`
		NextSince *time.Time              `json:"next_since"`
		HasMore   bool                    `json:"has_more"`
	}](t, env.Data)
	require.Len(t, page.Items, 2)
	assert.Equal(t, second.ID, page.Items[0].ID)
	assert.Equal(t, third.ID, page.Items[1].ID)
	assert.False(t, page.HasMore)
	require.NotNil(t, page.NextSince)
	assert.True(t, page.NextSince.Equal(page.Items[1].UpdatedAt))

	w, env = s.do(t, http.MethodGet, "/api/v1/mobile/assessments?since=yesterday", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, env.Errors, "since")
}

func TestMobileUpload_IsIdempotent(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, domain.RoleHealthWorker)
	item := map[string]any{
		"mobile_client_id":      "device-7:42",
		"patient_first_name":    "Jose",
		"patient_last_name":     "Rizal",
		"patient_date_of_birth": "1961-06-19",
		"patient_sex":           "male",
		"ml_risk_score":         72.5,
	}
	bad := map[string]any{"mobile_client_id": "device-7:43", "patient_first_name": "X", "ml_risk_score": 10}
	body := map[string]any{"assessments": []any{item, bad}}

	w, env := s.do(t, http.MethodPost, "/api/v1/mobile/assessments", token, body)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode[[]map[string]any](t, env.Data)
	require.Len(t, results, 2)
	assert.Equal(t, "created", results[0]["status"])
	assert.Equal(t, "invalid", results[1]["status"])

	w, env = s.do(t, http.MethodPost, "/api/v1/mobile/assessments", token, map[string]any{"assessments": []any{item}})
	require.Equal(t, http.StatusOK, w.Code)
	results = decode[[]map[string]any](t, env.Data)
	assert.Equal(t, "duplicate", results[0]["status"])
}

func TestMobileUpload_ReportsUnparseableFieldsPerItem(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, domain.RoleHealthWorker)
	good := map[string]any{
		"mobile_client_id":      "device-9:1",
		"patient_first_name":    "Gabriela",
		"patient_last_name":     "Silang",
		"patient_date_of_birth": "1970-03-19",
		"patient_sex":           "female",
		"ml_risk_score":         40,
	}
	badDate := map[string]any{
		"mobile_client_id":      "device-9:2",
		"patient_first_name":    "Andres",
		"patient_last_name":     "Bonifacio",
		"patient_date_of_birth": "31/12/1970",
		"patient_sex":           "male",
		"ml_risk_score":         40,
	}
	body := map[string]any{"assessments": []any{good, badDate}}

	w, env := s.do(t, http.MethodPost, "/api/v1/mobile/assessments", token, body)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode[[]map[string]any](t, env.Data)
	require.Len(t, results, 2)
	assert.Equal(t, "created", results[0]["status"])
	assert.Equal(t, "invalid", results[1]["status"])
	assert.Nil(t, results[1]["id"])
	errs, ok := results[1]["errors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"must be a YYYY-MM-DD date"}, errs["patient_date_of_birth"])
}

func TestAuth_LoginAndMe(t *testing.T) {
	s := newTestServer(t)
	_, err := s.app.Services.Auth.CreateUser(context.Background(), s.admin, service.CreateUserCommand{Email: "admin@juanheart.ph", Password: "correct-horse-battery", FirstName: "Ada", LastName: "Cruz", Role: domain.RoleAdmin})
	require.NoError(t, err)

	w, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "admin@juanheart.ph", "password": "wrong-password-123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "admin@juanheart.ph", "password": "correct-horse-battery"})
	require.Equal(t, http.StatusOK, w.Code)
	tokens := decode[domain.TokenPair](t, env.Data)
	assert.Equal(t, "Bearer", tokens.TokenType)

	w, env = s.do(t, http.MethodGet, "/api/v1/auth/me", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]any](t, env.Data)
	assert.Equal(t, "admin@juanheart.ph", me["email"])
	assert.NotContains(t, me, "password_hash")

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "route not found", env.Message)
}
