package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/config"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/auth"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) { c.String(http.StatusOK, "ok") }

func TestRequestID_EchoesOrGenerates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(zap.NewNop()))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRecovery_ReturnsEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(zap.NewNop()), Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal server error"}`, stripTimestamp(t, w.Body.Bytes()))
	assert.NotContains(t, w.Body.String(), "kaboom")
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(true))
	r.GET("/", ok)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", ok)

	req := httptest.NewRequest(http.MethodPost, "/", stringsReader("0123456789"))
	w := serve(r, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRateLimit_RejectsBurstOverflow(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(1, 2))
	r.GET("/", ok)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestAuthRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(AuthRateLimit(3))
	r.POST("/login", ok)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		codes = append(codes, serve(r, httptest.NewRequest(http.MethodPost, "/login", nil)).Code)
	}
	assert.Equal(t, []int{200, 200, 200, 429}, codes)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.CORSConfig{
		AllowedOrigins: []string{"https://portal.example.ph"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         time.Hour,
	}))
	r.GET("/", ok)

	pre := httptest.NewRequest(http.MethodOptions, "/", nil)
	pre.Header.Set("Origin", "https://portal.example.ph")
	pre.Header.Set("Access-Control-Request-Method", "POST")
	w := serve(r, pre)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "POST", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	del := httptest.NewRequest(http.MethodOptions, "/", nil)
	del.Header.Set("Origin", "https://portal.example.ph")
	del.Header.Set("Access-Control-Request-Method", "DELETE")
	assert.Equal(t, http.StatusForbidden, serve(r, del).Code)

	bad := httptest.NewRequest(http.MethodOptions, "/", nil)
	bad.Header.Set("Origin", "https://evil.example")
	bad.Header.Set("Access-Control-Request-Method", "POST")
	assert.Equal(t, http.StatusForbidden, serve(r, bad).Code)

	get := httptest.NewRequest(http.MethodGet, "/", nil)
	get.Header.Set("Origin", "https://portal.example.ph")
	w = serve(r, get)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://portal.example.ph", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), http.CanonicalHeaderKey(RequestIDHeader))

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.Header.Set("Origin", "https://evil.example")
	w = serve(r, other)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardNeverSendsCredentials(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))
	r.GET("/", ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := serve(r, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	m := metrics.NewCollector("test")
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/referrals/:id", ok)

	serve(r, httptest.NewRequest(http.MethodGet, "/referrals/"+uuid.NewString(), nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/referrals/"+uuid.NewString(), nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/referrals/:id", "200")))
}

func newJWT() *auth.JWTManager {
	return auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-that-is-long-enough-123456",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "test",
	})
}

func TestAuthenticate_AndRequirePermission(t *testing.T) {
	jwt := newJWT()
	r := gin.New()
	r.Use(Authenticate(jwt))
	r.GET("/me", func(c *gin.Context) {
		a := Actor(c)
		c.String(http.StatusOK, string(a.Role))
	})
	r.POST("/facilities", RequirePermission(domain.PermFacilityManage), ok)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	nurse, err := jwt.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RoleNurse})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+nurse.AccessToken)
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nurse", w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/facilities", nil)
	req.Header.Set("Authorization", "Bearer "+nurse.AccessToken)
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	// Refresh tokens are not accepted as access tokens.
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+nurse.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	admin, err := jwt.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RoleAdmin})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/facilities", nil)
	req.Header.Set("Authorization", "Bearer "+admin.AccessToken)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}
