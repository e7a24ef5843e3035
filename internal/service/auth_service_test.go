package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/config"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/repository/memory"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/auth"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

const strongPassword = "correct-horse-battery"

func newAuth(t *testing.T) (*AuthService, *memory.Store, *domain.User) {
	t.Helper()
	store := memory.NewStore()
	audit := NewAuditService(store.Audit(), metrics.NewCollector("test"), zap.NewNop())
	t.Cleanup(audit.Shutdown)
	jwt := auth.NewJWTManager(config.JWTConfig{
		Secret: "0123456789abcdef0123456789abcdef", AccessTokenTTL: time.Minute,
		RefreshTokenTTL: time.Hour, Issuer: "juanheart-test",
	})
	svc := NewAuthService(store.Users(), jwt, audit, "Juan Heart", zap.NewNop())

	facilityID := uuid.New()
	u, err := svc.CreateUser(context.Background(), domain.Actor{Role: domain.RoleAdmin}, CreateUserCommand{
		Email: "Dr.Santos@PHC.gov.ph", Password: strongPassword, FirstName: "Jose", LastName: "Santos",
		Role: domain.RoleDoctor, FacilityID: &facilityID,
	})
	require.NoError(t, err)
	return svc, store, u
}

func TestLogin_SuccessAndRefresh(t *testing.T) {
	svc, _, u := newAuth(t)
	ctx := context.Background()

	pair, err := svc.Login(ctx, LoginCommand{Email: "dr.santos@phc.gov.ph", Password: strongPassword})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	refreshed, err := svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	me, err := svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, me.LastLoginAt)
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	for range maxFailedAttempts {
		_, err := svc.Login(ctx, LoginCommand{Email: "dr.santos@phc.gov.ph", Password: "wrong-password-123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := svc.Login(ctx, LoginCommand{Email: "dr.santos@phc.gov.ph", Password: strongPassword})
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newAuth(t)
	_, err := svc.Login(context.Background(), LoginCommand{Email: "nobody@phc.gov.ph", Password: strongPassword})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMFA_EnrollVerifyLogin(t *testing.T) {
	svc, _, u := newAuth(t)
	ctx := context.Background()

	enr, err := svc.EnrollMFA(ctx, u.ID)
	require.NoError(t, err)
	assert.Contains(t, enr.ProvisioningURI, "otpauth://totp/")

	assert.ErrorIs(t, svc.VerifyMFA(ctx, u.ID, "000000"), ErrInvalidMFACode)

	code, err := totp.GenerateCode(enr.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.VerifyMFA(ctx, u.ID, code))

	_, err = svc.Login(ctx, LoginCommand{Email: u.Email, Password: strongPassword})
	assert.ErrorIs(t, err, ErrMFARequired)

	code, err = totp.GenerateCode(enr.Secret, time.Now())
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginCommand{Email: u.Email, Password: strongPassword, MFACode: code})
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	svc, _, u := newAuth(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "nope", "another-long-password"), ErrInvalidCredentials)

	var verr *ValidationError
	assert.ErrorAs(t, svc.ChangePassword(ctx, u.ID, strongPassword, "short"), &verr)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, strongPassword, "another-long-password"))
	_, err := svc.Login(ctx, LoginCommand{Email: u.Email, Password: "another-long-password"})
	assert.NoError(t, err)
}

func TestCreateUser_DuplicateAndValidation(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, domain.Actor{}, CreateUserCommand{
		Email: "dr.santos@phc.gov.ph", Password: strongPassword, FirstName: "A", LastName: "B", Role: domain.RoleAdmin,
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = svc.CreateUser(ctx, domain.Actor{}, CreateUserCommand{Email: "bad", Role: "janitor"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "role")
	assert.Contains(t, verr.Fields, "password")
}

func TestCreateUser_RejectsNonBareAddresses(t *testing.T) {
	svc, store, _ := newAuth(t)
	ctx := context.Background()

	for _, email := range []string{
		"Jose Santos <jose.santos@phc.gov.ph>",
		"<jose.santos@phc.gov.ph>",
		"jose.santos@",
		"",
	} {
		_, err := svc.CreateUser(ctx, domain.Actor{Role: domain.RoleAdmin}, CreateUserCommand{
			Email: email, Password: strongPassword, FirstName: "Jose", LastName: "Santos", Role: domain.RoleAdmin,
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, email)
		assert.Equal(t, []string{"must be a valid email address"}, verr.Fields["email"], email)
	}

	_, err := store.Users().GetByEmail(ctx, "jose.santos@phc.gov.ph")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUpdateNotificationPreferences(t *testing.T) {
	svc, _, u := newAuth(t)
	ctx := context.Background()

	_, err := svc.UpdateNotificationPreferences(ctx, u.ID, domain.NotificationPreferences{SMS: true})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	got, err := svc.UpdateNotificationPreferences(ctx, u.ID, domain.NotificationPreferences{Email: true, SMS: true, Phone: "+639171234567"})
	require.NoError(t, err)
	assert.True(t, got.NotificationPreferences.SMS)
}
