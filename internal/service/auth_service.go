package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrMFARequired        = errors.New("mfa code required")
	ErrInvalidMFACode     = errors.New("invalid mfa code")
	ErrMFANotEnrolled     = errors.New("mfa enrollment has not been started")
)

const maxFailedAttempts = 5

// validate checks single values the way request binding does; it is safe for
// concurrent use.
var validate = validator.New()

const lockDuration = 15 * time.Minute

const minPasswordLength = 12

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SaveLoginState(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	UpdateMFA(ctx context.Context, id uuid.UUID, secret string, enabled bool) error
	UpdateNotificationPreferences(ctx context.Context, id uuid.UUID, prefs domain.NotificationPreferences) error
	ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]*domain.User, error)
}

type AuthService struct {
	userRepo   UserRepository
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	issuer     string
	log        *zap.Logger
}

func NewAuthService(userRepo UserRepository, jwtManager *auth.JWTManager, auditSvc *AuditService, issuer string, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, jwtManager: jwtManager, auditSvc: auditSvc, issuer: issuer, log: log}
}

type LoginCommand struct {
	Email    string
	Password string
	MFACode  string
	IP       string
}

func (s *AuthService) Login(ctx context.Context, cmd LoginCommand) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, cmd.Email)
	if err != nil {
		// Spend a bcrypt round anyway so response time does not reveal
		// whether the email exists.
		_, _ = bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)); err != nil {
		s.recordFailure(ctx, user)
		s.log.Warn("failed login attempt",
			zap.String("email", cmd.Email),
			zap.String("ip", cmd.IP),
			zap.Int("failed_count", user.FailedLoginCount),
		)
		return nil, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if cmd.MFACode == "" {
			return nil, ErrMFARequired
		}
		if !totp.Validate(cmd.MFACode, user.MFASecret) {
			s.recordFailure(ctx, user)
			return nil, ErrInvalidMFACode
		}
	}

	now := time.Now()
	user.FailedLoginCount = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	if err := s.userRepo.SaveLoginState(ctx, user); err != nil {
		s.log.Error("failed to record login", zap.Error(err))
	}

	pair, err := s.jwtManager.GenerateTokenPair(claimsFor(user))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        domain.Actor{UserID: user.ID, Role: user.Role, FacilityID: user.FacilityID, IP: cmd.IP},
		Action:       domain.ActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID,
	})
	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", cmd.IP),
	)

	return pair, nil
}

// recordFailure bumps the failed counter and locks the account once it reaches
// maxFailedAttempts. The counter restarts after a lock.
func (s *AuthService) recordFailure(ctx context.Context, user *domain.User) {
	user.FailedLoginCount++
	if user.FailedLoginCount >= maxFailedAttempts {
		until := time.Now().Add(lockDuration)
		user.LockedUntil = &until
		user.FailedLoginCount = 0
		s.log.Warn("account locked", zap.String("user_id", user.ID.String()), zap.Time("until", until))
	}
	if err := s.userRepo.SaveLoginState(ctx, user); err != nil {
		s.log.Error("failed to record failed login", zap.Error(err))
	}
}

func claimsFor(u *domain.User) *domain.Claims {
	return &domain.Claims{
		UserID:     u.ID,
		Email:      u.Email,
		Role:       u.Role,
		FacilityID: u.FacilityID,
	}
}

// RefreshToken issues a new pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Role or facility may have changed since the token was issued.
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(claimsFor(user))
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ChangePassword updates a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if err := validatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

func validatePasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return fieldError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	return nil
}

type MFAEnrollment struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// EnrollMFA generates a TOTP secret and stores it disabled until VerifyMFA
// confirms the user's authenticator produces valid codes.
func (s *AuthService) EnrollMFA(ctx context.Context, userID uuid.UUID) (*MFAEnrollment, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("generating totp secret: %w", err)
	}

	if err := s.userRepo.UpdateMFA(ctx, userID, key.Secret(), false); err != nil {
		return nil, fmt.Errorf("storing totp secret: %w", err)
	}
	return &MFAEnrollment{Secret: key.Secret(), ProvisioningURI: key.URL()}, nil
}

func (s *AuthService) VerifyMFA(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.MFASecret == "" {
		return ErrMFANotEnrolled
	}
	if !totp.Validate(code, user.MFASecret) {
		return ErrInvalidMFACode
	}
	return s.userRepo.UpdateMFA(ctx, userID, user.MFASecret, true)
}

type CreateUserCommand struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Role       domain.Role
	FacilityID *uuid.UUID
}

func (s *AuthService) CreateUser(ctx context.Context, actor domain.Actor, cmd CreateUserCommand) (*domain.User, error) {
	v := NewValidationError()
	v.Check(validate.Var(cmd.Email, "required,email") == nil, "email", "must be a valid email address")
	v.Check(strings.TrimSpace(cmd.FirstName) != "", "first_name", "is required")
	v.Check(strings.TrimSpace(cmd.LastName) != "", "last_name", "is required")
	v.Check(cmd.Role.IsValid(), "role", domain.ErrInvalidRole.Error())
	v.Check(len(cmd.Password) >= minPasswordLength, "password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	if cmd.Role != domain.RoleAdmin {
		v.Check(cmd.FacilityID != nil, "facility_id", "is required for facility staff")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &domain.User{
		Email:                   cmd.Email,
		PasswordHash:            string(hash),
		FirstName:               strings.TrimSpace(cmd.FirstName),
		LastName:                strings.TrimSpace(cmd.LastName),
		Role:                    cmd.Role,
		FacilityID:              cmd.FacilityID,
		IsActive:                true,
		PasswordChangedAt:       time.Now(),
		NotificationPreferences: domain.DefaultNotificationPreferences(),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionCreate, ResourceType: "user", ResourceID: u.ID})
	s.log.Info("user created", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
	return u, nil
}

func (s *AuthService) UpdateNotificationPreferences(ctx context.Context, userID uuid.UUID, prefs domain.NotificationPreferences) (*domain.User, error) {
	v := NewValidationError()
	v.Check(!prefs.SMS || prefs.Phone != "", "phone", "is required when sms is enabled")
	v.Check(!prefs.Push || prefs.PushToken != "", "push_token", "is required when push is enabled")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateNotificationPreferences(ctx, userID, prefs); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}
