package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleFacilityAdmin Role = "facility_admin"
	RoleDoctor        Role = "doctor"
	RoleNurse         Role = "nurse"
	RoleHealthWorker  Role = "health_worker"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleFacilityAdmin, RoleDoctor, RoleNurse, RoleHealthWorker:
		return true
	}
	return false
}

type Permission string

const (
	PermAssessmentWrite    Permission = "assessment:write"
	PermAssessmentValidate Permission = "assessment:validate"
	PermAssessmentDelete   Permission = "assessment:delete"
	PermReferralCreate     Permission = "referral:create"
	PermReferralTransition Permission = "referral:transition"
	PermAppointmentWrite   Permission = "appointment:write"
	PermFacilityManage     Permission = "facility:manage"
	PermContentManage      Permission = "content:manage"
	PermUserManage         Permission = "user:manage"
	PermAnalyticsView      Permission = "analytics:view"
)

var rolePermissions = map[Role][]Permission{
	RoleFacilityAdmin: {
		PermAssessmentWrite, PermReferralCreate, PermReferralTransition,
		PermAppointmentWrite, PermAnalyticsView,
	},
	RoleDoctor: {
		PermAssessmentWrite, PermAssessmentValidate, PermReferralCreate,
		PermReferralTransition, PermAppointmentWrite, PermAnalyticsView,
	},
	RoleNurse:        {PermAssessmentWrite, PermReferralCreate, PermAppointmentWrite},
	RoleHealthWorker: {PermAssessmentWrite, PermReferralCreate, PermAppointmentWrite},
}

// Can reports whether the role holds the permission. Admins hold every permission.
func (r Role) Can(p Permission) bool {
	if r == RoleAdmin {
		return true
	}
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

// NotificationPreferences records which channels a user opted into and the
// addresses to reach them on.
type NotificationPreferences struct {
	Email     bool   `json:"email"`
	SMS       bool   `json:"sms"`
	Push      bool   `json:"push"`
	Phone     string `json:"phone,omitempty"`
	PushToken string `json:"push_token,omitempty"`
}

func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Email: true}
}

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	FirstName    string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName     string `gorm:"column:last_name;type:varchar(100);not null"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`

	// Staff are attached to the facility they work at; admins may have none.
	FacilityID *uuid.UUID `gorm:"column:facility_id;type:uuid;index"`

	IsActive          bool       `gorm:"column:is_active;default:true;index"`
	FailedLoginCount  int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil       *time.Time `gorm:"column:locked_until"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	PasswordChangedAt time.Time  `gorm:"column:password_changed_at"`

	MFAEnabled bool   `gorm:"column:mfa_enabled;default:false"`
	MFASecret  string `gorm:"column:mfa_secret;type:varchar(100)"`

	NotificationPreferences NotificationPreferences `gorm:"column:notification_preferences;type:jsonb;serializer:json"`
}

func (User) TableName() string {
	return "auth.users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

type AuditAction string

const (
	ActionCreate   AuditAction = "create"
	ActionRead     AuditAction = "read"
	ActionUpdate   AuditAction = "update"
	ActionDelete   AuditAction = "delete"
	ActionValidate AuditAction = "validate"
	ActionLogin    AuditAction = "login"
	ActionLogout   AuditAction = "logout"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID  string `gorm:"column:request_id;type:varchar(50);index"`
	UserAgent  string `gorm:"column:user_agent;type:text"`
	StatusCode int    `gorm:"column:status_code"`

	Changes datatypes.JSON `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID     uuid.UUID  `json:"sub"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	FacilityID *uuid.UUID `json:"facility_id,omitempty"`
}

// Actor identifies who is performing a service call. Handlers build it from
// the authenticated claims and request metadata.
type Actor struct {
	UserID     uuid.UUID
	Role       Role
	FacilityID *uuid.UUID
	IP         string
	RequestID  string
}

// Page is the pagination envelope shared by list queries.
type Page struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPage(page, pageSize int, total int64) Page {
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Page{Page: page, PageSize: pageSize, Total: total, TotalPages: pages}
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePaging clamps page and page size to sane bounds.
func NormalizePaging(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return page, pageSize
}
