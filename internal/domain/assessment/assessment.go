package assessment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

func (s Sex) IsValid() bool {
	switch s {
	case SexMale, SexFemale, SexOther:
		return true
	}
	return false
}

// Status values:
//
//	pending → in_review → validated → requires_referral → completed
//	any non-terminal → rejected
type Status string

const (
	StatusPending          Status = "pending"
	StatusInReview         Status = "in_review"
	StatusValidated        Status = "validated"
	StatusRequiresReferral Status = "requires_referral"
	StatusCompleted        Status = "completed"
	StatusRejected         Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInReview, StatusValidated, StatusRequiresReferral, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

func (s Status) IsClosed() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Editable reports whether a plain update may move an assessment to s.
// validated and requires_referral are only set by Validate, completed only by
// the referral flow. rejected is editable but needs a validator.
func (s Status) Editable() bool {
	switch s {
	case StatusPending, StatusInReview, StatusRejected:
		return true
	}
	return false
}

type Source string

const (
	SourceWeb    Source = "web"
	SourceMobile Source = "mobile"
)

type Assessment struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	PatientFirstName   string    `gorm:"column:patient_first_name;type:varchar(100);not null" json:"patient_first_name"`
	PatientLastName    string    `gorm:"column:patient_last_name;type:varchar(100);not null" json:"patient_last_name"`
	PatientDateOfBirth time.Time `gorm:"column:patient_date_of_birth;not null" json:"patient_date_of_birth"`
	PatientSex         Sex       `gorm:"column:patient_sex;type:varchar(10);not null" json:"patient_sex"`
	PatientContact     string    `gorm:"column:patient_contact;type:varchar(50)" json:"patient_contact,omitempty"`
	Region             string    `gorm:"column:region;type:varchar(50);index" json:"region,omitempty"`
	Province           string    `gorm:"column:province;type:varchar(100)" json:"province,omitempty"`
	City               string    `gorm:"column:city;type:varchar(100)" json:"city,omitempty"`

	FacilityID     *uuid.UUID `gorm:"column:facility_id;type:uuid;index" json:"facility_id,omitempty"`
	MobileClientID *string    `gorm:"column:mobile_client_id;type:varchar(100);uniqueIndex" json:"mobile_client_id,omitempty"`
	Source         Source     `gorm:"column:source;type:varchar(10);not null;default:'web'" json:"source"`

	// ML output is stored verbatim and never overwritten by validation.
	MLRiskScore    float64   `gorm:"column:ml_risk_score;not null" json:"ml_risk_score"`
	MLRiskLevel    RiskLevel `gorm:"column:ml_risk_level;type:varchar(20);not null" json:"ml_risk_level"`
	MLModelVersion string    `gorm:"column:ml_model_version;type:varchar(50)" json:"ml_model_version,omitempty"`

	ValidatedRiskScore *float64   `gorm:"column:validated_risk_score" json:"validated_risk_score,omitempty"`
	ValidatedRiskLevel *RiskLevel `gorm:"column:validated_risk_level;type:varchar(20)" json:"validated_risk_level,omitempty"`
	ValidationNotes    string     `gorm:"column:validation_notes;type:text" json:"validation_notes,omitempty"`
	AgreesWithML       *bool      `gorm:"column:agrees_with_ml" json:"agrees_with_ml,omitempty"`
	ValidatedBy        *uuid.UUID `gorm:"column:validated_by;type:uuid" json:"validated_by,omitempty"`
	ValidatedAt        *time.Time `gorm:"column:validated_at" json:"validated_at,omitempty"`

	FinalRiskLevel RiskLevel `gorm:"column:final_risk_level;type:varchar(20);not null;index" json:"final_risk_level"`

	VitalSigns     datatypes.JSON `gorm:"column:vital_signs;type:jsonb" json:"vital_signs,omitempty"`
	Symptoms       datatypes.JSON `gorm:"column:symptoms;type:jsonb" json:"symptoms,omitempty"`
	MedicalHistory datatypes.JSON `gorm:"column:medical_history;type:jsonb" json:"medical_history,omitempty"`
	Medications    datatypes.JSON `gorm:"column:medications;type:jsonb" json:"medications,omitempty"`
	Lifestyle      datatypes.JSON `gorm:"column:lifestyle;type:jsonb" json:"lifestyle,omitempty"`

	Status Status `gorm:"column:status;type:varchar(30);not null;default:'pending';index" json:"status"`

	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid" json:"created_by,omitempty"`
}

func (Assessment) TableName() string {
	return "clinical.assessments"
}

func (a *Assessment) PatientName() string {
	return strings.TrimSpace(a.PatientFirstName + " " + a.PatientLastName)
}

func (a *Assessment) IsValidated() bool {
	return a.ValidatedAt != nil
}

// RefreshFinalRiskLevel keeps FinalRiskLevel pointing at the clinical level
// when one exists and at the ML level otherwise.
func (a *Assessment) RefreshFinalRiskLevel() {
	if a.ValidatedRiskLevel != nil {
		a.FinalRiskLevel = *a.ValidatedRiskLevel
		return
	}
	a.FinalRiskLevel = a.MLRiskLevel
}

// Validate records a clinician's review. Level is derived from score with t
// when nil; agrees defaults to whether the clinical level matches the ML level.
func (a *Assessment) Validate(t RiskThresholds, cmd ValidateCommand) error {
	if a.Status.IsClosed() {
		return ErrNotValidatable
	}
	if !ValidScore(cmd.Score) {
		return ErrScoreOutOfRange
	}

	level := t.Level(cmd.Score)
	if cmd.Level != nil {
		if !cmd.Level.IsValid() {
			return ErrInvalidRiskLevel
		}
		level = *cmd.Level
	}

	agrees := level == a.MLRiskLevel
	if cmd.AgreesWithML != nil {
		agrees = *cmd.AgreesWithML
	}

	now := time.Now()
	score := cmd.Score
	validator := cmd.ValidatedBy
	a.ValidatedRiskScore = &score
	a.ValidatedRiskLevel = &level
	a.ValidationNotes = cmd.Notes
	a.AgreesWithML = &agrees
	a.ValidatedBy = &validator
	a.ValidatedAt = &now

	a.Status = StatusValidated
	if cmd.RequiresReferral {
		a.Status = StatusRequiresReferral
	}

	a.RefreshFinalRiskLevel()
	return nil
}

type CreateAssessmentCommand struct {
	PatientFirstName   string
	PatientLastName    string
	PatientDateOfBirth time.Time
	PatientSex         Sex
	PatientContact     string
	Region             string
	Province           string
	City               string
	FacilityID         *uuid.UUID
	MobileClientID     *string
	Source             Source
	MLRiskScore        float64
	MLRiskLevel        *RiskLevel
	MLModelVersion     string
	VitalSigns         datatypes.JSON
	Symptoms           datatypes.JSON
	MedicalHistory     datatypes.JSON
	Medications        datatypes.JSON
	Lifestyle          datatypes.JSON
	CreatedBy          *uuid.UUID
}

type UpdateAssessmentCommand struct {
	PatientFirstName *string
	PatientLastName  *string
	PatientContact   *string
	Region           *string
	Province         *string
	City             *string
	Status           *Status
	VitalSigns       datatypes.JSON
	Symptoms         datatypes.JSON
	MedicalHistory   datatypes.JSON
	Medications      datatypes.JSON
	Lifestyle        datatypes.JSON
}

type ValidateCommand struct {
	Score            float64
	Level            *RiskLevel
	Notes            string
	AgreesWithML     *bool
	RequiresReferral bool
	ValidatedBy      uuid.UUID
}

type ListAssessmentsQuery struct {
	Status     *Status
	RiskLevel  *RiskLevel
	FacilityID *uuid.UUID
	Search     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

type PagedAssessments struct {
	Assessments []*Assessment
	TotalCount  int64
	Page        int
	PageSize    int
}

type StatisticsQuery struct {
	FacilityID *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
}

type Statistics struct {
	Total                int64               `json:"total"`
	ByStatus             map[Status]int64    `json:"by_status"`
	ByRiskLevel          map[RiskLevel]int64 `json:"by_risk_level"`
	Validated            int64               `json:"validated"`
	AgreesWithML         int64               `json:"agrees_with_ml"`
	MLAgreementRate      float64             `json:"ml_agreement_rate"`
	AverageMLScore       float64             `json:"average_ml_score"`
	AverageClinicalScore float64             `json:"average_clinical_score"`
}

// SyncRecord is the lightweight projection returned to mobile clients.
type SyncRecord struct {
	ID             uuid.UUID `json:"id"`
	MobileClientID *string   `json:"mobile_client_id,omitempty"`
	PatientName    string    `json:"patient_name"`
	FinalRiskLevel RiskLevel `json:"final_risk_level"`
	MLRiskScore    float64   `json:"ml_risk_score"`
	Status         Status    `json:"status"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (a *Assessment) ToSyncRecord() SyncRecord {
	return SyncRecord{
		ID:             a.ID,
		MobileClientID: a.MobileClientID,
		PatientName:    a.PatientName(),
		FinalRiskLevel: a.FinalRiskLevel,
		MLRiskScore:    a.MLRiskScore,
		Status:         a.Status,
		UpdatedAt:      a.UpdatedAt,
	}
}
