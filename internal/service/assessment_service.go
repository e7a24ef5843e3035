package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

type AssessmentService struct {
	repo       assessment.Repository
	thresholds assessment.RiskThresholds
	auditSvc   *AuditService
	metrics    *metrics.Collector
	log        *zap.Logger
}

func NewAssessmentService(
	repo assessment.Repository,
	thresholds assessment.RiskThresholds,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *AssessmentService {
	return &AssessmentService{repo: repo, thresholds: thresholds, auditSvc: auditSvc, metrics: m, log: log}
}

func (s *AssessmentService) Thresholds() assessment.RiskThresholds {
	return s.thresholds
}

func validateCreate(cmd *assessment.CreateAssessmentCommand) error {
	v := NewValidationError()
	v.Check(strings.TrimSpace(cmd.PatientFirstName) != "", "patient_first_name", "is required")
	v.Check(strings.TrimSpace(cmd.PatientLastName) != "", "patient_last_name", "is required")
	v.Check(!cmd.PatientDateOfBirth.IsZero(), "patient_date_of_birth", "is required")
	v.Check(cmd.PatientDateOfBirth.Before(time.Now()), "patient_date_of_birth", "must be in the past")
	v.Check(cmd.PatientSex.IsValid(), "patient_sex", "must be one of male, female, other")
	v.Check(assessment.ValidScore(cmd.MLRiskScore), "ml_risk_score", assessment.ErrScoreOutOfRange.Error())
	if cmd.MLRiskLevel != nil {
		v.Check(cmd.MLRiskLevel.IsValid(), "ml_risk_level", "must be one of low, moderate, high")
	}
	if cmd.MobileClientID != nil {
		v.Check(strings.TrimSpace(*cmd.MobileClientID) != "", "mobile_client_id", "must not be blank")
	}
	return v.Err()
}

// build turns a validated command into a new pending assessment.
func (s *AssessmentService) build(cmd *assessment.CreateAssessmentCommand) *assessment.Assessment {
	level := s.thresholds.Level(cmd.MLRiskScore)
	if cmd.MLRiskLevel != nil {
		level = *cmd.MLRiskLevel
	}
	source := cmd.Source
	if source == "" {
		source = assessment.SourceWeb
	}

	a := &assessment.Assessment{
		PatientFirstName:   strings.TrimSpace(cmd.PatientFirstName),
		PatientLastName:    strings.TrimSpace(cmd.PatientLastName),
		PatientDateOfBirth: cmd.PatientDateOfBirth,
		PatientSex:         cmd.PatientSex,
		PatientContact:     cmd.PatientContact,
		Region:             cmd.Region,
		Province:           cmd.Province,
		City:               cmd.City,
		FacilityID:         cmd.FacilityID,
		MobileClientID:     cmd.MobileClientID,
		Source:             source,
		MLRiskScore:        cmd.MLRiskScore,
		MLRiskLevel:        level,
		MLModelVersion:     cmd.MLModelVersion,
		VitalSigns:         cmd.VitalSigns,
		Symptoms:           cmd.Symptoms,
		MedicalHistory:     cmd.MedicalHistory,
		Medications:        cmd.Medications,
		Lifestyle:          cmd.Lifestyle,
		Status:             assessment.StatusPending,
		CreatedBy:          cmd.CreatedBy,
	}
	a.RefreshFinalRiskLevel()
	return a
}

func (s *AssessmentService) Create(ctx context.Context, actor domain.Actor, cmd *assessment.CreateAssessmentCommand) (*assessment.Assessment, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}
	if cmd.CreatedBy == nil && actor.UserID != uuid.Nil {
		cmd.CreatedBy = &actor.UserID
	}

	a := s.build(cmd)
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, assessment.ErrDuplicateClientID) {
			return nil, err
		}
		s.log.Error("failed to create assessment", zap.Error(err))
		return nil, fmt.Errorf("creating assessment: %w", err)
	}

	s.metrics.AssessmentsCreated.WithLabelValues(string(a.Source), string(a.MLRiskLevel)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionCreate, ResourceType: "assessment", ResourceID: a.ID})
	s.log.Info("assessment created",
		zap.String("assessment_id", a.ID.String()),
		zap.String("ml_risk_level", string(a.MLRiskLevel)),
	)
	return a, nil
}

func (s *AssessmentService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*assessment.Assessment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionRead, ResourceType: "assessment", ResourceID: id})
	return a, nil
}

func (s *AssessmentService) List(ctx context.Context, q *assessment.ListAssessmentsQuery) (*assessment.PagedAssessments, error) {
	if q.Status != nil && !q.Status.IsValid() {
		return nil, fieldError("status", assessment.ErrInvalidStatus.Error())
	}
	if q.RiskLevel != nil && !q.RiskLevel.IsValid() {
		return nil, fieldError("risk_level", assessment.ErrInvalidRiskLevel.Error())
	}
	q.Page, q.PageSize = domain.NormalizePaging(q.Page, q.PageSize)
	return s.repo.List(ctx, q)
}

// Update edits demographics, clinical blobs and the pre-validation status of
// an open assessment. ML output and validation fields are never touched here.
func (s *AssessmentService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd *assessment.UpdateAssessmentCommand) (*assessment.Assessment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.IsClosed() {
		return nil, assessment.ErrNotEditable
	}

	v := NewValidationError()
	if cmd.PatientFirstName != nil {
		v.Check(strings.TrimSpace(*cmd.PatientFirstName) != "", "patient_first_name", "must not be blank")
		a.PatientFirstName = strings.TrimSpace(*cmd.PatientFirstName)
	}
	if cmd.PatientLastName != nil {
		v.Check(strings.TrimSpace(*cmd.PatientLastName) != "", "patient_last_name", "must not be blank")
		a.PatientLastName = strings.TrimSpace(*cmd.PatientLastName)
	}
	if cmd.Status != nil {
		switch {
		case !cmd.Status.IsValid():
			v.Add("status", assessment.ErrInvalidStatus.Error())
		case !cmd.Status.Editable():
			v.Add("status", assessment.ErrStatusNotEditable.Error())
		case *cmd.Status == assessment.StatusRejected && !actor.Role.Can(domain.PermAssessmentValidate):
			return nil, ErrForbidden
		default:
			a.Status = *cmd.Status
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if cmd.PatientContact != nil {
		a.PatientContact = *cmd.PatientContact
	}
	if cmd.Region != nil {
		a.Region = *cmd.Region
	}
	if cmd.Province != nil {
		a.Province = *cmd.Province
	}
	if cmd.City != nil {
		a.City = *cmd.City
	}
	if cmd.VitalSigns != nil {
		a.VitalSigns = cmd.VitalSigns
	}
	if cmd.Symptoms != nil {
		a.Symptoms = cmd.Symptoms
	}
	if cmd.MedicalHistory != nil {
		a.MedicalHistory = cmd.MedicalHistory
	}
	if cmd.Medications != nil {
		a.Medications = cmd.Medications
	}
	if cmd.Lifestyle != nil {
		a.Lifestyle = cmd.Lifestyle
	}

	if err := s.repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("updating assessment: %w", err)
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionUpdate, ResourceType: "assessment", ResourceID: id})
	return a, nil
}

func (s *AssessmentService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{Actor: actor, Action: domain.ActionDelete, ResourceType: "assessment", ResourceID: id})
	s.log.Info("assessment deleted", zap.String("assessment_id", id.String()))
	return nil
}

// Validate records the clinician's review. The ML fields stay as submitted.
func (s *AssessmentService) Validate(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd assessment.ValidateCommand) (*assessment.Assessment, error) {
	if !assessment.ValidScore(cmd.Score) {
		return nil, fieldError("validated_risk_score", assessment.ErrScoreOutOfRange.Error())
	}
	if cmd.Level != nil && !cmd.Level.IsValid() {
		return nil, fieldError("validated_risk_level", "must be one of low, moderate, high")
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cmd.ValidatedBy = actor.UserID
	if err := a.Validate(s.thresholds, cmd); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, a); err != nil {
		s.log.Error("failed to save validation", zap.Error(err))
		return nil, fmt.Errorf("saving validation: %w", err)
	}

	agrees := "false"
	if a.AgreesWithML != nil && *a.AgreesWithML {
		agrees = "true"
	}
	s.metrics.ValidationsTotal.WithLabelValues(agrees).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionValidate,
		ResourceType: "assessment",
		ResourceID:   id,
		Changes: map[string]any{
			"validated_risk_score": cmd.Score,
			"final_risk_level":     a.FinalRiskLevel,
			"status":               a.Status,
		},
	})
	s.log.Info("assessment validated",
		zap.String("assessment_id", id.String()),
		zap.String("final_risk_level", string(a.FinalRiskLevel)),
		zap.String("validated_by", actor.UserID.String()),
	)
	return a, nil
}

func (s *AssessmentService) Statistics(ctx context.Context, q *assessment.StatisticsQuery) (*assessment.Statistics, error) {
	return s.repo.Statistics(ctx, q)
}
