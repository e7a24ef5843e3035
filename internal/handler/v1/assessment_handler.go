package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/middleware"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
)

type AssessmentHandler struct {
	svc *service.AssessmentService
}

func NewAssessmentHandler(svc *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{svc: svc}
}

type createAssessmentRequest struct {
	MobileClientID     *string               `json:"mobile_client_id"`
	PatientFirstName   string                `json:"patient_first_name" binding:"required"`
	PatientLastName    string                `json:"patient_last_name" binding:"required"`
	PatientDateOfBirth string                `json:"patient_date_of_birth" binding:"required"`
	PatientSex         assessment.Sex        `json:"patient_sex" binding:"required"`
	PatientContact     string                `json:"patient_contact"`
	Region             string                `json:"region"`
	Province           string                `json:"province"`
	City               string                `json:"city"`
	FacilityID         *uuid.UUID            `json:"facility_id"`
	Source             assessment.Source     `json:"source"`
	MLRiskScore        *float64              `json:"ml_risk_score" binding:"required"`
	MLRiskLevel        *assessment.RiskLevel `json:"ml_risk_level"`
	MLModelVersion     string                `json:"ml_model_version"`
	VitalSigns         datatypes.JSON        `json:"vital_signs"`
	Symptoms           datatypes.JSON        `json:"symptoms"`
	MedicalHistory     datatypes.JSON        `json:"medical_history"`
	Medications        datatypes.JSON        `json:"medications"`
	Lifestyle          datatypes.JSON        `json:"lifestyle"`
}

// command converts the request. A malformed date of birth is left zero and
// reported in the returned field map; a missing one is left to the service.
func (r *createAssessmentRequest) command() (*assessment.CreateAssessmentCommand, map[string][]string) {
	var (
		fieldErrs map[string][]string
		dob       time.Time
	)
	if r.PatientDateOfBirth != "" {
		var err error
		if dob, err = parseDate(r.PatientDateOfBirth); err != nil {
			fieldErrs = map[string][]string{"patient_date_of_birth": {"must be a YYYY-MM-DD date"}}
		}
	}
	score := 0.0
	if r.MLRiskScore != nil {
		score = *r.MLRiskScore
	}
	return &assessment.CreateAssessmentCommand{
		PatientFirstName:   r.PatientFirstName,
		PatientLastName:    r.PatientLastName,
		PatientDateOfBirth: dob,
		PatientSex:         r.PatientSex,
		PatientContact:     r.PatientContact,
		Region:             r.Region,
		Province:           r.Province,
		City:               r.City,
		FacilityID:         r.FacilityID,
		MobileClientID:     r.MobileClientID,
		Source:             r.Source,
		MLRiskScore:        score,
		MLRiskLevel:        r.MLRiskLevel,
		MLModelVersion:     r.MLModelVersion,
		VitalSigns:         r.VitalSigns,
		Symptoms:           r.Symptoms,
		MedicalHistory:     r.MedicalHistory,
		Medications:        r.Medications,
		Lifestyle:          r.Lifestyle,
	}, fieldErrs
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

type updateAssessmentRequest struct {
	PatientFirstName *string            `json:"patient_first_name"`
	PatientLastName  *string            `json:"patient_last_name"`
	PatientContact   *string            `json:"patient_contact"`
	Region           *string            `json:"region"`
	Province         *string            `json:"province"`
	City             *string            `json:"city"`
	Status           *assessment.Status `json:"status"`
	VitalSigns       datatypes.JSON     `json:"vital_signs"`
	Symptoms         datatypes.JSON     `json:"symptoms"`
	MedicalHistory   datatypes.JSON     `json:"medical_history"`
	Medications      datatypes.JSON     `json:"medications"`
	Lifestyle        datatypes.JSON     `json:"lifestyle"`
}

type validateAssessmentRequest struct {
	ValidatedRiskScore *float64              `json:"validated_risk_score" binding:"required"`
	ValidatedRiskLevel *assessment.RiskLevel `json:"validated_risk_level"`
	ValidationNotes    string                `json:"validation_notes"`
	AgreesWithML       *bool                 `json:"agrees_with_ml"`
	RequiresReferral   bool                  `json:"requires_referral"`
}

func (h *AssessmentHandler) Create(c *gin.Context) {
	var req createAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd, fieldErrs := req.command()
	if fieldErrs != nil {
		respondValidation(c, fieldErrs)
		return
	}
	a, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

func (h *AssessmentHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AssessmentHandler) List(c *gin.Context) {
	p := newQueryParser(c)
	q := &assessment.ListAssessmentsQuery{
		Status:     optional[assessment.Status](c, "status"),
		RiskLevel:  optional[assessment.RiskLevel](c, "risk_level"),
		FacilityID: p.optUUID("facility_id"),
		Search:     c.Query("search"),
		DateFrom:   p.optTime("date_from"),
		DateTo:     p.optTime("date_to"),
	}
	q.Page, q.PageSize = p.page()
	if !p.ok() {
		return
	}

	result, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondList(c, result.Assessments, result.Page, result.PageSize, result.TotalCount)
}

func (h *AssessmentHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Update(c.Request.Context(), middleware.Actor(c), id, &assessment.UpdateAssessmentCommand{
		PatientFirstName: req.PatientFirstName,
		PatientLastName:  req.PatientLastName,
		PatientContact:   req.PatientContact,
		Region:           req.Region,
		Province:         req.Province,
		City:             req.City,
		Status:           req.Status,
		VitalSigns:       req.VitalSigns,
		Symptoms:         req.Symptoms,
		MedicalHistory:   req.MedicalHistory,
		Medications:      req.Medications,
		Lifestyle:        req.Lifestyle,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AssessmentHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "assessment deleted")
}

func (h *AssessmentHandler) Validate(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req validateAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Validate(c.Request.Context(), middleware.Actor(c), id, assessment.ValidateCommand{
		Score:            *req.ValidatedRiskScore,
		Level:            req.ValidatedRiskLevel,
		Notes:            req.ValidationNotes,
		AgreesWithML:     req.AgreesWithML,
		RequiresReferral: req.RequiresReferral,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AssessmentHandler) Statistics(c *gin.Context) {
	p := newQueryParser(c)
	q := &assessment.StatisticsQuery{
		FacilityID: p.optUUID("facility_id"),
		DateFrom:   p.optTime("date_from"),
		DateTo:     p.optTime("date_to"),
	}
	if !p.ok() {
		return
	}
	stats, err := h.svc.Statistics(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, stats)
}
