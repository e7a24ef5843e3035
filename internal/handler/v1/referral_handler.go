package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/middleware"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
)

type ReferralHandler struct {
	svc *service.ReferralService
}

func NewReferralHandler(svc *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{svc: svc}
}

type createReferralRequest struct {
	AssessmentID     uuid.UUID         `json:"assessment_id" binding:"required"`
	SourceFacilityID *uuid.UUID        `json:"source_facility_id"`
	TargetFacilityID uuid.UUID         `json:"target_facility_id" binding:"required"`
	Priority         referral.Priority `json:"priority"`
	Urgency          referral.Urgency  `json:"urgency"`
	Reason           string            `json:"reason" binding:"required"`
	ClinicalNotes    string            `json:"clinical_notes"`
}

type appointmentRequest struct {
	ScheduledAt  time.Time  `json:"scheduled_at" binding:"required"`
	DurationMins int        `json:"duration_mins"`
	DoctorID     *uuid.UUID `json:"doctor_id"`
	Notes        string     `json:"notes"`
}

func (r *appointmentRequest) toDomain() referral.AppointmentRequest {
	return referral.AppointmentRequest{
		ScheduledAt:  r.ScheduledAt,
		DurationMins: r.DurationMins,
		DoctorID:     r.DoctorID,
		Notes:        r.Notes,
	}
}

type acceptReferralRequest struct {
	AssignedDoctorID *uuid.UUID          `json:"assigned_doctor_id"`
	Notes            string              `json:"notes"`
	Appointment      *appointmentRequest `json:"appointment"`
}

// reasonRequest backs reject and cancel. The reason is checked by the
// service so both share one 422 shape.
type reasonRequest struct {
	Reason string `json:"reason"`
}

type updateStatusRequest struct {
	Status referral.Status `json:"status" binding:"required"`
	Notes  string          `json:"notes"`
}

type completeReferralRequest struct {
	Notes   string `json:"notes"`
	Outcome string `json:"outcome"`
}

type escalateRequest struct {
	Priority *referral.Priority `json:"priority"`
	Reason   string             `json:"reason"`
}

func (h *ReferralHandler) Create(c *gin.Context) {
	var req createReferralRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), &referral.CreateReferralCommand{
		AssessmentID:     req.AssessmentID,
		SourceFacilityID: req.SourceFacilityID,
		TargetFacilityID: req.TargetFacilityID,
		Priority:         req.Priority,
		Urgency:          req.Urgency,
		Reason:           req.Reason,
		ClinicalNotes:    req.ClinicalNotes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, r)
}

func (h *ReferralHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	r, err := h.svc.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, r)
}

func (h *ReferralHandler) List(c *gin.Context) {
	p := newQueryParser(c)
	q := &referral.ListReferralsQuery{
		Status:           optional[referral.Status](c, "status"),
		Priority:         optional[referral.Priority](c, "priority"),
		Urgency:          optional[referral.Urgency](c, "urgency"),
		TargetFacilityID: p.optUUID("target_facility_id"),
		SourceFacilityID: p.optUUID("source_facility_id"),
		AssessmentID:     p.optUUID("assessment_id"),
		DateFrom:         p.optTime("date_from"),
		DateTo:           p.optTime("date_to"),
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
	respondList(c, result.Referrals, result.Page, result.PageSize, result.TotalCount)
}

func (h *ReferralHandler) History(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	rows, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rows)
}

func (h *ReferralHandler) Accept(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req acceptReferralRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	cmd := referral.AcceptCommand{AssignedDoctorID: req.AssignedDoctorID, Notes: req.Notes}
	if req.Appointment != nil {
		appt := req.Appointment.toDomain()
		cmd.Appointment = &appt
	}
	r, err := h.svc.Accept(c.Request.Context(), middleware.Actor(c), id, cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, r)
}

func (h *ReferralHandler) Reject(c *gin.Context) {
	h.withReason(c, h.svc.Reject)
}

func (h *ReferralHandler) Cancel(c *gin.Context) {
	h.withReason(c, h.svc.Cancel)
}

type reasonFunc func(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (*referral.Referral, error)

func (h *ReferralHandler) withReason(c *gin.Context, fn reasonFunc) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	r, err := fn(c.Request.Context(), middleware.Actor(c), id, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, r)
}

func (h *ReferralHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.UpdateStatus(c.Request.Context(), middleware.Actor(c), id, req.Status, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, r)
}

func (h *ReferralHandler) ScheduleAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req appointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	r, appt, err := h.svc.ScheduleAppointment(c.Request.Context(), middleware.Actor(c), id, req.toDomain())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, gin.H{"referral": r, "appointment": appt})
}

func (h *ReferralHandler) Complete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req completeReferralRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	r, err := h.svc.Complete(c.Request.Context(), middleware.Actor(c), id, req.Notes, req.Outcome)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, r)
}

func (h *ReferralHandler) Escalate(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req escalateRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	r, err := h.svc.Escalate(c.Request.Context(), middleware.Actor(c), id, req.Priority, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, r)
}

func (h *ReferralHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "referral deleted")
}

func (h *ReferralHandler) Statistics(c *gin.Context) {
	p := newQueryParser(c)
	q := &referral.StatisticsQuery{
		TargetFacilityID: p.optUUID("target_facility_id"),
		SourceFacilityID: p.optUUID("source_facility_id"),
		DateFrom:         p.optTime("date_from"),
		DateTo:           p.optTime("date_to"),
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
