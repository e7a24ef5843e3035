package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/middleware"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
)

type AppointmentHandler struct {
	svc *service.AppointmentService
}

func NewAppointmentHandler(svc *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

type createAppointmentRequest struct {
	ReferralID     *uuid.UUID                  `json:"referral_id"`
	AssessmentID   *uuid.UUID                  `json:"assessment_id"`
	FacilityID     uuid.UUID                   `json:"facility_id" binding:"required"`
	DoctorID       *uuid.UUID                  `json:"doctor_id"`
	PatientName    string                      `json:"patient_name" binding:"required"`
	PatientContact string                      `json:"patient_contact"`
	ScheduledAt    time.Time                   `json:"scheduled_at" binding:"required"`
	DurationMins   int                         `json:"duration_mins"`
	Type           appointment.AppointmentType `json:"type"`
	BookingSource  appointment.BookingSource   `json:"booking_source"`
	Notes          string                      `json:"notes"`
}

type rescheduleRequest struct {
	ScheduledAt  time.Time `json:"scheduled_at" binding:"required"`
	DurationMins *int      `json:"duration_mins"`
}

type cancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), &appointment.CreateAppointmentCommand{
		ReferralID:     req.ReferralID,
		AssessmentID:   req.AssessmentID,
		FacilityID:     req.FacilityID,
		DoctorID:       req.DoctorID,
		PatientName:    req.PatientName,
		PatientContact: req.PatientContact,
		ScheduledAt:    req.ScheduledAt,
		DurationMins:   req.DurationMins,
		Type:           req.Type,
		BookingSource:  req.BookingSource,
		Notes:          req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

func (h *AppointmentHandler) Get(c *gin.Context) {
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

func (h *AppointmentHandler) List(c *gin.Context) {
	p := newQueryParser(c)
	q := &appointment.ListAppointmentsQuery{
		FacilityID: p.optUUID("facility_id"),
		DoctorID:   p.optUUID("doctor_id"),
		ReferralID: p.optUUID("referral_id"),
		Status:     optional[appointment.AppointmentStatus](c, "status"),
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
	respondList(c, result.Appointments, result.Page, result.PageSize, result.TotalCount)
}

func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Reschedule(c.Request.Context(), middleware.Actor(c), id, appointment.RescheduleCommand{
		ScheduledAt:  req.ScheduledAt,
		DurationMins: req.DurationMins,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req cancelAppointmentRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	a, err := h.svc.Cancel(c.Request.Context(), middleware.Actor(c), id, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

type appointmentAction func(ctx context.Context, actor domain.Actor, id uuid.UUID) (*appointment.Appointment, error)

// transition adapts the body-less status changes (confirm, check-in, ...).
func (h *AppointmentHandler) transition(fn appointmentAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUID(c, "id")
		if !ok {
			return
		}
		a, err := fn(c.Request.Context(), middleware.Actor(c), id)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondOK(c, a)
	}
}
