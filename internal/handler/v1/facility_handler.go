package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/middleware"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
)

type FacilityHandler struct {
	svc *service.FacilityService
}

func NewFacilityHandler(svc *service.FacilityService) *FacilityHandler {
	return &FacilityHandler{svc: svc}
}

type createFacilityRequest struct {
	Code                   string        `json:"code" binding:"required"`
	Name                   string        `json:"name" binding:"required"`
	Type                   facility.Type `json:"type" binding:"required"`
	Address                string        `json:"address"`
	City                   string        `json:"city"`
	Province               string        `json:"province"`
	Region                 string        `json:"region" binding:"required"`
	Latitude               float64       `json:"latitude"`
	Longitude              float64       `json:"longitude"`
	Phone                  string        `json:"phone"`
	Email                  string        `json:"email" binding:"omitempty,email"`
	Services               []string      `json:"services"`
	BedCapacity            int           `json:"bed_capacity" binding:"gte=0"`
	AvailableBeds          int           `json:"available_beds" binding:"gte=0"`
	ICUCapacity            int           `json:"icu_capacity" binding:"gte=0"`
	AvailableICUBeds       int           `json:"available_icu_beds" binding:"gte=0"`
	IsPhilHealthAccredited bool          `json:"is_philhealth_accredited"`
	IsDOHLicensed          bool          `json:"is_doh_licensed"`
	HasCardiologyUnit      bool          `json:"has_cardiology_unit"`
	HasEmergencyRoom       bool          `json:"has_emergency_room"`
}

type updateFacilityRequest struct {
	Name                   *string        `json:"name"`
	Type                   *facility.Type `json:"type"`
	Address                *string        `json:"address"`
	City                   *string        `json:"city"`
	Province               *string        `json:"province"`
	Region                 *string        `json:"region"`
	Latitude               *float64       `json:"latitude"`
	Longitude              *float64       `json:"longitude"`
	Phone                  *string        `json:"phone"`
	Email                  *string        `json:"email" binding:"omitempty,email"`
	Services               *[]string      `json:"services"`
	BedCapacity            *int           `json:"bed_capacity"`
	AvailableBeds          *int           `json:"available_beds"`
	ICUCapacity            *int           `json:"icu_capacity"`
	AvailableICUBeds       *int           `json:"available_icu_beds"`
	IsPhilHealthAccredited *bool          `json:"is_philhealth_accredited"`
	IsDOHLicensed          *bool          `json:"is_doh_licensed"`
	HasCardiologyUnit      *bool          `json:"has_cardiology_unit"`
	HasEmergencyRoom       *bool          `json:"has_emergency_room"`
	IsActive               *bool          `json:"is_active"`
}

func (h *FacilityHandler) List(c *gin.Context) {
	p := newQueryParser(c)
	q := &facility.ListFacilitiesQuery{
		Region:            c.Query("region"),
		Province:          c.Query("province"),
		City:              c.Query("city"),
		Type:              optional[facility.Type](c, "type"),
		Service:           c.Query("service"),
		HasCardiologyUnit: p.optBool("has_cardiology_unit"),
		HasEmergencyRoom:  p.optBool("has_emergency_room"),
		Search:            c.Query("search"),
		IsActive:          p.optBool("is_active"),
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
	respondList(c, result.Facilities, result.Page, result.PageSize, result.TotalCount)
}

func (h *FacilityHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	f, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, f)
}

func (h *FacilityHandler) Nearby(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	p := newQueryParser(c)
	radius := p.number("radius_km", 0)
	if !p.ok() {
		return
	}
	rows, err := h.svc.Nearby(c.Request.Context(), id, radius, parseQueryInt(c, "limit", 0))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rows)
}

func (h *FacilityHandler) Capacity(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	capacity, err := h.svc.Capacity(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, capacity)
}

func (h *FacilityHandler) Create(c *gin.Context) {
	var req createFacilityRequest
	if !bindJSON(c, &req) {
		return
	}
	f, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), &facility.CreateFacilityCommand{
		Code:                   req.Code,
		Name:                   req.Name,
		Type:                   req.Type,
		Address:                req.Address,
		City:                   req.City,
		Province:               req.Province,
		Region:                 req.Region,
		Latitude:               req.Latitude,
		Longitude:              req.Longitude,
		Phone:                  req.Phone,
		Email:                  req.Email,
		Services:               req.Services,
		BedCapacity:            req.BedCapacity,
		AvailableBeds:          req.AvailableBeds,
		ICUCapacity:            req.ICUCapacity,
		AvailableICUBeds:       req.AvailableICUBeds,
		IsPhilHealthAccredited: req.IsPhilHealthAccredited,
		IsDOHLicensed:          req.IsDOHLicensed,
		HasCardiologyUnit:      req.HasCardiologyUnit,
		HasEmergencyRoom:       req.HasEmergencyRoom,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, f)
}

func (h *FacilityHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateFacilityRequest
	if !bindJSON(c, &req) {
		return
	}
	f, err := h.svc.Update(c.Request.Context(), middleware.Actor(c), id, &facility.UpdateFacilityCommand{
		Name:                   req.Name,
		Type:                   req.Type,
		Address:                req.Address,
		City:                   req.City,
		Province:               req.Province,
		Region:                 req.Region,
		Latitude:               req.Latitude,
		Longitude:              req.Longitude,
		Phone:                  req.Phone,
		Email:                  req.Email,
		Services:               req.Services,
		BedCapacity:            req.BedCapacity,
		AvailableBeds:          req.AvailableBeds,
		ICUCapacity:            req.ICUCapacity,
		AvailableICUBeds:       req.AvailableICUBeds,
		IsPhilHealthAccredited: req.IsPhilHealthAccredited,
		IsDOHLicensed:          req.IsDOHLicensed,
		HasCardiologyUnit:      req.HasCardiologyUnit,
		HasEmergencyRoom:       req.HasEmergencyRoom,
		IsActive:               req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, f)
}

func (h *FacilityHandler) Deactivate(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	f, err := h.svc.Deactivate(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, f)
}
