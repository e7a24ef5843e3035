package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/appointment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/assessment"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/education"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/facility"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/referral"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/service"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/logger"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success   bool                `json:"success"`
	Data      any                 `json:"data,omitempty"`
	Message   string              `json:"message,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
	Meta      *domain.Page        `json:"meta,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

func respond(c *gin.Context, status int, env Envelope) {
	env.Timestamp = time.Now().UTC()
	c.JSON(status, env)
}

func respondOK(c *gin.Context, data any) {
	respond(c, http.StatusOK, Envelope{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data any) {
	respond(c, http.StatusCreated, Envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, message string) {
	respond(c, http.StatusOK, Envelope{Success: true, Message: message})
}

func respondList(c *gin.Context, data any, page, pageSize int, total int64) {
	meta := domain.NewPage(page, pageSize, total)
	respond(c, http.StatusOK, Envelope{Success: true, Data: data, Meta: &meta})
}

func respondError(c *gin.Context, status int, message string) {
	respond(c, status, Envelope{Message: message})
}

func respondValidation(c *gin.Context, fields map[string][]string) {
	respond(c, http.StatusUnprocessableEntity, Envelope{Message: "validation failed", Errors: fields})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		respondValidation(c, validErr.Fields)
		return
	}

	switch {
	case errors.Is(err, assessment.ErrAssessmentNotFound),
		errors.Is(err, referral.ErrReferralNotFound),
		errors.Is(err, facility.ErrFacilityNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, education.ErrContentNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		respondError(c, http.StatusNotFound, err.Error())

	case errors.Is(err, referral.ErrInvalidTransition),
		errors.Is(err, referral.ErrReferralClosed),
		errors.Is(err, referral.ErrConcurrentUpdate),
		errors.Is(err, appointment.ErrInvalidStatusTransition),
		errors.Is(err, appointment.ErrAppointmentConflict),
		errors.Is(err, assessment.ErrNotValidatable),
		errors.Is(err, assessment.ErrNotEditable),
		errors.Is(err, assessment.ErrDuplicateClientID),
		errors.Is(err, facility.ErrDuplicateCode),
		errors.Is(err, facility.ErrFacilityInactive),
		errors.Is(err, domain.ErrEmailTaken):
		respondError(c, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "access denied")

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountInactive):
		respondError(c, http.StatusUnauthorized, "invalid credentials")

	case errors.Is(err, service.ErrMFARequired),
		errors.Is(err, service.ErrInvalidMFACode):
		respondError(c, http.StatusUnauthorized, err.Error())

	case errors.Is(err, service.ErrMFANotEnrolled):
		respondError(c, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrAccountLocked):
		respondError(c, http.StatusTooManyRequests, "account temporarily locked")

	default:
		logger.FromContext(c.Request.Context(), zap.L()).Error("unhandled service error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their json name so the
// errors map matches the request body.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

func bindJSON(c *gin.Context, obj any) bool {
	return bind(c, obj, false)
}

// bindOptionalJSON accepts an empty body and leaves obj at its zero value.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	return bind(c, obj, true)
}

func bind(c *gin.Context, obj any, allowEmpty bool) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}

	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verrs):
		fields := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], describe(fe))
		}
		respondValidation(c, fields)
	case errors.As(err, &typeErr):
		respondValidation(c, map[string][]string{typeErr.Field: {"has the wrong type"}})
	case errors.Is(err, io.EOF):
		respondError(c, http.StatusBadRequest, "request body is required")
	default:
		respondError(c, http.StatusBadRequest, "malformed request body")
	}
	return false
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+param+": must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// queryParser collects query string errors so a handler can report all of
// them in one 422.
type queryParser struct {
	c    *gin.Context
	errs map[string][]string
}

func newQueryParser(c *gin.Context) *queryParser {
	return &queryParser{c: c, errs: map[string][]string{}}
}

func (p *queryParser) optUUID(key string) *uuid.UUID {
	raw := p.c.Query(key)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		p.errs[key] = append(p.errs[key], "must be a valid UUID")
		return nil
	}
	return &id
}

// optTime accepts RFC3339 or a bare YYYY-MM-DD date.
func (p *queryParser) optTime(key string) *time.Time {
	raw := p.c.Query(key)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t
	}
	p.errs[key] = append(p.errs[key], "must be an RFC3339 timestamp or YYYY-MM-DD date")
	return nil
}

func (p *queryParser) optBool(key string) *bool {
	raw := p.c.Query(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs[key] = append(p.errs[key], "must be true or false")
		return nil
	}
	return &b
}

func (p *queryParser) number(key string, defaultVal float64) float64 {
	raw := p.c.Query(key)
	if raw == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs[key] = append(p.errs[key], "must be a number")
		return defaultVal
	}
	return f
}

func (p *queryParser) page() (int, int) {
	return parseQueryInt(p.c, "page", 1), parseQueryInt(p.c, "page_size", domain.DefaultPageSize)
}

// ok writes a 422 and returns false when any parameter failed to parse.
func (p *queryParser) ok() bool {
	if len(p.errs) == 0 {
		return true
	}
	respondValidation(p.c, p.errs)
	return false
}

func optional[T ~string](c *gin.Context, key string) *T {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v := T(raw)
	return &v
}
