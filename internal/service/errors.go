package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

// ValidationError collects field-level problems with a request.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// Check records msg against field when ok is false.
func (e *ValidationError) Check(ok bool, field, msg string) {
	if !ok {
		e.Add(field, msg)
	}
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) error {
	v := NewValidationError()
	v.Add(field, msg)
	return v
}

// TxManager runs fn inside one database transaction. Repositories called with
// the ctx passed to fn join that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditEntry struct {
	Actor        domain.Actor
	Action       domain.AuditAction
	ResourceType string
	ResourceID   uuid.UUID
	StatusCode   int
	Changes      any
}
