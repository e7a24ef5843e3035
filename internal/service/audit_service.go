package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

type AuditService struct {
	repo    AuditRepository
	log     *zap.Logger
	metrics *metrics.Collector
	entries chan *domain.AuditLog
	done    chan struct{}

	// mu guards closed; senders hold it for reading so Shutdown never closes
	// entries under them.
	mu     sync.RWMutex
	closed bool
}

const auditBufferSize = 10_000

func NewAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger) *AuditService {
	return newAuditService(repo, m, log, auditBufferSize)
}

func newAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger, size int) *AuditService {
	svc := &AuditService{
		repo:    repo,
		log:     log,
		metrics: m,
		entries: make(chan *domain.AuditLog, size),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// LogAsync enqueues an audit entry for async persistence.
// If the buffer is full or the service is shut down, the entry is dropped and
// a warning is emitted.
func (s *AuditService) LogAsync(_ context.Context, entry AuditEntry) {
	al := &domain.AuditLog{
		UserID:       entry.Actor.UserID,
		UserRole:     entry.Actor.Role,
		IPAddress:    entry.Actor.IP,
		RequestID:    entry.Actor.RequestID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		StatusCode:   entry.StatusCode,
	}
	if entry.ResourceID != uuid.Nil {
		al.ResourceID = entry.ResourceID.String()
	}
	if entry.Changes != nil {
		if raw, err := json.Marshal(entry.Changes); err == nil {
			al.Changes = raw
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(entry, "audit service stopped, dropping entry")
		return
	}
	select {
	case s.entries <- al:
	default:
		s.drop(entry, "audit log buffer full, dropping entry")
	}
}

func (s *AuditService) drop(entry AuditEntry, msg string) {
	if s.metrics != nil {
		s.metrics.AuditBufferDropped.Inc()
	}
	s.log.Warn(msg,
		zap.String("action", string(entry.Action)),
		zap.String("resource", entry.ResourceType),
	)
}

// Shutdown stops accepting entries and waits for the buffer to drain. It is
// safe to call more than once.
func (s *AuditService) Shutdown() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("audit service shutdown timed out; some entries may be lost")
	}
}

func (s *AuditService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error("failed to persist audit log", zap.Error(err))
		} else if s.metrics != nil {
			s.metrics.AuditEntriesTotal.Inc()
		}
		cancel()
	}
}
