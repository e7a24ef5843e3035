package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/repository/memory"
	"github.com/johnrobertdelinila/juan-heart-web-sub002/pkg/metrics"
)

func TestAuditService_ShutdownDrainsThenDrops(t *testing.T) {
	store := memory.NewStore()
	m := metrics.NewCollector("test")
	audit := newAuditService(store.Audit(), m, zap.NewNop(), 8)
	actor := domain.Actor{UserID: uuid.New(), Role: domain.RoleDoctor}

	audit.LogAsync(context.Background(), AuditEntry{Actor: actor, Action: domain.ActionCreate, ResourceType: "assessment"})
	audit.Shutdown()

	entries := store.Audit().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionCreate, entries[0].Action)

	assert.NotPanics(t, func() {
		audit.LogAsync(context.Background(), AuditEntry{Actor: actor, Action: domain.ActionUpdate, ResourceType: "assessment"})
	})
	assert.NotPanics(t, audit.Shutdown)
	assert.Len(t, store.Audit().Entries(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditBufferDropped))
}

func TestAuditService_FullBufferDrops(t *testing.T) {
	m := metrics.NewCollector("test")
	audit := &AuditService{
		repo:    memory.NewStore().Audit(),
		log:     zap.NewNop(),
		metrics: m,
		entries: make(chan *domain.AuditLog, 1),
		done:    make(chan struct{}),
	}
	// no worker, so the second entry finds the buffer full
	audit.LogAsync(context.Background(), AuditEntry{Action: domain.ActionRead, ResourceType: "facility"})
	audit.LogAsync(context.Background(), AuditEntry{Action: domain.ActionRead, ResourceType: "facility"})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditBufferDropped))
}
