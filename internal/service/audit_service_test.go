package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/pkg/jobs"
)

type mockAuditWriter struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (m *mockAuditWriter) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestAuditServiceRecordsAsynchronously(t *testing.T) {
	writer := &mockAuditWriter{}
	svc := NewAuditService(writer, jobs.QueueConfig{Workers: 1, BufferSize: 4}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	svc.Record(AuditEntry{
		UserID:     "t1",
		Action:     models.AuditActionAttendanceMark,
		Resource:   "attendance",
		ResourceID: "att-1",
		NewValues:  map[string]interface{}{"status": "PRESENT"},
	})

	require.Eventually(t, func() bool { return writer.count() == 1 }, time.Second, 10*time.Millisecond)

	writer.mu.Lock()
	entry := writer.entries[0]
	writer.mu.Unlock()
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "t1", *entry.UserID)
	assert.Equal(t, models.AuditActionAttendanceMark, entry.Action)
	assert.NotEmpty(t, entry.NewValues)
}

func TestAuditServiceNilReceiverIsNoop(t *testing.T) {
	var svc *AuditService
	svc.Record(AuditEntry{Action: models.AuditActionLogin})
}
