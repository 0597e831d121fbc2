package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/pkg/jobs"
)

type auditLogWriter interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// AuditEntry is the caller-facing description of an auditable event.
type AuditEntry struct {
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	NewValues  map[string]interface{}
	IPAddress  string
	UserAgent  string
}

// AuditService persists audit entries asynchronously through a worker queue
// so request handlers never block on audit writes.
type AuditService struct {
	writer auditLogWriter
	queue  *jobs.Queue
	logger *zap.Logger
}

func NewAuditService(writer auditLogWriter, cfg jobs.QueueConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s := &AuditService{writer: writer, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handle, cfg)
	return s
}

// Start launches the background workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop cancels workers, flushing entries still queued before returning.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record enqueues an audit entry. Entries are dropped with a warning when the
// queue is unavailable; auditing must never fail the originating request.
func (s *AuditService) Record(entry AuditEntry) {
	if s == nil {
		return
	}
	log := &models.AuditLog{
		ID:        uuid.NewString(),
		Action:    entry.Action,
		Resource:  entry.Resource,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
		CreatedAt: time.Now().UTC(),
	}
	if entry.UserID != "" {
		log.UserID = &entry.UserID
	}
	if entry.ResourceID != "" {
		log.ResourceID = &entry.ResourceID
	}
	if entry.NewValues != nil {
		raw, err := json.Marshal(entry.NewValues)
		if err != nil {
			s.logger.Warn("audit values marshal failed", zap.String("action", entry.Action), zap.Error(err))
		} else {
			log.NewValues = raw
		}
	}
	if err := s.queue.Enqueue(jobs.Job{ID: log.ID, Type: entry.Action, Payload: log}); err != nil {
		s.logger.Warn("audit entry dropped", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		s.logger.Error("audit job carries unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.writer.CreateAuditLog(ctx, log)
}
