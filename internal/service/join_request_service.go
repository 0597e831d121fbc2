package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type joinRequestRepository interface {
	ListPendingByTeacher(ctx context.Context, teacherID string) ([]models.JoinRequest, error)
	FindByID(ctx context.Context, id string) (*models.JoinRequest, error)
	CreatePending(ctx context.Context, request *models.JoinRequest) (bool, error)
	Resolve(ctx context.Context, id string, status models.JoinRequestStatus) (bool, error)
}

type joinRequestUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	LinkExists(ctx context.Context, studentID, teacherID string) (bool, error)
	AddTeacherLink(ctx context.Context, studentID, teacherID string) error
}

// JoinRequestService drives the join-request workflow between students and
// teachers.
type JoinRequestService struct {
	requests joinRequestRepository
	users    joinRequestUserRepository
	cache    *CacheService
	audit    *AuditService
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewJoinRequestService creates a new JoinRequestService.
func NewJoinRequestService(requests joinRequestRepository, users joinRequestUserRepository, cache *CacheService, audit *AuditService, metrics *MetricsService, logger *zap.Logger) *JoinRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JoinRequestService{
		requests: requests,
		users:    users,
		cache:    cache,
		audit:    audit,
		metrics:  metrics,
		logger:   logger,
	}
}

// Submit opens a PENDING request from a student to a teacher. Preconditions
// run in a fixed order so a payload failing several yields a stable message:
// the teacher must exist with role TEACHER, the pair must not already be
// linked, and no open request for the pair may exist. A teacher's allow_invite
// flag is advisory and does not block submission.
func (s *JoinRequestService) Submit(ctx context.Context, studentID, teacherID string) (*models.JoinRequest, error) {
	teacher, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load teacher failed")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Teacher not found")
	}

	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student failed")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Only students can request to join a teacher")
	}

	linked, err := s.users.LinkExists(ctx, studentID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "link check failed")
	}
	if linked {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Already assigned to this teacher")
	}

	request := &models.JoinRequest{
		StudentID:   studentID,
		StudentName: student.Name,
		TeacherID:   teacherID,
		TeacherName: teacher.Name,
	}
	inserted, err := s.requests.CreatePending(ctx, request)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create request failed")
	}
	if !inserted {
		s.metrics.RecordWriteConflict("join_request")
		return nil, appErrors.Clone(appErrors.ErrConflict, "Request already pending")
	}

	s.audit.Record(AuditEntry{
		UserID:     studentID,
		Action:     models.AuditActionRequestSubmit,
		Resource:   "join_request",
		ResourceID: request.ID,
		NewValues:  map[string]interface{}{"teacher_id": teacherID},
	})
	s.logger.Info("join request submitted",
		zap.String("request_id", request.ID),
		zap.String("student_id", studentID),
		zap.String("teacher_id", teacherID))
	return request, nil
}

// ListPending returns a teacher's open requests, oldest first.
func (s *JoinRequestService) ListPending(ctx context.Context, teacherID string) ([]models.JoinRequest, error) {
	requests, err := s.requests.ListPendingByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list requests failed")
	}
	if requests == nil {
		requests = []models.JoinRequest{}
	}
	return requests, nil
}

// Respond resolves a PENDING request. Only the addressed teacher may respond;
// acceptance links the student, rejection only closes the request. The
// transition is guarded so a request resolves at most once.
func (s *JoinRequestService) Respond(ctx context.Context, requestID, callerID string, status models.JoinRequestStatus) (*models.JoinRequest, error) {
	if !status.ValidResponse() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Status must be ACCEPTED or REJECTED")
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load request failed")
	}
	if request.TeacherID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Request is addressed to another teacher")
	}

	resolved, err := s.requests.Resolve(ctx, requestID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve request failed")
	}
	if !resolved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Request already resolved")
	}
	request.Status = status

	if status == models.JoinRequestAccepted {
		if err := s.users.AddTeacherLink(ctx, request.StudentID, request.TeacherID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "link student failed")
		}
		s.cache.Invalidate(ctx, rosterCacheKey(request.StudentID))
	}

	s.audit.Record(AuditEntry{
		UserID:     callerID,
		Action:     models.AuditActionRequestRespond,
		Resource:   "join_request",
		ResourceID: requestID,
		NewValues:  map[string]interface{}{"status": status},
	})
	s.logger.Info("join request resolved",
		zap.String("request_id", requestID),
		zap.String("status", string(status)))
	return request, nil
}
