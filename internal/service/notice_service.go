package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type noticeRepository interface {
	ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.Notice, error)
	ListAll(ctx context.Context) ([]models.Notice, error)
	Create(ctx context.Context, notice *models.Notice) error
	Update(ctx context.Context, notice *models.Notice) error
	FindByID(ctx context.Context, id string) (*models.Notice, error)
	Delete(ctx context.Context, id string) error
}

type noticeUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListTeacherIDs(ctx context.Context, studentID string) ([]string, error)
}

// NoticeRequest is the payload for creating or updating a notice.
type NoticeRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// NoticeService manages teacher announcements.
type NoticeService struct {
	repo     noticeRepository
	users    noticeUserRepository
	audit    *AuditService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewNoticeService creates a new NoticeService.
func NewNoticeService(repo noticeRepository, users noticeUserRepository, audit *AuditService, logger *zap.Logger) *NoticeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoticeService{
		repo:     repo,
		users:    users,
		audit:    audit,
		validate: validator.New(),
		logger:   logger,
	}
}

// Create publishes a notice authored by a teacher.
func (s *NoticeService) Create(ctx context.Context, teacherID string, req NoticeRequest) (*models.Notice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	teacher, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load teacher failed")
	}

	notice := &models.Notice{
		TeacherID:   teacher.ID,
		TeacherName: teacher.Name,
		Title:       req.Title,
		Content:     req.Content,
	}
	if err := s.repo.Create(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create notice failed")
	}

	s.audit.Record(AuditEntry{
		UserID:     teacherID,
		Action:     models.AuditActionNoticeCreate,
		Resource:   "notice",
		ResourceID: notice.ID,
		NewValues:  map[string]interface{}{"title": req.Title},
	})
	return notice, nil
}

// ListFor returns the notices visible to the caller: admins see everything,
// teachers their own, students those from their linked teachers.
func (s *NoticeService) ListFor(ctx context.Context, userID string, role models.UserRole) ([]models.Notice, error) {
	var notices []models.Notice
	var err error

	switch role {
	case models.RoleAdmin:
		notices, err = s.repo.ListAll(ctx)
	case models.RoleTeacher:
		notices, err = s.repo.ListByTeachers(ctx, []string{userID})
	case models.RoleStudent:
		var teacherIDs []string
		teacherIDs, err = s.users.ListTeacherIDs(ctx, userID)
		if err == nil {
			notices, err = s.repo.ListByTeachers(ctx, teacherIDs)
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list notices failed")
	}
	if notices == nil {
		notices = []models.Notice{}
	}
	return notices, nil
}

// Update edits a notice. Only its author may change it.
func (s *NoticeService) Update(ctx context.Context, id, callerID string, req NoticeRequest) (*models.Notice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	notice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load notice failed")
	}
	if notice.TeacherID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Notice belongs to another teacher")
	}

	notice.Title = req.Title
	notice.Content = req.Content
	if err := s.repo.Update(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update notice failed")
	}

	s.audit.Record(AuditEntry{
		UserID:     callerID,
		Action:     models.AuditActionNoticeUpdate,
		Resource:   "notice",
		ResourceID: id,
		NewValues:  map[string]interface{}{"title": req.Title},
	})
	return notice, nil
}

// Delete removes a notice. The author or an admin may delete it; deleting an
// unknown id is a no-op.
func (s *NoticeService) Delete(ctx context.Context, id, callerID string, callerRole models.UserRole) error {
	notice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load notice failed")
	}
	if callerRole != models.RoleAdmin && notice.TeacherID != callerID {
		return appErrors.Clone(appErrors.ErrForbidden, "Notice belongs to another teacher")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete notice failed")
	}
	s.audit.Record(AuditEntry{
		UserID:     callerID,
		Action:     models.AuditActionNoticeDelete,
		Resource:   "notice",
		ResourceID: id,
	})
	return nil
}
