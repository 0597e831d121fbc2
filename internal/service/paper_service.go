package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/pkg/config"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/storage"
)

type paperRepository interface {
	ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.QuestionPaper, error)
	ListAll(ctx context.Context) ([]models.QuestionPaper, error)
	FindByID(ctx context.Context, id string) (*models.QuestionPaper, error)
	Create(ctx context.Context, paper *models.QuestionPaper) error
	Delete(ctx context.Context, id string) error
}

type paperUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListTeacherIDs(ctx context.Context, studentID string) ([]string, error)
}

type paperStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	Delete(filename string) error
}

// UploadPaperRequest carries a base64-encoded document and its metadata.
type UploadPaperRequest struct {
	Subject  string `json:"subject" validate:"required"`
	Year     string `json:"year" validate:"required"`
	Title    string `json:"title" validate:"required"`
	FileName string `json:"file_name" validate:"required"`
	FileData string `json:"file_data" validate:"required"`
}

// PaperDownload is a resolved signed download: the document bytes plus the
// original file name.
type PaperDownload struct {
	FileName string
	Data     []byte
}

// PaperService manages question paper uploads and signed downloads.
type PaperService struct {
	repo     paperRepository
	users    paperUserRepository
	store    paperStore
	signer   *storage.SignedURLSigner
	audit    *AuditService
	cfg      config.PapersConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPaperService creates a new PaperService.
func NewPaperService(repo paperRepository, users paperUserRepository, store paperStore, signer *storage.SignedURLSigner, audit *AuditService, cfg config.PapersConfig, logger *zap.Logger) *PaperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaperService{
		repo:     repo,
		users:    users,
		store:    store,
		signer:   signer,
		audit:    audit,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}
}

// Upload decodes and stores a paper authored by a teacher. The document body
// arrives base64 encoded, optionally as a data URL.
func (s *PaperService) Upload(ctx context.Context, teacherID string, req UploadPaperRequest) (*models.QuestionPaper, error) {
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

	raw := req.FileData
	if idx := strings.Index(raw, ";base64,"); idx >= 0 {
		raw = raw[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "File data must be base64 encoded")
	}
	if int64(len(data)) > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "File exceeds the maximum allowed size")
	}

	id := uuid.NewString()
	stored := fmt.Sprintf("%s-%s", id, sanitizeFileName(req.FileName))
	relPath, err := s.store.Save(stored, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store paper failed")
	}

	paper := &models.QuestionPaper{
		ID:          id,
		TeacherID:   teacher.ID,
		TeacherName: teacher.Name,
		Subject:     req.Subject,
		Year:        req.Year,
		Title:       req.Title,
		FileName:    req.FileName,
		FilePath:    relPath,
	}
	if err := s.repo.Create(ctx, paper); err != nil {
		// best effort: don't leave an orphan document behind
		if delErr := s.store.Delete(relPath); delErr != nil {
			s.logger.Warn("orphan paper cleanup failed", zap.String("path", relPath), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create paper failed")
	}

	s.audit.Record(AuditEntry{
		UserID:     teacherID,
		Action:     models.AuditActionPaperUpload,
		Resource:   "question_paper",
		ResourceID: paper.ID,
		NewValues:  map[string]interface{}{"subject": req.Subject, "year": req.Year, "title": req.Title},
	})
	s.logger.Info("question paper uploaded", zap.String("paper_id", paper.ID), zap.String("teacher_id", teacherID))
	return paper, nil
}

// ListFor returns the papers visible to the caller with signed download
// links: admins see everything, teachers their own, students those from
// their linked teachers.
func (s *PaperService) ListFor(ctx context.Context, userID string, role models.UserRole) ([]models.QuestionPaperDownload, error) {
	var papers []models.QuestionPaper
	var err error

	switch role {
	case models.RoleAdmin:
		papers, err = s.repo.ListAll(ctx)
	case models.RoleTeacher:
		papers, err = s.repo.ListByTeachers(ctx, []string{userID})
	case models.RoleStudent:
		var teacherIDs []string
		teacherIDs, err = s.users.ListTeacherIDs(ctx, userID)
		if err == nil {
			papers, err = s.repo.ListByTeachers(ctx, teacherIDs)
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list papers failed")
	}

	downloads := make([]models.QuestionPaperDownload, 0, len(papers))
	for _, paper := range papers {
		token, expiresAt, err := s.signer.Generate(paper.ID, paper.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign download failed")
		}
		downloads = append(downloads, models.QuestionPaperDownload{
			QuestionPaper: paper,
			DownloadURL:   "/papers/download?token=" + token,
			ExpiresAt:     expiresAt,
		})
	}
	return downloads, nil
}

// Download resolves a signed token to the stored document.
func (s *PaperService) Download(ctx context.Context, token string) (*PaperDownload, error) {
	paperID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Download link is invalid or expired")
	}

	paper, err := s.repo.FindByID(ctx, paperID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load paper failed")
	}
	if paper.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Download link is invalid or expired")
	}

	data, err := s.store.Read(paper.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "read paper failed")
	}
	return &PaperDownload{FileName: paper.FileName, Data: data}, nil
}

// Delete removes a paper and its stored document. The uploader or an admin
// may delete it.
func (s *PaperService) Delete(ctx context.Context, id, callerID string, callerRole models.UserRole) error {
	paper, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "Paper not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load paper failed")
	}
	if callerRole != models.RoleAdmin && paper.TeacherID != callerID {
		return appErrors.Clone(appErrors.ErrForbidden, "Paper belongs to another teacher")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete paper failed")
	}
	if err := s.store.Delete(paper.FilePath); err != nil {
		s.logger.Warn("paper document removal failed", zap.String("path", paper.FilePath), zap.Error(err))
	}

	s.audit.Record(AuditEntry{
		UserID:     callerID,
		Action:     models.AuditActionPaperDelete,
		Resource:   "question_paper",
		ResourceID: id,
	})
	return nil
}

func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" {
		name = "document"
	}
	return name
}
