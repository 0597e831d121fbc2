package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/attendly/attendly-api/internal/models"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/export"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	Create(ctx context.Context, record *models.AttendanceRecord) (bool, error)
}

type attendanceUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	LinkExists(ctx context.Context, studentID, teacherID string) (bool, error)
}

// RecordAttendanceRequest is the payload for marking attendance. Date is
// optional and defaults to today; Status is optional and defaults to PRESENT
// so scan-based capture can omit it.
type RecordAttendanceRequest struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Subject   string                  `json:"subject" validate:"required"`
	Date      string                  `json:"date"`
	Status    models.AttendanceStatus `json:"status" validate:"omitempty,oneof=PRESENT ABSENT"`
}

// ExportFormat selects the attendance export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered export bytes with transport metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// AttendanceService records and reports attendance.
type AttendanceService struct {
	repo     attendanceRepository
	users    attendanceUserRepository
	audit    *AuditService
	metrics  *MetricsService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(repo attendanceRepository, users attendanceUserRepository, audit *AuditService, metrics *MetricsService, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:     repo,
		users:    users,
		audit:    audit,
		metrics:  metrics,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Record marks one student's attendance for a subject on a calendar day. The
// (student, subject, date) triple is written at most once; a repeat answers
// the same message whether it races or not.
func (s *AttendanceService) Record(ctx context.Context, teacherID string, req RecordAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	date := req.Date
	if date == "" {
		date = s.now().UTC().Format(models.DateLayout)
	} else if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Date must use the YYYY-MM-DD format")
	}
	status := req.Status
	if status == "" {
		status = models.AttendancePresent
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student failed")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Attendance can only be marked for students")
	}

	linked, err := s.users.LinkExists(ctx, req.StudentID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "link check failed")
	}
	if !linked {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Student is not assigned to this teacher")
	}

	record := &models.AttendanceRecord{
		StudentID:   req.StudentID,
		StudentName: student.Name,
		TeacherID:   teacherID,
		Subject:     req.Subject,
		Date:        date,
		Status:      status,
	}
	inserted, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create attendance failed")
	}
	if !inserted {
		s.metrics.RecordWriteConflict("attendance")
		return nil, appErrors.Clone(appErrors.ErrConflict, "Attendance already marked for this subject today.")
	}

	s.audit.Record(AuditEntry{
		UserID:     teacherID,
		Action:     models.AuditActionAttendanceMark,
		Resource:   "attendance",
		ResourceID: record.ID,
		NewValues:  map[string]interface{}{"student_id": req.StudentID, "subject": req.Subject, "date": date, "status": status},
	})
	s.logger.Info("attendance recorded",
		zap.String("record_id", record.ID),
		zap.String("student_id", req.StudentID),
		zap.String("subject", req.Subject),
		zap.String("date", date))
	return record, nil
}

// List returns attendance records matching the filter, newest first.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list attendance failed")
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return records, nil
}

// Export renders the filtered records as a downloadable CSV or PDF report.
func (s *AttendanceService) Export(ctx context.Context, filter models.AttendanceFilter, format ExportFormat) (*ExportResult, error) {
	records, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Title: "Attendance Report",
		Columns: []export.Column{
			{Header: "Date", Width: 28},
			{Header: "Student", Width: 50},
			{Header: "Subject", Width: 45},
			{Header: "Status", Width: 27},
			{Header: "Recorded At", Width: 40},
		},
		Rows: make([][]string, 0, len(records)),
	}
	for _, rec := range records {
		table.Rows = append(table.Rows, []string{
			rec.Date,
			rec.StudentName,
			rec.Subject,
			string(rec.Status),
			rec.RecordedAt.UTC().Format(time.RFC3339),
		})
	}

	stamp := s.now().UTC().Format("20060102")
	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv failed")
		}
		return &ExportResult{
			FileName:    "attendance-" + stamp + ".csv",
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf failed")
		}
		return &ExportResult{
			FileName:    "attendance-" + stamp + ".pdf",
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "Format must be csv or pdf")
	}
}
