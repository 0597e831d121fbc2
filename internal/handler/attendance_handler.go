package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/middleware"
	"github.com/attendly/attendly-api/internal/models"
	"github.com/attendly/attendly-api/internal/service"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// AttendanceHandler exposes attendance recording and reporting endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Record marks a student's attendance for a subject on a calendar day.
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid request body"))
		return
	}

	_, teacherID := middleware.CallerIdentity(c)
	record, err := h.attendance.Record(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List returns attendance records scoped to the caller: students see their
// own history, teachers the records they marked, admins anything the filter
// selects.
func (h *AttendanceHandler) List(c *gin.Context) {
	filter, err := h.callerFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	records, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Export streams the filtered records as a CSV or PDF report.
func (h *AttendanceHandler) Export(c *gin.Context) {
	filter, err := h.callerFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.attendance.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *AttendanceHandler) callerFilter(c *gin.Context) (models.AttendanceFilter, error) {
	filter := models.AttendanceFilter{
		Subject:   c.Query("subject"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}

	role, callerID := middleware.CallerIdentity(c)
	switch role {
	case models.RoleStudent:
		filter.StudentID = callerID
	case models.RoleTeacher:
		filter.TeacherID = callerID
		filter.StudentID = c.Query("student_id")
	case models.RoleAdmin:
		filter.StudentID = c.Query("student_id")
		filter.TeacherID = c.Query("teacher_id")
	default:
		return filter, appErrors.ErrForbidden
	}
	return filter, nil
}
