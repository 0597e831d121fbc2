package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly-api/internal/middleware"
	"github.com/attendly/attendly-api/internal/models"
)

func TestAttendanceHandlerRecordRejectsBadBody(t *testing.T) {
	handler := NewAttendanceHandler(nil)
	c, w := newJSONContext(t, http.MethodPost, "/attendance", `{"student_id":`)
	c.Set(middleware.ContextUserID, "t1")
	c.Set(middleware.ContextUserRole, models.RoleTeacher)

	handler.Record(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerCallerFilterScopes(t *testing.T) {
	handler := NewAttendanceHandler(nil)
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/attendance?subject=Math&student_id=other", nil)
	require.NoError(t, err)
	c.Request = req
	c.Set(middleware.ContextUserID, "s1")
	c.Set(middleware.ContextUserRole, models.RoleStudent)

	// A student is always pinned to its own records; the query parameter must
	// not widen the scope.
	filter, ferr := handler.callerFilter(c)
	require.NoError(t, ferr)
	assert.Equal(t, "s1", filter.StudentID)
	assert.Equal(t, "Math", filter.Subject)

	c.Set(middleware.ContextUserID, "t1")
	c.Set(middleware.ContextUserRole, models.RoleTeacher)
	filter, ferr = handler.callerFilter(c)
	require.NoError(t, ferr)
	assert.Equal(t, "t1", filter.TeacherID)
	assert.Equal(t, "other", filter.StudentID)
}
