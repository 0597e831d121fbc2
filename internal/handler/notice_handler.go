package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/middleware"
	"github.com/attendly/attendly-api/internal/service"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// NoticeHandler exposes announcement endpoints.
type NoticeHandler struct {
	notices *service.NoticeService
}

// NewNoticeHandler creates a new NoticeHandler.
func NewNoticeHandler(notices *service.NoticeService) *NoticeHandler {
	return &NoticeHandler{notices: notices}
}

// Create publishes a notice authored by the calling teacher.
func (h *NoticeHandler) Create(c *gin.Context) {
	var req service.NoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid request body"))
		return
	}

	_, teacherID := middleware.CallerIdentity(c)
	notice, err := h.notices.Create(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, notice)
}

// List returns the notices visible to the caller.
func (h *NoticeHandler) List(c *gin.Context) {
	role, callerID := middleware.CallerIdentity(c)
	notices, err := h.notices.ListFor(c.Request.Context(), callerID, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notices, nil)
}

// Update edits one of the calling teacher's notices.
func (h *NoticeHandler) Update(c *gin.Context) {
	var req service.NoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid request body"))
		return
	}

	_, callerID := middleware.CallerIdentity(c)
	notice, err := h.notices.Update(c.Request.Context(), c.Param("id"), callerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notice, nil)
}

// Delete removes a notice.
func (h *NoticeHandler) Delete(c *gin.Context) {
	role, callerID := middleware.CallerIdentity(c)
	if err := h.notices.Delete(c.Request.Context(), c.Param("id"), callerID, role); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Notice deleted successfully")
}
