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

// RequestHandler exposes the join-request workflow endpoints.
type RequestHandler struct {
	requests *service.JoinRequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requests *service.JoinRequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

type submitRequestBody struct {
	TeacherID string `json:"teacher_id" binding:"required"`
}

type respondRequestBody struct {
	RequestID string                   `json:"request_id"`
	Status    models.JoinRequestStatus `json:"status" binding:"required"`
}

// Submit opens a join request from the calling student to a teacher.
func (h *RequestHandler) Submit(c *gin.Context) {
	var body submitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid request body"))
		return
	}

	_, studentID := middleware.CallerIdentity(c)
	request, err := h.requests.Submit(c.Request.Context(), studentID, body.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// ListPending returns the calling teacher's open requests, oldest first.
func (h *RequestHandler) ListPending(c *gin.Context) {
	_, teacherID := middleware.CallerIdentity(c)
	requests, err := h.requests.ListPending(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Respond resolves one of the calling teacher's requests. The request id
// comes from the path on PUT /requests/:id and from the body on
// POST /requests/respond.
func (h *RequestHandler) Respond(c *gin.Context) {
	var body respondRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid request body"))
		return
	}
	requestID := c.Param("id")
	if requestID == "" {
		requestID = body.RequestID
	}
	if requestID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid request body"))
		return
	}

	_, teacherID := middleware.CallerIdentity(c)
	request, err := h.requests.Respond(c.Request.Context(), requestID, teacherID, body.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
