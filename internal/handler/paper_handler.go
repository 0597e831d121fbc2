package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/middleware"
	"github.com/attendly/attendly-api/internal/service"
	appErrors "github.com/attendly/attendly-api/pkg/errors"
	"github.com/attendly/attendly-api/pkg/response"
)

// PaperHandler exposes question paper endpoints.
type PaperHandler struct {
	papers *service.PaperService
}

// NewPaperHandler creates a new PaperHandler.
func NewPaperHandler(papers *service.PaperService) *PaperHandler {
	return &PaperHandler{papers: papers}
}

// Upload stores a paper uploaded by the calling teacher.
func (h *PaperHandler) Upload(c *gin.Context) {
	var req service.UploadPaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid request body"))
		return
	}

	_, teacherID := middleware.CallerIdentity(c)
	paper, err := h.papers.Upload(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, paper)
}

// List returns the papers visible to the caller with signed download links.
func (h *PaperHandler) List(c *gin.Context) {
	role, callerID := middleware.CallerIdentity(c)
	papers, err := h.papers.ListFor(c.Request.Context(), callerID, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, papers, nil)
}

// Download streams a paper referenced by a signed token. The token itself
// authorises the download, so this route sits outside the authenticated
// group.
func (h *PaperHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Token query parameter required"))
		return
	}

	download, err := h.papers.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+download.FileName+`"`)
	c.Data(http.StatusOK, "application/octet-stream", download.Data)
}

// Delete removes a paper and its stored document.
func (h *PaperHandler) Delete(c *gin.Context) {
	role, callerID := middleware.CallerIdentity(c)
	if err := h.papers.Delete(c.Request.Context(), c.Param("id"), callerID, role); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Question paper deleted successfully")
}
