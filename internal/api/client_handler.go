package api

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ClientHandler struct {
	clientService service.ClientService
	logger        *zap.Logger
}

func NewClientHandler(clientService service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{clientService: clientService, logger: logger}
}

type RequestUploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type ConfirmUploadRequest struct {
	ObjectKey   string `json:"objectKey" binding:"required"`
	FileName    string `json:"fileName" binding:"required"`
	FileSize    int64  `json:"fileSize" binding:"required,gt=0"`
	ContentType string `json:"contentType" binding:"required"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// GetMyProgram godoc
// @Summary Show my current program and position
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ProgressView
// @Failure 404 {object} gin.H "No program assigned"
// @Router /client/program [get]
func (h *ClientHandler) GetMyProgram(c *gin.Context) {
	clientID, ok := callerID(c)
	if !ok {
		return
	}

	view, err := h.clientService.GetMyProgram(c.Request.Context(), clientID)
	if err != nil {
		h.writeError(c, err, "Failed to load program.")
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListMyAssignments godoc
// @Summary List every program I have been assigned
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.ProgramAssignment
// @Router /client/assignments [get]
func (h *ClientHandler) ListMyAssignments(c *gin.Context) {
	clientID, ok := callerID(c)
	if !ok {
		return
	}

	assignments, err := h.clientService.ListMyAssignments(c.Request.Context(), clientID)
	if err != nil {
		h.writeError(c, err, "Failed to retrieve assignments.")
		return
	}
	if assignments == nil {
		assignments = []domain.ProgramAssignment{}
	}
	c.JSON(http.StatusOK, assignments)
}

// ListMyCompletions godoc
// @Summary List the days I completed in an assignment
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {array} domain.ProgramDayCompletion
// @Failure 404 {object} gin.H "Assignment not found"
// @Router /client/assignments/{assignmentId}/completions [get]
func (h *ClientHandler) ListMyCompletions(c *gin.Context) {
	clientID, ok := callerID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathObjectID(c, "assignmentId")
	if !ok {
		return
	}

	completions, err := h.clientService.ListMyCompletions(c.Request.Context(), clientID, assignmentID)
	if err != nil {
		h.writeError(c, err, "Failed to retrieve completions.")
		return
	}
	if completions == nil {
		completions = []domain.ProgramDayCompletion{}
	}
	c.JSON(http.StatusOK, completions)
}

// RequestUploadURL godoc
// @Summary Get a presigned URL to upload progress media for a completed day
// @Tags Client Uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param completionId path string true "Day completion ID"
// @Param body body RequestUploadURLRequest true "Media content type"
// @Success 200 {object} service.UploadURLResponse
// @Failure 409 {object} gin.H "Media already attached"
// @Router /client/completions/{completionId}/upload-url [post]
func (h *ClientHandler) RequestUploadURL(c *gin.Context) {
	clientID, ok := callerID(c)
	if !ok {
		return
	}
	completionID, ok := pathObjectID(c, "completionId")
	if !ok {
		return
	}

	var req RequestUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	resp, err := h.clientService.RequestUploadURL(c.Request.Context(), clientID, completionID, req.ContentType)
	if err != nil {
		h.writeError(c, err, "Failed to get upload URL.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmUpload godoc
// @Summary Confirm a finished progress media upload
// @Tags Client Uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param completionId path string true "Day completion ID"
// @Param body body ConfirmUploadRequest true "Upload details"
// @Success 201 {object} domain.Upload
// @Failure 400 {object} gin.H "Object key was not issued for this day"
// @Router /client/completions/{completionId}/upload-confirm [post]
func (h *ClientHandler) ConfirmUpload(c *gin.Context) {
	clientID, ok := callerID(c)
	if !ok {
		return
	}
	completionID, ok := pathObjectID(c, "completionId")
	if !ok {
		return
	}

	var req ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	upload, err := h.clientService.ConfirmUpload(c.Request.Context(), clientID, completionID, service.UploadConfirmation{
		ObjectKey:   req.ObjectKey,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.FileSize,
	})
	if err != nil {
		h.writeError(c, err, "Failed to confirm upload.")
		return
	}
	c.JSON(http.StatusCreated, upload)
}

// GetUploadDownloadURL godoc
// @Summary Get a presigned URL to view progress media
// @Tags Client Uploads
// @Produce json
// @Security BearerAuth
// @Param completionId path string true "Day completion ID"
// @Success 200 {object} DownloadURLResponse
// @Failure 404 {object} gin.H "Nothing uploaded"
// @Router /client/completions/{completionId}/upload [get]
func (h *ClientHandler) GetUploadDownloadURL(c *gin.Context) {
	clientID, ok := callerID(c)
	if !ok {
		return
	}
	completionID, ok := pathObjectID(c, "completionId")
	if !ok {
		return
	}

	url, err := h.clientService.GetUploadDownloadURL(c.Request.Context(), clientID, completionID)
	if err != nil {
		h.writeError(c, err, "Failed to get download URL.")
		return
	}
	c.JSON(http.StatusOK, DownloadURLResponse{DownloadURL: url})
}

func (h *ClientHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrCompletionNotFound),
		errors.Is(err, service.ErrUploadNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUploadAlreadyExists):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnsupportedMediaType),
		errors.Is(err, service.ErrUploadKeyMismatch):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
