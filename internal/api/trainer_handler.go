package api

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type TrainerHandler struct {
	trainerService service.TrainerService
	logger         *zap.Logger
}

func NewTrainerHandler(trainerService service.TrainerService, logger *zap.Logger) *TrainerHandler {
	return &TrainerHandler{trainerService: trainerService, logger: logger}
}

type AddClientRequest struct {
	ClientEmail string `json:"clientEmail" binding:"required,email"`
}

// CreateProgramRequest mirrors domain.Program. Week numbers are assigned by
// position and any sent by the caller are ignored.
type CreateProgramRequest struct {
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description"`
	Weeks       []domain.ProgramWeek `json:"weeks" binding:"required,min=1,dive"`
}

type AssignProgramRequest struct {
	ProgramID string `json:"programId" binding:"required"`
}

// AddClientByEmail godoc
// @Summary Add a client to the trainer's roster by email
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientRequest body AddClientRequest true "Client's email"
// @Success 200 {object} UserResponse
// @Failure 403 {object} gin.H "User is not a client, or already has a trainer"
// @Failure 404 {object} gin.H "Client not found"
// @Router /trainer/clients [post]
func (h *TrainerHandler) AddClientByEmail(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}

	var req AddClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	client, err := h.trainerService.AddClientByEmail(c.Request.Context(), trainerID, req.ClientEmail)
	if err != nil {
		h.writeError(c, err, "Failed to add client.")
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(client))
}

// GetManagedClients godoc
// @Summary List the trainer's clients
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserResponse
// @Router /trainer/clients [get]
func (h *TrainerHandler) GetManagedClients(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}

	clients, err := h.trainerService.GetManagedClients(c.Request.Context(), trainerID)
	if err != nil {
		h.writeError(c, err, "Failed to retrieve managed clients.")
		return
	}

	c.JSON(http.StatusOK, MapUsersToResponse(clients))
}

func MapUsersToResponse(users []domain.User) []UserResponse {
	userResponses := make([]UserResponse, len(users))
	for i := range users {
		userResponses[i] = MapUserToResponse(&users[i])
	}
	return userResponses
}

// CreateProgram godoc
// @Summary Create a multi-week program
// @Tags Programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param program body CreateProgramRequest true "Program template"
// @Success 201 {object} domain.Program
// @Failure 400 {object} gin.H "Empty week or unknown exercise"
// @Router /trainer/programs [post]
func (h *TrainerHandler) CreateProgram(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}

	var req CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	program := &domain.Program{
		Name:        req.Name,
		Description: req.Description,
		Weeks:       req.Weeks,
	}
	program.NormalizeWeekNumbers()

	created, err := h.trainerService.CreateProgram(c.Request.Context(), trainerID, program)
	if err != nil {
		h.writeError(c, err, "Failed to create program.")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListPrograms godoc
// @Summary List the trainer's programs
// @Tags Programs
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Program
// @Router /trainer/programs [get]
func (h *TrainerHandler) ListPrograms(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}

	programs, err := h.trainerService.ListPrograms(c.Request.Context(), trainerID)
	if err != nil {
		h.writeError(c, err, "Failed to retrieve programs.")
		return
	}
	if programs == nil {
		programs = []domain.Program{}
	}
	c.JSON(http.StatusOK, programs)
}

// GetProgram godoc
// @Summary Get one of the trainer's programs
// @Tags Programs
// @Produce json
// @Security BearerAuth
// @Param programId path string true "Program ID"
// @Success 200 {object} domain.Program
// @Failure 404 {object} gin.H "Program not found"
// @Router /trainer/programs/{programId} [get]
func (h *TrainerHandler) GetProgram(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}
	programID, ok := pathObjectID(c, "programId")
	if !ok {
		return
	}

	program, err := h.trainerService.GetProgram(c.Request.Context(), trainerID, programID)
	if err != nil {
		h.writeError(c, err, "Failed to retrieve program.")
		return
	}
	c.JSON(http.StatusOK, program)
}

// AssignProgram godoc
// @Summary Start a client on a program
// @Tags Programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param body body AssignProgramRequest true "Program to assign"
// @Success 201 {object} domain.ProgramAssignment
// @Failure 409 {object} gin.H "Client already has an active program"
// @Router /trainer/clients/{clientId}/assignments [post]
func (h *TrainerHandler) AssignProgram(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}
	clientID, ok := pathObjectID(c, "clientId")
	if !ok {
		return
	}

	var req AssignProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	programID, err := primitive.ObjectIDFromHex(req.ProgramID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid programId format")
		return
	}

	assignment, err := h.trainerService.AssignProgram(c.Request.Context(), trainerID, clientID, programID)
	if err != nil {
		h.writeError(c, err, "Failed to assign program.")
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

// ListClientAssignments godoc
// @Summary List the program assignments the trainer gave a client
// @Tags Programs
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Success 200 {array} domain.ProgramAssignment
// @Router /trainer/clients/{clientId}/assignments [get]
func (h *TrainerHandler) ListClientAssignments(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}
	clientID, ok := pathObjectID(c, "clientId")
	if !ok {
		return
	}

	assignments, err := h.trainerService.ListClientAssignments(c.Request.Context(), trainerID, clientID)
	if err != nil {
		h.writeError(c, err, "Failed to retrieve assignments.")
		return
	}
	if assignments == nil {
		assignments = []domain.ProgramAssignment{}
	}
	c.JSON(http.StatusOK, assignments)
}

// GetClientProgress godoc
// @Summary Show where a client is in their program
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Success 200 {object} service.ProgressView
// @Failure 404 {object} gin.H "Client has no program"
// @Router /trainer/clients/{clientId}/progress [get]
func (h *TrainerHandler) GetClientProgress(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}
	clientID, ok := pathObjectID(c, "clientId")
	if !ok {
		return
	}

	view, err := h.trainerService.GetClientProgress(c.Request.Context(), trainerID, clientID)
	if err != nil {
		h.writeError(c, err, "Failed to load client progress.")
		return
	}
	c.JSON(http.StatusOK, view)
}

// CancelAssignment godoc
// @Summary Cancel an active program assignment
// @Tags Programs
// @Produce json
// @Security BearerAuth
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} domain.ProgramAssignment
// @Failure 409 {object} gin.H "Assignment is not active"
// @Router /trainer/assignments/{assignmentId}/cancel [post]
func (h *TrainerHandler) CancelAssignment(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathObjectID(c, "assignmentId")
	if !ok {
		return
	}

	assignment, err := h.trainerService.CancelAssignment(c.Request.Context(), trainerID, assignmentID)
	if err != nil {
		h.writeError(c, err, "Failed to cancel assignment.")
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// ListCompletions godoc
// @Summary List the completed days of an assignment
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {array} domain.ProgramDayCompletion
// @Router /trainer/assignments/{assignmentId}/completions [get]
func (h *TrainerHandler) ListCompletions(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathObjectID(c, "assignmentId")
	if !ok {
		return
	}

	completions, err := h.trainerService.ListCompletions(c.Request.Context(), trainerID, assignmentID)
	if err != nil {
		h.writeError(c, err, "Failed to retrieve completions.")
		return
	}
	if completions == nil {
		completions = []domain.ProgramDayCompletion{}
	}
	c.JSON(http.StatusOK, completions)
}

func (h *TrainerHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrProgramNotFound),
		errors.Is(err, service.ErrAssignmentNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrClientNotRole),
		errors.Is(err, service.ErrClientAlreadyAssigned),
		errors.Is(err, service.ErrClientNotManaged):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrActiveAssignmentExists),
		errors.Is(err, service.ErrAssignmentNotActive):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrProgramInvalid):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
