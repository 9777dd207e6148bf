package api

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/service"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ProgressionHandler serves the two "mark day complete" entry points.
// Authorization happens here; the advancer itself is role-agnostic.
type ProgressionHandler struct {
	progression service.ProgressionService
	trainers    service.TrainerService
	logger      *zap.Logger
}

func NewProgressionHandler(progression service.ProgressionService, trainers service.TrainerService, logger *zap.Logger) *ProgressionHandler {
	return &ProgressionHandler{progression: progression, trainers: trainers, logger: logger}
}

type TrainerCompleteDayRequest struct {
	ClientID string `json:"clientId" binding:"required"`
	Notes    string `json:"notes" binding:"max=2000"`
}

type ClientCompleteDayRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// AdvanceResponse is the body of every completion response. Fields that do
// not apply to a status are omitted.
type AdvanceResponse struct {
	Status              service.AdvanceStatus `json:"status"`
	Error               string                `json:"error,omitempty"`
	Message             string                `json:"message,omitempty"`
	ProgramAssignmentID string                `json:"programAssignmentId,omitempty"`
	ProgramID           string                `json:"programId,omitempty"`
	ProgramName         string                `json:"programName,omitempty"`
	CompletedWeekIndex  *int                  `json:"completedWeekIndex,omitempty"`
	CompletedDayIndex   *int                  `json:"completedDayIndex,omitempty"`
	CurrentWeekIndex    *int                  `json:"currentWeekIndex,omitempty"`
	CurrentDayIndex     *int                  `json:"currentDayIndex,omitempty"`
	IsCompleted         *bool                 `json:"isCompleted,omitempty"`
	CompletionID        string                `json:"completionId,omitempty"`
}

// TrainerCompleteDay godoc
// @Summary Mark a client's current program day complete
// @Tags Progress
// @Param body body TrainerCompleteDayRequest true "Client to advance"
// @Success 200 {object} AdvanceResponse
// @Failure 404 {object} AdvanceResponse "No active program"
// @Failure 409 {object} AdvanceResponse "Day or program already completed"
// @Router /trainer/progress/complete [post]
func (h *ProgressionHandler) TrainerCompleteDay(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}

	var req TrainerCompleteDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid clientId format")
		return
	}

	if err := h.trainers.EnsureManagesClient(c.Request.Context(), trainerID, clientID); err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrClientNotManaged):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			h.logger.Error("Failed to verify trainer-client relationship", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "Failed to verify client")
		}
		return
	}

	result := h.progression.Advance(c.Request.Context(), service.AdvanceRequest{
		ClientID:        clientID,
		CompletedBy:     trainerID,
		CompletedByRole: domain.RoleTrainer,
		Notes:           req.Notes,
	})
	writeAdvanceResult(c, result)
}

// ClientCompleteDay godoc
// @Summary Mark my current program day complete
// @Tags Progress
// @Param body body ClientCompleteDayRequest false "Optional notes"
// @Success 200 {object} AdvanceResponse
// @Failure 404 {object} AdvanceResponse "No active program"
// @Failure 409 {object} AdvanceResponse "Day or program already completed"
// @Router /client/progress/complete [post]
func (h *ProgressionHandler) ClientCompleteDay(c *gin.Context) {
	clientID, ok := callerID(c)
	if !ok {
		return
	}

	// The body is optional.
	var req ClientCompleteDayRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	result := h.progression.Advance(c.Request.Context(), service.AdvanceRequest{
		ClientID:        clientID,
		CompletedBy:     clientID,
		CompletedByRole: domain.RoleClient,
		Notes:           req.Notes,
	})
	writeAdvanceResult(c, result)
}

// writeAdvanceResult maps each result variant to its HTTP status.
func writeAdvanceResult(c *gin.Context, result service.AdvanceResult) {
	resp := AdvanceResponse{Status: result.Status()}

	switch r := result.(type) {
	case *service.Failure:
		if r.Reason == service.ReasonNoActiveAssignment {
			resp.Error = string(r.Reason)
			resp.Message = r.Message
			c.JSON(http.StatusNotFound, resp)
			return
		}
		// Callers only see "internal"; the precise reason and storage
		// details are logged by the service.
		resp.Error = string(service.ReasonInternal)
		resp.Message = "failed to advance program"
		c.JSON(http.StatusInternalServerError, resp)

	case *service.ProgramCompleted:
		resp.Message = r.Message
		resp.ProgramAssignmentID = r.ProgramAssignmentID.Hex()
		resp.CurrentWeekIndex, resp.CurrentDayIndex = positionPtrs(r.Current)
		resp.IsCompleted = boolPtr(true)
		c.JSON(http.StatusConflict, resp)

	case *service.DayAlreadyCompleted:
		resp.Message = r.Message
		resp.ProgramAssignmentID = r.ProgramAssignmentID.Hex()
		resp.CurrentWeekIndex, resp.CurrentDayIndex = positionPtrs(r.Current)
		c.JSON(http.StatusConflict, resp)

	case *service.Advanced:
		resp.ProgramAssignmentID = r.ProgramAssignmentID.Hex()
		resp.ProgramID = r.ProgramID.Hex()
		resp.ProgramName = r.ProgramName
		resp.CompletedWeekIndex, resp.CompletedDayIndex = positionPtrs(r.Completed)
		resp.CurrentWeekIndex, resp.CurrentDayIndex = positionPtrs(r.Current)
		resp.IsCompleted = boolPtr(r.IsCompleted)
		resp.CompletionID = r.CompletionID.Hex()
		c.JSON(http.StatusOK, resp)

	default:
		abortWithError(c, http.StatusInternalServerError, "unknown advance result")
	}
}

func positionPtrs(p domain.Position) (*int, *int) {
	week, day := p.WeekIndex, p.DayIndex
	return &week, &day
}

func boolPtr(b bool) *bool { return &b }
