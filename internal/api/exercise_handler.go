package api

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/service"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExerciseHandler serves a trainer's exercise library.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
	logger          *zap.Logger
}

func NewExerciseHandler(exerciseService service.ExerciseService, logger *zap.Logger) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService, logger: logger}
}

// ExerciseRequest is the body of create and update calls.
type ExerciseRequest struct {
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	MuscleGroup      string `json:"muscleGroup" binding:"omitempty"`
	ExecutionTechnic string `json:"executionTechnic" binding:"omitempty"`
	Applicability    string `json:"applicability" binding:"omitempty"`
	Difficulty       string `json:"difficulty" binding:"omitempty,oneof=Novice Medium Advanced"`
	VideoURL         string `json:"videoUrl" binding:"omitempty,url"`
}

func (r ExerciseRequest) input() service.ExerciseInput {
	return service.ExerciseInput{
		Name:             r.Name,
		Description:      r.Description,
		MuscleGroup:      r.MuscleGroup,
		ExecutionTechnic: r.ExecutionTechnic,
		Applicability:    r.Applicability,
		Difficulty:       r.Difficulty,
		VideoURL:         r.VideoURL,
	}
}

type ExerciseResponse struct {
	ID               string    `json:"id"`
	TrainerID        string    `json:"trainerId"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	MuscleGroup      string    `json:"muscleGroup,omitempty"`
	ExecutionTechnic string    `json:"executionTechnic,omitempty"`
	Applicability    string    `json:"applicability,omitempty"`
	Difficulty       string    `json:"difficulty,omitempty"`
	VideoURL         string    `json:"videoUrl,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func MapExerciseToResponse(ex *domain.Exercise) ExerciseResponse {
	if ex == nil {
		return ExerciseResponse{}
	}
	return ExerciseResponse{
		ID:               ex.ID.Hex(),
		TrainerID:        ex.TrainerID.Hex(),
		Name:             ex.Name,
		Description:      ex.Description,
		MuscleGroup:      ex.MuscleGroup,
		ExecutionTechnic: ex.ExecutionTechnic,
		Applicability:    ex.Applicability,
		Difficulty:       ex.Difficulty,
		VideoURL:         ex.VideoURL,
		CreatedAt:        ex.CreatedAt,
		UpdatedAt:        ex.UpdatedAt,
	}
}

func MapExercisesToResponse(exercises []domain.Exercise) []ExerciseResponse {
	responses := make([]ExerciseResponse, len(exercises))
	for i := range exercises {
		responses[i] = MapExerciseToResponse(&exercises[i])
	}
	return responses
}

// CreateExercise godoc
// @Summary Create a new exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param exercise body ExerciseRequest true "Exercise details"
// @Success 201 {object} ExerciseResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}

	var req ExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), trainerID, req.input())
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to create exercise", zap.String("trainer_id", trainerID.Hex()), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to create exercise.")
		return
	}

	c.JSON(http.StatusCreated, MapExerciseToResponse(exercise))
}

// GetTrainerExercises godoc
// @Summary List the authenticated trainer's exercises
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ExerciseResponse
// @Router /exercises [get]
func (h *ExerciseHandler) GetTrainerExercises(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}

	exercises, err := h.exerciseService.GetExercisesByTrainer(c.Request.Context(), trainerID)
	if err != nil {
		h.logger.Error("Failed to list exercises", zap.String("trainer_id", trainerID.Hex()), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve exercises.")
		return
	}

	c.JSON(http.StatusOK, MapExercisesToResponse(exercises))
}

// GetExercise godoc
// @Summary Get one of the trainer's exercises
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param exerciseId path string true "Exercise ID"
// @Success 200 {object} ExerciseResponse
// @Failure 404 {object} gin.H "Exercise not found"
// @Router /exercises/{exerciseId} [get]
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}
	exerciseID, ok := pathObjectID(c, "exerciseId")
	if !ok {
		return
	}

	exercise, err := h.exerciseService.GetExerciseByID(c.Request.Context(), trainerID, exerciseID)
	if err != nil {
		h.writeError(c, err, "Failed to retrieve exercise.")
		return
	}
	c.JSON(http.StatusOK, MapExerciseToResponse(exercise))
}

// UpdateExercise godoc
// @Summary Replace an exercise's fields
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param exerciseId path string true "Exercise ID"
// @Param exercise body ExerciseRequest true "Exercise details"
// @Success 200 {object} ExerciseResponse
// @Failure 403 {object} gin.H "Exercise belongs to another trainer"
// @Failure 404 {object} gin.H "Exercise not found"
// @Router /exercises/{exerciseId} [put]
func (h *ExerciseHandler) UpdateExercise(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}
	exerciseID, ok := pathObjectID(c, "exerciseId")
	if !ok {
		return
	}

	var req ExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	exercise, err := h.exerciseService.UpdateExercise(c.Request.Context(), trainerID, exerciseID, req.input())
	if err != nil {
		h.writeError(c, err, "Failed to update exercise.")
		return
	}
	c.JSON(http.StatusOK, MapExerciseToResponse(exercise))
}

// DeleteExercise godoc
// @Summary Delete an exercise
// @Tags Exercises
// @Security BearerAuth
// @Param exerciseId path string true "Exercise ID"
// @Success 204
// @Failure 404 {object} gin.H "Exercise not found"
// @Router /exercises/{exerciseId} [delete]
func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	trainerID, ok := callerID(c)
	if !ok {
		return
	}
	exerciseID, ok := pathObjectID(c, "exerciseId")
	if !ok {
		return
	}

	if err := h.exerciseService.DeleteExercise(c.Request.Context(), trainerID, exerciseID); err != nil {
		h.writeError(c, err, "Failed to delete exercise.")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ExerciseHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrExerciseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrExerciseAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
