package api

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/metrics"
	"coachline/fitness-api/internal/service"
	"coachline/fitness-api/internal/tracing"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth        service.AuthService
	Exercises   service.ExerciseService
	Trainers    service.TrainerService
	Clients     service.ClientService
	Progression service.ProgressionService
}

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	services Services,
	completionLimiter *UserRateLimiter,
	logger *zap.Logger,
) {
	authHandler := NewAuthHandler(services.Auth, logger)
	exerciseHandler := NewExerciseHandler(services.Exercises, logger)
	trainerHandler := NewTrainerHandler(services.Trainers, logger)
	clientHandler := NewClientHandler(services.Clients, logger)
	progressionHandler := NewProgressionHandler(services.Progression, services.Trainers, logger)

	router.Use(tracing.Middleware(), metrics.Middleware(), RequestLogger(logger))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", metrics.Handler())

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", authHandler.Me)

		exerciseGroup := protected.Group("/exercises")
		exerciseGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			exerciseGroup.POST("", exerciseHandler.CreateExercise)
			exerciseGroup.GET("", exerciseHandler.GetTrainerExercises)
			exerciseGroup.GET("/:exerciseId", exerciseHandler.GetExercise)
			exerciseGroup.PUT("/:exerciseId", exerciseHandler.UpdateExercise)
			exerciseGroup.DELETE("/:exerciseId", exerciseHandler.DeleteExercise)
		}

		trainerGroup := protected.Group("/trainer")
		trainerGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			trainerGroup.POST("/clients", trainerHandler.AddClientByEmail)
			trainerGroup.GET("/clients", trainerHandler.GetManagedClients)

			trainerGroup.POST("/programs", trainerHandler.CreateProgram)
			trainerGroup.GET("/programs", trainerHandler.ListPrograms)
			trainerGroup.GET("/programs/:programId", trainerHandler.GetProgram)

			trainerGroup.POST("/clients/:clientId/assignments", trainerHandler.AssignProgram)
			trainerGroup.GET("/clients/:clientId/assignments", trainerHandler.ListClientAssignments)
			trainerGroup.GET("/clients/:clientId/progress", trainerHandler.GetClientProgress)
			trainerGroup.POST("/assignments/:assignmentId/cancel", trainerHandler.CancelAssignment)
			trainerGroup.GET("/assignments/:assignmentId/completions", trainerHandler.ListCompletions)

			trainerGroup.POST("/progress/complete", completionLimiter.Middleware(logger), progressionHandler.TrainerCompleteDay)
		}

		clientGroup := protected.Group("/client")
		clientGroup.Use(RoleMiddleware(domain.RoleClient))
		{
			clientGroup.GET("/program", clientHandler.GetMyProgram)
			clientGroup.GET("/assignments", clientHandler.ListMyAssignments)
			clientGroup.GET("/assignments/:assignmentId/completions", clientHandler.ListMyCompletions)

			clientGroup.POST("/completions/:completionId/upload-url", clientHandler.RequestUploadURL)
			clientGroup.POST("/completions/:completionId/upload-confirm", clientHandler.ConfirmUpload)
			clientGroup.GET("/completions/:completionId/upload", clientHandler.GetUploadDownloadURL)

			clientGroup.POST("/progress/complete", completionLimiter.Middleware(logger), progressionHandler.ClientCompleteDay)
		}
	}
}
