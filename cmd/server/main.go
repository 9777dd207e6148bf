package main

import (
	"coachline/fitness-api/internal/api"
	"coachline/fitness-api/internal/config"
	"coachline/fitness-api/internal/events"
	"coachline/fitness-api/internal/logger"
	"coachline/fitness-api/internal/repository"
	"coachline/fitness-api/internal/repository/cache"
	"coachline/fitness-api/internal/repository/mongo"
	"coachline/fitness-api/internal/service"
	"coachline/fitness-api/internal/storage"
	"coachline/fitness-api/internal/tracing"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title Coachline Fitness API
// @version 1.0
// @description Trainers build multi-week programs; clients work through them one day at a time.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Tracing.Endpoint != "" {
		shutdownTracing, err := tracing.Init(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			zapLogger.Fatal("Could not initialize tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				zapLogger.Warn("Tracer shutdown failed", zap.Error(err))
			}
		}()
		zapLogger.Info("Tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint))
	}

	// --- Database ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		zapLogger.Fatal("Could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			zapLogger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	zapLogger.Info("Database connection established", zap.String("database", cfg.Database.Name))

	// The day completion unique index must exist before completions are
	// accepted, so this runs in the foreground.
	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), time.Minute)
	mongo.EnsureIndexes(indexCtx, appDB, zapLogger)
	cancelIndexes()

	transactor := repository.NoTransaction
	if cfg.Database.Transactions {
		transactor = mongo.NewTransactor(dbClient)
		zapLogger.Info("Day completions run in transactions")
	}

	// --- Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	programRepo := mongo.NewMongoProgramRepository(appDB)
	assignmentRepo := mongo.NewMongoProgramAssignmentRepository(appDB)
	completionRepo := mongo.NewMongoDayCompletionRepository(appDB)
	uploadRepo := mongo.NewMongoUploadRepository(appDB)

	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			zapLogger.Warn("Redis unavailable, program structures are read from MongoDB", zap.Error(err))
		} else {
			defer rdb.Close()
			programRepo = cache.NewProgramCache(programRepo, rdb, cfg.Redis.CacheTTL, zapLogger)
			zapLogger.Info("Program structure cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// --- Collaborators ---
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			zapLogger.Warn("AMQP unavailable, progression events are dropped", zap.Error(err))
		} else {
			publisher = amqpPublisher
			zapLogger.Info("Publishing progression events", zap.String("exchange", cfg.AMQP.Exchange))
		}
	}
	defer publisher.Close()

	var fileStorage storage.FileStorage = storage.Disabled{}
	if s3Storage, err := storage.NewS3Storage(context.Background(), cfg.S3, zapLogger); err != nil {
		zapLogger.Warn("Progress media uploads disabled", zap.Error(err))
	} else {
		fileStorage = s3Storage
	}

	// --- Services ---
	services := api.Services{
		Auth:        service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, zapLogger),
		Exercises:   service.NewExerciseService(exerciseRepo),
		Trainers:    service.NewTrainerService(userRepo, exerciseRepo, programRepo, assignmentRepo, completionRepo, zapLogger),
		Clients:     service.NewClientService(programRepo, assignmentRepo, completionRepo, uploadRepo, fileStorage, zapLogger),
		Progression: service.NewProgressionService(assignmentRepo, completionRepo, programRepo, transactor, publisher, zapLogger),
	}

	// --- HTTP ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	limiter := api.NewUserRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go limiter.Run(sweepCtx, time.Minute)
	api.SetupRoutes(router, cfg.JWT.Secret, services, limiter, zapLogger)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("ListenAndServe failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}
