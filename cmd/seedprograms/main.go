// Command seedprograms loads program templates from YAML into a trainer's
// library.
//
//	seedprograms -trainer coach@example.com -dir ./programs
package main

import (
	"coachline/fitness-api/internal/config"
	"coachline/fitness-api/internal/logger"
	"coachline/fitness-api/internal/repository/mongo"
	"coachline/fitness-api/internal/seed"
	"coachline/fitness-api/internal/service"
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"
)

func main() {
	trainerEmail := flag.String("trainer", "", "email of the trainer who will own the programs")
	dir := flag.String("dir", "programs", "directory of *.yaml program templates")
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	if *trainerEmail == "" {
		log.Fatal("FATAL: -trainer is required")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	cfg.Log.File = ""
	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer zapLogger.Sync()

	files, err := seed.LoadDir(*dir)
	if err != nil {
		zapLogger.Fatal("Could not load templates", zap.Error(err))
	}

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		zapLogger.Fatal("Could not connect to MongoDB", zap.Error(err))
	}
	defer mongo.DisconnectDB(dbClient)
	appDB := dbClient.Database(cfg.Database.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	userRepo := mongo.NewMongoUserRepository(appDB)
	trainer, err := userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(*trainerEmail)))
	if err != nil {
		zapLogger.Fatal("Could not find trainer", zap.String("email", *trainerEmail), zap.Error(err))
	}
	if !trainer.IsTrainer() {
		zapLogger.Fatal("User is not a trainer", zap.String("email", *trainerEmail))
	}

	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	seeder := seed.NewSeeder(
		service.NewExerciseService(exerciseRepo),
		service.NewTrainerService(userRepo, exerciseRepo,
			mongo.NewMongoProgramRepository(appDB),
			mongo.NewMongoProgramAssignmentRepository(appDB),
			mongo.NewMongoDayCompletionRepository(appDB),
			zapLogger),
		zapLogger,
	)

	res, err := seeder.Apply(ctx, trainer.ID, files)
	if err != nil {
		zapLogger.Fatal("Seeding failed", zap.Error(err))
	}
	zapLogger.Info("Seeding finished",
		zap.String("trainer", trainer.Email),
		zap.Int("exercises_created", res.ExercisesCreated),
		zap.Int("programs_created", res.ProgramsCreated),
		zap.Int("programs_skipped", res.ProgramsSkipped),
	)
}
