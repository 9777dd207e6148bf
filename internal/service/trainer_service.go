package service

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/repository"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrClientNotFound         = errors.New("client user not found")
	ErrClientNotRole          = errors.New("user found but is not a client")
	ErrClientAlreadyAssigned  = errors.New("client is already assigned to a trainer")
	ErrClientNotManaged       = errors.New("client is not managed by this trainer")
	ErrProgramNotFound        = errors.New("program not found")
	ErrProgramInvalid         = errors.New("program is invalid")
	ErrAssignmentNotFound     = errors.New("program assignment not found")
	ErrAssignmentNotActive    = errors.New("program assignment is not active")
	ErrActiveAssignmentExists = errors.New("client already has an active program assignment")
)

type TrainerService interface {
	// Client roster
	AddClientByEmail(ctx context.Context, trainerID primitive.ObjectID, clientEmail string) (*domain.User, error)
	GetManagedClients(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)
	// EnsureManagesClient returns ErrClientNotFound or ErrClientNotManaged
	// unless clientID is on trainerID's roster.
	EnsureManagesClient(ctx context.Context, trainerID, clientID primitive.ObjectID) error

	// Programs
	CreateProgram(ctx context.Context, trainerID primitive.ObjectID, program *domain.Program) (*domain.Program, error)
	ListPrograms(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Program, error)
	GetProgram(ctx context.Context, trainerID, programID primitive.ObjectID) (*domain.Program, error)

	// Assignments
	AssignProgram(ctx context.Context, trainerID, clientID, programID primitive.ObjectID) (*domain.ProgramAssignment, error)
	ListClientAssignments(ctx context.Context, trainerID, clientID primitive.ObjectID) ([]domain.ProgramAssignment, error)
	CancelAssignment(ctx context.Context, trainerID, assignmentID primitive.ObjectID) (*domain.ProgramAssignment, error)
	GetClientProgress(ctx context.Context, trainerID, clientID primitive.ObjectID) (*ProgressView, error)
	ListCompletions(ctx context.Context, trainerID, assignmentID primitive.ObjectID) ([]domain.ProgramDayCompletion, error)
}

type trainerService struct {
	userRepo       repository.UserRepository
	exerciseRepo   repository.ExerciseRepository
	programRepo    repository.ProgramRepository
	assignmentRepo repository.ProgramAssignmentRepository
	completionRepo repository.DayCompletionRepository
	logger         *zap.Logger
}

func NewTrainerService(
	userRepo repository.UserRepository,
	exerciseRepo repository.ExerciseRepository,
	programRepo repository.ProgramRepository,
	assignmentRepo repository.ProgramAssignmentRepository,
	completionRepo repository.DayCompletionRepository,
	logger *zap.Logger,
) TrainerService {
	return &trainerService{
		userRepo:       userRepo,
		exerciseRepo:   exerciseRepo,
		programRepo:    programRepo,
		assignmentRepo: assignmentRepo,
		completionRepo: completionRepo,
		logger:         logger,
	}
}

// === Client roster ===

// AddClientByEmail finds a client by email and puts them on the trainer's roster.
func (s *trainerService) AddClientByEmail(ctx context.Context, trainerID primitive.ObjectID, clientEmail string) (*domain.User, error) {
	if trainerID == primitive.NilObjectID || clientEmail == "" {
		return nil, errors.New("trainer ID and client email are required")
	}

	client, err := s.userRepo.GetByEmail(ctx, clientEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if !client.IsClient() {
		return nil, ErrClientNotRole
	}

	if client.TrainerID != nil && *client.TrainerID != primitive.NilObjectID {
		if *client.TrainerID == trainerID {
			client.PasswordHash = ""
			return client, nil
		}
		return nil, ErrClientAlreadyAssigned
	}

	if err := s.userRepo.AddClientIDToTrainer(ctx, trainerID, client.ID); err != nil {
		return nil, err
	}
	// Not atomic with the roster update. A failure here leaves the client
	// on the roster without a back reference; retrying the call repairs it.
	if err := s.userRepo.SetTrainerForClient(ctx, client.ID, trainerID); err != nil {
		s.logger.Error("Client added to roster but trainer link failed",
			zap.String("trainer_id", trainerID.Hex()),
			zap.String("client_id", client.ID.Hex()),
			zap.Error(err),
		)
		return nil, err
	}

	client.TrainerID = &trainerID
	client.PasswordHash = ""
	return client, nil
}

func (s *trainerService) GetManagedClients(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required")
	}
	clients, err := s.userRepo.GetClientsByTrainerID(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		clients[i].PasswordHash = ""
	}
	return clients, nil
}

func (s *trainerService) EnsureManagesClient(ctx context.Context, trainerID, clientID primitive.ObjectID) error {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	if !client.IsClient() {
		return ErrClientNotFound
	}
	if !client.IsCoachedBy(trainerID) {
		return ErrClientNotManaged
	}
	return nil
}

// === Programs ===

// CreateProgram stores a new program. Every referenced exercise must be in
// the trainer's own library.
func (s *trainerService) CreateProgram(ctx context.Context, trainerID primitive.ObjectID, program *domain.Program) (*domain.Program, error) {
	if program.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrProgramInvalid)
	}
	if err := program.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProgramInvalid, err)
	}

	ids := referencedExercises(program)
	if len(ids) > 0 {
		owned, err := s.exerciseRepo.CountOwned(ctx, trainerID, ids)
		if err != nil {
			return nil, err
		}
		if owned != len(ids) {
			return nil, fmt.Errorf("%w: %d of %d exercises are not in your library",
				ErrProgramInvalid, len(ids)-owned, len(ids))
		}
	}

	program.TrainerID = trainerID
	if _, err := s.programRepo.Create(ctx, program); err != nil {
		return nil, err
	}

	s.logger.Info("Program created",
		zap.String("trainer_id", trainerID.Hex()),
		zap.String("program_id", program.ID.Hex()),
		zap.Int("weeks", len(program.Weeks)),
		zap.Int("days", program.TotalDays()),
	)
	return program, nil
}

// referencedExercises returns the distinct exercise IDs used by the program.
func referencedExercises(program *domain.Program) []primitive.ObjectID {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, w := range program.Weeks {
		for _, d := range w.Days {
			for _, e := range d.Exercises {
				if !seen[e.ExerciseID] {
					seen[e.ExerciseID] = true
					ids = append(ids, e.ExerciseID)
				}
			}
		}
	}
	return ids
}

func (s *trainerService) ListPrograms(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Program, error) {
	return s.programRepo.ListByTrainerID(ctx, trainerID)
}

func (s *trainerService) GetProgram(ctx context.Context, trainerID, programID primitive.ObjectID) (*domain.Program, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	if program.TrainerID != trainerID {
		return nil, ErrProgramNotFound
	}
	return program, nil
}

// === Assignments ===

// AssignProgram starts a client on the first day of a program. A client has
// at most one active assignment; the previous one must be cancelled or
// completed first.
func (s *trainerService) AssignProgram(ctx context.Context, trainerID, clientID, programID primitive.ObjectID) (*domain.ProgramAssignment, error) {
	if err := s.EnsureManagesClient(ctx, trainerID, clientID); err != nil {
		return nil, err
	}
	program, err := s.GetProgram(ctx, trainerID, programID)
	if err != nil {
		return nil, err
	}

	assignment := &domain.ProgramAssignment{
		ClientID:    clientID,
		TrainerID:   trainerID,
		ProgramID:   program.ID,
		ProgramName: program.Name,
	}
	if _, err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrActiveAssignmentExists
		}
		return nil, err
	}

	s.logger.Info("Program assigned",
		zap.String("assignment_id", assignment.ID.Hex()),
		zap.String("client_id", clientID.Hex()),
		zap.String("program_id", programID.Hex()),
	)
	return assignment, nil
}

func (s *trainerService) ListClientAssignments(ctx context.Context, trainerID, clientID primitive.ObjectID) ([]domain.ProgramAssignment, error) {
	if err := s.EnsureManagesClient(ctx, trainerID, clientID); err != nil {
		return nil, err
	}
	assignments, err := s.assignmentRepo.ListByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	// Only assignments this trainer created; a client may have switched trainers.
	own := assignments[:0]
	for _, a := range assignments {
		if a.TrainerID == trainerID {
			own = append(own, a)
		}
	}
	return own, nil
}

func (s *trainerService) CancelAssignment(ctx context.Context, trainerID, assignmentID primitive.ObjectID) (*domain.ProgramAssignment, error) {
	assignment, err := s.ownedAssignment(ctx, trainerID, assignmentID)
	if err != nil {
		return nil, err
	}

	if err := s.assignmentRepo.Cancel(ctx, assignmentID); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrAssignmentNotActive
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}

	s.logger.Info("Program assignment cancelled",
		zap.String("assignment_id", assignmentID.Hex()),
		zap.String("client_id", assignment.ClientID.Hex()),
	)
	return s.assignmentRepo.GetByID(ctx, assignmentID)
}

// GetClientProgress shows the client's active assignment, or the most recent
// one when nothing is active.
func (s *trainerService) GetClientProgress(ctx context.Context, trainerID, clientID primitive.ObjectID) (*ProgressView, error) {
	if err := s.EnsureManagesClient(ctx, trainerID, clientID); err != nil {
		return nil, err
	}
	assignment, err := currentOrLatestAssignment(ctx, s.assignmentRepo, clientID)
	if err != nil {
		return nil, err
	}
	return buildProgressView(ctx, s.programRepo, s.completionRepo, assignment)
}

func (s *trainerService) ListCompletions(ctx context.Context, trainerID, assignmentID primitive.ObjectID) ([]domain.ProgramDayCompletion, error) {
	if _, err := s.ownedAssignment(ctx, trainerID, assignmentID); err != nil {
		return nil, err
	}
	return s.completionRepo.ListByAssignmentID(ctx, assignmentID)
}

func (s *trainerService) ownedAssignment(ctx context.Context, trainerID, assignmentID primitive.ObjectID) (*domain.ProgramAssignment, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	if assignment.TrainerID != trainerID {
		return nil, ErrAssignmentNotFound
	}
	return assignment, nil
}

// currentOrLatestAssignment prefers the active assignment and falls back to
// the most recent one of any status.
func currentOrLatestAssignment(ctx context.Context, repo repository.ProgramAssignmentRepository, clientID primitive.ObjectID) (*domain.ProgramAssignment, error) {
	assignment, err := repo.GetActiveByClientID(ctx, clientID)
	if err == nil {
		return assignment, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	assignment, err = repo.GetLatestByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return assignment, nil
}
