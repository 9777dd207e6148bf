package service

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/repository"
	"coachline/fitness-api/internal/storage"
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrCompletionNotFound       = errors.New("day completion not found")
	ErrUploadAlreadyExists      = errors.New("progress media already attached to this day")
	ErrUploadNotFound           = errors.New("no progress media attached to this day")
	ErrUploadKeyMismatch        = errors.New("object key was not issued for this day completion")
	ErrUnsupportedMediaType     = errors.New("content type must be an image or video")
	ErrUploadURLError           = errors.New("failed to generate upload URL")
	ErrDownloadURLError         = errors.New("failed to generate download URL")
	ErrUploadConfirmationFailed = errors.New("failed to confirm upload")
)

// UploadURLResponse is returned to the client before a direct upload.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"` // echoed back on confirm
}

// UploadConfirmation describes an object the client finished uploading.
type UploadConfirmation struct {
	ObjectKey   string
	FileName    string
	ContentType string
	Size        int64
}

type ClientService interface {
	GetMyProgram(ctx context.Context, clientID primitive.ObjectID) (*ProgressView, error)
	ListMyAssignments(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgramAssignment, error)
	ListMyCompletions(ctx context.Context, clientID, assignmentID primitive.ObjectID) ([]domain.ProgramDayCompletion, error)

	// Progress media for a completed day
	RequestUploadURL(ctx context.Context, clientID, completionID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
	ConfirmUpload(ctx context.Context, clientID, completionID primitive.ObjectID, in UploadConfirmation) (*domain.Upload, error)
	GetUploadDownloadURL(ctx context.Context, clientID, completionID primitive.ObjectID) (string, error)
}

type clientService struct {
	programRepo    repository.ProgramRepository
	assignmentRepo repository.ProgramAssignmentRepository
	completionRepo repository.DayCompletionRepository
	uploadRepo     repository.UploadRepository
	fileStorage    storage.FileStorage
	logger         *zap.Logger
}

func NewClientService(
	programRepo repository.ProgramRepository,
	assignmentRepo repository.ProgramAssignmentRepository,
	completionRepo repository.DayCompletionRepository,
	uploadRepo repository.UploadRepository,
	fileStorage storage.FileStorage,
	logger *zap.Logger,
) ClientService {
	return &clientService{
		programRepo:    programRepo,
		assignmentRepo: assignmentRepo,
		completionRepo: completionRepo,
		uploadRepo:     uploadRepo,
		fileStorage:    fileStorage,
		logger:         logger,
	}
}

// === Program viewing ===

func (s *clientService) GetMyProgram(ctx context.Context, clientID primitive.ObjectID) (*ProgressView, error) {
	assignment, err := currentOrLatestAssignment(ctx, s.assignmentRepo, clientID)
	if err != nil {
		return nil, err
	}
	return buildProgressView(ctx, s.programRepo, s.completionRepo, assignment)
}

func (s *clientService) ListMyAssignments(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgramAssignment, error) {
	return s.assignmentRepo.ListByClientID(ctx, clientID)
}

func (s *clientService) ListMyCompletions(ctx context.Context, clientID, assignmentID primitive.ObjectID) ([]domain.ProgramDayCompletion, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	if assignment.ClientID != clientID {
		return nil, ErrAssignmentNotFound
	}
	return s.completionRepo.ListByAssignmentID(ctx, assignmentID)
}

// === Progress media ===

// RequestUploadURL issues a presigned PUT for a photo or video of a day the
// client completed.
func (s *clientService) RequestUploadURL(ctx context.Context, clientID, completionID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(contentType, "video/") && !strings.HasPrefix(contentType, "image/") {
		return nil, ErrUnsupportedMediaType
	}

	completion, err := s.ownedCompletion(ctx, clientID, completionID)
	if err != nil {
		return nil, err
	}
	if completion.UploadID != nil {
		return nil, ErrUploadAlreadyExists
	}

	extension := contentType[strings.Index(contentType, "/")+1:]
	objectKey := path.Join(uploadPrefix(clientID, completionID), uuid.NewString()+"."+extension)

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		s.logger.Error("Failed to issue upload URL", zap.String("completion_id", completionID.Hex()), zap.Error(err))
		return nil, ErrUploadURLError
	}

	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmUpload records the uploaded object and links it to the completion.
func (s *clientService) ConfirmUpload(ctx context.Context, clientID, completionID primitive.ObjectID, in UploadConfirmation) (*domain.Upload, error) {
	if !strings.HasPrefix(in.ObjectKey, uploadPrefix(clientID, completionID)+"/") {
		return nil, ErrUploadKeyMismatch
	}

	completion, err := s.ownedCompletion(ctx, clientID, completionID)
	if err != nil {
		return nil, err
	}
	if completion.UploadID != nil {
		return nil, ErrUploadAlreadyExists
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, completion.ProgramAssignmentID)
	if err != nil {
		return nil, err
	}

	upload := &domain.Upload{
		DayCompletionID: completionID,
		ClientID:        clientID,
		TrainerID:       assignment.TrainerID,
		S3ObjectKey:     in.ObjectKey,
		FileName:        in.FileName,
		ContentType:     in.ContentType,
		Size:            in.Size,
	}
	uploadID, err := s.uploadRepo.Create(ctx, upload)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.resolveDuplicateUpload(ctx, completionID, in.ObjectKey)
		}
		s.logger.Error("Failed to save upload metadata", zap.String("completion_id", completionID.Hex()), zap.Error(err))
		return nil, ErrUploadConfirmationFailed
	}

	if err := s.completionRepo.SetUpload(ctx, completionID, uploadID); err != nil {
		// The upload row stays; the unique index keeps a retry from creating a second one.
		s.logger.Error("Upload saved but not linked to completion",
			zap.String("completion_id", completionID.Hex()),
			zap.String("upload_id", uploadID.Hex()),
			zap.Error(err),
		)
		return nil, ErrUploadConfirmationFailed
	}
	return upload, nil
}

// resolveDuplicateUpload handles a confirm for a day that already has upload
// metadata. Re-confirming the same key finishes a link that failed earlier;
// a different key lost the race and its object is removed.
func (s *clientService) resolveDuplicateUpload(ctx context.Context, completionID primitive.ObjectID, objectKey string) (*domain.Upload, error) {
	existing, err := s.uploadRepo.GetByDayCompletionID(ctx, completionID)
	if err != nil {
		return nil, err
	}

	if existing.S3ObjectKey == objectKey {
		if err := s.completionRepo.SetUpload(ctx, completionID, existing.ID); err != nil {
			return nil, ErrUploadConfirmationFailed
		}
		return existing, nil
	}

	if err := s.fileStorage.DeleteObject(ctx, objectKey); err != nil {
		s.logger.Warn("Failed to delete superseded upload", zap.String("key", objectKey), zap.Error(err))
	}
	return nil, ErrUploadAlreadyExists
}

func (s *clientService) GetUploadDownloadURL(ctx context.Context, clientID, completionID primitive.ObjectID) (string, error) {
	if _, err := s.ownedCompletion(ctx, clientID, completionID); err != nil {
		return "", err
	}

	upload, err := s.uploadRepo.GetByDayCompletionID(ctx, completionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUploadNotFound
		}
		return "", err
	}

	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, upload.S3ObjectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		s.logger.Error("Failed to issue download URL", zap.String("key", upload.S3ObjectKey), zap.Error(err))
		return "", ErrDownloadURLError
	}
	return url, nil
}

func (s *clientService) ownedCompletion(ctx context.Context, clientID, completionID primitive.ObjectID) (*domain.ProgramDayCompletion, error) {
	completion, err := s.completionRepo.GetByID(ctx, completionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCompletionNotFound
		}
		return nil, err
	}
	if completion.ClientID != clientID {
		return nil, ErrCompletionNotFound
	}
	return completion, nil
}

func uploadPrefix(clientID, completionID primitive.ObjectID) string {
	return path.Join("uploads", clientID.Hex(), completionID.Hex())
}
