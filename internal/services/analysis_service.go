package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"lumiscan/internal/models"
	"lumiscan/internal/repositories"

	"github.com/google/uuid"
)

const presignedURLExpiry = 24 * time.Hour

// SaveAnalysisInput carries one analysis submission.
type SaveAnalysisInput struct {
	Result       json.RawMessage
	Score        *float64
	AnalysisType string
	Image        io.Reader
	ImageSize    int64
	ContentType  string
}

// AnalysisService stores analysis results; each save consumes one quota
// unit.
type AnalysisService interface {
	Save(ctx context.Context, userID uuid.UUID, input *SaveAnalysisInput) (*models.Analysis, int, error)
	GetByID(ctx context.Context, userID, analysisID uuid.UUID) (*models.Analysis, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Analysis, error)
	Delete(ctx context.Context, userID, analysisID uuid.UUID) error
}

type analysisService struct {
	analysisRepo   repositories.AnalysisRepository
	entitlementSvc EntitlementService
	minioSvc       MinioService
	bucket         string
}

// NewAnalysisService creates a new AnalysisService instance
func NewAnalysisService(
	analysisRepo repositories.AnalysisRepository,
	entitlementSvc EntitlementService,
	minioSvc MinioService,
	bucket string,
) AnalysisService {
	return &analysisService{
		analysisRepo:   analysisRepo,
		entitlementSvc: entitlementSvc,
		minioSvc:       minioSvc,
		bucket:         bucket,
	}
}

// Save uploads the image, writes the analysis row, then spends one quota
// unit linked to it. If the quota spend is rejected (the atomic check ran
// after a concurrent consumer took the last unit), the analysis row and
// image are removed again so nothing unmetered persists.
func (s *analysisService) Save(ctx context.Context, userID uuid.UUID, input *SaveAnalysisInput) (*models.Analysis, int, error) {
	analysis := &models.Analysis{
		ID:     uuid.New(),
		UserID: userID,
		Result: input.Result,
		Score:  input.Score,
	}
	if len(analysis.Result) == 0 {
		analysis.Result = json.RawMessage("{}")
	}

	var objectName string
	if input.Image != nil {
		objectName = fmt.Sprintf("%s/%s.jpg", userID.String(), analysis.ID.String())
		if err := s.minioSvc.UploadImage(ctx, s.bucket, objectName, input.Image, input.ImageSize, input.ContentType); err != nil {
			return nil, 0, fmt.Errorf("failed to upload analysis image: %v", err)
		}

		url, err := s.minioSvc.GetPresignedURL(s.bucket, objectName, presignedURLExpiry)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to presign analysis image: %v", err)
		}
		analysis.ImageURL = &url
	}

	if err := s.analysisRepo.Create(ctx, analysis); err != nil {
		s.cleanupImage(ctx, objectName)
		return nil, 0, fmt.Errorf("failed to store analysis: %v", err)
	}

	newCount, err := s.entitlementSvc.Consume(ctx, userID, &analysis.ID, input.AnalysisType)
	if err != nil {
		if delErr := s.analysisRepo.Delete(ctx, userID, analysis.ID); delErr != nil {
			log.Printf("WARN: failed to roll back analysis %s after rejected quota spend: %v", analysis.ID, delErr)
		}
		s.cleanupImage(ctx, objectName)
		return nil, 0, err
	}

	return analysis, newCount, nil
}

// GetByID gets one of the user's analyses
func (s *analysisService) GetByID(ctx context.Context, userID, analysisID uuid.UUID) (*models.Analysis, error) {
	return s.analysisRepo.GetByID(ctx, userID, analysisID)
}

// List lists the user's analyses, newest first
func (s *analysisService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.analysisRepo.List(ctx, userID, limit, offset)
}

// Delete removes one of the user's analyses. The usage event it charged
// stays; quota was spent.
func (s *analysisService) Delete(ctx context.Context, userID, analysisID uuid.UUID) error {
	return s.analysisRepo.Delete(ctx, userID, analysisID)
}

func (s *analysisService) cleanupImage(ctx context.Context, objectName string) {
	if objectName == "" {
		return
	}
	if err := s.minioSvc.DeleteImage(ctx, s.bucket, objectName); err != nil {
		log.Printf("WARN: failed to remove orphaned analysis image %s: %v", objectName, err)
	}
}
