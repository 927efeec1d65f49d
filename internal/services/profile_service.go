package services

import (
	"context"
	"fmt"

	"lumiscan/internal/models"
	"lumiscan/internal/repositories"

	"github.com/google/uuid"
)

// ProfileService handles profile business logic
type ProfileService interface {
	Ensure(ctx context.Context, userID uuid.UUID, email string) (*models.Profile, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type profileService struct {
	profileRepo repositories.ProfileRepository
}

// NewProfileService creates a new ProfileService instance
func NewProfileService(profileRepo repositories.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

// Ensure creates the profile row on first authenticated request and returns
// it; the identity provider owns account creation, we only mirror it.
func (s *profileService) Ensure(ctx context.Context, userID uuid.UUID, email string) (*models.Profile, error) {
	if err := s.profileRepo.Upsert(ctx, &models.Profile{ID: userID, Email: email}); err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %v", err)
	}
	return s.profileRepo.GetByID(ctx, userID)
}

// GetByID gets the user's own profile
func (s *profileService) GetByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return s.profileRepo.GetByID(ctx, userID)
}

// Update applies self-service edits to display attributes
func (s *profileService) Update(ctx context.Context, profile *models.Profile) error {
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		if repositories.IsUniqueViolation(err) {
			return fmt.Errorf("username is already taken")
		}
		return err
	}
	return nil
}

// Delete removes the profile and, via cascade, every row the user owns
func (s *profileService) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.profileRepo.Delete(ctx, userID)
}
