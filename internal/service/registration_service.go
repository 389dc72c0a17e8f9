package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"plategate/internal/domain/plate"
	"plategate/internal/repository"
	"plategate/internal/storage"
	"plategate/internal/utils"
)

type RegistrationService struct {
	repo    repository.Repository
	uploads *storage.ImageStore
	mirror  Mirror
	log     zerolog.Logger
	now     func() time.Time
}

func NewRegistrationService(
	repo repository.Repository,
	uploads *storage.ImageStore,
	mirror Mirror,
	log zerolog.Logger,
) *RegistrationService {
	return &RegistrationService{
		repo:    repo,
		uploads: uploads,
		mirror:  mirror,
		log:     log,
		now:     time.Now,
	}
}

func (s *RegistrationService) Register(ctx context.Context, in plate.RegistrationInput) (*plate.Registration, error) {
	owner := strings.TrimSpace(in.Owner)
	plateRaw := strings.TrimSpace(in.PlateRaw)
	if owner == "" || plateRaw == "" || in.Photo == nil {
		return nil, fmt.Errorf("%w: owner, plate and image are required", ErrInvalidInput)
	}

	normalized := utils.NormalizePlate(plateRaw)
	if normalized == "" {
		return nil, fmt.Errorf("%w: plate has no recognizable characters", ErrInvalidInput)
	}

	imagePath, err := s.uploads.SaveUpload(in.PhotoFilename, in.Photo)
	if err != nil {
		return nil, fmt.Errorf("failed to save plate photo: %w", err)
	}
	mirrorImage(ctx, s.mirror, s.uploads, imagePath, s.log)

	reg := &plate.Registration{
		Timestamp: s.now(),
		PlateNorm: normalized,
		PlateRaw:  plateRaw,
		Owner:     owner,
		ImagePath: imagePath,
	}
	if err := s.repo.CreateRegistration(ctx, reg); err != nil {
		s.log.Error().
			Err(err).
			Str("plate", normalized).
			Msg("failed to create registration")
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	s.log.Info().
		Str("plate", normalized).
		Str("plate_raw", plateRaw).
		Str("owner", owner).
		Str("image", imagePath).
		Msg("plate registered")

	return reg, nil
}
