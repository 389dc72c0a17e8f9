package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"plategate/internal/config"
	"plategate/internal/db"
	"plategate/internal/ocr"
	"plategate/internal/repository"
	"plategate/internal/service"
	"plategate/internal/storage"
)

// openRepository returns the configured store and a function releasing it.
func openRepository(cfg *config.Config, log zerolog.Logger) (repository.Repository, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		database, err := db.New(cfg, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect database: %w", err)
		}
		closeFn := func() {
			if sqlDB, err := database.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repository.NewPlateRepository(database), closeFn, nil
	default:
		repo, err := repository.NewCSVRepository(cfg.Paths.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open csv store: %w", err)
		}
		return repo, func() {}, nil
	}
}

func newEngine(ctx context.Context, cfg *config.Config) (ocr.Engine, error) {
	switch cfg.OCR.Engine {
	case config.OCREngineRekognition:
		return ocr.NewRekognitionEngine(ctx, cfg.OCR.AWSRegion)
	default:
		return ocr.NewCommandEngine(cfg.OCR.Command, cfg.OCR.CommandArgs)
	}
}

// newMirror returns nil when R2 is not configured.
func newMirror(cfg *config.Config, log zerolog.Logger) (service.Mirror, error) {
	client, err := storage.NewR2Client(storage.R2Config(cfg.R2))
	if errors.Is(err, storage.ErrNotConfigured) {
		log.Warn().Msg("R2 storage not configured, images are kept on local disk only")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize R2 client: %w", err)
	}
	return client, nil
}
