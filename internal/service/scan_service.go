package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"plategate/internal/domain/plate"
	"plategate/internal/ocr"
	"plategate/internal/repository"
	"plategate/internal/storage"
)

// Mirror copies a stored image to secondary storage.
type Mirror interface {
	UploadFile(ctx context.Context, key, path string) (string, error)
}

// ScanService runs one gate check: persist the snapshot, read the plate,
// look up the owner and log PASS or FAIL.
type ScanService struct {
	repo      repository.Repository
	snapshots *storage.ImageStore
	reader    *ocr.Reader
	mirror    Mirror
	log       zerolog.Logger
	now       func() time.Time
}

func NewScanService(
	repo repository.Repository,
	snapshots *storage.ImageStore,
	reader *ocr.Reader,
	mirror Mirror,
	log zerolog.Logger,
) *ScanService {
	return &ScanService{
		repo:      repo,
		snapshots: snapshots,
		reader:    reader,
		mirror:    mirror,
		log:       log,
		now:       time.Now,
	}
}

func (s *ScanService) Scan(ctx context.Context, req plate.ScanRequest) (*plate.ScanResult, error) {
	if strings.TrimSpace(req.Image) == "" {
		return nil, fmt.Errorf("%w: no image", ErrInvalidInput)
	}

	img, err := decodeDataURL(req.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageProcessing, err)
	}
	snapshotPath, err := s.snapshots.SaveJPEG(img, "scan")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageProcessing, err)
	}
	s.log.Info().Str("snapshot", snapshotPath).Msg("saved snapshot")

	mirrorImage(ctx, s.mirror, s.snapshots, snapshotPath, s.log)

	snapshot, err := s.snapshots.Load(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageProcessing, err)
	}

	reading, err := s.reader.Read(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to read plate: %w", err)
	}
	s.log.Info().
		Str("raw", reading.Raw).
		Str("norm", reading.Norm).
		Msg("ocr result")

	owner, found, err := s.repo.FindOwner(ctx, reading.Norm)
	if err != nil {
		return nil, fmt.Errorf("failed to look up plate owner: %w", err)
	}

	event := &plate.ScanEvent{
		Timestamp:         s.now(),
		PlateDetectedNorm: reading.Norm,
		PlateDetectedRaw:  reading.Raw,
		Result:            plate.ResultFail,
		SnapshotPath:      snapshotPath,
		Detections:        reading.Detections,
	}
	if found {
		event.Result = plate.ResultPass
		event.MatchedOwner = owner
	}

	if err := s.repo.CreateScanEvent(ctx, event); err != nil {
		s.log.Error().
			Err(err).
			Str("plate", reading.Norm).
			Str("result", string(event.Result)).
			Msg("failed to log scan event")
		return nil, fmt.Errorf("failed to log scan event: %w", err)
	}

	s.log.Info().
		Str("plate", reading.Norm).
		Str("result", string(event.Result)).
		Str("owner", event.MatchedOwner).
		Msg("scan logged")

	return &plate.ScanResult{
		Result:       event.Result,
		DetectedRaw:  reading.Raw,
		DetectedNorm: reading.Norm,
		MatchedOwner: event.MatchedOwner,
		SnapshotURL:  "/" + snapshotPath,
	}, nil
}

// mirrorImage copies a stored image to the mirror when one is configured.
// Failures are logged only; the local copy is authoritative.
func mirrorImage(ctx context.Context, mirror Mirror, store *storage.ImageStore, rel string, log zerolog.Logger) {
	if mirror == nil {
		return
	}
	abs, err := store.Abs(rel)
	if err != nil {
		log.Warn().Err(err).Str("path", rel).Msg("cannot mirror image")
		return
	}
	url, err := mirror.UploadFile(ctx, rel, abs)
	if err != nil {
		log.Warn().Err(err).Str("path", rel).Msg("failed to mirror image")
		return
	}
	log.Debug().Str("path", rel).Str("url", url).Msg("image mirrored")
}
