package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"plategate/internal/db"
	"plategate/internal/domain/plate"
)

// PlateRepository is the Postgres backend. Registrations are looked up
// through an index on plate_norm instead of a full scan.
type PlateRepository struct {
	db *gorm.DB
}

func NewPlateRepository(db *gorm.DB) *PlateRepository {
	return &PlateRepository{db: db}
}

func (PlateRegistration) TableName() string {
	return "plate_registrations"
}

func (PlateScanEvent) TableName() string {
	return "plate_scan_events"
}

type PlateRegistration struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlateNorm string    `gorm:"not null;index"`
	PlateRaw  string    `gorm:"not null"`
	Owner     string    `gorm:"not null"`
	ImagePath string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type PlateScanEvent struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	PlateDetectedNorm string         `gorm:"not null"`
	PlateDetectedRaw  string         `gorm:"not null"`
	Result            string         `gorm:"not null"`
	MatchedOwner      string         `gorm:"not null"`
	SnapshotPath      string         `gorm:"not null"`
	Detections        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt         time.Time      `gorm:"not null"`
}

func (r *PlateRepository) CreateRegistration(ctx context.Context, reg *plate.Registration) error {
	row := PlateRegistration{
		ID:        uuid.New(),
		PlateNorm: reg.PlateNorm,
		PlateRaw:  reg.PlateRaw,
		Owner:     reg.Owner,
		ImagePath: reg.ImagePath,
		CreatedAt: reg.Timestamp,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *PlateRepository) ListRegistrations(ctx context.Context) ([]plate.Registration, error) {
	var rows []PlateRegistration
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	regs := make([]plate.Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, plate.Registration{
			Timestamp: row.CreatedAt,
			PlateNorm: row.PlateNorm,
			PlateRaw:  row.PlateRaw,
			Owner:     row.Owner,
			ImagePath: row.ImagePath,
		})
	}
	return regs, nil
}

func (r *PlateRepository) FindOwner(ctx context.Context, plateNorm string) (string, bool, error) {
	if plateNorm == "" {
		return "", false, nil
	}

	var row PlateRegistration
	err := r.db.WithContext(ctx).
		Where("plate_norm = ?", plateNorm).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if row.Owner == "" {
		return "", false, nil
	}
	return row.Owner, true, nil
}

func (r *PlateRepository) CreateScanEvent(ctx context.Context, event *plate.ScanEvent) error {
	row := PlateScanEvent{
		ID:                uuid.New(),
		PlateDetectedNorm: event.PlateDetectedNorm,
		PlateDetectedRaw:  event.PlateDetectedRaw,
		Result:            string(event.Result),
		MatchedOwner:      event.MatchedOwner,
		SnapshotPath:      event.SnapshotPath,
		CreatedAt:         event.Timestamp,
	}
	if len(event.Detections) > 0 {
		raw, err := json.Marshal(event.Detections)
		if err != nil {
			return fmt.Errorf("marshal detections: %w", err)
		}
		row.Detections = datatypes.JSON(raw)
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create scan event in database: %w", err)
	}
	return nil
}

func (r *PlateRepository) ListScanEvents(ctx context.Context, result plate.Result) ([]plate.ScanEvent, error) {
	var rows []PlateScanEvent
	err := r.db.WithContext(ctx).
		Where("result = ?", string(result)).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]plate.ScanEvent, 0, len(rows))
	for _, row := range rows {
		event := plate.ScanEvent{
			Timestamp:         row.CreatedAt,
			PlateDetectedNorm: row.PlateDetectedNorm,
			PlateDetectedRaw:  row.PlateDetectedRaw,
			Result:            plate.Result(row.Result),
			MatchedOwner:      row.MatchedOwner,
			SnapshotPath:      row.SnapshotPath,
		}
		if len(row.Detections) > 0 {
			if err := json.Unmarshal(row.Detections, &event.Detections); err != nil {
				return nil, fmt.Errorf("unmarshal detections: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *PlateRepository) Ping(ctx context.Context) error {
	return db.HealthCheck(ctx, r.db)
}
