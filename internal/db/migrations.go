package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	// Registrations are append-only; the newest row for a plate_norm decides the owner.
	`CREATE TABLE IF NOT EXISTS plate_registrations (
		id          UUID PRIMARY KEY,
		plate_norm  TEXT NOT NULL,
		plate_raw   TEXT NOT NULL,
		owner       TEXT NOT NULL,
		image_path  TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_registrations_norm_time ON plate_registrations(plate_norm, created_at DESC);`,

	`CREATE TABLE IF NOT EXISTS plate_scan_events (
		id                   UUID PRIMARY KEY,
		plate_detected_norm  TEXT NOT NULL,
		plate_detected_raw   TEXT NOT NULL,
		result               TEXT NOT NULL CHECK (result IN ('PASS', 'FAIL')),
		matched_owner        TEXT NOT NULL DEFAULT '',
		snapshot_path        TEXT NOT NULL,
		detections           JSONB,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_scan_events_result_time ON plate_scan_events(result, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_scan_events_norm ON plate_scan_events(plate_detected_norm);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
