package repository

import (
	"context"

	"plategate/internal/domain/plate"
)

// Repository persists registrations and scan events. Implementations are
// append-only: nothing is ever updated or deleted.
type Repository interface {
	CreateRegistration(ctx context.Context, reg *plate.Registration) error
	ListRegistrations(ctx context.Context) ([]plate.Registration, error)
	// FindOwner returns the owner of the most recent registration whose
	// normalized plate equals plateNorm.
	FindOwner(ctx context.Context, plateNorm string) (string, bool, error)
	CreateScanEvent(ctx context.Context, event *plate.ScanEvent) error
	ListScanEvents(ctx context.Context, result plate.Result) ([]plate.ScanEvent, error)
	Ping(ctx context.Context) error
}
