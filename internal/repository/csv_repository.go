package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"plategate/internal/domain/plate"
	"plategate/internal/storage"
)

const (
	RegistrationsFile = "registrations.csv"
	PassesFile        = "passes.csv"
	FailsFile         = "fails.csv"
)

var (
	RegistrationHeaders = []string{"timestamp", "plate_norm", "plate_raw", "owner", "image_path"}
	ScanEventHeaders    = []string{"timestamp", "plate_detected_norm", "plate_detected_raw", "result", "matched_owner", "snapshot_path"}
)

// CSVRepository keeps registrations, passes and fails in three CSV logs
// inside a data directory. Every query is a full scan of the relevant file.
type CSVRepository struct {
	dataDir       string
	registrations *storage.CSVFile
	passes        *storage.CSVFile
	fails         *storage.CSVFile
}

func NewCSVRepository(dataDir string) (*CSVRepository, error) {
	registrations, err := storage.NewCSVFile(filepath.Join(dataDir, RegistrationsFile), RegistrationHeaders)
	if err != nil {
		return nil, err
	}
	passes, err := storage.NewCSVFile(filepath.Join(dataDir, PassesFile), ScanEventHeaders)
	if err != nil {
		return nil, err
	}
	fails, err := storage.NewCSVFile(filepath.Join(dataDir, FailsFile), ScanEventHeaders)
	if err != nil {
		return nil, err
	}
	return &CSVRepository{
		dataDir:       dataDir,
		registrations: registrations,
		passes:        passes,
		fails:         fails,
	}, nil
}

func (r *CSVRepository) CreateRegistration(_ context.Context, reg *plate.Registration) error {
	return r.registrations.Append([]string{
		plate.FormatTimestamp(reg.Timestamp),
		reg.PlateNorm,
		reg.PlateRaw,
		reg.Owner,
		reg.ImagePath,
	})
}

func (r *CSVRepository) ListRegistrations(_ context.Context) ([]plate.Registration, error) {
	rows, err := r.registrations.ReadAll()
	if err != nil {
		return nil, err
	}
	regs := make([]plate.Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, plate.Registration{
			Timestamp: plate.ParseTimestamp(row["timestamp"]),
			PlateNorm: row["plate_norm"],
			PlateRaw:  row["plate_raw"],
			Owner:     row["owner"],
			ImagePath: row["image_path"],
		})
	}
	return regs, nil
}

// FindOwner loads every registration and indexes it by plate_norm; later rows
// overwrite earlier ones, so the last registration of a plate wins.
func (r *CSVRepository) FindOwner(ctx context.Context, plateNorm string) (string, bool, error) {
	regs, err := r.ListRegistrations(ctx)
	if err != nil {
		return "", false, err
	}
	if plateNorm == "" {
		return "", false, nil
	}

	owners := make(map[string]string, len(regs))
	for _, reg := range regs {
		owners[reg.PlateNorm] = reg.Owner
	}
	owner, ok := owners[plateNorm]
	if !ok || owner == "" {
		return "", false, nil
	}
	return owner, true, nil
}

func (r *CSVRepository) CreateScanEvent(_ context.Context, event *plate.ScanEvent) error {
	file, err := r.eventsFile(event.Result)
	if err != nil {
		return err
	}
	return file.Append([]string{
		plate.FormatTimestamp(event.Timestamp),
		event.PlateDetectedNorm,
		event.PlateDetectedRaw,
		string(event.Result),
		event.MatchedOwner,
		event.SnapshotPath,
	})
}

func (r *CSVRepository) ListScanEvents(_ context.Context, result plate.Result) ([]plate.ScanEvent, error) {
	file, err := r.eventsFile(result)
	if err != nil {
		return nil, err
	}
	rows, err := file.ReadAll()
	if err != nil {
		return nil, err
	}
	events := make([]plate.ScanEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, plate.ScanEvent{
			Timestamp:         plate.ParseTimestamp(row["timestamp"]),
			PlateDetectedNorm: row["plate_detected_norm"],
			PlateDetectedRaw:  row["plate_detected_raw"],
			Result:            plate.Result(row["result"]),
			MatchedOwner:      row["matched_owner"],
			SnapshotPath:      row["snapshot_path"],
		})
	}
	return events, nil
}

func (r *CSVRepository) Ping(_ context.Context) error {
	info, err := os.Stat(r.dataDir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", r.dataDir)
	}
	return nil
}

func (r *CSVRepository) eventsFile(result plate.Result) (*storage.CSVFile, error) {
	switch result {
	case plate.ResultPass:
		return r.passes, nil
	case plate.ResultFail:
		return r.fails, nil
	default:
		return nil, fmt.Errorf("unknown scan result %q", result)
	}
}
