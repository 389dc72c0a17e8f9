package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"plategate/internal/domain/plate"
)

func newTestCSVRepository(t *testing.T) (*CSVRepository, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	repo, err := NewCSVRepository(dir)
	if err != nil {
		t.Fatal(err)
	}
	return repo, dir
}

func TestNewCSVRepositoryCreatesFilesWithHeaders(t *testing.T) {
	_, dir := newTestCSVRepository(t)

	expected := map[string]string{
		RegistrationsFile: "timestamp,plate_norm,plate_raw,owner,image_path\n",
		PassesFile:        "timestamp,plate_detected_norm,plate_detected_raw,result,matched_owner,snapshot_path\n",
		FailsFile:         "timestamp,plate_detected_norm,plate_detected_raw,result,matched_owner,snapshot_path\n",
	}
	for name, header := range expected {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != header {
			t.Errorf("%s header = %q, want %q", name, got, header)
		}
	}
}

func TestFindOwnerLastRegistrationWins(t *testing.T) {
	repo, _ := newTestCSVRepository(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)

	for _, reg := range []plate.Registration{
		{Timestamp: ts, PlateNorm: "กข1234", PlateRaw: "กข 1234", Owner: "Somchai", ImagePath: "uploads/a.jpg"},
		{Timestamp: ts, PlateNorm: "AB123", PlateRaw: "AB-123", Owner: "Dao", ImagePath: "uploads/b.jpg"},
		{Timestamp: ts, PlateNorm: "กข1234", PlateRaw: "กข1234", Owner: "Malee", ImagePath: "uploads/c.jpg"},
	} {
		reg := reg
		if err := repo.CreateRegistration(ctx, &reg); err != nil {
			t.Fatal(err)
		}
	}

	owner, ok, err := repo.FindOwner(ctx, "กข1234")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || owner != "Malee" {
		t.Fatalf("FindOwner = %q, %v; want Malee, true", owner, ok)
	}

	if _, ok, _ := repo.FindOwner(ctx, "ZZ999"); ok {
		t.Fatal("unexpected match for unknown plate")
	}
	if _, ok, _ := repo.FindOwner(ctx, ""); ok {
		t.Fatal("empty plate must never match")
	}

	regs, err := repo.ListRegistrations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 3 || !regs[0].Timestamp.Equal(ts) || regs[1].PlateRaw != "AB-123" {
		t.Fatalf("unexpected registrations %+v", regs)
	}
}

func TestScanEventsSplitByResult(t *testing.T) {
	repo, dir := newTestCSVRepository(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)

	pass := &plate.ScanEvent{Timestamp: ts, PlateDetectedNorm: "AB123", PlateDetectedRaw: "AB 123", Result: plate.ResultPass, MatchedOwner: "Dao", SnapshotPath: "scans/s1.jpg"}
	fail := &plate.ScanEvent{Timestamp: ts, Result: plate.ResultFail, SnapshotPath: "scans/s2.jpg"}
	if err := repo.CreateScanEvent(ctx, pass); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateScanEvent(ctx, fail); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateScanEvent(ctx, &plate.ScanEvent{Result: "MAYBE"}); err == nil {
		t.Fatal("expected error for unknown result")
	}

	passes, err := repo.ListScanEvents(ctx, plate.ResultPass)
	if err != nil {
		t.Fatal(err)
	}
	if len(passes) != 1 || passes[0].MatchedOwner != "Dao" || passes[0].SnapshotPath != "scans/s1.jpg" {
		t.Fatalf("unexpected passes %+v", passes)
	}

	fails, err := repo.ListScanEvents(ctx, plate.ResultFail)
	if err != nil {
		t.Fatal(err)
	}
	if len(fails) != 1 || fails[0].MatchedOwner != "" || fails[0].Result != plate.ResultFail {
		t.Fatalf("unexpected fails %+v", fails)
	}

	raw, err := os.ReadFile(filepath.Join(dir, PassesFile))
	if err != nil {
		t.Fatal(err)
	}
	want := "timestamp,plate_detected_norm,plate_detected_raw,result,matched_owner,snapshot_path\n" +
		"2026-01-02T03:04:05,AB123,AB 123,PASS,Dao,scans/s1.jpg\n"
	if string(raw) != want {
		t.Fatalf("passes.csv = %q, want %q", raw, want)
	}

	if err := repo.Ping(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestFindOwnerHandEditedRow(t *testing.T) {
	repo, dir := newTestCSVRepository(t)

	row := "2026-01-01T10:00:00,AB123,AB 123,Tom \"T\" Smith,uploads/x.jpg\n"
	file, err := os.OpenFile(filepath.Join(dir, RegistrationsFile), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := file.WriteString(row); err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	owner, ok, err := repo.FindOwner(context.Background(), "AB123")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || owner != `Tom "T" Smith` {
		t.Fatalf("FindOwner = %q, %v", owner, ok)
	}
}
