package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"plategate/internal/domain/plate"
)

func TestWriteWorkbook(t *testing.T) {
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.Local)
	regs := []plate.Registration{
		{Timestamp: ts, PlateNorm: "กข1234", PlateRaw: "กข 1234", Owner: "Somchai", ImagePath: "uploads/a.jpg"},
	}
	passes := []plate.ScanEvent{
		{Timestamp: ts, PlateDetectedNorm: "กข1234", PlateDetectedRaw: "กข1234", Result: plate.ResultPass, MatchedOwner: "Somchai", SnapshotPath: "scans/s1.jpg"},
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, regs, passes, nil); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 3 || got[0] != SheetRegistrations || got[1] != SheetPasses || got[2] != SheetFails {
		t.Fatalf("unexpected sheets %v", got)
	}

	rows, err := f.GetRows(SheetRegistrations)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][1] != "plate_norm" || rows[1][3] != "Somchai" || rows[1][0] != "2026-02-03T04:05:06" {
		t.Fatalf("unexpected registration rows %v", rows)
	}

	rows, err = f.GetRows(SheetPasses)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][3] != "PASS" || rows[1][5] != "scans/s1.jpg" {
		t.Fatalf("unexpected pass rows %v", rows)
	}

	rows, err = f.GetRows(SheetFails)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0][0] != "timestamp" {
		t.Fatalf("unexpected fail rows %v", rows)
	}
}

func TestWriteWorkbookUnreadableTimestamp(t *testing.T) {
	fails := []plate.ScanEvent{
		{Timestamp: plate.ParseTimestamp("garbled"), PlateDetectedNorm: "ZZ9999", Result: plate.ResultFail, SnapshotPath: "scans/f.jpg"},
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, nil, nil, fails); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetFails)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != "" || rows[1][1] != "ZZ9999" {
		t.Fatalf("unexpected fail rows %v", rows)
	}
}
