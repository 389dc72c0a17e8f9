package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"plategate/internal/domain/plate"
	"plategate/internal/repository"
)

const (
	SheetRegistrations = "Registrations"
	SheetPasses        = "Passes"
	SheetFails         = "Fails"
)

// Workbook lays the three logs out as sheets with the same columns as the
// CSV files.
func Workbook(regs []plate.Registration, passes, fails []plate.ScanEvent) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetRegistrations); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetPasses, SheetFails} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	regRows := make([][]interface{}, 0, len(regs))
	for _, r := range regs {
		regRows = append(regRows, []interface{}{
			plate.FormatTimestamp(r.Timestamp), r.PlateNorm, r.PlateRaw, r.Owner, r.ImagePath,
		})
	}
	if err := writeSheet(f, SheetRegistrations, repository.RegistrationHeaders, regRows, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeSheet(f, SheetPasses, repository.ScanEventHeaders, eventRows(passes), headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeSheet(f, SheetFails, repository.ScanEventHeaders, eventRows(fails), headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// WriteWorkbook builds the workbook and streams it to w.
func WriteWorkbook(w io.Writer, regs []plate.Registration, passes, fails []plate.ScanEvent) error {
	f, err := Workbook(regs, passes, fails)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func eventRows(events []plate.ScanEvent) [][]interface{} {
	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, []interface{}{
			plate.FormatTimestamp(e.Timestamp), e.PlateDetectedNorm, e.PlateDetectedRaw, string(e.Result), e.MatchedOwner, e.SnapshotPath,
		})
	}
	return rows
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 22)
}
