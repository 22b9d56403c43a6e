package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/attendance/internal/core"
)

// Sheet names of generated workbooks.
const (
	InvalidRowsSheet = "Invalid Rows"
	SummarySheet     = "Attendance Summary"
)

// SummaryHeader is the header row of the summary export.
var SummaryHeader = []string{"Date", "Shift", "Line", "Allotted", "Present", "Absent", "Attendance %"}

// WriteWorkbook saves a single-sheet workbook with a bold header row.
func WriteWorkbook(path, sheetName string, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if len(header) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("create header style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheetName, cell, &r); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WriteSummary exports summary records with the attendance percentage.
func WriteSummary(path string, records []core.SummaryRecord) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{
			r.Date,
			r.Shift,
			r.Line,
			r.Allotted,
			r.Present,
			r.Absent,
			core.AttendancePercent(r.Present, r.Allotted) + "%",
		}
	}
	return WriteWorkbook(path, SummarySheet, SummaryHeader, rows)
}
