package bulkupload

import (
	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/sheet"
)

// DefaultReportName is the rejection workbook written next to the upload.
const DefaultReportName = "InvalidUserShifts.xlsx"

// WriteReport saves the refused rows to path. Nothing is written when there
// are no refused rows, and the boolean result is false.
//
// Columns are Row (the worksheet row number, header being row 1), the
// upload's own header, and Reason.
func WriteReport(path string, header []string, invalid []core.InvalidRow) (bool, error) {
	if len(invalid) == 0 {
		return false, nil
	}

	width := len(header)
	for _, r := range invalid {
		width = max(width, r.Row.ColumnCount())
	}

	cols := make([]string, 0, width+2)
	cols = append(cols, "Row")
	cols = append(cols, header...)
	for i := len(header); i < width; i++ {
		cols = append(cols, core.ColumnKey(i))
	}
	cols = append(cols, "Reason")

	rows := make([][]any, len(invalid))
	for i, r := range invalid {
		row := make([]any, 0, width+2)
		row = append(row, r.ID+2)
		for _, v := range r.Row.Values(width) {
			row = append(row, v)
		}
		row = append(row, r.Reason)
		rows[i] = row
	}

	if err := sheet.WriteWorkbook(path, sheet.InvalidRowsSheet, cols, rows); err != nil {
		return false, err
	}
	return true, nil
}
