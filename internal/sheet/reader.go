// Package sheet reads upload workbooks into row records and writes the
// workbooks the client produces: the rejection report and the summary export.
package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/attendance/internal/core"
)

// ErrUnsupportedFile is returned for files that are not .xlsx or .xls.
var ErrUnsupportedFile = errors.New("unsupported file type")

// ErrNoDataRows is returned with an empty Parsed when the first worksheet has
// no rows below the header, or no rows at all.
var ErrNoDataRows = errors.New("no data rows")

// maxXLSRows bounds legacy workbook reads.
const maxXLSRows = 100000

// date1904Offset is the serial of 1904-01-01 in the 1900 date system.
const date1904Offset = 1462

// ReadRows returns the cells of the first worksheet. Excel dates come back
// as 1900-system serial numbers so that the server, not the workbook's
// display format, decides how to read them.
func ReadRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".xls":
		return readXLS(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("read workbook: no worksheet found")
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}

	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	if props.Date1904 != nil && *props.Date1904 {
		if err := shift1904(f, name, rows); err != nil {
			return nil, fmt.Errorf("read workbook: %w", err)
		}
	}
	return rows, nil
}

// shift1904 rewrites date-formatted serials of a 1904-system workbook to
// their 1900-system value. Plain numbers are left alone.
func shift1904(f *excelize.File, sheet string, rows [][]string) error {
	for r, row := range rows {
		for c, v := range row {
			serial, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			isDate, err := dateStyled(f, sheet, cell)
			if err != nil {
				return err
			}
			if isDate {
				row[c] = strconv.FormatFloat(serial+date1904Offset, 'f', -1, 64)
			}
		}
	}
	return nil
}

func dateStyled(f *excelize.File, sheet, cell string) (bool, error) {
	id, err := f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false, err
	}
	style, err := f.GetStyle(id)
	if err != nil {
		return false, err
	}
	if style.CustomNumFmt != nil {
		return isDateFormat(*style.CustomNumFmt), nil
	}
	// Built-in date and date-time formats.
	n := style.NumFmt
	return (n >= 14 && n <= 22) || (n >= 45 && n <= 47), nil
}

// isDateFormat reports whether a custom number format renders a date. Quoted
// literals and bracketed sections such as colors are ignored.
func isDateFormat(format string) bool {
	var b strings.Builder
	quoted, bracket := false, false
	for _, ch := range strings.ToLower(format) {
		switch {
		case ch == '"':
			quoted = !quoted
		case quoted:
		case ch == '[':
			bracket = true
		case ch == ']':
			bracket = false
		case !bracket:
			b.WriteRune(ch)
		}
	}
	s := b.String()
	return strings.ContainsAny(s, "dy") || (strings.Contains(s, "m") && !strings.ContainsAny(s, "hs"))
}

func readXLS(path string) ([][]string, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("read workbook: no worksheet found")
	}

	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, fmt.Errorf("read workbook: first worksheet unreadable")
	}

	var rows [][]string
	for i := 0; i <= int(ws.MaxRow) && i < maxXLSRows; i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// Parsed is a worksheet split into its header and data records.
type Parsed struct {
	Header  []string
	Records []core.RowRecord
}

// ToRecords treats the first row as the header and turns every following
// non-blank row into a record. A record's id is its position among the data
// rows, blank rows included, so id 0 is sheet row 2.
func ToRecords(rows [][]string) (*Parsed, error) {
	if len(rows) == 0 {
		return &Parsed{Header: []string{}, Records: []core.RowRecord{}}, ErrNoDataRows
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	p := &Parsed{Header: header, Records: []core.RowRecord{}}
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		p.Records = append(p.Records, core.NewRowRecord(i, trimTrailing(row)))
	}

	if len(p.Records) == 0 {
		return p, ErrNoDataRows
	}
	return p, nil
}

// Load reads and parses a workbook in one step.
func Load(path string) (*Parsed, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	return ToRecords(rows)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// trimTrailing drops empty cells at the end of a row, like a sparse sheet
// reader would, so records carry only populated columns.
func trimTrailing(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}
