package core

// convert.go turns spreadsheet cell text into database values.
//
// Cells arrive as text regardless of how the sheet stored them:
//   - Dates typed by hand as dd-MM-yyyy or yyyy-MM-dd
//   - Dates stored by Excel as serial day numbers ("45306")
//   - Excel formula prefixes (="value") and stray quotes

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Accepted hand-typed date layouts, day-first before ISO.
var dateLayouts = []string{
	"02-01-2006", "2-1-2006",
	"2006-01-02", "2006-1-2",
	"02/01/2006", "2/1/2006",
}

// Excel serial range accepted as dates (1954 to 2119), so a bare year such
// as "2024" is not mistaken for a serial.
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// ParseDate converts a cell to a date. It accepts the layouts above and
// Excel serial day numbers in the 1900 date system; sheet.ReadRows converts
// 1904-system workbooks before rows are sent. The result is midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < minExcelSerial || serial > maxExcelSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

// ParseNumeric converts a cell to a number, dropping thousands separators.
// Integral values come back as int64 so drivers bind them as integers.
func ParseNumeric(s string) (any, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || !numericRegex.MatchString(s) {
		return nil, false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return f, true
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// cellValue converts a validated, cleaned cell into the value bound for
// the insert. Empty optional cells become NULL.
func cellValue(raw string, spec FieldSpec) any {
	if raw == "" {
		return nil
	}

	switch spec.Type {
	case FieldDate:
		t, _ := ParseDate(raw)
		return t
	case FieldNumeric:
		n, _ := ParseNumeric(raw)
		return n
	case FieldEnum:
		for _, ev := range spec.EnumValues {
			if strings.EqualFold(ev, raw) {
				return ev
			}
		}
		return raw
	default:
		return raw
	}
}
