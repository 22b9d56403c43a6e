// Package selection holds the shift and line filter state for the attendance
// summary and turns it into request parameters and export names.
package selection

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// All is the sentinel value that selects every option of a dimension.
const All = "ALL"

// Filter validation errors. Their text is shown to the operator as is.
var (
	ErrNoDate  = errors.New("Please select a date.")
	ErrNoShift = errors.New("Please select at least one shift.")
	ErrNoLine  = errors.New("Please select at least one line.")
)

// Selection is the chosen values of one filter dimension, in the order they
// were picked. It is either empty, exactly [ALL], or a list of individual
// values.
type Selection []string

// Toggle returns the selection after the operator clicks value.
//
// Toggling ALL switches between [ALL] and nothing. Toggling any other value
// first drops ALL, then adds or removes the value.
func (s Selection) Toggle(value string) Selection {
	if value == All {
		if s.IsAll() {
			return Selection{}
		}
		return Selection{All}
	}

	next := make(Selection, 0, len(s)+1)
	found := false
	for _, v := range s {
		switch v {
		case All:
		case value:
			found = true
		default:
			next = append(next, v)
		}
	}
	if !found {
		next = append(next, value)
	}
	return next
}

// IsAll reports whether ALL is selected.
func (s Selection) IsAll() bool {
	return slices.Contains(s, All)
}

// DisplayText is the closed dropdown label.
func (s Selection) DisplayText(placeholder string) string {
	switch {
	case len(s) == 0:
		return placeholder
	case s.IsAll():
		return "ALL Selected"
	case len(s) == 1:
		return s[0]
	default:
		return fmt.Sprintf("%d items selected", len(s))
	}
}

// param is the comma list sent to the server, or "" for ALL.
func (s Selection) param() string {
	if s.IsAll() {
		return ""
	}
	return strings.Join(s, ",")
}

// fileText is the selection as it appears in export file names.
func (s Selection) fileText() string {
	if s.IsAll() {
		return All
	}
	return strings.Join(s, "-")
}

// SummaryFilter is everything needed to request one attendance summary.
type SummaryFilter struct {
	Date   time.Time
	Shifts Selection
	Lines  Selection
}

// Validate checks the filter before any request is made and returns the
// first problem found.
func (f SummaryFilter) Validate() error {
	switch {
	case f.Date.IsZero():
		return ErrNoDate
	case len(f.Shifts) == 0:
		return ErrNoShift
	case len(f.Lines) == 0:
		return ErrNoLine
	}
	return nil
}

// DateText formats the filter date as YYYY-MM-DD.
func (f SummaryFilter) DateText() string {
	return f.Date.Format(time.DateOnly)
}

// Params returns the query for the summary endpoint. A dimension set to ALL
// is left out so the server applies no filter on it.
func (f SummaryFilter) Params() url.Values {
	v := url.Values{}
	v.Set("date", f.DateText())
	if p := f.Shifts.param(); p != "" {
		v.Set("shifts", p)
	}
	if p := f.Lines.param(); p != "" {
		v.Set("lines", p)
	}
	return v
}

// ExportFileName names the summary workbook after the filter, for example
// Attendance_Summary_2024-01-15_ALL_L1-L2.xlsx.
func (f SummaryFilter) ExportFileName() string {
	return fmt.Sprintf("Attendance_Summary_%s_%s_%s.xlsx",
		f.DateText(), f.Shifts.fileText(), f.Lines.fileText())
}
