package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/attendance/internal/dbpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Pool hands out the shared database handle. *dbpool.Manager implements it.
type Pool interface {
	Acquire(ctx context.Context) (*sql.DB, error)
	Dialect() dbpool.Dialect
	Ready() bool
	Stats() sql.DBStats
}

// FieldType represents the expected data type for a spreadsheet column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
)

// FieldSpec defines validation rules for a single column. Specs are
// positional: the n-th spec reads key "col<n>" of a row record.
type FieldSpec struct {
	Name       string              // Header name shown in templates and reports
	DBColumn   string              // Database column name (defaults to Name)
	Type       FieldType           // Expected data type
	Required   bool                // Value must be present
	EnumValues []string            // Valid values for FieldEnum type
	Normalizer func(string) string // Optional transformation function
}

// Column returns the database column for the spec.
func (f FieldSpec) Column() string {
	if f.DBColumn != "" {
		return f.DBColumn
	}
	return f.Name
}

// KindInfo contains display information about an upload kind.
type KindInfo struct {
	Key      string   // Unique identifier: "user_shifts"
	Label    string   // Display name: "User Shifts"
	Table    string   // Target table: "USER_SHIFTS"
	Template string   // Template download file name
	Columns  []string // Header column names
}

// KindDefinition contains everything needed to validate and store one kind
// of bulk upload.
type KindDefinition struct {
	Info       KindInfo
	FieldSpecs []FieldSpec
}

// RowRecord is one spreadsheet data row. Cells are keyed by column position
// ("col0", "col1", ...) and ID is the 0-based data row sequence assigned when
// the file was parsed.
//
// On the wire it is a flat object: {"id":0,"col0":"E100","col1":"A"}.
type RowRecord struct {
	ID    int
	Cells map[string]string
}

// ColumnKey returns the record key for the i-th column.
func ColumnKey(i int) string {
	return "col" + strconv.Itoa(i)
}

// NewRowRecord builds a record from positional cell values.
func NewRowRecord(id int, values []string) RowRecord {
	cells := make(map[string]string, len(values))
	for i, v := range values {
		cells[ColumnKey(i)] = v
	}
	return RowRecord{ID: id, Cells: cells}
}

// Cell returns the value in column i, or "" when absent.
func (r RowRecord) Cell(i int) string {
	return r.Cells[ColumnKey(i)]
}

// Values returns the first n cells in column order.
func (r RowRecord) Values(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = r.Cell(i)
	}
	return out
}

// MarshalJSON flattens the record.
func (r RowRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Cells)+1)
	for k, v := range r.Cells {
		m[k] = v
	}
	m["id"] = r.ID
	return json.Marshal(m)
}

// UnmarshalJSON accepts a flat object. Non-string cell values (numbers and
// booleans written by spreadsheet tools) are kept in their literal form.
func (r *RowRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ID = 0
	r.Cells = make(map[string]string, len(raw))

	for k, v := range raw {
		if k == "id" {
			if err := json.Unmarshal(v, &r.ID); err != nil {
				return fmt.Errorf("row id: %w", err)
			}
			continue
		}

		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			r.Cells[k] = s
			continue
		}

		literal := strings.TrimSpace(string(v))
		if literal == "null" {
			literal = ""
		}
		r.Cells[k] = literal
	}
	return nil
}

// ColumnCount returns one past the highest populated "colN" key.
func (r RowRecord) ColumnCount() int {
	max := -1
	for k := range r.Cells {
		if !strings.HasPrefix(k, "col") {
			continue
		}
		n, err := strconv.Atoi(k[len("col"):])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// InvalidRow is a row the server refused, with the reasons.
type InvalidRow struct {
	ID     int               `json:"id"`
	Row    RowRecord         `json:"row"`
	Reason string            `json:"reason"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// BatchResult is the outcome of saving one batch.
type BatchResult struct {
	BatchID     string        `json:"batchId"`
	Kind        string        `json:"kind"`
	Received    int           `json:"received"`
	Inserted    int           `json:"inserted"`
	InvalidRows []InvalidRow  `json:"invalidRows"`
	Duration    time.Duration `json:"-"`
}

// ShiftOption is one entry of the shift filter list.
type ShiftOption struct {
	ShiftID string `json:"SHIFT_ID"`
}

// LineOption is one entry of the line filter list.
type LineOption struct {
	Line string `json:"LINE"`
}

// SummaryQuery selects the attendance summary for a single day. Empty Shifts
// or Lines means no filter on that dimension.
type SummaryQuery struct {
	Date   time.Time
	Shifts []string
	Lines  []string
}

// SummaryRecord is the attendance of one shift on one line for the day.
type SummaryRecord struct {
	Date     string `json:"DATE"`
	Shift    string `json:"SHIFT"`
	Line     string `json:"LINE"`
	Allotted int    `json:"ALLOTTED"`
	Present  int    `json:"PRESENT"`
	Absent   int    `json:"ABSENT"`
}

// AttendancePercent returns PRESENT/ALLOTTED as a percentage with one
// decimal, or "0.0" when nothing was allotted.
func AttendancePercent(present, allotted int) string {
	if allotted == 0 {
		return "0.0"
	}
	return strconv.FormatFloat(float64(present)/float64(allotted)*100, 'f', 1, 64)
}

// SummaryTotals sums a set of summary records.
type SummaryTotals struct {
	Allotted int
	Present  int
	Absent   int
}

// Percent returns the overall attendance percentage.
func (t SummaryTotals) Percent() string {
	return AttendancePercent(t.Present, t.Allotted)
}

// Totals adds up the records.
func Totals(records []SummaryRecord) SummaryTotals {
	var t SummaryTotals
	for _, r := range records {
		t.Allotted += r.Allotted
		t.Present += r.Present
		t.Absent += r.Absent
	}
	return t
}
