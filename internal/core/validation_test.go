package core

import (
	"strings"
	"testing"
	"time"
)

func shiftSpecs(t *testing.T) []FieldSpec {
	t.Helper()
	def, ok := Get(KindUserShifts)
	if !ok {
		t.Fatal("user_shifts kind not registered")
	}
	return def.FieldSpecs
}

func TestRowValidator_Valid(t *testing.T) {
	v := NewRowValidator(shiftSpecs(t))

	res := v.Validate(NewRowRecord(0, []string{" e100 ", "a", "15-01-2024", "L1"}))
	if !res.Valid {
		t.Fatalf("Validate() invalid: %s", res.Reason())
	}

	want := []any{"E100", "A", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "L1"}
	if len(res.Values) != len(want) {
		t.Fatalf("Values len = %d, want %d", len(res.Values), len(want))
	}
	for i := range want {
		if tw, ok := want[i].(time.Time); ok {
			if got, ok := res.Values[i].(time.Time); !ok || !got.Equal(tw) {
				t.Errorf("Values[%d] = %v, want %v", i, res.Values[i], tw)
			}
			continue
		}
		if res.Values[i] != want[i] {
			t.Errorf("Values[%d] = %v, want %v", i, res.Values[i], want[i])
		}
	}
}

func TestRowValidator_CollectsAllErrors(t *testing.T) {
	v := NewRowValidator(shiftSpecs(t))

	res := v.Validate(NewRowRecord(7, []string{"", "A", "not a date"}))
	if res.Valid {
		t.Fatal("Validate() should fail")
	}
	if res.Values != nil {
		t.Error("invalid row should carry no insert values")
	}

	fields := make([]string, len(res.Errors))
	for i, e := range res.Errors {
		fields[i] = e.Field
	}
	if got := strings.Join(fields, ","); got != "EMPLOYEE_ID,SHIFT_DATE,LINE" {
		t.Errorf("error fields = %s, want EMPLOYEE_ID,SHIFT_DATE,LINE", got)
	}

	reason := res.Reason()
	for _, want := range []string{"EMPLOYEE_ID: required field is empty", "SHIFT_DATE: invalid date format", "LINE: required field is empty"} {
		if !strings.Contains(reason, want) {
			t.Errorf("Reason() = %q, missing %q", reason, want)
		}
	}
}

func TestValidateCell_Enum(t *testing.T) {
	spec := FieldSpec{Name: "LEVEL", Type: FieldEnum, EnumValues: []string{"1", "2", "3", "4"}}

	if err := ValidateCell("3", spec); err != nil {
		t.Errorf("ValidateCell(3) error = %v", err)
	}
	if err := ValidateCell("5", spec); err == nil || !strings.Contains(err.Error(), "invalid enum") {
		t.Errorf("ValidateCell(5) error = %v, want invalid enum", err)
	}
}
