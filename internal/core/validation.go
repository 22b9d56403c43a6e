package core

// validation.go provides row-level validation for uploaded records before
// insertion.
//
// Every cell is checked against its FieldSpec (presence, type, enum values)
// and all problems in a row are reported together so the rejection workbook
// tells the user everything that is wrong with the row at once.

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationResult contains the result of validating a row.
type ValidationResult struct {
	Valid  bool              // True if all validations passed
	Errors []ValidationError // List of validation errors (empty if Valid)
	Values []any             // Insert arguments, in spec order (only if Valid)
}

// Reason joins the errors into one line for reports.
func (r ValidationResult) Reason() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// RowValidator validates row records against a kind's field specifications.
type RowValidator struct {
	specs []FieldSpec
}

// NewRowValidator creates a validator for the given field specs.
func NewRowValidator(specs []FieldSpec) *RowValidator {
	return &RowValidator{specs: specs}
}

// Validate checks every field of the record and, when the row is valid,
// returns the converted insert arguments.
func (v *RowValidator) Validate(rec RowRecord) ValidationResult {
	result := ValidationResult{Valid: true}
	values := make([]any, 0, len(v.specs))

	for i, spec := range v.specs {
		raw := CleanCell(rec.Cell(i))

		if raw == "" {
			if spec.Required {
				result.Valid = false
				result.Errors = append(result.Errors, ValidationError{
					Field:   spec.Name,
					Message: "required field is empty",
				})
			}
			values = append(values, nil)
			continue
		}

		if spec.Normalizer != nil {
			raw = spec.Normalizer(raw)
		}

		if err := ValidateCell(raw, spec); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   spec.Name,
				Value:   raw,
				Message: err.Error(),
			})
			continue
		}

		values = append(values, cellValue(raw, spec))
	}

	if result.Valid {
		result.Values = values
	}
	return result
}

// ValidateCell validates a single cell value against a field specification.
// Returns nil if valid, or an error describing the problem.
func ValidateCell(value string, spec FieldSpec) error {
	if value == "" {
		return nil
	}

	switch spec.Type {
	case FieldNumeric:
		if _, ok := ParseNumeric(value); !ok {
			return fmt.Errorf("invalid number format")
		}
	case FieldDate:
		if _, ok := ParseDate(value); !ok {
			return fmt.Errorf("invalid date format (use DD-MM-YYYY or YYYY-MM-DD)")
		}
	case FieldEnum:
		if len(spec.EnumValues) > 0 {
			for _, ev := range spec.EnumValues {
				if strings.EqualFold(ev, value) {
					return nil
				}
			}
			return fmt.Errorf("invalid enum value, must be one of: %s", strings.Join(spec.EnumValues, ", "))
		}
	}
	return nil
}
