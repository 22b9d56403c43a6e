package core

// error_messages.go maps technical errors to messages an HR operator can act
// on. Each message carries a code that support staff can look up here.
//
//	DB001  duplicate key              DB005  connection reset
//	DB002  unique constraint          DB006  timeout
//	DB003  foreign key                DB007  deadlock
//	DB004  connection refused         DB008  login failed
//	DB009  database not configured
//
//	VAL001 invalid date               VAL004 unknown upload kind
//	VAL002 invalid number             VAL005 invalid enum value
//	VAL003 required field             VAL006 invalid summary filter
//
//	FILE001 unsupported file type     FILE003 no file selected
//	FILE002 unreadable workbook       FILE004 no data rows
//
//	UPL001 batch too large            UPL004 request cancelled
//	UPL002 too many uploads           UPL005 request timed out
//	UPL003 invalid batch body
//
//	RATE001 rate limited
//	ERR000 anything else; check the logs for the original error
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Constraint violations. SQL Server reports "Cannot insert duplicate key",
	// PostgreSQL "duplicate key value violates unique constraint".
	{"duplicate key", UserMessage{"This row already exists", "Remove rows that were uploaded before", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Check for duplicate rows in your file", "DB002"}},
	{"primary key constraint", UserMessage{"This row already exists", "Remove rows that were uploaded before", "DB002"}},
	{"foreign key", UserMessage{"Referenced employee, shift or line does not exist", "Check the IDs against the master data", "DB003"}},

	// Connectivity
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"login failed", UserMessage{"Database rejected the service credentials", "Contact the administrator", "DB008"}},
	{"unsupported database driver", UserMessage{"Database is not configured", "Contact the administrator", "DB009"}},
	{"connection pool closed", UserMessage{"Service is shutting down", "Please try again in a few moments", "DB009"}},

	// Validation
	{"invalid date", UserMessage{"Invalid date format detected", "Use DD-MM-YYYY or YYYY-MM-DD", "VAL001"}},
	{"invalid number", UserMessage{"Invalid number format detected", "Use plain digits without symbols", "VAL002"}},
	{"required field", UserMessage{"Required field is empty", "Ensure all required columns have values", "VAL003"}},
	{"unknown upload kind", UserMessage{"Unknown upload type", "Use one of the published templates", "VAL004"}},
	{"invalid enum", UserMessage{"Value is not in the allowed list", "Check the allowed values for this field", "VAL005"}},
	{"invalid summary filter", UserMessage{"Summary filter is invalid", "Select a date and at least one shift and line", "VAL006"}},

	// Files
	{"unsupported file type", UserMessage{"File type is not supported", "Upload an .xlsx or .xls workbook", "FILE001"}},
	{"read workbook", UserMessage{"The workbook could not be read", "Save the file again in Excel and retry", "FILE002"}},
	{"no file selected", UserMessage{"No file selected.", "Choose a workbook to upload", "FILE003"}},
	{"no data rows", UserMessage{"The workbook has no data rows", "Add rows below the header", "FILE004"}},

	// Batches
	{"batch too large", UserMessage{"Too many rows in one request", "Use a smaller batch size", "UPL001"}},
	{"too many uploads", UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL002"}},
	{"invalid batch body", UserMessage{"Request body is not a list of rows", "Send a JSON array of row records", "UPL003"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller batch or check your connection", "UPL005"}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB006"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
