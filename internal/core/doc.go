// Package core provides the business logic behind the attendance API.
//
// It has no HTTP dependencies and can be used by the web handlers, tools or
// tests without modification.
//
// # Upload Kinds
//
// Each bulk upload kind is registered at init time with [Register]. A
// [KindDefinition] names the target table and lists positional field specs;
// column "col0" of a row record is checked against the first spec, "col1"
// against the second, and so on:
//
//	core.Register(KindDefinition{
//	    Info: KindInfo{Key: "user_shifts", Table: "USER_SHIFTS"},
//	    FieldSpecs: []FieldSpec{
//	        {Name: "EMPLOYEE_ID", Type: FieldText, Required: true},
//	        {Name: "SHIFT_DATE", Type: FieldDate, Required: true},
//	    },
//	})
//
// # Batch Saves
//
// Clients send spreadsheets as a sequence of small batches. [Service.SaveBatch]
// validates every row, inserts the valid ones in one transaction with a
// savepoint per row and answers with the rows it refused. A refused row is
// data, not an error: the batch still succeeds. Concurrent saves are bounded
// by an [UploadLimiter].
//
// # Attendance Summary
//
// [Service.Summary] counts allotted, present and absent employees per shift
// and line for one day. [Service.Shifts] and [Service.Lines] feed the filter
// lists.
//
// # Error Handling
//
// Technical errors are mapped to operator-facing messages with [MapError].
// Codes are grouped as DB, VAL, FILE, UPL and RATE; see error_messages.go.
package core
