package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/attendance/internal/dbpool"
)

// insertStatement builds the parameterized INSERT for a kind.
func insertStatement(def KindDefinition, d dbpool.Dialect) string {
	cols := make([]string, len(def.FieldSpecs))
	for i, spec := range def.FieldSpecs {
		cols[i] = spec.Column()
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		def.Info.Table, strings.Join(cols, ", "), d.Placeholders(1, len(cols)))
}

// inClause renders "column IN (...)" for values, binding them starting at
// argument position start. It returns the clause and the bound arguments.
func inClause(column string, values []string, start int, d dbpool.Dialect) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return fmt.Sprintf("%s IN (%s)", column, d.Placeholders(start, len(values))), args
}

// savepointName is the per-row savepoint inside a batch transaction.
func savepointName(i int) string {
	return fmt.Sprintf("row_%d", i)
}
