package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidSummaryFilter is returned when summary query parameters are
// missing or malformed.
var ErrInvalidSummaryFilter = errors.New("invalid summary filter")

// Shifts returns the shift options for the summary filter, sorted.
func (s *Service) Shifts(ctx context.Context) ([]ShiftOption, error) {
	values, err := s.distinct(ctx, "SELECT DISTINCT SHIFT_ID FROM SHIFT_MASTER WHERE SHIFT_ID IS NOT NULL ORDER BY SHIFT_ID")
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	out := make([]ShiftOption, len(values))
	for i, v := range values {
		out[i] = ShiftOption{ShiftID: v}
	}
	return out, nil
}

// Lines returns the line options for the summary filter, sorted.
func (s *Service) Lines(ctx context.Context) ([]LineOption, error) {
	values, err := s.distinct(ctx, "SELECT DISTINCT LINE FROM LINE_MASTER WHERE LINE IS NOT NULL ORDER BY LINE")
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	out := make([]LineOption, len(values))
	for i, v := range values {
		out[i] = LineOption{Line: v}
	}
	return out, nil
}

// FilterOptions loads shifts and lines concurrently.
func (s *Service) FilterOptions(ctx context.Context) ([]ShiftOption, []LineOption, error) {
	var shifts []ShiftOption
	var lines []LineOption

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		shifts, err = s.Shifts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		lines, err = s.Lines(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return shifts, lines, nil
}

func (s *Service) distinct(ctx context.Context, query string) ([]string, error) {
	db, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, strings.TrimSpace(v))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// summaryBase counts assigned employees per shift and line for one day and
// how many of them punched in. An employee with several punches that day
// counts once.
const summaryBase = `SELECT us.SHIFT_DATE, us.SHIFT_ID, us.LINE,
	COUNT(*) AS ALLOTTED,
	SUM(CASE WHEN a.EMPLOYEE_ID IS NULL THEN 0 ELSE 1 END) AS PRESENT
FROM USER_SHIFTS us
LEFT JOIN (SELECT DISTINCT EMPLOYEE_ID, PUNCH_DATE FROM ATTENDANCE) a
	ON a.EMPLOYEE_ID = us.EMPLOYEE_ID AND a.PUNCH_DATE = us.SHIFT_DATE
WHERE us.SHIFT_DATE = %s`

const summaryTail = `
GROUP BY us.SHIFT_DATE, us.SHIFT_ID, us.LINE
ORDER BY us.SHIFT_ID, us.LINE`

// summaryStatement renders the summary SQL and its arguments.
func (s *Service) summaryStatement(q SummaryQuery) (string, []any) {
	d := s.pool.Dialect()

	var b strings.Builder
	fmt.Fprintf(&b, summaryBase, d.Placeholder(1))
	args := []any{q.Date}

	if len(q.Shifts) > 0 {
		clause, more := inClause("us.SHIFT_ID", q.Shifts, len(args)+1, d)
		b.WriteString("\n\tAND " + clause)
		args = append(args, more...)
	}
	if len(q.Lines) > 0 {
		clause, more := inClause("us.LINE", q.Lines, len(args)+1, d)
		b.WriteString("\n\tAND " + clause)
		args = append(args, more...)
	}
	b.WriteString(summaryTail)

	return b.String(), args
}

// Summary returns allotted, present and absent counts per shift and line for
// the query date.
func (s *Service) Summary(ctx context.Context, q SummaryQuery) ([]SummaryRecord, error) {
	db, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	query, args := s.summaryStatement(q)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	out := []SummaryRecord{}
	for rows.Next() {
		var (
			date    time.Time
			rec     SummaryRecord
			present int
		)
		if err := rows.Scan(&date, &rec.Shift, &rec.Line, &rec.Allotted, &present); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		rec.Date = date.Format(DateLayout)
		rec.Shift = strings.TrimSpace(rec.Shift)
		rec.Line = strings.TrimSpace(rec.Line)
		rec.Present = present
		rec.Absent = rec.Allotted - present
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}

	return out, nil
}

// ParseSummaryQuery reads date, shifts and lines from URL query values.
// date is required (YYYY-MM-DD); shifts and lines are optional comma lists.
func ParseSummaryQuery(v url.Values) (SummaryQuery, error) {
	raw := strings.TrimSpace(v.Get("date"))
	if raw == "" {
		return SummaryQuery{}, fmt.Errorf("%w: date is required", ErrInvalidSummaryFilter)
	}
	date, err := time.Parse(DateLayout, raw)
	if err != nil {
		return SummaryQuery{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidSummaryFilter, raw)
	}

	return SummaryQuery{
		Date:   date,
		Shifts: splitList(v.Get("shifts")),
		Lines:  splitList(v.Get("lines")),
	}, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
