package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/attendance/internal/client"
	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/selection"
	"github.com/JonMunkholm/attendance/internal/sheet"
)

func newSummaryCmd(a *app) *cobra.Command {
	var (
		date   string
		shifts []string
		lines  []string
		export bool
		out    string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the attendance summary for one day",
		Example: `  attendctl summary --date 2024-01-15 --shift ALL --line L1 --line L2
  attendctl summary --date 2024-01-15 --shift A,B --line ALL --export`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := buildFilter(date, shifts, lines)
			if err != nil {
				return a.failf("%s", err)
			}
			return a.summary(cmd, f, export, out)
		},
	}

	cmd.Flags().StringVar(&date, "date", time.Now().Format(time.DateOnly), "Day to summarize (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&shifts, "shift", nil, "Shift to include, or ALL (repeatable)")
	cmd.Flags().StringSliceVar(&lines, "line", nil, "Line to include, or ALL (repeatable)")
	cmd.Flags().BoolVar(&export, "export", false, "Write the summary to a workbook")
	cmd.Flags().StringVar(&out, "out", "", "Export path (default Attendance_Summary_<date>_<shifts>_<lines>.xlsx)")

	return cmd
}

// buildFilter applies each flag value as a toggle, the way the dropdowns
// behave, and validates the result.
func buildFilter(date string, shifts, lines []string) (selection.SummaryFilter, error) {
	var f selection.SummaryFilter
	if date != "" {
		d, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return f, fmt.Errorf("Invalid date %q, use YYYY-MM-DD.", date)
		}
		f.Date = d
	}
	for _, s := range shifts {
		f.Shifts = f.Shifts.Toggle(s)
	}
	for _, l := range lines {
		f.Lines = f.Lines.Toggle(l)
	}
	return f, f.Validate()
}

func (a *app) summary(cmd *cobra.Command, f selection.SummaryFilter, export bool, out string) error {
	w := cmd.OutOrStdout()

	records, err := a.client.Summary(cmd.Context(), f)
	if err != nil {
		var ce *client.Error
		if !errors.As(err, &ce) {
			return a.failf("%s", err)
		}
		return a.failf("%s", ce.UserMessage())
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No data found for the selected filters.")
	} else {
		fmt.Fprintf(w, "Shifts: %s  Lines: %s\n\n",
			f.Shifts.DisplayText("none"), f.Lines.DisplayText("none"))
		printSummary(w, records)
	}

	if !export {
		return nil
	}
	if len(records) == 0 {
		return a.failf("No summary data to export.")
	}

	if out == "" {
		out = f.ExportFileName()
	}
	if err := sheet.WriteSummary(out, records); err != nil {
		a.logger.Error("export summary", "path", out, "error", err)
		return a.failf("Failed to download Excel file. Please try again.")
	}
	fmt.Fprintf(w, "\nExported to %s\n", out)
	return nil
}

func printSummary(w io.Writer, records []core.SummaryRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tShift\tLine\tAllotted\tPresent\tAbsent\tAttendance %\t")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s%%\t\n",
			r.Date, r.Shift, r.Line, r.Allotted, r.Present, r.Absent,
			core.AttendancePercent(r.Present, r.Allotted))
	}
	t := core.Totals(records)
	fmt.Fprintf(tw, "Total\t\t\t%d\t%d\t%d\t%s%%\t\n", t.Allotted, t.Present, t.Absent, t.Percent())
	_ = tw.Flush()
}
