package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/attendance/internal/bulkupload"
	"github.com/JonMunkholm/attendance/internal/client"
	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/sheet"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		kind      string
		batchSize int
		delay     time.Duration
		report    string
	)

	cmd := &cobra.Command{
		Use:   "upload-shifts FILE",
		Short: "Upload a shift workbook in batches",
		Long: `Reads the first worksheet of FILE (.xlsx or .xls), sends its rows to the
server in batches and writes the rows the server refused to a report workbook.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || args[0] == "" {
				return a.failf("No file selected.")
			}
			if !cmd.Flags().Changed("batch-size") {
				batchSize = a.cfg.Client.BatchSize
			}
			if !cmd.Flags().Changed("delay") {
				delay = a.cfg.Client.BatchDelay
			}
			return a.upload(cmd, args[0], kind, batchSize, delay, report)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", core.KindUserShifts, "Upload kind")
	cmd.Flags().IntVar(&batchSize, "batch-size", bulkupload.DefaultBatchSize, "Rows per request (default from CLIENT_BATCH_SIZE)")
	cmd.Flags().DurationVar(&delay, "delay", bulkupload.DefaultDelay, "Pause between requests (default from CLIENT_BATCH_DELAY)")
	cmd.Flags().StringVar(&report, "report", bulkupload.DefaultReportName, "Workbook for refused rows")

	return cmd
}

func (a *app) upload(cmd *cobra.Command, path, kind string, batchSize int, delay time.Duration, report string) error {
	out := cmd.OutOrStdout()

	parsed, err := sheet.Load(path)
	if err != nil && !errors.Is(err, sheet.ErrNoDataRows) {
		a.logger.Error("read workbook", "path", path, "error", err)
		return a.failf("%s", core.FormatUserError(err))
	}

	a.client.NewUpload()
	logger := a.logger.With("upload_id", a.client.UploadID(), "kind", kind)
	logger.Info("upload started", "file", path, "rows", len(parsed.Records))

	sub := &bulkupload.Submitter{
		Sender:    a.client,
		Kind:      kind,
		BatchSize: batchSize,
		Delay:     delay,
		Logger:    logger,
		Progress: func(processed, total int) {
			fmt.Fprintf(out, "Processed %d of %d records...\n", processed, total)
		},
	}

	res, err := sub.Submit(cmd.Context(), parsed.Records)
	if err != nil {
		return a.failf("Error saving shifts. Please try again.\n%s", client.UserMessage(err))
	}

	written, err := bulkupload.WriteReport(report, parsed.Header, res.InvalidRows)
	if err != nil {
		logger.Error("write report", "path", report, "error", err)
		return a.failf("Could not write %s: %v", report, err)
	}
	if written {
		fmt.Fprintf(out, "%d invalid rows written to %s\n", len(res.InvalidRows), report)
	}

	logger.Info("upload finished",
		"processed", res.Processed,
		"batches", res.Batches,
		"invalid", len(res.InvalidRows),
	)
	fmt.Fprintln(out, "All shifts processed successfully!")
	return nil
}
