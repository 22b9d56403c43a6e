// Package bulkupload sends parsed spreadsheet rows to the server in small
// sequential batches and collects the rows the server refused.
package bulkupload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/attendance/internal/core"
)

// Defaults for a Submitter with zero-valued settings.
const (
	DefaultBatchSize = 50
	DefaultDelay     = 200 * time.Millisecond
)

// BatchSender saves one batch of rows. *client.Client implements it.
type BatchSender interface {
	SaveBatch(ctx context.Context, kind string, rows []core.RowRecord) (*core.BatchResult, error)
}

// ProgressFunc is called after every successful batch.
type ProgressFunc func(processed, total int)

// Partition splits records into consecutive batches of size. The last batch
// may be smaller. A size of zero or less uses DefaultBatchSize.
func Partition(records []core.RowRecord, size int) [][]core.RowRecord {
	if size <= 0 {
		size = DefaultBatchSize
	}

	batches := make([][]core.RowRecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, records[start:end])
	}
	return batches
}

// Result summarizes a submission where every batch was accepted.
type Result struct {
	Total       int
	Processed   int
	Batches     int
	InvalidRows []core.InvalidRow
}

// BatchError reports the batch that stopped a submission. Batch is the
// 0-based index of the failed batch; Processed counts rows in the batches
// that completed before it.
type BatchError struct {
	Batch       int
	Processed   int
	Err         error
	InvalidRows []core.InvalidRow
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d failed after %d rows: %v", e.Batch+1, e.Processed, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Submitter sends batches one at a time.
type Submitter struct {
	Sender    BatchSender
	Kind      string
	BatchSize int
	Delay     time.Duration
	Progress  ProgressFunc
	Logger    *slog.Logger
}

// Submit partitions records and sends each batch in order. The first failed
// batch ends the submission; no later batch is sent.
func (s *Submitter) Submit(ctx context.Context, records []core.RowRecord) (*Result, error) {
	delay := s.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batches := Partition(records, s.BatchSize)
	res := &Result{
		Total:       len(records),
		Batches:     len(batches),
		InvalidRows: []core.InvalidRow{},
	}

	for i, batch := range batches {
		if i > 0 {
			if err := sleep(ctx, delay); err != nil {
				return nil, s.fail(logger, i, res, err)
			}
		}

		br, err := s.Sender.SaveBatch(ctx, s.Kind, batch)
		if err != nil {
			return nil, s.fail(logger, i, res, err)
		}

		res.InvalidRows = append(res.InvalidRows, br.InvalidRows...)
		res.Processed += len(batch)

		logger.Debug("batch saved",
			"batch", i+1,
			"of", len(batches),
			"batch_id", br.BatchID,
			"inserted", br.Inserted,
			"invalid", len(br.InvalidRows),
		)

		if s.Progress != nil {
			s.Progress(res.Processed, res.Total)
		}
	}

	return res, nil
}

func (s *Submitter) fail(logger *slog.Logger, batch int, res *Result, err error) error {
	logger.Error("batch failed",
		"batch", batch+1,
		"processed", res.Processed,
		"invalid_so_far", len(res.InvalidRows),
		"error", err,
	)
	return &BatchError{
		Batch:       batch,
		Processed:   res.Processed,
		Err:         err,
		InvalidRows: res.InvalidRows,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
