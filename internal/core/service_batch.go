package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/attendance/internal/logging"
)

// ErrBatchTooLarge is returned when a batch carries more rows than allowed.
var ErrBatchTooLarge = errors.New("batch too large")

// SaveBatch validates and stores one batch of row records.
//
// Rows that fail validation are not inserted. Valid rows are inserted in a
// single transaction with a savepoint around each row, so a row rejected by
// the database (duplicate key, foreign key) is reported invalid without
// losing the rest of the batch. The invalid rows come back in batch order.
//
// An error is returned only when the batch as a whole could not be
// processed: unknown kind, oversized batch, no free save slot, or a
// database failure outside a single row.
func (s *Service) SaveBatch(ctx context.Context, kind string, rows []RowRecord) (*BatchResult, error) {
	def, err := Lookup(kind)
	if err != nil {
		return nil, err
	}

	if len(rows) > s.maxBatchRows {
		return nil, fmt.Errorf("%w: %d rows (max %d)", ErrBatchTooLarge, len(rows), s.maxBatchRows)
	}

	start := time.Now()
	result := &BatchResult{
		BatchID:     uuid.NewString(),
		Kind:        kind,
		Received:    len(rows),
		InvalidRows: []InvalidRow{},
	}

	logger := logging.WithFields(ctx,
		"batch_id", result.BatchID,
		"upload_id", UploadIDFromContext(ctx),
		"client_ip", IPAddressFromContext(ctx),
		"kind", kind,
	)

	if len(rows) == 0 {
		return result, nil
	}

	validator := NewRowValidator(def.FieldSpecs)
	checked := make([]ValidationResult, len(rows))
	validCount := 0
	for i, rec := range rows {
		checked[i] = validator.Validate(rec)
		if checked[i].Valid {
			validCount++
		}
	}

	if validCount == 0 {
		for i, rec := range rows {
			result.InvalidRows = append(result.InvalidRows, invalidRow(rec, checked[i]))
		}
		result.Duration = time.Since(start)
		logger.Info("batch rejected", "rows", len(rows), "invalid", len(result.InvalidRows))
		return result, nil
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.batchTimeout)
	defer cancel()

	db, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	dialect := s.pool.Dialect()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := insertStatement(def, dialect)

	for i, rec := range rows {
		if !checked[i].Valid {
			result.InvalidRows = append(result.InvalidRows, invalidRow(rec, checked[i]))
			continue
		}

		sp := savepointName(i)
		if _, err := tx.ExecContext(ctx, dialect.Savepoint(sp)); err != nil {
			return nil, fmt.Errorf("create savepoint: %w", err)
		}

		if _, err := tx.ExecContext(ctx, insert, checked[i].Values...); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("insert row %d: %w", rec.ID, ctx.Err())
			}
			if _, rbErr := tx.ExecContext(ctx, dialect.RollbackTo(sp)); rbErr != nil {
				return nil, fmt.Errorf("rollback savepoint: %w", rbErr)
			}
			result.InvalidRows = append(result.InvalidRows, InvalidRow{
				ID:     rec.ID,
				Row:    rec,
				Reason: fmt.Sprintf("insert: %v", err),
			})
			continue
		}

		if release := dialect.Release(sp); release != "" {
			if _, err := tx.ExecContext(ctx, release); err != nil {
				return nil, fmt.Errorf("release savepoint: %w", err)
			}
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	result.Duration = time.Since(start)
	logger.Info("batch saved",
		"rows", len(rows),
		"inserted", result.Inserted,
		"invalid", len(result.InvalidRows),
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

func invalidRow(rec RowRecord, vr ValidationResult) InvalidRow {
	return InvalidRow{
		ID:     rec.ID,
		Row:    rec,
		Reason: vr.Reason(),
		Errors: vr.Errors,
	}
}
