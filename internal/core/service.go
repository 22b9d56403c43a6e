package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/attendance/internal/config"
)

// DefaultMaxBatchRows caps a single batch when no limit is configured.
const DefaultMaxBatchRows = 500

// DefaultBatchTimeout bounds one batch transaction when none is configured.
const DefaultBatchTimeout = 2 * time.Minute

// Service provides the business logic behind the HTTP API.
type Service struct {
	pool         Pool
	limiter      *UploadLimiter
	maxBatchRows int
	batchTimeout time.Duration
}

// NewService creates a Service over the shared pool.
func NewService(pool Pool, cfg config.UploadConfig) *Service {
	maxRows := cfg.MaxBatchRows
	if maxRows <= 0 {
		maxRows = DefaultMaxBatchRows
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultBatchTimeout
	}

	return &Service{
		pool:         pool,
		limiter:      NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		maxBatchRows: maxRows,
		batchTimeout: timeout,
	}
}

// ListKinds returns information about all registered upload kinds.
func (s *Service) ListKinds() []KindInfo {
	defs := All()
	infos := make([]KindInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// Ping acquires the pool and checks the server answers.
func (s *Service) Ping(ctx context.Context) error {
	db, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// PoolStatus is the connection pool snapshot reported by the health check.
type PoolStatus struct {
	Ready        bool  `json:"ready"`
	Open         int   `json:"open"`
	InUse        int   `json:"inUse"`
	Idle         int   `json:"idle"`
	WaitCount    int64 `json:"waitCount"`
	WaitDuration int64 `json:"waitDurationMs"`
}

// PoolStatus returns the current pool statistics. Before the first
// successful Acquire every count is zero and Ready is false.
func (s *Service) PoolStatus() PoolStatus {
	st := s.pool.Stats()
	return PoolStatus{
		Ready:        s.pool.Ready(),
		Open:         st.OpenConnections,
		InUse:        st.InUse,
		Idle:         st.Idle,
		WaitCount:    st.WaitCount,
		WaitDuration: st.WaitDuration.Milliseconds(),
	}
}

// UploadLimiterStatus returns the batch limiter state.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight batch saves finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
