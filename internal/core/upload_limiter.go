package core

// upload_limiter.go bounds how many batches are written to the database at
// the same time.
//
// Every batch save holds one slot for the duration of its transaction. When
// all slots are taken a new batch waits up to maxWait and then fails with
// ErrTooManyUploads, which the HTTP layer reports as 429. WaitForDrain lets
// shutdown wait for in-flight transactions.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyUploads is returned when no save slot frees up within the wait
// time. The client aborts its upload; the user may start it again.
var ErrTooManyUploads = errors.New("too many uploads in progress, please try again later")

// Defaults used when the configured values are not positive.
const (
	DefaultMaxConcurrentUploads = 5
	DefaultMaxWaitTime          = 30 * time.Second
)

// UploadLimiter is a counting semaphore with drain support.
type UploadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu      sync.Mutex
	active  int
	drained chan struct{} // closed whenever active is zero
}

// NewUploadLimiter allows at most maxConcurrent simultaneous batch saves.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	drained := make(chan struct{})
	close(drained)

	return &UploadLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		drained: drained,
	}
}

// Acquire takes a slot, waiting at most maxWait. The caller must Release.
// A cancelled ctx wins over the wait timeout.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		l.enter()
		return nil
	default:
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.enter()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyUploads
	}
}

// Release returns a slot taken by Acquire.
func (l *UploadLimiter) Release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		close(l.drained)
	}
	l.mu.Unlock()

	<-l.slots
}

func (l *UploadLimiter) enter() {
	l.mu.Lock()
	if l.active == 0 {
		l.drained = make(chan struct{})
	}
	l.active++
	l.mu.Unlock()
}

// WaitForDrain blocks until no batch holds a slot or ctx ends.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	drained := l.drained
	l.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UploadLimiterStatus is a snapshot of the limiter.
type UploadLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for health output.
func (l *UploadLimiter) Status() UploadLimiterStatus {
	l.mu.Lock()
	active := l.active
	l.mu.Unlock()

	return UploadLimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		MaxConcurrent: cap(l.slots),
	}
}
