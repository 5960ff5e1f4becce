package drive

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"
)

// DefaultUploadWorkers is the number of concurrent uploads when none is
// configured.
const DefaultUploadWorkers = 4

// UploadSlots runs content uploads off the request goroutine with bounded
// concurrency. It is the only value shared between requests; it carries no
// per-request state.
type UploadSlots struct {
	sem    *semaphore.Weighted
	size   int
	logger *slog.Logger
}

// NewUploadSlots creates a pool of n slots. n <= 0 uses DefaultUploadWorkers.
func NewUploadSlots(n int, logger *slog.Logger) *UploadSlots {
	if n <= 0 {
		n = DefaultUploadWorkers
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &UploadSlots{
		sem:    semaphore.NewWeighted(int64(n)),
		size:   n,
		logger: logger,
	}
}

// Size returns the number of slots.
func (u *UploadSlots) Size() int {
	if u == nil {
		return 0
	}

	return u.size
}

// Do waits for a free slot, runs fn on its own goroutine and returns its
// error. If ctx ends first Do still waits for fn to return, so the caller
// regains sole ownership of anything fn reads, then reports ctx's error.
// A nil *UploadSlots runs fn inline.
func (u *UploadSlots) Do(ctx context.Context, fn func(context.Context) error) error {
	if u == nil {
		return fn(ctx)
	}

	if err := u.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("drive: waiting for upload slot: %w", err)
	}

	done := make(chan error, 1)

	go func() {
		defer u.sem.Release(1)
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		u.logger.Warn("upload abandoned by caller",
			slog.String("error", ctx.Err().Error()),
		)

		<-done

		return fmt.Errorf("drive: upload canceled: %w", ctx.Err())
	}
}
