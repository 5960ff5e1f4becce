package drive

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestUploadSlots_DefaultSize(t *testing.T) {
	assert.Equal(t, DefaultUploadWorkers, NewUploadSlots(0, nil).Size())
	assert.Equal(t, 2, NewUploadSlots(2, nil).Size())

	var nilSlots *UploadSlots
	assert.Equal(t, 0, nilSlots.Size())
}

func TestUploadSlots_ReturnsResult(t *testing.T) {
	slots := NewUploadSlots(1, testLogger(t))
	want := errors.New("boom")

	assert.NoError(t, slots.Do(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, want, slots.Do(context.Background(), func(context.Context) error { return want }))
}

func TestUploadSlots_NilRunsInline(t *testing.T) {
	var slots *UploadSlots

	ran := false
	err := slots.Do(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
}

func TestUploadSlots_BoundsConcurrency(t *testing.T) {
	slots := NewUploadSlots(2, testLogger(t))

	var running, peak atomic.Int32

	g, ctx := errgroup.WithContext(context.Background())

	for range 8 {
		g.Go(func() error {
			return slots.Do(ctx, func(context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}

				time.Sleep(10 * time.Millisecond)
				running.Add(-1)

				return nil
			})
		})
	}

	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Positive(t, peak.Load())
}

func TestUploadSlots_CallerCanceledWaitsForFn(t *testing.T) {
	slots := NewUploadSlots(1, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	started := make(chan struct{})

	var finished atomic.Bool

	errCh := make(chan error, 1)

	go func() {
		errCh <- slots.Do(ctx, func(context.Context) error {
			close(started)
			<-release
			finished.Store(true)

			return nil
		})
	}()

	<-started
	cancel()

	// Do must not hand control back while fn may still be reading.
	select {
	case err := <-errCh:
		t.Fatalf("Do returned before fn finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	err := <-errCh
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, finished.Load())

	require.NoError(t, slots.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestUploadSlots_WaitCanceled(t *testing.T) {
	slots := NewUploadSlots(1, testLogger(t))

	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = slots.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release

			return nil
		})
	}()

	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := slots.Do(ctx, func(context.Context) error {
		t.Error("fn must not run without a slot")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}
