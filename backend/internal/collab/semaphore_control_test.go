package collab

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSemaphoreControl_AcquireRelease(t *testing.T) {
	s := NewSemaphoreControl(2)
	ctx := context.Background()

	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// At capacity: a bounded ctx must time out.
	timed, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := s.Acquire(timed); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() at capacity = %v, want deadline exceeded", err)
	}

	if err := s.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
}

func TestSemaphoreControl_ReleaseWithoutAcquire(t *testing.T) {
	s := NewSemaphoreControl(1)
	if err := s.Release(); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("Release() = %v, want ErrNotAcquired", err)
	}
}
