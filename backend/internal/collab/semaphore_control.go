package collab

import (
	"context"
	"errors"
)

var ErrNotAcquired = errors.New("semaphore not acquired")

// SemaphoreControl caps concurrency with a buffered channel.
type SemaphoreControl struct {
	ch chan struct{}
}

func NewSemaphoreControl(max int) *SemaphoreControl {
	if max <= 0 {
		max = 100
	}
	return &SemaphoreControl{ch: make(chan struct{}, max)}
}

func (s *SemaphoreControl) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SemaphoreControl) Release() error {
	select {
	case <-s.ch:
		return nil
	default:
		return ErrNotAcquired
	}
}
