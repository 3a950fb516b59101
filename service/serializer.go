package service

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

const serializerWeight int64 = 1 << 20

// MutationSerializer is the process-wide exclusion domain for progress state.
// Writers hold the whole semaphore across read-compute-write; readers share it.
// semaphore.Weighted admits waiters in FIFO order, so a queued writer blocks
// later readers and neither side starves.
type MutationSerializer struct {
	sem    *semaphore.Weighted
	closed atomic.Bool
}

// NewMutationSerializer creates an open serializer
func NewMutationSerializer() *MutationSerializer {
	return &MutationSerializer{sem: semaphore.NewWeighted(serializerWeight)}
}

// Mutate runs fn with exclusive access
func (s *MutationSerializer) Mutate(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, serializerWeight, fn)
}

// Read runs fn concurrently with other readers but never with a writer
func (s *MutationSerializer) Read(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, 1, fn)
}

func (s *MutationSerializer) run(ctx context.Context, weight int64, fn func(ctx context.Context) error) error {
	if s.closed.Load() {
		return ErrSerializerClosed
	}
	if err := s.sem.Acquire(ctx, weight); err != nil {
		return err
	}
	defer s.sem.Release(weight)

	// Close may have run while we were queued
	if s.closed.Load() {
		return ErrSerializerClosed
	}
	return fn(ctx)
}

// Close rejects new work and waits for the current holders to finish
func (s *MutationSerializer) Close() {
	if s.closed.Swap(true) {
		return
	}
	_ = s.sem.Acquire(context.Background(), serializerWeight)
	s.sem.Release(serializerWeight)
}
