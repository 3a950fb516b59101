package service

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// CheckHandler processes one queued guild
type CheckHandler func(ctx context.Context, guildID int64)

// CheckQueue is a bounded fire-and-forget queue of guild IDs. A guild that is
// already pending is not queued twice, and a full queue drops the new request.
type CheckQueue struct {
	handler CheckHandler
	workers int
	metrics Metrics

	tasks   chan int64
	mu      sync.Mutex
	pending map[int64]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewCheckQueue creates a queue holding at most size pending guilds
func NewCheckQueue(size, workers int, handler CheckHandler, metrics Metrics) *CheckQueue {
	if size <= 0 {
		size = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &CheckQueue{
		handler: handler,
		workers: workers,
		metrics: metricsOrNoop(metrics),
		tasks:   make(chan int64, size),
		pending: make(map[int64]struct{}),
	}
}

// Start launches the workers; they exit when Stop is called
func (q *CheckQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
	log.WithField("workers", q.workers).Info("Top-rank check queue started")
}

func (q *CheckQueue) work(ctx context.Context, workerID int) {
	defer q.wg.Done()
	for guildID := range q.tasks {
		q.mu.Lock()
		delete(q.pending, guildID)
		q.mu.Unlock()

		q.run(ctx, workerID, guildID)
	}
}

func (q *CheckQueue) run(ctx context.Context, workerID int, guildID int64) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"worker":  workerID,
				"guildID": guildID,
				"panic":   r,
			}).Error("Top-rank check panicked")
		}
	}()
	q.handler(ctx, guildID)
}

// Enqueue requests a check for guildID without blocking. It returns false when
// the request was dropped because the queue is full or stopped.
func (q *CheckQueue) Enqueue(guildID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if _, ok := q.pending[guildID]; ok {
		return true
	}

	select {
	case q.tasks <- guildID:
		q.pending[guildID] = struct{}{}
		return true
	default:
		q.metrics.RecordCheckDropped()
		log.WithFields(log.Fields{
			"guildID":  guildID,
			"capacity": cap(q.tasks),
		}).Warn("Top-rank check queue full, dropping check")
		return false
	}
}

// Len returns the number of queued checks
func (q *CheckQueue) Len() int {
	return len(q.tasks)
}

// Stop rejects new checks, lets the workers drain what is queued and waits for them
func (q *CheckQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	log.Info("Top-rank check queue stopped")
}
