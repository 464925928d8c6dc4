// Package audit records authorization decisions for later review. Writes
// are buffered and flushed in batches so the hot path never waits on the
// audit table.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BatchInserter is the interface used by Collector to persist events.
// It exists to allow testing without a real database.
type BatchInserter interface {
	BatchInsert(ctx context.Context, events []Event) error
}

// Collector buffers events in memory and periodically flushes them to the
// store in batches. It is safe for concurrent use.
type Collector struct {
	store         BatchInserter
	buffer        []Event
	mu            sync.Mutex
	batchSize     int
	flushInterval time.Duration
	done          chan struct{}
	onFlush       func(ok bool)
}

// OnFlush registers an observer called after every flush attempt. It must be
// set before Start.
func (c *Collector) OnFlush(fn func(ok bool)) {
	c.onFlush = fn
}

// NewCollector creates a new Collector that flushes to the given store when
// the buffer reaches batchSize or every flushInterval, whichever comes first.
func NewCollector(store BatchInserter, batchSize int, flushInterval time.Duration) *Collector {
	return &Collector{
		store:         store,
		buffer:        make([]Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}
}

// Start begins a background goroutine that flushes buffered events on a
// timer. It blocks until Stop is called or the context is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-ctx.Done():
			c.flush()
			return
		case <-c.done:
			c.flush()
			return
		}
	}
}

// Record adds an event to the buffer, stamping OccurredAt if unset. If the
// buffer reaches batchSize, a flush is triggered immediately.
func (c *Collector) Record(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	c.mu.Lock()
	c.buffer = append(c.buffer, e)
	shouldFlush := len(c.buffer) >= c.batchSize
	c.mu.Unlock()

	if shouldFlush {
		c.flush()
	}
}

// flush drains all buffered events and writes them to the store. It logs
// errors rather than returning them so callers are not blocked.
func (c *Collector) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]Event, 0, c.batchSize)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := c.store.BatchInsert(ctx, batch)
	if err != nil {
		slog.Error("failed to flush audit events", "count", len(batch), "error", err)
	}
	if c.onFlush != nil {
		c.onFlush(err == nil)
	}
}

// Stop signals the background goroutine to exit and performs a final flush.
func (c *Collector) Stop() {
	close(c.done)
}
