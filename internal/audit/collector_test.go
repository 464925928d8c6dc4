package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu      sync.Mutex
	batches [][]Event
}

func (f *fakeStore) BatchInsert(ctx context.Context, events []Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]Event, len(events))
	copy(batch, events)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeStore) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	store := &fakeStore{}
	c := NewCollector(store, 3, time.Hour)

	c.Record(Event{UserID: "u1", Action: "properties.create", Outcome: OutcomeAllowed})
	c.Record(Event{UserID: "u1", Action: "properties.create", Outcome: OutcomeAllowed})
	if store.total() != 0 {
		t.Fatal("should not flush below batch size")
	}

	c.Record(Event{UserID: "u2", Action: "properties.delete", Outcome: OutcomeDenied})
	if store.total() != 3 {
		t.Errorf("expected 3 events flushed, got %d", store.total())
	}
}

func TestCollectorFlushesOnStop(t *testing.T) {
	store := &fakeStore{}
	c := NewCollector(store, 100, time.Hour)

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	c.Record(Event{UserID: "u1", Action: "companies.create", Outcome: OutcomeAllowed})
	c.Stop()
	<-done

	if store.total() != 1 {
		t.Errorf("expected final flush of 1 event, got %d", store.total())
	}
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	store := &fakeStore{}
	c := NewCollector(store, 100, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	c.Record(Event{UserID: "u1", Action: "auth.login", Outcome: OutcomeAllowed})

	deadline := time.After(time.Second)
	for store.total() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for interval flush")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestCollectorStampsOccurredAt(t *testing.T) {
	store := &fakeStore{}
	c := NewCollector(store, 1, time.Hour)

	c.Record(Event{UserID: "u1", Action: "auth.login", Outcome: OutcomeAllowed})

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.batches) != 1 || len(store.batches[0]) != 1 {
		t.Fatalf("expected one flushed event, got %v", store.batches)
	}
	if store.batches[0][0].OccurredAt.IsZero() {
		t.Error("expected OccurredAt to be stamped")
	}
}
