package offline

import (
	"context"
	"sort"
	"sync"
)

// MemoryQueue is an in-process Queue. It backs tests and single-session
// clients where durability across restarts is not required.
type MemoryQueue struct {
	mu     sync.RWMutex
	events map[string]*QueuedEvent
	order  []string
}

// NewMemoryQueue creates an empty in-memory queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		events: make(map[string]*QueuedEvent),
	}
}

// Enqueue appends an event with status PENDING
func (q *MemoryQueue) Enqueue(ctx context.Context, event *QueuedEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	copied := *event
	q.events[event.OfflineID] = &copied
	q.order = append(q.order, event.OfflineID)
	return nil
}

// Get returns one queued event by offline id
func (q *MemoryQueue) Get(ctx context.Context, offlineID string) (*QueuedEvent, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	event, ok := q.events[offlineID]
	if !ok {
		return nil, ErrNotQueued
	}
	copied := *event
	return &copied, nil
}

// ListPending returns pending events in ascending client-timestamp
// order. Ties keep insertion order so replays are deterministic.
func (q *MemoryQueue) ListPending(ctx context.Context, tenantID string) ([]*QueuedEvent, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	pending := make([]*QueuedEvent, 0)
	for _, id := range q.order {
		event := q.events[id]
		if event.TenantID == tenantID && event.Status == StatusPending {
			copied := *event
			pending = append(pending, &copied)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Event.EffectiveTimestamp().Before(pending[j].Event.EffectiveTimestamp())
	})
	return pending, nil
}

// Update persists a status transition
func (q *MemoryQueue) Update(ctx context.Context, event *QueuedEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.events[event.OfflineID]; !ok {
		return ErrNotQueued
	}
	copied := *event
	q.events[event.OfflineID] = &copied
	return nil
}

// CountPending counts unsynced events for an entity
func (q *MemoryQueue) CountPending(ctx context.Context, tenantID, entityID string) (int64, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var count int64
	for _, event := range q.events {
		if event.TenantID == tenantID && event.Event.EntityID == entityID &&
			(event.Status == StatusPending || event.Status == StatusSyncing) {
			count++
		}
	}
	return count, nil
}

// Snapshot returns every queued event, newest last. Test and debugging
// helper.
func (q *MemoryQueue) Snapshot() []*QueuedEvent {
	q.mu.RLock()
	defer q.mu.RUnlock()

	all := make([]*QueuedEvent, 0, len(q.order))
	for _, id := range q.order {
		copied := *q.events[id]
		all = append(all, &copied)
	}
	return all
}
