package application

import "sync"

// entityLocks serializes all mutation paths for a given entity within
// this process. The read-modify-write of the quantity counters is not
// safe under unserialized concurrent access.
type entityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newEntityLocks() *entityLocks {
	return &entityLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// lock acquires the per-entity mutex, creating it on first use. Locks
// are never evicted; the entity cardinality per process is bounded.
func (e *entityLocks) lock(entityID string) func() {
	e.mu.Lock()
	m, ok := e.locks[entityID]
	if !ok {
		m = &sync.Mutex{}
		e.locks[entityID] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}
