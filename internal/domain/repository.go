package domain

import (
	"context"
	"time"
)

// StockRepository owns the shared quantity state for sellable entities
type StockRepository interface {
	// GetItem returns the stock item for an entity within a tenant
	GetItem(ctx context.Context, tenantID, entityID string) (*StockItem, error)

	// Save upserts a stock item
	Save(ctx context.Context, item *StockItem) error

	// AdjustQuantity atomically applies a signed delta to the on-hand
	// and available counters, floored at zero, returning the prior
	// available quantity
	AdjustQuantity(ctx context.Context, tenantID, entityID string, delta int) (before int, err error)

	// SetQuantity sets on-hand and available to an absolute count,
	// returning the prior available quantity. Used only by the
	// audit-correction resolution path.
	SetQuantity(ctx context.Context, tenantID, entityID string, quantity int) (before int, err error)

	// AdjustReservation moves quantity between the available and
	// reserved counters; positive reserves, negative releases
	AdjustReservation(ctx context.Context, tenantID, entityID string, quantity int) error
}

// MovementFilter narrows movement ledger queries
type MovementFilter struct {
	EntityID string
	Channel  ChannelType
	From     *time.Time
	To       *time.Time
}

// MovementRepository is the append-only stock movement ledger
type MovementRepository interface {
	// Append durably records one movement. Returns ErrDuplicateMovement
	// when the record's offline event id has already been applied.
	Append(ctx context.Context, record *MovementRecord) error

	// List returns movements matching the filter, newest first
	List(ctx context.Context, tenantID string, filter MovementFilter, limit, offset int64) ([]*MovementRecord, int64, error)

	// ExistsOffline reports whether a movement for the offline event id
	// has already been applied
	ExistsOffline(ctx context.Context, tenantID, offlineEventID string) (bool, error)
}

// SeatPoolRepository owns transport trip seat aggregates
type SeatPoolRepository interface {
	Get(ctx context.Context, tenantID, tripID string) (*TripSeatPool, error)
	Save(ctx context.Context, pool *TripSeatPool) error
}

// ConflictFilter narrows pending-conflict listings
type ConflictFilter struct {
	Channel  ChannelType
	Severity *Severity
	Status   ConflictStatus
	EntityID string
}

// PendingConflictRepository stores conflicts awaiting human resolution
type PendingConflictRepository interface {
	Save(ctx context.Context, conflict *PendingConflict) error
	GetByID(ctx context.Context, tenantID, conflictID string) (*PendingConflict, error)
	Update(ctx context.Context, conflict *PendingConflict) error

	// List returns conflicts matching the filter plus the oldest
	// pending creation time for staleness visibility
	List(ctx context.Context, tenantID string, filter ConflictFilter, limit, offset int64) ([]*PendingConflict, int64, error)

	// OldestPending returns the creation time of the oldest unresolved
	// conflict, or nil when none are pending
	OldestPending(ctx context.Context, tenantID string) (*time.Time, error)

	// CountPending returns the number of unresolved conflicts for an
	// entity
	CountPending(ctx context.Context, tenantID, entityID string) (int64, error)
}
