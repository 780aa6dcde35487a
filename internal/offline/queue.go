package offline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stocksync-platform/sync-service/internal/domain"
)

// SyncStatus is the local lifecycle of a queued offline event
type SyncStatus string

const (
	StatusPending  SyncStatus = "PENDING"
	StatusSyncing  SyncStatus = "SYNCING"
	StatusSynced   SyncStatus = "SYNCED"
	StatusConflict SyncStatus = "CONFLICT"
	StatusFailed   SyncStatus = "FAILED"
)

// QueuedEvent is a stock event captured while disconnected, plus its
// local sync state
type QueuedEvent struct {
	// OfflineID is the generated idempotent id; the remote ledger
	// dedupes on it
	OfflineID string `bson:"offlineId" json:"offlineId"`
	TenantID  string `bson:"tenantId" json:"tenantId"`

	Event domain.StockEvent `bson:"event" json:"event"`

	Status     SyncStatus `bson:"status" json:"status"`
	RetryCount int        `bson:"retryCount" json:"retryCount"`

	QueuedAt      time.Time  `bson:"queuedAt" json:"queuedAt"`
	LastAttemptAt *time.Time `bson:"lastAttemptAt,omitempty" json:"lastAttemptAt,omitempty"`
	SyncedAt      *time.Time `bson:"syncedAt,omitempty" json:"syncedAt,omitempty"`

	LastError string `bson:"lastError,omitempty" json:"lastError,omitempty"`
}

// NewQueuedEvent wraps an event for offline capture, stamping it with a
// fresh idempotent id
func NewQueuedEvent(event *domain.StockEvent) *QueuedEvent {
	offlineID := uuid.NewString()

	captured := *event
	captured.Offline = true
	captured.OfflineEventID = offlineID

	return &QueuedEvent{
		OfflineID: offlineID,
		TenantID:  event.TenantID,
		Event:     captured,
		Status:    StatusPending,
		QueuedAt:  time.Now().UTC(),
	}
}

// Queue is the durable local store for offline-captured events. Any
// persistent store can back it; the replay algorithm only needs these
// operations.
type Queue interface {
	// Enqueue appends an event with status PENDING
	Enqueue(ctx context.Context, event *QueuedEvent) error

	// Get returns one queued event by offline id
	Get(ctx context.Context, offlineID string) (*QueuedEvent, error)

	// ListPending returns pending events in ascending client-timestamp
	// order
	ListPending(ctx context.Context, tenantID string) ([]*QueuedEvent, error)

	// Update persists a status transition
	Update(ctx context.Context, event *QueuedEvent) error

	// CountPending counts unsynced events for an entity
	CountPending(ctx context.Context, tenantID, entityID string) (int64, error)
}
