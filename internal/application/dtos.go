package application

import (
	"time"

	"github.com/stocksync-platform/sync-service/internal/domain"
)

// UnifiedStockView is the read-only multi-channel projection for one
// entity. It is never a source of truth.
type UnifiedStockView struct {
	EntityID string `json:"entityId"`
	TenantID string `json:"tenantId"`

	OnHand    int `json:"onHand"`
	Reserved  int `json:"reserved"`
	Available int `json:"available"`

	EntityStatus domain.EntityStatus `json:"entityStatus"`

	Channels []*domain.ChannelSnapshot `json:"channels"`

	PendingConflicts     int64 `json:"pendingConflicts"`
	PendingOfflineEvents int64 `json:"pendingOfflineEvents"`
}

// ConflictList is the pending-conflict listing with staleness visibility
type ConflictList struct {
	Conflicts []*domain.PendingConflict `json:"conflicts"`
	Total     int64                     `json:"total"`

	// OldestPendingAt is the creation time of the oldest unresolved
	// conflict, for SLA monitoring
	OldestPendingAt *time.Time `json:"oldestPendingAt,omitempty"`
}

// ResolutionOutcome reports what a resolution action did
type ResolutionOutcome struct {
	ConflictID string                  `json:"conflictId"`
	Action     domain.ResolutionAction `json:"action"`
	ResolvedBy string                  `json:"resolvedBy"`
	ResolvedAt time.Time               `json:"resolvedAt"`

	// Result is set when the action resubmitted an event (ACCEPT,
	// PARTIAL) or corrected counters directly (ADJUST)
	Result *domain.EventProcessingResult `json:"result,omitempty"`
}

// BatchResult reports per-event outcomes of a batch submission
type BatchResult struct {
	Results   []*domain.EventProcessingResult `json:"results"`
	Processed int                             `json:"processed"`
	Mutated   int                             `json:"mutated"`
	Blocked   int                             `json:"blocked"`
	Failed    int                             `json:"failed"`
}

// MovementList is a page of the movement ledger
type MovementList struct {
	Movements []*domain.MovementRecord `json:"movements"`
	Total     int64                    `json:"total"`
}

// BuildEvent constructs the immutable domain event for a command
// outside the engine, for callers that capture events without
// processing them (the offline queue).
func BuildEvent(tenantID string, cmd SubmitEventCommand) *domain.StockEvent {
	return eventFromCommand(tenantID, cmd)
}

// eventFromCommand builds the immutable domain event for a submission
func eventFromCommand(tenantID string, cmd SubmitEventCommand) *domain.StockEvent {
	event := domain.NewStockEvent(
		tenantID,
		domain.ChannelType(cmd.Channel),
		domain.EventType(cmd.EventType),
		cmd.EntityID,
		cmd.QuantityDelta,
		cmd.ActorID,
	)
	event.VariantID = cmd.VariantID
	event.LocationID = cmd.LocationID
	event.UnitPrice = cmd.UnitPrice
	event.ReferenceType = cmd.ReferenceType
	event.ReferenceID = cmd.ReferenceID
	event.ActorName = cmd.ActorName
	event.ClientTimestamp = cmd.ClientTimestamp
	event.Offline = cmd.Offline
	event.OfflineEventID = cmd.OfflineEventID
	event.Metadata = cmd.Metadata
	return event
}
