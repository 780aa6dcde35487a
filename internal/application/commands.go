package application

import "time"

// SubmitEventCommand carries one proposed stock event into the engine
type SubmitEventCommand struct {
	Channel       string
	EventType     string
	EntityID      string
	VariantID     string
	LocationID    string
	QuantityDelta int
	UnitPrice     *float64
	ReferenceType string
	ReferenceID   string
	ActorID       string
	ActorName     string

	ClientTimestamp *time.Time
	Offline         bool
	OfflineEventID  string

	Metadata map[string]string
}

// ResolveConflictCommand applies a human resolution to a pending conflict
type ResolveConflictCommand struct {
	ConflictID string
	Action     string

	// AdjustedQuantity is required for PARTIAL: the reduced quantity to
	// fulfill in place of the original
	AdjustedQuantity int

	// ActualQuantity is required for ADJUST: the operator-declared true
	// on-hand count
	ActualQuantity int

	ResolvedBy string
	Comment    string
}

// ListConflictsQuery filters the pending-conflict listing
type ListConflictsQuery struct {
	Channel  string
	Severity string
	Status   string
	EntityID string
	Limit    int64
	Offset   int64
}

// ListMovementsQuery filters the movement ledger listing
type ListMovementsQuery struct {
	EntityID string
	Channel  string
	From     *time.Time
	To       *time.Time
	Limit    int64
	Offset   int64
}
