package domain

// EventProcessingResult is the outcome of submitting one event
type EventProcessingResult struct {
	EventID string `json:"eventId"`
	Success bool   `json:"success"`
	Mutated bool   `json:"mutated"`

	Conflict *ConflictDetails `json:"conflict,omitempty"`

	StockBefore int `json:"stockBefore"`
	StockAfter  int `json:"stockAfter"`

	MovementID string `json:"movementId,omitempty"`

	// Duplicate is set when the offline dedupe layer rejected a replay
	// of an already-applied event; the caller treats this as success
	Duplicate bool `json:"duplicate,omitempty"`

	// Error carries the failure message for events that failed with a
	// hard error inside a batch, where per-event errors cannot abort
	// the remaining events
	Error string `json:"error,omitempty"`
}

// BlockedResult builds the result for a critically conflicted event:
// no mutation, conflict surfaced for resolution.
func BlockedResult(event *StockEvent, conflict *ConflictDetails, stock int) *EventProcessingResult {
	return &EventProcessingResult{
		EventID:     event.EventID,
		Success:     false,
		Mutated:     false,
		Conflict:    conflict,
		StockBefore: stock,
		StockAfter:  stock,
	}
}
