package domain

import "context"

// ChannelSnapshot is the per-channel slice of the unified stock view,
// computed with the same allocation arithmetic as the classifier
type ChannelSnapshot struct {
	Channel           ChannelType   `json:"channel"`
	InventoryMode     InventoryMode `json:"inventoryMode"`
	AllocatedQuantity int           `json:"allocatedQuantity,omitempty"`
	EffectiveAvailable int          `json:"effectiveAvailable"`
	Unlimited         bool          `json:"unlimited,omitempty"`
	Status            ChannelStatus `json:"status"`
}

// ChannelAdapter applies classified events to the quantity state owned
// by one sales channel
type ChannelAdapter interface {
	// GetType returns the channel type this adapter handles
	GetType() ChannelType

	// ProcessEvent classifies and, unless blocked, applies one event
	ProcessEvent(ctx context.Context, event *StockEvent) (*EventProcessingResult, error)

	// GetCurrentStock returns the available quantity for an entity
	GetCurrentStock(ctx context.Context, entityID string) (int, error)

	// ReserveStock moves quantity from available to reserved
	ReserveStock(ctx context.Context, entityID string, quantity int, actorID string) error

	// ReleaseReservation moves quantity from reserved back to available
	ReleaseReservation(ctx context.Context, entityID string, quantity int, actorID string) error

	// GetChannelSnapshot returns this channel's view of an entity
	GetChannelSnapshot(ctx context.Context, entityID string) (*ChannelSnapshot, error)
}

// AdapterRegistry holds the adapter for each channel type
type AdapterRegistry struct {
	adapters map[ChannelType]ChannelAdapter
}

// NewAdapterRegistry creates an empty adapter registry
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{
		adapters: make(map[ChannelType]ChannelAdapter),
	}
}

// Register registers an adapter under its channel type
func (r *AdapterRegistry) Register(adapter ChannelAdapter) {
	r.adapters[adapter.GetType()] = adapter
}

// Get returns the adapter for a channel type. An unknown channel is a
// hard error, never a silent no-op.
func (r *AdapterRegistry) Get(channelType ChannelType) (ChannelAdapter, error) {
	adapter, ok := r.adapters[channelType]
	if !ok {
		return nil, ErrInvalidChannelType
	}
	return adapter, nil
}

// Channels returns the registered channel types
func (r *AdapterRegistry) Channels() []ChannelType {
	channels := make([]ChannelType, 0, len(r.adapters))
	for c := range r.adapters {
		channels = append(channels, c)
	}
	return channels
}
