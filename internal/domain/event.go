package domain

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChannelType identifies a sales channel
type ChannelType string

const (
	ChannelCounterSale  ChannelType = "COUNTER_SALE"
	ChannelSingleVendor ChannelType = "SINGLE_VENDOR"
	ChannelMultiVendor  ChannelType = "MULTI_VENDOR"
	ChannelTransport    ChannelType = "TRANSPORT"
)

// IsValid checks if the channel type is valid
func (c ChannelType) IsValid() bool {
	switch c {
	case ChannelCounterSale, ChannelSingleVendor, ChannelMultiVendor, ChannelTransport:
		return true
	}
	return false
}

// EventType represents the kind of stock change an event proposes
type EventType string

const (
	EventSale               EventType = "SALE"
	EventSaleReversal       EventType = "SALE_REVERSAL"
	EventReservation        EventType = "RESERVATION"
	EventReservationRelease EventType = "RESERVATION_RELEASE"
	EventAdjustment         EventType = "ADJUSTMENT"
	EventTransfer           EventType = "TRANSFER"
	EventReceipt            EventType = "RECEIPT"
	EventReturn             EventType = "RETURN"
	EventBooking            EventType = "BOOKING"
	EventBookingCancel      EventType = "BOOKING_CANCELLATION"
)

// IsValid checks if the event type is valid
func (e EventType) IsValid() bool {
	switch e {
	case EventSale, EventSaleReversal, EventReservation, EventReservationRelease,
		EventAdjustment, EventTransfer, EventReceipt, EventReturn,
		EventBooking, EventBookingCancel:
		return true
	}
	return false
}

// IsConsumption reports whether the event type consumes stock and is
// therefore subject to oversell classification
func (e EventType) IsConsumption() bool {
	return e == EventSale || e == EventBooking
}

// StockEvent is an immutable proposed stock change. Corrections are new
// events referencing the original, never edits.
type StockEvent struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	EventID  string             `bson:"eventId" json:"eventId"`
	TenantID string             `bson:"tenantId" json:"tenantId"`

	Channel   ChannelType `bson:"channel" json:"channel"`
	EventType EventType   `bson:"eventType" json:"eventType"`

	EntityID   string `bson:"entityId" json:"entityId"`
	VariantID  string `bson:"variantId,omitempty" json:"variantId,omitempty"`
	LocationID string `bson:"locationId,omitempty" json:"locationId,omitempty"`

	// QuantityDelta is signed: negative means consumption
	QuantityDelta int      `bson:"quantityDelta" json:"quantityDelta"`
	UnitPrice     *float64 `bson:"unitPrice,omitempty" json:"unitPrice,omitempty"`

	ReferenceType string `bson:"referenceType,omitempty" json:"referenceType,omitempty"`
	ReferenceID   string `bson:"referenceId,omitempty" json:"referenceId,omitempty"`

	ActorID   string `bson:"actorId" json:"actorId"`
	ActorName string `bson:"actorName,omitempty" json:"actorName,omitempty"`

	ClientTimestamp *time.Time `bson:"clientTimestamp,omitempty" json:"clientTimestamp,omitempty"`
	ServerTimestamp time.Time  `bson:"serverTimestamp" json:"serverTimestamp"`

	Offline        bool   `bson:"offline" json:"offline"`
	OfflineEventID string `bson:"offlineEventId,omitempty" json:"offlineEventId,omitempty"`

	// AdjustedFromEventID links a partial-fulfillment event back to the
	// original it reduces
	AdjustedFromEventID string `bson:"adjustedFromEventId,omitempty" json:"adjustedFromEventId,omitempty"`

	Metadata map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// NewStockEvent creates a stock event with a generated id and server timestamp
func NewStockEvent(tenantID string, channel ChannelType, eventType EventType, entityID string, quantityDelta int, actorID string) *StockEvent {
	return &StockEvent{
		EventID:         uuid.NewString(),
		TenantID:        tenantID,
		Channel:         channel,
		EventType:       eventType,
		EntityID:        entityID,
		QuantityDelta:   quantityDelta,
		ActorID:         actorID,
		ServerTimestamp: time.Now().UTC(),
	}
}

// Validate checks structural integrity of the event
func (e *StockEvent) Validate() error {
	if e.EventID == "" {
		return ErrMissingEventID
	}
	if e.TenantID == "" {
		return ErrMissingTenant
	}
	if !e.Channel.IsValid() {
		return ErrInvalidChannelType
	}
	if !e.EventType.IsValid() {
		return ErrInvalidEventType
	}
	if e.EntityID == "" {
		return ErrMissingEntityID
	}
	return nil
}

// RequestedQuantity returns the absolute quantity the event asks for
func (e *StockEvent) RequestedQuantity() int {
	if e.QuantityDelta < 0 {
		return -e.QuantityDelta
	}
	return e.QuantityDelta
}

// EffectiveTimestamp returns the client timestamp when present, falling
// back to the server timestamp. Batch ordering sorts on this value.
func (e *StockEvent) EffectiveTimestamp() time.Time {
	if e.ClientTimestamp != nil {
		return *e.ClientTimestamp
	}
	return e.ServerTimestamp
}

// AdjustedCopy creates a new event with a reduced quantity referencing
// this event. The original is retained untouched for audit.
func (e *StockEvent) AdjustedCopy(adjustedQuantity int, actorID string) *StockEvent {
	delta := adjustedQuantity
	if e.QuantityDelta < 0 {
		delta = -adjustedQuantity
	}

	adjusted := *e
	adjusted.ID = primitive.NilObjectID
	adjusted.EventID = uuid.NewString()
	adjusted.QuantityDelta = delta
	adjusted.ActorID = actorID
	adjusted.ServerTimestamp = time.Now().UTC()
	adjusted.AdjustedFromEventID = e.EventID
	if e.OfflineEventID != "" {
		adjusted.OfflineEventID = e.OfflineEventID + ":partial"
	}
	return &adjusted
}
