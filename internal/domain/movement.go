package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MovementReason is the machine-readable cause recorded on a movement
type MovementReason string

const (
	ReasonSale               MovementReason = "sale"
	ReasonSaleReversal       MovementReason = "sale_reversal"
	ReasonReservation        MovementReason = "reservation"
	ReasonReservationRelease MovementReason = "reservation_release"
	ReasonAdjustment         MovementReason = "adjustment"
	ReasonTransfer           MovementReason = "transfer"
	ReasonReceipt            MovementReason = "receipt"
	ReasonReturn             MovementReason = "return"
	ReasonBooking            MovementReason = "booking"
	ReasonBookingCancel      MovementReason = "booking_cancellation"
	// ReasonAuditCorrection is written only by the ADJUST resolution
	// path, which sets counters to a ground-truth recount
	ReasonAuditCorrection MovementReason = "audit correction"
)

var reasonByEventType = map[EventType]MovementReason{
	EventSale:               ReasonSale,
	EventSaleReversal:       ReasonSaleReversal,
	EventReservation:        ReasonReservation,
	EventReservationRelease: ReasonReservationRelease,
	EventAdjustment:         ReasonAdjustment,
	EventTransfer:           ReasonTransfer,
	EventReceipt:            ReasonReceipt,
	EventReturn:             ReasonReturn,
	EventBooking:            ReasonBooking,
	EventBookingCancel:      ReasonBookingCancel,
}

// ReasonForEventType maps an event type to its movement reason code
func ReasonForEventType(t EventType) MovementReason {
	if reason, ok := reasonByEventType[t]; ok {
		return reason
	}
	return ReasonAdjustment
}

// MovementRecord is one immutable entry in the stock movement ledger.
// Records are append-only: never edited, never deleted.
type MovementRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	MovementID string             `bson:"movementId" json:"movementId"`
	TenantID   string             `bson:"tenantId" json:"tenantId"`

	EntityID   string      `bson:"entityId" json:"entityId"`
	VariantID  string      `bson:"variantId,omitempty" json:"variantId,omitempty"`
	LocationID string      `bson:"locationId,omitempty" json:"locationId,omitempty"`
	Channel    ChannelType `bson:"channel" json:"channel"`

	QuantityDelta  int `bson:"quantityDelta" json:"quantityDelta"`
	QuantityBefore int `bson:"quantityBefore" json:"quantityBefore"`

	Reason MovementReason `bson:"reason" json:"reason"`

	ReferenceType string `bson:"referenceType,omitempty" json:"referenceType,omitempty"`
	ReferenceID   string `bson:"referenceId,omitempty" json:"referenceId,omitempty"`
	EventID       string `bson:"eventId" json:"eventId"`

	ActorID   string `bson:"actorId" json:"actorId"`
	ActorName string `bson:"actorName,omitempty" json:"actorName,omitempty"`

	// OfflineEventID is the dedupe key for offline replay: a unique
	// index on it guarantees the same offline event is applied at
	// most once at the ledger layer
	Offline        bool   `bson:"offline,omitempty" json:"offline,omitempty"`
	OfflineEventID string `bson:"offlineEventId,omitempty" json:"offlineEventId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// NewMovementRecord builds the ledger entry for a successful mutation
func NewMovementRecord(event *StockEvent, quantityBefore int, movementID string) *MovementRecord {
	return &MovementRecord{
		MovementID:     movementID,
		TenantID:       event.TenantID,
		EntityID:       event.EntityID,
		VariantID:      event.VariantID,
		LocationID:     event.LocationID,
		Channel:        event.Channel,
		QuantityDelta:  event.QuantityDelta,
		QuantityBefore: quantityBefore,
		Reason:         ReasonForEventType(event.EventType),
		ReferenceType:  event.ReferenceType,
		ReferenceID:    event.ReferenceID,
		EventID:        event.EventID,
		ActorID:        event.ActorID,
		ActorName:      event.ActorName,
		Offline:        event.Offline,
		OfflineEventID: event.OfflineEventID,
		CreatedAt:      time.Now().UTC(),
	}
}
