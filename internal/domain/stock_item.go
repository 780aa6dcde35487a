package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChannelSettings holds one channel's allocation and activation config
// for a stock item
type ChannelSettings struct {
	InventoryMode     InventoryMode `bson:"inventoryMode" json:"inventoryMode"`
	AllocatedQuantity int           `bson:"allocatedQuantity,omitempty" json:"allocatedQuantity,omitempty"`
	Status            ChannelStatus `bson:"status" json:"status"`
}

// StockItem is the shared quantity record for one sellable entity at one
// location. All channels draw from it according to their settings.
type StockItem struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	EntityID   string             `bson:"entityId" json:"entityId"`
	TenantID   string             `bson:"tenantId" json:"tenantId"`
	LocationID string             `bson:"locationId,omitempty" json:"locationId,omitempty"`

	OnHand    int `bson:"onHand" json:"onHand"`
	Reserved  int `bson:"reserved" json:"reserved"`
	Available int `bson:"available" json:"available"`

	EntityStatus   EntityStatus `bson:"entityStatus" json:"entityStatus"`
	ReferencePrice float64      `bson:"referencePrice,omitempty" json:"referencePrice,omitempty"`

	Channels map[ChannelType]ChannelSettings `bson:"channels" json:"channels"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewStockItem creates an active stock item with all quantity available
func NewStockItem(tenantID, entityID string, onHand int) *StockItem {
	now := time.Now().UTC()
	return &StockItem{
		EntityID:     entityID,
		TenantID:     tenantID,
		OnHand:       onHand,
		Available:    onHand,
		EntityStatus: EntityStatusActive,
		Channels:     make(map[ChannelType]ChannelSettings),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SettingsFor returns the channel's settings, defaulting to an active
// shared-pool channel when none are configured
func (s *StockItem) SettingsFor(channel ChannelType) ChannelSettings {
	if cfg, ok := s.Channels[channel]; ok {
		return cfg
	}
	return ChannelSettings{
		InventoryMode: ModeShared,
		Status:        ChannelStatusActive,
	}
}

// ContextFor assembles the classification snapshot for one channel
func (s *StockItem) ContextFor(channel ChannelType) *StockContext {
	cfg := s.SettingsFor(channel)
	return &StockContext{
		EntityID:          s.EntityID,
		TenantID:          s.TenantID,
		Channel:           channel,
		Available:         s.Available,
		Reserved:          s.Reserved,
		OnHand:            s.OnHand,
		InventoryMode:     cfg.InventoryMode,
		AllocatedQuantity: cfg.AllocatedQuantity,
		ChannelStatus:     cfg.Status,
		EntityStatus:      s.EntityStatus,
		ReferencePrice:    s.ReferencePrice,
	}
}

// SnapshotFor computes the per-channel view used by the unified
// stock projection
func (s *StockItem) SnapshotFor(channel ChannelType) *ChannelSnapshot {
	cfg := s.SettingsFor(channel)
	stockCtx := s.ContextFor(channel)
	effective, unlimited := stockCtx.EffectiveAvailable()
	return &ChannelSnapshot{
		Channel:            channel,
		InventoryMode:      cfg.InventoryMode,
		AllocatedQuantity:  cfg.AllocatedQuantity,
		EffectiveAvailable: effective,
		Unlimited:          unlimited,
		Status:             cfg.Status,
	}
}
