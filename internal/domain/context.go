package domain

// InventoryMode controls how a channel draws from the shared pool
type InventoryMode string

const (
	// ModeShared draws from the pool shared across all channels
	ModeShared InventoryMode = "SHARED"
	// ModeAllocated caps the channel at a channel-specific quantity
	ModeAllocated InventoryMode = "ALLOCATED"
	// ModeUnlimited treats the channel as inexhaustible
	ModeUnlimited InventoryMode = "UNLIMITED"
)

// IsValid checks if the inventory mode is valid
func (m InventoryMode) IsValid() bool {
	switch m {
	case ModeShared, ModeAllocated, ModeUnlimited:
		return true
	}
	return false
}

// ChannelStatus represents the activation status of a channel
type ChannelStatus string

const (
	ChannelStatusActive   ChannelStatus = "ACTIVE"
	ChannelStatusPaused   ChannelStatus = "PAUSED"
	ChannelStatusInactive ChannelStatus = "INACTIVE"
)

// EntityStatus represents the lifecycle status of a sellable entity
type EntityStatus string

const (
	EntityStatusActive   EntityStatus = "ACTIVE"
	EntityStatusInactive EntityStatus = "INACTIVE"
	EntityStatusDraft    EntityStatus = "DRAFT"
	EntityStatusArchived EntityStatus = "ARCHIVED"
)

// StockContext is a read-only snapshot assembled per classification call
type StockContext struct {
	EntityID  string      `json:"entityId"`
	TenantID  string      `json:"tenantId"`
	Channel   ChannelType `json:"channel"`

	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	OnHand    int `json:"onHand"`

	InventoryMode     InventoryMode `json:"inventoryMode"`
	AllocatedQuantity int           `json:"allocatedQuantity,omitempty"`

	ChannelStatus ChannelStatus `json:"channelStatus"`
	EntityStatus  EntityStatus  `json:"entityStatus"`

	ReferencePrice float64 `json:"referencePrice,omitempty"`
}

// EffectiveAvailable returns the quantity a channel may actually consume
// after applying its allocation mode. Unlimited channels report no cap.
func (c *StockContext) EffectiveAvailable() (quantity int, unlimited bool) {
	switch c.InventoryMode {
	case ModeUnlimited:
		return 0, true
	case ModeAllocated:
		if c.AllocatedQuantity < c.Available {
			return c.AllocatedQuantity, false
		}
		return c.Available, false
	default:
		return c.Available, false
	}
}
