package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockEvent_Validate(t *testing.T) {
	event := NewStockEvent("T-1", ChannelSingleVendor, EventSale, "SKU-1", -2, "user-1")
	require.NoError(t, event.Validate())

	missing := *event
	missing.TenantID = ""
	assert.ErrorIs(t, missing.Validate(), ErrMissingTenant)

	badChannel := *event
	badChannel.Channel = "PHONE_ORDER"
	assert.ErrorIs(t, badChannel.Validate(), ErrInvalidChannelType)

	badType := *event
	badType.EventType = "GIFT"
	assert.ErrorIs(t, badType.Validate(), ErrInvalidEventType)
}

func TestStockEvent_EffectiveTimestamp(t *testing.T) {
	event := NewStockEvent("T-1", ChannelCounterSale, EventSale, "SKU-1", -1, "user-1")
	assert.Equal(t, event.ServerTimestamp, event.EffectiveTimestamp())

	clientTime := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	event.ClientTimestamp = &clientTime
	assert.Equal(t, clientTime, event.EffectiveTimestamp())
}

func TestStockEvent_AdjustedCopy(t *testing.T) {
	original := NewStockEvent("T-1", ChannelMultiVendor, EventSale, "SKU-1", -8, "user-1")
	original.OfflineEventID = "off-123"

	adjusted := original.AdjustedCopy(5, "supervisor-1")

	assert.Equal(t, -5, adjusted.QuantityDelta)
	assert.Equal(t, original.EventID, adjusted.AdjustedFromEventID)
	assert.NotEqual(t, original.EventID, adjusted.EventID)
	assert.Equal(t, "off-123:partial", adjusted.OfflineEventID)
	assert.Equal(t, "supervisor-1", adjusted.ActorID)

	// Original stays untouched
	assert.Equal(t, -8, original.QuantityDelta)
	assert.Empty(t, original.AdjustedFromEventID)
}

func TestTripSeatPool_BookAndCancel(t *testing.T) {
	pool := NewTripSeatPool("T-1", "TRIP-1", 40)

	conflict, err := pool.Book(3)
	require.NoError(t, err)
	require.Nil(t, conflict)
	assert.Equal(t, 3, pool.BookedSeats)
	assert.Equal(t, 37, pool.AvailableSeats)

	require.NoError(t, pool.CancelBooking(2))
	assert.Equal(t, 1, pool.BookedSeats)
	assert.Equal(t, 39, pool.AvailableSeats)
}

func TestTripSeatPool_BookFailsClosed(t *testing.T) {
	pool := NewTripSeatPool("T-1", "TRIP-1", 2)

	conflict, err := pool.Book(3)
	require.NoError(t, err)
	require.NotNil(t, conflict)

	assert.Equal(t, ConflictCapacityExceeded, conflict.Type)
	assert.Equal(t, SeverityCritical, conflict.Severity)
	assert.True(t, conflict.Blocks())

	// No partial booking happened
	assert.Equal(t, 0, pool.BookedSeats)
	assert.Equal(t, 2, pool.AvailableSeats)
}

func TestTripSeatPool_CancelFloorsAtZero(t *testing.T) {
	pool := NewTripSeatPool("T-1", "TRIP-1", 10)
	_, err := pool.Book(1)
	require.NoError(t, err)

	require.NoError(t, pool.CancelBooking(5))
	assert.Equal(t, 0, pool.BookedSeats)
	assert.Equal(t, 10, pool.AvailableSeats)
}

func TestPendingConflict_ResolveExactlyOnce(t *testing.T) {
	event := NewStockEvent("T-1", ChannelCounterSale, EventSale, "SKU-1", -20, "user-1")
	conflict := NewPendingConflict("CONF-1", event, &ConflictDetails{
		Type:     ConflictOversellSevere,
		Severity: SeverityCritical,
	}, 24*time.Hour)

	now := time.Now().UTC()
	require.NoError(t, conflict.Resolve(ResolutionAccept, "supervisor-1", "stock recount confirmed", now))

	assert.Equal(t, ConflictStatusResolved, conflict.Status)
	assert.Equal(t, ResolutionAccept, conflict.Resolution)
	assert.Equal(t, "supervisor-1", conflict.ResolvedBy)
	require.NotNil(t, conflict.ResolvedAt)

	assert.ErrorIs(t, conflict.Resolve(ResolutionReject, "supervisor-2", "", now), ErrConflictResolved)
	assert.Equal(t, ResolutionAccept, conflict.Resolution)
}

func TestPendingConflict_LazyExpiry(t *testing.T) {
	event := NewStockEvent("T-1", ChannelCounterSale, EventSale, "SKU-1", -20, "user-1")
	conflict := NewPendingConflict("CONF-2", event, &ConflictDetails{
		Type:     ConflictOversellSevere,
		Severity: SeverityCritical,
	}, time.Hour)

	later := time.Now().UTC().Add(2 * time.Hour)
	assert.True(t, conflict.IsExpired(later))

	err := conflict.Resolve(ResolutionAccept, "supervisor-1", "", later)
	assert.ErrorIs(t, err, ErrConflictExpired)
	assert.Equal(t, ConflictStatusExpired, conflict.Status)
}

func TestAdapterRegistry_UnknownChannel(t *testing.T) {
	registry := NewAdapterRegistry()

	_, err := registry.Get(ChannelCounterSale)
	assert.ErrorIs(t, err, ErrInvalidChannelType)
}

func TestStockContext_EffectiveAvailable(t *testing.T) {
	ctx := &StockContext{Available: 10, InventoryMode: ModeShared}
	quantity, unlimited := ctx.EffectiveAvailable()
	assert.Equal(t, 10, quantity)
	assert.False(t, unlimited)

	ctx.InventoryMode = ModeAllocated
	ctx.AllocatedQuantity = 6
	quantity, _ = ctx.EffectiveAvailable()
	assert.Equal(t, 6, quantity)

	// Allocation above the pool is capped by what physically exists
	ctx.AllocatedQuantity = 50
	quantity, _ = ctx.EffectiveAvailable()
	assert.Equal(t, 10, quantity)

	ctx.InventoryMode = ModeUnlimited
	_, unlimited = ctx.EffectiveAvailable()
	assert.True(t, unlimited)
}

func TestStockItem_ContextAndSnapshot(t *testing.T) {
	item := NewStockItem("T-1", "SKU-1", 20)
	item.ReferencePrice = 99.5
	item.Channels = map[ChannelType]ChannelSettings{
		ChannelMultiVendor: {InventoryMode: ModeAllocated, AllocatedQuantity: 5, Status: ChannelStatusPaused},
	}

	stockCtx := item.ContextFor(ChannelMultiVendor)
	assert.Equal(t, ModeAllocated, stockCtx.InventoryMode)
	assert.Equal(t, ChannelStatusPaused, stockCtx.ChannelStatus)
	assert.Equal(t, 99.5, stockCtx.ReferencePrice)

	// Unconfigured channels default to an active shared pool
	defaultCtx := item.ContextFor(ChannelCounterSale)
	assert.Equal(t, ModeShared, defaultCtx.InventoryMode)
	assert.Equal(t, ChannelStatusActive, defaultCtx.ChannelStatus)

	snapshot := item.SnapshotFor(ChannelMultiVendor)
	assert.Equal(t, 5, snapshot.EffectiveAvailable)
	assert.Equal(t, ChannelStatusPaused, snapshot.Status)
}

func TestReasonForEventType(t *testing.T) {
	assert.Equal(t, ReasonSale, ReasonForEventType(EventSale))
	assert.Equal(t, ReasonBookingCancel, ReasonForEventType(EventBookingCancel))
	assert.Equal(t, ReasonAdjustment, ReasonForEventType(EventType("UNMAPPED")))
}
