package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksync-platform/sync-service/internal/adapters"
	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/pkg/kafka"
	"github.com/stocksync-platform/sync-service/pkg/logging"
)

type engineFixture struct {
	engine    *SyncEngine
	stocks    *fakeStockRepo
	movements *fakeMovementRepo
	conflicts *fakeConflictRepo
	publisher *fakePublisher
}

func newEngineFixture(t *testing.T, items ...*domain.StockItem) *engineFixture {
	t.Helper()

	stocks := newFakeStockRepo(items...)
	movements := &fakeMovementRepo{}
	conflicts := newFakeConflictRepo()
	publisher := &fakePublisher{}
	logger := logging.NewNop()

	registry := domain.NewAdapterRegistry()
	registry.Register(adapters.NewCounterSaleAdapter(stocks, movements, logger))
	registry.Register(adapters.NewSingleVendorAdapter(stocks, movements, logger))
	registry.Register(adapters.NewMultiVendorAdapter(stocks, movements, logger))

	engine := NewSyncEngine("T-1", registry, stocks, movements, conflicts, logger,
		WithPublisher(publisher))

	return &engineFixture{
		engine:    engine,
		stocks:    stocks,
		movements: movements,
		conflicts: conflicts,
		publisher: publisher,
	}
}

func saleEvent(entityID string, quantity int) *domain.StockEvent {
	return domain.NewStockEvent("T-1", domain.ChannelCounterSale, domain.EventSale, entityID, -quantity, "user-1")
}

func TestSyncEngine_ProcessEvent(t *testing.T) {
	fx := newEngineFixture(t, domain.NewStockItem("T-1", "SKU-1", 10))

	result, err := fx.engine.ProcessEvent(context.Background(), saleEvent("SKU-1", 3))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 7, result.StockAfter)

	// Movement applied event published synchronously
	require.Len(t, fx.publisher.published, 1)
	assert.Equal(t, kafka.Topics.MovementEvents, fx.publisher.topics[0])
	assert.Equal(t, "T-1", fx.publisher.published[0].TenantID)
}

func TestSyncEngine_TenantMismatch(t *testing.T) {
	fx := newEngineFixture(t, domain.NewStockItem("T-1", "SKU-1", 10))

	event := domain.NewStockEvent("T-2", domain.ChannelCounterSale, domain.EventSale, "SKU-1", -1, "user-1")
	_, err := fx.engine.ProcessEvent(context.Background(), event)

	assert.ErrorIs(t, err, domain.ErrTenantMismatch)
	assert.Equal(t, 10, fx.stocks.items[stockKey("T-1", "SKU-1")].Available)
}

func TestSyncEngine_UnknownChannel(t *testing.T) {
	fx := newEngineFixture(t, domain.NewStockItem("T-1", "SKU-1", 10))

	event := domain.NewStockEvent("T-1", domain.ChannelTransport, domain.EventBooking, "SKU-1", -1, "user-1")
	_, err := fx.engine.ProcessEvent(context.Background(), event)

	// Transport adapter is not registered in this fixture
	assert.ErrorIs(t, err, domain.ErrInvalidChannelType)
}

func TestSyncEngine_CriticalConflictCreatesPending(t *testing.T) {
	fx := newEngineFixture(t, domain.NewStockItem("T-1", "SKU-1", 5))

	result, err := fx.engine.ProcessEvent(context.Background(), saleEvent("SKU-1", 30))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, fx.conflicts.pendingCount())

	// Conflict event published, no movement event
	require.Len(t, fx.publisher.topics, 1)
	assert.Equal(t, kafka.Topics.ConflictEvents, fx.publisher.topics[0])
}

func TestSyncEngine_MildConflictNotPendingUnlessOffline(t *testing.T) {
	fx := newEngineFixture(t, domain.NewStockItem("T-1", "SKU-1", 10))

	result, err := fx.engine.ProcessEvent(context.Background(), saleEvent("SKU-1", 11))
	require.NoError(t, err)
	assert.True(t, result.Mutated)
	assert.Equal(t, 0, fx.conflicts.pendingCount())

	offline := saleEvent("SKU-1", 11)
	offline.Offline = true
	offline.OfflineEventID = "off-9"
	fx.stocks.items[stockKey("T-1", "SKU-1")].Available = 10

	result, err = fx.engine.ProcessEvent(context.Background(), offline)
	require.NoError(t, err)
	assert.True(t, result.Mutated)

	// Offline-flagged conflicts surface for review even when applied
	assert.Equal(t, 1, fx.conflicts.pendingCount())
}

func TestSyncEngine_BatchOrdering(t *testing.T) {
	ts := func(seconds int) *time.Time {
		t := time.Date(2025, 6, 1, 12, 0, seconds, 0, time.UTC)
		return &t
	}

	// A receipt at t=1 restocks before the big sale at t=2; submitting
	// them in reverse order must not change the outcome.
	makeEvents := func() []*domain.StockEvent {
		sale := saleEvent("SKU-1", 12)
		sale.ClientTimestamp = ts(2)

		receipt := domain.NewStockEvent("T-1", domain.ChannelCounterSale, domain.EventReceipt, "SKU-1", 10, "user-1")
		receipt.ClientTimestamp = ts(1)

		return []*domain.StockEvent{sale, receipt}
	}

	fx := newEngineFixture(t, domain.NewStockItem("T-1", "SKU-1", 5))
	batch, err := fx.engine.ProcessBatch(context.Background(), makeEvents())
	require.NoError(t, err)

	assert.Equal(t, 2, batch.Processed)
	assert.Equal(t, 2, batch.Mutated)
	assert.Equal(t, 0, batch.Blocked)

	// Receipt first (5+10=15), then sale (15-12=3)
	assert.Equal(t, 3, fx.stocks.items[stockKey("T-1", "SKU-1")].Available)

	// Same events, pre-sorted input: identical final state
	fx2 := newEngineFixture(t, domain.NewStockItem("T-1", "SKU-1", 5))
	events := makeEvents()
	events[0], events[1] = events[1], events[0]
	_, err = fx2.engine.ProcessBatch(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 3, fx2.stocks.items[stockKey("T-1", "SKU-1")].Available)
}

func TestSyncEngine_BatchIndependentFailures(t *testing.T) {
	fx := newEngineFixture(t, domain.NewStockItem("T-1", "SKU-1", 10))

	good := saleEvent("SKU-1", 2)
	missing := saleEvent("SKU-MISSING", 1)

	batch, err := fx.engine.ProcessBatch(context.Background(), []*domain.StockEvent{missing, good})
	require.NoError(t, err)

	assert.Equal(t, 2, batch.Processed)
	assert.Equal(t, 1, batch.Mutated)
	assert.Equal(t, 1, batch.Failed)

	// The failing event did not abort the good one
	assert.Equal(t, 8, fx.stocks.items[stockKey("T-1", "SKU-1")].Available)
}

func TestSyncEngine_UnifiedStockView(t *testing.T) {
	item := domain.NewStockItem("T-1", "SKU-1", 20)
	item.Reserved = 4
	item.Channels = map[domain.ChannelType]domain.ChannelSettings{
		domain.ChannelMultiVendor: {InventoryMode: domain.ModeAllocated, AllocatedQuantity: 6, Status: domain.ChannelStatusActive},
	}
	fx := newEngineFixture(t, item)

	// A blocked event leaves a pending conflict behind
	_, err := fx.engine.ProcessEvent(context.Background(), saleEvent("SKU-1", 50))
	require.NoError(t, err)

	view, err := fx.engine.GetUnifiedStockView(context.Background(), "SKU-1")
	require.NoError(t, err)

	assert.Equal(t, 20, view.Available)
	assert.Equal(t, 4, view.Reserved)
	assert.Len(t, view.Channels, 3)
	assert.Equal(t, int64(1), view.PendingConflicts)

	for _, snapshot := range view.Channels {
		if snapshot.Channel == domain.ChannelMultiVendor {
			assert.Equal(t, 6, snapshot.EffectiveAvailable)
		} else {
			assert.Equal(t, 20, snapshot.EffectiveAvailable)
		}
	}
}

func TestSyncEngine_SubmitEventCommand(t *testing.T) {
	fx := newEngineFixture(t, domain.NewStockItem("T-1", "SKU-1", 10))

	result, err := fx.engine.SubmitEvent(context.Background(), SubmitEventCommand{
		Channel:       string(domain.ChannelSingleVendor),
		EventType:     string(domain.EventSale),
		EntityID:      "SKU-1",
		QuantityDelta: -2,
		ActorID:       "user-1",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 8, result.StockAfter)
}
