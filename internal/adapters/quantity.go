package adapters

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/pkg/logging"
)

// QuantityAdapter applies events from one channel to a generic quantity
// record. The counter-sale, single-vendor, and multi-vendor channels all
// run the same algorithm and differ only in which event types they
// accept; each gets its own instance of this adapter.
type QuantityAdapter struct {
	channel       domain.ChannelType
	allowedEvents map[domain.EventType]bool

	stocks    domain.StockRepository
	movements domain.MovementRepository
	logger    *logging.Logger
}

// NewQuantityAdapter creates a quantity adapter for one channel
func NewQuantityAdapter(
	channel domain.ChannelType,
	allowedEvents []domain.EventType,
	stocks domain.StockRepository,
	movements domain.MovementRepository,
	logger *logging.Logger,
) *QuantityAdapter {
	allowed := make(map[domain.EventType]bool, len(allowedEvents))
	for _, t := range allowedEvents {
		allowed[t] = true
	}
	return &QuantityAdapter{
		channel:       channel,
		allowedEvents: allowed,
		stocks:        stocks,
		movements:     movements,
		logger:        logger.WithChannel(string(channel)),
	}
}

// GetType returns the channel type this adapter handles
func (a *QuantityAdapter) GetType() domain.ChannelType {
	return a.channel
}

// ProcessEvent classifies the event against current stock and, unless a
// critical conflict blocks it, applies the delta and appends exactly one
// movement record
func (a *QuantityAdapter) ProcessEvent(ctx context.Context, event *domain.StockEvent) (*domain.EventProcessingResult, error) {
	if !a.allowedEvents[event.EventType] {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedEvent, event.EventType, a.channel)
	}

	// Offline replays must never double-apply: the ledger's offline
	// event id is the dedupe key
	if event.OfflineEventID != "" {
		applied, err := a.movements.ExistsOffline(ctx, event.TenantID, event.OfflineEventID)
		if err != nil {
			return nil, err
		}
		if applied {
			a.logger.WithFields(map[string]interface{}{
				"eventId":        event.EventID,
				"offlineEventId": event.OfflineEventID,
			}).Info("skipping already-applied offline event")
			stock, _ := a.GetCurrentStock(ctx, event.EntityID)
			return &domain.EventProcessingResult{
				EventID:     event.EventID,
				Success:     true,
				Mutated:     false,
				Duplicate:   true,
				StockBefore: stock,
				StockAfter:  stock,
			}, nil
		}
	}

	item, err := a.stocks.GetItem(ctx, event.TenantID, event.EntityID)
	if err != nil {
		return nil, err
	}

	verdict := domain.Classify(event, item.ContextFor(a.channel))
	if verdict.Blocks() {
		a.logger.WithFields(map[string]interface{}{
			"eventId":  event.EventID,
			"entityId": event.EntityID,
			"conflict": string(verdict.Type),
		}).Warn("event blocked by critical conflict")
		return domain.BlockedResult(event, verdict, item.Available), nil
	}

	before, err := a.stocks.AdjustQuantity(ctx, event.TenantID, event.EntityID, event.QuantityDelta)
	if err != nil {
		return nil, err
	}

	record := domain.NewMovementRecord(event, before, uuid.NewString())
	if err := a.movements.Append(ctx, record); err != nil {
		if err == domain.ErrDuplicateMovement {
			// Lost a replay race after mutating: compensate and report
			// the duplicate. The store floors at zero, so reverse only
			// the delta that actually landed.
			applied := event.QuantityDelta
			if before+event.QuantityDelta < 0 {
				applied = -before
			}
			if _, rbErr := a.stocks.AdjustQuantity(ctx, event.TenantID, event.EntityID, -applied); rbErr != nil {
				a.logger.WithError(rbErr).Error("failed to compensate duplicate offline mutation")
				return nil, rbErr
			}
			return &domain.EventProcessingResult{
				EventID:     event.EventID,
				Success:     true,
				Mutated:     false,
				Duplicate:   true,
				StockBefore: before,
				StockAfter:  before,
			}, nil
		}
		return nil, err
	}

	after := before + event.QuantityDelta
	if after < 0 {
		after = 0
	}

	result := &domain.EventProcessingResult{
		EventID:     event.EventID,
		Success:     true,
		Mutated:     true,
		StockBefore: before,
		StockAfter:  after,
		MovementID:  record.MovementID,
	}
	if verdict.HasConflict() {
		result.Conflict = verdict
	}
	return result, nil
}

// GetCurrentStock returns the available quantity for an entity
func (a *QuantityAdapter) GetCurrentStock(ctx context.Context, entityID string) (int, error) {
	item, err := a.getItem(ctx, entityID)
	if err != nil {
		return 0, err
	}
	return item.Available, nil
}

// ReserveStock moves quantity from available to reserved
func (a *QuantityAdapter) ReserveStock(ctx context.Context, entityID string, quantity int, actorID string) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	return a.adjustReservation(ctx, entityID, quantity, domain.EventReservation, actorID)
}

// ReleaseReservation moves quantity from reserved back to available
func (a *QuantityAdapter) ReleaseReservation(ctx context.Context, entityID string, quantity int, actorID string) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	return a.adjustReservation(ctx, entityID, -quantity, domain.EventReservationRelease, actorID)
}

func (a *QuantityAdapter) adjustReservation(ctx context.Context, entityID string, quantity int, eventType domain.EventType, actorID string) error {
	item, err := a.getItem(ctx, entityID)
	if err != nil {
		return err
	}

	if err := a.stocks.AdjustReservation(ctx, item.TenantID, entityID, quantity); err != nil {
		return err
	}

	event := domain.NewStockEvent(item.TenantID, a.channel, eventType, entityID, -quantity, actorID)
	record := domain.NewMovementRecord(event, item.Available, uuid.NewString())
	return a.movements.Append(ctx, record)
}

// GetChannelSnapshot returns this channel's view of an entity
func (a *QuantityAdapter) GetChannelSnapshot(ctx context.Context, entityID string) (*domain.ChannelSnapshot, error) {
	item, err := a.getItem(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return item.SnapshotFor(a.channel), nil
}

func (a *QuantityAdapter) getItem(ctx context.Context, entityID string) (*domain.StockItem, error) {
	tenantID := tenantFromContext(ctx)
	return a.stocks.GetItem(ctx, tenantID, entityID)
}
