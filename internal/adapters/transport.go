package adapters

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/pkg/logging"
)

// TransportAdapter applies booking events to trip seat pools. Unlike the
// quantity channels, seats are discrete and non-fungible: a booking that
// does not fit is rejected outright, with no mild or severe tiers.
type TransportAdapter struct {
	pools     domain.SeatPoolRepository
	movements domain.MovementRepository
	logger    *logging.Logger
}

// NewTransportAdapter creates the adapter for transport seat bookings
func NewTransportAdapter(pools domain.SeatPoolRepository, movements domain.MovementRepository, logger *logging.Logger) *TransportAdapter {
	return &TransportAdapter{
		pools:     pools,
		movements: movements,
		logger:    logger.WithChannel(string(domain.ChannelTransport)),
	}
}

// GetType returns the channel type this adapter handles
func (a *TransportAdapter) GetType() domain.ChannelType {
	return domain.ChannelTransport
}

// ProcessEvent books or cancels seats on a trip's seat pool
func (a *TransportAdapter) ProcessEvent(ctx context.Context, event *domain.StockEvent) (*domain.EventProcessingResult, error) {
	if event.EventType != domain.EventBooking && event.EventType != domain.EventBookingCancel {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedEvent, event.EventType, domain.ChannelTransport)
	}

	if event.OfflineEventID != "" {
		applied, err := a.movements.ExistsOffline(ctx, event.TenantID, event.OfflineEventID)
		if err != nil {
			return nil, err
		}
		if applied {
			seats, _ := a.GetCurrentStock(ctx, event.EntityID)
			return &domain.EventProcessingResult{
				EventID:     event.EventID,
				Success:     true,
				Mutated:     false,
				Duplicate:   true,
				StockBefore: seats,
				StockAfter:  seats,
			}, nil
		}
	}

	pool, err := a.pools.Get(ctx, event.TenantID, event.EntityID)
	if err != nil {
		return nil, err
	}

	before := pool.AvailableSeats
	seats := event.RequestedQuantity()

	if event.EventType == domain.EventBooking {
		conflict, err := pool.Book(seats)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			a.logger.WithFields(map[string]interface{}{
				"eventId": event.EventID,
				"tripId":  pool.TripID,
				"seats":   seats,
			}).Warn("booking rejected: seat capacity exceeded")
			return domain.BlockedResult(event, conflict, before), nil
		}
	} else {
		if err := pool.CancelBooking(seats); err != nil {
			return nil, err
		}
	}

	if err := a.pools.Save(ctx, pool); err != nil {
		return nil, err
	}

	record := domain.NewMovementRecord(event, before, uuid.NewString())
	if err := a.movements.Append(ctx, record); err != nil {
		return nil, err
	}

	return &domain.EventProcessingResult{
		EventID:     event.EventID,
		Success:     true,
		Mutated:     true,
		StockBefore: before,
		StockAfter:  pool.AvailableSeats,
		MovementID:  record.MovementID,
	}, nil
}

// GetCurrentStock returns the available seats on a trip
func (a *TransportAdapter) GetCurrentStock(ctx context.Context, entityID string) (int, error) {
	pool, err := a.pools.Get(ctx, tenantFromContext(ctx), entityID)
	if err != nil {
		return 0, err
	}
	return pool.AvailableSeats, nil
}

// ReserveStock is not supported: seats are booked, never soft-reserved
func (a *TransportAdapter) ReserveStock(ctx context.Context, entityID string, quantity int, actorID string) error {
	return fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedEvent, domain.EventReservation, domain.ChannelTransport)
}

// ReleaseReservation is not supported on the transport channel
func (a *TransportAdapter) ReleaseReservation(ctx context.Context, entityID string, quantity int, actorID string) error {
	return fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedEvent, domain.EventReservationRelease, domain.ChannelTransport)
}

// GetChannelSnapshot returns the trip's seat availability as a channel view
func (a *TransportAdapter) GetChannelSnapshot(ctx context.Context, entityID string) (*domain.ChannelSnapshot, error) {
	pool, err := a.pools.Get(ctx, tenantFromContext(ctx), entityID)
	if err != nil {
		return nil, err
	}
	return &domain.ChannelSnapshot{
		Channel:            domain.ChannelTransport,
		InventoryMode:      domain.ModeShared,
		EffectiveAvailable: pool.AvailableSeats,
		Status:             domain.ChannelStatusActive,
	}, nil
}
