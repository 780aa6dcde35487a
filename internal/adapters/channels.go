package adapters

import (
	"context"

	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/tenant"
)

// tenantFromContext resolves the tenant for read paths; mutation paths
// always carry the tenant on the event itself
func tenantFromContext(ctx context.Context) string {
	return tenant.GetTenantID(ctx)
}

// NewCounterSaleAdapter creates the adapter for in-person point-of-sale
// events. Counter sales settle immediately, so reservations never occur
// on this channel.
func NewCounterSaleAdapter(stocks domain.StockRepository, movements domain.MovementRepository, logger *logging.Logger) *QuantityAdapter {
	return NewQuantityAdapter(
		domain.ChannelCounterSale,
		[]domain.EventType{
			domain.EventSale,
			domain.EventSaleReversal,
			domain.EventReturn,
			domain.EventAdjustment,
			domain.EventReceipt,
		},
		stocks, movements, logger,
	)
}

// NewSingleVendorAdapter creates the adapter for the single-vendor
// storefront channel
func NewSingleVendorAdapter(stocks domain.StockRepository, movements domain.MovementRepository, logger *logging.Logger) *QuantityAdapter {
	return NewQuantityAdapter(
		domain.ChannelSingleVendor,
		[]domain.EventType{
			domain.EventSale,
			domain.EventSaleReversal,
			domain.EventReservation,
			domain.EventReservationRelease,
			domain.EventReturn,
			domain.EventAdjustment,
			domain.EventReceipt,
			domain.EventTransfer,
		},
		stocks, movements, logger,
	)
}

// NewMultiVendorAdapter creates the adapter for the multi-vendor
// marketplace channel
func NewMultiVendorAdapter(stocks domain.StockRepository, movements domain.MovementRepository, logger *logging.Logger) *QuantityAdapter {
	return NewQuantityAdapter(
		domain.ChannelMultiVendor,
		[]domain.EventType{
			domain.EventSale,
			domain.EventSaleReversal,
			domain.EventReservation,
			domain.EventReservationRelease,
			domain.EventReturn,
			domain.EventAdjustment,
			domain.EventReceipt,
			domain.EventTransfer,
		},
		stocks, movements, logger,
	)
}
