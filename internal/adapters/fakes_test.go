package adapters

import (
	"context"

	"github.com/stocksync-platform/sync-service/internal/domain"
)

type fakeStockRepo struct {
	items      map[string]*domain.StockItem
	getErr     error
	adjustErr  error
	setErr     error
	reserveErr error
}

func stockKey(tenantID, entityID string) string {
	return tenantID + "/" + entityID
}

func (f *fakeStockRepo) GetItem(ctx context.Context, tenantID, entityID string) (*domain.StockItem, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	item, ok := f.items[stockKey(tenantID, entityID)]
	if !ok {
		return nil, domain.ErrEntityNotFound
	}
	return item, nil
}

func (f *fakeStockRepo) Save(ctx context.Context, item *domain.StockItem) error {
	if f.items == nil {
		f.items = make(map[string]*domain.StockItem)
	}
	f.items[stockKey(item.TenantID, item.EntityID)] = item
	return nil
}

func (f *fakeStockRepo) AdjustQuantity(ctx context.Context, tenantID, entityID string, delta int) (int, error) {
	if f.adjustErr != nil {
		return 0, f.adjustErr
	}
	item, ok := f.items[stockKey(tenantID, entityID)]
	if !ok {
		return 0, domain.ErrEntityNotFound
	}
	before := item.Available
	item.Available += delta
	item.OnHand += delta
	if item.Available < 0 {
		item.Available = 0
	}
	if item.OnHand < 0 {
		item.OnHand = 0
	}
	return before, nil
}

func (f *fakeStockRepo) SetQuantity(ctx context.Context, tenantID, entityID string, quantity int) (int, error) {
	if f.setErr != nil {
		return 0, f.setErr
	}
	item, ok := f.items[stockKey(tenantID, entityID)]
	if !ok {
		return 0, domain.ErrEntityNotFound
	}
	before := item.Available
	item.Available = quantity
	item.OnHand = quantity
	return before, nil
}

func (f *fakeStockRepo) AdjustReservation(ctx context.Context, tenantID, entityID string, quantity int) error {
	if f.reserveErr != nil {
		return f.reserveErr
	}
	item, ok := f.items[stockKey(tenantID, entityID)]
	if !ok {
		return domain.ErrEntityNotFound
	}
	item.Reserved += quantity
	item.Available -= quantity
	if item.Reserved < 0 {
		item.Reserved = 0
	}
	if item.Available < 0 {
		item.Available = 0
	}
	return nil
}

type fakeMovementRepo struct {
	records   []*domain.MovementRecord
	offline   map[string]bool
	appendErr error

	// staleExists makes ExistsOffline report a stale view, so Append
	// is the first to see the duplicate
	staleExists bool
}

func (f *fakeMovementRepo) Append(ctx context.Context, record *domain.MovementRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	if record.OfflineEventID != "" {
		if f.offline == nil {
			f.offline = make(map[string]bool)
		}
		if f.offline[record.OfflineEventID] {
			return domain.ErrDuplicateMovement
		}
		f.offline[record.OfflineEventID] = true
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeMovementRepo) List(ctx context.Context, tenantID string, filter domain.MovementFilter, limit, offset int64) ([]*domain.MovementRecord, int64, error) {
	results := make([]*domain.MovementRecord, 0)
	for _, r := range f.records {
		if r.TenantID == tenantID && (filter.EntityID == "" || r.EntityID == filter.EntityID) {
			results = append(results, r)
		}
	}
	return results, int64(len(results)), nil
}

func (f *fakeMovementRepo) ExistsOffline(ctx context.Context, tenantID, offlineEventID string) (bool, error) {
	if f.staleExists {
		return false, nil
	}
	return f.offline[offlineEventID], nil
}

type fakeSeatPoolRepo struct {
	pools   map[string]*domain.TripSeatPool
	getErr  error
	saveErr error
}

func (f *fakeSeatPoolRepo) Get(ctx context.Context, tenantID, tripID string) (*domain.TripSeatPool, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	pool, ok := f.pools[stockKey(tenantID, tripID)]
	if !ok {
		return nil, domain.ErrSeatPoolNotFound
	}
	return pool, nil
}

func (f *fakeSeatPoolRepo) Save(ctx context.Context, pool *domain.TripSeatPool) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.pools == nil {
		f.pools = make(map[string]*domain.TripSeatPool)
	}
	f.pools[stockKey(pool.TenantID, pool.TripID)] = pool
	return nil
}
