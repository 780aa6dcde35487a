package application

import (
	"context"
	"time"

	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/pkg/kafka"
)

type fakeStockRepo struct {
	items map[string]*domain.StockItem
}

func stockKey(tenantID, entityID string) string {
	return tenantID + "/" + entityID
}

func newFakeStockRepo(items ...*domain.StockItem) *fakeStockRepo {
	repo := &fakeStockRepo{items: make(map[string]*domain.StockItem)}
	for _, item := range items {
		repo.items[stockKey(item.TenantID, item.EntityID)] = item
	}
	return repo
}

func (f *fakeStockRepo) GetItem(ctx context.Context, tenantID, entityID string) (*domain.StockItem, error) {
	item, ok := f.items[stockKey(tenantID, entityID)]
	if !ok {
		return nil, domain.ErrEntityNotFound
	}
	return item, nil
}

func (f *fakeStockRepo) Save(ctx context.Context, item *domain.StockItem) error {
	f.items[stockKey(item.TenantID, item.EntityID)] = item
	return nil
}

func (f *fakeStockRepo) AdjustQuantity(ctx context.Context, tenantID, entityID string, delta int) (int, error) {
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
	item, ok := f.items[stockKey(tenantID, entityID)]
	if !ok {
		return domain.ErrEntityNotFound
	}
	item.Reserved += quantity
	item.Available -= quantity
	return nil
}

type fakeMovementRepo struct {
	records []*domain.MovementRecord
	offline map[string]bool
}

func (f *fakeMovementRepo) Append(ctx context.Context, record *domain.MovementRecord) error {
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
	return f.offline[offlineEventID], nil
}

type fakeConflictRepo struct {
	conflicts map[string]*domain.PendingConflict
	updateErr error
}

func newFakeConflictRepo() *fakeConflictRepo {
	return &fakeConflictRepo{conflicts: make(map[string]*domain.PendingConflict)}
}

func (f *fakeConflictRepo) Save(ctx context.Context, conflict *domain.PendingConflict) error {
	f.conflicts[conflict.ConflictID] = conflict
	return nil
}

func (f *fakeConflictRepo) GetByID(ctx context.Context, tenantID, conflictID string) (*domain.PendingConflict, error) {
	conflict, ok := f.conflicts[conflictID]
	if !ok || conflict.TenantID != tenantID {
		return nil, domain.ErrConflictNotFound
	}
	return conflict, nil
}

func (f *fakeConflictRepo) Update(ctx context.Context, conflict *domain.PendingConflict) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.conflicts[conflict.ConflictID] = conflict
	return nil
}

func (f *fakeConflictRepo) List(ctx context.Context, tenantID string, filter domain.ConflictFilter, limit, offset int64) ([]*domain.PendingConflict, int64, error) {
	results := make([]*domain.PendingConflict, 0)
	for _, c := range f.conflicts {
		if c.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Channel != "" && c.Event.Channel != filter.Channel {
			continue
		}
		if filter.Severity != nil && c.Conflict.Severity != *filter.Severity {
			continue
		}
		if filter.EntityID != "" && c.Event.EntityID != filter.EntityID {
			continue
		}
		results = append(results, c)
	}
	return results, int64(len(results)), nil
}

func (f *fakeConflictRepo) OldestPending(ctx context.Context, tenantID string) (*time.Time, error) {
	var oldest *time.Time
	for _, c := range f.conflicts {
		if c.TenantID != tenantID || c.Status != domain.ConflictStatusPending {
			continue
		}
		created := c.CreatedAt
		if oldest == nil || created.Before(*oldest) {
			oldest = &created
		}
	}
	return oldest, nil
}

func (f *fakeConflictRepo) CountPending(ctx context.Context, tenantID, entityID string) (int64, error) {
	var count int64
	for _, c := range f.conflicts {
		if c.TenantID == tenantID && c.Event.EntityID == entityID && c.Status == domain.ConflictStatusPending {
			count++
		}
	}
	return count, nil
}

func (f *fakeConflictRepo) pendingCount() int {
	count := 0
	for _, c := range f.conflicts {
		if c.Status == domain.ConflictStatusPending {
			count++
		}
	}
	return count
}

type fakePublisher struct {
	published []*kafka.Envelope
	topics    []string
}

func (f *fakePublisher) PublishEvent(ctx context.Context, topic string, event *kafka.Envelope) error {
	f.published = append(f.published, event)
	f.topics = append(f.topics, topic)
	return nil
}
