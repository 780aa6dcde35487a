package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksync-platform/sync-service/internal/adapters"
	"github.com/stocksync-platform/sync-service/internal/application"
	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/internal/offline"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/middleware"
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
		if r.TenantID != tenantID {
			continue
		}
		if filter.EntityID != "" && r.EntityID != filter.EntityID {
			continue
		}
		if filter.Channel != "" && r.Channel != filter.Channel {
			continue
		}
		results = append(results, r)
	}
	return results, int64(len(results)), nil
}

func (f *fakeMovementRepo) ExistsOffline(ctx context.Context, tenantID, offlineEventID string) (bool, error) {
	return f.offline[offlineEventID], nil
}

type fakeConflictRepo struct {
	conflicts map[string]*domain.PendingConflict
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

type apiEnv struct {
	router    *gin.Engine
	stocks    *fakeStockRepo
	movements *fakeMovementRepo
	conflicts *fakeConflictRepo
	queue     *offline.MemoryQueue
	provider  *application.EngineProvider
}

func newAPIEnv(t *testing.T, items ...*domain.StockItem) *apiEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)
	middleware.InitValidator()

	stocks := newFakeStockRepo(items...)
	movements := &fakeMovementRepo{}
	conflicts := newFakeConflictRepo()
	queue := offline.NewMemoryQueue()
	logger := logging.NewNop()

	registry := domain.NewAdapterRegistry()
	registry.Register(adapters.NewCounterSaleAdapter(stocks, movements, logger))
	registry.Register(adapters.NewSingleVendorAdapter(stocks, movements, logger))
	registry.Register(adapters.NewMultiVendorAdapter(stocks, movements, logger))

	provider := application.NewEngineProvider(
		func(tenantID string) *application.SyncEngine {
			return application.NewSyncEngine(tenantID, registry, stocks, movements, conflicts, logger,
				application.WithOfflinePendingCounter(queue))
		},
		func(engine *application.SyncEngine) *application.ConflictResolutionService {
			return application.NewConflictResolutionService(engine, conflicts, stocks, movements, nil, logger)
		},
	)

	replay := offline.NewReplayEngine(queue, offline.NewEngineSubmitter(provider),
		func(context.Context) bool { return true }, logger)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.Use(middleware.TenantAuth(nil))
	NewEventHandler(provider, logger).RegisterRoutes(v1)
	NewStockHandler(provider, logger).RegisterRoutes(v1)
	NewConflictHandler(provider, logger).RegisterRoutes(v1)
	NewOfflineHandler(replay, queue, logger).RegisterRoutes(v1)

	return &apiEnv{
		router:    router,
		stocks:    stocks,
		movements: movements,
		conflicts: conflicts,
		queue:     queue,
		provider:  provider,
	}
}

func (env *apiEnv) perform(t *testing.T, method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var body []byte
	switch p := payload.(type) {
	case nil:
	case []byte:
		body = p
	default:
		var err error
		body, err = json.Marshal(p)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderTenantID, "T-1")
	req.Header.Set(middleware.HeaderActorID, "user-1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func salePayload(entityID string, quantity int) map[string]any {
	return map[string]any{
		"channel":       string(domain.ChannelCounterSale),
		"eventType":     string(domain.EventSale),
		"entityId":      entityID,
		"quantityDelta": -quantity,
	}
}

func TestSubmitEventApplied(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 10))

	rec := env.perform(t, http.MethodPost, "/api/v1/events", salePayload("SKU-1", 3), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.EventProcessingResult
	decodeInto(t, rec, &result)
	assert.True(t, result.Success)
	assert.True(t, result.Mutated)
	assert.Equal(t, 10, result.StockBefore)
	assert.Equal(t, 7, result.StockAfter)
	assert.Nil(t, result.Conflict)
	assert.NotEmpty(t, result.MovementID)
}

func TestSubmitEventMildOversellStillApplies(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 2))

	rec := env.perform(t, http.MethodPost, "/api/v1/events", salePayload("SKU-1", 4), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.EventProcessingResult
	decodeInto(t, rec, &result)
	assert.True(t, result.Mutated)
	require.NotNil(t, result.Conflict)
	assert.Equal(t, domain.SeverityMild, result.Conflict.Severity)
	assert.Equal(t, 0, result.StockAfter)
}

func TestSubmitEventCriticalOversellBlocked(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 2))

	rec := env.perform(t, http.MethodPost, "/api/v1/events", salePayload("SKU-1", 20), nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	// The 409 body carries the full processing result
	var result domain.EventProcessingResult
	decodeInto(t, rec, &result)
	assert.False(t, result.Success)
	assert.False(t, result.Mutated)
	require.NotNil(t, result.Conflict)
	assert.True(t, result.Conflict.Blocks())

	item, err := env.stocks.GetItem(context.Background(), "T-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Available)

	count, err := env.conflicts.CountPending(context.Background(), "T-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSubmitEventValidation(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.perform(t, http.MethodPost, "/api/v1/events", map[string]any{
		"eventType":     string(domain.EventSale),
		"entityId":      "SKU-1",
		"quantityDelta": -1,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	payload := salePayload("SKU-1", 1)
	payload["channel"] = "DRONE_DELIVERY"
	rec = env.perform(t, http.MethodPost, "/api/v1/events", payload, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.perform(t, http.MethodPost, "/api/v1/events", []byte("{bad"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitEventRequiresTenant(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 10))

	rec := env.perform(t, http.MethodPost, "/api/v1/events", salePayload("SKU-1", 1),
		map[string]string{middleware.HeaderTenantID: ""})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitBatchProcessesInTimestampOrder(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 10))

	earlier := time.Now().UTC().Add(-2 * time.Hour)
	later := time.Now().UTC().Add(-1 * time.Hour)

	second := salePayload("SKU-1", 2)
	second["clientTimestamp"] = later.Format(time.RFC3339Nano)
	first := salePayload("SKU-1", 3)
	first["clientTimestamp"] = earlier.Format(time.RFC3339Nano)

	// Submitted out of order; processing reorders by client timestamp
	rec := env.perform(t, http.MethodPost, "/api/v1/events/batch", map[string]any{
		"events": []map[string]any{second, first},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var batch application.BatchResult
	decodeInto(t, rec, &batch)
	assert.Equal(t, 2, batch.Processed)
	assert.Equal(t, 2, batch.Mutated)
	assert.Equal(t, 0, batch.Blocked)

	require.Len(t, env.movements.records, 2)
	assert.Equal(t, -3, env.movements.records[0].QuantityDelta)
	assert.Equal(t, -2, env.movements.records[1].QuantityDelta)
}

func TestSubmitBatchRejectsEmpty(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.perform(t, http.MethodPost, "/api/v1/events/batch", map[string]any{
		"events": []map[string]any{},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnifiedView(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 10))

	rec := env.perform(t, http.MethodGet, "/api/v1/stock/SKU-1/view", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view application.UnifiedStockView
	decodeInto(t, rec, &view)
	assert.Equal(t, "SKU-1", view.EntityID)
	assert.Equal(t, "T-1", view.TenantID)
	assert.Equal(t, 10, view.Available)
	assert.NotEmpty(t, view.Channels)
}

func TestGetUnifiedViewUnknownEntity(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.perform(t, http.MethodGet, "/api/v1/stock/SKU-404/view", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMovements(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 10))

	rec := env.perform(t, http.MethodPost, "/api/v1/events", salePayload("SKU-1", 3), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.perform(t, http.MethodGet, "/api/v1/movements/SKU-1?page=1&pageSize=10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Data       []*domain.MovementRecord `json:"data"`
		TotalItems int64                    `json:"totalItems"`
	}
	decodeInto(t, rec, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.TotalItems)
	assert.Equal(t, domain.ReasonSale, page.Data[0].Reason)
}

func TestListMovementsRejectsBadTimeRange(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.perform(t, http.MethodGet, "/api/v1/movements/SKU-1?from=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func blockEvent(t *testing.T, env *apiEnv, entityID string) string {
	t.Helper()

	rec := env.perform(t, http.MethodPost, "/api/v1/events", salePayload(entityID, 50), nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	for id := range env.conflicts.conflicts {
		return id
	}
	t.Fatal("no pending conflict recorded")
	return ""
}

func TestListConflicts(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 2))
	blockEvent(t, env, "SKU-1")

	rec := env.perform(t, http.MethodGet, "/api/v1/conflicts?status=PENDING", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Conflicts struct {
			Data       []*domain.PendingConflict `json:"data"`
			TotalItems int64                     `json:"totalItems"`
		} `json:"conflicts"`
		OldestPendingAt *time.Time `json:"oldestPendingAt"`
	}
	decodeInto(t, rec, &response)
	require.Len(t, response.Conflicts.Data, 1)
	assert.Equal(t, domain.ConflictStatusPending, response.Conflicts.Data[0].Status)
	assert.NotNil(t, response.OldestPendingAt)
}

func TestGetConflictNotFound(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.perform(t, http.MethodGet, "/api/v1/conflicts/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveConflictReject(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 2))
	conflictID := blockEvent(t, env, "SKU-1")

	rec := env.perform(t, http.MethodPost, "/api/v1/conflicts/"+conflictID+"/resolve", map[string]any{
		"action":  string(domain.ResolutionReject),
		"comment": "cannot fulfill",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome application.ResolutionOutcome
	decodeInto(t, rec, &outcome)
	assert.Equal(t, conflictID, outcome.ConflictID)
	assert.Equal(t, domain.ResolutionReject, outcome.Action)
	assert.Equal(t, "user-1", outcome.ResolvedBy)

	item, err := env.stocks.GetItem(context.Background(), "T-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Available)
}

func TestResolveConflictIsTerminal(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 2))
	conflictID := blockEvent(t, env, "SKU-1")

	payload := map[string]any{"action": string(domain.ResolutionReject)}
	rec := env.perform(t, http.MethodPost, "/api/v1/conflicts/"+conflictID+"/resolve", payload, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.perform(t, http.MethodPost, "/api/v1/conflicts/"+conflictID+"/resolve", payload, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResolveConflictPartial(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 2))
	conflictID := blockEvent(t, env, "SKU-1")

	rec := env.perform(t, http.MethodPost, "/api/v1/conflicts/"+conflictID+"/resolve", map[string]any{
		"action":           string(domain.ResolutionPartial),
		"adjustedQuantity": 2,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome application.ResolutionOutcome
	decodeInto(t, rec, &outcome)
	require.NotNil(t, outcome.Result)
	assert.True(t, outcome.Result.Mutated)

	item, err := env.stocks.GetItem(context.Background(), "T-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 0, item.Available)
}

func TestResolveConflictRejectsBadAction(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.perform(t, http.MethodPost, "/api/v1/conflicts/c-1/resolve", map[string]any{
		"action": "ESCALATE",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOfflineQueueAndReplay(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 10))

	rec := env.perform(t, http.MethodPost, "/api/v1/offline/events", salePayload("SKU-1", 3), nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var queued offline.QueuedEvent
	decodeInto(t, rec, &queued)
	require.NotEmpty(t, queued.OfflineID)
	assert.Equal(t, offline.StatusPending, queued.Status)

	// Nothing applied at capture time
	item, err := env.stocks.GetItem(context.Background(), "T-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 10, item.Available)

	rec = env.perform(t, http.MethodGet, "/api/v1/offline/events/"+queued.OfflineID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.perform(t, http.MethodPost, "/api/v1/offline/replay", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary offline.ReplaySummary
	decodeInto(t, rec, &summary)
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Synced)

	item, err = env.stocks.GetItem(context.Background(), "T-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 7, item.Available)

	synced, err := env.queue.Get(context.Background(), queued.OfflineID)
	require.NoError(t, err)
	assert.Equal(t, offline.StatusSynced, synced.Status)
}

func TestOfflineQueueIsTenantScoped(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 10))

	rec := env.perform(t, http.MethodPost, "/api/v1/offline/events", salePayload("SKU-1", 1), nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var queued offline.QueuedEvent
	decodeInto(t, rec, &queued)

	rec = env.perform(t, http.MethodGet, "/api/v1/offline/events/"+queued.OfflineID, nil,
		map[string]string{middleware.HeaderTenantID: "T-2"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOfflineRequeueRequiresFailedState(t *testing.T) {
	env := newAPIEnv(t, domain.NewStockItem("T-1", "SKU-1", 10))

	rec := env.perform(t, http.MethodPost, "/api/v1/offline/events", salePayload("SKU-1", 1), nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var queued offline.QueuedEvent
	decodeInto(t, rec, &queued)

	rec = env.perform(t, http.MethodPost, "/api/v1/offline/events/"+queued.OfflineID+"/requeue", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
