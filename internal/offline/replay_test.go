package offline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/resilience"
)

type stubSubmitter struct {
	submitted []*domain.StockEvent
	results   map[string]*domain.EventProcessingResult
	errs      map[string]error
	err       error
}

func newStubSubmitter() *stubSubmitter {
	return &stubSubmitter{
		results: make(map[string]*domain.EventProcessingResult),
		errs:    make(map[string]error),
	}
}

func (s *stubSubmitter) Submit(ctx context.Context, event *domain.StockEvent) (*domain.EventProcessingResult, error) {
	s.submitted = append(s.submitted, event)
	if err, ok := s.errs[event.EventID]; ok {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if result, ok := s.results[event.EventID]; ok {
		return result, nil
	}
	return &domain.EventProcessingResult{EventID: event.EventID, Success: true, Mutated: true}, nil
}

func alwaysOnline(ctx context.Context) bool  { return true }
func alwaysOffline(ctx context.Context) bool { return false }

func saleEvent(entityID string, delta int) *domain.StockEvent {
	return domain.NewStockEvent("T-1", domain.ChannelCounterSale, domain.EventSale, entityID, delta, "user-1")
}

func TestQueueEvent_StampsOfflineIdentity(t *testing.T) {
	queue := NewMemoryQueue()
	submitter := newStubSubmitter()
	engine := NewReplayEngine(queue, submitter, alwaysOnline, logging.NewNop())

	queued, err := engine.QueueEvent(context.Background(), saleEvent("SKU-1", -2))
	require.NoError(t, err)

	assert.NotEmpty(t, queued.OfflineID)
	assert.Equal(t, StatusPending, queued.Status)
	assert.True(t, queued.Event.Offline)
	assert.Equal(t, queued.OfflineID, queued.Event.OfflineEventID)

	stored, err := queue.Get(context.Background(), queued.OfflineID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestQueueEvent_RejectsInvalidEvent(t *testing.T) {
	queue := NewMemoryQueue()
	engine := NewReplayEngine(queue, newStubSubmitter(), alwaysOnline, logging.NewNop())

	bad := saleEvent("SKU-1", -2)
	bad.TenantID = ""

	_, err := engine.QueueEvent(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrMissingTenant)
}

func TestReplayPending_SyncsInClientTimestampOrder(t *testing.T) {
	queue := NewMemoryQueue()
	submitter := newStubSubmitter()
	engine := NewReplayEngine(queue, submitter, alwaysOnline, logging.NewNop())

	// Queued out of order: the later sale first
	late := saleEvent("SKU-1", -1)
	lateTS := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	late.ClientTimestamp = &lateTS

	early := saleEvent("SKU-1", -3)
	earlyTS := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	early.ClientTimestamp = &earlyTS

	_, err := engine.QueueEvent(context.Background(), late)
	require.NoError(t, err)
	_, err = engine.QueueEvent(context.Background(), early)
	require.NoError(t, err)

	summary, err := engine.ReplayPending(context.Background(), "T-1")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 2, summary.Synced)
	require.Len(t, submitter.submitted, 2)
	assert.Equal(t, -3, submitter.submitted[0].QuantityDelta)
	assert.Equal(t, -1, submitter.submitted[1].QuantityDelta)

	for _, queued := range queue.Snapshot() {
		assert.Equal(t, StatusSynced, queued.Status)
		assert.NotNil(t, queued.SyncedAt)
	}
}

func TestReplayPending_Disconnected(t *testing.T) {
	queue := NewMemoryQueue()
	submitter := newStubSubmitter()
	engine := NewReplayEngine(queue, submitter, alwaysOffline, logging.NewNop())

	_, err := engine.QueueEvent(context.Background(), saleEvent("SKU-1", -2))
	require.NoError(t, err)

	summary, err := engine.ReplayPending(context.Background(), "T-1")
	assert.ErrorIs(t, err, ErrDisconnected)
	assert.Equal(t, 0, summary.Attempted)
	assert.Empty(t, submitter.submitted)
}

func TestReplayPending_DisconnectMidPassHaltsRemaining(t *testing.T) {
	queue := NewMemoryQueue()
	submitter := newStubSubmitter()

	// Online for the initial probe and the first event, then gone
	probes := 0
	flaky := func(ctx context.Context) bool {
		probes++
		return probes <= 2
	}
	engine := NewReplayEngine(queue, submitter, flaky, logging.NewNop())

	for i := 0; i < 3; i++ {
		_, err := engine.QueueEvent(context.Background(), saleEvent("SKU-1", -1))
		require.NoError(t, err)
	}

	summary, err := engine.ReplayPending(context.Background(), "T-1")
	assert.ErrorIs(t, err, ErrDisconnected)
	assert.Equal(t, 1, summary.Attempted)
	assert.Len(t, submitter.submitted, 1)

	// Unattempted events stay pending for the next pass
	pending, err := queue.ListPending(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestReplayPending_TransportFailureRetriesWithBackoff(t *testing.T) {
	queue := NewMemoryQueue()
	submitter := newStubSubmitter()
	submitter.err = errors.New("connection refused")
	engine := NewReplayEngine(queue, submitter, alwaysOnline, logging.NewNop())

	queued, err := engine.QueueEvent(context.Background(), saleEvent("SKU-1", -2))
	require.NoError(t, err)

	summary, err := engine.ReplayPending(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Retried)

	stored, err := queue.Get(context.Background(), queued.OfflineID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Equal(t, "connection refused", stored.LastError)

	// Immediately replaying again skips it: the backoff cooldown has
	// not elapsed
	summary, err = engine.ReplayPending(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, submitter.submitted, 1)
}

func TestReplayPending_ExhaustedRetriesBecomeFailed(t *testing.T) {
	queue := NewMemoryQueue()
	submitter := newStubSubmitter()
	submitter.err = errors.New("gateway timeout")

	// Zero-delay schedule so every pass is immediately eligible
	schedule := &resilience.BackoffSchedule{InitialDelay: 0, MaxDelay: 0, Factor: 1}
	engine := NewReplayEngine(queue, submitter, alwaysOnline, logging.NewNop(), WithBackoff(schedule))

	queued, err := engine.QueueEvent(context.Background(), saleEvent("SKU-1", -2))
	require.NoError(t, err)

	for i := 0; i < MaxRetries; i++ {
		summary, err := engine.ReplayPending(context.Background(), "T-1")
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Retried)
	}

	summary, err := engine.ReplayPending(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	stored, err := queue.Get(context.Background(), queued.OfflineID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, MaxRetries+1, stored.RetryCount)

	// Terminally failed events leave the replay set
	summary, err = engine.ReplayPending(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Attempted)
}

func TestReplayPending_BlockedResultBecomesConflict(t *testing.T) {
	queue := NewMemoryQueue()
	submitter := newStubSubmitter()
	engine := NewReplayEngine(queue, submitter, alwaysOnline, logging.NewNop())

	event := saleEvent("SKU-1", -50)
	queued, err := engine.QueueEvent(context.Background(), event)
	require.NoError(t, err)

	submitter.results[event.EventID] = domain.BlockedResult(event, &domain.ConflictDetails{
		Type:     domain.ConflictOversellSevere,
		Severity: domain.SeverityCritical,
		Message:  "requested 50 exceeds available 3",
	}, 3)

	summary, err := engine.ReplayPending(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Conflicts)

	stored, err := queue.Get(context.Background(), queued.OfflineID)
	require.NoError(t, err)
	assert.Equal(t, StatusConflict, stored.Status)
	assert.Equal(t, "requested 50 exceeds available 3", stored.LastError)
	assert.Equal(t, 0, stored.RetryCount)
}

func TestReplayPending_DuplicateCountsAsSynced(t *testing.T) {
	queue := NewMemoryQueue()
	submitter := newStubSubmitter()
	engine := NewReplayEngine(queue, submitter, alwaysOnline, logging.NewNop())

	event := saleEvent("SKU-1", -2)
	queued, err := engine.QueueEvent(context.Background(), event)
	require.NoError(t, err)

	submitter.results[event.EventID] = &domain.EventProcessingResult{
		EventID:   event.EventID,
		Success:   true,
		Duplicate: true,
	}

	summary, err := engine.ReplayPending(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Synced)

	stored, err := queue.Get(context.Background(), queued.OfflineID)
	require.NoError(t, err)
	assert.Equal(t, StatusSynced, stored.Status)
}

func TestRequeue(t *testing.T) {
	queue := NewMemoryQueue()
	submitter := newStubSubmitter()
	engine := NewReplayEngine(queue, submitter, alwaysOnline, logging.NewNop())

	queued, err := engine.QueueEvent(context.Background(), saleEvent("SKU-1", -2))
	require.NoError(t, err)

	// Pending events cannot be re-queued
	err = engine.Requeue(context.Background(), queued.OfflineID)
	assert.ErrorIs(t, err, ErrNotFailed)

	queued.Status = StatusFailed
	queued.RetryCount = MaxRetries + 1
	queued.LastError = "gateway timeout"
	require.NoError(t, queue.Update(context.Background(), queued))

	require.NoError(t, engine.Requeue(context.Background(), queued.OfflineID))

	stored, err := queue.Get(context.Background(), queued.OfflineID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Empty(t, stored.LastError)

	err = engine.Requeue(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotQueued)
}

func TestCountPending(t *testing.T) {
	queue := NewMemoryQueue()
	engine := NewReplayEngine(queue, newStubSubmitter(), alwaysOnline, logging.NewNop())

	_, err := engine.QueueEvent(context.Background(), saleEvent("SKU-1", -1))
	require.NoError(t, err)
	_, err = engine.QueueEvent(context.Background(), saleEvent("SKU-1", -2))
	require.NoError(t, err)
	_, err = engine.QueueEvent(context.Background(), saleEvent("SKU-2", -1))
	require.NoError(t, err)

	count, err := engine.CountPending(context.Background(), "T-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
