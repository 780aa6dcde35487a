package offline

import (
	"context"
	"errors"
	"time"

	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/metrics"
	"github.com/stocksync-platform/sync-service/pkg/resilience"
)

// MaxRetries is the retry cap before a queued event becomes terminally
// FAILED and requires manual re-queue
const MaxRetries = 5

// Errors for the offline replay engine
var (
	ErrNotQueued    = errors.New("event not found in offline queue")
	ErrNotFailed    = errors.New("only failed events can be re-queued")
	ErrDisconnected = errors.New("replay skipped: still disconnected")
)

// Submitter sends one event to the synchronization engine, locally or
// over the wire. A returned error means transport failure; a returned
// result with a blocking conflict means the remote classified and
// refused the event.
type Submitter interface {
	Submit(ctx context.Context, event *domain.StockEvent) (*domain.EventProcessingResult, error)
}

// ConnectivityProbe reports whether the remote side is reachable.
// Replay is a no-op while disconnected.
type ConnectivityProbe func(ctx context.Context) bool

// ReplaySummary reports what one replay pass did
type ReplaySummary struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Conflicts int `json:"conflicts"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// ReplayEngine drains the offline queue against the synchronization
// engine. It never mutates shared state directly; every event goes
// through the Submitter. Replay runs only when explicitly invoked.
type ReplayEngine struct {
	queue     Queue
	submitter Submitter
	probe     ConnectivityProbe
	backoff   *resilience.BackoffSchedule
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// ReplayOption configures optional replay collaborators
type ReplayOption func(*ReplayEngine)

// WithBackoff overrides the retry backoff schedule
func WithBackoff(schedule *resilience.BackoffSchedule) ReplayOption {
	return func(r *ReplayEngine) { r.backoff = schedule }
}

// WithMetrics wires replay outcome metrics
func WithMetrics(m *metrics.Metrics) ReplayOption {
	return func(r *ReplayEngine) { r.metrics = m }
}

// NewReplayEngine creates a replay engine over a durable queue
func NewReplayEngine(queue Queue, submitter Submitter, probe ConnectivityProbe, logger *logging.Logger, opts ...ReplayOption) *ReplayEngine {
	engine := &ReplayEngine{
		queue:     queue,
		submitter: submitter,
		probe:     probe,
		backoff:   resilience.DefaultBackoffSchedule(),
		logger:    logger.WithComponent("offline-replay"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// QueueEvent captures an event for later replay and returns its
// idempotent offline id
func (r *ReplayEngine) QueueEvent(ctx context.Context, event *domain.StockEvent) (*QueuedEvent, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	queued := NewQueuedEvent(event)
	if err := r.queue.Enqueue(ctx, queued); err != nil {
		return nil, err
	}

	r.logger.Info("queued offline event",
		"offlineId", queued.OfflineID,
		"entityId", event.EntityID,
		"eventType", string(event.EventType))
	return queued, nil
}

// ReplayPending replays queued events in client-timestamp order. A
// disconnect detected mid-pass halts the remaining events promptly;
// they stay PENDING for the next pass.
func (r *ReplayEngine) ReplayPending(ctx context.Context, tenantID string) (*ReplaySummary, error) {
	summary := &ReplaySummary{}

	if !r.probe(ctx) {
		return summary, ErrDisconnected
	}

	pending, err := r.queue.ListPending(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, queued := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !r.probe(ctx) {
			return summary, ErrDisconnected
		}

		// Honor the backoff cooldown for events that already failed
		if queued.RetryCount > 0 && queued.LastAttemptAt != nil {
			if now.Before(r.backoff.ReadyAt(*queued.LastAttemptAt, queued.RetryCount)) {
				summary.Skipped++
				continue
			}
		}

		summary.Attempted++
		r.replayOne(ctx, queued, summary)
	}

	return summary, nil
}

func (r *ReplayEngine) replayOne(ctx context.Context, queued *QueuedEvent, summary *ReplaySummary) {
	queued.Status = StatusSyncing
	if err := r.queue.Update(ctx, queued); err != nil {
		r.logger.WithError(err).Error("failed to mark event syncing", "offlineId", queued.OfflineID)
		return
	}

	result, err := r.submitter.Submit(ctx, &queued.Event)
	attemptedAt := time.Now().UTC()
	queued.LastAttemptAt = &attemptedAt

	switch {
	case err != nil:
		// Transport failure: retry with backoff up to the cap
		queued.RetryCount++
		queued.LastError = err.Error()
		if queued.RetryCount > MaxRetries {
			queued.Status = StatusFailed
			summary.Failed++
			r.recordOutcome("failed")
			r.logger.WithError(err).Error("offline event exhausted retries",
				"offlineId", queued.OfflineID, "retries", queued.RetryCount)
		} else {
			queued.Status = StatusPending
			summary.Retried++
			r.recordOutcome("retried")
		}

	case result.Conflict.Blocks():
		// The remote classified and refused it; a human takes over
		queued.Status = StatusConflict
		queued.LastError = result.Conflict.Message
		summary.Conflicts++
		r.recordOutcome("conflict")

	default:
		// Applied, or deduped as already applied; either way it is done
		queued.Status = StatusSynced
		queued.SyncedAt = &attemptedAt
		queued.LastError = ""
		summary.Synced++
		r.recordOutcome("synced")
	}

	if err := r.queue.Update(ctx, queued); err != nil {
		r.logger.WithError(err).Error("failed to persist replay outcome", "offlineId", queued.OfflineID)
	}
}

// Requeue returns a terminally failed event to PENDING with a fresh
// retry budget. Manual intervention only.
func (r *ReplayEngine) Requeue(ctx context.Context, offlineID string) error {
	queued, err := r.queue.Get(ctx, offlineID)
	if err != nil {
		return err
	}
	if queued.Status != StatusFailed {
		return ErrNotFailed
	}

	queued.Status = StatusPending
	queued.RetryCount = 0
	queued.LastError = ""
	return r.queue.Update(ctx, queued)
}

// CountPending reports unsynced queue depth for an entity, feeding the
// unified stock view
func (r *ReplayEngine) CountPending(ctx context.Context, tenantID, entityID string) (int64, error) {
	return r.queue.CountPending(ctx, tenantID, entityID)
}

func (r *ReplayEngine) recordOutcome(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordOfflineReplay(outcome)
	}
}
