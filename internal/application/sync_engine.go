package application

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/pkg/kafka"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/metrics"
)

// DefaultConflictTTL is how long a pending conflict stays resolvable
// before lazy expiry marks it terminal
const DefaultConflictTTL = 72 * time.Hour

// EventPublisher publishes domain events to the message bus
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *kafka.Envelope) error
}

// OfflinePendingCounter reports how many offline-captured events are
// still waiting to replay for an entity
type OfflinePendingCounter interface {
	CountPending(ctx context.Context, tenantID, entityID string) (int64, error)
}

// SyncEngine orchestrates event processing for exactly one tenant. It
// owns the adapter registry and is the sole writer of shared quantity
// state; construction is explicit, never a hidden singleton.
type SyncEngine struct {
	tenantID string
	registry *domain.AdapterRegistry

	stocks    domain.StockRepository
	movements domain.MovementRepository
	conflicts domain.PendingConflictRepository

	offlinePending OfflinePendingCounter
	publisher      EventPublisher
	metrics        *metrics.Metrics
	logger         *logging.Logger

	locks       *entityLocks
	conflictTTL time.Duration
}

// SyncEngineOption configures optional engine collaborators
type SyncEngineOption func(*SyncEngine)

// WithPublisher wires synchronous event publication to the bus
func WithPublisher(publisher EventPublisher) SyncEngineOption {
	return func(e *SyncEngine) { e.publisher = publisher }
}

// WithMetrics wires business metric recording
func WithMetrics(m *metrics.Metrics) SyncEngineOption {
	return func(e *SyncEngine) { e.metrics = m }
}

// WithOfflinePendingCounter wires the offline-queue depth into the
// unified stock view
func WithOfflinePendingCounter(counter OfflinePendingCounter) SyncEngineOption {
	return func(e *SyncEngine) { e.offlinePending = counter }
}

// WithConflictTTL overrides the pending-conflict resolution window
func WithConflictTTL(ttl time.Duration) SyncEngineOption {
	return func(e *SyncEngine) { e.conflictTTL = ttl }
}

// NewSyncEngine creates an engine bound to one tenant
func NewSyncEngine(
	tenantID string,
	registry *domain.AdapterRegistry,
	stocks domain.StockRepository,
	movements domain.MovementRepository,
	conflicts domain.PendingConflictRepository,
	logger *logging.Logger,
	opts ...SyncEngineOption,
) *SyncEngine {
	engine := &SyncEngine{
		tenantID:    tenantID,
		registry:    registry,
		stocks:      stocks,
		movements:   movements,
		conflicts:   conflicts,
		logger:      logger.WithTenant(tenantID),
		locks:       newEntityLocks(),
		conflictTTL: DefaultConflictTTL,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// TenantID returns the tenant this engine is bound to
func (e *SyncEngine) TenantID() string {
	return e.tenantID
}

// SubmitEvent builds the immutable event for a command and processes it
func (e *SyncEngine) SubmitEvent(ctx context.Context, cmd SubmitEventCommand) (*domain.EventProcessingResult, error) {
	return e.ProcessEvent(ctx, eventFromCommand(e.tenantID, cmd))
}

// ProcessEvent classifies and applies one event. Events scoped to a
// different tenant are rejected outright, never silently reassigned.
func (e *SyncEngine) ProcessEvent(ctx context.Context, event *domain.StockEvent) (*domain.EventProcessingResult, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if event.TenantID != e.tenantID {
		e.logger.WithFields(map[string]interface{}{
			"eventId":     event.EventID,
			"eventTenant": event.TenantID,
		}).Warn("rejecting event for foreign tenant")
		return nil, domain.ErrTenantMismatch
	}

	adapter, err := e.registry.Get(event.Channel)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(event.EntityID)
	defer unlock()

	result, err := adapter.ProcessEvent(ctx, event)
	if err != nil {
		e.recordOutcome(event, "error")
		return nil, err
	}

	if result.Conflict.HasConflict() {
		e.onConflict(ctx, event, result)
	}
	if result.Mutated {
		e.publishMovement(ctx, event, result)
	}
	e.recordOutcome(event, outcomeOf(result))

	return result, nil
}

// SubmitBatch builds events for a batch of commands and processes them
func (e *SyncEngine) SubmitBatch(ctx context.Context, cmds []SubmitEventCommand) (*BatchResult, error) {
	events := make([]*domain.StockEvent, 0, len(cmds))
	for _, cmd := range cmds {
		events = append(events, eventFromCommand(e.tenantID, cmd))
	}
	return e.ProcessBatch(ctx, events)
}

// ProcessBatch applies events sequentially in ascending client-timestamp
// order (server timestamp when absent). The sort is stable so ties keep
// their insertion order and replays stay deterministic. Each event is
// independent: a failure never aborts the rest of the batch.
func (e *SyncEngine) ProcessBatch(ctx context.Context, events []*domain.StockEvent) (*BatchResult, error) {
	ordered := make([]*domain.StockEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EffectiveTimestamp().Before(ordered[j].EffectiveTimestamp())
	})

	batch := &BatchResult{
		Results: make([]*domain.EventProcessingResult, 0, len(ordered)),
	}
	for _, event := range ordered {
		result, err := e.ProcessEvent(ctx, event)
		if err != nil {
			result = &domain.EventProcessingResult{
				EventID: event.EventID,
				Success: false,
				Error:   err.Error(),
			}
			batch.Failed++
		} else if result.Mutated {
			batch.Mutated++
		} else if result.Conflict.Blocks() {
			batch.Blocked++
		}
		batch.Results = append(batch.Results, result)
		batch.Processed++
	}

	if e.metrics != nil {
		e.metrics.ObserveBatchSize(len(ordered))
	}
	return batch, nil
}

// GetUnifiedStockView aggregates quantity state and per-channel
// availability for one entity. Read-only projection.
func (e *SyncEngine) GetUnifiedStockView(ctx context.Context, entityID string) (*UnifiedStockView, error) {
	item, err := e.stocks.GetItem(ctx, e.tenantID, entityID)
	if err != nil {
		return nil, err
	}

	view := &UnifiedStockView{
		EntityID:     entityID,
		TenantID:     e.tenantID,
		OnHand:       item.OnHand,
		Reserved:     item.Reserved,
		Available:    item.Available,
		EntityStatus: item.EntityStatus,
	}

	for _, channel := range []domain.ChannelType{domain.ChannelCounterSale, domain.ChannelSingleVendor, domain.ChannelMultiVendor} {
		if _, err := e.registry.Get(channel); err != nil {
			continue
		}
		view.Channels = append(view.Channels, item.SnapshotFor(channel))
	}

	pending, err := e.conflicts.CountPending(ctx, e.tenantID, entityID)
	if err != nil {
		return nil, err
	}
	view.PendingConflicts = pending

	if e.offlinePending != nil {
		offline, err := e.offlinePending.CountPending(ctx, e.tenantID, entityID)
		if err != nil {
			return nil, err
		}
		view.PendingOfflineEvents = offline
	}

	return view, nil
}

// ListMovements pages through the movement ledger
func (e *SyncEngine) ListMovements(ctx context.Context, query ListMovementsQuery) (*MovementList, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	records, total, err := e.movements.List(ctx, e.tenantID, domain.MovementFilter{
		EntityID: query.EntityID,
		Channel:  domain.ChannelType(query.Channel),
		From:     query.From,
		To:       query.To,
	}, limit, query.Offset)
	if err != nil {
		return nil, err
	}
	return &MovementList{Movements: records, Total: total}, nil
}

// onConflict persists blocked or offline-flagged conflicts for human
// resolution and publishes a conflict event
func (e *SyncEngine) onConflict(ctx context.Context, event *domain.StockEvent, result *domain.EventProcessingResult) {
	conflict := result.Conflict

	if e.metrics != nil {
		e.metrics.RecordConflictDetected(string(conflict.Type), conflict.Severity.String())
	}

	if conflict.Blocks() || event.Offline {
		pending := domain.NewPendingConflict(uuid.NewString(), event, conflict, e.conflictTTL)
		if err := e.conflicts.Save(ctx, pending); err != nil {
			e.logger.WithError(err).Error("failed to persist pending conflict",
				"eventId", event.EventID, "conflictType", string(conflict.Type))
		}
	}

	e.publish(ctx, kafka.Topics.ConflictEvents, "stocksync.conflict.detected", event, conflict)
}

func (e *SyncEngine) publishMovement(ctx context.Context, event *domain.StockEvent, result *domain.EventProcessingResult) {
	e.publish(ctx, kafka.Topics.MovementEvents, "stocksync.movement.applied", event, result)
}

func (e *SyncEngine) publish(ctx context.Context, topic, eventType string, event *domain.StockEvent, payload interface{}) {
	if e.publisher == nil {
		return
	}

	envelope, err := kafka.NewEnvelope(uuid.NewString(), eventType, "sync-service", event.EntityID, payload)
	if err != nil {
		e.logger.WithError(err).Error("failed to build event envelope", "eventId", event.EventID)
		return
	}
	envelope.TenantID = event.TenantID
	envelope.Channel = string(event.Channel)

	// Published synchronously: there is no outbox or background
	// relay in this system
	if err := e.publisher.PublishEvent(ctx, topic, envelope); err != nil {
		e.logger.WithError(err).Error("failed to publish event", "topic", topic, "eventId", event.EventID)
	}
}

func (e *SyncEngine) recordOutcome(event *domain.StockEvent, outcome string) {
	if e.metrics != nil {
		e.metrics.RecordStockEvent(string(event.Channel), string(event.EventType), outcome)
	}
}

func outcomeOf(result *domain.EventProcessingResult) string {
	switch {
	case result.Duplicate:
		return "duplicate"
	case result.Mutated:
		return "applied"
	default:
		return "blocked"
	}
}
