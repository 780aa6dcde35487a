package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/pkg/errors"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/metrics"
)

// ConflictResolutionService applies human resolution decisions to
// pending conflicts. Every action is terminal: a conflict resolves
// exactly once.
type ConflictResolutionService struct {
	engine    *SyncEngine
	conflicts domain.PendingConflictRepository
	stocks    domain.StockRepository
	movements domain.MovementRepository
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewConflictResolutionService creates the resolution workflow service
func NewConflictResolutionService(
	engine *SyncEngine,
	conflicts domain.PendingConflictRepository,
	stocks domain.StockRepository,
	movements domain.MovementRepository,
	m *metrics.Metrics,
	logger *logging.Logger,
) *ConflictResolutionService {
	return &ConflictResolutionService{
		engine:    engine,
		conflicts: conflicts,
		stocks:    stocks,
		movements: movements,
		metrics:   m,
		logger:    logger.WithComponent("conflict-resolution"),
	}
}

// ListConflicts returns pending conflicts matching the query, expiring
// lapsed ones lazily as they are read. There is no background sweeper.
func (s *ConflictResolutionService) ListConflicts(ctx context.Context, query ListConflictsQuery) (*ConflictList, error) {
	filter := domain.ConflictFilter{
		Channel:  domain.ChannelType(query.Channel),
		EntityID: query.EntityID,
		Status:   domain.ConflictStatus(query.Status),
	}
	if query.Severity != "" {
		severity, ok := domain.ParseSeverity(query.Severity)
		if !ok {
			return nil, errors.ErrValidation(fmt.Sprintf("unknown severity %q", query.Severity))
		}
		filter.Severity = &severity
	}
	if filter.Status == "" {
		filter.Status = domain.ConflictStatusPending
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	conflicts, total, err := s.conflicts.List(ctx, s.engine.TenantID(), filter, limit, query.Offset)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	live := conflicts[:0]
	for _, conflict := range conflicts {
		if conflict.IsExpired(now) {
			s.expire(ctx, conflict, now)
			total--
			continue
		}
		live = append(live, conflict)
	}

	oldest, err := s.conflicts.OldestPending(ctx, s.engine.TenantID())
	if err != nil {
		return nil, err
	}

	return &ConflictList{
		Conflicts:       live,
		Total:           total,
		OldestPendingAt: oldest,
	}, nil
}

// GetConflict loads one pending conflict, expiring it lazily if lapsed
func (s *ConflictResolutionService) GetConflict(ctx context.Context, conflictID string) (*domain.PendingConflict, error) {
	conflict, err := s.conflicts.GetByID(ctx, s.engine.TenantID(), conflictID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if conflict.IsExpired(now) {
		s.expire(ctx, conflict, now)
	}
	return conflict, nil
}

// Resolve applies one resolution action. The pending record transitions
// to RESOLVED before any mutation runs, so a concurrent resolver loses
// with ErrConflictResolved instead of double-applying.
func (s *ConflictResolutionService) Resolve(ctx context.Context, cmd ResolveConflictCommand) (*ResolutionOutcome, error) {
	action := domain.ResolutionAction(cmd.Action)
	if !action.IsValid() {
		return nil, errors.ErrValidation(fmt.Sprintf("unknown resolution action %q", cmd.Action))
	}
	if action == domain.ResolutionPartial && cmd.AdjustedQuantity <= 0 {
		return nil, errors.ErrValidation("partial resolution requires a positive adjusted quantity")
	}
	if action == domain.ResolutionAdjust && cmd.ActualQuantity < 0 {
		return nil, errors.ErrValidation("adjust resolution requires a non-negative actual quantity")
	}

	conflict, err := s.conflicts.GetByID(ctx, s.engine.TenantID(), cmd.ConflictID)
	if err != nil {
		return nil, err
	}
	// A non-blocking conflict means the originating event already
	// mutated stock; resubmitting a reduced copy would stack a second
	// mutation on top of it. Those records reconcile through ADJUST.
	if action == domain.ResolutionPartial && !conflict.Conflict.Blocks() {
		return nil, errors.ErrValidation("originating event was already applied; use ADJUST with the corrected count")
	}

	now := time.Now().UTC()
	if err := conflict.Resolve(action, cmd.ResolvedBy, cmd.Comment, now); err != nil {
		if err == domain.ErrConflictExpired {
			_ = s.conflicts.Update(ctx, conflict)
		}
		return nil, err
	}
	// Conditional on status still being PENDING in the store
	if err := s.conflicts.Update(ctx, conflict); err != nil {
		return nil, err
	}

	outcome := &ResolutionOutcome{
		ConflictID: conflict.ConflictID,
		Action:     action,
		ResolvedBy: cmd.ResolvedBy,
		ResolvedAt: now,
	}

	switch action {
	case domain.ResolutionReject:
		// Discard the originating event; nothing mutates

	case domain.ResolutionAccept:
		result, err := s.resubmit(ctx, &conflict.Event)
		if err != nil {
			return nil, err
		}
		outcome.Result = result

	case domain.ResolutionPartial:
		adjusted := conflict.Event.AdjustedCopy(cmd.AdjustedQuantity, cmd.ResolvedBy)
		result, err := s.resubmit(ctx, adjusted)
		if err != nil {
			return nil, err
		}
		outcome.Result = result

	case domain.ResolutionAdjust:
		result, err := s.adjustToActual(ctx, conflict, cmd)
		if err != nil {
			return nil, err
		}
		outcome.Result = result
	}

	if s.metrics != nil {
		s.metrics.RecordConflictResolved(string(action))
	}
	s.logger.Info("conflict resolved",
		"conflictId", conflict.ConflictID,
		"action", string(action),
		"resolvedBy", cmd.ResolvedBy)

	return outcome, nil
}

// resubmit sends the event back through the engine as an
// offline-originated submission, keeping the offline id so the ledger
// dedupe still holds
func (s *ConflictResolutionService) resubmit(ctx context.Context, event *domain.StockEvent) (*domain.EventProcessingResult, error) {
	resubmission := *event
	resubmission.Offline = true
	if resubmission.OfflineEventID == "" {
		resubmission.OfflineEventID = "resolution:" + event.EventID
	}
	return s.engine.ProcessEvent(ctx, &resubmission)
}

// adjustToActual sets the counters to the operator-declared true count.
// This is the only path that mutates quantity without classification:
// it records a ground-truth recount, not a channel sale.
func (s *ConflictResolutionService) adjustToActual(ctx context.Context, conflict *domain.PendingConflict, cmd ResolveConflictCommand) (*domain.EventProcessingResult, error) {
	entityID := conflict.Event.EntityID
	tenantID := s.engine.TenantID()

	before, err := s.stocks.SetQuantity(ctx, tenantID, entityID, cmd.ActualQuantity)
	if err != nil {
		return nil, err
	}

	record := &domain.MovementRecord{
		MovementID:     uuid.NewString(),
		TenantID:       tenantID,
		EntityID:       entityID,
		Channel:        conflict.Event.Channel,
		QuantityDelta:  cmd.ActualQuantity - before,
		QuantityBefore: before,
		Reason:         domain.ReasonAuditCorrection,
		ReferenceType:  "conflict_resolution",
		ReferenceID:    conflict.ConflictID,
		EventID:        conflict.Event.EventID,
		ActorID:        cmd.ResolvedBy,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.movements.Append(ctx, record); err != nil {
		return nil, err
	}

	return &domain.EventProcessingResult{
		EventID:     conflict.Event.EventID,
		Success:     true,
		Mutated:     true,
		StockBefore: before,
		StockAfter:  cmd.ActualQuantity,
		MovementID:  record.MovementID,
	}, nil
}

func (s *ConflictResolutionService) expire(ctx context.Context, conflict *domain.PendingConflict, now time.Time) {
	if err := conflict.MarkExpired(now); err != nil {
		return
	}
	if err := s.conflicts.Update(ctx, conflict); err != nil {
		s.logger.WithError(err).Warn("failed to persist conflict expiry", "conflictId", conflict.ConflictID)
	}
}
