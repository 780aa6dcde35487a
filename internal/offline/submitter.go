package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stocksync-platform/sync-service/internal/application"
	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/middleware"
	"github.com/stocksync-platform/sync-service/pkg/resilience"
)

// EngineResolver hands out the tenant-bound engine for an event
type EngineResolver interface {
	Engine(tenantID string) *application.SyncEngine
}

// EngineSubmitter replays events through an in-process synchronization
// engine. Used when the offline queue and the engines live in the same
// deployment.
type EngineSubmitter struct {
	engines EngineResolver
}

// NewEngineSubmitter creates an in-process submitter
func NewEngineSubmitter(engines EngineResolver) *EngineSubmitter {
	return &EngineSubmitter{engines: engines}
}

// Submit processes the event through the engine bound to its tenant
func (s *EngineSubmitter) Submit(ctx context.Context, event *domain.StockEvent) (*domain.EventProcessingResult, error) {
	return s.engines.Engine(event.TenantID).ProcessEvent(ctx, event)
}

// HTTPSubmitter replays events against a remote event-submission
// endpoint. Calls run through a circuit breaker so a flapping link
// fails fast instead of burning the retry budget of every queued event.
type HTTPSubmitter struct {
	baseURL string
	client  *http.Client
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
}

// NewHTTPSubmitter creates a submitter that posts events to baseURL
func NewHTTPSubmitter(baseURL string, client *http.Client, logger *logging.Logger) *HTTPSubmitter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSubmitter{
		baseURL: baseURL,
		client:  client,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("offline-replay"), logger.Slog()),
		logger:  logger.WithComponent("http-submitter"),
	}
}

// Submit posts the event to the remote sync endpoint. A 2xx or 409
// response carries a processing result; anything else is a transport
// failure that the replay engine retries with backoff.
func (s *HTTPSubmitter) Submit(ctx context.Context, event *domain.StockEvent) (*domain.EventProcessingResult, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.post(ctx, event)
	})
	if err != nil {
		if resilience.IsOpenError(err) {
			s.logger.Warn("replay submit rejected by open circuit", "eventId", event.EventID)
		}
		return nil, err
	}
	return out.(*domain.EventProcessingResult), nil
}

func (s *HTTPSubmitter) post(ctx context.Context, event *domain.StockEvent) (*domain.EventProcessingResult, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/events", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderTenantID, event.TenantID)
	if event.ActorID != "" {
		req.Header.Set(middleware.HeaderActorID, event.ActorID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// 409 still carries a result document: the remote classified the
	// event and blocked it, which is an outcome, not a failure.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 || resp.StatusCode == http.StatusConflict {
		var result domain.EventProcessingResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode sync response: %w", err)
		}
		return &result, nil
	}

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, fmt.Errorf("sync endpoint returned %d: %s", resp.StatusCode, string(payload))
}
