package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stocksync-platform/sync-service/internal/application"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/middleware"
)

// EventHandler exposes stock event submission
type EventHandler struct {
	engines *application.EngineProvider
	logger  *logging.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(engines *application.EngineProvider, logger *logging.Logger) *EventHandler {
	return &EventHandler{engines: engines, logger: logger}
}

// RegisterRoutes registers the event routes
func (h *EventHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/events", h.SubmitEvent)
	r.POST("/events/batch", h.SubmitBatch)
}

type eventRequest struct {
	Channel       string            `json:"channel" binding:"required,channel_type"`
	EventType     string            `json:"eventType" binding:"required,event_type"`
	EntityID      string            `json:"entityId" binding:"required,entity_id"`
	VariantID     string            `json:"variantId" binding:"omitempty,entity_id"`
	LocationID    string            `json:"locationId" binding:"omitempty,safe_string"`
	QuantityDelta int               `json:"quantityDelta" binding:"required"`
	UnitPrice     *float64          `json:"unitPrice" binding:"omitempty,gt=0"`
	ReferenceType string            `json:"referenceType" binding:"omitempty,safe_string"`
	ReferenceID   string            `json:"referenceId" binding:"omitempty,safe_string"`
	ActorName     string            `json:"actorName" binding:"omitempty,safe_string"`
	Metadata      map[string]string `json:"metadata"`

	ClientTimestamp *time.Time `json:"clientTimestamp"`
	Offline         bool       `json:"offline"`
	OfflineEventID  string     `json:"offlineEventId" binding:"omitempty,safe_string"`
}

type batchRequest struct {
	Events []eventRequest `json:"events" binding:"required,min=1,max=500,dive"`
}

func (r eventRequest) toCommand(actorID string) application.SubmitEventCommand {
	return application.SubmitEventCommand{
		Channel:         r.Channel,
		EventType:       r.EventType,
		EntityID:        r.EntityID,
		VariantID:       r.VariantID,
		LocationID:      r.LocationID,
		QuantityDelta:   r.QuantityDelta,
		UnitPrice:       r.UnitPrice,
		ReferenceType:   r.ReferenceType,
		ReferenceID:     r.ReferenceID,
		ActorID:         actorID,
		ActorName:       r.ActorName,
		ClientTimestamp: r.ClientTimestamp,
		Offline:         r.Offline,
		OfflineEventID:  r.OfflineEventID,
		Metadata:        r.Metadata,
	}
}

// SubmitEvent handles POST /events. Blocked events answer 409 and still
// carry the full processing result so clients see what was refused.
func (h *EventHandler) SubmitEvent(c *gin.Context) {
	var req eventRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	tenantID := requestTenant(c)
	actorID := requestActor(c)

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"stock.channel":   req.Channel,
		"stock.eventType": req.EventType,
		"stock.entityId":  req.EntityID,
	})

	result, err := h.engines.Engine(tenantID).SubmitEvent(c.Request.Context(), req.toCommand(actorID))
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Conflict.Blocks() {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SubmitBatch handles POST /events/batch
func (h *EventHandler) SubmitBatch(c *gin.Context) {
	var req batchRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	tenantID := requestTenant(c)
	actorID := requestActor(c)

	cmds := make([]application.SubmitEventCommand, 0, len(req.Events))
	for _, event := range req.Events {
		cmds = append(cmds, event.toCommand(actorID))
	}

	batch, err := h.engines.Engine(tenantID).SubmitBatch(c.Request.Context(), cmds)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("batch processed",
		"tenantId", tenantID,
		"processed", batch.Processed,
		"mutated", batch.Mutated,
		"blocked", batch.Blocked,
		"failed", batch.Failed)
	c.JSON(http.StatusOK, batch)
}
