package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocksync-platform/sync-service/internal/application"
	"github.com/stocksync-platform/sync-service/internal/offline"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/middleware"
)

// OfflineHandler exposes the offline capture queue and replay controls
type OfflineHandler struct {
	replay *offline.ReplayEngine
	queue  offline.Queue
	logger *logging.Logger
}

// NewOfflineHandler creates a new offline handler
func NewOfflineHandler(replay *offline.ReplayEngine, queue offline.Queue, logger *logging.Logger) *OfflineHandler {
	return &OfflineHandler{replay: replay, queue: queue, logger: logger}
}

// RegisterRoutes registers the offline routes
func (h *OfflineHandler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/offline")
	{
		group.POST("/events", h.QueueEvent)
		group.GET("/events/:id", h.GetQueuedEvent)
		group.POST("/events/:id/requeue", h.RequeueEvent)
		group.POST("/replay", h.Replay)
	}
}

// QueueEvent handles POST /offline/events: capture without processing
func (h *OfflineHandler) QueueEvent(c *gin.Context) {
	var req eventRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	tenantID := requestTenant(c)
	actorID := requestActor(c)

	event := application.BuildEvent(tenantID, req.toCommand(actorID))
	queued, err := h.replay.QueueEvent(c.Request.Context(), event)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, queued)
}

// GetQueuedEvent handles GET /offline/events/:id
func (h *OfflineHandler) GetQueuedEvent(c *gin.Context) {
	queued, err := h.queue.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if queued.TenantID != requestTenant(c) {
		respondError(c, offline.ErrNotQueued)
		return
	}
	c.JSON(http.StatusOK, queued)
}

// RequeueEvent handles POST /offline/events/:id/requeue
func (h *OfflineHandler) RequeueEvent(c *gin.Context) {
	offlineID := c.Param("id")

	queued, err := h.queue.Get(c.Request.Context(), offlineID)
	if err != nil {
		respondError(c, err)
		return
	}
	if queued.TenantID != requestTenant(c) {
		respondError(c, offline.ErrNotQueued)
		return
	}

	if err := h.replay.Requeue(c.Request.Context(), offlineID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offlineId": offlineID, "status": offline.StatusPending})
}

// Replay handles POST /offline/replay: drain the queue for the tenant
func (h *OfflineHandler) Replay(c *gin.Context) {
	tenantID := requestTenant(c)

	summary, err := h.replay.ReplayPending(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("offline replay completed",
		"tenantId", tenantID,
		"attempted", summary.Attempted,
		"synced", summary.Synced,
		"conflicts", summary.Conflicts)
	c.JSON(http.StatusOK, summary)
}
