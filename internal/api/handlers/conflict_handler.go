package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocksync-platform/sync-service/internal/application"
	"github.com/stocksync-platform/sync-service/pkg/api"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/middleware"
)

// ConflictHandler exposes the pending-conflict workflow
type ConflictHandler struct {
	engines *application.EngineProvider
	logger  *logging.Logger
}

// NewConflictHandler creates a new conflict handler
func NewConflictHandler(engines *application.EngineProvider, logger *logging.Logger) *ConflictHandler {
	return &ConflictHandler{engines: engines, logger: logger}
}

// RegisterRoutes registers the conflict routes
func (h *ConflictHandler) RegisterRoutes(r *gin.RouterGroup) {
	conflicts := r.Group("/conflicts")
	{
		conflicts.GET("", h.ListConflicts)
		conflicts.GET("/:id", h.GetConflict)
		conflicts.POST("/:id/resolve", h.ResolveConflict)
	}
}

type resolveRequest struct {
	Action           string `json:"action" binding:"required,resolution_action"`
	AdjustedQuantity int    `json:"adjustedQuantity" binding:"omitempty,gt=0"`
	ActualQuantity   int    `json:"actualQuantity" binding:"omitempty,gte=0"`
	Comment          string `json:"comment" binding:"omitempty,safe_string"`
}

// ListConflicts handles GET /conflicts
func (h *ConflictHandler) ListConflicts(c *gin.Context) {
	tenantID := requestTenant(c)
	page := api.ParsePagination(c)

	query := application.ListConflictsQuery{
		Channel:  c.Query("channel"),
		Severity: c.Query("severity"),
		Status:   c.Query("status"),
		EntityID: c.Query("entityId"),
		Limit:    page.GetLimit(),
		Offset:   page.GetOffset(),
	}

	list, err := h.engines.Resolver(tenantID).ListConflicts(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	response := api.NewPageResponse(list.Conflicts, page.Page, page.PageSize, list.Total)
	c.JSON(http.StatusOK, gin.H{
		"conflicts":       response,
		"oldestPendingAt": list.OldestPendingAt,
	})
}

// GetConflict handles GET /conflicts/:id
func (h *ConflictHandler) GetConflict(c *gin.Context) {
	tenantID := requestTenant(c)

	conflict, err := h.engines.Resolver(tenantID).GetConflict(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conflict)
}

// ResolveConflict handles POST /conflicts/:id/resolve
func (h *ConflictHandler) ResolveConflict(c *gin.Context) {
	var req resolveRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	tenantID := requestTenant(c)
	conflictID := c.Param("id")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"conflict.id":     conflictID,
		"conflict.action": req.Action,
	})

	cmd := application.ResolveConflictCommand{
		ConflictID:       conflictID,
		Action:           req.Action,
		AdjustedQuantity: req.AdjustedQuantity,
		ActualQuantity:   req.ActualQuantity,
		ResolvedBy:       requestActor(c),
		Comment:          req.Comment,
	}

	outcome, err := h.engines.Resolver(tenantID).Resolve(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("conflict resolved",
		"tenantId", tenantID,
		"conflictId", conflictID,
		"action", req.Action)
	c.JSON(http.StatusOK, outcome)
}
