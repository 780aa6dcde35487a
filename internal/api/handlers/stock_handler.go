package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stocksync-platform/sync-service/internal/application"
	"github.com/stocksync-platform/sync-service/pkg/api"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/middleware"
)

// StockHandler exposes the unified stock view and the movement ledger
type StockHandler struct {
	engines *application.EngineProvider
	logger  *logging.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(engines *application.EngineProvider, logger *logging.Logger) *StockHandler {
	return &StockHandler{engines: engines, logger: logger}
}

// RegisterRoutes registers the stock routes
func (h *StockHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stock/:entityId/view", h.GetUnifiedView)
	r.GET("/movements/:entityId", h.ListMovements)
}

// GetUnifiedView handles GET /stock/:entityId/view
func (h *StockHandler) GetUnifiedView(c *gin.Context) {
	entityID := c.Param("entityId")
	tenantID := requestTenant(c)

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"stock.entityId": entityID,
	})

	view, err := h.engines.Engine(tenantID).GetUnifiedStockView(c.Request.Context(), entityID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListMovements handles GET /movements/:entityId with optional channel
// and time-range filters
func (h *StockHandler) ListMovements(c *gin.Context) {
	entityID := c.Param("entityId")
	tenantID := requestTenant(c)
	page := api.ParsePagination(c)

	query := application.ListMovementsQuery{
		EntityID: entityID,
		Channel:  c.Query("channel"),
		Limit:    page.GetLimit(),
		Offset:   page.GetOffset(),
	}

	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			respondError(c, errInvalidTimeParam("from"))
			return
		}
		query.From = &parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			respondError(c, errInvalidTimeParam("to"))
			return
		}
		query.To = &parsed
	}

	movements, err := h.engines.Engine(tenantID).ListMovements(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.NewPageResponse(movements.Movements, page.Page, page.PageSize, movements.Total))
}
