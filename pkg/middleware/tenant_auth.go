package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocksync-platform/sync-service/pkg/tenant"
)

// Tenant header names
const (
	HeaderTenantID   = "X-Tenant-ID"
	HeaderLocationID = "X-Location-ID"
	HeaderActorID    = "X-Actor-ID"
)

// Gin context keys for tenant fields
const (
	ContextKeyTenantID = "tenantId"
	ContextKeyActorID  = "actorId"
)

// TenantAuthConfig holds configuration for tenant scoping middleware
type TenantAuthConfig struct {
	// Required when true, requests without a tenant header are rejected
	Required bool

	// DefaultTenantID is used when no tenant header is provided and Required is false
	DefaultTenantID string
}

// DefaultTenantAuthConfig returns a configuration that requires a tenant
func DefaultTenantAuthConfig() *TenantAuthConfig {
	return &TenantAuthConfig{Required: true}
}

// TenantAuth extracts the tenant scope from headers and attaches it to the
// request context. The engine performs its own bound-tenant check on every
// event; this middleware only establishes the caller's claimed scope.
func TenantAuth(config *TenantAuthConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultTenantAuthConfig()
	}

	return func(c *gin.Context) {
		tenantID := c.GetHeader(HeaderTenantID)
		locationID := c.GetHeader(HeaderLocationID)
		actorID := c.GetHeader(HeaderActorID)

		if tenantID == "" && !config.Required {
			tenantID = config.DefaultTenantID
		}

		if config.Required && tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_TENANT_CONTEXT",
				"message": "X-Tenant-ID header is required",
			})
			return
		}

		tc := &tenant.Context{
			TenantID:   tenantID,
			LocationID: locationID,
			ActorID:    actorID,
		}

		ctx := tenant.ToContext(c.Request.Context(), tc)
		c.Request = c.Request.WithContext(ctx)

		c.Set("tenantContext", tc)
		c.Set(ContextKeyTenantID, tenantID)
		c.Set(ContextKeyActorID, actorID)

		c.Next()
	}
}

// GetTenantContext retrieves the tenant context from Gin context
func GetTenantContext(c *gin.Context) *tenant.Context {
	if val, exists := c.Get("tenantContext"); exists {
		if tc, ok := val.(*tenant.Context); ok {
			return tc
		}
	}
	return tenant.FromContextOptional(c.Request.Context())
}
