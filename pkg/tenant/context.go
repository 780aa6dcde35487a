package tenant

import (
	"context"
	"errors"
)

// Context keys for tenant information
type contextKey string

const (
	tenantIDKey   contextKey = "tenantId"
	locationIDKey contextKey = "locationId"
	actorIDKey    contextKey = "actorId"
)

// Errors for tenant context operations
var (
	ErrMissingTenantContext = errors.New("tenant context is required")
	ErrUnauthorizedAccess   = errors.New("unauthorized access to tenant resource")
	ErrMissingTenantID      = errors.New("tenantId is required")
)

// Context holds tenant identifiers used to scope every query and mutation.
// One engine instance is bound to exactly one tenant; the context carries
// the caller's claimed scope so repositories can filter defensively too.
type Context struct {
	// TenantID identifies the business (shop, vendor, transport operator)
	TenantID string `json:"tenantId"`

	// LocationID is an optional branch/warehouse/terminal within the tenant
	LocationID string `json:"locationId,omitempty"`

	// ActorID identifies the human or API client performing the action
	ActorID string `json:"actorId,omitempty"`
}

// FromContext extracts the tenant Context from a context.Context.
// Returns an error if no tenant scope is present.
func FromContext(ctx context.Context) (*Context, error) {
	tc := &Context{}

	if v, ok := ctx.Value(tenantIDKey).(string); ok {
		tc.TenantID = v
	}
	if v, ok := ctx.Value(locationIDKey).(string); ok {
		tc.LocationID = v
	}
	if v, ok := ctx.Value(actorIDKey).(string); ok {
		tc.ActorID = v
	}

	if tc.TenantID == "" {
		return nil, ErrMissingTenantContext
	}

	return tc, nil
}

// FromContextOptional extracts the tenant Context, returning an empty
// context instead of an error when no scope is present.
func FromContextOptional(ctx context.Context) *Context {
	tc, _ := FromContext(ctx)
	if tc == nil {
		return &Context{}
	}
	return tc
}

// ToContext adds tenant Context values to a context.Context.
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}
	if tc.TenantID != "" {
		ctx = context.WithValue(ctx, tenantIDKey, tc.TenantID)
	}
	if tc.LocationID != "" {
		ctx = context.WithValue(ctx, locationIDKey, tc.LocationID)
	}
	if tc.ActorID != "" {
		ctx = context.WithValue(ctx, actorIDKey, tc.ActorID)
	}
	return ctx
}

// WithTenantID returns a new context with the tenant ID set
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// WithActorID returns a new context with the actor ID set
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// GetTenantID extracts the tenant ID from context
func GetTenantID(ctx context.Context) string {
	if v, ok := ctx.Value(tenantIDKey).(string); ok {
		return v
	}
	return ""
}

// GetActorID extracts the actor ID from context
func GetActorID(ctx context.Context) string {
	if v, ok := ctx.Value(actorIDKey).(string); ok {
		return v
	}
	return ""
}

// Validate checks that the required tenant scope is present.
func (tc *Context) Validate() error {
	if tc.TenantID == "" {
		return ErrMissingTenantID
	}
	return nil
}

// ValidateOwnership verifies that a resource belongs to this tenant.
// Used after a fetch to prevent cross-tenant data access.
func (tc *Context) ValidateOwnership(resourceTenantID string) error {
	if tc.TenantID != "" && resourceTenantID != "" && tc.TenantID != resourceTenantID {
		return ErrUnauthorizedAccess
	}
	return nil
}
