package domain

import "errors"

// Errors for the stock synchronization domain
var (
	ErrMissingEventID     = errors.New("event id is required")
	ErrMissingTenant      = errors.New("tenant id is required")
	ErrMissingEntityID    = errors.New("entity id is required")
	ErrInvalidChannelType = errors.New("invalid channel type")
	ErrInvalidEventType   = errors.New("invalid event type")
	ErrTenantMismatch     = errors.New("event tenant does not match engine tenant")
	ErrEntityNotFound     = errors.New("entity not found")
	ErrContextNotFound    = errors.New("stock context not found")
	ErrSeatPoolNotFound   = errors.New("seat pool not found")
	ErrConflictNotFound   = errors.New("pending conflict not found")
	ErrConflictResolved   = errors.New("conflict already resolved")
	ErrConflictExpired    = errors.New("conflict has expired")
	ErrDuplicateMovement  = errors.New("movement already recorded for offline event")
	ErrUnsupportedEvent   = errors.New("event type not supported by channel")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
)
