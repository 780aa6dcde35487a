package handlers

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/stocksync-platform/sync-service/internal/domain"
	"github.com/stocksync-platform/sync-service/internal/offline"
	"github.com/stocksync-platform/sync-service/pkg/errors"
	"github.com/stocksync-platform/sync-service/pkg/middleware"
)

// respondError maps domain errors onto API responses. AppErrors pass
// through untouched; known sentinels get precise codes; everything
// else falls back to the generic mapper.
func respondError(c *gin.Context, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	var appErr *errors.AppError
	switch {
	case stderrors.Is(err, domain.ErrEntityNotFound):
		appErr = errors.ErrNotFound("stock item").Wrap(err)
	case stderrors.Is(err, domain.ErrSeatPoolNotFound):
		appErr = errors.ErrNotFound("seat pool").Wrap(err)
	case stderrors.Is(err, domain.ErrConflictNotFound):
		appErr = errors.ErrNotFound("conflict").Wrap(err)
	case stderrors.Is(err, offline.ErrNotQueued):
		appErr = errors.ErrNotFound("queued event").Wrap(err)
	case stderrors.Is(err, domain.ErrInvalidChannelType):
		appErr = errors.ErrUnknownChannel("").Wrap(err)
	case stderrors.Is(err, domain.ErrTenantMismatch):
		appErr = errors.ErrForbidden("event tenant does not match request tenant").Wrap(err)
	case stderrors.Is(err, domain.ErrConflictResolved),
		stderrors.Is(err, domain.ErrConflictExpired):
		appErr = errors.ErrConflict(err.Error()).Wrap(err)
	case stderrors.Is(err, offline.ErrNotFailed):
		appErr = errors.ErrValidation(err.Error()).Wrap(err)
	case stderrors.Is(err, offline.ErrDisconnected):
		appErr = errors.ErrServiceUnavailable("sync endpoint").Wrap(err)
	case stderrors.Is(err, domain.ErrInvalidEventType),
		stderrors.Is(err, domain.ErrInvalidQuantity),
		stderrors.Is(err, domain.ErrUnsupportedEvent),
		stderrors.Is(err, domain.ErrMissingEventID),
		stderrors.Is(err, domain.ErrMissingTenant),
		stderrors.Is(err, domain.ErrMissingEntityID):
		appErr = errors.ErrValidation(err.Error()).Wrap(err)
	default:
		appErr = errors.MapDomainError(err)
	}

	middleware.AbortWithAppError(c, appErr)
}

func errInvalidTimeParam(name string) *errors.AppError {
	return errors.ErrValidation("query parameter " + name + " must be RFC 3339")
}

// requestTenant returns the tenant established by the auth middleware
func requestTenant(c *gin.Context) string {
	if tc := middleware.GetTenantContext(c); tc != nil {
		return tc.TenantID
	}
	return c.GetString(middleware.ContextKeyTenantID)
}

// requestActor returns the acting user or API client, when supplied
func requestActor(c *gin.Context) string {
	if tc := middleware.GetTenantContext(c); tc != nil {
		return tc.ActorID
	}
	return c.GetString(middleware.ContextKeyActorID)
}
