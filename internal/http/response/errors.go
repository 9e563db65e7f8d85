package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/platform/apierr"
	"github.com/yungbote/reqmatch-backend/internal/services"
)

// FromError maps service and engine errors onto HTTP statuses.
func FromError(err error) *apierr.Error {
	var (
		ae  *apierr.Error
		val *matching.ValidationError
		nf  *matching.NotFoundError
		up  *matching.UpstreamError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, services.ErrUnauthenticated):
		return apierr.New(http.StatusUnauthorized, "unauthorized", err)
	case errors.As(err, &val):
		return apierr.BadRequest("validation_error", err)
	case errors.As(err, &nf):
		return apierr.NotFound(nf.Kind+"_not_found", err)
	case errors.Is(err, matching.ErrConcurrentSync):
		return apierr.Conflict("concurrent_sync", err)
	case errors.Is(err, matching.ErrLockHeld):
		return apierr.Conflict("sync_in_progress", err)
	case errors.As(err, &up):
		return apierr.New(http.StatusBadGateway, "upstream_error", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apierr.New(http.StatusRequestTimeout, "request_cancelled", err)
	default:
		return apierr.From(err)
	}
}

// RespondErr writes err with the status chosen by FromError.
func RespondErr(c *gin.Context, err error) {
	ae := FromError(err)
	if ae == nil {
		ae = apierr.From(errors.New("unknown error"))
	}
	RespondError(c, ae.Status, ae.Code, ae.Err)
}
