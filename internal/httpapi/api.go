// Package httpapi exposes the call core over REST for authenticated users:
// call history, the active call, and lifecycle mutations for clients that
// have lost their socket mid-call. Visitors have no REST surface.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/niggl1/interfoneapp/internal/calls"
	"github.com/niggl1/interfoneapp/internal/directory"
	"github.com/niggl1/interfoneapp/internal/reporting"
)

type API struct {
	log     *slog.Logger
	calls   *calls.Service
	dir     directory.Resolver
	reports *reporting.Service
}

func New(log *slog.Logger, svc *calls.Service, dir directory.Resolver, reports *reporting.Service) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{log: log, calls: svc, dir: dir, reports: reports}
}

func (a *API) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, calls.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
	case errors.Is(err, calls.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a party to this call"})
	case errors.Is(err, calls.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "call is not in a valid state for this operation"})
	case errors.Is(err, calls.ErrReceiverBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "receiver already has a call ringing"})
	case errors.Is(err, calls.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, directory.ErrUnitNotFound), errors.Is(err, directory.ErrNoResidents):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		a.log.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
