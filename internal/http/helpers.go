// README: HTTP helper utilities for JSON and error mapping.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rumo/internal/logger"
	"rumo/internal/modules/costcenter"
	"rumo/internal/modules/driver"
	"rumo/internal/modules/reason"
	"rumo/internal/modules/ride"
	"rumo/internal/modules/unit"
)

// writeError translates module errors into HTTP statuses. Policy
// rejections carry their reason so clients can explain the refusal.
func (s *Server) writeError(c *gin.Context, err error) {
	var pe *costcenter.PolicyError
	switch {
	case errors.As(err, &pe):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": pe.Message, "reason": pe.Reason})
	case errors.Is(err, ride.ErrBadRequest),
		errors.Is(err, costcenter.ErrBadRequest),
		errors.Is(err, unit.ErrBadRequest),
		errors.Is(err, reason.ErrBadRequest),
		errors.Is(err, driver.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ride.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ride.ErrNotFound),
		errors.Is(err, costcenter.ErrNotFound),
		errors.Is(err, unit.ErrNotFound),
		errors.Is(err, reason.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ride.ErrInvalidState),
		errors.Is(err, ride.ErrConflict),
		errors.Is(err, costcenter.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
