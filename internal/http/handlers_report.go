// README: Manager reporting handlers (ride listings over a period).
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rumo/internal/http/middleware"
	"rumo/internal/modules/ride"
	"rumo/internal/types"
)

// HandleRideReport lists rides for managers over an optional period,
// optionally narrowed to one cost center. Unit managers stay scoped to
// their memberships.
func (s *Server) HandleRideReport(c *gin.Context) {
	opts := ride.ListOptions{
		Status:       ride.Status(c.Query("status")),
		CostCenterID: types.ID(c.Query("costCenterId")),
		Limit:        500,
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		opts.CreatedFrom = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		opts.CreatedTo = &t
	}

	rides, err := s.rides.List(c.Request.Context(), middleware.Identity(c), opts)
	if err != nil {
		s.writeError(c, err)
		return
	}

	var totalCents int64
	out := make([]ridePayload, len(rides))
	for i, r := range rides {
		out[i] = toRidePayload(r)
		if r.Status != ride.StatusCancelled {
			totalCents += r.EstimatedPriceCents
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"rides":               out,
		"totalEstimatedCents": totalCents,
		"totalFormatted":      types.Money(totalCents).BRL(),
	})
}
