// README: Driver-facing HTTP handlers (presence + device tokens).
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rumo/internal/http/middleware"
)

type availabilityRequest struct {
	Online   bool          `json:"online"`
	Position *pointPayload `json:"position"`
}

func (s *Server) HandleSetAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	av, err := s.drivers.SetAvailability(c.Request.Context(), middleware.Identity(c), req.Online, req.Position.toPoint())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"driverId":  string(av.DriverID),
		"online":    av.Online,
		"updatedAt": av.UpdatedAt,
	})
}

func (s *Server) HandleOnlineDrivers(c *gin.Context) {
	roster, err := s.drivers.OnlineRoster(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]gin.H, len(roster))
	for i, av := range roster {
		out[i] = gin.H{
			"driverId": string(av.DriverID),
			"position": fromPoint(av.Position),
		}
	}
	c.JSON(http.StatusOK, gin.H{"drivers": out})
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) HandleRegisterToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := s.drivers.RegisterToken(c.Request.Context(), middleware.Identity(c), req.Token); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
