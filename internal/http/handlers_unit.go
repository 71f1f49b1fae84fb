// README: Unit management HTTP handlers.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rumo/internal/http/middleware"
	"rumo/internal/modules/unit"
	"rumo/internal/types"
)

type unitPayload struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CostCenterCount int       `json:"costCenterCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toUnitPayload(u *unit.Unit) unitPayload {
	return unitPayload{
		ID:              string(u.ID),
		Name:            u.Name,
		CostCenterCount: u.CostCenterCount,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

type unitRequest struct {
	Name string `json:"name"`
}

func (s *Server) HandleCreateUnit(c *gin.Context) {
	var req unitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	u, err := s.units.Create(c.Request.Context(), middleware.Identity(c), req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUnitPayload(u))
}

func (s *Server) HandleListUnits(c *gin.Context) {
	list, err := s.units.ListFor(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]unitPayload, len(list))
	for i, u := range list {
		out[i] = toUnitPayload(u)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) HandleGetUnit(c *gin.Context) {
	u, err := s.units.Get(c.Request.Context(), middleware.Identity(c), types.ID(c.Param("id")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUnitPayload(u))
}

func (s *Server) HandleUpdateUnit(c *gin.Context) {
	var req unitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	u, err := s.units.Rename(c.Request.Context(), middleware.Identity(c), types.ID(c.Param("id")), req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUnitPayload(u))
}

func (s *Server) HandleDeleteUnit(c *gin.Context) {
	if err := s.units.Delete(c.Request.Context(), middleware.Identity(c), types.ID(c.Param("id"))); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
