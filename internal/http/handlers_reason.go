// README: Request reason HTTP handlers.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rumo/internal/http/middleware"
	"rumo/internal/modules/reason"
	"rumo/internal/types"
)

type reasonPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toReasonPayload(r *reason.Reason) reasonPayload {
	return reasonPayload{
		ID:        string(r.ID),
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type reasonRequest struct {
	Name string `json:"name"`
}

func (s *Server) HandleCreateReason(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	r, err := s.reasons.Create(c.Request.Context(), middleware.Identity(c), req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReasonPayload(r))
}

func (s *Server) HandleListReasons(c *gin.Context) {
	list, err := s.reasons.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]reasonPayload, len(list))
	for i, r := range list {
		out[i] = toReasonPayload(r)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) HandleUpdateReason(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	r, err := s.reasons.Rename(c.Request.Context(), middleware.Identity(c), types.ID(c.Param("id")), req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReasonPayload(r))
}

func (s *Server) HandleDeleteReason(c *gin.Context) {
	if err := s.reasons.Delete(c.Request.Context(), middleware.Identity(c), types.ID(c.Param("id"))); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
