// README: Cost center management HTTP handlers.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rumo/internal/http/middleware"
	"rumo/internal/modules/costcenter"
	"rumo/internal/types"
)

type costCenterPayload struct {
	ID                 string    `json:"id"`
	UnitID             *string   `json:"unitId,omitempty"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	Blocked            bool      `json:"blocked"`
	MonthlyBudgetCents *int64    `json:"monthlyBudgetCents,omitempty"`
	MaxKmPerRide       *float64  `json:"maxKmPerRide,omitempty"`
	TimeWindowStartMin *int      `json:"timeWindowStartMin,omitempty"`
	TimeWindowEndMin   *int      `json:"timeWindowEndMin,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func toCostCenterPayload(cc *costcenter.CostCenter) costCenterPayload {
	p := costCenterPayload{
		ID:                 string(cc.ID),
		Name:               cc.Name,
		Description:        cc.Description,
		Blocked:            cc.Blocked,
		MonthlyBudgetCents: cc.MonthlyBudgetCents,
		MaxKmPerRide:       cc.MaxKmPerRide,
		TimeWindowStartMin: cc.TimeWindowStartMin,
		TimeWindowEndMin:   cc.TimeWindowEndMin,
		CreatedAt:          cc.CreatedAt,
		UpdatedAt:          cc.UpdatedAt,
	}
	if cc.UnitID != nil {
		v := string(*cc.UnitID)
		p.UnitID = &v
	}
	return p
}

type createCostCenterRequest struct {
	UnitID             *string  `json:"unitId"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	MonthlyBudgetCents *int64   `json:"monthlyBudgetCents"`
	MaxKmPerRide       *float64 `json:"maxKmPerRide"`
	TimeWindowStartMin *int     `json:"timeWindowStartMin"`
	TimeWindowEndMin   *int     `json:"timeWindowEndMin"`
}

func (s *Server) HandleCreateCostCenter(c *gin.Context) {
	var req createCostCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	cmd := costcenter.CreateCommand{
		Actor:              middleware.Identity(c),
		Name:               req.Name,
		Description:        req.Description,
		MonthlyBudgetCents: req.MonthlyBudgetCents,
		MaxKmPerRide:       req.MaxKmPerRide,
		TimeWindowStartMin: req.TimeWindowStartMin,
		TimeWindowEndMin:   req.TimeWindowEndMin,
	}
	if req.UnitID != nil {
		id := types.ID(*req.UnitID)
		cmd.UnitID = &id
	}
	cc, err := s.costCenters.Create(c.Request.Context(), cmd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCostCenterPayload(cc))
}

func (s *Server) HandleListCostCenters(c *gin.Context) {
	list, err := s.costCenters.ListFor(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]costCenterPayload, len(list))
	for i, cc := range list {
		out[i] = toCostCenterPayload(cc)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) HandleGetCostCenter(c *gin.Context) {
	cc, err := s.costCenters.Get(c.Request.Context(), middleware.Identity(c), types.ID(c.Param("id")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCostCenterPayload(cc))
}

type updateCostCenterRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Blocked     *bool   `json:"blocked"`

	UnitID    *string `json:"unitId"`
	ClearUnit bool    `json:"clearUnit"`

	MonthlyBudgetCents *int64 `json:"monthlyBudgetCents"`
	ClearMonthlyBudget bool   `json:"clearMonthlyBudget"`

	MaxKmPerRide *float64 `json:"maxKmPerRide"`
	ClearMaxKm   bool     `json:"clearMaxKm"`

	TimeWindowStartMin *int `json:"timeWindowStartMin"`
	TimeWindowEndMin   *int `json:"timeWindowEndMin"`
	ClearTimeWindow    bool `json:"clearTimeWindow"`
}

func (s *Server) HandleUpdateCostCenter(c *gin.Context) {
	var req updateCostCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	patch := costcenter.Patch{
		Name:               req.Name,
		Description:        req.Description,
		Blocked:            req.Blocked,
		ClearUnit:          req.ClearUnit,
		MonthlyBudgetCents: req.MonthlyBudgetCents,
		ClearMonthlyBudget: req.ClearMonthlyBudget,
		MaxKmPerRide:       req.MaxKmPerRide,
		ClearMaxKm:         req.ClearMaxKm,
		TimeWindowStartMin: req.TimeWindowStartMin,
		TimeWindowEndMin:   req.TimeWindowEndMin,
		ClearTimeWindow:    req.ClearTimeWindow,
	}
	if req.UnitID != nil {
		id := types.ID(*req.UnitID)
		patch.UnitID = &id
	}
	cc, err := s.costCenters.Update(c.Request.Context(), middleware.Identity(c), types.ID(c.Param("id")), patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCostCenterPayload(cc))
}

func (s *Server) HandleDeleteCostCenter(c *gin.Context) {
	if err := s.costCenters.Delete(c.Request.Context(), middleware.Identity(c), types.ID(c.Param("id"))); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type areaPayload struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	Name     string  `json:"name,omitempty"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radiusKm"`
}

func (s *Server) HandleListAreas(c *gin.Context) {
	// unit managers read areas through the same membership filter as
	// the cost center itself
	if _, err := s.costCenters.Get(c.Request.Context(), middleware.Identity(c), types.ID(c.Param("id"))); err != nil {
		s.writeError(c, err)
		return
	}
	areas, err := s.costCenters.Areas(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]areaPayload, len(areas))
	for i, a := range areas {
		out[i] = areaPayload{
			ID:       string(a.ID),
			Kind:     a.Kind,
			Name:     a.Name,
			Lat:      a.Center.Lat,
			Lng:      a.Center.Lng,
			RadiusKm: a.RadiusKm,
		}
	}
	c.JSON(http.StatusOK, out)
}

type addAreaRequest struct {
	Kind     string  `json:"kind"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radiusKm"`
}

func (s *Server) HandleAddArea(c *gin.Context) {
	var req addAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	a, err := s.costCenters.AddArea(c.Request.Context(), middleware.Identity(c), costcenter.AllowedArea{
		CostCenterID: types.ID(c.Param("id")),
		Kind:         req.Kind,
		Name:         req.Name,
		Center:       types.Point{Lat: req.Lat, Lng: req.Lng},
		RadiusKm:     req.RadiusKm,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, areaPayload{
		ID:       string(a.ID),
		Kind:     a.Kind,
		Name:     a.Name,
		Lat:      a.Center.Lat,
		Lng:      a.Center.Lng,
		RadiusKm: a.RadiusKm,
	})
}

func (s *Server) HandleRemoveArea(c *gin.Context) {
	err := s.costCenters.RemoveArea(c.Request.Context(), middleware.Identity(c),
		types.ID(c.Param("id")), types.ID(c.Param("areaID")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) HandleListMembers(c *gin.Context) {
	if _, err := s.costCenters.Get(c.Request.Context(), middleware.Identity(c), types.ID(c.Param("id"))); err != nil {
		s.writeError(c, err)
		return
	}
	members, err := s.costCenters.Members(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]string, len(members))
	for i, id := range members {
		out[i] = string(id)
	}
	c.JSON(http.StatusOK, gin.H{"userIds": out})
}

type memberRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) HandleAddMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	err := s.costCenters.AddMember(c.Request.Context(), middleware.Identity(c),
		types.ID(c.Param("id")), types.ID(req.UserID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) HandleRemoveMember(c *gin.Context) {
	err := s.costCenters.RemoveMember(c.Request.Context(), middleware.Identity(c),
		types.ID(c.Param("id")), types.ID(c.Param("userID")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
