// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"github.com/gin-gonic/gin"

	"rumo/internal/http/middleware"
	"rumo/internal/logger"
	"rumo/internal/modules/costcenter"
	"rumo/internal/modules/driver"
	"rumo/internal/modules/fare"
	"rumo/internal/modules/reason"
	"rumo/internal/modules/ride"
	"rumo/internal/modules/unit"
	"rumo/internal/types"
)

type ServerDeps struct {
	Rides       *ride.Service
	CostCenters *costcenter.Service
	Units       *unit.Service
	Drivers     *driver.Service
	Fares       *fare.Service
	Reasons     *reason.Service
	JWTSecret   string
	Log         logger.ILogger
}

type Server struct {
	rides       *ride.Service
	costCenters *costcenter.Service
	units       *unit.Service
	drivers     *driver.Service
	fares       *fare.Service
	reasons     *reason.Service
	jwtSecret   string
	log         logger.ILogger
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		rides:       deps.Rides,
		costCenters: deps.CostCenters,
		units:       deps.Units,
		drivers:     deps.Drivers,
		fares:       deps.Fares,
		reasons:     deps.Reasons,
		jwtSecret:   deps.JWTSecret,
		log:         deps.Log,
	}
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(s.log), middleware.Logging(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	api := r.Group("/api")

	// estimate and ride creation accept anonymous callers; everything
	// else requires a token
	optional := api.Group("", middleware.Auth(s.jwtSecret, false))
	optional.POST("/estimate", s.HandleEstimate)
	optional.POST("/rides", s.HandleCreateRide)

	auth := api.Group("", middleware.Auth(s.jwtSecret, true))

	auth.GET("/rides", s.HandleListRides)
	auth.GET("/rides/:id", s.HandleGetRide)
	auth.GET("/rides/:id/trajectory", s.HandleGetTrajectory)
	auth.POST("/rides/:id/cancel", s.HandleCancelRide)
	auth.POST("/rides/:id/rate", s.HandleRateRide)

	drv := auth.Group("", middleware.RequireRoles(types.RoleDriver))
	drv.POST("/rides/:id/accept", s.HandleAcceptRide)
	drv.POST("/rides/:id/arrive", s.HandleArriveRide)
	drv.POST("/rides/:id/start", s.HandleStartRide)
	drv.POST("/rides/:id/complete", s.HandleCompleteRide)
	drv.POST("/rides/:id/trajectory", s.HandleAppendTrajectory)
	drv.POST("/driver/availability", s.HandleSetAvailability)

	auth.POST("/fcm-token", s.HandleRegisterToken)

	managers := auth.Group("", middleware.RequireRoles(types.RoleCentralManager, types.RoleUnitManager))
	managers.GET("/drivers/online", s.HandleOnlineDrivers)
	managers.GET("/cost-centers", s.HandleListCostCenters)
	managers.GET("/cost-centers/:id", s.HandleGetCostCenter)
	managers.GET("/cost-centers/:id/areas", s.HandleListAreas)
	managers.GET("/cost-centers/:id/members", s.HandleListMembers)
	managers.GET("/units", s.HandleListUnits)
	managers.GET("/units/:id", s.HandleGetUnit)
	managers.GET("/request-reasons", s.HandleListReasons)
	managers.GET("/reports/rides", s.HandleRideReport)

	central := auth.Group("", middleware.RequireRoles(types.RoleCentralManager))
	central.POST("/cost-centers", s.HandleCreateCostCenter)
	central.PATCH("/cost-centers/:id", s.HandleUpdateCostCenter)
	central.DELETE("/cost-centers/:id", s.HandleDeleteCostCenter)
	central.POST("/cost-centers/:id/areas", s.HandleAddArea)
	central.DELETE("/cost-centers/:id/areas/:areaID", s.HandleRemoveArea)
	central.POST("/cost-centers/:id/members", s.HandleAddMember)
	central.DELETE("/cost-centers/:id/members/:userID", s.HandleRemoveMember)
	central.POST("/units", s.HandleCreateUnit)
	central.PATCH("/units/:id", s.HandleUpdateUnit)
	central.DELETE("/units/:id", s.HandleDeleteUnit)
	central.POST("/request-reasons", s.HandleCreateReason)
	central.PATCH("/request-reasons/:id", s.HandleUpdateReason)
	central.DELETE("/request-reasons/:id", s.HandleDeleteReason)

	return r
}
