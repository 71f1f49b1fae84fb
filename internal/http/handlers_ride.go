// README: Ride-facing HTTP handlers.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rumo/internal/http/middleware"
	"rumo/internal/modules/ride"
	"rumo/internal/types"
)

type pointPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p *pointPayload) toPoint() *types.Point {
	if p == nil {
		return nil
	}
	return &types.Point{Lat: p.Lat, Lng: p.Lng}
}

func fromPoint(p *types.Point) *pointPayload {
	if p == nil {
		return nil
	}
	return &pointPayload{Lat: p.Lat, Lng: p.Lng}
}

type ridePayload struct {
	ID                   string        `json:"id"`
	Status               string        `json:"status"`
	RequesterID          string        `json:"requesterId,omitempty"`
	CostCenterID         *string       `json:"costCenterId,omitempty"`
	PickupAddress        string        `json:"pickupAddress"`
	Pickup               *pointPayload `json:"pickup,omitempty"`
	DestinationAddress   string        `json:"destinationAddress"`
	Destination          *pointPayload `json:"destination,omitempty"`
	EstimatedDistanceKm  float64       `json:"estimatedDistanceKm"`
	EstimatedDurationMin int           `json:"estimatedDurationMin"`
	EstimatedPriceCents  int64         `json:"estimatedPriceCents"`
	FormattedPrice       string        `json:"formattedPrice"`
	DriverID             *string       `json:"driverId,omitempty"`
	DriverName           *string       `json:"driverName,omitempty"`
	VehiclePlate         *string       `json:"vehiclePlate,omitempty"`
	ActualPriceCents     *int64        `json:"actualPriceCents,omitempty"`
	ActualDistanceKm     *float64      `json:"actualDistanceKm,omitempty"`
	ActualDurationMin    *int          `json:"actualDurationMin,omitempty"`
	CancelReason         *string       `json:"cancelReason,omitempty"`
	Rating               *int          `json:"rating,omitempty"`
	CreatedAt            time.Time     `json:"createdAt"`
	AcceptedAt           *time.Time    `json:"acceptedAt,omitempty"`
	ArrivedAt            *time.Time    `json:"arrivedAt,omitempty"`
	StartedAt            *time.Time    `json:"startedAt,omitempty"`
	CompletedAt          *time.Time    `json:"completedAt,omitempty"`
	CancelledAt          *time.Time    `json:"cancelledAt,omitempty"`
}

func toRidePayload(r *ride.Ride) ridePayload {
	p := ridePayload{
		ID:                   string(r.ID),
		Status:               string(r.Status),
		RequesterID:          string(r.RequesterID),
		PickupAddress:        r.PickupAddress,
		Pickup:               fromPoint(r.Pickup),
		DestinationAddress:   r.DestinationAddress,
		Destination:          fromPoint(r.Destination),
		EstimatedDistanceKm:  r.EstimatedDistanceKm,
		EstimatedDurationMin: r.EstimatedDurationMin,
		EstimatedPriceCents:  r.EstimatedPriceCents,
		FormattedPrice:       types.Money(r.EstimatedPriceCents).BRL(),
		DriverName:           r.DriverName,
		VehiclePlate:         r.VehiclePlate,
		ActualPriceCents:     r.ActualPriceCents,
		ActualDistanceKm:     r.ActualDistanceKm,
		ActualDurationMin:    r.ActualDurationMin,
		CancelReason:         r.CancelReason,
		Rating:               r.Rating,
		CreatedAt:            r.CreatedAt,
		AcceptedAt:           r.AcceptedAt,
		ArrivedAt:            r.ArrivedAt,
		StartedAt:            r.StartedAt,
		CompletedAt:          r.CompletedAt,
		CancelledAt:          r.CancelledAt,
	}
	if r.CostCenterID != nil {
		v := string(*r.CostCenterID)
		p.CostCenterID = &v
	}
	if r.DriverID != nil {
		v := string(*r.DriverID)
		p.DriverID = &v
	}
	return p
}

type estimateRequest struct {
	Pickup       *pointPayload `json:"pickup"`
	Destination  *pointPayload `json:"destination"`
	CostCenterID string        `json:"costCenterId"`
}

func (s *Server) HandleEstimate(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	ctx := c.Request.Context()
	pickup, destination := req.Pickup.toPoint(), req.Destination.toPoint()

	km, min, price, err := s.fares.Estimate(ctx, pickup, destination)
	if err != nil {
		s.writeError(c, err)
		return
	}

	// the preview runs the same restriction checks as ride creation, so
	// a refusal shows up before the user commits to booking
	ccID, err := s.costCenters.Resolve(ctx, middleware.Identity(c).ID, types.ID(req.CostCenterID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if ccID != "" {
		if err := s.costCenters.Check(ctx, ccID, pickup, destination, price, km); err != nil {
			s.writeError(c, err)
			return
		}
	}

	resp := gin.H{
		"distanceKm":     km,
		"durationMin":    min,
		"priceCents":     price,
		"formattedPrice": types.Money(price).BRL(),
	}
	if ccID != "" {
		resp["costCenterId"] = string(ccID)
	}
	c.JSON(http.StatusOK, resp)
}

type createRideRequest struct {
	PickupAddress      string        `json:"pickupAddress"`
	Pickup             *pointPayload `json:"pickup"`
	DestinationAddress string        `json:"destinationAddress"`
	Destination        *pointPayload `json:"destination"`
	CostCenterID       string        `json:"costCenterId"`
}

func (s *Server) HandleCreateRide(c *gin.Context) {
	var req createRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	r, err := s.rides.Create(c.Request.Context(), ride.CreateCommand{
		Requester:          middleware.Identity(c),
		PickupAddress:      req.PickupAddress,
		Pickup:             req.Pickup.toPoint(),
		DestinationAddress: req.DestinationAddress,
		Destination:        req.Destination.toPoint(),
		CostCenterID:       types.ID(req.CostCenterID),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRidePayload(r))
}

func (s *Server) HandleListRides(c *gin.Context) {
	opts := ride.ListOptions{
		Available:    c.Query("available") == "true",
		Status:       ride.Status(c.Query("status")),
		CostCenterID: types.ID(c.Query("costCenterId")),
	}
	rides, err := s.rides.List(c.Request.Context(), middleware.Identity(c), opts)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]ridePayload, len(rides))
	for i, r := range rides {
		out[i] = toRidePayload(r)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) HandleGetRide(c *gin.Context) {
	r, err := s.rides.Get(c.Request.Context(), types.ID(c.Param("id")), middleware.Identity(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRidePayload(r))
}

type acceptRideRequest struct {
	DriverName   string `json:"driverName"`
	VehiclePlate string `json:"vehiclePlate"`
}

func (s *Server) HandleAcceptRide(c *gin.Context) {
	var req acceptRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	r, err := s.rides.Accept(c.Request.Context(), ride.AcceptCommand{
		RideID:       types.ID(c.Param("id")),
		Driver:       middleware.Identity(c),
		DriverName:   req.DriverName,
		VehiclePlate: req.VehiclePlate,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRidePayload(r))
}

func (s *Server) HandleArriveRide(c *gin.Context) {
	r, err := s.rides.Arrive(c.Request.Context(), ride.ArriveCommand{
		RideID: types.ID(c.Param("id")),
		Driver: middleware.Identity(c),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRidePayload(r))
}

func (s *Server) HandleStartRide(c *gin.Context) {
	r, err := s.rides.Start(c.Request.Context(), ride.StartCommand{
		RideID: types.ID(c.Param("id")),
		Driver: middleware.Identity(c),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRidePayload(r))
}

type completeRideRequest struct {
	PriceCents  int64    `json:"priceCents"`
	DistanceKm  *float64 `json:"distanceKm"`
	DurationMin *int     `json:"durationMin"`
}

func (s *Server) HandleCompleteRide(c *gin.Context) {
	var req completeRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	r, err := s.rides.Complete(c.Request.Context(), ride.CompleteCommand{
		RideID:      types.ID(c.Param("id")),
		Driver:      middleware.Identity(c),
		PriceCents:  req.PriceCents,
		DistanceKm:  req.DistanceKm,
		DurationMin: req.DurationMin,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRidePayload(r))
}

type cancelRideRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) HandleCancelRide(c *gin.Context) {
	var req cancelRideRequest
	_ = c.ShouldBindJSON(&req)
	r, err := s.rides.Cancel(c.Request.Context(), ride.CancelCommand{
		RideID: types.ID(c.Param("id")),
		Actor:  middleware.Identity(c),
		Reason: req.Reason,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRidePayload(r))
}

type rateRideRequest struct {
	Rating int `json:"rating"`
}

func (s *Server) HandleRateRide(c *gin.Context) {
	var req rateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	err := s.rides.Rate(c.Request.Context(), ride.RateCommand{
		RideID: types.ID(c.Param("id")),
		Actor:  middleware.Identity(c),
		Rating: req.Rating,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type trajectoryRequest struct {
	Points []pointPayload `json:"points"`
}

func (s *Server) HandleAppendTrajectory(c *gin.Context) {
	var req trajectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	points := make([]types.Point, len(req.Points))
	for i, p := range req.Points {
		points[i] = types.Point{Lat: p.Lat, Lng: p.Lng}
	}
	err := s.rides.AppendTrack(c.Request.Context(), ride.TrackCommand{
		RideID: types.ID(c.Param("id")),
		Driver: middleware.Identity(c),
		Points: points,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) HandleGetTrajectory(c *gin.Context) {
	track, err := s.rides.Track(c.Request.Context(), types.ID(c.Param("id")), middleware.Identity(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	type trackPayload struct {
		Seq        int       `json:"seq"`
		Lat        float64   `json:"lat"`
		Lng        float64   `json:"lng"`
		RecordedAt time.Time `json:"recordedAt"`
	}
	out := make([]trackPayload, len(track))
	for i, p := range track {
		out[i] = trackPayload{Seq: p.Seq, Lat: p.Position.Lat, Lng: p.Position.Lng, RecordedAt: p.RecordedAt}
	}
	c.JSON(http.StatusOK, out)
}
