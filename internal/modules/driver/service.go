// README: Driver service: presence, device tokens, and the online roster.
package driver

import (
	"context"
	"errors"
	"time"

	"rumo/internal/logger"
	"rumo/internal/modules/audit"
	"rumo/internal/types"
)

var ErrBadRequest = errors.New("bad request")

// Presence is the online roster. The Redis store implements it; tests
// use the in-memory one.
type Presence interface {
	SetOnline(ctx context.Context, id types.ID, pos *types.Point) error
	SetOffline(ctx context.Context, id types.ID) error
	IsOnline(ctx context.Context, id types.ID) (bool, error)
	OnlineDrivers(ctx context.Context) ([]types.ID, error)
	Position(ctx context.Context, id types.ID) (*types.Point, error)
	Nearby(ctx context.Context, at types.Point, radiusKm float64) ([]types.ID, error)
}

// TokenStore persists FCM device tokens per user.
type TokenStore interface {
	SaveDriverToken(ctx context.Context, userID types.ID, token string) error
	SavePassengerToken(ctx context.Context, userID types.ID, token string) error
	DriverTokens(ctx context.Context, userIDs []types.ID) ([]string, error)
	PassengerTokens(ctx context.Context, userID types.ID) ([]string, error)
}

// Auditor records availability changes.
type Auditor interface {
	Append(ctx context.Context, eventType string, actorID types.ID, resourceType string, resourceID types.ID, details map[string]any)
}

type Service struct {
	presence Presence
	tokens   TokenStore
	audit    Auditor
	log      logger.ILogger
	now      func() time.Time
}

func NewService(presence Presence, tokens TokenStore, auditor Auditor, log logger.ILogger) *Service {
	return &Service{
		presence: presence,
		tokens:   tokens,
		audit:    auditor,
		log:      log,
		now:      time.Now,
	}
}

// SetAvailability flips the driver's presence. Going online with a
// position also places the driver on the geo index.
func (s *Service) SetAvailability(ctx context.Context, driver types.Identity, online bool, pos *types.Point) (*Availability, error) {
	var err error
	if online {
		err = s.presence.SetOnline(ctx, driver.ID, pos)
	} else {
		err = s.presence.SetOffline(ctx, driver.ID)
	}
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Append(ctx, audit.EventDriverStatus, driver.ID, "driver", driver.ID, map[string]any{"online": online})
	}
	return &Availability{DriverID: driver.ID, Online: online, Position: pos, UpdatedAt: s.now()}, nil
}

func (s *Service) Availability(ctx context.Context, driverID types.ID) (*Availability, error) {
	online, err := s.presence.IsOnline(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return &Availability{DriverID: driverID, Online: online, UpdatedAt: s.now()}, nil
}

// Online lists the drivers currently on shift.
func (s *Service) Online(ctx context.Context) ([]types.ID, error) {
	return s.presence.OnlineDrivers(ctx)
}

// OnlineRoster lists online drivers with their last known position,
// when they shared one.
func (s *Service) OnlineRoster(ctx context.Context) ([]Availability, error) {
	ids, err := s.presence.OnlineDrivers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Availability, 0, len(ids))
	for _, id := range ids {
		pos, err := s.presence.Position(ctx, id)
		if err != nil {
			// one unreadable position must not empty the whole roster
			s.log.Error("driver position lookup failed",
				logger.Error(err), logger.String("driverId", string(id)))
			pos = nil
		}
		out = append(out, Availability{DriverID: id, Online: true, Position: pos, UpdatedAt: s.now()})
	}
	return out, nil
}

// Nearby lists online drivers around a point, closest first.
func (s *Service) Nearby(ctx context.Context, at types.Point, radiusKm float64) ([]types.ID, error) {
	if radiusKm <= 0 {
		radiusKm = 10
	}
	return s.presence.Nearby(ctx, at, radiusKm)
}

// RegisterToken stores a device token for the calling user, routed by
// role so drivers and passengers are notified independently.
func (s *Service) RegisterToken(ctx context.Context, actor types.Identity, token string) error {
	if token == "" || actor.ID == "" {
		return ErrBadRequest
	}
	if actor.Role == types.RoleDriver {
		return s.tokens.SaveDriverToken(ctx, actor.ID, token)
	}
	return s.tokens.SavePassengerToken(ctx, actor.ID, token)
}

// OnlineDriverTokens returns the device tokens of every online driver.
// It backs new-ride push delivery.
func (s *Service) OnlineDriverTokens(ctx context.Context) ([]string, error) {
	ids, err := s.presence.OnlineDrivers(ctx)
	if err != nil {
		return nil, err
	}
	return s.tokens.DriverTokens(ctx, ids)
}

// PassengerTokens returns the device tokens of one passenger.
func (s *Service) PassengerTokens(ctx context.Context, userID types.ID) ([]string, error) {
	return s.tokens.PassengerTokens(ctx, userID)
}
