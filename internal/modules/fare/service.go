// README: Fare service computes trip estimates and prices.
package fare

import (
	"context"
	"math"

	"rumo/internal/geo"
	"rumo/internal/logger"
	"rumo/internal/types"
)

// Store provides the persisted fare configuration. A nil result means no
// configuration has been set and the defaults apply.
type Store interface {
	Config(ctx context.Context) (*Config, error)
}

// RouteEstimator provides road distance and duration between two points.
// Optional; haversine is the fallback.
type RouteEstimator interface {
	Estimate(ctx context.Context, origin, destination types.Point) (distanceKm float64, durationMin int, err error)
}

type Service struct {
	store  Store
	routes RouteEstimator
	log    logger.ILogger
}

func NewService(store Store, routes RouteEstimator, log logger.ILogger) *Service {
	return &Service{store: store, routes: routes, log: log}
}

// Fallback trip shape when no coordinates were supplied.
const (
	defaultDistanceKm  = 5.0
	defaultDurationMin = 12
)

// Calculate prices a trip: base + round(km*perKm) + min*perMin, clamped to
// the minimum fare. Deterministic for identical inputs.
func Calculate(distanceKm float64, durationMin int, cfg Config) int64 {
	total := cfg.BaseFareCents +
		int64(math.Round(distanceKm*float64(cfg.PerKmCents))) +
		int64(durationMin)*cfg.PerMinuteCents
	if total < cfg.MinFareCents {
		return cfg.MinFareCents
	}
	return total
}

// Estimate computes distance, duration and price for a prospective trip.
// When either coordinate is missing a fixed fallback trip shape is priced.
// The same function backs both the preview endpoint and ride creation so
// the two always agree.
func (s *Service) Estimate(ctx context.Context, pickup, dropoff *types.Point) (distanceKm float64, durationMin int, priceCents int64, err error) {
	distanceKm = defaultDistanceKm
	durationMin = defaultDurationMin

	if pickup != nil && dropoff != nil {
		distanceKm, durationMin = s.distanceAndDuration(ctx, *pickup, *dropoff)
	}

	cfg := DefaultConfig()
	if s.store != nil {
		stored, err := s.store.Config(ctx)
		if err != nil {
			// defaults apply when the config read fails
			s.log.Error("fare config read failed", logger.Error(err))
		} else if stored != nil {
			cfg = *stored
		}
	}

	return distanceKm, durationMin, Calculate(distanceKm, durationMin, cfg), nil
}

func (s *Service) distanceAndDuration(ctx context.Context, pickup, dropoff types.Point) (float64, int) {
	if s.routes != nil {
		km, min, err := s.routes.Estimate(ctx, pickup, dropoff)
		if err == nil && km > 0 {
			return roundKm(km), min
		}
		if err != nil {
			s.log.Warning("route estimate failed, using haversine", logger.Error(err))
		}
	}
	km := geo.HaversineKm(pickup, dropoff)
	return roundKm(km), geo.EstimateDurationMin(km)
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
