package maps

import (
	"context"
	"fmt"
	"math"

	"googlemaps.github.io/maps"

	"rumo/internal/types"
)

// RouteService handles interactions with the Google Maps Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// Estimate returns driving distance in km and duration in whole minutes
// between two coordinates.
func (s *RouteService) Estimate(ctx context.Context, origin, destination types.Point) (float64, int, error) {
	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Lat, origin.Lng),
		Destination: fmt.Sprintf("%f,%f", destination.Lat, destination.Lng),
		Mode:        maps.TravelModeDriving,
		Language:    "pt-BR",
		Region:      "BR",
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return 0, 0, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, 0, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	distanceKm := float64(leg.Distance.Meters) / 1000.0
	durationMin := int(math.Round(leg.Duration.Minutes()))
	if durationMin < 1 {
		durationMin = 1
	}
	return distanceKm, durationMin, nil
}
