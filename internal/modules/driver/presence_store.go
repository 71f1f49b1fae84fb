// README: Driver presence backed by Redis (set + GEO index).
package driver

import (
	"context"

	"github.com/redis/go-redis/v9"

	"rumo/internal/types"
)

const (
	onlineSetKey = "drivers:online"
	geoKey       = "drivers:geo"
)

// RedisPresence tracks which drivers are online and, when they share a
// location, where. The GEO index only holds drivers with a position;
// the set is the source of truth for being online.
type RedisPresence struct {
	redis *redis.Client
}

func NewRedisPresence(rdb *redis.Client) *RedisPresence {
	return &RedisPresence{redis: rdb}
}

func (p *RedisPresence) SetOnline(ctx context.Context, id types.ID, pos *types.Point) error {
	pipe := p.redis.Pipeline()
	pipe.SAdd(ctx, onlineSetKey, string(id))
	if pos != nil {
		pipe.GeoAdd(ctx, geoKey, &redis.GeoLocation{
			Name:      string(id),
			Longitude: pos.Lng,
			Latitude:  pos.Lat,
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (p *RedisPresence) SetOffline(ctx context.Context, id types.ID) error {
	pipe := p.redis.Pipeline()
	pipe.SRem(ctx, onlineSetKey, string(id))
	pipe.ZRem(ctx, geoKey, string(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (p *RedisPresence) IsOnline(ctx context.Context, id types.ID) (bool, error) {
	return p.redis.SIsMember(ctx, onlineSetKey, string(id)).Result()
}

func (p *RedisPresence) OnlineDrivers(ctx context.Context) ([]types.ID, error) {
	members, err := p.redis.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(members))
	for i, m := range members {
		ids[i] = types.ID(m)
	}
	return ids, nil
}

func (p *RedisPresence) Position(ctx context.Context, id types.ID) (*types.Point, error) {
	positions, err := p.redis.GeoPos(ctx, geoKey, string(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 || positions[0] == nil {
		return nil, nil
	}
	return &types.Point{Lat: positions[0].Latitude, Lng: positions[0].Longitude}, nil
}

// Nearby returns online drivers with a known position within radiusKm,
// closest first.
func (p *RedisPresence) Nearby(ctx context.Context, at types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := p.redis.GeoSearch(ctx, geoKey, &redis.GeoSearchQuery{
		Longitude:  at.Lng,
		Latitude:   at.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, 0, len(results))
	for _, r := range results {
		// the GEO index can lag the set on abrupt disconnects
		online, err := p.redis.SIsMember(ctx, onlineSetKey, r).Result()
		if err != nil {
			return nil, err
		}
		if online {
			ids = append(ids, types.ID(r))
		}
	}
	return ids, nil
}
