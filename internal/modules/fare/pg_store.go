// README: Fare config store backed by PostgreSQL.
package fare

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Config(ctx context.Context) (*Config, error) {
	row := s.db.QueryRow(ctx, `
		SELECT base_fare_cents, per_km_cents, per_minute_cents, min_fare_cents
		FROM fare_config LIMIT 1`,
	)
	var cfg Config
	err := row.Scan(&cfg.BaseFareCents, &cfg.PerKmCents, &cfg.PerMinuteCents, &cfg.MinFareCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
