// README: Device token store backed by PostgreSQL (one row per user/token).
package driver

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"rumo/internal/types"
)

type PGTokenStore struct {
	db *pgxpool.Pool
}

func NewPGTokenStore(db *pgxpool.Pool) *PGTokenStore {
	return &PGTokenStore{db: db}
}

func (s *PGTokenStore) SaveDriverToken(ctx context.Context, userID types.ID, token string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO driver_fcm_tokens (user_id, token, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, token) DO UPDATE SET updated_at = NOW()`,
		string(userID), token,
	)
	return err
}

func (s *PGTokenStore) SavePassengerToken(ctx context.Context, userID types.ID, token string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO passenger_fcm_tokens (user_id, token, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, token) DO UPDATE SET updated_at = NOW()`,
		string(userID), token,
	)
	return err
}

func (s *PGTokenStore) DriverTokens(ctx context.Context, userIDs []types.ID) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT token FROM driver_fcm_tokens WHERE user_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PGTokenStore) PassengerTokens(ctx context.Context, userID types.ID) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT token FROM passenger_fcm_tokens WHERE user_id = $1`, string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
