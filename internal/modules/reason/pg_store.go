// README: Request reason store backed by PostgreSQL.
package reason

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rumo/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, r *Reason) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO request_reasons (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`,
		string(r.ID), r.Name, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *PGStore) List(ctx context.Context) ([]*Reason, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, created_at, updated_at
		FROM request_reasons
		ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Reason{}
	for rows.Next() {
		r, err := scanReason(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) Rename(ctx context.Context, id types.ID, name string, at time.Time) (*Reason, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE request_reasons SET name = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, name, created_at, updated_at`,
		name, at, string(id),
	)
	return scanReason(row)
}

func (s *PGStore) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM request_reasons WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type reasonScanner interface {
	Scan(dest ...any) error
}

func scanReason(row reasonScanner) (*Reason, error) {
	var r Reason
	err := row.Scan(&r.ID, &r.Name, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
