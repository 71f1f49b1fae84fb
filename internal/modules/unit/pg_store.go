// README: Unit store backed by PostgreSQL.
package unit

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

func (s *PGStore) Create(ctx context.Context, u *Unit) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO units (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`,
		string(u.ID), u.Name, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Unit, error) {
	row := s.db.QueryRow(ctx, `
		SELECT u.id, u.name, u.created_at, u.updated_at,
			(SELECT COUNT(*) FROM cost_centers cc WHERE cc.unit_id = u.id)
		FROM units u
		WHERE u.id = $1`, string(id),
	)
	return scanUnit(row)
}

type unitScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row unitScanner) (*Unit, error) {
	var u Unit
	err := row.Scan(&u.ID, &u.Name, &u.CreatedAt, &u.UpdatedAt, &u.CostCenterCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) List(ctx context.Context, ids []types.ID) ([]*Unit, error) {
	q := `
		SELECT u.id, u.name, u.created_at, u.updated_at,
			(SELECT COUNT(*) FROM cost_centers cc WHERE cc.unit_id = u.id)
		FROM units u`
	var args []any
	if ids != nil {
		ss := make([]string, len(ids))
		for i, id := range ids {
			ss[i] = string(id)
		}
		q += ` WHERE u.id = ANY($1)`
		args = append(args, ss)
	}
	q += ` ORDER BY u.name`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PGStore) Rename(ctx context.Context, id types.ID, name string, at time.Time) (*Unit, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE units SET name = $1, updated_at = $2 WHERE id = $3`,
		name, at, string(id),
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *PGStore) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM units WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
