// README: Cost center store backed by PostgreSQL.
package costcenter

import (
	"context"
	"database/sql"
	"errors"

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

const costCenterColumns = `
	id, unit_id, name, description, blocked,
	monthly_budget_cents, max_km_per_ride,
	time_window_start_min, time_window_end_min,
	created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, cc *CostCenter) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cost_centers (
			id, unit_id, name, description, blocked,
			monthly_budget_cents, max_km_per_ride,
			time_window_start_min, time_window_end_min,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(cc.ID), unitIDPtr(cc.UnitID), cc.Name, cc.Description, cc.Blocked,
		cc.MonthlyBudgetCents, cc.MaxKmPerRide,
		cc.TimeWindowStartMin, cc.TimeWindowEndMin,
		cc.CreatedAt, cc.UpdatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*CostCenter, error) {
	row := s.db.QueryRow(ctx, `SELECT`+costCenterColumns+` FROM cost_centers WHERE id = $1`, string(id))
	return scanCostCenter(row)
}

func (s *PGStore) List(ctx context.Context, ids []types.ID) ([]*CostCenter, error) {
	q := `SELECT` + costCenterColumns + ` FROM cost_centers`
	var args []any
	if ids != nil {
		ss := make([]string, len(ids))
		for i, id := range ids {
			ss[i] = string(id)
		}
		q += ` WHERE id = ANY($1)`
		args = append(args, ss)
	}
	q += ` ORDER BY name`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*CostCenter{}
	for rows.Next() {
		cc, err := scanCostCenter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, cc *CostCenter) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE cost_centers
		SET unit_id = $1, name = $2, description = $3, blocked = $4,
			monthly_budget_cents = $5, max_km_per_ride = $6,
			time_window_start_min = $7, time_window_end_min = $8,
			updated_at = $9
		WHERE id = $10`,
		unitIDPtr(cc.UnitID), cc.Name, cc.Description, cc.Blocked,
		cc.MonthlyBudgetCents, cc.MaxKmPerRide,
		cc.TimeWindowStartMin, cc.TimeWindowEndMin,
		cc.UpdatedAt,
		string(cc.ID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM cost_centers WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Areas(ctx context.Context, costCenterID types.ID) ([]AllowedArea, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, cost_center_id, kind, name, lat, lng, radius_km
		FROM cost_center_allowed_areas
		WHERE cost_center_id = $1
		ORDER BY kind, name`,
		string(costCenterID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []AllowedArea{}
	for rows.Next() {
		var a AllowedArea
		if err := rows.Scan(&a.ID, &a.CostCenterID, &a.Kind, &a.Name, &a.Center.Lat, &a.Center.Lng, &a.RadiusKm); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) AddArea(ctx context.Context, a *AllowedArea) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cost_center_allowed_areas (id, cost_center_id, kind, name, lat, lng, radius_km)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(a.ID), string(a.CostCenterID), a.Kind, a.Name, a.Center.Lat, a.Center.Lng, a.RadiusKm,
	)
	return err
}

func (s *PGStore) RemoveArea(ctx context.Context, costCenterID, areaID types.ID) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM cost_center_allowed_areas WHERE id = $1 AND cost_center_id = $2`,
		string(areaID), string(costCenterID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) MemberCostCenters(ctx context.Context, userID types.ID) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT cost_center_id FROM user_cost_centers WHERE user_id = $1`,
		string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (s *PGStore) AddMember(ctx context.Context, costCenterID, userID types.ID) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_cost_centers (cost_center_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (cost_center_id, user_id) DO NOTHING`,
		string(costCenterID), string(userID),
	)
	return err
}

func (s *PGStore) RemoveMember(ctx context.Context, costCenterID, userID types.ID) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM user_cost_centers WHERE cost_center_id = $1 AND user_id = $2`,
		string(costCenterID), string(userID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Members(ctx context.Context, costCenterID types.ID) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id FROM user_cost_centers WHERE cost_center_id = $1`,
		string(costCenterID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

type rowIterator interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanIDs(rows rowIterator) ([]types.ID, error) {
	out := []types.ID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, types.ID(id))
	}
	return out, rows.Err()
}

type costCenterScanner interface {
	Scan(dest ...any) error
}

func scanCostCenter(row costCenterScanner) (*CostCenter, error) {
	var cc CostCenter
	var unitID sql.NullString
	var budget sql.NullInt64
	var maxKm sql.NullFloat64
	var winStart, winEnd sql.NullInt32

	err := row.Scan(
		&cc.ID, &unitID, &cc.Name, &cc.Description, &cc.Blocked,
		&budget, &maxKm,
		&winStart, &winEnd,
		&cc.CreatedAt, &cc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if unitID.Valid {
		id := types.ID(unitID.String)
		cc.UnitID = &id
	}
	if budget.Valid {
		cc.MonthlyBudgetCents = &budget.Int64
	}
	if maxKm.Valid {
		cc.MaxKmPerRide = &maxKm.Float64
	}
	if winStart.Valid {
		v := int(winStart.Int32)
		cc.TimeWindowStartMin = &v
	}
	if winEnd.Valid {
		v := int(winEnd.Int32)
		cc.TimeWindowEndMin = &v
	}
	return &cc, nil
}

func unitIDPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	v := string(*id)
	return &v
}
