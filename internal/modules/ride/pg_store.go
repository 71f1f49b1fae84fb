// README: Ride store backed by PostgreSQL.
package ride

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
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

const rideColumns = `
	id, requester_id, cost_center_id,
	pickup_address, pickup_lat, pickup_lng,
	destination_address, destination_lat, destination_lng,
	estimated_distance_km, estimated_duration_min, estimated_price_cents,
	status, driver_user_id, driver_name, vehicle_plate,
	actual_price_cents, actual_distance_km, actual_duration_min,
	cancel_reason, cancelled_by, rating,
	created_at, accepted_at, driver_arrived_at, started_at, completed_at, cancelled_at`

func (s *PGStore) Create(ctx context.Context, r *Ride) error {
	var pickupLat, pickupLng, destLat, destLng *float64
	if r.Pickup != nil {
		pickupLat, pickupLng = &r.Pickup.Lat, &r.Pickup.Lng
	}
	if r.Destination != nil {
		destLat, destLng = &r.Destination.Lat, &r.Destination.Lng
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO rides (
			id, requester_id, cost_center_id,
			pickup_address, pickup_lat, pickup_lng,
			destination_address, destination_lat, destination_lng,
			estimated_distance_km, estimated_duration_min, estimated_price_cents,
			status, created_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9,
			$10, $11, $12,
			$13, $14
		)`,
		string(r.ID),
		nullableID(r.RequesterID),
		idToStringPtr(r.CostCenterID),
		r.PickupAddress, pickupLat, pickupLng,
		r.DestinationAddress, destLat, destLng,
		r.EstimatedDistanceKm, r.EstimatedDurationMin, r.EstimatedPriceCents,
		string(r.Status),
		r.CreatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `SELECT`+rideColumns+` FROM rides WHERE id = $1`, string(id))
	return scanRide(row)
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]*Ride, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CostCenterIDs != nil {
		if len(f.CostCenterIDs) == 0 {
			return []*Ride{}, nil
		}
		ids := make([]string, len(f.CostCenterIDs))
		for i, id := range f.CostCenterIDs {
			ids[i] = string(id)
		}
		where = append(where, "cost_center_id = ANY("+arg(ids)+")")
	}
	if f.InvolvedUser != "" {
		p := arg(string(f.InvolvedUser))
		where = append(where, "(requester_id = "+p+" OR driver_user_id = "+p+")")
	}
	if f.RequesterID != "" {
		where = append(where, "requester_id = "+arg(string(f.RequesterID)))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.CreatedFrom != nil {
		where = append(where, "created_at >= "+arg(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		where = append(where, "created_at <= "+arg(*f.CreatedTo))
	}

	q := `SELECT` + rideColumns + ` FROM rides`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q += " ORDER BY created_at DESC LIMIT " + arg(limit)

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Ride{}
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) UpdateStatus(ctx context.Context, u StatusUpdate) (bool, error) {
	var driverID, driverName, vehiclePlate *string
	if u.Driver != nil {
		id := string(u.Driver.ID)
		driverID, driverName, vehiclePlate = &id, &u.Driver.Name, &u.Driver.VehiclePlate
	}
	var actualPrice *int64
	var actualDistance *float64
	var actualDuration *int
	if u.Actuals != nil {
		actualPrice = &u.Actuals.PriceCents
		actualDistance = &u.Actuals.DistanceKm
		actualDuration = &u.Actuals.DurationMin
	}
	var cancelReason, cancelledBy *string
	if u.To == StatusCancelled {
		cancelReason = &u.CancelReason
		if u.CancelledBy != "" {
			v := string(u.CancelledBy)
			cancelledBy = &v
		}
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET status = $1,
			driver_user_id = COALESCE($2, driver_user_id),
			driver_name = COALESCE($3, driver_name),
			vehicle_plate = COALESCE($4, vehicle_plate),
			accepted_at = CASE WHEN $1 = 'accepted' THEN $5 ELSE accepted_at END,
			driver_arrived_at = CASE WHEN $1 = 'driver_arrived' THEN $5 ELSE driver_arrived_at END,
			started_at = CASE WHEN $1 = 'in_progress' THEN $5 ELSE started_at END,
			completed_at = CASE WHEN $1 = 'completed' THEN $5 ELSE completed_at END,
			cancelled_at = CASE WHEN $1 = 'cancelled' THEN $5 ELSE cancelled_at END,
			actual_price_cents = COALESCE($6, actual_price_cents),
			actual_distance_km = COALESCE($7, actual_distance_km),
			actual_duration_min = COALESCE($8, actual_duration_min),
			cancel_reason = COALESCE($9, cancel_reason),
			cancelled_by = COALESCE($10, cancelled_by)
		WHERE id = $11
		  AND status = $12
		  AND ($13::text IS NULL OR driver_user_id = $13::text)`,
		string(u.To),
		driverID, driverName, vehiclePlate,
		u.At,
		actualPrice, actualDistance, actualDuration,
		cancelReason, cancelledBy,
		string(u.ID),
		string(u.From),
		nullableID(u.RequireDriver),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) SetRating(ctx context.Context, id, requesterID types.ID, rating int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET rating = $1
		WHERE id = $2
		  AND requester_id = $3
		  AND status = 'completed'
		  AND rating IS NULL`,
		rating, string(id), string(requesterID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) AppendTrack(ctx context.Context, rideID types.ID, during Status, points []TrackPoint) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	// lock the ride row so the status cannot change under the insert
	var status string
	err = tx.QueryRow(ctx, `
		SELECT status FROM rides WHERE id = $1 FOR UPDATE`,
		string(rideID),
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if Status(status) != during {
		return false, nil
	}

	var base int
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM ride_trajectory WHERE ride_id = $1`,
		string(rideID),
	).Scan(&base); err != nil {
		return false, err
	}
	for i, p := range points {
		if _, err := tx.Exec(ctx, `
			INSERT INTO ride_trajectory (ride_id, seq, lat, lng, recorded_at)
			VALUES ($1, $2, $3, $4, $5)`,
			string(rideID), base+i+1, p.Position.Lat, p.Position.Lng, p.RecordedAt,
		); err != nil {
			return false, err
		}
	}
	return true, tx.Commit(ctx)
}

func (s *PGStore) Track(ctx context.Context, rideID types.ID) ([]TrackPoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT seq, lat, lng, recorded_at
		FROM ride_trajectory
		WHERE ride_id = $1
		ORDER BY seq`,
		string(rideID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TrackPoint{}
	for rows.Next() {
		var p TrackPoint
		if err := rows.Scan(&p.Seq, &p.Position.Lat, &p.Position.Lng, &p.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) MonthToDateSpend(ctx context.Context, costCenterID types.ID, at time.Time) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(estimated_price_cents), 0)
		FROM rides
		WHERE cost_center_id = $1
		  AND status <> 'cancelled'
		  AND created_at >= date_trunc('month', $2::timestamptz)
		  AND created_at < date_trunc('month', $2::timestamptz) + interval '1 month'`,
		string(costCenterID), at,
	).Scan(&total)
	return total, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*Ride, error) {
	var r Ride
	var requesterID, costCenterID, driverID sql.NullString
	var pickupLat, pickupLng, destLat, destLng sql.NullFloat64
	var driverName, vehiclePlate, cancelReason, cancelledBy sql.NullString
	var actualPrice sql.NullInt64
	var actualDistance sql.NullFloat64
	var actualDuration, rating sql.NullInt32
	var acceptedAt, arrivedAt, startedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&r.ID, &requesterID, &costCenterID,
		&r.PickupAddress, &pickupLat, &pickupLng,
		&r.DestinationAddress, &destLat, &destLng,
		&r.EstimatedDistanceKm, &r.EstimatedDurationMin, &r.EstimatedPriceCents,
		&r.Status, &driverID, &driverName, &vehiclePlate,
		&actualPrice, &actualDistance, &actualDuration,
		&cancelReason, &cancelledBy, &rating,
		&r.CreatedAt, &acceptedAt, &arrivedAt, &startedAt, &completedAt, &cancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if requesterID.Valid {
		r.RequesterID = types.ID(requesterID.String)
	}
	if costCenterID.Valid {
		id := types.ID(costCenterID.String)
		r.CostCenterID = &id
	}
	if pickupLat.Valid && pickupLng.Valid {
		r.Pickup = &types.Point{Lat: pickupLat.Float64, Lng: pickupLng.Float64}
	}
	if destLat.Valid && destLng.Valid {
		r.Destination = &types.Point{Lat: destLat.Float64, Lng: destLng.Float64}
	}
	if driverID.Valid {
		id := types.ID(driverID.String)
		r.DriverID = &id
	}
	if driverName.Valid {
		r.DriverName = &driverName.String
	}
	if vehiclePlate.Valid {
		r.VehiclePlate = &vehiclePlate.String
	}
	if actualPrice.Valid {
		r.ActualPriceCents = &actualPrice.Int64
	}
	if actualDistance.Valid {
		r.ActualDistanceKm = &actualDistance.Float64
	}
	if actualDuration.Valid {
		v := int(actualDuration.Int32)
		r.ActualDurationMin = &v
	}
	if cancelReason.Valid {
		r.CancelReason = &cancelReason.String
	}
	if cancelledBy.Valid {
		id := types.ID(cancelledBy.String)
		r.CancelledBy = &id
	}
	if rating.Valid {
		v := int(rating.Int32)
		r.Rating = &v
	}
	r.AcceptedAt = timePtr(acceptedAt)
	r.ArrivedAt = timePtr(arrivedAt)
	r.StartedAt = timePtr(startedAt)
	r.CompletedAt = timePtr(completedAt)
	r.CancelledAt = timePtr(cancelledAt)
	return &r, nil
}

func nullableID(id types.ID) *string {
	if id == "" {
		return nil
	}
	v := string(id)
	return &v
}

func idToStringPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	v := string(*id)
	return &v
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
