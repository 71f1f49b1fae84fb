// README: Driver presence and token routing tests.
package driver

import (
	"context"
	"errors"
	"testing"

	"rumo/internal/logger"
	"rumo/internal/types"
)

func newTestService() *Service {
	return NewService(NewMemPresence(), NewMemTokenStore(), nil, logger.Nop())
}

func TestAvailabilityRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	d := types.Identity{ID: "drv-1", Role: types.RoleDriver}

	av, err := svc.SetAvailability(ctx, d, true, &types.Point{Lat: -23.56, Lng: -46.65})
	if err != nil || !av.Online {
		t.Fatalf("set online: %v %+v", err, av)
	}
	got, err := svc.Availability(ctx, d.ID)
	if err != nil || !got.Online {
		t.Fatalf("availability: %v %+v", err, got)
	}

	online, err := svc.Online(ctx)
	if err != nil || len(online) != 1 || online[0] != d.ID {
		t.Fatalf("online roster: %v %v", err, online)
	}

	roster, err := svc.OnlineRoster(ctx)
	if err != nil || len(roster) != 1 {
		t.Fatalf("roster: %v %v", err, roster)
	}
	if roster[0].Position == nil || roster[0].Position.Lat != -23.56 {
		t.Fatalf("roster position: %+v", roster[0].Position)
	}

	if _, err := svc.SetAvailability(ctx, d, false, nil); err != nil {
		t.Fatalf("set offline: %v", err)
	}
	online, _ = svc.Online(ctx)
	if len(online) != 0 {
		t.Fatalf("expected empty roster, got %v", online)
	}
}

func TestNearbyOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	paulista := types.Point{Lat: -23.5614, Lng: -46.6558}
	se := types.Point{Lat: -23.5503, Lng: -46.6339}
	rio := types.Point{Lat: -22.9068, Lng: -43.1729}

	mk := func(id string, p types.Point) {
		_, err := svc.SetAvailability(ctx, types.Identity{ID: types.ID(id), Role: types.RoleDriver}, true, &p)
		if err != nil {
			t.Fatalf("set online %s: %v", id, err)
		}
	}
	mk("near", paulista)
	mk("mid", se)
	mk("far", rio)
	// online but without a position: not on the geo index
	if _, err := svc.SetAvailability(ctx, types.Identity{ID: "ghost", Role: types.RoleDriver}, true, nil); err != nil {
		t.Fatalf("set online ghost: %v", err)
	}

	ids, err := svc.Nearby(ctx, paulista, 10)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(ids) != 2 || ids[0] != "near" || ids[1] != "mid" {
		t.Fatalf("expected [near mid], got %v", ids)
	}
}

func TestTokenRoutingByRole(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	d := types.Identity{ID: "drv-1", Role: types.RoleDriver}
	p := types.Identity{ID: "pass-1", Role: types.RolePassenger}

	if err := svc.RegisterToken(ctx, d, "tok-driver"); err != nil {
		t.Fatalf("register driver token: %v", err)
	}
	if err := svc.RegisterToken(ctx, p, "tok-pass"); err != nil {
		t.Fatalf("register passenger token: %v", err)
	}
	// re-registration is idempotent
	if err := svc.RegisterToken(ctx, d, "tok-driver"); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	if err := svc.RegisterToken(ctx, d, ""); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("empty token: got %v", err)
	}

	// only online drivers are notified about new rides
	tokens, err := svc.OnlineDriverTokens(ctx)
	if err != nil || len(tokens) != 0 {
		t.Fatalf("offline driver leaked tokens: %v %v", err, tokens)
	}
	if _, err := svc.SetAvailability(ctx, d, true, nil); err != nil {
		t.Fatalf("set online: %v", err)
	}
	tokens, err = svc.OnlineDriverTokens(ctx)
	if err != nil || len(tokens) != 1 || tokens[0] != "tok-driver" {
		t.Fatalf("online driver tokens: %v %v", err, tokens)
	}

	tokens, err = svc.PassengerTokens(ctx, p.ID)
	if err != nil || len(tokens) != 1 || tokens[0] != "tok-pass" {
		t.Fatalf("passenger tokens: %v %v", err, tokens)
	}
}

// brokenPositions wraps a Presence and fails every position read.
type brokenPositions struct {
	Presence
}

func (brokenPositions) Position(context.Context, types.ID) (*types.Point, error) {
	return nil, errors.New("geopos unavailable")
}

type errorRecorder struct {
	ch chan string
}

func (r *errorRecorder) Info(string, ...logger.Field)    {}
func (r *errorRecorder) Warning(string, ...logger.Field) {}
func (r *errorRecorder) Error(msg string, _ ...logger.Field) {
	select {
	case r.ch <- msg:
	default:
	}
}

func TestRosterSurvivesPositionFailure(t *testing.T) {
	ctx := context.Background()
	rec := &errorRecorder{ch: make(chan string, 1)}
	svc := NewService(brokenPositions{Presence: NewMemPresence()}, NewMemTokenStore(), nil, rec)
	d := types.Identity{ID: "drv-1", Role: types.RoleDriver}

	if _, err := svc.SetAvailability(ctx, d, true, &types.Point{Lat: -23.56, Lng: -46.65}); err != nil {
		t.Fatalf("set online: %v", err)
	}

	roster, err := svc.OnlineRoster(ctx)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 1 || roster[0].Position != nil {
		t.Fatalf("expected one entry without position, got %+v", roster)
	}
	select {
	case msg := <-rec.ch:
		if msg != "driver position lookup failed" {
			t.Fatalf("unexpected log message %q", msg)
		}
	default:
		t.Fatal("position failure was not logged")
	}
}
