// README: Concurrency tests for ride acceptance (run with -race).
package ride

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"rumo/internal/types"
)

// TestConcurrentAccept fires many drivers at the same requested ride.
// Exactly one may win; everyone else must see a conflict or an invalid
// state, never a second assignment.
func TestConcurrentAccept(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	r := requestRide(t, svc)

	const drivers = 16
	var wg sync.WaitGroup
	errs := make(chan error, drivers)
	winners := make(chan types.ID, drivers)

	for i := 0; i < drivers; i++ {
		id := types.ID(fmt.Sprintf("drv-%d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Accept(ctx, AcceptCommand{
				RideID:       r.ID,
				Driver:       types.Identity{ID: id, Role: types.RoleDriver},
				DriverName:   string(id),
				VehiclePlate: "XYZ0A00",
			})
			if err != nil {
				errs <- err
				return
			}
			winners <- id
		}()
	}
	wg.Wait()
	close(errs)
	close(winners)

	var winnerIDs []types.ID
	for id := range winners {
		winnerIDs = append(winnerIDs, id)
	}
	if len(winnerIDs) != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", len(winnerIDs))
	}
	for err := range errs {
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
			t.Fatalf("loser got unexpected error: %v", err)
		}
	}

	got, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusAccepted || got.DriverID == nil || *got.DriverID != winnerIDs[0] {
		t.Fatalf("ride not assigned to the single winner: %+v", got)
	}
}

// TestConcurrentCancelVsAccept races a cancellation against an accept.
// Whatever order they land in, the ride ends in exactly one of the two
// outcomes and the loser gets a state error.
func TestConcurrentCancelVsAccept(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		svc, store, _ := newTestService(t)
		r := requestRide(t, svc)

		var wg sync.WaitGroup
		wg.Add(2)
		var acceptErr, cancelErr error
		go func() {
			defer wg.Done()
			_, acceptErr = svc.Accept(ctx, AcceptCommand{RideID: r.ID, Driver: driver, DriverName: "João", VehiclePlate: "ABC1D23"})
		}()
		go func() {
			defer wg.Done()
			_, cancelErr = svc.Cancel(ctx, CancelCommand{RideID: r.ID, Actor: passenger, Reason: "desisti"})
		}()
		wg.Wait()

		got, err := store.Get(ctx, r.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		switch got.Status {
		case StatusAccepted:
			if acceptErr != nil {
				t.Fatalf("ride accepted but accept errored: %v", acceptErr)
			}
		case StatusCancelled:
			if cancelErr != nil {
				t.Fatalf("ride cancelled but cancel errored: %v", cancelErr)
			}
		default:
			t.Fatalf("unexpected final status %s", got.Status)
		}
		if acceptErr == nil && cancelErr == nil && got.Status == StatusAccepted {
			// passenger cancel may legitimately land after accept;
			// then both succeed and the ride ends cancelled
			t.Fatalf("both operations succeeded but ride stayed %s", got.Status)
		}
	}
}

// TestConcurrentRate makes sure the write-once rating survives parallel
// attempts.
func TestConcurrentRate(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	r := requestRide(t, svc)
	acceptRide(t, svc, r.ID)
	if _, err := svc.Arrive(ctx, ArriveCommand{RideID: r.ID, Driver: driver}); err != nil {
		t.Fatalf("arrive: %v", err)
	}
	if _, err := svc.Start(ctx, StartCommand{RideID: r.ID, Driver: driver}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Complete(ctx, CompleteCommand{RideID: r.ID, Driver: driver, PriceCents: 2500}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	okCount := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		rating := i%5 + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Rate(ctx, RateCommand{RideID: r.ID, Actor: passenger, Rating: rating}); err == nil {
				okCount <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(okCount)

	n := 0
	for range okCount {
		n++
	}
	if n != 1 {
		t.Fatalf("expected exactly 1 successful rating, got %d", n)
	}
	got, _ := store.Get(ctx, r.ID)
	if got.Rating == nil {
		t.Fatal("rating missing after concurrent attempts")
	}
}
