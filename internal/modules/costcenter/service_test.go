// README: Cost center policy tests (resolution + restriction ordering).
package costcenter

import (
	"context"
	"errors"
	"testing"
	"time"

	"rumo/internal/logger"
	"rumo/internal/types"
)

var manager = types.Identity{ID: "mgr-1", Role: types.RoleCentralManager}

func newTestService(t *testing.T) (*Service, *MemStore) {
	t.Helper()
	store := NewMemStore()
	return NewService(store, nil, nil, logger.Nop()), store
}

func mustCreate(t *testing.T, svc *Service, cmd CreateCommand) *CostCenter {
	t.Helper()
	cmd.Actor = manager
	cc, err := svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create cost center: %v", err)
	}
	return cc
}

func assertReason(t *testing.T, err error, reason string) {
	t.Helper()
	var pe *PolicyError
	if !errors.As(err, &pe) {
		t.Fatalf("expected policy error %q, got %v", reason, err)
	}
	if pe.Reason != reason {
		t.Fatalf("expected reason %q, got %q", reason, pe.Reason)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	ccA := mustCreate(t, svc, CreateCommand{Name: "Vendas"})
	ccB := mustCreate(t, svc, CreateCommand{Name: "Engenharia"})

	// no memberships: ride is personal, no cost center applies
	id, err := svc.Resolve(ctx, "user-1", "")
	if err != nil || id != "" {
		t.Fatalf("expected no cost center, got %q err=%v", id, err)
	}

	// single membership is used implicitly
	_ = store.AddMember(ctx, ccA.ID, "user-1")
	id, err = svc.Resolve(ctx, "user-1", "")
	if err != nil || id != ccA.ID {
		t.Fatalf("expected %q, got %q err=%v", ccA.ID, id, err)
	}

	// several memberships require an explicit choice
	_ = store.AddMember(ctx, ccB.ID, "user-1")
	_, err = svc.Resolve(ctx, "user-1", "")
	assertReason(t, err, ReasonCostCenterRequired)

	id, err = svc.Resolve(ctx, "user-1", ccB.ID)
	if err != nil || id != ccB.ID {
		t.Fatalf("expected %q, got %q err=%v", ccB.ID, id, err)
	}

	// the explicit choice must be a membership
	_, err = svc.Resolve(ctx, "user-2", ccA.ID)
	assertReason(t, err, ReasonNotMember)

	// anonymous requesters cannot book against a cost center
	_, err = svc.Resolve(ctx, "", ccA.ID)
	assertReason(t, err, ReasonNotMember)

	id, err = svc.Resolve(ctx, "", "")
	if err != nil || id != "" {
		t.Fatalf("expected no cost center for anonymous, got %q err=%v", id, err)
	}
}

func TestCheckBlocked(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	cc := mustCreate(t, svc, CreateCommand{Name: "Bloqueado"})
	blocked := true
	if _, err := svc.Update(ctx, manager, cc.ID, Patch{Blocked: &blocked}); err != nil {
		t.Fatalf("update: %v", err)
	}

	err := svc.Check(ctx, cc.ID, nil, nil, 1000, 3)
	assertReason(t, err, ReasonBlocked)
}

func TestCheckTimeWindow(t *testing.T) {
	ctx := context.Background()

	at := func(hour, min int) func() time.Time {
		return func() time.Time {
			return time.Date(2026, time.March, 10, hour, min, 0, 0, time.Local)
		}
	}

	cases := []struct {
		name       string
		start, end int
		hour, min  int
		allowed    bool
	}{
		{"inside plain window", 9 * 60, 18 * 60, 12, 0, true},
		{"before plain window", 9 * 60, 18 * 60, 8, 59, false},
		{"at plain window start", 9 * 60, 18 * 60, 9, 0, true},
		{"at plain window end", 9 * 60, 18 * 60, 18, 0, false},
		// 22:00-06:00 crosses midnight
		{"overnight late evening", 22 * 60, 6 * 60, 23, 30, true},
		{"overnight early morning", 22 * 60, 6 * 60, 2, 0, true},
		{"overnight midday", 22 * 60, 6 * 60, 12, 0, false},
		{"overnight just before start", 22 * 60, 6 * 60, 21, 59, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			cc := mustCreate(t, svc, CreateCommand{
				Name:               "Janela",
				TimeWindowStartMin: &tc.start,
				TimeWindowEndMin:   &tc.end,
			})
			svc.now = at(tc.hour, tc.min)

			err := svc.Check(ctx, cc.ID, nil, nil, 1000, 3)
			if tc.allowed && err != nil {
				t.Fatalf("expected allowed, got %v", err)
			}
			if !tc.allowed {
				assertReason(t, err, ReasonOutsideTimeWindow)
			}
		})
	}
}

func TestCheckMaxKm(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	maxKm := 10.0
	cc := mustCreate(t, svc, CreateCommand{Name: "Curtas", MaxKmPerRide: &maxKm})

	if err := svc.Check(ctx, cc.ID, nil, nil, 1000, 10.0); err != nil {
		t.Fatalf("10 km within a 10 km cap, got %v", err)
	}
	err := svc.Check(ctx, cc.ID, nil, nil, 1000, 10.1)
	assertReason(t, err, ReasonMaxKmExceeded)
}

type fixedSpend int64

func (f fixedSpend) MonthToDateSpend(context.Context, types.ID, time.Time) (int64, error) {
	return int64(f), nil
}

func TestCheckMonthlyBudget(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	svc := NewService(store, fixedSpend(90000), nil, logger.Nop())

	budget := int64(100000)
	cc := mustCreate(t, svc, CreateCommand{Name: "Orcamento", MonthlyBudgetCents: &budget})

	// 90000 spent + 10000 fits exactly
	if err := svc.Check(ctx, cc.ID, nil, nil, 10000, 3); err != nil {
		t.Fatalf("estimate at the budget boundary should pass, got %v", err)
	}
	err := svc.Check(ctx, cc.ID, nil, nil, 10001, 3)
	assertReason(t, err, ReasonBudgetExceeded)
}

type warnRecorder struct {
	ch chan string
}

func (l warnRecorder) Info(string, ...logger.Field)  {}
func (l warnRecorder) Error(string, ...logger.Field) {}
func (l warnRecorder) Warning(msg string, _ ...logger.Field) {
	select {
	case l.ch <- msg:
	default:
	}
}

// Without a spend source the budget cannot be enforced; the check is
// skipped with a warning, not silently.
func TestCheckBudgetWithoutSpendSourceWarns(t *testing.T) {
	ctx := context.Background()
	rec := warnRecorder{ch: make(chan string, 1)}
	store := NewMemStore()
	svc := NewService(store, nil, nil, rec)

	budget := int64(100000)
	cc := mustCreate(t, svc, CreateCommand{Name: "Sem fonte", MonthlyBudgetCents: &budget})

	if err := svc.Check(ctx, cc.ID, nil, nil, 999999, 3); err != nil {
		t.Fatalf("check without spend source: %v", err)
	}
	select {
	case msg := <-rec.ch:
		if msg != "monthly budget configured but no spend source wired" {
			t.Fatalf("unexpected warning %q", msg)
		}
	default:
		t.Fatal("expected a warning about the missing spend source")
	}
}

func TestCheckAllowedAreas(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	cc := mustCreate(t, svc, CreateCommand{Name: "Areas"})
	paulista := types.Point{Lat: -23.5614, Lng: -46.6558}
	se := types.Point{Lat: -23.5503, Lng: -46.6339}
	rio := types.Point{Lat: -22.9068, Lng: -43.1729}

	if _, err := svc.AddArea(ctx, manager, AllowedArea{
		CostCenterID: cc.ID,
		Kind:         AreaOrigin,
		Name:         "Centro SP",
		Center:       paulista,
		RadiusKm:     5,
	}); err != nil {
		t.Fatalf("add area: %v", err)
	}

	// Sé is ~2.7 km from Paulista, inside the 5 km fence
	if err := svc.Check(ctx, cc.ID, &se, &rio, 1000, 3); err != nil {
		t.Fatalf("pickup inside origin fence, got %v", err)
	}
	// Rio is far outside
	err := svc.Check(ctx, cc.ID, &rio, &se, 1000, 3)
	assertReason(t, err, ReasonOriginNotAllowed)

	// a pickup without coordinates has nothing to measure and passes
	if err := svc.Check(ctx, cc.ID, nil, nil, 1000, 3); err != nil {
		t.Fatalf("missing coordinates should pass, got %v", err)
	}

	// destination fences are independent of origin fences
	if _, err := svc.AddArea(ctx, manager, AllowedArea{
		CostCenterID: cc.ID,
		Kind:         AreaDestination,
		Name:         "Centro SP destino",
		Center:       paulista,
		RadiusKm:     5,
	}); err != nil {
		t.Fatalf("add area: %v", err)
	}
	err = svc.Check(ctx, cc.ID, &se, &rio, 1000, 3)
	assertReason(t, err, ReasonDestNotAllowed)
}

func TestCheckOrderFirstViolationWins(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	// blocked and over max km at once: blocked is reported
	maxKm := 1.0
	cc := mustCreate(t, svc, CreateCommand{Name: "Tudo", MaxKmPerRide: &maxKm})
	blocked := true
	if _, err := svc.Update(ctx, manager, cc.ID, Patch{Blocked: &blocked}); err != nil {
		t.Fatalf("update: %v", err)
	}
	err := svc.Check(ctx, cc.ID, nil, nil, 1000, 50)
	assertReason(t, err, ReasonBlocked)
}

func TestCheckUnknownCostCenter(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Check(context.Background(), "missing", nil, nil, 1000, 3)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPatchClearsLimits(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	budget := int64(50000)
	maxKm := 20.0
	start, end := 8*60, 18*60
	cc := mustCreate(t, svc, CreateCommand{
		Name:               "Limites",
		MonthlyBudgetCents: &budget,
		MaxKmPerRide:       &maxKm,
		TimeWindowStartMin: &start,
		TimeWindowEndMin:   &end,
	})

	got, err := svc.Update(ctx, manager, cc.ID, Patch{
		ClearMonthlyBudget: true,
		ClearMaxKm:         true,
		ClearTimeWindow:    true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.MonthlyBudgetCents != nil || got.MaxKmPerRide != nil || got.TimeWindowStartMin != nil || got.TimeWindowEndMin != nil {
		t.Fatalf("limits not cleared: %+v", got)
	}
}

func TestWindowValidation(t *testing.T) {
	svc, _ := newTestService(t)

	start := 10 * 60
	_, err := svc.Create(context.Background(), CreateCommand{
		Actor:              manager,
		Name:               "Meio",
		TimeWindowStartMin: &start,
	})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("window with only a start must be rejected, got %v", err)
	}

	bad := 1500
	_, err = svc.Create(context.Background(), CreateCommand{
		Actor:              manager,
		Name:               "Fora",
		TimeWindowStartMin: &bad,
		TimeWindowEndMin:   &start,
	})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("minutes beyond the day must be rejected, got %v", err)
	}
}

func TestUnitManagerScoping(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	ccA := mustCreate(t, svc, CreateCommand{Name: "A"})
	ccB := mustCreate(t, svc, CreateCommand{Name: "B"})

	unitMgr := types.Identity{ID: "unit-1", Role: types.RoleUnitManager}
	_ = store.AddMember(ctx, ccA.ID, unitMgr.ID)

	list, err := svc.ListFor(ctx, unitMgr)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != ccA.ID {
		t.Fatalf("unit manager must only see member cost centers, got %+v", list)
	}

	// a non-member cost center is indistinguishable from a missing one
	if _, err := svc.Get(ctx, unitMgr, ccB.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	central, err := svc.ListFor(ctx, manager)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(central) != 2 {
		t.Fatalf("central manager must see everything, got %d", len(central))
	}
}
