// README: Unit CRUD and manager-scoping tests.
package unit

import (
	"context"
	"errors"
	"testing"

	"rumo/internal/logger"
	"rumo/internal/modules/costcenter"
	"rumo/internal/types"
)

var central = types.Identity{ID: "mgr-1", Role: types.RoleCentralManager}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemStore(), nil, nil, logger.Nop())

	u, err := svc.Create(ctx, central, "  Filial Sul  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Name != "Filial Sul" {
		t.Fatalf("name not trimmed: %q", u.Name)
	}

	if _, err := svc.Create(ctx, central, "   "); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("blank name: got %v", err)
	}

	u, err = svc.Rename(ctx, central, u.ID, "Filial Sudeste")
	if err != nil || u.Name != "Filial Sudeste" {
		t.Fatalf("rename: %v %+v", err, u)
	}
	if _, err := svc.Rename(ctx, central, "missing", "X"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rename missing: got %v", err)
	}

	if err := svc.Delete(ctx, central, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, central, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: got %v", err)
	}
}

func TestUnitManagerScoping(t *testing.T) {
	ctx := context.Background()

	ccStore := costcenter.NewMemStore()
	ccSvc := costcenter.NewService(ccStore, nil, nil, logger.Nop())
	svc := NewService(NewMemStore(), ccSvc, nil, logger.Nop())

	south, err := svc.Create(ctx, central, "Filial Sul")
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}
	north, err := svc.Create(ctx, central, "Filial Norte")
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}

	cc, err := ccSvc.Create(ctx, costcenter.CreateCommand{Actor: central, Name: "Vendas", UnitID: &south.ID})
	if err != nil {
		t.Fatalf("create cost center: %v", err)
	}

	unitMgr := types.Identity{ID: "unit-1", Role: types.RoleUnitManager}
	if err := ccSvc.AddMember(ctx, central, cc.ID, unitMgr.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}

	list, err := svc.ListFor(ctx, unitMgr)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != south.ID {
		t.Fatalf("unit manager must only see units owning member cost centers, got %+v", list)
	}

	if _, err := svc.Get(ctx, unitMgr, north.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign unit must read as missing, got %v", err)
	}
	if _, err := svc.Get(ctx, unitMgr, south.ID); err != nil {
		t.Fatalf("member unit: %v", err)
	}

	all, err := svc.ListFor(ctx, central)
	if err != nil || len(all) != 2 {
		t.Fatalf("central manager sees all units: %d err=%v", len(all), err)
	}
}
