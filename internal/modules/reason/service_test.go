// README: Request reason catalog tests.
package reason

import (
	"context"
	"errors"
	"testing"

	"rumo/internal/logger"
	"rumo/internal/modules/audit"
	"rumo/internal/types"
)

func TestCatalogCRUD(t *testing.T) {
	ctx := context.Background()
	sink := audit.NewMemSink()
	svc := NewService(NewMemStore(), sink, logger.Nop())
	central := types.Identity{ID: "mgr-1", Role: types.RoleCentralManager}

	r, err := svc.Create(ctx, central, "  Visita a cliente  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Name != "Visita a cliente" {
		t.Fatalf("expected trimmed name, got %q", r.Name)
	}
	if _, err := svc.Create(ctx, central, "   "); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("blank name: got %v", err)
	}

	if _, err := svc.Create(ctx, central, "Aeroporto"); err != nil {
		t.Fatalf("create second: %v", err)
	}
	list, err := svc.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %v", err, list)
	}
	// catalog is sorted by name
	if list[0].Name != "Aeroporto" || list[1].Name != "Visita a cliente" {
		t.Fatalf("list order: %q %q", list[0].Name, list[1].Name)
	}

	renamed, err := svc.Rename(ctx, central, r.ID, "Reunião externa")
	if err != nil || renamed.Name != "Reunião externa" {
		t.Fatalf("rename: %v %+v", err, renamed)
	}
	if _, err := svc.Rename(ctx, central, "missing", "X"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rename missing: got %v", err)
	}

	if err := svc.Delete(ctx, central, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, central, r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete twice: got %v", err)
	}

	events := []string{}
	for _, e := range sink.Entries() {
		events = append(events, e.EventType)
	}
	want := []string{
		audit.EventReasonCreated,
		audit.EventReasonCreated,
		audit.EventReasonUpdated,
		audit.EventReasonDeleted,
	}
	if len(events) != len(want) {
		t.Fatalf("audit events: %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("audit event %d: got %s want %s", i, events[i], want[i])
		}
	}
}
