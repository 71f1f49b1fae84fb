// README: Unit service: CRUD for central managers, scoped reads for unit managers.
package unit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"rumo/internal/logger"
	"rumo/internal/modules/audit"
	"rumo/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("unit not found")
)

type Store interface {
	Create(ctx context.Context, u *Unit) error
	Get(ctx context.Context, id types.ID) (*Unit, error)
	List(ctx context.Context, ids []types.ID) ([]*Unit, error)
	Rename(ctx context.Context, id types.ID, name string, at time.Time) (*Unit, error)
	Delete(ctx context.Context, id types.ID) error
}

// Scope resolves which units a unit manager may see: the units owning
// at least one of their member cost centers.
type Scope interface {
	MemberCostCenters(ctx context.Context, userID types.ID) ([]types.ID, error)
	UnitsOf(ctx context.Context, ccIDs []types.ID) ([]types.ID, error)
}

type Auditor interface {
	Append(ctx context.Context, eventType string, actorID types.ID, resourceType string, resourceID types.ID, details map[string]any)
}

type Service struct {
	store Store
	scope Scope
	audit Auditor
	log   logger.ILogger
	now   func() time.Time
}

func NewService(store Store, scope Scope, auditor Auditor, log logger.ILogger) *Service {
	return &Service{store: store, scope: scope, audit: auditor, log: log, now: time.Now}
}

func (s *Service) Create(ctx context.Context, actor types.Identity, name string) (*Unit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBadRequest
	}
	now := s.now()
	u := &Unit{ID: newID(), Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventUnitCreated, actor.ID, u.ID, map[string]any{"name": u.Name})
	return u, nil
}

func (s *Service) Rename(ctx context.Context, actor types.Identity, id types.ID, name string) (*Unit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBadRequest
	}
	u, err := s.store.Rename(ctx, id, name, s.now())
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventUnitUpdated, actor.ID, id, map[string]any{"name": name})
	return u, nil
}

// Delete removes a unit. Cost centers assigned to it survive with the
// assignment cleared, so the removal is worth an operational trace on
// top of the audit record.
func (s *Service) Delete(ctx context.Context, actor types.Identity, id types.ID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("unit deleted, assigned cost centers detached",
		logger.String("unitId", string(id)),
		logger.String("actorId", string(actor.ID)))
	s.record(ctx, audit.EventUnitDeleted, actor.ID, id, nil)
	return nil
}

// Get returns one unit. Unit managers only see units holding one of
// their cost centers; anything else reads as not found.
func (s *Service) Get(ctx context.Context, viewer types.Identity, id types.ID) (*Unit, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer.Role == types.RoleCentralManager {
		return u, nil
	}
	visible, err := s.visibleUnits(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	for _, v := range visible {
		if v == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Service) ListFor(ctx context.Context, viewer types.Identity) ([]*Unit, error) {
	if viewer.Role == types.RoleCentralManager {
		return s.store.List(ctx, nil)
	}
	visible, err := s.visibleUnits(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if len(visible) == 0 {
		return []*Unit{}, nil
	}
	return s.store.List(ctx, visible)
}

func (s *Service) visibleUnits(ctx context.Context, userID types.ID) ([]types.ID, error) {
	if s.scope == nil {
		return nil, nil
	}
	ccs, err := s.scope.MemberCostCenters(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.scope.UnitsOf(ctx, ccs)
}

func (s *Service) record(ctx context.Context, eventType string, actorID types.ID, id types.ID, details map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Append(ctx, eventType, actorID, "unit", id, details)
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
