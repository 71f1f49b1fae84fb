// README: Request reason service: a manager-maintained catalog.
package reason

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
	ErrNotFound   = errors.New("request reason not found")
)

type Store interface {
	Create(ctx context.Context, r *Reason) error
	List(ctx context.Context) ([]*Reason, error)
	Rename(ctx context.Context, id types.ID, name string, at time.Time) (*Reason, error)
	Delete(ctx context.Context, id types.ID) error
}

type Auditor interface {
	Append(ctx context.Context, eventType string, actorID types.ID, resourceType string, resourceID types.ID, details map[string]any)
}

type Service struct {
	store Store
	audit Auditor
	log   logger.ILogger
	now   func() time.Time
}

func NewService(store Store, auditor Auditor, log logger.ILogger) *Service {
	return &Service{store: store, audit: auditor, log: log, now: time.Now}
}

func (s *Service) Create(ctx context.Context, actor types.Identity, name string) (*Reason, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBadRequest
	}
	now := s.now()
	r := &Reason{ID: newID(), Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventReasonCreated, actor.ID, r.ID, map[string]any{"name": r.Name})
	return r, nil
}

func (s *Service) Rename(ctx context.Context, actor types.Identity, id types.ID, name string) (*Reason, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBadRequest
	}
	r, err := s.store.Rename(ctx, id, name, s.now())
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventReasonUpdated, actor.ID, id, map[string]any{"name": name})
	return r, nil
}

func (s *Service) Delete(ctx context.Context, actor types.Identity, id types.ID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("request reason removed from catalog",
		logger.String("reasonId", string(id)),
		logger.String("actorId", string(actor.ID)))
	s.record(ctx, audit.EventReasonDeleted, actor.ID, id, nil)
	return nil
}

// List returns the whole catalog; reasons are not scoped per manager.
func (s *Service) List(ctx context.Context) ([]*Reason, error) {
	return s.store.List(ctx)
}

func (s *Service) record(ctx context.Context, eventType string, actorID types.ID, id types.ID, details map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Append(ctx, eventType, actorID, "request_reason", id, details)
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
