// README: In-memory audit sink (dev backend and tests).
package audit

import (
	"context"
	"sync"
	"time"

	"rumo/internal/types"
)

type MemSink struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemSink() *MemSink {
	return &MemSink{}
}

func (s *MemSink) Append(ctx context.Context, eventType string, actorID types.ID, resourceType string, resourceID types.ID, details map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := Entry{
		ID:           int64(len(s.entries) + 1),
		EventType:    eventType,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		CreatedAt:    time.Now(),
	}
	if actorID != "" {
		a := actorID
		e.ActorID = &a
	}
	s.entries = append(s.entries, e)
}

// Entries returns a copy of the recorded events.
func (s *MemSink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
