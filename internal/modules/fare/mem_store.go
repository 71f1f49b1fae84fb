// README: In-memory fare config store (dev backend and tests).
package fare

import (
	"context"
	"sync"
)

type MemStore struct {
	mu  sync.RWMutex
	cfg *Config
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Config(ctx context.Context) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return nil, nil
	}
	c := *s.cfg
	return &c, nil
}

func (s *MemStore) SetConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = &cfg
}
