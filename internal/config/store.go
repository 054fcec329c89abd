package config

import (
	"errors"
	"sync"
)

// ErrNotPublished is returned by Store.Current before the first Publish.
// The daemon performs one synchronous parse-and-publish before any worker
// starts, so workers treat this as a programming error.
var ErrNotPublished = errors.New("config: no snapshot published yet")

// Store holds the currently-visible config snapshot. Publish replaces the
// whole snapshot atomically; readers keep whatever pointer they captured.
// Published configs must never be mutated.
type Store struct {
	mu  sync.RWMutex
	cur *Config
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Publish makes cfg the current snapshot.
func (s *Store) Publish(cfg *Config) {
	s.mu.Lock()
	s.cur = cfg
	s.mu.Unlock()
}

// Current returns the latest published snapshot.
func (s *Store) Current() (*Config, error) {
	s.mu.RLock()
	cur := s.cur
	s.mu.RUnlock()

	if cur == nil {
		return nil, ErrNotPublished
	}
	return cur, nil
}
