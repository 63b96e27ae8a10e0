// Package ratelimit implements a per-key sliding window rate limiter. The
// clock and the counter storage are injected, so the algorithm is testable
// with a fake clock and the storage can be swapped for a shared backend.
package ratelimit

import (
	"sync"
	"time"
)

// State holds the two-window counters for one key. The sliding window is
// approximated by weighting the previous fixed window by its overlap with
// the window ending now.
type State struct {
	PrevCount float64
	PrevStart time.Time
	CurrCount float64
	CurrStart time.Time
}

// Storage persists per-key counter state. Implementations do not need to be
// safe for concurrent use; the Limiter serializes access.
type Storage interface {
	Load(key string) (State, bool)
	Store(key string, s State)
	// Evict removes every key whose state the predicate reports as stale.
	Evict(stale func(State) bool)
}

// MemoryStorage is the default in-process Storage.
type MemoryStorage struct {
	entries map[string]State
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]State)}
}

func (m *MemoryStorage) Load(key string) (State, bool) {
	s, ok := m.entries[key]
	return s, ok
}

func (m *MemoryStorage) Store(key string, s State) {
	m.entries[key] = s
}

func (m *MemoryStorage) Evict(stale func(State) bool) {
	for key, s := range m.entries {
		if stale(s) {
			delete(m.entries, key)
		}
	}
}

// Result describes the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces at most Max requests per Window for each key.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	store Storage
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithStorage replaces the default in-memory counter storage.
func WithStorage(s Storage) Option {
	return func(l *Limiter) { l.store = s }
}

// New creates a Limiter allowing max requests per window.
func New(max int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		max:    max,
		window: window,
		now:    time.Now,
		store:  NewMemoryStorage(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for key and reports whether it fits the limit.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	s, ok := l.store.Load(key)
	if !ok {
		s = State{CurrStart: now}
	}

	if now.Sub(s.CurrStart) >= l.window {
		s.PrevCount = s.CurrCount
		s.PrevStart = s.CurrStart
		s.CurrCount = 0
		s.CurrStart = now.Truncate(l.window)
		if now.Sub(s.PrevStart) >= 2*l.window {
			s.PrevCount = 0
		}
	}

	// Weight the previous window by how much of it still falls inside the
	// sliding window ending now.
	overlap := 1.0 - now.Sub(s.CurrStart).Seconds()/l.window.Seconds()
	if overlap < 0 {
		overlap = 0
	}
	effective := s.PrevCount*overlap + s.CurrCount
	resetAt := s.CurrStart.Add(l.window)

	if effective >= float64(l.max) {
		l.store.Store(key, s)
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}

	s.CurrCount++
	effective++
	l.store.Store(key, s)

	remaining := int(float64(l.max) - effective)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, ResetAt: resetAt}
}

// EvictStale drops keys that have been idle for at least two windows.
func (l *Limiter) EvictStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-2 * l.window)
	l.store.Evict(func(s State) bool {
		return !s.CurrStart.After(cutoff)
	})
}
