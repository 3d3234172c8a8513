package gate

import (
	"sync"
	"time"
)

// DefaultPassTTL is how long a fully gated-in verdict is trusted.
const DefaultPassTTL = 300 * time.Second

// PassCache remembers users that recently passed gating.
type PassCache struct {
	mu     sync.RWMutex
	ttl    time.Duration
	passes map[int64]time.Time
}

// NewPassCache creates a cache whose passes last ttl.
func NewPassCache(ttl time.Duration) *PassCache {
	if ttl <= 0 {
		ttl = DefaultPassTTL
	}
	return &PassCache{ttl: ttl, passes: make(map[int64]time.Time)}
}

// Valid reports whether userID holds an unexpired pass at now.
func (p *PassCache) Valid(userID int64, now time.Time) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	exp, ok := p.passes[userID]
	return ok && now.Before(exp)
}

// Grant gives userID a pass starting at now, replacing any previous one.
func (p *PassCache) Grant(userID int64, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passes[userID] = now.Add(p.ttl)
}

// Prune drops passes that have expired by now and returns how many were dropped.
func (p *PassCache) Prune(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for id, exp := range p.passes {
		if !now.Before(exp) {
			delete(p.passes, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored passes.
func (p *PassCache) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.passes)
}
