package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether the caller identified by key may proceed. When it
// may not, the returned duration says how long to wait.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

// maxIdleKeys bounds the key map; idle keys are swept once it is exceeded.
const maxIdleKeys = 10000

type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemory returns a token bucket per key refilled at perMinute tokens a
// minute, with a burst of the same size.
func NewMemory(perMinute int) *MemoryLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &MemoryLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (m *MemoryLimiter) Allow(key string) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.limiters[key]
	if !ok {
		if len(m.limiters) >= maxIdleKeys {
			m.sweep(now)
		}
		e = &entry{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.limiters[key] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for key, e := range m.limiters {
		if now.Sub(e.lastSeen) > m.idle {
			delete(m.limiters, key)
		}
	}
}
