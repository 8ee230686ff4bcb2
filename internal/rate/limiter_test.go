package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiterBurstThenDeny(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := NewMemory(3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("u1")
		assert.True(t, ok, "request %d", i)
	}
	ok, wait := l.Allow("u1")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	ok, _ = l.Allow("u2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(20 * time.Second)
	ok, _ = l.Allow("u1")
	assert.True(t, ok, "token refilled")
}

func TestMemoryLimiterSweepsIdleKeys(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := NewMemory(10)
	l.now = func() time.Time { return now }
	l.Allow("old")

	now = now.Add(time.Hour)
	l.sweep(now)
	assert.Empty(t, l.limiters)
}
