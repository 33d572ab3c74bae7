package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_memoryRateLimiter_Check(t *testing.T) {
	now := time.Now()
	rl := NewMemoryRateLimiter()
	rl.nowFunc = func() time.Time { return now }

	window := time.Minute

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Check("k", 3, window).Allowed, "hit %d should pass", i+1)
	}

	d := rl.Check("k", 3, window)
	assert.False(t, d.Allowed)
	assert.Equal(t, window, d.RetryAfter)

	// other keys are independent
	assert.True(t, rl.Check("other", 3, window).Allowed)

	// halfway through, RetryAfter shrinks
	now = now.Add(30 * time.Second)
	d = rl.Check("k", 3, window)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	// window expiry resets the bucket
	now = now.Add(30 * time.Second)
	assert.True(t, rl.Check("k", 3, window).Allowed)
}
