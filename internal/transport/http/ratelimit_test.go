package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurst(t *testing.T) {
	rl := newRateLimiter(1, 3)

	for range 3 {
		assert.True(t, rl.allow())
	}
	assert.False(t, rl.allow())
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := newRateLimiter(0, 10)

	assert.Nil(t, rl)
	for range 100 {
		assert.True(t, rl.allow())
	}
}
